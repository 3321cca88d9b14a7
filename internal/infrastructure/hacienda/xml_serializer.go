package hacienda

import (
	"bytes"
	"encoding/xml"
	"net/mail"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/shopspring/decimal"
	"golang.org/x/text/unicode/norm"

	"github.com/jhoicas/Comprobantes-api/internal/domain"
	"github.com/jhoicas/Comprobantes-api/internal/domain/entity"
	domhacienda "github.com/jhoicas/Comprobantes-api/internal/domain/hacienda"
	pkghacienda "github.com/jhoicas/Comprobantes-api/pkg/hacienda"
)

// Límites de longitud del esquema v4.4.
const (
	maxNameLen           = 100
	maxCommercialNameLen = 80
	maxAddressLen        = 250
	maxDetailLen         = 200
	maxUnitLen           = 15
	maxReasonLen         = 180
	maxEmailLen          = 160
	maxExoDocNumberLen   = 40
	maxExoOtherLen       = 100
	maxIntegerDigits     = 13 // DecimalDineroType: 18 dígitos, 5 decimales
	cabysLen             = 13
	activityCodeLen      = 6
	minPhoneDigits       = 8
	maxPhoneDigits       = 20
)

// XMLSerializer construye el XML v4.4 del comprobante (sin firma).
type XMLSerializer struct {
	cfg SerializerConfig
}

// NewXMLSerializer crea el serializador.
func NewXMLSerializer(cfg SerializerConfig) *XMLSerializer {
	return &XMLSerializer{cfg: cfg}
}

// Serialize genera el XML del comprobante. Cualquier campo fuera de formato devuelve
// domain.ErrSchema y no se emite XML.
func (s *XMLSerializer) Serialize(doc *entity.Document) ([]byte, error) {
	if err := s.validate(doc); err != nil {
		return nil, err
	}
	kindRoot := roots[doc.Kind]
	ns := nsBase + kindRoot.Schema

	var buf bytes.Buffer
	buf.WriteString(xml.Header)
	w := newXMLWriter(&buf)

	root := xml.StartElement{
		Name: xml.Name{Local: kindRoot.Element},
		Attr: []xml.Attr{
			{Name: xml.Name{Local: "xmlns"}, Value: ns},
			{Name: xml.Name{Local: "xmlns:xsi"}, Value: nsXsi},
			{Name: xml.Name{Local: "xsi:schemaLocation"}, Value: ns + " " + ns + ".xsd"},
		},
	}
	w.token(root)

	writeEl(w, "Clave", doc.Key)
	writeEl(w, "ProveedorSistemas", s.providerID(doc))
	writeEl(w, "CodigoActividadEmisor", doc.Issuer.ActivityCode)
	if doc.Recipient != nil && doc.Recipient.ActivityCode != "" {
		writeEl(w, "CodigoActividadReceptor", doc.Recipient.ActivityCode)
	}
	writeEl(w, "NumeroConsecutivo", doc.Sequence)
	writeEl(w, "FechaEmision", domhacienda.FormatDateTime(doc.IssuedAt))

	writeParty(w, "Emisor", doc.Issuer, true)
	if doc.Recipient != nil {
		writeParty(w, "Receptor", *doc.Recipient, false)
	}

	writeEl(w, "CondicionVenta", doc.SaleCondition)
	if doc.SaleCondition == pkghacienda.SaleConditionCredit && doc.CreditTermDays > 0 {
		writeEl(w, "PlazoCredito", strconv.Itoa(doc.CreditTermDays))
	}

	start(w, "DetalleServicio")
	for _, l := range doc.Lines {
		writeLine(w, l)
	}
	end(w, "DetalleServicio")

	writeSummary(w, doc)

	if doc.Kind == entity.KindCreditNote && doc.Reference != nil {
		ref := doc.Reference
		start(w, "InformacionReferencia")
		writeEl(w, "TipoDocIR", ref.DocumentType)
		writeEl(w, "Numero", ref.OriginalKey)
		writeEl(w, "FechaEmisionIR", domhacienda.FormatDateTime(ref.OriginalIssuedAt))
		writeEl(w, "Codigo", ref.ReasonCode)
		writeEl(w, "Razon", cleanText(ref.ReasonText))
		end(w, "InformacionReferencia")
	}

	if s.cfg.OtherText != "" {
		start(w, "Otros")
		writeEl(w, "OtroTexto", cleanText(s.cfg.OtherText))
		end(w, "Otros")
	}

	w.token(root.End())
	if err := w.flush(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (s *XMLSerializer) providerID(doc *entity.Document) string {
	if s.cfg.ProviderID != "" {
		return s.cfg.ProviderID
	}
	return pkghacienda.NormalizeTaxID(doc.Issuer.TaxID)
}

// ── Escritura ─────────────────────────────────────────────────────────────────

// xmlWriter conserva el primer error del encoder; los tokens posteriores se ignoran.
type xmlWriter struct {
	enc *xml.Encoder
	err error
}

func newXMLWriter(buf *bytes.Buffer) *xmlWriter {
	enc := xml.NewEncoder(buf)
	enc.Indent("", "  ")
	return &xmlWriter{enc: enc}
}

func (w *xmlWriter) token(t xml.Token) {
	if w.err != nil {
		return
	}
	w.err = w.enc.EncodeToken(t)
}

func (w *xmlWriter) flush() error {
	if w.err != nil {
		return w.err
	}
	return w.enc.Flush()
}

func start(w *xmlWriter, local string) {
	w.token(xml.StartElement{Name: xml.Name{Local: local}})
}

func end(w *xmlWriter, local string) {
	w.token(xml.EndElement{Name: xml.Name{Local: local}})
}

// writeEl escribe <local>value</local>; el encoder escapa & < > " '.
func writeEl(w *xmlWriter, local, value string) {
	start(w, local)
	w.token(xml.CharData(value))
	end(w, local)
}

func writeAmount(w *xmlWriter, local string, d decimal.Decimal) {
	writeEl(w, local, domhacienda.FormatAmount(d))
}

// writeAmountIfNonZero escribe el monto solo si es distinto de cero (campos opcionales del resumen).
func writeAmountIfNonZero(w *xmlWriter, local string, d decimal.Decimal) {
	if !d.IsZero() {
		writeAmount(w, local, d)
	}
}

func writeParty(w *xmlWriter, local string, p entity.Party, issuer bool) {
	start(w, local)
	writeEl(w, "Nombre", cleanText(p.Name))
	start(w, "Identificacion")
	writeEl(w, "Tipo", p.TaxIDType)
	writeEl(w, "Numero", pkghacienda.NormalizeTaxID(p.TaxID))
	end(w, "Identificacion")
	if p.CommercialName != "" {
		writeEl(w, "NombreComercial", cleanText(p.CommercialName))
	}
	if issuer || p.Location.Province != "" {
		loc := domhacienda.ToRelative(p.Location.Province, p.Location.Canton, p.Location.District)
		start(w, "Ubicacion")
		writeEl(w, "Provincia", loc.Province)
		writeEl(w, "Canton", loc.Canton)
		writeEl(w, "Distrito", loc.District)
		writeEl(w, "OtrasSenas", cleanText(p.Location.Address))
		end(w, "Ubicacion")
	}
	if phone, ok := validPhone(p.Phone); ok {
		start(w, "Telefono")
		writeEl(w, "CodigoPais", phoneCountry(p.PhoneCountry))
		writeEl(w, "NumTelefono", phone)
		end(w, "Telefono")
	}
	if email, ok := validEmail(p.Email); ok {
		writeEl(w, "CorreoElectronico", email)
	}
	end(w, local)
}

func writeLine(w *xmlWriter, l entity.LineItem) {
	start(w, "LineaDetalle")
	writeEl(w, "NumeroLinea", strconv.Itoa(l.LineNumber))
	writeEl(w, "CodigoCABYS", l.CatalogCode)
	writeAmount(w, "Cantidad", l.Quantity)
	writeEl(w, "UnidadMedida", l.Unit)
	writeEl(w, "Detalle", cleanText(l.Description))
	writeAmount(w, "PrecioUnitario", l.UnitPrice)
	writeAmount(w, "MontoTotal", l.GrossAmount)
	writeAmount(w, "SubTotal", l.GrossAmount)
	writeAmount(w, "BaseImponible", l.TaxableBase)
	if l.Tax != nil {
		start(w, "Impuesto")
		writeEl(w, "Codigo", l.Tax.Code)
		writeEl(w, "CodigoTarifaIVA", l.Tax.RateCode)
		writeAmount(w, "Tarifa", l.Tax.RatePercent)
		writeAmount(w, "Monto", l.Tax.Amount)
		if exo := l.Tax.Exoneration; exo != nil {
			writeExoneration(w, exo)
		}
		end(w, "Impuesto")
	}
	writeEl(w, "ImpuestoAsumidoEmisorFabrica", "0")
	writeAmount(w, "ImpuestoNeto", l.NetTax)
	writeAmount(w, "MontoTotalLinea", l.LineTotal)
	end(w, "LineaDetalle")
}

func writeExoneration(w *xmlWriter, exo *entity.Exoneration) {
	start(w, "Exoneracion")
	writeEl(w, "TipoDocumentoEX1", exo.DocumentType)
	if exo.DocumentType == pkghacienda.ExonerationDocOther {
		writeEl(w, "TipoDocumentoOTRO", cleanText(exo.DocumentTypeOther))
	}
	writeEl(w, "NumeroDocumento", cleanText(exo.DocumentNumber))
	if exo.Article != "" {
		writeEl(w, "Articulo", exo.Article)
	}
	if exo.Subsection != "" {
		writeEl(w, "Inciso", exo.Subsection)
	}
	writeEl(w, "NombreInstitucion", exo.Institution)
	if exo.Institution == pkghacienda.InstitutionOther {
		writeEl(w, "NombreInstitucionOtros", cleanText(exo.InstitutionOther))
	}
	writeEl(w, "FechaEmisionEX", domhacienda.FormatDateTime(exo.IssuedAt))
	writeAmount(w, "TarifaExonerada", exo.ExemptedRate)
	writeAmount(w, "MontoExoneracion", exo.ExemptedAmount)
	end(w, "Exoneracion")
}

func writeSummary(w *xmlWriter, doc *entity.Document) {
	sm := doc.Summary
	start(w, "ResumenFactura")
	start(w, "CodigoTipoMoneda")
	writeEl(w, "CodigoMoneda", sm.CurrencyCode)
	writeAmount(w, "TipoCambio", sm.ExchangeRate)
	end(w, "CodigoTipoMoneda")
	writeAmountIfNonZero(w, "TotalServGravados", sm.TotalServTaxed)
	writeAmountIfNonZero(w, "TotalServExentos", sm.TotalServExempt)
	writeAmountIfNonZero(w, "TotalServExonerado", sm.TotalServExonerated)
	writeAmountIfNonZero(w, "TotalMercanciasGravadas", sm.TotalGoodsTaxed)
	writeAmountIfNonZero(w, "TotalMercanciasExentas", sm.TotalGoodsExempt)
	writeAmountIfNonZero(w, "TotalMercanciasExoneradas", sm.TotalGoodsExonerated)
	writeAmount(w, "TotalGravado", sm.TotalTaxed)
	writeAmount(w, "TotalExento", sm.TotalExempt)
	writeAmount(w, "TotalExonerado", sm.TotalExonerated)
	writeAmount(w, "TotalVenta", sm.TotalSale)
	writeAmount(w, "TotalVentaNeta", sm.TotalNetSale)
	for _, b := range sm.TaxBreakdown {
		start(w, "TotalDesgloseImpuesto")
		writeEl(w, "Codigo", b.Code)
		writeEl(w, "CodigoTarifaIVA", b.RateCode)
		writeAmount(w, "TotalMontoImpuesto", b.Amount)
		end(w, "TotalDesgloseImpuesto")
	}
	writeAmount(w, "TotalImpuesto", sm.TotalTax)
	if doc.PaymentMethod != "" {
		start(w, "MedioPago")
		writeEl(w, "TipoMedioPago", doc.PaymentMethod)
		writeAmount(w, "TotalMedioPago", sm.TotalDocument)
		end(w, "MedioPago")
	}
	writeAmount(w, "TotalComprobante", sm.TotalDocument)
	end(w, "ResumenFactura")
}

// ── Validación (falla cerrada) ────────────────────────────────────────────────

func (s *XMLSerializer) validate(doc *entity.Document) error {
	if doc == nil {
		return domain.SchemaError("comprobante", "nulo")
	}
	if _, ok := roots[doc.Kind]; !ok {
		return domain.SchemaError("tipo", "tipo de comprobante %q no soportado", doc.Kind)
	}
	if !digits(doc.Key, domhacienda.KeyLength) {
		return domain.SchemaError("Clave", "debe tener %d dígitos", domhacienda.KeyLength)
	}
	if !digits(doc.Sequence, domhacienda.SequenceLength) {
		return domain.SchemaError("NumeroConsecutivo", "debe tener %d dígitos", domhacienda.SequenceLength)
	}
	if doc.IssuedAt.IsZero() {
		return domain.SchemaError("FechaEmision", "requerida")
	}
	if !digits(doc.Issuer.ActivityCode, activityCodeLen) {
		return domain.SchemaError("CodigoActividadEmisor", "debe tener %d dígitos", activityCodeLen)
	}
	if err := validateParty("Emisor", doc.Issuer, true); err != nil {
		return err
	}
	switch {
	case doc.Recipient != nil:
		if doc.Recipient.ActivityCode != "" && !digits(doc.Recipient.ActivityCode, activityCodeLen) {
			return domain.SchemaError("CodigoActividadReceptor", "debe tener %d dígitos", activityCodeLen)
		}
		if err := validateParty("Receptor", *doc.Recipient, false); err != nil {
			return err
		}
	case doc.Kind == entity.KindInvoice:
		return domain.SchemaError("Receptor", "obligatorio en factura electrónica")
	}
	if !digits(doc.SaleCondition, 2) {
		return domain.SchemaError("CondicionVenta", "código %q inválido", doc.SaleCondition)
	}
	if doc.PaymentMethod != "" && !digits(doc.PaymentMethod, 2) {
		return domain.SchemaError("TipoMedioPago", "código %q inválido", doc.PaymentMethod)
	}
	if len(doc.Lines) == 0 {
		return domain.SchemaError("DetalleServicio", "sin líneas")
	}
	for i, l := range doc.Lines {
		if err := validateLine(i+1, l); err != nil {
			return err
		}
	}
	if err := validateSummary(doc.Summary); err != nil {
		return err
	}
	if !validXMLText(s.cfg.OtherText) {
		return domain.SchemaError("Otros/OtroTexto", "carácter inválido")
	}
	if doc.Kind == entity.KindCreditNote {
		if err := validateReference(doc.Reference); err != nil {
			return err
		}
	}
	return nil
}

func validateParty(block string, p entity.Party, issuer bool) error {
	if err := textLen(block+"/Nombre", p.Name, 1, maxNameLen); err != nil {
		return err
	}
	if err := pkghacienda.ValidateTaxID(p.TaxIDType, p.TaxID); err != nil {
		return domain.SchemaError(block+"/Identificacion", "%v", err)
	}
	if err := textLen(block+"/NombreComercial", p.CommercialName, 0, maxCommercialNameLen); err != nil {
		return err
	}
	if issuer || p.Location.Province != "" {
		if err := textLen(block+"/Ubicacion/OtrasSenas", p.Location.Address, 1, maxAddressLen); err != nil {
			return err
		}
	}
	return nil
}

func validateLine(expected int, l entity.LineItem) error {
	field := "LineaDetalle[" + strconv.Itoa(expected) + "]"
	if l.LineNumber != expected {
		return domain.SchemaError(field+"/NumeroLinea", "esperado %d, recibido %d", expected, l.LineNumber)
	}
	if !digits(l.CatalogCode, cabysLen) {
		return domain.SchemaError(field+"/CodigoCABYS", "debe tener %d dígitos", cabysLen)
	}
	if !l.Quantity.IsPositive() {
		return domain.SchemaError(field+"/Cantidad", "debe ser mayor a cero")
	}
	if err := textLen(field+"/UnidadMedida", l.Unit, 1, maxUnitLen); err != nil {
		return err
	}
	if err := textLen(field+"/Detalle", l.Description, 1, maxDetailLen); err != nil {
		return err
	}
	for name, d := range map[string]decimal.Decimal{
		"PrecioUnitario": l.UnitPrice, "MontoTotal": l.GrossAmount, "BaseImponible": l.TaxableBase,
		"ImpuestoNeto": l.NetTax, "MontoTotalLinea": l.LineTotal,
	} {
		if err := amountFits(field+"/"+name, d); err != nil {
			return err
		}
	}
	if l.Tax == nil {
		return nil
	}
	if !digits(l.Tax.Code, 2) || !digits(l.Tax.RateCode, 2) {
		return domain.SchemaError(field+"/Impuesto", "código o tarifa inválidos")
	}
	if err := amountFits(field+"/Impuesto/Monto", l.Tax.Amount); err != nil {
		return err
	}
	if exo := l.Tax.Exoneration; exo != nil {
		return validateExoneration(field+"/Exoneracion", exo)
	}
	return nil
}

func validateExoneration(field string, exo *entity.Exoneration) error {
	if !digits(exo.DocumentType, 2) {
		return domain.SchemaError(field+"/TipoDocumentoEX1", "código %q inválido", exo.DocumentType)
	}
	if exo.DocumentType == pkghacienda.ExonerationDocOther {
		if err := textLen(field+"/TipoDocumentoOTRO", exo.DocumentTypeOther, 5, maxExoOtherLen); err != nil {
			return err
		}
	}
	if err := textLen(field+"/NumeroDocumento", exo.DocumentNumber, 3, maxExoDocNumberLen); err != nil {
		return err
	}
	if exo.Article != "" && !numeric(exo.Article) {
		return domain.SchemaError(field+"/Articulo", "debe ser numérico")
	}
	if exo.Subsection != "" && !numeric(exo.Subsection) {
		return domain.SchemaError(field+"/Inciso", "debe ser numérico")
	}
	if !digits(exo.Institution, 2) {
		return domain.SchemaError(field+"/NombreInstitucion", "código %q inválido", exo.Institution)
	}
	if exo.Institution == pkghacienda.InstitutionOther {
		if err := textLen(field+"/NombreInstitucionOtros", exo.InstitutionOther, 5, maxExoOtherLen); err != nil {
			return err
		}
	}
	if exo.IssuedAt.IsZero() {
		return domain.SchemaError(field+"/FechaEmisionEX", "requerida")
	}
	return amountFits(field+"/MontoExoneracion", exo.ExemptedAmount)
}

func validateSummary(sm entity.Summary) error {
	if len(sm.CurrencyCode) != 3 {
		return domain.SchemaError("CodigoMoneda", "código %q inválido", sm.CurrencyCode)
	}
	if !sm.ExchangeRate.IsPositive() {
		return domain.SchemaError("TipoCambio", "debe ser mayor a cero")
	}
	for name, d := range map[string]decimal.Decimal{
		"TotalVenta": sm.TotalSale, "TotalVentaNeta": sm.TotalNetSale,
		"TotalImpuesto": sm.TotalTax, "TotalComprobante": sm.TotalDocument,
	} {
		if err := amountFits(name, d); err != nil {
			return err
		}
	}
	return nil
}

func validateReference(ref *entity.Reference) error {
	if ref == nil {
		return domain.SchemaError("InformacionReferencia", "obligatoria en nota de crédito")
	}
	if !digits(ref.DocumentType, 2) {
		return domain.SchemaError("InformacionReferencia/TipoDocIR", "código %q inválido", ref.DocumentType)
	}
	if !digits(ref.OriginalKey, domhacienda.KeyLength) {
		return domain.SchemaError("InformacionReferencia/Numero", "debe tener %d dígitos", domhacienda.KeyLength)
	}
	if ref.OriginalIssuedAt.IsZero() {
		return domain.SchemaError("InformacionReferencia/FechaEmisionIR", "requerida")
	}
	if !pkghacienda.ValidReferenceCodes[ref.ReasonCode] {
		return domain.SchemaError("InformacionReferencia/Codigo", "código %q inválido", ref.ReasonCode)
	}
	return textLen("InformacionReferencia/Razon", ref.ReasonText, 1, maxReasonLen)
}

// ── Utilidades ────────────────────────────────────────────────────────────────

// cleanText normaliza a NFC y recorta espacios.
func cleanText(s string) string {
	return strings.TrimSpace(norm.NFC.String(s))
}

func textLen(field, value string, lo, hi int) error {
	if !validXMLText(value) {
		return domain.SchemaError(field, "carácter inválido")
	}
	n := utf8.RuneCountInString(cleanText(value))
	if n < lo || n > hi {
		return domain.SchemaError(field, "longitud %d fuera de [%d, %d]", n, lo, hi)
	}
	return nil
}

// validXMLText rechaza UTF-8 inválido y caracteres fuera del rango Char de XML 1.0.
func validXMLText(s string) bool {
	if !utf8.ValidString(s) {
		return false
	}
	for _, r := range s {
		switch {
		case r == 0x09 || r == 0x0A || r == 0x0D:
		case r >= 0x20 && r <= 0xD7FF:
		case r >= 0xE000 && r <= 0xFFFD:
		case r >= 0x10000 && r <= 0x10FFFF:
		default:
			return false
		}
	}
	return true
}

func amountFits(field string, d decimal.Decimal) error {
	intPart := d.Abs().Truncate(0).String()
	if len(intPart) > maxIntegerDigits {
		return domain.SchemaError(field, "monto %s excede %d dígitos enteros", d.String(), maxIntegerDigits)
	}
	return nil
}

func digits(s string, n int) bool {
	return len(s) == n && numeric(s)
}

func numeric(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

// validPhone devuelve el teléfono solo con dígitos si tiene entre 8 y 20 dígitos.
func validPhone(raw string) (string, bool) {
	var b strings.Builder
	for _, r := range raw {
		switch {
		case r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == ' ' || r == '-' || r == '(' || r == ')':
		default:
			return "", false
		}
	}
	n := b.Len()
	return b.String(), n >= minPhoneDigits && n <= maxPhoneDigits
}

func phoneCountry(code string) string {
	code = strings.TrimPrefix(strings.TrimSpace(code), "+")
	if numeric(code) && len(code) <= 3 {
		return code
	}
	return pkghacienda.CountryCodeCR
}

// validEmail acepta solo una dirección simple (sin nombre) con dominio de al menos dos partes.
func validEmail(raw string) (string, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" || len(raw) > maxEmailLen {
		return "", false
	}
	addr, err := mail.ParseAddress(raw)
	if err != nil || addr.Address != raw || addr.Name != "" {
		return "", false
	}
	at := strings.LastIndex(raw, "@")
	if at < 1 || !strings.Contains(raw[at+1:], ".") || strings.HasSuffix(raw, ".") {
		return "", false
	}
	return raw, true
}
