package hacienda

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/beevik/etree"
	"github.com/shopspring/decimal"

	"github.com/jhoicas/Comprobantes-api/internal/domain"
	"github.com/jhoicas/Comprobantes-api/internal/domain/entity"
	domhacienda "github.com/jhoicas/Comprobantes-api/internal/domain/hacienda"
)

// XMLParser lee comprobantes v4.4 (firmados o no) hacia el mismo modelo que usa el serializador.
type XMLParser struct{}

// NewXMLParser crea el lector.
func NewXMLParser() *XMLParser {
	return &XMLParser{}
}

var _ domhacienda.DocumentParser = (*XMLParser)(nil)

// Parse reconstruye el comprobante a partir de su XML. La ubicación se devuelve con códigos absolutos.
func (p *XMLParser) Parse(xmlBytes []byte) (*entity.Document, error) {
	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(xmlBytes); err != nil {
		return nil, fmt.Errorf("%w: XML original ilegible: %v", domain.ErrValidation, err)
	}
	root := doc.Root()
	if root == nil {
		return nil, fmt.Errorf("%w: XML original sin elemento raíz", domain.ErrValidation)
	}
	kind, ok := kindFromRoot(root.Tag)
	if !ok {
		return nil, fmt.Errorf("%w: tipo de comprobante %q no soportado", domain.ErrValidation, root.Tag)
	}

	out := &entity.Document{
		Kind:          kind,
		Key:           text(root, "Clave"),
		Sequence:      text(root, "NumeroConsecutivo"),
		SaleCondition: text(root, "CondicionVenta"),
	}
	issuedAt, err := parseDateTime(text(root, "FechaEmision"))
	if err != nil {
		return nil, fmt.Errorf("%w: FechaEmision: %v", domain.ErrValidation, err)
	}
	out.IssuedAt = issuedAt
	if n, err := strconv.Atoi(text(root, "PlazoCredito")); err == nil {
		out.CreditTermDays = n
	}

	emisor := root.SelectElement("Emisor")
	if emisor == nil {
		return nil, fmt.Errorf("%w: XML original sin Emisor", domain.ErrValidation)
	}
	out.Issuer = parseParty(emisor)
	out.Issuer.ActivityCode = text(root, "CodigoActividadEmisor")
	if receptor := root.SelectElement("Receptor"); receptor != nil {
		r := parseParty(receptor)
		r.ActivityCode = text(root, "CodigoActividadReceptor")
		out.Recipient = &r
	}

	if detalle := root.SelectElement("DetalleServicio"); detalle != nil {
		for _, el := range detalle.SelectElements("LineaDetalle") {
			line, err := parseLine(el)
			if err != nil {
				return nil, err
			}
			out.Lines = append(out.Lines, line)
		}
	}
	if len(out.Lines) == 0 {
		return nil, fmt.Errorf("%w: XML original sin líneas de detalle", domain.ErrValidation)
	}

	if resumen := root.SelectElement("ResumenFactura"); resumen != nil {
		summary, err := parseSummary(resumen)
		if err != nil {
			return nil, err
		}
		out.Summary = summary
		out.PaymentMethod = text(resumen, "MedioPago/TipoMedioPago")
	}

	if ref := root.SelectElement("InformacionReferencia"); ref != nil {
		refAt, _ := parseDateTime(text(ref, "FechaEmisionIR"))
		out.Reference = &entity.Reference{
			DocumentType:     text(ref, "TipoDocIR"),
			OriginalKey:      text(ref, "Numero"),
			OriginalIssuedAt: refAt,
			ReasonCode:       text(ref, "Codigo"),
			ReasonText:       text(ref, "Razon"),
		}
	}
	return out, nil
}

func parseParty(el *etree.Element) entity.Party {
	p := entity.Party{
		Name:           text(el, "Nombre"),
		TaxIDType:      text(el, "Identificacion/Tipo"),
		TaxID:          text(el, "Identificacion/Numero"),
		CommercialName: text(el, "NombreComercial"),
		PhoneCountry:   text(el, "Telefono/CodigoPais"),
		Phone:          text(el, "Telefono/NumTelefono"),
		Email:          text(el, "CorreoElectronico"),
	}
	if ub := el.SelectElement("Ubicacion"); ub != nil {
		prov, canton, district := domhacienda.ToAbsolute(text(ub, "Provincia"), text(ub, "Canton"), text(ub, "Distrito"))
		p.Location = entity.Location{Province: prov, Canton: canton, District: district, Address: text(ub, "OtrasSenas")}
	}
	return p
}

func parseLine(el *etree.Element) (entity.LineItem, error) {
	n, err := strconv.Atoi(text(el, "NumeroLinea"))
	if err != nil {
		return entity.LineItem{}, fmt.Errorf("%w: NumeroLinea inválido: %v", domain.ErrValidation, err)
	}
	r := &amountReader{}
	line := entity.LineItem{
		LineNumber:  n,
		CatalogCode: text(el, "CodigoCABYS"),
		Quantity:    r.get(el, "Cantidad"),
		Unit:        text(el, "UnidadMedida"),
		Description: text(el, "Detalle"),
		UnitPrice:   r.get(el, "PrecioUnitario"),
		GrossAmount: r.get(el, "MontoTotal"),
		TaxableBase: r.get(el, "BaseImponible"),
		NetTax:      r.get(el, "ImpuestoNeto"),
		LineTotal:   r.get(el, "MontoTotalLinea"),
	}
	if line.TaxableBase.IsZero() {
		line.TaxableBase = r.get(el, "SubTotal")
	}
	// El Monto del impuesto es hijo directo de <Impuesto>; MontoExoneracion vive dentro de <Exoneracion>.
	if imp := el.SelectElement("Impuesto"); imp != nil {
		tax := &entity.Tax{
			Code:        text(imp, "Codigo"),
			RateCode:    text(imp, "CodigoTarifaIVA"),
			RatePercent: r.get(imp, "Tarifa"),
			Amount:      r.get(imp, "Monto"),
		}
		if exo := imp.SelectElement("Exoneracion"); exo != nil {
			e, err := parseExoneration(exo)
			if err != nil {
				return entity.LineItem{}, err
			}
			tax.Exoneration = e
		}
		line.Tax = tax
	}
	if r.err != nil {
		return entity.LineItem{}, r.err
	}
	return line, nil
}

func parseExoneration(el *etree.Element) (*entity.Exoneration, error) {
	issuedAt, err := parseDateTime(text(el, "FechaEmisionEX"))
	if err != nil {
		return nil, fmt.Errorf("%w: FechaEmisionEX: %v", domain.ErrValidation, err)
	}
	r := &amountReader{}
	exo := &entity.Exoneration{
		DocumentType:      text(el, "TipoDocumentoEX1"),
		DocumentTypeOther: text(el, "TipoDocumentoOTRO"),
		DocumentNumber:    text(el, "NumeroDocumento"),
		LawName:           text(el, "NombreLey"),
		Article:           text(el, "Articulo"),
		Subsection:        text(el, "Inciso"),
		PurchasePercent:   r.get(el, "PorcentajeCompra"),
		Institution:       text(el, "NombreInstitucion"),
		InstitutionOther:  text(el, "NombreInstitucionOtros"),
		IssuedAt:          issuedAt,
		ExemptedRate:      r.get(el, "TarifaExonerada"),
		ExemptedAmount:    r.get(el, "MontoExoneracion"),
	}
	if r.err != nil {
		return nil, r.err
	}
	return exo, nil
}

func parseSummary(el *etree.Element) (entity.Summary, error) {
	r := &amountReader{}
	s := entity.Summary{
		CurrencyCode:         text(el, "CodigoTipoMoneda/CodigoMoneda"),
		ExchangeRate:         r.get(el, "CodigoTipoMoneda/TipoCambio"),
		TotalServTaxed:       r.get(el, "TotalServGravados"),
		TotalServExempt:      r.get(el, "TotalServExentos"),
		TotalServExonerated:  r.get(el, "TotalServExonerado"),
		TotalGoodsTaxed:      r.get(el, "TotalMercanciasGravadas"),
		TotalGoodsExempt:     r.get(el, "TotalMercanciasExentas"),
		TotalGoodsExonerated: r.get(el, "TotalMercanciasExoneradas"),
		TotalTaxed:           r.get(el, "TotalGravado"),
		TotalExempt:          r.get(el, "TotalExento"),
		TotalExonerated:      r.get(el, "TotalExonerado"),
		TotalSale:            r.get(el, "TotalVenta"),
		TotalNetSale:         r.get(el, "TotalVentaNeta"),
		TotalTax:             r.get(el, "TotalImpuesto"),
		TotalDocument:        r.get(el, "TotalComprobante"),
	}
	for _, b := range el.SelectElements("TotalDesgloseImpuesto") {
		s.TaxBreakdown = append(s.TaxBreakdown, entity.TaxBreakdown{
			Code:     text(b, "Codigo"),
			RateCode: text(b, "CodigoTarifaIVA"),
			Amount:   r.get(b, "TotalMontoImpuesto"),
		})
	}
	return s, r.err
}

// ResponseMessage respuesta de Hacienda (MensajeHacienda) decodificada.
type ResponseMessage struct {
	Key     string
	Message string // 1 aceptado, 3 rechazado
	Detail  string // DetalleMensaje
}

// ParseResponseMessage lee el XML MensajeHacienda devuelto en "respuesta-xml".
func ParseResponseMessage(xmlBytes []byte) (*ResponseMessage, error) {
	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(xmlBytes); err != nil {
		return nil, fmt.Errorf("respuesta-xml: %w", err)
	}
	root := doc.Root()
	if root == nil {
		return nil, fmt.Errorf("respuesta-xml: sin elemento raíz")
	}
	return &ResponseMessage{
		Key:     text(root, "Clave"),
		Message: text(root, "Mensaje"),
		Detail:  text(root, "DetalleMensaje"),
	}, nil
}

// text devuelve el texto (sin espacios extremos) del primer elemento en path, o "".
func text(el *etree.Element, path string) string {
	found := el.FindElement(path)
	if found == nil {
		return ""
	}
	return strings.TrimSpace(found.Text())
}

// amount lee un monto; un elemento ausente o vacío vale cero.
func amount(el *etree.Element, path string) (decimal.Decimal, error) {
	s := text(el, path)
	if s == "" {
		return decimal.Zero, nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %s inválido: %q", domain.ErrValidation, path, s)
	}
	return d, nil
}

// amountReader acumula el primer monto ilegible de un bloque.
type amountReader struct {
	err error
}

func (r *amountReader) get(el *etree.Element, path string) decimal.Decimal {
	d, err := amount(el, path)
	if err != nil && r.err == nil {
		r.err = err
	}
	return d
}

func parseDateTime(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, fmt.Errorf("fecha vacía")
	}
	return time.Parse(time.RFC3339, s)
}
