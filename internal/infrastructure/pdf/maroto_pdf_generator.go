// Package pdf implementa la representación gráfica de los comprobantes electrónicos
// de Hacienda (factura, tiquete y nota de crédito, esquema v4.4).
//
// Layout de la página A4:
//
//	┌─────────────────────────────────────────────────────────────┐
//	│  HEADER: Emisor + cédula    │  Tipo + consecutivo + fecha   │
//	│  ─────────────────────────────────────────────────────────  │
//	│  EMISOR: Ubicación / Tel / Email                            │
//	│  RECEPTOR: Nombre + identificación (si existe)              │
//	│  REFERENCIA: clave del original (notas de crédito)          │
//	│  ─────────────────────────────────────────────────────────  │
//	│  TABLA: Cant | CABYS | Detalle | P.Unit | IVA | Total       │
//	│  ─────────────────────────────────────────────────────────  │
//	│  TOTALES: Gravado / Exento / Exonerado / IVA / TOTAL        │
//	│  EXONERACIÓN: documento, institución, ley (informativo)     │
//	│  ─────────────────────────────────────────────────────────  │
//	│  FOOTER: Clave numérica + QR + estado de Hacienda           │
//	└─────────────────────────────────────────────────────────────┘
package pdf

import (
	"context"
	"fmt"
	"strings"

	maroto "github.com/johnfercher/maroto/v2"
	"github.com/johnfercher/maroto/v2/pkg/components/code"
	"github.com/johnfercher/maroto/v2/pkg/components/col"
	"github.com/johnfercher/maroto/v2/pkg/components/line"
	"github.com/johnfercher/maroto/v2/pkg/components/row"
	"github.com/johnfercher/maroto/v2/pkg/components/text"
	"github.com/johnfercher/maroto/v2/pkg/config"
	"github.com/johnfercher/maroto/v2/pkg/consts/align"
	"github.com/johnfercher/maroto/v2/pkg/consts/fontstyle"
	"github.com/johnfercher/maroto/v2/pkg/consts/pagesize"
	"github.com/johnfercher/maroto/v2/pkg/core"
	"github.com/johnfercher/maroto/v2/pkg/props"
	"github.com/shopspring/decimal"

	appbilling "github.com/jhoicas/Comprobantes-api/internal/application/billing"
	"github.com/jhoicas/Comprobantes-api/internal/domain/entity"
)

var _ appbilling.DocumentPDFGenerator = (*MarotoPDFGenerator)(nil)

// ── Paleta de colores ─────────────────────────────────────────────────────────

var (
	colorPrimary = &props.Color{Red: 0, Green: 43, Blue: 127}
	colorGray    = &props.Color{Red: 100, Green: 100, Blue: 100}
	colorWhite   = &props.Color{Red: 255, Green: 255, Blue: 255}
)

var kindTitles = map[entity.DocumentKind]string{
	entity.KindInvoice:    "FACTURA ELECTRÓNICA",
	entity.KindTicket:     "TIQUETE ELECTRÓNICO",
	entity.KindCreditNote: "NOTA DE CRÉDITO ELECTRÓNICA",
}

// ── Generator ─────────────────────────────────────────────────────────────────

// MarotoPDFGenerator implementa billing.DocumentPDFGenerator usando Maroto v2.
type MarotoPDFGenerator struct{}

// NewMarotoPDFGenerator construye el generador.
func NewMarotoPDFGenerator() *MarotoPDFGenerator { return &MarotoPDFGenerator{} }

// GenerateDocumentPDF genera el PDF a partir de la instantánea guardada en el comprobante.
func (g *MarotoPDFGenerator) GenerateDocumentPDF(ctx context.Context, doc *entity.Document) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if doc == nil {
		return nil, fmt.Errorf("pdf: comprobante nulo")
	}
	title := kindTitles[doc.Kind]
	if title == "" {
		return nil, fmt.Errorf("pdf: tipo de comprobante %q no soportado", doc.Kind)
	}

	cfg := config.NewBuilder().
		WithPageSize(pagesize.A4).
		WithLeftMargin(10).WithRightMargin(10).
		WithTopMargin(10).WithBottomMargin(10).
		WithDefaultFont(&props.Font{Family: "helvetica", Size: 9}).
		WithTitle(title+" "+doc.Sequence, true).
		WithAuthor(doc.Issuer.Name, true).
		Build()

	m := maroto.New(cfg)

	m.AddRows(headerRow(doc, title))
	m.AddRows(line.NewRow(1, props.Line{Color: colorPrimary, Thickness: 0.5}))
	m.AddRows(issuerRow(doc.Issuer))
	if doc.Recipient != nil {
		m.AddRows(recipientRow(*doc.Recipient))
	}
	if doc.Reference != nil {
		m.AddRows(referenceRow(doc.Reference))
	}
	m.AddRows(line.NewRow(1, props.Line{Color: colorPrimary, Thickness: 0.3}))

	m.AddRows(tableHeaderRow())
	m.AddRows(tableDetailRows(doc.Lines)...)

	m.AddRows(line.NewRow(1, props.Line{Color: colorPrimary, Thickness: 0.3}))
	m.AddRows(totalsRow(doc.Summary))
	if exo := firstExoneration(doc.Lines); exo != nil {
		m.AddRows(exonerationRows(exo)...)
	}

	m.AddRows(line.NewRow(3))
	m.AddRows(line.NewRow(1, props.Line{Color: colorGray, Thickness: 0.3}))
	m.AddRows(footerRows(doc)...)

	out, err := m.Generate()
	if err != nil {
		return nil, fmt.Errorf("pdf: generar documento: %w", err)
	}
	return out.GetBytes(), nil
}

// ── Secciones ─────────────────────────────────────────────────────────────────

func headerRow(doc *entity.Document, title string) core.Row {
	return row.New(18).Add(
		col.New(7).Add(
			text.New(doc.Issuer.Name, props.Text{
				Style: fontstyle.Bold, Size: 13, Color: colorPrimary, Top: 1,
			}),
			text.New("Cédula: "+doc.Issuer.TaxID, props.Text{
				Size: 9, Top: 9, Color: colorGray,
			}),
		),
		col.New(5).Add(
			text.New(title, props.Text{
				Style: fontstyle.Bold, Size: 8, Align: align.Right,
				Color: colorPrimary, Top: 1,
			}),
			text.New(doc.Sequence, props.Text{
				Style: fontstyle.Bold, Size: 11, Align: align.Right, Top: 7,
			}),
			text.New("Fecha: "+doc.IssuedAt.Format("02/01/2006 15:04"), props.Text{
				Size: 8, Align: align.Right, Top: 14, Color: colorGray,
			}),
		),
	)
}

func issuerRow(p entity.Party) core.Row {
	return row.New(12).Add(
		col.New(12).Add(
			text.New("EMISOR", props.Text{
				Style: fontstyle.Bold, Size: 8, Color: colorPrimary, Top: 1,
			}),
			text.New(fmt.Sprintf("Actividad: %s   |   %s   |   Tel: %s   |   Email: %s",
				nonEmpty(p.ActivityCode, "—"),
				nonEmpty(locationText(p.Location), "—"),
				nonEmpty(p.Phone, "—"),
				nonEmpty(p.Email, "—"),
			), props.Text{Size: 8, Top: 7, Color: colorGray}),
		),
	)
}

func recipientRow(p entity.Party) core.Row {
	return row.New(14).Add(
		col.New(12).Add(
			text.New("RECEPTOR", props.Text{
				Style: fontstyle.Bold, Size: 8, Color: colorPrimary, Top: 1,
			}),
			text.New(p.Name, props.Text{
				Style: fontstyle.Bold, Size: 10, Top: 6,
			}),
			text.New(fmt.Sprintf("Identificación: %s   |   Email: %s   |   Tel: %s",
				nonEmpty(p.TaxID, "—"),
				nonEmpty(p.Email, "—"),
				nonEmpty(p.Phone, "—"),
			), props.Text{Size: 8, Top: 12, Color: colorGray}),
		),
	)
}

func referenceRow(ref *entity.Reference) core.Row {
	return row.New(12).Add(
		col.New(12).Add(
			text.New("REFERENCIA", props.Text{
				Style: fontstyle.Bold, Size: 8, Color: colorPrimary, Top: 1,
			}),
			text.New(fmt.Sprintf("Clave original: %s   |   Código %s: %s",
				ref.OriginalKey, ref.ReasonCode, ref.ReasonText,
			), props.Text{Size: 7, Top: 6, Color: colorGray}),
		),
	)
}

func tableHeaderRow() core.Row {
	h := func(label string, size int, a align.Type) core.Col {
		return col.New(size).Add(text.New(label, props.Text{
			Style: fontstyle.Bold, Size: 8, Align: a,
			Color: colorWhite, Top: 2, Left: 1, Right: 1,
		}))
	}
	return row.New(8).Add(
		h("Cant.", 1, align.Center),
		h("CABYS", 2, align.Left),
		h("Detalle", 4, align.Left),
		h("Precio Unit.", 2, align.Right),
		h("IVA", 1, align.Center),
		h("Total", 2, align.Right),
	).WithStyle(&props.Cell{BackgroundColor: colorPrimary})
}

func tableDetailRows(lines []entity.LineItem) []core.Row {
	result := make([]core.Row, 0, len(lines))
	for _, l := range lines {
		rate := "Exento"
		if l.Tax != nil {
			rate = l.Tax.RatePercent.String() + "%"
			if l.Exonerated() {
				rate = "Exon."
			}
		}
		result = append(result, row.New(7).Add(
			col.New(1).Add(text.New(l.Quantity.String(), props.Text{Size: 8, Align: align.Center, Top: 1})),
			col.New(2).Add(text.New(l.CatalogCode, props.Text{Size: 7, Align: align.Left, Top: 1, Left: 1})),
			col.New(4).Add(text.New(l.Description, props.Text{Size: 8, Align: align.Left, Top: 1, Left: 1})),
			col.New(2).Add(text.New(formatMoney(l.UnitPrice), props.Text{Size: 8, Align: align.Right, Top: 1, Right: 1})),
			col.New(1).Add(text.New(rate, props.Text{Size: 8, Align: align.Center, Top: 1})),
			col.New(2).Add(text.New(formatMoney(l.LineTotal), props.Text{Size: 8, Align: align.Right, Top: 1, Right: 1})),
		))
	}
	return result
}

func totalsRow(s entity.Summary) core.Row {
	label := func(v string) core.Component {
		return text.New(v, props.Text{Style: fontstyle.Bold, Size: 9, Align: align.Right, Right: 2})
	}
	value := func(v string) core.Component {
		return text.New(v, props.Text{Size: 9, Align: align.Right, Right: 1})
	}
	currency := nonEmpty(s.CurrencyCode, "CRC")

	return row.New(32).Add(
		col.New(4),
		col.New(4).Add(
			label("Total gravado:"),
			label("Total exento:"),
			label("Total exonerado:"),
			label("IVA:"),
			text.New("TOTAL "+currency+":", props.Text{
				Style: fontstyle.Bold, Size: 10, Align: align.Right, Color: colorPrimary, Right: 2,
			}),
		),
		col.New(4).Add(
			value(formatMoney(s.TotalTaxed)),
			value(formatMoney(s.TotalExempt)),
			value(formatMoney(s.TotalExonerated)),
			value(formatMoney(s.TotalTax)),
			text.New(formatMoney(s.TotalDocument), props.Text{
				Style: fontstyle.Bold, Size: 10, Align: align.Right, Color: colorPrimary, Right: 1,
			}),
		),
	)
}

// exonerationRows muestra los datos informativos que no viajan en el XML (ley, porcentaje de compra).
func exonerationRows(exo *entity.Exoneration) []core.Row {
	detail := fmt.Sprintf("Documento %s %s   |   Institución %s   |   Emitido %s",
		exo.DocumentType, exo.DocumentNumber, exo.Institution, exo.IssuedAt.Format("02/01/2006"))
	extra := []string{}
	if exo.LawName != "" {
		extra = append(extra, "Ley: "+exo.LawName)
	}
	if exo.Article != "" {
		extra = append(extra, "Artículo "+exo.Article)
	}
	if !exo.PurchasePercent.IsZero() {
		extra = append(extra, "Porcentaje de compra: "+exo.PurchasePercent.String()+"%")
	}
	rows := []core.Row{
		row.New(5).Add(col.New(12).Add(text.New("EXONERACIÓN", props.Text{
			Style: fontstyle.Bold, Size: 8, Color: colorPrimary, Top: 1,
		}))),
		row.New(4).Add(col.New(12).Add(text.New(detail, props.Text{Size: 7, Color: colorGray}))),
	}
	if len(extra) > 0 {
		rows = append(rows, row.New(4).Add(col.New(12).Add(
			text.New(strings.Join(extra, "   |   "), props.Text{Size: 7, Color: colorGray}),
		)))
	}
	return rows
}

func footerRows(doc *entity.Document) []core.Row {
	rows := []core.Row{
		row.New(6).Add(col.New(12).Add(
			text.New("CLAVE NUMÉRICA", props.Text{Style: fontstyle.Bold, Size: 8, Color: colorPrimary, Top: 1}),
		)),
		row.New(5).Add(col.New(12).Add(
			text.New(groupDigits(doc.Key, 5), props.Text{Size: 8, Color: colorGray, Top: 0.5}),
		)),
		row.New(3),
	}
	rows = append(rows, row.New(40).Add(
		col.New(3).Add(code.NewQr(doc.Key, props.Rect{Percent: 95, Center: true})),
		col.New(9).Add(
			text.New("Estado en Hacienda: "+stateText(doc.SubmissionState), props.Text{
				Size: 8, Top: 4, Left: 3, Color: colorGray,
			}),
			text.New("Emitida conforme a lo establecido en la resolución de Factura Electrónica\n"+
				"N° MH-DGT-RES-0027-2024 de la Dirección General de Tributación.", props.Text{
				Size: 7, Top: 14, Left: 3, Color: colorGray,
			}),
		),
	))
	return rows
}

// ── helpers ───────────────────────────────────────────────────────────────────

func firstExoneration(lines []entity.LineItem) *entity.Exoneration {
	for _, l := range lines {
		if l.Exonerated() {
			return l.Tax.Exoneration
		}
	}
	return nil
}

func stateText(s entity.SubmissionState) string {
	switch s {
	case entity.StateAccepted:
		return "Aceptado"
	case entity.StateRejected:
		return "Rechazado"
	case "":
		return "Pendiente"
	}
	return "En proceso"
}

func locationText(l entity.Location) string {
	parts := make([]string, 0, 2)
	if l.District != "" {
		parts = append(parts, "Distrito "+l.District)
	}
	if l.Address != "" {
		parts = append(parts, l.Address)
	}
	return strings.Join(parts, ", ")
}

func nonEmpty(s, fallback string) string {
	if s != "" {
		return s
	}
	return fallback
}

// formatMoney formatea con separador de miles y dos decimales.
// Ej: 1234567.5 → "1 234 567,50"
func formatMoney(d decimal.Decimal) string {
	s := d.Abs().StringFixed(2)
	intPart, frac := s[:len(s)-3], s[len(s)-2:]
	n := len(intPart)
	buf := make([]byte, 0, n+n/3+3)
	for i, c := range []byte(intPart) {
		if i > 0 && (n-i)%3 == 0 {
			buf = append(buf, ' ')
		}
		buf = append(buf, c)
	}
	out := string(buf) + "," + frac
	if d.IsNegative() {
		return "-" + out
	}
	return out
}

// groupDigits separa s en grupos de n caracteres para facilitar la lectura.
func groupDigits(s string, n int) string {
	var parts []string
	for len(s) > n {
		parts = append(parts, s[:n])
		s = s[n:]
	}
	if s != "" {
		parts = append(parts, s)
	}
	return strings.Join(parts, " ")
}
