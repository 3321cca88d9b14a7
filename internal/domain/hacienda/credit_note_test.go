package hacienda_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/Comprobantes-api/internal/domain"
	"github.com/jhoicas/Comprobantes-api/internal/domain/entity"
	"github.com/jhoicas/Comprobantes-api/internal/domain/hacienda"
)

// ─── Helpers ─────────────────────────────────────────────────────────────────

type fakeParser struct {
	doc *entity.Document
	err error
}

func (f fakeParser) Parse([]byte) (*entity.Document, error) { return f.doc, f.err }

func threeLineInvoice(t *testing.T, exo *entity.Exoneration) *entity.Document {
	t.Helper()
	var lines []entity.LineItem
	for i, price := range []string{"1000", "2500", "300"} {
		raw := rawLine13("1", price, "0")
		raw.LineNumber = i + 1
		raw.Description = "Artículo " + price
		l, err := hacienda.ComputeLine(raw, exo)
		require.NoError(t, err)
		lines = append(lines, l)
	}
	return &entity.Document{
		ID:            "inv-1",
		Kind:          entity.KindInvoice,
		Key:           testKey,
		Sequence:      testSequence,
		IssuedAt:      time.Date(2025, 3, 7, 9, 0, 0, 0, hacienda.CostaRica),
		Issuer:        entity.Party{Name: "Emisor S.A.", TaxIDType: "02", TaxID: "3101123456"},
		Recipient:     &entity.Party{Name: "Cliente", TaxIDType: "01", TaxID: "114550123"},
		SaleCondition: "01",
		PaymentMethod: "01",
		Lines:         lines,
		Summary:       hacienda.ComputeSummary(lines, hacienda.SummaryOptions{}),
	}
}

func creditReq(original *entity.Document) hacienda.CreditNoteRequest {
	return hacienda.CreditNoteRequest{
		Original:   original,
		ReasonCode: "01",
		ReasonText: "Anula factura",
		IssuedAt:   time.Date(2025, 3, 10, 9, 0, 0, 0, hacienda.CostaRica),
	}
}

// ─── Casos ───────────────────────────────────────────────────────────────────

// Escenario 3: nota parcial que selecciona la línea 2 de una factura de 3 líneas.
func TestBuildFromOriginal_ParcialRenumera(t *testing.T) {
	original := threeLineInvoice(t, nil)
	req := creditReq(original)
	req.AffectedLines = []int{2}

	note, err := hacienda.NewCreditNoteResolver(nil).BuildFromOriginal(req)
	require.NoError(t, err)
	require.Len(t, note.Lines, 1, "solo la línea elegida")

	got, want := note.Lines[0], original.Lines[1]
	assert.Equal(t, 1, got.LineNumber, "renumerada a 1")
	assert.Equal(t, want.Description, got.Description)
	assert.Equal(t, want.CatalogCode, got.CatalogCode)
	assert.True(t, want.TaxableBase.Equal(got.TaxableBase))
	assert.True(t, want.LineTotal.Equal(got.LineTotal))
	assert.True(t, dec("2825").Equal(note.Summary.TotalDocument), "2500 + 325 de IVA")
	assert.Equal(t, 2, original.Lines[1].LineNumber, "el original no se modifica")
}

func TestBuildFromOriginal_TotalCopiaTodo(t *testing.T) {
	original := threeLineInvoice(t, nil)
	req := creditReq(original)
	req.FullReversal = true

	note, err := hacienda.NewCreditNoteResolver(nil).BuildFromOriginal(req)
	require.NoError(t, err)
	require.Len(t, note.Lines, len(original.Lines))
	for i := range original.Lines {
		assert.True(t, original.Lines[i].TaxableBase.Equal(note.Lines[i].TaxableBase), "línea %d", i+1)
	}
	assert.Equal(t, entity.KindCreditNote, note.Kind)
	require.NotNil(t, note.Reference)
	assert.Equal(t, "01", note.Reference.DocumentType)
	assert.Equal(t, original.Key, note.Reference.OriginalKey)
	assert.True(t, original.IssuedAt.Equal(note.Reference.OriginalIssuedAt))
	assert.Empty(t, note.Key, "la clave se asigna al emitir")
}

func TestBuildFromOriginal_ExoneracionSigueAlOriginal(t *testing.T) {
	original := threeLineInvoice(t, testExoneration())
	req := creditReq(original)
	req.FullReversal = true

	note, err := hacienda.NewCreditNoteResolver(nil).BuildFromOriginal(req)
	require.NoError(t, err)
	assert.True(t, note.HasExoneration())
	assert.True(t, note.Summary.TotalTax.IsZero())
	assert.True(t, dec("3800").Equal(note.Summary.TotalExonerated))
	assert.Equal(t, original.Lines[0].Tax.Exoneration.DocumentNumber, note.Lines[0].Tax.Exoneration.DocumentNumber)

	original2 := threeLineInvoice(t, nil)
	req2 := creditReq(original2)
	req2.FullReversal = true
	note2, err := hacienda.NewCreditNoteResolver(nil).BuildFromOriginal(req2)
	require.NoError(t, err)
	assert.False(t, note2.HasExoneration(), "sin exoneración en el original no hay exoneración en la nota")
}

func TestBuildFromOriginal_UsaParserConXML(t *testing.T) {
	original := threeLineInvoice(t, nil)
	req := creditReq(nil)
	req.OriginalXML = []byte("<FacturaElectronica/>")
	req.FullReversal = true

	note, err := hacienda.NewCreditNoteResolver(fakeParser{doc: original}).BuildFromOriginal(req)
	require.NoError(t, err)
	assert.Len(t, note.Lines, 3)
}

func TestBuildFromOriginal_Validaciones(t *testing.T) {
	resolver := hacienda.NewCreditNoteResolver(nil)
	original := threeLineInvoice(t, nil)

	req := creditReq(original)
	_, err := resolver.BuildFromOriginal(req)
	assert.ErrorIs(t, err, domain.ErrValidation, "sin anulación total ni líneas")

	req = creditReq(original)
	req.AffectedLines = []int{7}
	_, err = resolver.BuildFromOriginal(req)
	assert.ErrorIs(t, err, domain.ErrValidation, "línea inexistente")

	req = creditReq(original)
	req.FullReversal = true
	req.ReasonText = string(make([]rune, 181))
	_, err = resolver.BuildFromOriginal(req)
	assert.ErrorIs(t, err, domain.ErrValidation, "razón de más de 180 caracteres")

	req = creditReq(original)
	req.FullReversal = true
	req.ReasonCode = "77"
	_, err = resolver.BuildFromOriginal(req)
	assert.ErrorIs(t, err, domain.ErrValidation, "código de referencia inválido")
}
