package billing_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/Comprobantes-api/internal/application/billing"
	"github.com/jhoicas/Comprobantes-api/internal/application/dto"
	"github.com/jhoicas/Comprobantes-api/internal/domain"
	"github.com/jhoicas/Comprobantes-api/internal/domain/entity"
	domhacienda "github.com/jhoicas/Comprobantes-api/internal/domain/hacienda"
	"github.com/jhoicas/Comprobantes-api/internal/infrastructure/hacienda"
	"github.com/jhoicas/Comprobantes-api/pkg/logger"
)

type recordingDispatcher struct {
	mu  sync.Mutex
	ids []string
}

func (d *recordingDispatcher) ProcessAsync(documentID string) *billing.Submission {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.ids = append(d.ids, documentID)
	return nil
}

func (d *recordingDispatcher) dispatched() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]string(nil), d.ids...)
}

type useCaseHarness struct {
	uc         *billing.DocumentUseCase
	docs       *memoryDocuments
	counters   *memoryCounters
	customers  *memoryCustomers
	dispatcher *recordingDispatcher
}

func testCompany() *entity.Company {
	return &entity.Company{
		ID:           "empresa-1",
		Name:         "Servicios Técnicos S.A.",
		TaxIDType:    "02",
		TaxID:        "3101123456",
		ActivityCode: "620100",
		Location:     entity.Location{Province: "1", Canton: "101", District: "10108", Address: "Barrio Escalante, 200 m norte"},
		Email:        "facturas@tecnicos.cr",
		Status:       "active",
	}
}

func testCustomer(exo *entity.Exoneration) *entity.Customer {
	return &entity.Customer{
		ID:          "cliente-1",
		CompanyID:   "empresa-1",
		Name:        "Juan Pérez",
		TaxIDType:   "01",
		TaxID:       "114550123",
		Location:    entity.Location{Province: "3", Canton: "302", District: "30205", Address: "Tres Ríos centro"},
		Email:       "juan@correo.com",
		Exoneration: exo,
	}
}

func customerExoneration() *entity.Exoneration {
	return &entity.Exoneration{
		DocumentType:   "03",
		DocumentNumber: "AL-00020402-24",
		Article:        "5",
		Institution:    "01",
		IssuedAt:       time.Date(2024, 1, 15, 8, 0, 0, 0, domhacienda.CostaRica),
	}
}

func newUseCaseHarness(t *testing.T, customers ...*entity.Customer) *useCaseHarness {
	t.Helper()
	h := &useCaseHarness{
		docs:       newMemoryDocuments(),
		counters:   newMemoryCounters(),
		customers:  newMemoryCustomers(customers...),
		dispatcher: &recordingDispatcher{},
	}
	h.uc = billing.NewDocumentUseCase(
		&memoryTx{counters: h.counters, documents: h.docs},
		h.docs,
		newMemoryCompanies(testCompany()),
		h.customers,
		billing.NewConsecutiveAllocator(billing.AllocatorConfig{MaxAttempts: 2}, nil, logger.Nop()),
		domhacienda.NewKeyGenerator(domhacienda.FixedSecurityCode("12345678")),
		hacienda.NewXMLSerializer(hacienda.SerializerConfig{}),
		domhacienda.NewCreditNoteResolver(hacienda.NewXMLParser()),
		h.dispatcher,
		newFakeClock(),
		billing.IssueConfig{},
		logger.Nop(),
	)
	return h
}

func rate13() *decimal.Decimal {
	r := decimal.NewFromInt(13)
	return &r
}

func line(price string, unit string) dto.DocumentLineRequest {
	return dto.DocumentLineRequest{
		CatalogCode: "4321000000100",
		Quantity:    decimal.NewFromInt(2),
		Unit:        unit,
		Description: "Servicio de soporte",
		UnitPrice:   decimal.RequireFromString(price),
		TaxRate:     rate13(),
	}
}

func TestIssueInvoice_GeneraClaveXMLYDisparaEnvio(t *testing.T) {
	h := newUseCaseHarness(t, testCustomer(nil))

	res, err := h.uc.IssueInvoice(context.Background(), "empresa-1", dto.IssueDocumentRequest{
		CustomerID: "cliente-1",
		Lines:      []dto.DocumentLineRequest{line("1000", "Sp")},
	})
	require.NoError(t, err)
	assert.Equal(t, "00100001010000000001", res.Sequence)
	assert.Equal(t, "50607032500310112345600100001010000000001112345678", res.Key)
	assert.True(t, res.TotalTax.Equal(decimal.NewFromInt(260)))
	assert.True(t, res.TotalDocument.Equal(decimal.NewFromInt(2260)))
	assert.Equal(t, string(entity.StateBuilt), res.SubmissionState)
	assert.Equal(t, []string{res.ID}, h.dispatcher.dispatched())

	stored, err := h.docs.GetByID(context.Background(), res.ID)
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Contains(t, stored.XMLUnsigned, "<Clave>"+res.Key+"</Clave>")
	assert.Equal(t, "Juan Pérez", stored.Recipient.Name, "instantánea del receptor")
}

func TestIssueInvoice_AplicaExoneracionDelCliente(t *testing.T) {
	h := newUseCaseHarness(t, testCustomer(customerExoneration()))

	res, err := h.uc.IssueInvoice(context.Background(), "empresa-1", dto.IssueDocumentRequest{
		CustomerID: "cliente-1",
		Lines:      []dto.DocumentLineRequest{line("1000", "Sp")},
	})
	require.NoError(t, err)
	require.Len(t, res.Lines, 1)
	assert.True(t, res.Lines[0].Exonerated)
	assert.True(t, res.Lines[0].TaxAmount.Equal(decimal.NewFromInt(260)), "monto teórico")
	assert.True(t, res.Lines[0].NetTax.IsZero())
	assert.True(t, res.TotalTaxed.IsZero())
	assert.True(t, res.TotalExonerated.Equal(decimal.NewFromInt(2000)))
	assert.True(t, res.TotalDocument.Equal(decimal.NewFromInt(2000)))
}

func TestIssueTicket_SinCliente(t *testing.T) {
	h := newUseCaseHarness(t)
	res, err := h.uc.IssueTicket(context.Background(), "empresa-1", dto.IssueDocumentRequest{
		Lines: []dto.DocumentLineRequest{line("1000", "Unid")},
	})
	require.NoError(t, err)
	assert.Equal(t, "00100001040000000001", res.Sequence)
	assert.Empty(t, res.RecipientName)
}

func TestIssueInvoice_Validaciones(t *testing.T) {
	h := newUseCaseHarness(t, testCustomer(nil), &entity.Customer{ID: "ajeno", CompanyID: "empresa-2", Name: "Otro"})

	_, err := h.uc.IssueInvoice(context.Background(), "empresa-1", dto.IssueDocumentRequest{Lines: []dto.DocumentLineRequest{line("1000", "Sp")}})
	assert.ErrorIs(t, err, domain.ErrValidation, "factura sin cliente")

	_, err = h.uc.IssueInvoice(context.Background(), "empresa-1", dto.IssueDocumentRequest{CustomerID: "cliente-1"})
	assert.ErrorIs(t, err, domain.ErrValidation, "sin líneas")

	_, err = h.uc.IssueInvoice(context.Background(), "empresa-1", dto.IssueDocumentRequest{CustomerID: "ajeno", Lines: []dto.DocumentLineRequest{line("1000", "Sp")}})
	assert.ErrorIs(t, err, domain.ErrForbidden)

	_, err = h.uc.IssueInvoice(context.Background(), "empresa-9", dto.IssueDocumentRequest{CustomerID: "cliente-1", Lines: []dto.DocumentLineRequest{line("1000", "Sp")}})
	assert.ErrorIs(t, err, domain.ErrNotFound)

	assert.Empty(t, h.dispatcher.dispatched())
}

func TestIssueInvoice_ErrorDeEsquemaNoGuardaNiEnvia(t *testing.T) {
	h := newUseCaseHarness(t, testCustomer(nil))
	bad := line("1000", "Sp")
	bad.CatalogCode = "123"

	_, err := h.uc.IssueInvoice(context.Background(), "empresa-1", dto.IssueDocumentRequest{
		CustomerID: "cliente-1",
		Lines:      []dto.DocumentLineRequest{bad},
	})
	require.ErrorIs(t, err, domain.ErrSchema)
	docs, _ := h.docs.ListByCompany(context.Background(), "empresa-1", 10, 0)
	assert.Empty(t, docs)
	assert.Empty(t, h.dispatcher.dispatched())
}

func TestIssueInvoice_FallaDeAsignacionNoGeneraClave(t *testing.T) {
	h := newUseCaseHarness(t, testCustomer(nil))
	h.counters.contentions = -1

	_, err := h.uc.IssueInvoice(context.Background(), "empresa-1", dto.IssueDocumentRequest{
		CustomerID: "cliente-1",
		Lines:      []dto.DocumentLineRequest{line("1000", "Sp")},
	})
	require.ErrorIs(t, err, domain.ErrAllocation)
	docs, _ := h.docs.ListByCompany(context.Background(), "empresa-1", 10, 0)
	assert.Empty(t, docs)
}

func issueThreeLines(t *testing.T, h *useCaseHarness) *dto.DocumentResponse {
	t.Helper()
	res, err := h.uc.IssueInvoice(context.Background(), "empresa-1", dto.IssueDocumentRequest{
		CustomerID: "cliente-1",
		Lines: []dto.DocumentLineRequest{
			line("1000", "Sp"),
			line("2500", "Unid"),
			line("300", "Unid"),
		},
	})
	require.NoError(t, err)
	return res
}

func TestCreateCreditNote_ExoneracionSigueAlOriginal(t *testing.T) {
	h := newUseCaseHarness(t, testCustomer(customerExoneration()))
	original := issueThreeLines(t, h)

	// El cliente pierde la exoneración después de la factura.
	require.NoError(t, h.customers.Update(context.Background(), testCustomer(nil)))

	note, err := h.uc.CreateCreditNote(context.Background(), "empresa-1", original.ID, dto.CreateCreditNoteRequest{
		FullReversal: true,
		ReasonCode:   "01",
		ReasonText:   "Anulación total de la factura",
	})
	require.NoError(t, err)
	assert.Equal(t, string(entity.KindCreditNote), note.Kind)
	assert.Equal(t, "00100001030000000001", note.Sequence)
	assert.Equal(t, original.Key, note.ReferenceKey)
	require.Len(t, note.Lines, len(original.Lines))
	for i, l := range note.Lines {
		assert.True(t, l.Exonerated, "línea %d exonerada como en el original", i+1)
		assert.True(t, l.TaxableBase.Equal(original.Lines[i].TaxableBase))
	}
	assert.True(t, note.TotalExonerated.Equal(original.TotalExonerated))

	stored, _ := h.docs.GetByID(context.Background(), note.ID)
	require.NotNil(t, stored)
	assert.Equal(t, original.ID, stored.OriginalID)
	assert.Equal(t, "empresa-1", stored.CompanyID)
	assert.Contains(t, stored.XMLUnsigned, "<InformacionReferencia>")
}

func TestCreateCreditNote_ParcialRenumera(t *testing.T) {
	h := newUseCaseHarness(t, testCustomer(nil))
	original := issueThreeLines(t, h)

	note, err := h.uc.CreateCreditNote(context.Background(), "empresa-1", original.ID, dto.CreateCreditNoteRequest{
		AffectedLines: []int{2},
		ReasonCode:    "03",
		ReasonText:    "Devolución de mercancía",
	})
	require.NoError(t, err)
	require.Len(t, note.Lines, 1)
	assert.Equal(t, 1, note.Lines[0].LineNumber)
	assert.True(t, note.Lines[0].UnitPrice.Equal(decimal.NewFromInt(2500)))
	assert.False(t, note.Lines[0].Exonerated)
}

func TestCreateCreditNote_Errores(t *testing.T) {
	h := newUseCaseHarness(t, testCustomer(nil))
	original := issueThreeLines(t, h)

	_, err := h.uc.CreateCreditNote(context.Background(), "empresa-1", original.ID, dto.CreateCreditNoteRequest{ReasonCode: "01", ReasonText: "x"})
	assert.ErrorIs(t, err, domain.ErrValidation, "ni total ni líneas")

	_, err = h.uc.CreateCreditNote(context.Background(), "empresa-2", original.ID, dto.CreateCreditNoteRequest{FullReversal: true, ReasonCode: "01", ReasonText: "x"})
	assert.ErrorIs(t, err, domain.ErrForbidden)

	_, err = h.uc.CreateCreditNote(context.Background(), "empresa-1", "no-existe", dto.CreateCreditNoteRequest{FullReversal: true, ReasonCode: "01", ReasonText: "x"})
	assert.ErrorIs(t, err, domain.ErrNotFound)

	stored, _ := h.docs.GetByID(context.Background(), original.ID)
	stored.SubmissionState = entity.StateRejected
	require.NoError(t, h.docs.UpdateSubmission(context.Background(), stored))
	_, err = h.uc.CreateCreditNote(context.Background(), "empresa-1", original.ID, dto.CreateCreditNoteRequest{FullReversal: true, ReasonCode: "01", ReasonText: "x"})
	assert.ErrorIs(t, err, domain.ErrConflict)
}

func TestGetXML_DevuelveFirmadoSiExiste(t *testing.T) {
	h := newUseCaseHarness(t, testCustomer(nil))
	res := issueThreeLines(t, h)

	xmlBytes, name, err := h.uc.GetXML(context.Background(), "empresa-1", res.ID)
	require.NoError(t, err)
	assert.Equal(t, res.Key+".xml", name)
	assert.Contains(t, string(xmlBytes), "<FacturaElectronica")

	stored, _ := h.docs.GetByID(context.Background(), res.ID)
	stored.XMLSigned = "<firmado/>"
	require.NoError(t, h.docs.UpdateSubmission(context.Background(), stored))
	xmlBytes, _, err = h.uc.GetXML(context.Background(), "empresa-1", res.ID)
	require.NoError(t, err)
	assert.Equal(t, "<firmado/>", string(xmlBytes))

	_, _, err = h.uc.GetXML(context.Background(), "empresa-2", res.ID)
	assert.True(t, errors.Is(err, domain.ErrForbidden))
}
