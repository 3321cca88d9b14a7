package http_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/Comprobantes-api/internal/application/billing"
	"github.com/jhoicas/Comprobantes-api/internal/application/usecase"
	"github.com/jhoicas/Comprobantes-api/internal/domain/entity"
	domhacienda "github.com/jhoicas/Comprobantes-api/internal/domain/hacienda"
	apphttp "github.com/jhoicas/Comprobantes-api/internal/interfaces/http"
	"github.com/jhoicas/Comprobantes-api/pkg/logger"
)

// ── Repositorios en memoria ──

type memoryCompanies struct {
	mu   sync.Mutex
	byID map[string]*entity.Company
}

func (m *memoryCompanies) Create(_ context.Context, c *entity.Company) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.byID[c.ID] = c
	return nil
}

func (m *memoryCompanies) GetByID(_ context.Context, id string) (*entity.Company, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.byID[id], nil
}

func (m *memoryCompanies) GetByTaxID(_ context.Context, taxID string) (*entity.Company, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range m.byID {
		if c.TaxID == taxID {
			return c, nil
		}
	}
	return nil, nil
}

func (m *memoryCompanies) Update(ctx context.Context, c *entity.Company) error {
	return m.Create(ctx, c)
}

type memoryCustomers struct {
	mu   sync.Mutex
	list []*entity.Customer
}

func (m *memoryCustomers) Create(_ context.Context, c *entity.Customer) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.list = append(m.list, c)
	return nil
}

func (m *memoryCustomers) GetByID(_ context.Context, id string) (*entity.Customer, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range m.list {
		if c.ID == id {
			return c, nil
		}
	}
	return nil, nil
}

func (m *memoryCustomers) GetByCompanyAndTaxID(_ context.Context, companyID, taxID string) (*entity.Customer, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range m.list {
		if c.CompanyID == companyID && c.TaxID == taxID {
			return c, nil
		}
	}
	return nil, nil
}

func (m *memoryCustomers) ListByCompany(_ context.Context, companyID string, _, _ int) ([]*entity.Customer, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*entity.Customer
	for _, c := range m.list {
		if c.CompanyID == companyID {
			out = append(out, c)
		}
	}
	return out, nil
}

func (m *memoryCustomers) Update(context.Context, *entity.Customer) error { return nil }

type memoryDocuments struct {
	mu   sync.Mutex
	byID map[string]*entity.Document
}

func (m *memoryDocuments) Create(_ context.Context, d *entity.Document) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.byID[d.ID] = d
	return nil
}

func (m *memoryDocuments) GetByID(_ context.Context, id string) (*entity.Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.byID[id], nil
}

func (m *memoryDocuments) GetByKey(_ context.Context, key string) (*entity.Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, d := range m.byID {
		if d.Key == key {
			return d, nil
		}
	}
	return nil, nil
}

func (m *memoryDocuments) UpdateSubmission(ctx context.Context, d *entity.Document) error {
	return m.Create(ctx, d)
}

func (m *memoryDocuments) ListByCompany(_ context.Context, companyID string, _, _ int) ([]*entity.Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*entity.Document
	for _, d := range m.byID {
		if d.CompanyID == companyID {
			out = append(out, d)
		}
	}
	return out, nil
}

type stubPDF struct{}

func (stubPDF) GenerateDocumentPDF(context.Context, *entity.Document) ([]byte, error) {
	return []byte("%PDF-1.3 prueba"), nil
}

// ── Aplicación de prueba ──

const testKey = "50607032500310112345600100001010000000001112345678"

type routerHarness struct {
	app       *fiber.App
	documents *memoryDocuments
	customers *memoryCustomers
}

func newRouterHarness(t *testing.T) *routerHarness {
	t.Helper()
	companies := &memoryCompanies{byID: map[string]*entity.Company{
		testCompanyID: {ID: testCompanyID, Name: "Servicios Técnicos S.A.", TaxIDType: "02", TaxID: "3101123456", Status: "active"},
	}}
	customers := &memoryCustomers{}
	documents := &memoryDocuments{byID: map[string]*entity.Document{
		"doc-firmado": {
			ID: "doc-firmado", CompanyID: testCompanyID, Kind: entity.KindInvoice,
			Key: testKey, Sequence: "00100001010000000001",
			IssuedAt:        time.Date(2025, 3, 8, 3, 0, 0, 0, time.UTC),
			XMLUnsigned:     "<FacturaElectronica/>",
			XMLSigned:       "<FacturaElectronica><ds:Signature/></FacturaElectronica>",
			SubmissionState: entity.StateAccepted,
			StatusOutcome:   entity.OutcomeAccepted,
		},
		"doc-sin-firma": {
			ID: "doc-sin-firma", CompanyID: testCompanyID, Kind: entity.KindTicket,
			Key: "50607032500310112345600100001040000000001112345678", Sequence: "00100001040000000001",
			XMLUnsigned:     "<TiqueteElectronico/>",
			SubmissionState: entity.StateBuilt,
		},
		"doc-ajeno": {ID: "doc-ajeno", CompanyID: "otra-empresa", Kind: entity.KindInvoice},
	}}

	log := logger.Nop()
	documentUC := billing.NewDocumentUseCase(
		nil, documents, companies, customers,
		billing.NewConsecutiveAllocator(billing.AllocatorConfig{}, nil, log),
		domhacienda.NewKeyGenerator(domhacienda.FixedSecurityCode("12345678")),
		nil, domhacienda.NewCreditNoteResolver(nil), nil, nil,
		billing.IssueConfig{}, log,
	)
	reg := prometheus.NewRegistry()
	reg.MustRegister(prometheus.NewCounter(prometheus.CounterOpts{Name: "comprobantes_prueba_total", Help: "prueba"}))

	app := fiber.New()
	apphttp.Router(app, apphttp.RouterDeps{
		ServiceName: "comprobantes-api",
		CompanyUC: usecase.NewCompanyUseCase(companies, func([]byte, string) error {
			return errors.New("certificado inválido")
		}),
		CustomerUC:  billing.NewCustomerUseCase(customers),
		DocumentUC:  documentUC,
		DocumentPDF: billing.NewPDFUseCase(documents, stubPDF{}),
		Gatherer:    reg,
		JWTSecret:   testJWTSecret,
	})
	return &routerHarness{app: app, documents: documents, customers: customers}
}

func (h *routerHarness) do(t *testing.T, method, path string, body any) *http.Response {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Authorization", bearer(t, testCompanyID))
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := h.app.Test(req)
	require.NoError(t, err)
	return resp
}

func errorCode(t *testing.T, resp *http.Response) string {
	t.Helper()
	var body map[string]string
	decodeBody(t, resp, &body)
	return body["code"]
}

// ── Tests ──

func TestRouter_HealthYMetrics(t *testing.T) {
	h := newRouterHarness(t)

	resp, err := h.app.Test(httptest.NewRequest(http.MethodGet, "/health", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	resp, err = h.app.Test(httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	raw, _ := io.ReadAll(resp.Body)
	assert.Contains(t, string(raw), "comprobantes_prueba_total")
}

func TestRouter_RutasProtegidasSinToken(t *testing.T) {
	h := newRouterHarness(t)
	resp, err := h.app.Test(httptest.NewRequest(http.MethodGet, "/api/documents/doc-firmado", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
}

func TestDocumentHandler_GetByID(t *testing.T) {
	h := newRouterHarness(t)

	resp := h.do(t, http.MethodGet, "/api/documents/doc-firmado", nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	var doc map[string]any
	decodeBody(t, resp, &doc)
	assert.Equal(t, testKey, doc["key"])
	assert.Equal(t, "ACCEPTED", doc["submission_state"])

	resp = h.do(t, http.MethodGet, "/api/documents/doc-ajeno", nil)
	assert.Equal(t, fiber.StatusForbidden, resp.StatusCode)
	assert.Equal(t, "FORBIDDEN", errorCode(t, resp))

	resp = h.do(t, http.MethodGet, "/api/documents/no-existe", nil)
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "NOT_FOUND", errorCode(t, resp))
}

func TestDocumentHandler_DescargaXML(t *testing.T) {
	h := newRouterHarness(t)

	resp := h.do(t, http.MethodGet, "/api/documents/doc-firmado/xml", nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Type"), "application/xml")
	assert.Contains(t, resp.Header.Get("Content-Disposition"), testKey+".xml")
	raw, _ := io.ReadAll(resp.Body)
	assert.Contains(t, string(raw), "ds:Signature", "se entrega el XML firmado")

	resp = h.do(t, http.MethodGet, "/api/documents/doc-sin-firma/xml", nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	raw, _ = io.ReadAll(resp.Body)
	assert.Equal(t, "<TiqueteElectronico/>", string(raw), "sin firma se entrega el XML generado")
}

func TestDocumentHandler_DescargaPDF(t *testing.T) {
	h := newRouterHarness(t)

	resp := h.do(t, http.MethodGet, "/api/documents/doc-firmado/pdf", nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/pdf", resp.Header.Get("Content-Type"))
	assert.Contains(t, resp.Header.Get("Content-Disposition"), testKey+".pdf")

	resp = h.do(t, http.MethodGet, "/api/documents/doc-sin-firma/pdf", nil)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode, "sin firma no hay PDF")
	assert.Equal(t, "INVALID_INPUT", errorCode(t, resp))
}

func TestDocumentHandler_List(t *testing.T) {
	h := newRouterHarness(t)

	resp := h.do(t, http.MethodGet, "/api/documents?limit=5", nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	var list struct {
		Items []map[string]any `json:"items"`
		Page  map[string]int   `json:"page"`
	}
	decodeBody(t, resp, &list)
	assert.Len(t, list.Items, 2, "solo los comprobantes de la empresa del token")
	assert.Equal(t, 5, list.Page["limit"])

	resp = h.do(t, http.MethodGet, "/api/documents?limit=abc", nil)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}

func TestDocumentHandler_EmisionRechazaEntradaInvalida(t *testing.T) {
	h := newRouterHarness(t)

	req := httptest.NewRequest(http.MethodPost, "/api/documents/invoices", bytes.NewBufferString("{no es json"))
	req.Header.Set("Authorization", bearer(t, testCompanyID))
	req.Header.Set("Content-Type", "application/json")
	resp, err := h.app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "INVALID_BODY", errorCode(t, resp))

	resp = h.do(t, http.MethodPost, "/api/documents/invoices", map[string]any{"lines": []any{}})
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode, "factura sin receptor ni líneas")
	assert.Equal(t, "VALIDATION", errorCode(t, resp))
	assert.Empty(t, h.customers.list)
}

func TestCustomerHandler_CreateYList(t *testing.T) {
	h := newRouterHarness(t)
	in := map[string]any{"name": "Juan Pérez", "tax_id_type": "01", "tax_id": "1-1455-0123", "email": "juan@correo.com"}

	resp := h.do(t, http.MethodPost, "/api/customers", in)
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)
	var created map[string]any
	decodeBody(t, resp, &created)
	assert.Equal(t, "114550123", created["tax_id"])

	resp = h.do(t, http.MethodPost, "/api/customers", in)
	assert.Equal(t, fiber.StatusConflict, resp.StatusCode)
	assert.Equal(t, "DUPLICATE", errorCode(t, resp))

	resp = h.do(t, http.MethodPost, "/api/customers", map[string]any{"name": "X", "tax_id_type": "01", "tax_id": "12"})
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "VALIDATION", errorCode(t, resp))

	resp = h.do(t, http.MethodGet, "/api/customers", nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	var list []map[string]any
	decodeBody(t, resp, &list)
	assert.Len(t, list, 1)
}

func TestCompanyHandler_SoloLaEmpresaDelToken(t *testing.T) {
	h := newRouterHarness(t)

	resp := h.do(t, http.MethodGet, "/api/companies/"+testCompanyID, nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	var company map[string]any
	decodeBody(t, resp, &company)
	assert.Equal(t, "3101123456", company["tax_id"])

	resp = h.do(t, http.MethodGet, "/api/companies/otra-empresa", nil)
	assert.Equal(t, fiber.StatusForbidden, resp.StatusCode)

	resp = h.do(t, http.MethodPut, "/api/companies/"+testCompanyID+"/certificate",
		map[string]string{"certificate_base64": "AQID", "password": "1234"})
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode, "el verificador rechaza el .p12")
}

func TestCompanyHandler_AltaPublica(t *testing.T) {
	h := newRouterHarness(t)
	in := map[string]any{
		"name": "Panadería La Espiga S.R.L.", "tax_id_type": "02", "tax_id": "3-102-654321",
		"activity_code": "107101",
		"location":      map[string]string{"province": "1", "canton": "01", "district": "01", "address": "Avenida 2"},
	}
	raw, err := json.Marshal(in)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, "/api/companies", bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")

	resp, err := h.app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusCreated, resp.StatusCode)
}
