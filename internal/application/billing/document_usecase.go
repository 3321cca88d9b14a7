package billing

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/jhoicas/Comprobantes-api/internal/application/dto"
	"github.com/jhoicas/Comprobantes-api/internal/domain"
	"github.com/jhoicas/Comprobantes-api/internal/domain/entity"
	domhacienda "github.com/jhoicas/Comprobantes-api/internal/domain/hacienda"
	"github.com/jhoicas/Comprobantes-api/internal/domain/repository"
	pkghacienda "github.com/jhoicas/Comprobantes-api/pkg/hacienda"
	"github.com/jhoicas/Comprobantes-api/pkg/logger"
)

// IssueConfig parámetros fijos de emisión.
type IssueConfig struct {
	CountryCode string // Vacío = 506
	Situation   string // Vacío = 1 (normal)
}

// DocumentUseCase emite y consulta comprobantes electrónicos.
// La asignación del consecutivo, la clave, el XML y el guardado ocurren en una sola transacción;
// el envío a Hacienda se dispara después, fuera de la solicitud.
type DocumentUseCase struct {
	txRunner   DocumentTxRunner
	documents  repository.DocumentRepository
	companies  repository.CompanyRepository
	customers  repository.CustomerRepository
	allocator  *ConsecutiveAllocator
	keys       *domhacienda.KeyGenerator
	serializer DocumentSerializer
	resolver   *domhacienda.CreditNoteResolver
	dispatcher SubmissionDispatcher
	clock      Clock
	cfg        IssueConfig
	log        *logger.Logger
}

// NewDocumentUseCase construye el caso de uso.
func NewDocumentUseCase(
	txRunner DocumentTxRunner,
	documents repository.DocumentRepository,
	companies repository.CompanyRepository,
	customers repository.CustomerRepository,
	allocator *ConsecutiveAllocator,
	keys *domhacienda.KeyGenerator,
	serializer DocumentSerializer,
	resolver *domhacienda.CreditNoteResolver,
	dispatcher SubmissionDispatcher,
	clock Clock,
	cfg IssueConfig,
	log *logger.Logger,
) *DocumentUseCase {
	if clock == nil {
		clock = SystemClock{}
	}
	if cfg.Situation == "" {
		cfg.Situation = pkghacienda.SituationNormal
	}
	return &DocumentUseCase{
		txRunner:   txRunner,
		documents:  documents,
		companies:  companies,
		customers:  customers,
		allocator:  allocator,
		keys:       keys,
		serializer: serializer,
		resolver:   resolver,
		dispatcher: dispatcher,
		clock:      clock,
		cfg:        cfg,
		log:        log,
	}
}

// IssueInvoice emite una factura electrónica (receptor obligatorio).
func (uc *DocumentUseCase) IssueInvoice(ctx context.Context, companyID string, in dto.IssueDocumentRequest) (*dto.DocumentResponse, error) {
	if strings.TrimSpace(in.CustomerID) == "" {
		return nil, domain.ValidationError("la factura requiere cliente")
	}
	return uc.issue(ctx, companyID, entity.KindInvoice, in)
}

// IssueTicket emite un tiquete electrónico (receptor opcional).
func (uc *DocumentUseCase) IssueTicket(ctx context.Context, companyID string, in dto.IssueDocumentRequest) (*dto.DocumentResponse, error) {
	return uc.issue(ctx, companyID, entity.KindTicket, in)
}

func (uc *DocumentUseCase) issue(ctx context.Context, companyID string, kind entity.DocumentKind, in dto.IssueDocumentRequest) (*dto.DocumentResponse, error) {
	if len(in.Lines) == 0 {
		return nil, domain.ValidationError("el comprobante debe tener al menos una línea")
	}
	company, err := uc.activeCompany(ctx, companyID)
	if err != nil {
		return nil, err
	}

	// Receptor y exoneración configurada (instantánea al momento de emitir).
	var (
		customer  *entity.Customer
		recipient *entity.Party
	)
	if in.CustomerID != "" {
		customer, err = uc.customers.GetByID(ctx, in.CustomerID)
		if err != nil {
			return nil, fmt.Errorf("emisión: obtener cliente: %w", err)
		}
		if customer == nil {
			return nil, domain.ErrNotFound
		}
		if customer.CompanyID != companyID {
			return nil, domain.ErrForbidden
		}
		p := customer.Party()
		recipient = &p
	}

	lines := make([]entity.LineItem, 0, len(in.Lines))
	for i, l := range in.Lines {
		raw := domhacienda.RawLine{
			LineNumber:  i + 1,
			CatalogCode: l.CatalogCode,
			Quantity:    l.Quantity,
			Unit:        l.Unit,
			Description: l.Description,
			UnitPrice:   l.UnitPrice,
		}
		var exo *entity.Exoneration
		if l.TaxRate != nil {
			rateCode := l.TaxRateCode
			if rateCode == "" {
				rateCode = pkghacienda.RateCodeReduced
			}
			raw.Tax = &domhacienda.RawTax{
				Code:        pkghacienda.TaxCodeIVA,
				RateCode:    rateCode,
				RatePercent: *l.TaxRate,
				Amount:      l.TaxAmount,
			}
			if customer != nil && customer.Exoneration != nil {
				exo = customer.Exoneration
			}
		}
		line, err := domhacienda.ComputeLine(raw, exo)
		if err != nil {
			return nil, err
		}
		lines = append(lines, line)
	}

	now := uc.clock.Now()
	doc := &entity.Document{
		ID:              uuid.New().String(),
		CompanyID:       companyID,
		CustomerID:      in.CustomerID,
		Kind:            kind,
		IssuedAt:        now,
		Issuer:          company.Party(),
		Recipient:       recipient,
		SaleCondition:   firstNonEmpty(in.SaleCondition, pkghacienda.SaleConditionCash),
		CreditTermDays:  in.CreditTermDays,
		PaymentMethod:   firstNonEmpty(in.PaymentMethod, pkghacienda.PaymentMethodCash),
		Lines:           lines,
		Summary:         domhacienda.ComputeSummary(lines, domhacienda.SummaryOptions{CurrencyCode: in.CurrencyCode, ExchangeRate: in.ExchangeRate}),
		Situation:       uc.cfg.Situation,
		SubmissionState: entity.StateBuilt,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if doc.SaleCondition == pkghacienda.SaleConditionCredit && doc.CreditTermDays <= 0 {
		return nil, domain.ValidationError("la venta a crédito requiere plazo")
	}
	if err := uc.persist(ctx, company, doc); err != nil {
		return nil, err
	}
	return DocumentToResponse(doc), nil
}

// persist valida, numera, serializa y guarda el comprobante; luego dispara el envío.
// Un error de esquema revierte la transacción completa, incluido el consecutivo.
func (uc *DocumentUseCase) persist(ctx context.Context, company *entity.Company, doc *entity.Document) error {
	if err := domhacienda.ValidateDocument(doc); err != nil {
		return err
	}
	err := uc.txRunner.RunDocument(ctx, func(counters repository.ConsecutiveRepository, documents repository.DocumentRepository) error {
		seq, err := uc.allocator.NextSequence(ctx, counters, doc.CompanyID, doc.Kind)
		if err != nil {
			return err
		}
		key, err := uc.keys.Generate(domhacienda.KeyParams{
			IssuedAt:    doc.IssuedAt,
			IssuerTaxID: company.TaxID,
			Sequence:    seq,
			CountryCode: uc.cfg.CountryCode,
			Situation:   doc.Situation,
		})
		if err != nil {
			return err
		}
		doc.Sequence = seq
		doc.Key = key

		xmlBytes, err := uc.serializer.Serialize(doc)
		if err != nil {
			return err
		}
		doc.XMLUnsigned = string(xmlBytes)
		return documents.Create(ctx, doc)
	})
	if err != nil {
		uc.log.Warn().Err(err).Str("company_id", doc.CompanyID).Str("tipo", string(doc.Kind)).Msg("emisión: comprobante no generado")
		return err
	}
	uc.log.Info().Str("document_id", doc.ID).Str("clave", doc.Key).Str("consecutivo", doc.Sequence).Msg("emisión: comprobante generado")

	if uc.dispatcher != nil {
		uc.dispatcher.ProcessAsync(doc.ID)
	}
	return nil
}

func (uc *DocumentUseCase) activeCompany(ctx context.Context, companyID string) (*entity.Company, error) {
	company, err := uc.companies.GetByID(ctx, companyID)
	if err != nil {
		return nil, fmt.Errorf("emisión: obtener empresa: %w", err)
	}
	if company == nil {
		return nil, domain.ErrNotFound
	}
	if !company.IsActive() {
		return nil, fmt.Errorf("%w: la empresa no está activa", domain.ErrForbidden)
	}
	return company, nil
}

// GetDocument devuelve el comprobante con su estado de envío.
func (uc *DocumentUseCase) GetDocument(ctx context.Context, companyID, documentID string) (*dto.DocumentResponse, error) {
	doc, err := uc.ownDocument(ctx, companyID, documentID)
	if err != nil {
		return nil, err
	}
	return DocumentToResponse(doc), nil
}

// GetXML devuelve el XML firmado (o el generado si aún no se firmó) y el nombre de archivo.
func (uc *DocumentUseCase) GetXML(ctx context.Context, companyID, documentID string) ([]byte, string, error) {
	doc, err := uc.ownDocument(ctx, companyID, documentID)
	if err != nil {
		return nil, "", err
	}
	xmlText := firstNonEmpty(doc.XMLSigned, doc.XMLUnsigned)
	if xmlText == "" {
		return nil, "", fmt.Errorf("%w: el comprobante no tiene XML", domain.ErrNotFound)
	}
	return []byte(xmlText), doc.Key + ".xml", nil
}

// List lista los comprobantes de la empresa.
func (uc *DocumentUseCase) List(ctx context.Context, companyID string, page dto.PageRequest) (*dto.DocumentListResponse, error) {
	page.DefaultPage()
	docs, err := uc.documents.ListByCompany(ctx, companyID, page.Limit, page.Offset)
	if err != nil {
		return nil, err
	}
	items := make([]dto.DocumentResponse, 0, len(docs))
	for _, d := range docs {
		items = append(items, *DocumentToResponse(d))
	}
	return &dto.DocumentListResponse{Items: items, Page: dto.PageResponse{Limit: page.Limit, Offset: page.Offset}}, nil
}

func (uc *DocumentUseCase) ownDocument(ctx context.Context, companyID, documentID string) (*entity.Document, error) {
	doc, err := uc.documents.GetByID(ctx, documentID)
	if err != nil {
		return nil, fmt.Errorf("obtener comprobante: %w", err)
	}
	if doc == nil {
		return nil, domain.ErrNotFound
	}
	if doc.CompanyID != companyID {
		return nil, domain.ErrForbidden
	}
	return doc, nil
}
