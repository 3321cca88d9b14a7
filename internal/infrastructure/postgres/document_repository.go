package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/Comprobantes-api/internal/domain"
	"github.com/jhoicas/Comprobantes-api/internal/domain/entity"
	"github.com/jhoicas/Comprobantes-api/internal/domain/repository"
)

var _ repository.DocumentRepository = (*DocumentRepo)(nil)

// DocumentRepo implementación de DocumentRepository (usable con pool o tx).
// Partes, líneas, resumen y referencia se guardan como JSONB: son una instantánea inmutable.
type DocumentRepo struct {
	q Querier
}

// NewDocumentRepository construye el adaptador. Pasar pool o tx (Querier).
func NewDocumentRepository(q Querier) *DocumentRepo {
	return &DocumentRepo{q: q}
}

const documentColumns = `
	id, company_id, customer_id, original_id, kind, key, sequence, issued_at, situation,
	issuer, recipient, sale_condition, credit_term_days, payment_method, lines, summary, reference,
	total_document, xml_unsigned, xml_signed,
	submission_state, failure_stage, failure_reason, location_url, status_outcome, provider_response, notification_error,
	created_at, updated_at`

// Create persiste el comprobante recién generado.
func (r *DocumentRepo) Create(ctx context.Context, doc *entity.Document) error {
	issuer, err := json.Marshal(doc.Issuer)
	if err != nil {
		return fmt.Errorf("documento: serializar emisor: %w", err)
	}
	recipient, err := marshalNullable(doc.Recipient)
	if err != nil {
		return fmt.Errorf("documento: serializar receptor: %w", err)
	}
	lines, err := json.Marshal(doc.Lines)
	if err != nil {
		return fmt.Errorf("documento: serializar líneas: %w", err)
	}
	summary, err := json.Marshal(doc.Summary)
	if err != nil {
		return fmt.Errorf("documento: serializar resumen: %w", err)
	}
	reference, err := marshalNullable(doc.Reference)
	if err != nil {
		return fmt.Errorf("documento: serializar referencia: %w", err)
	}

	query := `INSERT INTO documents (` + documentColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20,
		        $21, $22, $23, $24, $25, $26, $27, $28, $29)`
	_, err = r.q.Exec(ctx, query,
		doc.ID, doc.CompanyID, nullIfEmpty(doc.CustomerID), nullIfEmpty(doc.OriginalID),
		string(doc.Kind), doc.Key, doc.Sequence, doc.IssuedAt, doc.Situation,
		issuer, recipient, doc.SaleCondition, doc.CreditTermDays, doc.PaymentMethod, lines, summary, reference,
		doc.Summary.TotalDocument, doc.XMLUnsigned, nullIfEmpty(doc.XMLSigned),
		string(doc.SubmissionState), nullIfEmpty(doc.FailureStage), nullIfEmpty(doc.FailureReason),
		nullIfEmpty(doc.LocationURL), nullIfEmpty(string(doc.StatusOutcome)), nullIfEmpty(doc.ProviderResponse),
		nullIfEmpty(doc.NotificationError),
		doc.CreatedAt, doc.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: clave o consecutivo ya existe", domain.ErrDuplicate)
		}
		return fmt.Errorf("insert document: %w", err)
	}
	return nil
}

// GetByID obtiene un comprobante por ID. (nil, nil) si no existe.
func (r *DocumentRepo) GetByID(ctx context.Context, id string) (*entity.Document, error) {
	return r.getOne(ctx, `SELECT `+documentColumns+` FROM documents WHERE id = $1`, id)
}

// GetByKey obtiene un comprobante por su clave numérica.
func (r *DocumentRepo) GetByKey(ctx context.Context, key string) (*entity.Document, error) {
	return r.getOne(ctx, `SELECT `+documentColumns+` FROM documents WHERE key = $1`, key)
}

// UpdateSubmission actualiza solo el XML firmado y los campos de seguimiento del envío.
func (r *DocumentRepo) UpdateSubmission(ctx context.Context, doc *entity.Document) error {
	query := `
		UPDATE documents
		SET xml_signed         = COALESCE($2, xml_signed),
		    submission_state   = $3,
		    failure_stage      = $4,
		    failure_reason     = $5,
		    location_url       = COALESCE($6, location_url),
		    status_outcome     = $7,
		    provider_response  = $8,
		    notification_error = $9,
		    updated_at         = $10
		WHERE id = $1`
	cmd, err := r.q.Exec(ctx, query,
		doc.ID,
		nullIfEmpty(doc.XMLSigned),
		string(doc.SubmissionState),
		nullIfEmpty(doc.FailureStage),
		nullIfEmpty(doc.FailureReason),
		nullIfEmpty(doc.LocationURL),
		nullIfEmpty(string(doc.StatusOutcome)),
		nullIfEmpty(doc.ProviderResponse),
		nullIfEmpty(doc.NotificationError),
		doc.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update document submission: %w", err)
	}
	if cmd.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// ListByCompany lista los comprobantes de la empresa, más recientes primero.
func (r *DocumentRepo) ListByCompany(ctx context.Context, companyID string, limit, offset int) ([]*entity.Document, error) {
	query := `SELECT ` + documentColumns + ` FROM documents
		WHERE company_id = $1 ORDER BY issued_at DESC, sequence DESC LIMIT $2 OFFSET $3`
	rows, err := r.q.Query(ctx, query, companyID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	defer rows.Close()

	var list []*entity.Document
	for rows.Next() {
		d, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, d)
	}
	return list, rows.Err()
}

func (r *DocumentRepo) getOne(ctx context.Context, query string, arg string) (*entity.Document, error) {
	d, err := scanDocument(r.q.QueryRow(ctx, query, arg))
	if err != nil {
		if isNoRows(err) {
			return nil, nil
		}
		return nil, err
	}
	return d, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDocument(row rowScanner) (*entity.Document, error) {
	var (
		d                                        entity.Document
		kind, state                              string
		customerID, originalID, xmlSigned        *string
		failureStage, failureReason, locationURL *string
		outcome, providerResponse, notifyErr     *string
		issuer, recipient, lines, summary, ref   []byte
		totalDocument                            decimal.Decimal
		issuedAt, createdAt, updatedAt           time.Time
	)
	err := row.Scan(
		&d.ID, &d.CompanyID, &customerID, &originalID, &kind, &d.Key, &d.Sequence, &issuedAt, &d.Situation,
		&issuer, &recipient, &d.SaleCondition, &d.CreditTermDays, &d.PaymentMethod, &lines, &summary, &ref,
		&totalDocument, &d.XMLUnsigned, &xmlSigned,
		&state, &failureStage, &failureReason, &locationURL, &outcome, &providerResponse, &notifyErr,
		&createdAt, &updatedAt,
	)
	if err != nil {
		if isNoRows(err) {
			return nil, err
		}
		return nil, fmt.Errorf("scan document: %w", err)
	}

	d.Kind = entity.DocumentKind(kind)
	d.SubmissionState = entity.SubmissionState(state)
	d.StatusOutcome = entity.StatusOutcome(emptyIfNull(outcome))
	d.CustomerID = emptyIfNull(customerID)
	d.OriginalID = emptyIfNull(originalID)
	d.XMLSigned = emptyIfNull(xmlSigned)
	d.FailureStage = emptyIfNull(failureStage)
	d.FailureReason = emptyIfNull(failureReason)
	d.LocationURL = emptyIfNull(locationURL)
	d.ProviderResponse = emptyIfNull(providerResponse)
	d.NotificationError = emptyIfNull(notifyErr)
	d.IssuedAt, d.CreatedAt, d.UpdatedAt = issuedAt, createdAt, updatedAt

	if err := json.Unmarshal(issuer, &d.Issuer); err != nil {
		return nil, fmt.Errorf("documento %s: leer emisor: %w", d.ID, err)
	}
	if len(recipient) > 0 {
		d.Recipient = &entity.Party{}
		if err := json.Unmarshal(recipient, d.Recipient); err != nil {
			return nil, fmt.Errorf("documento %s: leer receptor: %w", d.ID, err)
		}
	}
	if err := json.Unmarshal(lines, &d.Lines); err != nil {
		return nil, fmt.Errorf("documento %s: leer líneas: %w", d.ID, err)
	}
	if err := json.Unmarshal(summary, &d.Summary); err != nil {
		return nil, fmt.Errorf("documento %s: leer resumen: %w", d.ID, err)
	}
	if len(ref) > 0 {
		d.Reference = &entity.Reference{}
		if err := json.Unmarshal(ref, d.Reference); err != nil {
			return nil, fmt.Errorf("documento %s: leer referencia: %w", d.ID, err)
		}
	}
	return &d, nil
}

// marshalNullable devuelve nil (NULL) para punteros nulos.
func marshalNullable[T any](v *T) ([]byte, error) {
	if v == nil {
		return nil, nil
	}
	return json.Marshal(v)
}
