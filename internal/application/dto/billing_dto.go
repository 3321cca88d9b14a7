package dto

import (
	"time"

	"github.com/shopspring/decimal"
)

// LocationDTO ubicación con códigos absolutos (provincia "3", cantón "302", distrito "30205").
type LocationDTO struct {
	Province string `json:"province,omitempty"`
	Canton   string `json:"canton,omitempty"`
	District string `json:"district,omitempty"`
	Address  string `json:"address,omitempty"`
}

// ExonerationDTO exoneración configurada para un cliente.
type ExonerationDTO struct {
	DocumentType      string          `json:"document_type"`
	DocumentTypeOther string          `json:"document_type_other,omitempty"`
	DocumentNumber    string          `json:"document_number"`
	LawName           string          `json:"law_name,omitempty"`
	Article           string          `json:"article,omitempty"`
	Subsection        string          `json:"subsection,omitempty"`
	PurchasePercent   decimal.Decimal `json:"purchase_percent"`
	Institution       string          `json:"institution"`
	InstitutionOther  string          `json:"institution_other,omitempty"`
	IssuedAt          time.Time       `json:"issued_at"`
	ExemptedRate      decimal.Decimal `json:"exempted_rate"`
}

// CreateCustomerRequest body para POST /api/customers.
type CreateCustomerRequest struct {
	Name           string          `json:"name"`
	CommercialName string          `json:"commercial_name,omitempty"`
	TaxIDType      string          `json:"tax_id_type"` // 01 física, 02 jurídica, 03 DIMEX, 04 NITE
	TaxID          string          `json:"tax_id"`
	ActivityCode   string          `json:"activity_code,omitempty"`
	Location       LocationDTO     `json:"location"`
	PhoneCountry   string          `json:"phone_country,omitempty"`
	Phone          string          `json:"phone,omitempty"`
	Email          string          `json:"email,omitempty"`
	Exoneration    *ExonerationDTO `json:"exoneration,omitempty"`
}

// CustomerResponse cliente en respuestas.
type CustomerResponse struct {
	ID             string          `json:"id"`
	CompanyID      string          `json:"company_id"`
	Name           string          `json:"name"`
	CommercialName string          `json:"commercial_name,omitempty"`
	TaxIDType      string          `json:"tax_id_type"`
	TaxID          string          `json:"tax_id"`
	Location       LocationDTO     `json:"location"`
	Email          string          `json:"email,omitempty"`
	Phone          string          `json:"phone,omitempty"`
	Exoneration    *ExonerationDTO `json:"exoneration,omitempty"`
}

// IssueDocumentRequest body para POST /api/documents/invoices y /api/documents/tickets.
// CustomerID es obligatorio en facturas y opcional en tiquetes.
type IssueDocumentRequest struct {
	CustomerID     string                `json:"customer_id,omitempty"`
	SaleCondition  string                `json:"sale_condition,omitempty"` // 01 contado (por defecto), 02 crédito
	CreditTermDays int                   `json:"credit_term_days,omitempty"`
	PaymentMethod  string                `json:"payment_method,omitempty"` // 01 efectivo (por defecto)
	CurrencyCode   string                `json:"currency_code,omitempty"`  // CRC por defecto
	ExchangeRate   decimal.Decimal       `json:"exchange_rate"`
	Lines          []DocumentLineRequest `json:"lines"`
}

// DocumentLineRequest línea de venta. TaxRate nulo = línea exenta.
type DocumentLineRequest struct {
	CatalogCode string           `json:"cabys_code"`
	Quantity    decimal.Decimal  `json:"quantity"`
	Unit        string           `json:"unit"`
	Description string           `json:"description"`
	UnitPrice   decimal.Decimal  `json:"unit_price"`
	TaxRateCode string           `json:"tax_rate_code,omitempty"` // 08 = 13 %
	TaxRate     *decimal.Decimal `json:"tax_rate,omitempty"`
	TaxAmount   decimal.Decimal  `json:"tax_amount"` // Monto informado; cero = se calcula
}

// CreateCreditNoteRequest body para POST /api/documents/:id/credit-notes.
type CreateCreditNoteRequest struct {
	FullReversal  bool   `json:"full_reversal"`
	AffectedLines []int  `json:"affected_lines,omitempty"`
	ReasonCode    string `json:"reason_code"` // 01 anula, 02 corrige texto, 03 corrige monto, ...
	ReasonText    string `json:"reason_text"`
}

// DocumentLineResponse línea calculada.
type DocumentLineResponse struct {
	LineNumber  int             `json:"line_number"`
	CatalogCode string          `json:"cabys_code"`
	Description string          `json:"description"`
	Quantity    decimal.Decimal `json:"quantity"`
	Unit        string          `json:"unit"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	TaxableBase decimal.Decimal `json:"taxable_base"`
	TaxAmount   decimal.Decimal `json:"tax_amount"`
	NetTax      decimal.Decimal `json:"net_tax"`
	LineTotal   decimal.Decimal `json:"line_total"`
	Exonerated  bool            `json:"exonerated"`
}

// DocumentResponse comprobante con su estado de envío para GET /api/documents/:id.
type DocumentResponse struct {
	ID                string                 `json:"id"`
	CompanyID         string                 `json:"company_id"`
	CustomerID        string                 `json:"customer_id,omitempty"`
	Kind              string                 `json:"kind"`
	Key               string                 `json:"key"`
	Sequence          string                 `json:"sequence"`
	IssuedAt          string                 `json:"issued_at"`
	RecipientName     string                 `json:"recipient_name,omitempty"`
	CurrencyCode      string                 `json:"currency_code"`
	TotalTaxed        decimal.Decimal        `json:"total_taxed"`
	TotalExempt       decimal.Decimal        `json:"total_exempt"`
	TotalExonerated   decimal.Decimal        `json:"total_exonerated"`
	TotalTax          decimal.Decimal        `json:"total_tax"`
	TotalDocument     decimal.Decimal        `json:"total_document"`
	SubmissionState   string                 `json:"submission_state"` // BUILT|SIGNED|...|ACCEPTED|REJECTED|FAILED
	StatusOutcome     string                 `json:"status_outcome,omitempty"`
	FailureStage      string                 `json:"failure_stage,omitempty"`
	FailureReason     string                 `json:"failure_reason,omitempty"`
	ProviderResponse  string                 `json:"provider_response,omitempty"`
	NotificationError string                 `json:"notification_error,omitempty"`
	ReferenceKey      string                 `json:"reference_key,omitempty"`
	Lines             []DocumentLineResponse `json:"lines"`
}

// DocumentListResponse lista paginada de comprobantes.
type DocumentListResponse struct {
	Items []DocumentResponse `json:"items"`
	Page  PageResponse       `json:"page"`
}
