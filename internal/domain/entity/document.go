package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// DocumentKind tipo de comprobante electrónico.
type DocumentKind string

const (
	KindInvoice    DocumentKind = "invoice"     // Factura electrónica
	KindTicket     DocumentKind = "ticket"      // Tiquete electrónico
	KindCreditNote DocumentKind = "credit_note" // Nota de crédito electrónica
)

// Code devuelve el código de tipo de comprobante de Hacienda (posiciones 9-10 del consecutivo).
func (k DocumentKind) Code() string {
	switch k {
	case KindInvoice:
		return "01"
	case KindCreditNote:
		return "03"
	case KindTicket:
		return "04"
	}
	return ""
}

// Valid indica si el tipo es soportado.
func (k DocumentKind) Valid() bool { return k.Code() != "" }

// KindFromCode resuelve el tipo a partir del código de Hacienda.
func KindFromCode(code string) (DocumentKind, bool) {
	switch code {
	case "01":
		return KindInvoice, true
	case "03":
		return KindCreditNote, true
	case "04":
		return KindTicket, true
	}
	return "", false
}

// Estados del envío a Hacienda. Solo el orquestador de envío los modifica.
type SubmissionState string

const (
	StateBuilt          SubmissionState = "BUILT"           // XML generado, sin firmar
	StateSigned         SubmissionState = "SIGNED"          // XML firmado
	StateAuthenticated  SubmissionState = "AUTHENTICATED"   // Token de Hacienda obtenido
	StateSubmitted      SubmissionState = "SUBMITTED"       // Recibido por Hacienda, estado pendiente
	StateAwaitingStatus SubmissionState = "AWAITING_STATUS" // Consulta de estado programada
	StateAccepted       SubmissionState = "ACCEPTED"        // Aceptado por Hacienda
	StateRejected       SubmissionState = "REJECTED"        // Rechazado por Hacienda
	StateFailed         SubmissionState = "FAILED"          // Falló una etapa (ver FailureStage)
)

// Terminal indica si el estado ya no avanza.
func (s SubmissionState) Terminal() bool {
	return s == StateAccepted || s == StateRejected || s == StateFailed
}

// StatusOutcome resultado de la consulta de estado en Hacienda.
type StatusOutcome string

const (
	OutcomeAccepted      StatusOutcome = "ACCEPTED"
	OutcomeRejected      StatusOutcome = "REJECTED"
	OutcomeProviderError StatusOutcome = "PROVIDER_ERROR" // Estado desconocido; conciliación manual
)

// Etapas del envío (para Failed(stage, reason)).
const (
	StageSchema       = "schema"
	StageSigning      = "signing"
	StageAuth         = "auth"
	StageSubmission   = "submission"
	StageStatusCheck  = "status-check"
	StageNotification = "notification"
)

// ReasonInvalidURL motivo cuando la URL de estado no pasa la lista permitida.
const ReasonInvalidURL = "invalid-url"

// Exoneration exoneración tributaria aplicada a una línea.
type Exoneration struct {
	DocumentType      string // TipoDocumentoEX1
	DocumentTypeOther string // Obligatorio si DocumentType = 99
	DocumentNumber    string
	LawName           string // Solo informativo (PDF)
	Article           string
	Subsection        string
	PurchasePercent   decimal.Decimal // Solo informativo (PDF)
	Institution       string
	InstitutionOther  string // Obligatorio si Institution = 99
	IssuedAt          time.Time
	ExemptedRate      decimal.Decimal // TarifaExonerada
	ExemptedAmount    decimal.Decimal // MontoExoneracion
}

// Tax impuesto de una línea.
type Tax struct {
	Code        string // 01 = IVA
	RateCode    string // CodigoTarifaIVA
	RatePercent decimal.Decimal
	Amount      decimal.Decimal // Monto nominal (se muestra aunque esté exonerado)
	Exoneration *Exoneration
}

// LineItem línea de detalle del comprobante.
type LineItem struct {
	LineNumber  int
	CatalogCode string // CABYS (13 dígitos)
	Quantity    decimal.Decimal
	Unit        string
	Description string
	UnitPrice   decimal.Decimal
	GrossAmount decimal.Decimal // MontoTotal = cantidad * precio
	TaxableBase decimal.Decimal
	Tax         *Tax
	NetTax      decimal.Decimal
	LineTotal   decimal.Decimal
}

// Exonerated indica si la línea lleva exoneración.
func (l LineItem) Exonerated() bool {
	return l.Tax != nil && l.Tax.Exoneration != nil
}

// TaxBreakdown desglose de impuesto del resumen.
type TaxBreakdown struct {
	Code     string
	RateCode string
	Amount   decimal.Decimal
}

// Summary resumen (totales) del comprobante.
type Summary struct {
	CurrencyCode         string
	ExchangeRate         decimal.Decimal
	TotalServTaxed       decimal.Decimal
	TotalServExempt      decimal.Decimal
	TotalServExonerated  decimal.Decimal
	TotalGoodsTaxed      decimal.Decimal
	TotalGoodsExempt     decimal.Decimal
	TotalGoodsExonerated decimal.Decimal
	TotalTaxed           decimal.Decimal
	TotalExempt          decimal.Decimal
	TotalExonerated      decimal.Decimal
	TotalSale            decimal.Decimal
	TotalNetSale         decimal.Decimal
	TaxBreakdown         []TaxBreakdown // Vacío = bloque omitido
	TotalTax             decimal.Decimal
	TotalDocument        decimal.Decimal
}

// Reference información de referencia de una nota de crédito.
type Reference struct {
	DocumentType     string // Tipo del comprobante original (01, 04, ...)
	OriginalKey      string
	OriginalIssuedAt time.Time
	ReasonCode       string
	ReasonText       string // <= 180 caracteres
}

// Document comprobante electrónico. Inmutable después de firmado, salvo los campos de envío.
type Document struct {
	ID             string
	CompanyID      string
	CustomerID     string
	Kind           DocumentKind
	Key            string // Clave (50 dígitos)
	Sequence       string // Consecutivo (20 dígitos)
	IssuedAt       time.Time
	Issuer         Party
	Recipient      *Party
	SaleCondition  string
	CreditTermDays int
	PaymentMethod  string
	Lines          []LineItem
	Summary        Summary
	Reference      *Reference
	OriginalID     string // Documento de origen (notas de crédito)
	Situation      string

	XMLUnsigned string
	XMLSigned   string

	// Seguimiento del envío (propiedad exclusiva del orquestador).
	SubmissionState   SubmissionState
	FailureStage      string
	FailureReason     string
	LocationURL       string
	StatusOutcome     StatusOutcome
	ProviderResponse  string // Detalle devuelto por Hacienda (DetalleMensaje o texto de error)
	NotificationError string // Anotación: el fallo de notificación no altera el estado

	CreatedAt time.Time
	UpdatedAt time.Time
}

// HasExoneration indica si alguna línea lleva exoneración.
func (d *Document) HasExoneration() bool {
	for _, l := range d.Lines {
		if l.Exonerated() {
			return true
		}
	}
	return false
}
