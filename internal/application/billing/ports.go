package billing

import (
	"context"
	"time"

	"github.com/jhoicas/Comprobantes-api/internal/domain/entity"
	"github.com/jhoicas/Comprobantes-api/internal/domain/repository"
)

// DocumentTxRunner ejecuta una función dentro de una transacción que incluye el contador
// de consecutivos y el repositorio de comprobantes: la asignación y el guardado son atómicos.
type DocumentTxRunner interface {
	RunDocument(ctx context.Context, fn func(
		counters repository.ConsecutiveRepository,
		documents repository.DocumentRepository,
	) error) error
}

// DocumentSerializer genera el XML canónico del comprobante.
type DocumentSerializer interface {
	Serialize(doc *entity.Document) ([]byte, error)
}

// LocationValidator decide si la URL de consulta de estado está permitida.
type LocationValidator interface {
	Allowed(rawURL string) bool
}

// Notifier entrega el comprobante aceptado (correo con PDF y XML).
// Su resultado se registra pero nunca cambia el estado del comprobante.
type Notifier interface {
	NotifyAccepted(ctx context.Context, doc *entity.Document, signedXML []byte) error
}

// DocumentPDFGenerator genera la representación gráfica del comprobante.
type DocumentPDFGenerator interface {
	GenerateDocumentPDF(ctx context.Context, doc *entity.Document) ([]byte, error)
}

// SubmissionDispatcher inicia el envío a Hacienda de un comprobante ya persistido.
type SubmissionDispatcher interface {
	ProcessAsync(documentID string) *Submission
}

// Timer temporizador de un solo disparo.
type Timer interface {
	Stop() bool
}

// Clock fuente de tiempo inyectable (reloj falso en pruebas).
type Clock interface {
	Now() time.Time
	AfterFunc(d time.Duration, f func()) Timer
}

// SystemClock reloj real basado en time.AfterFunc.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }

func (SystemClock) AfterFunc(d time.Duration, f func()) Timer { return time.AfterFunc(d, f) }

// MetricsRecorder métricas del motor de comprobantes.
type MetricsRecorder interface {
	ObserveStage(stage string, elapsed time.Duration, err error)
	ObserveOutcome(kind entity.DocumentKind, state entity.SubmissionState, outcome entity.StatusOutcome)
	ObserveAllocation(kindCode string, attempts int, err error)
}

type nopMetrics struct{}

func (nopMetrics) ObserveStage(string, time.Duration, error) {}
func (nopMetrics) ObserveOutcome(entity.DocumentKind, entity.SubmissionState, entity.StatusOutcome) {}
func (nopMetrics) ObserveAllocation(string, int, error) {}
