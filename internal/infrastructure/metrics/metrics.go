package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/jhoicas/Comprobantes-api/internal/application/billing"
	"github.com/jhoicas/Comprobantes-api/internal/domain/entity"
)

var _ billing.MetricsRecorder = (*Metrics)(nil)

// Metrics observabilidad del motor de comprobantes: latencia por etapa del envío,
// resultados finales en Hacienda y asignación de consecutivos.
type Metrics struct {
	StageDuration      *prometheus.HistogramVec
	StageFailures      *prometheus.CounterVec
	Outcomes           *prometheus.CounterVec
	AllocationAttempts *prometheus.HistogramVec
	AllocationFailures *prometheus.CounterVec
}

// New registra las métricas en reg. Con nil usa el registro por defecto.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	f := promauto.With(reg)
	return &Metrics{
		StageDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "comprobantes_stage_duration_seconds",
			Help:    "Duración de cada etapa del envío a Hacienda (firma, auth, envío, estado, notificación)",
			Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}, []string{"stage"}),
		StageFailures: f.NewCounterVec(prometheus.CounterOpts{
			Name: "comprobantes_stage_failures_total",
			Help: "Etapas del envío que terminaron en error",
		}, []string{"stage"}),
		Outcomes: f.NewCounterVec(prometheus.CounterOpts{
			Name: "comprobantes_submission_outcomes_total",
			Help: "Estado final de los envíos por tipo de comprobante",
		}, []string{"kind", "state", "outcome"}),
		AllocationAttempts: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "comprobantes_consecutive_attempts",
			Help:    "Intentos necesarios para asignar un consecutivo",
			Buckets: []float64{1, 2, 3, 4, 5, 8},
		}, []string{"kind_code"}),
		AllocationFailures: f.NewCounterVec(prometheus.CounterOpts{
			Name: "comprobantes_consecutive_failures_total",
			Help: "Asignaciones de consecutivo fallidas",
		}, []string{"kind_code"}),
	}
}

// ObserveStage registra la duración de una etapa y si falló.
func (m *Metrics) ObserveStage(stage string, elapsed time.Duration, err error) {
	m.StageDuration.WithLabelValues(stage).Observe(elapsed.Seconds())
	if err != nil {
		m.StageFailures.WithLabelValues(stage).Inc()
	}
}

// ObserveOutcome registra el estado en que terminó un envío.
func (m *Metrics) ObserveOutcome(kind entity.DocumentKind, state entity.SubmissionState, outcome entity.StatusOutcome) {
	m.Outcomes.WithLabelValues(string(kind), string(state), string(outcome)).Inc()
}

// ObserveAllocation registra los intentos de una asignación de consecutivo.
func (m *Metrics) ObserveAllocation(kindCode string, attempts int, err error) {
	m.AllocationAttempts.WithLabelValues(kindCode).Observe(float64(attempts))
	if err != nil {
		m.AllocationFailures.WithLabelValues(kindCode).Inc()
	}
}
