package metrics_test

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"

	"github.com/jhoicas/Comprobantes-api/internal/domain/entity"
	"github.com/jhoicas/Comprobantes-api/internal/infrastructure/metrics"
)

func TestMetrics_Registra(t *testing.T) {
	m := metrics.New(prometheus.NewRegistry())

	m.ObserveStage(entity.StageSigning, 120*time.Millisecond, nil)
	m.ObserveStage(entity.StageSubmission, time.Second, errors.New("HTTP 400"))
	m.ObserveOutcome(entity.KindInvoice, entity.StateAccepted, entity.OutcomeAccepted)
	m.ObserveOutcome(entity.KindInvoice, entity.StateAccepted, entity.OutcomeAccepted)
	m.ObserveAllocation("01", 3, nil)
	m.ObserveAllocation("04", 5, errors.New("agotado"))

	assert.Equal(t, 0.0, testutil.ToFloat64(m.StageFailures.WithLabelValues(entity.StageSigning)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.StageFailures.WithLabelValues(entity.StageSubmission)))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.Outcomes.WithLabelValues("invoice", "ACCEPTED", "ACCEPTED")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.AllocationFailures.WithLabelValues("04")))
	assert.Equal(t, 2, testutil.CollectAndCount(m.AllocationAttempts))
}

func TestMetrics_RegistrosIndependientes(t *testing.T) {
	assert.NotPanics(t, func() {
		metrics.New(prometheus.NewRegistry())
		metrics.New(prometheus.NewRegistry())
	})
}
