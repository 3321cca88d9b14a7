package billing

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jhoicas/Comprobantes-api/internal/domain"
	"github.com/jhoicas/Comprobantes-api/internal/domain/entity"
	domhacienda "github.com/jhoicas/Comprobantes-api/internal/domain/hacienda"
	"github.com/jhoicas/Comprobantes-api/internal/domain/repository"
	"github.com/jhoicas/Comprobantes-api/pkg/logger"
)

// AllocatorConfig punto de venta y presupuesto de reintentos del asignador.
type AllocatorConfig struct {
	Branch      string        // Vacío = 001
	Terminal    string        // Vacío = 00001
	MaxAttempts int           // <= 0 usa 5
	Backoff     time.Duration // Espera base entre reintentos; crece linealmente
}

// ConsecutiveAllocator asigna consecutivos únicos por (empresa, tipo de comprobante).
// El incremento lo hace el repositorio en una sola sentencia atómica; aquí solo se
// reintenta la contención transitoria y se arma el consecutivo de 20 dígitos.
type ConsecutiveAllocator struct {
	cfg     AllocatorConfig
	metrics MetricsRecorder
	log     *logger.Logger
}

// NewConsecutiveAllocator crea el asignador. metrics puede ser nil.
func NewConsecutiveAllocator(cfg AllocatorConfig, metrics MetricsRecorder, log *logger.Logger) *ConsecutiveAllocator {
	if cfg.Branch == "" {
		cfg.Branch = domhacienda.DefaultBranch
	}
	if cfg.Terminal == "" {
		cfg.Terminal = domhacienda.DefaultTerminal
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 5
	}
	if metrics == nil {
		metrics = nopMetrics{}
	}
	return &ConsecutiveAllocator{cfg: cfg, metrics: metrics, log: log}
}

// NextSequence devuelve el siguiente consecutivo para la empresa y el tipo indicados.
// counters debe pertenecer a la misma transacción en la que se guarda el comprobante.
// Agotado el presupuesto de reintentos, o si la numeración se desborda, devuelve ErrAllocation.
func (a *ConsecutiveAllocator) NextSequence(ctx context.Context, counters repository.ConsecutiveRepository, companyID string, kind entity.DocumentKind) (string, error) {
	if companyID == "" || !kind.Valid() {
		return "", fmt.Errorf("%w: empresa y tipo de comprobante requeridos", domain.ErrAllocation)
	}
	key := repository.CounterKey{
		CompanyID: companyID,
		KindCode:  kind.Code(),
		Branch:    a.cfg.Branch,
		Terminal:  a.cfg.Terminal,
	}

	var lastErr error
	for attempt := 1; attempt <= a.cfg.MaxAttempts; attempt++ {
		value, err := counters.Next(ctx, key)
		if err == nil {
			if value > domhacienda.MaxSequenceNumber {
				err = fmt.Errorf("%w: numeración agotada para tipo %s (%d)", domain.ErrAllocation, key.KindCode, value)
				a.metrics.ObserveAllocation(key.KindCode, attempt, err)
				return "", err
			}
			seq, err := domhacienda.FormatSequence(key.Branch, key.Terminal, key.KindCode, value)
			if err != nil {
				err = fmt.Errorf("%w: %v", domain.ErrAllocation, err)
			}
			a.metrics.ObserveAllocation(key.KindCode, attempt, err)
			return seq, err
		}
		lastErr = err
		if !errors.Is(err, repository.ErrContention) {
			break
		}
		a.log.Debug().Str("company_id", companyID).Str("tipo", key.KindCode).Int("intento", attempt).
			Msg("consecutivo: contención, reintentando")
		if attempt < a.cfg.MaxAttempts {
			if werr := wait(ctx, a.cfg.Backoff*time.Duration(attempt)); werr != nil {
				lastErr = werr
				break
			}
		}
	}

	err := fmt.Errorf("%w: %v", domain.ErrAllocation, lastErr)
	a.metrics.ObserveAllocation(key.KindCode, a.cfg.MaxAttempts, err)
	a.log.Error().Err(lastErr).Str("company_id", companyID).Str("tipo", key.KindCode).
		Msg("consecutivo: no se pudo asignar")
	return "", err
}

// wait espera d o hasta que se cancele ctx.
func wait(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
