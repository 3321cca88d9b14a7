package postgres

import (
	"context"
	"fmt"

	"github.com/jhoicas/Comprobantes-api/internal/domain/repository"
)

var _ repository.ConsecutiveRepository = (*ConsecutiveRepo)(nil)

// ConsecutiveRepo contador por (empresa, tipo, sucursal, terminal) sobre PostgreSQL.
// El incremento es un único UPSERT atómico; dos llamadas concurrentes nunca obtienen el mismo valor.
type ConsecutiveRepo struct {
	q Querier
}

// NewConsecutiveRepository construye el adaptador. Pasar pool o tx (Querier).
func NewConsecutiveRepository(q Querier) *ConsecutiveRepo {
	return &ConsecutiveRepo{q: q}
}

// Next incrementa y devuelve el contador. Corre en un savepoint para que un fallo transitorio
// (deadlock, serialización) no aborte la transacción externa y el llamador pueda reintentar.
func (r *ConsecutiveRepo) Next(ctx context.Context, key repository.CounterKey) (int64, error) {
	const query = `
		INSERT INTO consecutive_counters (company_id, kind_code, branch, terminal, value, updated_at)
		VALUES ($1, $2, $3, $4, 1, now())
		ON CONFLICT (company_id, kind_code, branch, terminal)
		DO UPDATE SET value = consecutive_counters.value + 1, updated_at = now()
		RETURNING value`

	sp, err := r.q.Begin(ctx)
	if err != nil {
		if isContention(err) {
			return 0, repository.ErrContention
		}
		return 0, fmt.Errorf("consecutivo: savepoint: %w", err)
	}
	defer func() { _ = sp.Rollback(ctx) }()

	var value int64
	if err := sp.QueryRow(ctx, query, key.CompanyID, key.KindCode, key.Branch, key.Terminal).Scan(&value); err != nil {
		if isContention(err) {
			return 0, repository.ErrContention
		}
		return 0, fmt.Errorf("consecutivo: incrementar: %w", err)
	}
	if err := sp.Commit(ctx); err != nil {
		if isContention(err) {
			return 0, repository.ErrContention
		}
		return 0, fmt.Errorf("consecutivo: liberar savepoint: %w", err)
	}
	return value, nil
}
