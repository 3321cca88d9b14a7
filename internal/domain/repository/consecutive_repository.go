package repository

import (
	"context"
	"errors"
)

// ErrContention la actualización atómica del contador falló por concurrencia
// (serialización o deadlock) y puede reintentarse.
var ErrContention = errors.New("contención en el contador de consecutivos")

// CounterKey identifica un contador de consecutivos.
type CounterKey struct {
	CompanyID string
	KindCode  string // 01, 03, 04
	Branch    string // 3 dígitos
	Terminal  string // 5 dígitos
}

// ConsecutiveRepository incrementa y lee el contador en una sola operación atómica.
type ConsecutiveRepository interface {
	// Next devuelve el siguiente valor (el primero es 1).
	Next(ctx context.Context, key CounterKey) (int64, error)
}
