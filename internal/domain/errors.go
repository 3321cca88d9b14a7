package domain

import (
	"errors"
	"fmt"
	"strings"
)

// Errores de dominio (sin dependencias externas).
var (
	ErrNotFound     = errors.New("recurso no encontrado")
	ErrInvalidInput = errors.New("entrada inválida")
	ErrUnauthorized = errors.New("no autorizado")
	ErrForbidden    = errors.New("acceso denegado")
	ErrConflict     = errors.New("conflicto con el estado actual")
	ErrDuplicate    = errors.New("registro duplicado")
)

// Errores del motor de comprobantes electrónicos.
var (
	ErrValidation   = errors.New("validación del comprobante")
	ErrAllocation   = errors.New("asignación de consecutivo")
	ErrSchema       = errors.New("esquema del comprobante")
	ErrSigning      = errors.New("firma del comprobante")
	ErrAuth         = errors.New("autenticación con Hacienda")
	ErrSubmission   = errors.New("envío a Hacienda")
	ErrStatus       = errors.New("consulta de estado en Hacienda")
	ErrNotification = errors.New("notificación del comprobante")
)

// ValidationError devuelve un error de validación con detalle.
func ValidationError(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

// SchemaError devuelve un error de esquema para el campo indicado.
func SchemaError(field, format string, args ...any) error {
	return fmt.Errorf("%w: %s: %s", ErrSchema, field, fmt.Sprintf(format, args...))
}

// StageError describe el fallo de una etapa del envío a Hacienda.
// Kind es uno de los errores sentinela (ErrSigning, ErrAuth, ...) y Message el texto del proveedor.
type StageError struct {
	Stage   string
	Kind    error
	Message string
}

func (e *StageError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("%s: %v", e.Stage, e.Kind)
	}
	return fmt.Sprintf("%s: %v: %s", e.Stage, e.Kind, e.Message)
}

func (e *StageError) Unwrap() error { return e.Kind }

// NewStageError construye un StageError a partir del error de un colaborador.
// Si cause ya envuelve a kind, el prefijo repetido se quita del mensaje.
func NewStageError(stage string, kind error, cause error) *StageError {
	msg := ""
	if cause != nil {
		msg = strings.TrimPrefix(cause.Error(), kind.Error()+": ")
	}
	return &StageError{Stage: stage, Kind: kind, Message: msg}
}
