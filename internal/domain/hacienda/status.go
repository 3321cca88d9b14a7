package hacienda

import (
	"fmt"
	"strings"

	"github.com/jhoicas/Comprobantes-api/internal/domain/entity"
)

// stateFields nombres posibles del campo de estado en la respuesta de Hacienda, en orden de prioridad.
var stateFields = []string{"ind-estado", "estado", "state", "status"}

// ExtractState obtiene el estado de la respuesta de consulta, tolerando distintos nombres de campo.
func ExtractState(payload map[string]any) string {
	for _, f := range stateFields {
		v, ok := payload[f]
		if !ok || v == nil {
			continue
		}
		s := strings.TrimSpace(fmt.Sprint(v))
		if s != "" {
			return s
		}
	}
	return ""
}

// InterpretStatus traduce el estado de Hacienda al resultado interno.
// Cualquier estado no final o desconocido (procesando, recibido, ...) queda como ProviderError.
func InterpretStatus(state string) entity.StatusOutcome {
	switch strings.ToLower(strings.TrimSpace(state)) {
	case "aceptado", "accepted":
		return entity.OutcomeAccepted
	// "error" es un resultado final de Hacienda sobre el comprobante, no una falla del
	// servicio; se trata como rechazo para no reconsultar un documento que no avanzará.
	case "rechazado", "rejected", "error", "failed":
		return entity.OutcomeRejected
	default:
		return entity.OutcomeProviderError
	}
}
