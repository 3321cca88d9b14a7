// Package hacienda: puertos de los servicios de Hacienda (autenticación, recepción y estado).

package hacienda

import (
	"context"
	"time"
)

// Credentials credenciales ATV de la empresa emisora.
type Credentials struct {
	ClientID string // api-stag | api-prod
	Username string
	Password string
}

// Token token de acceso emitido por el IdP de Hacienda.
type Token struct {
	AccessToken string
	ExpiresIn   time.Duration
}

// Authenticator obtiene tokens de acceso (grant_type=password).
type Authenticator interface {
	Authenticate(ctx context.Context, creds Credentials) (*Token, error)
}

// IdentificationRef tipo y número de identificación enviados junto al comprobante.
type IdentificationRef struct {
	Type   string `json:"tipoIdentificacion"`
	Number string `json:"numeroIdentificacion"`
}

// SubmissionMetadata datos del comprobante requeridos por la API de recepción.
type SubmissionMetadata struct {
	Key       string
	IssuedAt  time.Time
	Issuer    IdentificationRef
	Recipient *IdentificationRef // nil en tiquetes sin receptor
}

// SubmitResult respuesta de la API de recepción.
type SubmitResult struct {
	HTTPStatus int
	Location   string // URL de consulta de estado
}

// Submitter envía el comprobante firmado a la API de recepción.
type Submitter interface {
	Submit(ctx context.Context, meta SubmissionMetadata, signedXML []byte, token string) (*SubmitResult, error)
}

// StatusResult respuesta de la consulta de estado.
type StatusResult struct {
	State   string         // Valor de ind-estado (o equivalente)
	Detail  string         // DetalleMensaje de respuesta-xml, si viene
	Payload map[string]any // Respuesta completa
}

// StatusChecker consulta el estado de un comprobante en la URL devuelta por la recepción.
type StatusChecker interface {
	Check(ctx context.Context, location, token string) (*StatusResult, error)
}
