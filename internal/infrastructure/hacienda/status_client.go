package hacienda

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/jhoicas/Comprobantes-api/internal/domain"
	domhacienda "github.com/jhoicas/Comprobantes-api/internal/domain/hacienda"
	pkghacienda "github.com/jhoicas/Comprobantes-api/pkg/hacienda"
)

// StatusClient implementa pkghacienda.StatusChecker (GET sobre la URL de Location).
type StatusClient struct {
	httpClient *http.Client
}

// NewStatusClient crea el cliente. timeout <= 0 usa 15 s.
func NewStatusClient(timeout time.Duration) *StatusClient {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &StatusClient{httpClient: &http.Client{Timeout: timeout}}
}

var _ pkghacienda.StatusChecker = (*StatusClient)(nil)

// Check consulta el estado. El campo de estado se busca en ind-estado, estado, state o status;
// si viene respuesta-xml se extrae DetalleMensaje.
func (c *StatusClient) Check(ctx context.Context, location, token string) (*pkghacienda.StatusResult, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, location, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: crear request: %v", domain.ErrStatus, err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("%w: timeout o cancelación: %v", domain.ErrStatus, ctx.Err())
		}
		return nil, fmt.Errorf("%w: llamada HTTP fallida: %v", domain.ErrStatus, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return nil, fmt.Errorf("%w: leer respuesta: %v", domain.ErrStatus, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg := firstNonEmpty(resp.Header.Get("X-Error-Cause"), strings.TrimSpace(string(body)), http.StatusText(resp.StatusCode))
		return nil, fmt.Errorf("%w: HTTP %d: %s", domain.ErrStatus, resp.StatusCode, msg)
	}

	payload := map[string]any{}
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("%w: respuesta no es JSON: %v", domain.ErrStatus, err)
	}

	result := &pkghacienda.StatusResult{
		State:   domhacienda.ExtractState(payload),
		Payload: payload,
	}
	if raw, ok := payload["respuesta-xml"].(string); ok && raw != "" {
		if decoded, err := base64.StdEncoding.DecodeString(raw); err == nil {
			if msg, err := ParseResponseMessage(decoded); err == nil {
				result.Detail = msg.Detail
			}
		}
	}
	return result, nil
}
