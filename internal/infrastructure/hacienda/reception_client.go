package hacienda

import (
	"bytes"
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

// URLs de la API de recepción.
const (
	ReceptionURLStaging    = "https://api-sandbox.comprobanteselectronicos.go.cr/recepcion-sandbox/v1/recepcion"
	ReceptionURLProduction = "https://api.comprobanteselectronicos.go.cr/recepcion/v1/recepcion"
)

type receptionRequest struct {
	Key            string                         `json:"clave"`
	Date           string                         `json:"fecha"`
	Issuer         pkghacienda.IdentificationRef  `json:"emisor"`
	Recipient      *pkghacienda.IdentificationRef `json:"receptor,omitempty"`
	ComprobanteXML string                         `json:"comprobanteXml"` // Base64
}

type receptionResponse struct {
	Location string `json:"location"`
	Mensaje  string `json:"mensaje"`
	Error    string `json:"error"`
}

// ReceptionClient implementa pkghacienda.Submitter (POST /recepcion).
type ReceptionClient struct {
	receptionURL string
	httpClient   *http.Client
}

// NewReceptionClient crea el cliente. timeout <= 0 usa 30 s.
func NewReceptionClient(receptionURL string, timeout time.Duration) *ReceptionClient {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &ReceptionClient{receptionURL: receptionURL, httpClient: &http.Client{Timeout: timeout}}
}

var _ pkghacienda.Submitter = (*ReceptionClient)(nil)

// Submit envía el comprobante firmado. Hacienda responde 202 con la URL de estado en Location.
func (c *ReceptionClient) Submit(ctx context.Context, meta pkghacienda.SubmissionMetadata, signedXML []byte, token string) (*pkghacienda.SubmitResult, error) {
	payload, err := json.Marshal(receptionRequest{
		Key:            meta.Key,
		Date:           domhacienda.FormatDateTime(meta.IssuedAt),
		Issuer:         meta.Issuer,
		Recipient:      meta.Recipient,
		ComprobanteXML: base64.StdEncoding.EncodeToString(signedXML),
	})
	if err != nil {
		return nil, fmt.Errorf("%w: serializar solicitud: %v", domain.ErrSubmission, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.receptionURL, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("%w: crear request: %v", domain.ErrSubmission, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("%w: timeout o cancelación: %v", domain.ErrSubmission, ctx.Err())
		}
		return nil, fmt.Errorf("%w: llamada HTTP fallida: %v", domain.ErrSubmission, err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	var parsed receptionResponse
	_ = json.Unmarshal(body, &parsed)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg := firstNonEmpty(resp.Header.Get("X-Error-Cause"), parsed.Mensaje, parsed.Error, strings.TrimSpace(string(body)), http.StatusText(resp.StatusCode))
		return nil, fmt.Errorf("%w: HTTP %d: %s", domain.ErrSubmission, resp.StatusCode, msg)
	}

	location := firstNonEmpty(resp.Header.Get("Location"), parsed.Location)
	if location == "" {
		location = strings.TrimRight(c.receptionURL, "/") + "/" + meta.Key
	}
	return &pkghacienda.SubmitResult{HTTPStatus: resp.StatusCode, Location: location}, nil
}
