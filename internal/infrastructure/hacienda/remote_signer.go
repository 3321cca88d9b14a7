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
	pkghacienda "github.com/jhoicas/Comprobantes-api/pkg/hacienda"
)

type signingRequest struct {
	XML               string `json:"xml"`
	CertificateBase64 string `json:"certificate_base64"`
	Password          string `json:"password"`
}

type signingResponse struct {
	Success   bool   `json:"success"`
	SignedXML string `json:"signed_xml"`
	Error     string `json:"error"`
	Message   string `json:"message"`
}

// RemoteSigner firma comprobantes a través de un servicio HTTP externo.
type RemoteSigner struct {
	url        string
	apiKey     string
	httpClient *http.Client
}

// NewRemoteSigner crea el cliente del servicio de firma. timeout <= 0 usa 30 s.
func NewRemoteSigner(url, apiKey string, timeout time.Duration) *RemoteSigner {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &RemoteSigner{url: url, apiKey: apiKey, httpClient: &http.Client{Timeout: timeout}}
}

var _ pkghacienda.Signer = (*RemoteSigner)(nil)

// Sign envía XML, certificado (.p12 en Base64) y contraseña; devuelve el XML firmado.
func (s *RemoteSigner) Sign(ctx context.Context, xmlBytes, certificate []byte, password string) ([]byte, error) {
	if len(certificate) == 0 {
		return nil, fmt.Errorf("%w: certificado no configurado", domain.ErrSigning)
	}
	payload, err := json.Marshal(signingRequest{
		XML:               string(xmlBytes),
		CertificateBase64: base64.StdEncoding.EncodeToString(certificate),
		Password:          password,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: serializar solicitud: %v", domain.ErrSigning, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("%w: crear request: %v", domain.ErrSigning, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-API-Key", s.apiKey)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("%w: timeout o cancelación: %v", domain.ErrSigning, ctx.Err())
		}
		return nil, fmt.Errorf("%w: llamada HTTP fallida: %v", domain.ErrSigning, err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("%w: HTTP %d: %s", domain.ErrSigning, resp.StatusCode,
			firstNonEmpty(strings.TrimSpace(string(body)), http.StatusText(resp.StatusCode)))
	}

	var sr signingResponse
	if err := json.Unmarshal(body, &sr); err != nil {
		return nil, fmt.Errorf("%w: respuesta inválida: %v", domain.ErrSigning, err)
	}
	if !sr.Success || sr.SignedXML == "" {
		return nil, fmt.Errorf("%w: %s", domain.ErrSigning, firstNonEmpty(sr.Error, sr.Message, "el servicio no devolvió XML firmado"))
	}
	return []byte(sr.SignedXML), nil
}
