package hacienda

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/jhoicas/Comprobantes-api/internal/domain"
	pkghacienda "github.com/jhoicas/Comprobantes-api/pkg/hacienda"
)

// URLs del IdP de Hacienda.
const (
	AuthURLStaging    = "https://idp.comprobanteselectronicos.go.cr/auth/realms/rut-stag/protocol/openid-connect/token"
	AuthURLProduction = "https://idp.comprobanteselectronicos.go.cr/auth/realms/rut/protocol/openid-connect/token"
)

type tokenResponse struct {
	AccessToken      string `json:"access_token"`
	ExpiresIn        int    `json:"expires_in"`
	TokenType        string `json:"token_type"`
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description"`
}

// AuthClient implementa pkghacienda.Authenticator contra el IdP (OpenID Connect, password grant).
type AuthClient struct {
	authURL    string
	clientID   string // Se usa cuando la empresa no tiene client_id propio
	httpClient *http.Client
}

// NewAuthClient crea el cliente. timeout <= 0 usa 15 s.
func NewAuthClient(authURL string, timeout time.Duration) *AuthClient {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &AuthClient{authURL: authURL, httpClient: &http.Client{Timeout: timeout}}
}

// WithClientID fija el client_id por defecto del ambiente (api-stag | api-prod).
func (c *AuthClient) WithClientID(clientID string) *AuthClient {
	c.clientID = clientID
	return c
}

var _ pkghacienda.Authenticator = (*AuthClient)(nil)

// Authenticate solicita un token de acceso con las credenciales ATV.
func (c *AuthClient) Authenticate(ctx context.Context, creds pkghacienda.Credentials) (*pkghacienda.Token, error) {
	if creds.ClientID == "" {
		creds.ClientID = c.clientID
	}
	if creds.Username == "" || creds.Password == "" || creds.ClientID == "" {
		return nil, fmt.Errorf("%w: credenciales ATV incompletas", domain.ErrAuth)
	}
	form := url.Values{}
	form.Set("grant_type", "password")
	form.Set("client_id", creds.ClientID)
	form.Set("username", creds.Username)
	form.Set("password", creds.Password)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.authURL, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("%w: crear request: %v", domain.ErrAuth, err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("%w: timeout o cancelación: %v", domain.ErrAuth, ctx.Err())
		}
		return nil, fmt.Errorf("%w: llamada HTTP fallida: %v", domain.ErrAuth, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("%w: leer respuesta: %v", domain.ErrAuth, err)
	}

	var tr tokenResponse
	jsonErr := json.Unmarshal(body, &tr)
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg := strings.TrimSpace(string(body))
		if jsonErr == nil && (tr.ErrorDescription != "" || tr.Error != "") {
			msg = firstNonEmpty(tr.ErrorDescription, tr.Error)
		}
		return nil, fmt.Errorf("%w: HTTP %d: %s", domain.ErrAuth, resp.StatusCode, firstNonEmpty(msg, http.StatusText(resp.StatusCode)))
	}
	if jsonErr != nil {
		return nil, fmt.Errorf("%w: respuesta inválida: %v", domain.ErrAuth, jsonErr)
	}
	if tr.AccessToken == "" {
		return nil, fmt.Errorf("%w: respuesta sin access_token", domain.ErrAuth)
	}

	expiresIn := time.Duration(tr.ExpiresIn) * time.Second
	if expiresIn <= 0 {
		expiresIn = expiryFromJWT(tr.AccessToken, time.Now())
	}
	return &pkghacienda.Token{AccessToken: tr.AccessToken, ExpiresIn: expiresIn}, nil
}

// expiryFromJWT lee el claim exp del token (sin verificar la firma) cuando el IdP no informa expires_in.
func expiryFromJWT(raw string, now time.Time) time.Duration {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(raw, claims); err != nil {
		return 0
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return 0
	}
	if d := exp.Sub(now); d > 0 {
		return d
	}
	return 0
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
