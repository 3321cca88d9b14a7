package hacienda

import (
	"net/url"
	"strings"
)

// Hosts permitidos por defecto para la consulta de estado.
var DefaultStatusHosts = []string{"comprobanteselectronicos.go.cr"}

// LocationPolicy valida la URL de estado devuelta por la API de recepción
// antes de enviarle el token de acceso.
type LocationPolicy struct {
	hosts    []string
	prefixes []string
}

// NewLocationPolicy crea la política. Un host permite el dominio y sus subdominios.
func NewLocationPolicy(hosts []string) *LocationPolicy {
	if len(hosts) == 0 {
		hosts = DefaultStatusHosts
	}
	clean := make([]string, 0, len(hosts))
	for _, h := range hosts {
		if h = strings.ToLower(strings.TrimSpace(h)); h != "" {
			clean = append(clean, h)
		}
	}
	return &LocationPolicy{hosts: clean, prefixes: []string{"/recepcion/", "/recepcion-sandbox/"}}
}

// Allowed indica si la URL es https, su host está permitido y la ruta corresponde a la recepción.
func (p *LocationPolicy) Allowed(raw string) bool {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil || u.Scheme != "https" || u.User != nil {
		return false
	}
	host := strings.ToLower(u.Hostname())
	if host == "" || !p.allowedPath(u.EscapedPath()) {
		return false
	}
	for _, h := range p.hosts {
		if host == h || strings.HasSuffix(host, "."+h) {
			return true
		}
	}
	return false
}

// allowedPath exige que la ruta empiece por un segmento completo de recepción.
func (p *LocationPolicy) allowedPath(path string) bool {
	for _, prefix := range p.prefixes {
		if strings.HasPrefix(path, prefix) {
			return true
		}
	}
	return false
}
