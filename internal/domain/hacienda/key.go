// Package hacienda contiene las reglas de dominio de los comprobantes electrónicos
// de Costa Rica (Hacienda v4.4): clave, consecutivo, exoneraciones, ubicación y estados.
package hacienda

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/binary"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/jhoicas/Comprobantes-api/internal/domain"
	pkghacienda "github.com/jhoicas/Comprobantes-api/pkg/hacienda"
)

// Anchos de los campos de la clave (50 dígitos).
const (
	KeyLength          = 50
	countryWidth       = 3
	taxIDWidth         = 12
	SequenceLength     = 20
	securityCodeLength = 8
)

// CostaRica zona horaria fija de Costa Rica (UTC-6, sin horario de verano).
var CostaRica = time.FixedZone("America/Costa_Rica", -6*60*60)

// DateTimeLayout formato de fecha con desplazamiento explícito exigido por Hacienda.
const DateTimeLayout = "2006-01-02T15:04:05-07:00"

// FormatDateTime formatea una fecha en hora de Costa Rica con desplazamiento explícito.
func FormatDateTime(t time.Time) string {
	return t.In(CostaRica).Format(DateTimeLayout)
}

// KeyParams datos para construir la clave de un comprobante.
type KeyParams struct {
	IssuedAt    time.Time
	IssuerTaxID string // Cédula del emisor (con o sin guiones)
	Sequence    string // Consecutivo de 20 dígitos
	CountryCode string // Vacío = 506
	Situation   string // Vacío = 1 (normal)
}

// SecurityCodeSource provee el código de seguridad de 8 dígitos.
type SecurityCodeSource interface {
	SecurityCode(p KeyParams) (string, error)
}

// RandomSecurityCode genera códigos con crypto/rand.
type RandomSecurityCode struct{}

func (RandomSecurityCode) SecurityCode(KeyParams) (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(100_000_000))
	if err != nil {
		return "", fmt.Errorf("código de seguridad: %w", err)
	}
	return fmt.Sprintf("%08d", n.Int64()), nil
}

// HMACSecurityCode deriva el código de forma determinista a partir de la clave secreta
// y del resto de campos: el mismo comprobante produce siempre el mismo código.
type HMACSecurityCode struct {
	Secret []byte
}

func (h HMACSecurityCode) SecurityCode(p KeyParams) (string, error) {
	if len(h.Secret) == 0 {
		return "", fmt.Errorf("%w: secreto del código de seguridad vacío", domain.ErrInvalidInput)
	}
	mac := hmac.New(sha256.New, h.Secret)
	mac.Write([]byte(p.CountryCode + "|" + p.IssuedAt.In(CostaRica).Format("020106") + "|" + p.IssuerTaxID + "|" + p.Sequence + "|" + p.Situation))
	sum := mac.Sum(nil)
	return fmt.Sprintf("%08d", binary.BigEndian.Uint64(sum[:8])%100_000_000), nil
}

// FixedSecurityCode devuelve siempre el mismo código (pruebas).
type FixedSecurityCode string

func (f FixedSecurityCode) SecurityCode(KeyParams) (string, error) { return string(f), nil }

// KeyGenerator construye la clave numérica de 50 dígitos.
type KeyGenerator struct {
	codes SecurityCodeSource
}

// NewKeyGenerator crea el generador. Si codes es nil usa crypto/rand.
func NewKeyGenerator(codes SecurityCodeSource) *KeyGenerator {
	if codes == nil {
		codes = RandomSecurityCode{}
	}
	return &KeyGenerator{codes: codes}
}

// Generate arma la clave:
// país(3) + día(2) + mes(2) + año(2) + cédula(12) + consecutivo(20) + situación(1) + código de seguridad(8).
// Ningún campo se trunca: si no cabe en su ancho se devuelve ErrInvalidInput.
func (g *KeyGenerator) Generate(p KeyParams) (string, error) {
	if p.IssuedAt.IsZero() {
		return "", fmt.Errorf("%w: fecha de emisión requerida", domain.ErrInvalidInput)
	}
	if p.CountryCode == "" {
		p.CountryCode = pkghacienda.CountryCodeCR
	}
	if p.Situation == "" {
		p.Situation = pkghacienda.SituationNormal
	}
	p.IssuerTaxID = strings.ReplaceAll(strings.TrimSpace(p.IssuerTaxID), "-", "")

	country, err := padDigits("código de país", p.CountryCode, countryWidth)
	if err != nil {
		return "", err
	}
	if p.IssuerTaxID == "" {
		return "", fmt.Errorf("%w: cédula del emisor requerida", domain.ErrInvalidInput)
	}
	taxID, err := padDigits("cédula del emisor", p.IssuerTaxID, taxIDWidth)
	if err != nil {
		return "", err
	}
	if !isDigits(p.Sequence) || len(p.Sequence) != SequenceLength {
		return "", fmt.Errorf("%w: el consecutivo debe tener %d dígitos, recibido %q", domain.ErrInvalidInput, SequenceLength, p.Sequence)
	}
	switch p.Situation {
	case pkghacienda.SituationNormal, pkghacienda.SituationContingency, pkghacienda.SituationNoInternet:
	default:
		return "", fmt.Errorf("%w: situación %q inválida (1, 2 o 3)", domain.ErrInvalidInput, p.Situation)
	}

	code, err := g.codes.SecurityCode(p)
	if err != nil {
		return "", err
	}
	if !isDigits(code) || len(code) != securityCodeLength {
		return "", fmt.Errorf("%w: el código de seguridad debe tener %d dígitos, recibido %q", domain.ErrInvalidInput, securityCodeLength, code)
	}

	var b strings.Builder
	b.Grow(KeyLength)
	b.WriteString(country)
	b.WriteString(p.IssuedAt.In(CostaRica).Format("020106"))
	b.WriteString(taxID)
	b.WriteString(p.Sequence)
	b.WriteString(p.Situation)
	b.WriteString(code)

	key := b.String()
	if len(key) != KeyLength {
		return "", fmt.Errorf("%w: la clave tiene %d dígitos", domain.ErrInvalidInput, len(key))
	}
	return key, nil
}

// KeyParts campos de una clave.
type KeyParts struct {
	CountryCode  string
	Day          string
	Month        string
	Year         string
	IssuerTaxID  string // 12 dígitos, con ceros a la izquierda
	Sequence     string
	Situation    string
	SecurityCode string
}

// ParseKey descompone una clave de 50 dígitos en sus campos.
func ParseKey(key string) (KeyParts, error) {
	if len(key) != KeyLength || !isDigits(key) {
		return KeyParts{}, fmt.Errorf("%w: la clave debe tener %d dígitos", domain.ErrInvalidInput, KeyLength)
	}
	return KeyParts{
		CountryCode:  key[0:3],
		Day:          key[3:5],
		Month:        key[5:7],
		Year:         key[7:9],
		IssuerTaxID:  key[9:21],
		Sequence:     key[21:41],
		Situation:    key[41:42],
		SecurityCode: key[42:50],
	}, nil
}

func padDigits(field, value string, width int) (string, error) {
	if !isDigits(value) {
		return "", fmt.Errorf("%w: %s debe ser numérico, recibido %q", domain.ErrInvalidInput, field, value)
	}
	if len(value) > width {
		return "", fmt.Errorf("%w: %s excede %d dígitos", domain.ErrInvalidInput, field, width)
	}
	return strings.Repeat("0", width-len(value)) + value, nil
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}
