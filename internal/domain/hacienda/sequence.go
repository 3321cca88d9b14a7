package hacienda

import (
	"fmt"
	"strconv"

	"github.com/jhoicas/Comprobantes-api/internal/domain"
)

// MaxSequenceNumber último número representable en los 10 dígitos del consecutivo.
const MaxSequenceNumber int64 = 9_999_999_999

// Valores por defecto del punto de venta.
const (
	DefaultBranch   = "001"   // Casa matriz
	DefaultTerminal = "00001" // Terminal o punto de venta
)

// SequenceParts campos del consecutivo.
type SequenceParts struct {
	Branch   string // 3 dígitos
	Terminal string // 5 dígitos
	KindCode string // 2 dígitos
	Number   int64  // 10 dígitos
}

// FormatSequence arma el consecutivo de 20 dígitos:
// sucursal(3) + terminal(5) + tipo de comprobante(2) + numeración(10).
func FormatSequence(branch, terminal, kindCode string, number int64) (string, error) {
	b, err := padDigits("sucursal", branch, 3)
	if err != nil {
		return "", err
	}
	t, err := padDigits("terminal", terminal, 5)
	if err != nil {
		return "", err
	}
	if !isDigits(kindCode) || len(kindCode) != 2 {
		return "", fmt.Errorf("%w: tipo de comprobante %q inválido", domain.ErrInvalidInput, kindCode)
	}
	if number < 1 || number > MaxSequenceNumber {
		return "", fmt.Errorf("%w: numeración %d fuera de rango", domain.ErrInvalidInput, number)
	}
	return fmt.Sprintf("%s%s%s%010d", b, t, kindCode, number), nil
}

// ParseSequence descompone un consecutivo de 20 dígitos.
func ParseSequence(seq string) (SequenceParts, error) {
	if len(seq) != SequenceLength || !isDigits(seq) {
		return SequenceParts{}, fmt.Errorf("%w: el consecutivo debe tener %d dígitos", domain.ErrInvalidInput, SequenceLength)
	}
	n, err := strconv.ParseInt(seq[10:], 10, 64)
	if err != nil {
		return SequenceParts{}, fmt.Errorf("%w: numeración del consecutivo: %v", domain.ErrInvalidInput, err)
	}
	return SequenceParts{
		Branch:   seq[0:3],
		Terminal: seq[3:8],
		KindCode: seq[8:10],
		Number:   n,
	}, nil
}
