package hacienda

import (
	"fmt"
	"unicode"
)

// longitudes permitidas por tipo de identificación.
var idLengths = map[string][2]int{
	IDTypePhysical:  {9, 9},
	IDTypeJuridical: {10, 10},
	IDTypeDIMEX:     {11, 12},
	IDTypeNITE:      {10, 10},
}

// NormalizeTaxID elimina guiones, espacios y cualquier carácter no numérico.
// "3-101-123456" -> "3101123456".
func NormalizeTaxID(taxID string) string {
	return string(extractDigits(taxID))
}

// ValidateTaxID valida el número de identificación según su tipo (01 física, 02 jurídica, 03 DIMEX, 04 NITE).
func ValidateTaxID(idType, taxID string) error {
	bounds, ok := idLengths[idType]
	if !ok {
		return fmt.Errorf("hacienda: tipo de identificación %q no soportado", idType)
	}
	digits := extractDigits(taxID)
	if len(digits) < bounds[0] || len(digits) > bounds[1] {
		if bounds[0] == bounds[1] {
			return fmt.Errorf("hacienda: identificación tipo %s debe tener %d dígitos, se encontraron %d", idType, bounds[0], len(digits))
		}
		return fmt.Errorf("hacienda: identificación tipo %s debe tener entre %d y %d dígitos, se encontraron %d", idType, bounds[0], bounds[1], len(digits))
	}
	if idType == IDTypePhysical && digits[0] == '0' {
		return fmt.Errorf("hacienda: la cédula física no puede iniciar con cero")
	}
	return nil
}

func extractDigits(s string) []byte {
	var out []byte
	for _, r := range s {
		if unicode.IsDigit(r) && r < unicode.MaxASCII {
			out = append(out, byte(r))
		}
	}
	return out
}
