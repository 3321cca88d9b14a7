package hacienda

import (
	"fmt"
	"strconv"
)

// Códigos mínimos válidos usados cuando la conversión no produce un valor correcto.
const (
	defaultProvince = "1"
	defaultRelative = "01"
)

// RelativeLocation ubicación con la numeración relativa del esquema.
type RelativeLocation struct {
	Province string // 1 dígito
	Canton   string // 2 dígitos
	District string // 2 dígitos
}

// ToRelative convierte códigos absolutos (provincia "3", cantón "302", distrito "30205")
// a los relativos del esquema ("3", "02", "05"). Un resultado inválido o negativo
// se sustituye por el mínimo válido.
func ToRelative(province, canton, district string) RelativeLocation {
	out := RelativeLocation{Province: defaultProvince, Canton: defaultRelative, District: defaultRelative}

	p, err := strconv.Atoi(province)
	if err == nil && p >= 1 && p <= 7 {
		out.Province = strconv.Itoa(p)
	}
	c, cErr := strconv.Atoi(canton)
	if err == nil && cErr == nil {
		out.Canton = relative(c - p*100)
	}
	d, dErr := strconv.Atoi(district)
	if cErr == nil && dErr == nil {
		out.District = relative(d - c*100)
	}
	return out
}

// ToAbsolute convierte la numeración relativa del esquema a códigos absolutos.
func ToAbsolute(province, canton, district string) (string, string, string) {
	p, err := strconv.Atoi(province)
	if err != nil || p < 1 || p > 7 {
		p = 1
	}
	c, err := strconv.Atoi(canton)
	if err != nil || c < 1 || c > 99 {
		c = 1
	}
	d, err := strconv.Atoi(district)
	if err != nil || d < 1 || d > 99 {
		d = 1
	}
	absCanton := p*100 + c
	return strconv.Itoa(p), strconv.Itoa(absCanton), strconv.Itoa(absCanton*100 + d)
}

func relative(n int) string {
	if n < 1 || n > 99 {
		return defaultRelative
	}
	return fmt.Sprintf("%02d", n)
}
