package hacienda

import "github.com/shopspring/decimal"

// AmountDecimals máximo de decimales aceptado por el esquema.
const AmountDecimals = 5

// FormatAmount formatea un monto con a lo sumo 5 decimales y sin ceros sobrantes.
// Nunca usa notación científica: 2260.00000 -> "2260", 0.123456 -> "0.12346".
func FormatAmount(d decimal.Decimal) string {
	return d.Round(AmountDecimals).String()
}

// RoundAmount redondea a la precisión del esquema.
func RoundAmount(d decimal.Decimal) decimal.Decimal {
	return d.Round(AmountDecimals)
}
