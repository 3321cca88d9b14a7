package hacienda

import (
	"github.com/shopspring/decimal"

	"github.com/jhoicas/Comprobantes-api/internal/domain"
	"github.com/jhoicas/Comprobantes-api/internal/domain/entity"
	pkghacienda "github.com/jhoicas/Comprobantes-api/pkg/hacienda"
)

var hundred = decimal.NewFromInt(100)

// RawTax impuesto tal como llega de la venta. Amount es el monto original informado (puede ser cero).
type RawTax struct {
	Code        string
	RateCode    string
	RatePercent decimal.Decimal
	Amount      decimal.Decimal
}

// RawLine línea de venta antes del cálculo.
type RawLine struct {
	LineNumber  int
	CatalogCode string
	Quantity    decimal.Decimal
	Unit        string
	Description string
	UnitPrice   decimal.Decimal
	Tax         *RawTax // nil = línea exenta
}

// ComputeLine calcula montos e impuesto de una línea.
//
// Sin exoneración: Monto = base * tarifa / 100, ImpuestoNeto = Monto, Total = base + Monto.
// Con exoneración: Monto es el informado o, si es cero, el teórico; ImpuestoNeto = 0 y Total = base.
func ComputeLine(raw RawLine, exo *entity.Exoneration) (entity.LineItem, error) {
	if raw.Quantity.LessThanOrEqual(decimal.Zero) {
		return entity.LineItem{}, domain.ValidationError("línea %d: la cantidad debe ser mayor a cero", raw.LineNumber)
	}
	if raw.UnitPrice.IsNegative() {
		return entity.LineItem{}, domain.ValidationError("línea %d: el precio unitario no puede ser negativo", raw.LineNumber)
	}
	if exo != nil && raw.Tax == nil {
		return entity.LineItem{}, domain.ValidationError("línea %d: exoneración sin impuesto", raw.LineNumber)
	}

	gross := RoundAmount(raw.Quantity.Mul(raw.UnitPrice))
	line := entity.LineItem{
		LineNumber:  raw.LineNumber,
		CatalogCode: raw.CatalogCode,
		Quantity:    raw.Quantity,
		Unit:        raw.Unit,
		Description: raw.Description,
		UnitPrice:   raw.UnitPrice,
		GrossAmount: gross,
		TaxableBase: gross,
		NetTax:      decimal.Zero,
		LineTotal:   gross,
	}
	if raw.Tax == nil {
		return line, nil
	}
	if raw.Tax.RatePercent.IsNegative() {
		return entity.LineItem{}, domain.ValidationError("línea %d: tarifa negativa", raw.LineNumber)
	}

	theoretical := RoundAmount(line.TaxableBase.Mul(raw.Tax.RatePercent).Div(hundred))
	tax := &entity.Tax{
		Code:        raw.Tax.Code,
		RateCode:    raw.Tax.RateCode,
		RatePercent: raw.Tax.RatePercent,
		Amount:      theoretical,
	}
	if tax.Code == "" {
		tax.Code = pkghacienda.TaxCodeIVA
	}
	line.Tax = tax

	if exo == nil {
		line.NetTax = tax.Amount
		line.LineTotal = line.TaxableBase.Add(tax.Amount)
		return line, nil
	}

	if !raw.Tax.Amount.IsZero() {
		tax.Amount = RoundAmount(raw.Tax.Amount)
	}
	applied := *exo
	if applied.ExemptedRate.IsZero() {
		applied.ExemptedRate = tax.RatePercent
	}
	if applied.ExemptedAmount.IsZero() {
		applied.ExemptedAmount = tax.Amount
	}
	tax.Exoneration = &applied
	line.NetTax = decimal.Zero
	line.LineTotal = line.TaxableBase
	return line, nil
}

// SummaryOptions datos externos para el resumen.
type SummaryOptions struct {
	CurrencyCode string          // Vacío = CRC
	ExchangeRate decimal.Decimal // Cero = 1
	// FallbackExonerated total exonerado informado externamente; se usa si el calculado es cero.
	FallbackExonerated decimal.Decimal
}

// ComputeSummary agrega los totales del comprobante.
// Si alguna línea está exonerada, los totales gravados y el impuesto se fuerzan a cero,
// la base de las líneas exoneradas pasa a TotalExonerado y se omite el desglose de impuestos.
func ComputeSummary(lines []entity.LineItem, opts SummaryOptions) entity.Summary {
	s := entity.Summary{
		CurrencyCode: opts.CurrencyCode,
		ExchangeRate: opts.ExchangeRate,
	}
	if s.CurrencyCode == "" {
		s.CurrencyCode = "CRC"
	}
	if s.ExchangeRate.IsZero() {
		s.ExchangeRate = decimal.NewFromInt(1)
	}

	exonerated := false
	for _, l := range lines {
		if l.Exonerated() {
			exonerated = true
			break
		}
	}

	type breakdownKey struct{ code, rate string }
	var order []breakdownKey
	breakdown := map[breakdownKey]decimal.Decimal{}

	for _, l := range lines {
		service := pkghacienda.IsServiceUnit(l.Unit)
		switch {
		case l.Exonerated():
			if service {
				s.TotalServExonerated = s.TotalServExonerated.Add(l.TaxableBase)
			} else {
				s.TotalGoodsExonerated = s.TotalGoodsExonerated.Add(l.TaxableBase)
			}
			s.TotalExonerated = s.TotalExonerated.Add(l.TaxableBase)
		case l.Tax == nil:
			if service {
				s.TotalServExempt = s.TotalServExempt.Add(l.TaxableBase)
			} else {
				s.TotalGoodsExempt = s.TotalGoodsExempt.Add(l.TaxableBase)
			}
			s.TotalExempt = s.TotalExempt.Add(l.TaxableBase)
		default:
			if service {
				s.TotalServTaxed = s.TotalServTaxed.Add(l.TaxableBase)
			} else {
				s.TotalGoodsTaxed = s.TotalGoodsTaxed.Add(l.TaxableBase)
			}
			s.TotalTaxed = s.TotalTaxed.Add(l.TaxableBase)
			s.TotalTax = s.TotalTax.Add(l.NetTax)
			k := breakdownKey{l.Tax.Code, l.Tax.RateCode}
			if _, ok := breakdown[k]; !ok {
				order = append(order, k)
			}
			breakdown[k] = breakdown[k].Add(l.NetTax)
		}
	}

	if exonerated {
		if s.TotalExonerated.IsZero() && !opts.FallbackExonerated.IsZero() {
			s.TotalExonerated = opts.FallbackExonerated
		}
		s.TotalServTaxed = decimal.Zero
		s.TotalGoodsTaxed = decimal.Zero
		s.TotalTaxed = decimal.Zero
		s.TotalTax = decimal.Zero
		s.TaxBreakdown = nil
	} else if s.TotalTax.IsPositive() {
		for _, k := range order {
			s.TaxBreakdown = append(s.TaxBreakdown, entity.TaxBreakdown{Code: k.code, RateCode: k.rate, Amount: breakdown[k]})
		}
	}

	s.TotalSale = s.TotalTaxed.Add(s.TotalExempt).Add(s.TotalExonerated)
	s.TotalNetSale = s.TotalSale
	s.TotalDocument = s.TotalNetSale.Add(s.TotalTax)
	return s
}
