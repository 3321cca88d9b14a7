package hacienda

import (
	"errors"
	"fmt"

	"github.com/jhoicas/Comprobantes-api/internal/domain"
	"github.com/jhoicas/Comprobantes-api/internal/domain/entity"
)

// ValidateDocument valida la coherencia del comprobante antes de serializarlo:
// numeración de líneas contigua desde 1, totales de línea y partes obligatorias por tipo.
func ValidateDocument(doc *entity.Document) error {
	if doc == nil {
		return domain.ValidationError("comprobante nulo")
	}
	var errs []error

	if !doc.Kind.Valid() {
		errs = append(errs, fmt.Errorf("tipo de comprobante %q no soportado", doc.Kind))
	}
	if doc.Kind == entity.KindInvoice && doc.Recipient == nil {
		errs = append(errs, fmt.Errorf("la factura requiere receptor"))
	}
	if doc.Kind == entity.KindCreditNote && doc.Reference == nil {
		errs = append(errs, fmt.Errorf("la nota de crédito requiere información de referencia"))
	}
	if len(doc.Lines) == 0 {
		errs = append(errs, fmt.Errorf("el comprobante debe tener al menos una línea"))
	}
	for i, l := range doc.Lines {
		if l.LineNumber != i+1 {
			errs = append(errs, fmt.Errorf("línea %d: numeración esperada %d", l.LineNumber, i+1))
		}
		if !l.LineTotal.Equal(l.TaxableBase.Add(l.NetTax)) {
			errs = append(errs, fmt.Errorf("línea %d: total (%s) no coincide con base + impuesto neto (%s)",
				l.LineNumber, l.LineTotal.String(), l.TaxableBase.Add(l.NetTax).String()))
		}
		if l.Exonerated() && !l.NetTax.IsZero() {
			errs = append(errs, fmt.Errorf("línea %d: impuesto neto debe ser cero con exoneración", l.LineNumber))
		}
	}
	expected := doc.Summary.TotalNetSale.Add(doc.Summary.TotalTax)
	if !doc.Summary.TotalDocument.Equal(expected) {
		errs = append(errs, fmt.Errorf("total comprobante (%s) no coincide con venta neta + impuesto (%s)",
			doc.Summary.TotalDocument.String(), expected.String()))
	}

	if len(errs) > 0 {
		return errors.Join(append([]error{domain.ErrValidation}, errs...)...)
	}
	return nil
}
