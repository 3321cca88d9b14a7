// Package hacienda implementa la generación, lectura y envío de comprobantes electrónicos
// de Costa Rica (Hacienda, Estructura v4.4).
package hacienda

import "github.com/jhoicas/Comprobantes-api/internal/domain/entity"

// Namespaces oficiales v4.4.
const (
	nsBase = "https://cdn.comprobanteselectronicos.go.cr/xml-schemas/v4.4/"
	nsXsi  = "http://www.w3.org/2001/XMLSchema-instance"
)

// rootSpec elemento raíz y namespace por tipo de comprobante.
type rootSpec struct {
	Element string
	Schema  string
}

var roots = map[entity.DocumentKind]rootSpec{
	entity.KindInvoice:    {Element: "FacturaElectronica", Schema: "facturaElectronica"},
	entity.KindTicket:     {Element: "TiqueteElectronico", Schema: "tiqueteElectronico"},
	entity.KindCreditNote: {Element: "NotaCreditoElectronica", Schema: "notaCreditoElectronica"},
}

// kindFromRoot resuelve el tipo de comprobante a partir del elemento raíz.
func kindFromRoot(element string) (entity.DocumentKind, bool) {
	for k, r := range roots {
		if r.Element == element {
			return k, true
		}
	}
	return "", false
}

// SerializerConfig datos fijos del sistema emisor.
type SerializerConfig struct {
	ProviderID string // ProveedorSistemas; vacío = cédula del emisor
	OtherText  string // Texto de <Otros>; vacío = se omite el bloque
}
