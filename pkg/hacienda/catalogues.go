// Package hacienda contiene catálogos y validaciones alineados a la
// Estructura de Comprobantes Electrónicos v4.4 del Ministerio de Hacienda (Costa Rica).
package hacienda

// =============================================================================
// Tipos de comprobante (posiciones 9-10 del consecutivo)
// =============================================================================

const (
	DocumentTypeInvoice    = "01" // Factura electrónica
	DocumentTypeDebitNote  = "02" // Nota de débito electrónica
	DocumentTypeCreditNote = "03" // Nota de crédito electrónica
	DocumentTypeTicket     = "04" // Tiquete electrónico
)

// =============================================================================
// Tipos de identificación
// =============================================================================

const (
	IDTypePhysical  = "01" // Cédula física
	IDTypeJuridical = "02" // Cédula jurídica
	IDTypeDIMEX     = "03" // Documento de identificación migratorio para extranjeros
	IDTypeNITE      = "04" // Número de identificación tributaria especial
)

// =============================================================================
// Situación del comprobante (posición 42 de la clave)
// =============================================================================

const (
	SituationNormal      = "1" // Normal
	SituationContingency = "2" // Contingencia
	SituationNoInternet  = "3" // Sin internet
)

// CountryCodeCR código de país de Costa Rica (clave y teléfono).
const CountryCodeCR = "506"

// =============================================================================
// Condición de venta
// =============================================================================

const (
	SaleConditionCash   = "01" // Contado
	SaleConditionCredit = "02" // Crédito
)

// =============================================================================
// Medios de pago
// =============================================================================

const (
	PaymentMethodCash     = "01" // Efectivo
	PaymentMethodCard     = "02" // Tarjeta
	PaymentMethodCheck    = "03" // Cheque
	PaymentMethodTransfer = "04" // Transferencia - depósito bancario
	PaymentMethodSinpe    = "06" // SINPE Móvil
)

// =============================================================================
// Impuestos
// =============================================================================

const (
	TaxCodeIVA = "01" // Impuesto al valor agregado

	RateCodeExempt  = "01" // Tarifa 0% (exento)
	RateCodeReduced = "08" // Tarifa general 13%
)

// =============================================================================
// Códigos de referencia (nota de crédito)
// =============================================================================

const (
	ReferenceCancel       = "01" // Anula documento de referencia
	ReferenceFixText      = "02" // Corrige texto de documento de referencia
	ReferenceFixAmount    = "03" // Corrige monto
	ReferenceOtherDoc     = "04" // Referencia a otro documento
	ReferenceSubstitution = "05" // Sustituye comprobante provisional por contingencia
	ReferenceOther        = "99" // Otros
)

// ValidReferenceCodes códigos de referencia aceptados para notas de crédito.
var ValidReferenceCodes = map[string]bool{
	ReferenceCancel: true, ReferenceFixText: true, ReferenceFixAmount: true,
	ReferenceOtherDoc: true, ReferenceSubstitution: true, ReferenceOther: true,
}

// =============================================================================
// Tipos de documento de exoneración
// =============================================================================

const (
	ExonerationDocOther = "99" // Otros (requiere TipoDocumentoOTRO)
	InstitutionOther    = "99" // Otros (requiere NombreInstitucionOtros)
)

// =============================================================================
// Unidades de medida de servicios. El resto se reporta como mercancía en el resumen.
// =============================================================================

// ServiceUnits unidades que Hacienda clasifica como servicio.
var ServiceUnits = map[string]bool{
	"Sp":  true, // Servicios profesionales
	"Spe": true, // Servicios personales
	"St":  true, // Servicios técnicos
	"h":   true, // Hora
	"d":   true, // Día
	"Al":  true, // Alquiler de uso habitacional
	"Alc": true, // Alquiler de uso comercial
	"Cm":  true, // Comisiones
	"I":   true, // Intereses
	"Os":  true, // Otro tipo de servicio
	"Oc":  true, // Otros cargos
}

// IsServiceUnit indica si la unidad corresponde a un servicio.
func IsServiceUnit(unit string) bool {
	return ServiceUnits[unit]
}
