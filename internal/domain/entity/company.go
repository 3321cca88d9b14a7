package entity

import "time"

// Company representa el emisor de comprobantes (multi-tenant, enfoque Costa Rica).
type Company struct {
	ID             string
	Name           string
	CommercialName string
	TaxIDType      string // 01 física, 02 jurídica, 03 DIMEX, 04 NITE
	TaxID          string // Cédula sin guiones
	ActivityCode   string // Código de actividad económica (6 dígitos)
	Location       Location
	PhoneCountry   string
	Phone          string
	Email          string
	Status         string // active, suspended, inactive

	// Credenciales ATV (autenticación con Hacienda).
	ATVUsername string
	ATVPassword string
	ATVClientID string // api-stag / api-prod

	// Certificado .p12 emitido por Hacienda para la firma.
	Certificate         []byte
	CertificatePassword string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// IsActive indica si la empresa puede emitir comprobantes.
func (c *Company) IsActive() bool {
	return c.Status == "" || c.Status == "active"
}

// Party devuelve la instantánea del emisor para el comprobante.
func (c *Company) Party() Party {
	return Party{
		Name:           c.Name,
		TaxIDType:      c.TaxIDType,
		TaxID:          c.TaxID,
		CommercialName: c.CommercialName,
		ActivityCode:   c.ActivityCode,
		Location:       c.Location,
		PhoneCountry:   c.PhoneCountry,
		Phone:          c.Phone,
		Email:          c.Email,
	}
}
