package entity

import "time"

// Customer representa un cliente de la empresa (receptor del comprobante).
type Customer struct {
	ID             string
	CompanyID      string
	Name           string
	CommercialName string
	TaxIDType      string
	TaxID          string
	ActivityCode   string
	Location       Location
	PhoneCountry   string
	Phone          string
	Email          string
	Exoneration    *Exoneration // Exoneración configurada; nil = sin exoneración
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Party devuelve la instantánea del receptor para el comprobante.
func (c *Customer) Party() Party {
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
