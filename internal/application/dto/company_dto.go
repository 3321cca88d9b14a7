package dto

import "time"

// CreateCompanyRequest entrada para registrar un emisor.
type CreateCompanyRequest struct {
	Name           string      `json:"name" validate:"required,min=1,max=100"`
	CommercialName string      `json:"commercial_name"`
	TaxIDType      string      `json:"tax_id_type" validate:"required"`
	TaxID          string      `json:"tax_id" validate:"required"`
	ActivityCode   string      `json:"activity_code" validate:"required,len=6"`
	Location       LocationDTO `json:"location"`
	PhoneCountry   string      `json:"phone_country"`
	Phone          string      `json:"phone"`
	Email          string      `json:"email" validate:"omitempty,email"`
	ATVUsername    string      `json:"atv_username"`
	ATVPassword    string      `json:"atv_password"`
	ATVClientID    string      `json:"atv_client_id"` // api-stag | api-prod
}

// UpdateCompanyRequest entrada para actualizar un emisor (campos opcionales).
type UpdateCompanyRequest struct {
	Name         *string      `json:"name" validate:"omitempty,min=1,max=100"`
	ActivityCode *string      `json:"activity_code"`
	Location     *LocationDTO `json:"location"`
	Phone        *string      `json:"phone"`
	Email        *string      `json:"email" validate:"omitempty,email"`
	Status       *string      `json:"status" validate:"omitempty,oneof=active suspended inactive"`
}

// UploadCertificateRequest certificado .p12 en Base64 y su PIN.
type UploadCertificateRequest struct {
	CertificateBase64 string `json:"certificate_base64"`
	Password          string `json:"password"`
}

// CompanyResponse salida de un emisor (sin credenciales ni certificado).
type CompanyResponse struct {
	ID             string      `json:"id"`
	Name           string      `json:"name"`
	CommercialName string      `json:"commercial_name,omitempty"`
	TaxIDType      string      `json:"tax_id_type"`
	TaxID          string      `json:"tax_id"`
	ActivityCode   string      `json:"activity_code"`
	Location       LocationDTO `json:"location"`
	Phone          string      `json:"phone,omitempty"`
	Email          string      `json:"email,omitempty"`
	Status         string      `json:"status"`
	HasCertificate bool        `json:"has_certificate"`
	CreatedAt      time.Time   `json:"created_at"`
	UpdatedAt      time.Time   `json:"updated_at"`
}
