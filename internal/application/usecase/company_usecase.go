package usecase

import (
	"context"
	"encoding/base64"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/jhoicas/Comprobantes-api/internal/application/dto"
	"github.com/jhoicas/Comprobantes-api/internal/domain"
	"github.com/jhoicas/Comprobantes-api/internal/domain/entity"
	"github.com/jhoicas/Comprobantes-api/internal/domain/repository"
	pkghacienda "github.com/jhoicas/Comprobantes-api/pkg/hacienda"
)

// CertificateVerifier comprueba que el .p12 abre con la contraseña indicada.
type CertificateVerifier func(p12 []byte, password string) error

// CompanyUseCase aplica reglas de negocio para empresas emisoras.
type CompanyUseCase struct {
	repo       repository.CompanyRepository
	verifyCert CertificateVerifier
}

// NewCompanyUseCase construye el caso de uso con el puerto de persistencia.
func NewCompanyUseCase(repo repository.CompanyRepository, verifyCert CertificateVerifier) *CompanyUseCase {
	return &CompanyUseCase{repo: repo, verifyCert: verifyCert}
}

// Create registra un emisor. Devuelve domain.ErrDuplicate si la cédula ya existe.
func (uc *CompanyUseCase) Create(ctx context.Context, in dto.CreateCompanyRequest) (*dto.CompanyResponse, error) {
	if strings.TrimSpace(in.Name) == "" {
		return nil, domain.ValidationError("el nombre es obligatorio")
	}
	if err := pkghacienda.ValidateTaxID(in.TaxIDType, in.TaxID); err != nil {
		return nil, domain.ValidationError("%v", err)
	}
	if !sixDigits(in.ActivityCode) {
		return nil, domain.ValidationError("el código de actividad debe tener 6 dígitos")
	}
	taxID := pkghacienda.NormalizeTaxID(in.TaxID)
	existing, _ := uc.repo.GetByTaxID(ctx, taxID)
	if existing != nil {
		return nil, domain.ErrDuplicate
	}

	now := time.Now()
	company := &entity.Company{
		ID:             uuid.New().String(),
		Name:           strings.TrimSpace(in.Name),
		CommercialName: in.CommercialName,
		TaxIDType:      in.TaxIDType,
		TaxID:          taxID,
		ActivityCode:   in.ActivityCode,
		Location:       entity.Location(in.Location),
		PhoneCountry:   in.PhoneCountry,
		Phone:          in.Phone,
		Email:          in.Email,
		Status:         "active",
		ATVUsername:    in.ATVUsername,
		ATVPassword:    in.ATVPassword,
		ATVClientID:    in.ATVClientID,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := uc.repo.Create(ctx, company); err != nil {
		return nil, err
	}
	return entityToCompanyResponse(company), nil
}

// GetByID obtiene una empresa por ID.
func (uc *CompanyUseCase) GetByID(ctx context.Context, id string) (*dto.CompanyResponse, error) {
	company, err := uc.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if company == nil {
		return nil, domain.ErrNotFound
	}
	return entityToCompanyResponse(company), nil
}

// Update actualiza los campos presentes en la solicitud.
func (uc *CompanyUseCase) Update(ctx context.Context, id string, in dto.UpdateCompanyRequest) (*dto.CompanyResponse, error) {
	company, err := uc.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if company == nil {
		return nil, domain.ErrNotFound
	}
	if in.Name != nil {
		if strings.TrimSpace(*in.Name) == "" {
			return nil, domain.ValidationError("el nombre es obligatorio")
		}
		company.Name = strings.TrimSpace(*in.Name)
	}
	if in.ActivityCode != nil {
		if !sixDigits(*in.ActivityCode) {
			return nil, domain.ValidationError("el código de actividad debe tener 6 dígitos")
		}
		company.ActivityCode = *in.ActivityCode
	}
	if in.Location != nil {
		company.Location = entity.Location(*in.Location)
	}
	if in.Phone != nil {
		company.Phone = *in.Phone
	}
	if in.Email != nil {
		company.Email = *in.Email
	}
	if in.Status != nil {
		switch *in.Status {
		case "active", "suspended", "inactive":
			company.Status = *in.Status
		default:
			return nil, domain.ValidationError("estado %q inválido", *in.Status)
		}
	}
	company.UpdatedAt = time.Now()
	if err := uc.repo.Update(ctx, company); err != nil {
		return nil, err
	}
	return entityToCompanyResponse(company), nil
}

// UploadCertificate guarda el .p12 del emisor después de verificar que abre con el PIN.
func (uc *CompanyUseCase) UploadCertificate(ctx context.Context, id string, in dto.UploadCertificateRequest) (*dto.CompanyResponse, error) {
	p12, err := base64.StdEncoding.DecodeString(strings.TrimSpace(in.CertificateBase64))
	if err != nil || len(p12) == 0 {
		return nil, domain.ValidationError("certificado en Base64 inválido")
	}
	if uc.verifyCert != nil {
		if err := uc.verifyCert(p12, in.Password); err != nil {
			return nil, domain.ValidationError("el certificado no abre con la contraseña indicada: %v", err)
		}
	}
	company, err := uc.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if company == nil {
		return nil, domain.ErrNotFound
	}
	company.Certificate = p12
	company.CertificatePassword = in.Password
	company.UpdatedAt = time.Now()
	if err := uc.repo.Update(ctx, company); err != nil {
		return nil, err
	}
	return entityToCompanyResponse(company), nil
}

func sixDigits(s string) bool {
	if len(s) != 6 {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

func entityToCompanyResponse(c *entity.Company) *dto.CompanyResponse {
	if c == nil {
		return nil
	}
	return &dto.CompanyResponse{
		ID:             c.ID,
		Name:           c.Name,
		CommercialName: c.CommercialName,
		TaxIDType:      c.TaxIDType,
		TaxID:          c.TaxID,
		ActivityCode:   c.ActivityCode,
		Location:       dto.LocationDTO(c.Location),
		Phone:          c.Phone,
		Email:          c.Email,
		Status:         c.Status,
		HasCertificate: len(c.Certificate) > 0,
		CreatedAt:      c.CreatedAt,
		UpdatedAt:      c.UpdatedAt,
	}
}
