package billing

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/jhoicas/Comprobantes-api/internal/application/dto"
	"github.com/jhoicas/Comprobantes-api/internal/domain"
	"github.com/jhoicas/Comprobantes-api/internal/domain/entity"
	"github.com/jhoicas/Comprobantes-api/internal/domain/repository"
	pkghacienda "github.com/jhoicas/Comprobantes-api/pkg/hacienda"
)

// CustomerUseCase casos de uso para clientes (receptores).
type CustomerUseCase struct {
	repo repository.CustomerRepository
}

// NewCustomerUseCase construye el caso de uso.
func NewCustomerUseCase(repo repository.CustomerRepository) *CustomerUseCase {
	return &CustomerUseCase{repo: repo}
}

// Create crea un nuevo cliente. La cédula se guarda sin guiones.
func (uc *CustomerUseCase) Create(ctx context.Context, companyID string, in dto.CreateCustomerRequest) (*dto.CustomerResponse, error) {
	if strings.TrimSpace(in.Name) == "" || in.TaxID == "" {
		return nil, domain.ValidationError("nombre e identificación son obligatorios")
	}
	if err := pkghacienda.ValidateTaxID(in.TaxIDType, in.TaxID); err != nil {
		return nil, domain.ValidationError("%v", err)
	}
	taxID := pkghacienda.NormalizeTaxID(in.TaxID)
	exo := exonerationFromDTO(in.Exoneration)
	if exo != nil && (exo.DocumentType == "" || exo.DocumentNumber == "" || exo.Institution == "" || exo.IssuedAt.IsZero()) {
		return nil, domain.ValidationError("la exoneración requiere tipo, número, institución y fecha de emisión")
	}

	existing, _ := uc.repo.GetByCompanyAndTaxID(ctx, companyID, taxID)
	if existing != nil {
		return nil, domain.ErrDuplicate
	}
	now := time.Now()
	customer := &entity.Customer{
		ID:             uuid.New().String(),
		CompanyID:      companyID,
		Name:           strings.TrimSpace(in.Name),
		CommercialName: in.CommercialName,
		TaxIDType:      in.TaxIDType,
		TaxID:          taxID,
		ActivityCode:   in.ActivityCode,
		Location:       locationFromDTO(in.Location),
		PhoneCountry:   in.PhoneCountry,
		Phone:          in.Phone,
		Email:          in.Email,
		Exoneration:    exo,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := uc.repo.Create(ctx, customer); err != nil {
		return nil, err
	}
	return customerToResponse(customer), nil
}

// List lista clientes de la empresa.
func (uc *CustomerUseCase) List(ctx context.Context, companyID string, limit, offset int) ([]*dto.CustomerResponse, error) {
	if limit <= 0 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	list, err := uc.repo.ListByCompany(ctx, companyID, limit, offset)
	if err != nil {
		return nil, err
	}
	out := make([]*dto.CustomerResponse, 0, len(list))
	for _, c := range list {
		out = append(out, customerToResponse(c))
	}
	return out, nil
}
