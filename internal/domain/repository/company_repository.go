package repository

import (
	"context"

	"github.com/jhoicas/Comprobantes-api/internal/domain/entity"
)

// CompanyRepository define el puerto de persistencia para Company (emisor).
// La implementación vive en infrastructure.
type CompanyRepository interface {
	Create(ctx context.Context, company *entity.Company) error
	GetByID(ctx context.Context, id string) (*entity.Company, error)
	GetByTaxID(ctx context.Context, taxID string) (*entity.Company, error)
	Update(ctx context.Context, company *entity.Company) error
}
