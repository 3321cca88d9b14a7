package repository

import (
	"context"

	"github.com/jhoicas/Comprobantes-api/internal/domain/entity"
)

// DocumentRepository define el puerto de persistencia para comprobantes electrónicos.
type DocumentRepository interface {
	// Create persiste el comprobante completo (contenido, XML y estado inicial).
	Create(ctx context.Context, doc *entity.Document) error
	GetByID(ctx context.Context, id string) (*entity.Document, error)
	GetByKey(ctx context.Context, key string) (*entity.Document, error)
	// UpdateSubmission actualiza solo los campos de seguimiento del envío y el XML firmado.
	UpdateSubmission(ctx context.Context, doc *entity.Document) error
	ListByCompany(ctx context.Context, companyID string, limit, offset int) ([]*entity.Document, error)
}
