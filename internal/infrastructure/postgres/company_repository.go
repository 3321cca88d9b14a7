package postgres

import (
	"context"
	"fmt"

	"github.com/jhoicas/Comprobantes-api/internal/domain"
	"github.com/jhoicas/Comprobantes-api/internal/domain/entity"
	"github.com/jhoicas/Comprobantes-api/internal/domain/repository"
)

// Asegura que CompanyRepo implementa repository.CompanyRepository.
var _ repository.CompanyRepository = (*CompanyRepo)(nil)

// CompanyRepo implementación del puerto CompanyRepository sobre PostgreSQL.
type CompanyRepo struct {
	q Querier
}

// NewCompanyRepository construye el adaptador de persistencia para empresas.
func NewCompanyRepository(q Querier) *CompanyRepo {
	return &CompanyRepo{q: q}
}

const companyColumns = `
	id, name, commercial_name, tax_id_type, tax_id, activity_code,
	province, canton, district, address, phone_country, phone, email, status,
	atv_username, atv_password, atv_client_id, certificate, certificate_password,
	created_at, updated_at`

// Create persiste una nueva empresa.
func (r *CompanyRepo) Create(ctx context.Context, c *entity.Company) error {
	query := `INSERT INTO companies (` + companyColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21)`
	_, err := r.q.Exec(ctx, query,
		c.ID, c.Name, c.CommercialName, c.TaxIDType, c.TaxID, c.ActivityCode,
		c.Location.Province, c.Location.Canton, c.Location.District, c.Location.Address,
		c.PhoneCountry, c.Phone, c.Email, c.Status,
		c.ATVUsername, c.ATVPassword, c.ATVClientID, c.Certificate, c.CertificatePassword,
		c.CreatedAt, c.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrDuplicate
		}
		return fmt.Errorf("insert company: %w", err)
	}
	return nil
}

// GetByID obtiene una empresa por ID.
func (r *CompanyRepo) GetByID(ctx context.Context, id string) (*entity.Company, error) {
	return r.getOne(ctx, `SELECT `+companyColumns+` FROM companies WHERE id = $1`, id)
}

// GetByTaxID obtiene una empresa por cédula.
func (r *CompanyRepo) GetByTaxID(ctx context.Context, taxID string) (*entity.Company, error) {
	return r.getOne(ctx, `SELECT `+companyColumns+` FROM companies WHERE tax_id = $1`, taxID)
}

// Update actualiza una empresa existente.
func (r *CompanyRepo) Update(ctx context.Context, c *entity.Company) error {
	query := `
		UPDATE companies
		SET name = $2, commercial_name = $3, activity_code = $4,
		    province = $5, canton = $6, district = $7, address = $8,
		    phone_country = $9, phone = $10, email = $11, status = $12,
		    atv_username = $13, atv_password = $14, atv_client_id = $15,
		    certificate = $16, certificate_password = $17, updated_at = $18
		WHERE id = $1`
	cmd, err := r.q.Exec(ctx, query,
		c.ID, c.Name, c.CommercialName, c.ActivityCode,
		c.Location.Province, c.Location.Canton, c.Location.District, c.Location.Address,
		c.PhoneCountry, c.Phone, c.Email, c.Status,
		c.ATVUsername, c.ATVPassword, c.ATVClientID,
		c.Certificate, c.CertificatePassword, c.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update company: %w", err)
	}
	if cmd.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *CompanyRepo) getOne(ctx context.Context, query, arg string) (*entity.Company, error) {
	var c entity.Company
	err := r.q.QueryRow(ctx, query, arg).Scan(
		&c.ID, &c.Name, &c.CommercialName, &c.TaxIDType, &c.TaxID, &c.ActivityCode,
		&c.Location.Province, &c.Location.Canton, &c.Location.District, &c.Location.Address,
		&c.PhoneCountry, &c.Phone, &c.Email, &c.Status,
		&c.ATVUsername, &c.ATVPassword, &c.ATVClientID, &c.Certificate, &c.CertificatePassword,
		&c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		if isNoRows(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get company: %w", err)
	}
	return &c, nil
}
