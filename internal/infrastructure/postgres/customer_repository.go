package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jhoicas/Comprobantes-api/internal/domain"
	"github.com/jhoicas/Comprobantes-api/internal/domain/entity"
	"github.com/jhoicas/Comprobantes-api/internal/domain/repository"
)

var _ repository.CustomerRepository = (*CustomerRepo)(nil)

// CustomerRepo implementación de CustomerRepository (usable con pool o tx).
type CustomerRepo struct {
	q Querier
}

// NewCustomerRepository construye el adaptador. Pasar pool o tx (Querier).
func NewCustomerRepository(q Querier) *CustomerRepo {
	return &CustomerRepo{q: q}
}

const customerColumns = `
	id, company_id, name, commercial_name, tax_id_type, tax_id, activity_code,
	province, canton, district, address, phone_country, phone, email, exoneration,
	created_at, updated_at`

// Create persiste un nuevo cliente.
func (r *CustomerRepo) Create(ctx context.Context, c *entity.Customer) error {
	exo, err := marshalNullable(c.Exoneration)
	if err != nil {
		return fmt.Errorf("cliente: serializar exoneración: %w", err)
	}
	query := `INSERT INTO customers (` + customerColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)`
	_, err = r.q.Exec(ctx, query,
		c.ID, c.CompanyID, c.Name, c.CommercialName, c.TaxIDType, c.TaxID, c.ActivityCode,
		c.Location.Province, c.Location.Canton, c.Location.District, c.Location.Address,
		c.PhoneCountry, c.Phone, c.Email, exo,
		c.CreatedAt, c.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrDuplicate
		}
		return fmt.Errorf("insert customer: %w", err)
	}
	return nil
}

// GetByID obtiene un cliente por ID.
func (r *CustomerRepo) GetByID(ctx context.Context, id string) (*entity.Customer, error) {
	c, err := scanCustomer(r.q.QueryRow(ctx, `SELECT `+customerColumns+` FROM customers WHERE id = $1`, id))
	if err != nil {
		if isNoRows(err) {
			return nil, nil
		}
		return nil, err
	}
	return c, nil
}

// GetByCompanyAndTaxID obtiene un cliente por empresa y cédula.
func (r *CustomerRepo) GetByCompanyAndTaxID(ctx context.Context, companyID, taxID string) (*entity.Customer, error) {
	query := `SELECT ` + customerColumns + ` FROM customers WHERE company_id = $1 AND tax_id = $2`
	c, err := scanCustomer(r.q.QueryRow(ctx, query, companyID, taxID))
	if err != nil {
		if isNoRows(err) {
			return nil, nil
		}
		return nil, err
	}
	return c, nil
}

// ListByCompany lista clientes de la empresa con paginación.
func (r *CustomerRepo) ListByCompany(ctx context.Context, companyID string, limit, offset int) ([]*entity.Customer, error) {
	query := `SELECT ` + customerColumns + ` FROM customers
		WHERE company_id = $1 ORDER BY name LIMIT $2 OFFSET $3`
	rows, err := r.q.Query(ctx, query, companyID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list customers: %w", err)
	}
	defer rows.Close()

	var list []*entity.Customer
	for rows.Next() {
		c, err := scanCustomer(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, c)
	}
	return list, rows.Err()
}

// Update actualiza datos y exoneración del cliente.
func (r *CustomerRepo) Update(ctx context.Context, c *entity.Customer) error {
	exo, err := marshalNullable(c.Exoneration)
	if err != nil {
		return fmt.Errorf("cliente: serializar exoneración: %w", err)
	}
	query := `
		UPDATE customers
		SET name = $2, commercial_name = $3, activity_code = $4,
		    province = $5, canton = $6, district = $7, address = $8,
		    phone_country = $9, phone = $10, email = $11, exoneration = $12, updated_at = $13
		WHERE id = $1`
	cmd, err := r.q.Exec(ctx, query,
		c.ID, c.Name, c.CommercialName, c.ActivityCode,
		c.Location.Province, c.Location.Canton, c.Location.District, c.Location.Address,
		c.PhoneCountry, c.Phone, c.Email, exo, c.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update customer: %w", err)
	}
	if cmd.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func scanCustomer(row rowScanner) (*entity.Customer, error) {
	var (
		c   entity.Customer
		exo []byte
	)
	err := row.Scan(
		&c.ID, &c.CompanyID, &c.Name, &c.CommercialName, &c.TaxIDType, &c.TaxID, &c.ActivityCode,
		&c.Location.Province, &c.Location.Canton, &c.Location.District, &c.Location.Address,
		&c.PhoneCountry, &c.Phone, &c.Email, &exo,
		&c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		if isNoRows(err) {
			return nil, err
		}
		return nil, fmt.Errorf("scan customer: %w", err)
	}
	if len(exo) > 0 {
		c.Exoneration = &entity.Exoneration{}
		if err := json.Unmarshal(exo, c.Exoneration); err != nil {
			return nil, fmt.Errorf("cliente %s: leer exoneración: %w", c.ID, err)
		}
	}
	return &c, nil
}
