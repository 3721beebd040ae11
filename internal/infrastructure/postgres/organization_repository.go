package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/jhoicas/Facturacion-api/internal/domain"
	"github.com/jhoicas/Facturacion-api/internal/domain/entity"
	"github.com/jhoicas/Facturacion-api/internal/domain/repository"
)

var _ repository.OrganizationRepository = (*OrganizationRepo)(nil)

// OrganizationRepo acceso de solo lectura al emisor (obligado a facturar).
type OrganizationRepo struct {
	q Querier
}

// NewOrganizationRepository construye el adaptador. Pasar pool o tx (Querier).
func NewOrganizationRepository(q Querier) *OrganizationRepo {
	return &OrganizationRepo{q: q}
}

const organizationColumns = `
	id, name, nit, COALESCE(address, ''), COALESCE(city, ''),
	COALESCE(phone, ''), COALESCE(email, ''), COALESCE(tax_level_code, ''),
	created_at, updated_at`

// Get retorna el emisor configurado. El despliegue es mono-emisor: se toma la
// primera (y única) fila.
func (r *OrganizationRepo) Get(ctx context.Context) (*entity.Organization, error) {
	query := `SELECT ` + organizationColumns + ` FROM organizations ORDER BY created_at LIMIT 1`
	return r.scanOne(r.q.QueryRow(ctx, query))
}

// GetByID retorna el emisor por ID. nil, nil si no existe.
func (r *OrganizationRepo) GetByID(ctx context.Context, id string) (*entity.Organization, error) {
	query := `SELECT ` + organizationColumns + ` FROM organizations WHERE id = $1`
	return r.scanOne(r.q.QueryRow(ctx, query, id))
}

func (r *OrganizationRepo) scanOne(row pgx.Row) (*entity.Organization, error) {
	var o entity.Organization
	err := row.Scan(
		&o.ID, &o.Name, &o.NIT, &o.Address, &o.City, &o.Phone, &o.Email,
		&o.TaxLevelCode, &o.CreatedAt, &o.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, &domain.PersistenceError{Op: "get organization", Err: err}
	}
	return &o, nil
}
