package repository

import (
	"context"

	"github.com/jhoicas/Facturacion-api/internal/domain/entity"
)

// CustomerRepository define el puerto de persistencia para clientes.
type CustomerRepository interface {
	Create(ctx context.Context, customer *entity.Customer) error
	GetByID(ctx context.Context, id string) (*entity.Customer, error)
	List(ctx context.Context, limit, offset int) ([]*entity.Customer, error)
}

// OrganizationRepository acceso de solo lectura al emisor.
type OrganizationRepository interface {
	Get(ctx context.Context) (*entity.Organization, error)
	GetByID(ctx context.Context, id string) (*entity.Organization, error)
}
