package billing

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/jhoicas/Facturacion-api/internal/application/dto"
	"github.com/jhoicas/Facturacion-api/internal/domain"
	"github.com/jhoicas/Facturacion-api/internal/domain/entity"
	"github.com/jhoicas/Facturacion-api/internal/domain/repository"
	"github.com/jhoicas/Facturacion-api/pkg/dian"
)

// CustomerUseCase CRUD mínimo de clientes (adquirientes).
type CustomerUseCase struct {
	repo repository.CustomerRepository
}

// NewCustomerUseCase construye el caso de uso.
func NewCustomerUseCase(repo repository.CustomerRepository) *CustomerUseCase {
	return &CustomerUseCase{repo: repo}
}

// Create registra un cliente. El NIT se valida con su dígito de verificación
// cuando trae el formato NIT-DV.
func (uc *CustomerUseCase) Create(ctx context.Context, in *dto.CreateCustomerRequest) (*dto.CustomerResponse, error) {
	switch {
	case in.Name == "":
		return nil, &domain.ValidationError{Field: "name"}
	case in.TaxID == "":
		return nil, &domain.ValidationError{Field: "tax_id"}
	}
	// Solo el formato NIT-DV lleva dígito de verificación; una cédula pasa tal cual.
	if strings.Contains(in.TaxID, "-") {
		if err := dian.ValidateNITVerificationDigit(in.TaxID); err != nil {
			return nil, &domain.ValidationError{Field: "tax_id", Msg: err.Error()}
		}
	}

	now := time.Now()
	customer := &entity.Customer{
		ID:        uuid.New().String(),
		Name:      in.Name,
		TaxID:     in.TaxID,
		Email:     in.Email,
		Phone:     in.Phone,
		Address:   in.Address,
		City:      in.City,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := uc.repo.Create(ctx, customer); err != nil {
		return nil, err
	}
	return toCustomerResponse(customer), nil
}

// Get retorna el cliente por id.
func (uc *CustomerUseCase) Get(ctx context.Context, id string) (*dto.CustomerResponse, error) {
	customer, err := uc.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if customer == nil {
		return nil, &domain.NotFoundError{Ref: "customer " + id}
	}
	return toCustomerResponse(customer), nil
}

// List retorna clientes paginados.
func (uc *CustomerUseCase) List(ctx context.Context, page dto.PageRequest) ([]*dto.CustomerResponse, error) {
	page.DefaultPage()
	customers, err := uc.repo.List(ctx, page.Limit, page.Offset)
	if err != nil {
		return nil, err
	}
	out := make([]*dto.CustomerResponse, 0, len(customers))
	for _, c := range customers {
		out = append(out, toCustomerResponse(c))
	}
	return out, nil
}

func toCustomerResponse(c *entity.Customer) *dto.CustomerResponse {
	return &dto.CustomerResponse{
		ID:      c.ID,
		Name:    c.Name,
		TaxID:   c.TaxID,
		Email:   c.Email,
		Phone:   c.Phone,
		Address: c.Address,
		City:    c.City,
	}
}
