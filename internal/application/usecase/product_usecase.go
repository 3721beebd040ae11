package usecase

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/jhoicas/Facturacion-api/internal/application/dto"
	"github.com/jhoicas/Facturacion-api/internal/domain"
	"github.com/jhoicas/Facturacion-api/internal/domain/entity"
	"github.com/jhoicas/Facturacion-api/internal/domain/repository"
	"github.com/jhoicas/Facturacion-api/pkg/dian"
)

// ProductUseCase casos de uso CRUD para el catálogo de productos del POS.
type ProductUseCase struct {
	repo repository.ProductRepository
}

// NewProductUseCase construye el caso de uso.
func NewProductUseCase(repo repository.ProductRepository) *ProductUseCase {
	return &ProductUseCase{repo: repo}
}

// validTaxRate tarifas IVA vigentes en Colombia: 0%, 5% y 19%.
func validTaxRate(rate decimal.Decimal) bool {
	return rate.Equal(decimal.Zero) ||
		rate.Equal(decimal.NewFromInt(5)) ||
		rate.Equal(decimal.NewFromInt(19))
}

// Create crea un producto.
func (uc *ProductUseCase) Create(ctx context.Context, in dto.CreateProductRequest) (*dto.ProductResponse, error) {
	switch {
	case in.SKU == "":
		return nil, &domain.ValidationError{Field: "sku"}
	case in.Name == "":
		return nil, &domain.ValidationError{Field: "name"}
	case in.Price.LessThan(decimal.Zero):
		return nil, &domain.ValidationError{Field: "price"}
	}
	if !validTaxRate(in.TaxRate) {
		return nil, &domain.ValidationError{Field: "tax_rate", Msg: "tarifa IVA debe ser 0, 5 o 19"}
	}
	if in.UnitMeasure == "" {
		in.UnitMeasure = dian.UnitUnit
	}
	now := time.Now()
	product := &entity.Product{
		ID:          uuid.New().String(),
		SKU:         in.SKU,
		Name:        in.Name,
		Description: in.Description,
		UnitMeasure: in.UnitMeasure,
		Price:       in.Price,
		TaxRate:     in.TaxRate,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := uc.repo.Create(ctx, product); err != nil {
		return nil, err
	}
	return toProductResponse(product), nil
}

// GetByID obtiene un producto por ID.
func (uc *ProductUseCase) GetByID(ctx context.Context, id string) (*dto.ProductResponse, error) {
	product, err := uc.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if product == nil {
		return nil, &domain.NotFoundError{Ref: "product " + id}
	}
	return toProductResponse(product), nil
}

// Update actualiza un producto.
func (uc *ProductUseCase) Update(ctx context.Context, id string, in dto.UpdateProductRequest) (*dto.ProductResponse, error) {
	product, err := uc.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if product == nil {
		return nil, &domain.NotFoundError{Ref: "product " + id}
	}
	if in.Name != "" {
		product.Name = in.Name
	}
	if in.Description != "" {
		product.Description = in.Description
	}
	if in.UnitMeasure != "" {
		product.UnitMeasure = in.UnitMeasure
	}
	if in.Price != nil {
		if in.Price.LessThan(decimal.Zero) {
			return nil, &domain.ValidationError{Field: "price"}
		}
		product.Price = *in.Price
	}
	if in.TaxRate != nil {
		if !validTaxRate(*in.TaxRate) {
			return nil, &domain.ValidationError{Field: "tax_rate", Msg: "tarifa IVA debe ser 0, 5 o 19"}
		}
		product.TaxRate = *in.TaxRate
	}
	product.UpdatedAt = time.Now()
	if err := uc.repo.Update(ctx, product); err != nil {
		return nil, err
	}
	return toProductResponse(product), nil
}

// List lista productos con paginación.
func (uc *ProductUseCase) List(ctx context.Context, page dto.PageRequest) ([]*dto.ProductResponse, error) {
	page.DefaultPage()
	list, err := uc.repo.List(ctx, page.Limit, page.Offset)
	if err != nil {
		return nil, err
	}
	out := make([]*dto.ProductResponse, 0, len(list))
	for _, p := range list {
		out = append(out, toProductResponse(p))
	}
	return out, nil
}

func toProductResponse(p *entity.Product) *dto.ProductResponse {
	return &dto.ProductResponse{
		ID:          p.ID,
		SKU:         p.SKU,
		Name:        p.Name,
		Description: p.Description,
		UnitMeasure: p.UnitMeasure,
		Price:       p.Price,
		TaxRate:     p.TaxRate,
	}
}
