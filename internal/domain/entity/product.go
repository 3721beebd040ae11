package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Product representa un producto vendible (catálogo del POS).
type Product struct {
	ID          string
	SKU         string
	Name        string
	Description string
	UnitMeasure string // código DIAN de unidad de medida
	Price       decimal.Decimal
	TaxRate     decimal.Decimal // porcentaje IVA (19, 5, 0)
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
