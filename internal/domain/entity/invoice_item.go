package entity

import "github.com/shopspring/decimal"

// InvoiceItem representa una línea de la factura. Inmutable una vez que la
// factura sale de DRAFT.
type InvoiceItem struct {
	ID          string
	InvoiceID   int64
	ItemID      string // referencia al producto vendido
	Description string
	ProductCode string
	UnitMeasure string // código DIAN de unidad (94 = unidad)

	Quantity       decimal.Decimal
	UnitPrice      decimal.Decimal
	DiscountPct    decimal.Decimal
	DiscountAmount decimal.Decimal
	TaxRate        decimal.Decimal
	TaxAmount      decimal.Decimal

	LineSubtotal decimal.Decimal // unit_price * quantity
	LineTax      decimal.Decimal // (subtotal - descuento) * tax_rate/100
	LineTotal    decimal.Decimal // subtotal + line_tax

	Notes string
}
