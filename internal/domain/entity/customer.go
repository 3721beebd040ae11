package entity

import "time"

// Customer representa un cliente (adquiriente de la factura).
type Customer struct {
	ID        string
	Name      string
	TaxID     string // NIT o Cédula (Colombia)
	Email     string
	Phone     string
	Address   string
	City      string
	CreatedAt time.Time
	UpdatedAt time.Time
}
