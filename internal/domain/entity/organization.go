package entity

import "time"

// Organization representa al emisor de las facturas (obligado a facturar).
// Lectura únicamente desde el núcleo de facturación.
type Organization struct {
	ID           string
	Name         string
	NIT          string // NIT colombiano (con o sin dígito de verificación)
	Address      string
	City         string
	Phone        string
	Email        string
	TaxLevelCode string // responsabilidad fiscal RUT (O-48, O-49, ...)
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
