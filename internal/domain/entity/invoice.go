package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Estados del ciclo de vida de la factura electrónica (DIAN, Colombia).
const (
	StatusDraft    = "DRAFT"    // Creada y persistida; aún sin enviar (o con envío fallido)
	StatusSent     = "SENT"     // Entregada a la DIAN, respuesta pendiente (en proceso)
	StatusAccepted = "ACCEPTED" // Aceptada por la DIAN; CUFE y dian_uuid asignados (terminal)
	StatusRejected = "REJECTED" // Rechazada por la DIAN (terminal para este intento)
)

// ValidStatuses estados reconocidos por la máquina de estados.
var ValidStatuses = map[string]bool{
	StatusDraft:    true,
	StatusSent:     true,
	StatusAccepted: true,
	StatusRejected: true,
}

// Invoice es la raíz del agregado de facturación: cabecera, totales y estado DIAN.
// Invariantes de totales:
//
//	tax_inclusive = tax_exclusive + tax_amount
//	payable       = tax_inclusive + charge_total - 0 (sin modelo de cargos)
//
// Una vez aceptada (ACCEPTED) nunca se elimina ni se reprocesa; un rechazo se
// reintenta creando una factura nueva, no mutando la historia.
type Invoice struct {
	ID             int64
	OrganizationID string
	CustomerID     string
	Series         string
	Number         string
	IssueDate      time.Time
	IssueTime      string // HH:MM:SS, requerido por el Anexo Técnico
	Currency       string // ISO 4217, por defecto COP
	ExchangeRate   decimal.Decimal
	OperationType  string // Tabla 2 Anexo 1.9; "10" = estándar

	LineExtensionAmount  decimal.Decimal // Σ line_subtotal (antes de descuentos)
	TaxExclusiveAmount   decimal.Decimal // line_extension - allowance_total
	TaxInclusiveAmount   decimal.Decimal // tax_exclusive + tax_amount
	AllowanceTotalAmount decimal.Decimal // Σ discount_amount
	ChargeTotalAmount    decimal.Decimal
	PayableAmount        decimal.Decimal
	TaxAmount            decimal.Decimal
	TaxRate              decimal.Decimal

	Status   string
	CUFE     string // Código Único de Factura Electrónica (SHA-384); solo tras aceptación
	DIANUUID string // Identificador asignado por la DIAN; solo tras aceptación
	Notes    string

	XMLURL string // Artefactos en object storage (vacío = no generado)
	PDFURL string
	QRURL  string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// FullNumber devuelve serie+número tal como viaja en el XML y el CUFE.
func (i *Invoice) FullNumber() string {
	return i.Series + i.Number
}

// IsTerminal indica si el estado actual ya no admite transiciones.
func (i *Invoice) IsTerminal() bool {
	return i.Status == StatusAccepted || i.Status == StatusRejected
}
