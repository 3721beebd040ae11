package dto

import (
	"time"

	"github.com/shopspring/decimal"
)

// CreateInvoiceRequest body para POST /api/invoices.
type CreateInvoiceRequest struct {
	CustomerID    string               `json:"customer_id"`
	Series        string               `json:"series"`
	Number        string               `json:"number"`
	IssueDate     string               `json:"issue_date"` // YYYY-MM-DD
	IssueTime     string               `json:"issue_time"` // HH:MM:SS
	Currency      string               `json:"currency,omitempty"`      // por defecto COP
	ExchangeRate  decimal.Decimal      `json:"exchange_rate,omitempty"` // por defecto 1
	OperationType string               `json:"operation_type,omitempty"`
	Notes         string               `json:"notes,omitempty"`
	Items         []InvoiceItemRequest `json:"items"`
}

// InvoiceItemRequest línea de factura.
type InvoiceItemRequest struct {
	ItemID      string          `json:"item_id"`
	Description string          `json:"description,omitempty"`
	ProductCode string          `json:"product_code,omitempty"`
	UnitMeasure string          `json:"unit_measure,omitempty"` // por defecto 94 (unidad)
	Quantity    decimal.Decimal `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	DiscountPct decimal.Decimal `json:"discount_pct,omitempty"`
	TaxRate     decimal.Decimal `json:"tax_rate,omitempty"` // por defecto 19
}

// IssueInvoiceResponse respuesta de POST /api/invoices tras correr el pipeline.
type IssueInvoiceResponse struct {
	InvoiceID int64  `json:"invoice_id"`
	Status    string `json:"status"`
	CUFE      string `json:"cufe,omitempty"`
	DIANUUID  string `json:"dian_uuid,omitempty"`
}

// InvoiceStatusResponse factura + historial de eventos (más reciente primero)
// para GET /api/invoices/status.
type InvoiceStatusResponse struct {
	ID            int64           `json:"id"`
	Series        string          `json:"series"`
	Number        string          `json:"number"`
	Status        string          `json:"status"`
	CUFE          string          `json:"cufe,omitempty"`
	DIANUUID      string          `json:"dian_uuid,omitempty"`
	IssueDate     string          `json:"issue_date"`
	PayableAmount decimal.Decimal `json:"payable_amount"`
	XMLURL        string          `json:"xml_url,omitempty"`
	PDFURL        string          `json:"pdf_url,omitempty"`
	Events        []EventResponse `json:"events"`
}

// EventResponse evento del log de auditoría.
type EventResponse struct {
	ID        string         `json:"id"`
	Type      string         `json:"type"`
	Payload   map[string]any `json:"payload,omitempty"`
	Status    string         `json:"status"`
	CreatedAt time.Time      `json:"created_at"`
}

// PollStatusRequest body para POST /api/invoices/status (consulta síncrona a la DIAN).
type PollStatusRequest struct {
	InvoiceID int64 `json:"invoice_id"`
}

// PollStatusResponse estado tras la consulta.
type PollStatusResponse struct {
	InvoiceID int64  `json:"invoice_id"`
	Status    string `json:"status"`
	CUFE      string `json:"cufe,omitempty"`
	Message   string `json:"message,omitempty"`
}

// WebhookRequest body para POST /api/invoices/webhook. Type discrimina el
// tipo de notificación: invoice_accepted | invoice_rejected | invoice_pending |
// status_update. La factura se resuelve por cufe, luego invoice_id, luego dian_uuid.
type WebhookRequest struct {
	Type        string   `json:"type"`
	EventType   string   `json:"event_type,omitempty"` // alias aceptado por compatibilidad
	CUFE        string   `json:"cufe,omitempty"`
	InvoiceID   int64    `json:"invoice_id,omitempty"`
	DIANUUID    string   `json:"dian_uuid,omitempty"`
	NewStatus   string   `json:"new_status,omitempty"` // solo status_update
	Message     string   `json:"message,omitempty"`
	Errors      []string `json:"errors,omitempty"` // solo invoice_rejected
	ResponseXML string   `json:"response_xml,omitempty"`
}

// WebhookResponse confirmación de procesamiento.
type WebhookResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
}

// PDFResponse respuesta de POST /api/invoices/:id/pdf (idempotente).
type PDFResponse struct {
	PDFURL string `json:"pdf_url"`
	QRURL  string `json:"qr_url,omitempty"`
}

// ── CRUD auxiliar (clientes y productos) ─────────────────────────────────────

// CreateCustomerRequest body para POST /api/customers.
type CreateCustomerRequest struct {
	Name    string `json:"name"`
	TaxID   string `json:"tax_id"`
	Email   string `json:"email,omitempty"`
	Phone   string `json:"phone,omitempty"`
	Address string `json:"address,omitempty"`
	City    string `json:"city,omitempty"`
}

// CustomerResponse cliente en respuestas.
type CustomerResponse struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	TaxID   string `json:"tax_id"`
	Email   string `json:"email,omitempty"`
	Phone   string `json:"phone,omitempty"`
	Address string `json:"address,omitempty"`
	City    string `json:"city,omitempty"`
}
