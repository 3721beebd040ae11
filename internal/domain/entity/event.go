package entity

import "time"

// Tipos de evento del log de auditoría de facturación. El log es append-only:
// los eventos nunca se editan ni se borran y son la única fuente de verdad
// histórica de "por qué esta factura está en este estado".
const (
	EventInvoiceCreated    = "INVOICE_CREATED"
	EventInvoiceAccepted   = "INVOICE_ACCEPTED"
	EventInvoiceRejected   = "INVOICE_REJECTED"
	EventInvoiceSentToDIAN = "INVOICE_SENT_TO_DIAN"
	EventStatusUpdated     = "DIAN_STATUS_UPDATED"
	EventErrorOccurred     = "ERROR_OCCURRED"
	EventPDFGenerated      = "PDF_GENERATED"
)

// EventStatusCompleted estado de finalización del evento (siempre COMPLETED al
// insertarse; el campo existe por compatibilidad con el esquema original).
const EventStatusCompleted = "COMPLETED"

// Event es un hecho inmutable del ciclo de vida de una factura.
type Event struct {
	ID        string
	InvoiceID int64
	Type      string
	Payload   map[string]any // datos crudos de la respuesta/causa (se serializa como JSONB)
	Status    string
	CreatedAt time.Time
}

// ── Constructores de payload por tipo de evento ───────────────────────────────
//
// Cada tipo de evento tiene su constructor con campos explícitos, de modo que
// el compilador (y no la convención) decide qué lleva cada payload.

// NewCreatedEvent factura persistida en DRAFT.
func NewCreatedEvent(invoiceID int64, series, number string) *Event {
	return newEvent(invoiceID, EventInvoiceCreated, map[string]any{
		"series": series,
		"number": number,
	})
}

// NewAcceptedEvent la DIAN aceptó el documento.
func NewAcceptedEvent(invoiceID int64, cufe, dianUUID, source string, raw map[string]any) *Event {
	return newEvent(invoiceID, EventInvoiceAccepted, map[string]any{
		"cufe":      cufe,
		"dian_uuid": dianUUID,
		"source":    source,
		"response":  raw,
	})
}

// NewRejectedEvent la DIAN rechazó el documento.
func NewRejectedEvent(invoiceID int64, source string, errs []string, raw map[string]any) *Event {
	return newEvent(invoiceID, EventInvoiceRejected, map[string]any{
		"source":   source,
		"errors":   errs,
		"response": raw,
	})
}

// NewSentEvent documento entregado a la DIAN, respuesta aún en proceso.
func NewSentEvent(invoiceID int64, source string, raw map[string]any) *Event {
	return newEvent(invoiceID, EventInvoiceSentToDIAN, map[string]any{
		"source":   source,
		"response": raw,
	})
}

// NewStatusUpdateEvent registro de auditoría de una reconciliación, aplicada o
// no-op. Se escribe SIEMPRE, incluso cuando el estado no cambia.
func NewStatusUpdateEvent(invoiceID int64, source, oldStatus, newStatus string, applied bool, raw map[string]any) *Event {
	return newEvent(invoiceID, EventStatusUpdated, map[string]any{
		"source":     source,
		"old_status": oldStatus,
		"new_status": newStatus,
		"applied":    applied,
		"payload":    raw,
	})
}

// NewErrorEvent una etapa del pipeline falló; la factura queda en DRAFT.
func NewErrorEvent(invoiceID int64, stage, reason string, responseCode string) *Event {
	p := map[string]any{
		"stage": stage,
		"error": reason,
	}
	if responseCode != "" {
		p["response_code"] = responseCode
	}
	return newEvent(invoiceID, EventErrorOccurred, p)
}

// NewPDFGeneratedEvent artefacto PDF generado y subido a storage.
func NewPDFGeneratedEvent(invoiceID int64, pdfURL string) *Event {
	return newEvent(invoiceID, EventPDFGenerated, map[string]any{
		"pdf_url": pdfURL,
	})
}

func newEvent(invoiceID int64, eventType string, payload map[string]any) *Event {
	return &Event{
		InvoiceID: invoiceID,
		Type:      eventType,
		Payload:   payload,
		Status:    EventStatusCompleted,
	}
}
