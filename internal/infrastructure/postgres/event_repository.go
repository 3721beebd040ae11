package postgres

import (
	"context"

	"github.com/google/uuid"

	"github.com/jhoicas/Facturacion-api/internal/domain"
	"github.com/jhoicas/Facturacion-api/internal/domain/entity"
	"github.com/jhoicas/Facturacion-api/internal/domain/repository"
)

var _ repository.EventRepository = (*EventRepo)(nil)

// EventRepo implementación del log de eventos sobre PostgreSQL. La tabla es
// append-only: no hay UPDATE ni DELETE en este adaptador.
type EventRepo struct {
	q Querier
}

// NewEventRepository construye el adaptador. Pasar pool o tx (Querier).
func NewEventRepository(q Querier) *EventRepo {
	return &EventRepo{q: q}
}

// Append inserta un evento. El payload se serializa como JSONB.
func (r *EventRepo) Append(ctx context.Context, event *entity.Event) error {
	if event.ID == "" {
		event.ID = uuid.New().String()
	}
	query := `
		INSERT INTO invoice_events (id, invoice_id, event_type, payload, status, created_at)
		VALUES ($1, $2, $3, $4, $5, now())`
	_, err := r.q.Exec(ctx, query,
		event.ID, event.InvoiceID, event.Type, event.Payload, event.Status,
	)
	if err != nil {
		return &domain.PersistenceError{Op: "append event", Err: err}
	}
	return nil
}

// ListByInvoice retorna los eventos de la factura, más reciente primero.
func (r *EventRepo) ListByInvoice(ctx context.Context, invoiceID int64) ([]*entity.Event, error) {
	query := `
		SELECT id, invoice_id, event_type, payload, status, created_at
		FROM invoice_events
		WHERE invoice_id = $1
		ORDER BY created_at DESC, id DESC`
	rows, err := r.q.Query(ctx, query, invoiceID)
	if err != nil {
		return nil, &domain.PersistenceError{Op: "list events", Err: err}
	}
	defer rows.Close()
	var list []*entity.Event
	for rows.Next() {
		var ev entity.Event
		if err := rows.Scan(&ev.ID, &ev.InvoiceID, &ev.Type, &ev.Payload, &ev.Status, &ev.CreatedAt); err != nil {
			return nil, &domain.PersistenceError{Op: "scan event", Err: err}
		}
		list = append(list, &ev)
	}
	return list, rows.Err()
}
