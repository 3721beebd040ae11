package repository

import (
	"context"

	"github.com/jhoicas/Facturacion-api/internal/domain/entity"
)

// StatusFields campos que acompañan un cambio de estado (se escriben en el
// mismo UPDATE condicionado). nil = no tocar el valor existente.
type StatusFields struct {
	CUFE     *string
	DIANUUID *string
}

// InvoiceRepository define el puerto de persistencia para la factura y sus líneas.
type InvoiceRepository interface {
	// Create persiste la cabecera en DRAFT. Retorna *domain.DuplicateError si
	// ya existe una factura con el mismo (series, number).
	Create(ctx context.Context, invoice *entity.Invoice) error
	CreateItem(ctx context.Context, item *entity.InvoiceItem) error

	GetByID(ctx context.Context, id int64) (*entity.Invoice, error)
	GetByCUFE(ctx context.Context, cufe string) (*entity.Invoice, error)
	GetByDIANUUID(ctx context.Context, dianUUID string) (*entity.Invoice, error)
	GetItems(ctx context.Context, invoiceID int64) ([]*entity.InvoiceItem, error)

	// UpdateStatus aplica la transición con semántica compare-and-swap:
	// UPDATE ... WHERE id = $1 AND status = $2. Retorna false (sin error) si
	// el estado actual ya no era `from` (otro proceso ganó la carrera); el
	// caller decide si reintenta tras releer.
	UpdateStatus(ctx context.Context, id int64, from, to string, fields StatusFields) (bool, error)

	// UpdateArtifacts registra las URLs de artefactos generados (XML/PDF/QR).
	// Los strings vacíos no sobreescriben valores existentes.
	UpdateArtifacts(ctx context.Context, id int64, xmlURL, pdfURL, qrURL string) error
}

// EventRepository define el puerto del log de eventos, append-only.
type EventRepository interface {
	Append(ctx context.Context, event *entity.Event) error
	// ListByInvoice retorna los eventos de la factura, más reciente primero.
	ListByInvoice(ctx context.Context, invoiceID int64) ([]*entity.Event, error)
}
