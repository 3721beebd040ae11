package billing

import (
	"context"

	"github.com/jhoicas/Facturacion-api/internal/domain"
	domainbilling "github.com/jhoicas/Facturacion-api/internal/domain/billing"
	"github.com/jhoicas/Facturacion-api/internal/domain/entity"
	"github.com/jhoicas/Facturacion-api/internal/domain/repository"
	"github.com/jhoicas/Facturacion-api/pkg/logger"
)

// StatusTransitioner es el único componente que escribe el campo status.
// Aplica la tabla de transiciones de domain/billing con semántica
// compare-and-swap en la capa de almacenamiento (UPDATE ... WHERE id AND
// status), de modo que dos reconciliaciones concurrentes para la misma
// factura no intercalan su read-modify-write aunque corran en procesos
// distintos.
type StatusTransitioner struct {
	txRunner TxRunner
	log      *logger.Logger
}

// NewStatusTransitioner construye el transicionador.
func NewStatusTransitioner(txRunner TxRunner, log *logger.Logger) *StatusTransitioner {
	return &StatusTransitioner{txRunner: txRunner, log: log}
}

// Apply intenta la transición inv.Status → target. Toda llamada anexa
// exactamente un evento en la misma transacción que el cambio de estado:
//
//   - transición aplicada → appliedEvent
//   - mismo estado, transición ilegal o carrera perdida → noopEvent (auditoría)
//
// Si el UPDATE condicionado afecta cero filas se relee la factura y se
// re-evalúa la decisión una sola vez; si sigue sin aplicar, se audita el
// no-op y no se propaga error al caller (last-write-wins solo entre estados
// destino idénticos).
func (t *StatusTransitioner) Apply(
	ctx context.Context,
	inv *entity.Invoice,
	target string,
	fields repository.StatusFields,
	appliedEvent, noopEvent *entity.Event,
) (bool, error) {
	var applied bool
	err := t.txRunner.RunBilling(ctx, func(
		invoices repository.InvoiceRepository,
		events repository.EventRepository,
	) error {
		// Mismo estado destino o transición ilegal: no-op auditado.
		if target == inv.Status || !domainbilling.CanTransition(inv.Status, target) {
			return events.Append(ctx, noopEvent)
		}

		ok, err := invoices.UpdateStatus(ctx, inv.ID, inv.Status, target, fields)
		if err != nil {
			return err
		}
		if !ok {
			// Otro proceso movió el estado: releer y re-evaluar una vez.
			fresh, err := invoices.GetByID(ctx, inv.ID)
			if err != nil {
				return err
			}
			if fresh == nil {
				return &domain.NotFoundError{Ref: inv.Series + inv.Number}
			}
			if fresh.Status == target || !domainbilling.CanTransition(fresh.Status, target) {
				t.log.Warn().
					Int64("invoice_id", inv.ID).
					Str("from", inv.Status).
					Str("target", target).
					Str("current", fresh.Status).
					Msg("transición perdió la carrera; se audita como no-op")
				inv.Status = fresh.Status
				return events.Append(ctx, noopEvent)
			}
			ok, err = invoices.UpdateStatus(ctx, inv.ID, fresh.Status, target, fields)
			if err != nil {
				return err
			}
			if !ok {
				inv.Status = fresh.Status
				return events.Append(ctx, noopEvent)
			}
		}

		applied = true
		inv.Status = target
		if fields.CUFE != nil {
			inv.CUFE = *fields.CUFE
		}
		if fields.DIANUUID != nil {
			inv.DIANUUID = *fields.DIANUUID
		}
		return events.Append(ctx, appliedEvent)
	})
	if err != nil {
		return false, err
	}
	return applied, nil
}
