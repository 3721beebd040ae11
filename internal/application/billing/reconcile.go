package billing

import (
	"context"
	"fmt"
	"time"

	"github.com/jhoicas/Facturacion-api/internal/application/dto"
	"github.com/jhoicas/Facturacion-api/internal/domain"
	"github.com/jhoicas/Facturacion-api/internal/domain/entity"
	"github.com/jhoicas/Facturacion-api/internal/domain/repository"
	"github.com/jhoicas/Facturacion-api/pkg/logger"
)

// Fuentes de reconciliación para el log de auditoría.
const (
	sourceWebhook = "webhook"
	sourcePoll    = "poll"
)

// ReconcileUseCase converge el estado local con el veredicto de la DIAN, venga
// por webhook (push) o por consulta activa (pull). Ambos caminos pasan por el
// mismo StatusTransitioner, de modo que webhooks duplicados, fuera de orden o
// concurrentes con un poll producen a lo sumo un cambio de estado y siempre
// dejan rastro en el log de eventos.
type ReconcileUseCase struct {
	transitioner *StatusTransitioner
	invoiceRepo  repository.InvoiceRepository
	submitter    AuthoritySubmitter
	store        ArtifactStore
	pollTimeout  time.Duration
	log          *logger.Logger
}

// NewReconcileUseCase construye el caso de uso.
func NewReconcileUseCase(
	transitioner *StatusTransitioner,
	invoiceRepo repository.InvoiceRepository,
	submitter AuthoritySubmitter,
	store ArtifactStore,
	pollTimeout time.Duration,
	log *logger.Logger,
) *ReconcileUseCase {
	if pollTimeout <= 0 {
		pollTimeout = 30 * time.Second
	}
	return &ReconcileUseCase{
		transitioner: transitioner,
		invoiceRepo:  invoiceRepo,
		submitter:    submitter,
		store:        store,
		pollTimeout:  pollTimeout,
		log:          log,
	}
}

// HandleWebhook procesa una notificación de la DIAN. El handler HTTP ya validó
// el token compartido antes de llamar aquí. Retorna *domain.ValidationError
// ante un tipo desconocido y *domain.NotFoundError si ningún identificador
// resuelve a una factura. El procesamiento es idempotente: repetir la misma
// notificación anexa un evento de auditoría pero no re-aplica la transición.
func (uc *ReconcileUseCase) HandleWebhook(ctx context.Context, req *dto.WebhookRequest) (*dto.WebhookResponse, error) {
	webhookType := req.Type
	if webhookType == "" {
		webhookType = req.EventType
	}

	target, err := targetForWebhook(webhookType, req.NewStatus)
	if err != nil {
		return nil, err
	}

	inv, err := uc.resolve(ctx, req.CUFE, req.InvoiceID, req.DIANUUID)
	if err != nil {
		return nil, err
	}

	raw := map[string]any{
		"type":    webhookType,
		"message": req.Message,
	}
	if len(req.Errors) > 0 {
		raw["errors"] = req.Errors
	}

	applied, err := uc.apply(ctx, inv, target, sourceWebhook, req.CUFE, req.DIANUUID, req.Errors, raw)
	if err != nil {
		return nil, err
	}

	// El XML de respuesta de la DIAN se archiva si viene; un fallo de storage
	// no invalida la reconciliación ya aplicada.
	if req.ResponseXML != "" {
		path := fmt.Sprintf("responses/response_%d_%d.xml", inv.ID, time.Now().Unix())
		if _, upErr := uc.store.Upload(ctx, path, "application/xml", []byte(req.ResponseXML)); upErr != nil {
			uc.log.Warn().Err(upErr).Int64("invoice_id", inv.ID).Msg("no se pudo archivar el XML de respuesta")
		}
	}

	msg := "estado actualizado a " + inv.Status
	if !applied {
		msg = "notificación registrada sin cambio de estado (" + inv.Status + ")"
	}
	return &dto.WebhookResponse{Success: true, Message: msg}, nil
}

// Poll consulta activamente el estado del documento ante la DIAN y aplica el
// resultado por el mismo camino que un webhook. Pensado para facturas SENT
// cuyo webhook nunca llegó.
func (uc *ReconcileUseCase) Poll(ctx context.Context, invoiceID int64) (*dto.PollStatusResponse, error) {
	inv, err := uc.invoiceRepo.GetByID(ctx, invoiceID)
	if err != nil {
		return nil, err
	}
	if inv == nil {
		return nil, &domain.NotFoundError{Ref: fmt.Sprintf("invoice %d", invoiceID)}
	}
	if inv.CUFE == "" {
		return nil, &domain.ValidationError{Field: "cufe", Msg: "la factura no tiene CUFE; emítala antes de consultar"}
	}

	pollCtx, cancel := context.WithTimeout(ctx, uc.pollTimeout)
	defer cancel()
	result, err := uc.submitter.CheckStatus(pollCtx, inv.CUFE)
	if err != nil {
		return nil, err
	}

	target := entity.StatusSent
	switch result.Outcome {
	case OutcomeAccepted:
		target = entity.StatusAccepted
	case OutcomeRejected:
		target = entity.StatusRejected
	}

	if _, err := uc.apply(ctx, inv, target, sourcePoll, result.DocumentUUID, result.DocumentUUID, result.Errors, result.Raw); err != nil {
		return nil, err
	}
	return &dto.PollStatusResponse{
		InvoiceID: inv.ID,
		Status:    inv.Status,
		CUFE:      inv.CUFE,
		Message:   result.ResponseMessage,
	}, nil
}

// resolve busca la factura por el identificador presente, en orden fijo:
// cufe, id interno, dian_uuid.
func (uc *ReconcileUseCase) resolve(ctx context.Context, cufe string, invoiceID int64, dianUUID string) (*entity.Invoice, error) {
	var inv *entity.Invoice
	var err error
	switch {
	case cufe != "":
		inv, err = uc.invoiceRepo.GetByCUFE(ctx, cufe)
	case invoiceID != 0:
		inv, err = uc.invoiceRepo.GetByID(ctx, invoiceID)
	case dianUUID != "":
		inv, err = uc.invoiceRepo.GetByDIANUUID(ctx, dianUUID)
	default:
		return nil, &domain.ValidationError{Field: "cufe, invoice_id o dian_uuid"}
	}
	if err != nil {
		return nil, err
	}
	if inv == nil {
		return nil, &domain.NotFoundError{Ref: "factura notificada"}
	}
	return inv, nil
}

// apply arma el par de eventos (aplicado / no-op) según el estado destino y
// delega en el transicionador.
func (uc *ReconcileUseCase) apply(
	ctx context.Context,
	inv *entity.Invoice,
	target, source, cufe, dianUUID string,
	errs []string,
	raw map[string]any,
) (bool, error) {
	fields := repository.StatusFields{}
	var appliedEvent *entity.Event
	switch target {
	case entity.StatusAccepted:
		if cufe == "" {
			cufe = inv.CUFE
		}
		if dianUUID == "" {
			dianUUID = inv.DIANUUID
		}
		fields.CUFE = &cufe
		fields.DIANUUID = &dianUUID
		appliedEvent = entity.NewAcceptedEvent(inv.ID, cufe, dianUUID, source, raw)
	case entity.StatusRejected:
		appliedEvent = entity.NewRejectedEvent(inv.ID, source, errs, raw)
	default:
		appliedEvent = entity.NewStatusUpdateEvent(inv.ID, source, inv.Status, target, true, raw)
	}
	noopEvent := entity.NewStatusUpdateEvent(inv.ID, source, inv.Status, target, false, raw)

	return uc.transitioner.Apply(ctx, inv, target, fields, appliedEvent, noopEvent)
}

// targetForWebhook traduce el tipo de notificación al estado destino.
func targetForWebhook(webhookType, newStatus string) (string, error) {
	switch webhookType {
	case "invoice_accepted":
		return entity.StatusAccepted, nil
	case "invoice_rejected":
		return entity.StatusRejected, nil
	case "invoice_pending":
		return entity.StatusSent, nil
	case "status_update":
		if !entity.ValidStatuses[newStatus] {
			return "", &domain.ValidationError{Field: "new_status", Msg: "estado desconocido: " + newStatus}
		}
		return newStatus, nil
	case "":
		return "", &domain.ValidationError{Field: "type"}
	default:
		return "", &domain.ValidationError{Field: "type", Msg: "tipo de notificación desconocido: " + webhookType}
	}
}
