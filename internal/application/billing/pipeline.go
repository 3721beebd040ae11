package billing

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jhoicas/Facturacion-api/internal/domain"
	"github.com/jhoicas/Facturacion-api/internal/domain/entity"
	"github.com/jhoicas/Facturacion-api/internal/domain/repository"
	"github.com/jhoicas/Facturacion-api/pkg/dian"
	"github.com/jhoicas/Facturacion-api/pkg/logger"
)

// DocumentPipeline orquesta render → sign → submit de forma síncrona dentro de
// la petición de emisión. Cada etapa corre con su propio timeout; el fallo de
// cualquier etapa deja la factura en DRAFT, anexa ERROR_OCCURRED y retorna el
// error tipado de la etapa (RenderError, SigningError o SubmissionError).
type DocumentPipeline struct {
	renderer     DocumentRenderer
	signer       DocumentSigner
	submitter    AuthoritySubmitter
	store        ArtifactStore
	transitioner *StatusTransitioner
	invoiceRepo  repository.InvoiceRepository
	eventRepo    repository.EventRepository
	customerRepo repository.CustomerRepository
	orgRepo      repository.OrganizationRepository
	stageTimeout time.Duration
	log          *logger.Logger
}

// NewDocumentPipeline construye el pipeline. stageTimeout acota cada etapa por
// separado (no el total).
func NewDocumentPipeline(
	renderer DocumentRenderer,
	signer DocumentSigner,
	submitter AuthoritySubmitter,
	store ArtifactStore,
	transitioner *StatusTransitioner,
	invoiceRepo repository.InvoiceRepository,
	eventRepo repository.EventRepository,
	customerRepo repository.CustomerRepository,
	orgRepo repository.OrganizationRepository,
	stageTimeout time.Duration,
	log *logger.Logger,
) *DocumentPipeline {
	if stageTimeout <= 0 {
		stageTimeout = 30 * time.Second
	}
	return &DocumentPipeline{
		renderer:     renderer,
		signer:       signer,
		submitter:    submitter,
		store:        store,
		transitioner: transitioner,
		invoiceRepo:  invoiceRepo,
		eventRepo:    eventRepo,
		customerRepo: customerRepo,
		orgRepo:      orgRepo,
		stageTimeout: stageTimeout,
		log:          log,
	}
}

// Process ejecuta el pipeline completo para una factura en DRAFT y aplica el
// resultado sobre la máquina de estados:
//
//	accepted   → ACCEPTED (cufe y dian_uuid fijados atómicamente con el estado)
//	rejected   → REJECTED
//	in_process → SENT (queda pendiente de reconciliación por webhook o poll)
//
// Una factura que ya salió de DRAFT no se reprocesa.
func (p *DocumentPipeline) Process(ctx context.Context, inv *entity.Invoice, items []*entity.InvoiceItem) error {
	if inv.Status != entity.StatusDraft {
		return &domain.ValidationError{Field: "status", Msg: "la factura ya fue procesada (" + inv.Status + ")"}
	}

	customer, err := p.customerRepo.GetByID(ctx, inv.CustomerID)
	if err != nil {
		return err
	}
	if customer == nil {
		return &domain.NotFoundError{Ref: "customer " + inv.CustomerID}
	}
	org, err := p.orgRepo.GetByID(ctx, inv.OrganizationID)
	if err != nil {
		return err
	}
	if org == nil {
		return &domain.NotFoundError{Ref: "organization " + inv.OrganizationID}
	}

	in := &RenderInput{Invoice: inv, Items: items, Customer: customer, Organization: org}

	// Etapa 1: render del XML UBL.
	xmlBytes, err := p.runRender(ctx, in)
	if err != nil {
		return p.failStage(ctx, inv, "render", err, "")
	}

	// Etapa 2: firma XAdES.
	signedXML, err := p.runSign(ctx, xmlBytes)
	if err != nil {
		return p.failStage(ctx, inv, "sign", err, "")
	}

	// El XML firmado se conserva aunque el envío falle: sirve para reintentos
	// y auditoría. Un fallo de storage aquí no aborta la emisión.
	if url, upErr := p.store.Upload(ctx,
		fmt.Sprintf("invoices/%s.xml", inv.FullNumber()),
		"application/xml", signedXML,
	); upErr != nil {
		p.log.Warn().Err(upErr).Int64("invoice_id", inv.ID).Msg("no se pudo subir el XML firmado")
	} else {
		inv.XMLURL = url
		if err := p.invoiceRepo.UpdateArtifacts(ctx, inv.ID, inv.XMLURL, inv.PDFURL, inv.QRURL); err != nil {
			p.log.Warn().Err(err).Int64("invoice_id", inv.ID).Msg("no se pudo registrar la URL del XML")
		}
	}

	// Etapa 3: entrega a la DIAN.
	xmlName, _ := dian.DocumentFilenames(org.NIT, inv.Series, inv.Number)
	result, err := p.runSubmit(ctx, signedXML, xmlName)
	if err != nil {
		var subErr *domain.SubmissionError
		code := ""
		if errors.As(err, &subErr) && subErr.StatusCode != 0 {
			code = fmt.Sprintf("%d", subErr.StatusCode)
		}
		return p.failStage(ctx, inv, "submit", err, code)
	}

	return p.applyOutcome(ctx, inv, result)
}

func (p *DocumentPipeline) runRender(ctx context.Context, in *RenderInput) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, p.stageTimeout)
	defer cancel()
	xmlBytes, err := p.renderer.Render(ctx, in)
	if err != nil {
		return nil, &domain.RenderError{Reason: err.Error()}
	}
	return xmlBytes, nil
}

func (p *DocumentPipeline) runSign(ctx context.Context, xmlBytes []byte) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, p.stageTimeout)
	defer cancel()
	signed, err := p.signer.Sign(ctx, xmlBytes)
	if err != nil {
		return nil, &domain.SigningError{Reason: err.Error()}
	}
	return signed, nil
}

func (p *DocumentPipeline) runSubmit(ctx context.Context, signedXML []byte, filename string) (*SubmitResult, error) {
	ctx, cancel := context.WithTimeout(ctx, p.stageTimeout)
	defer cancel()
	return p.submitter.Submit(ctx, signedXML, filename)
}

// failStage audita la falla y retorna el error de etapa sin mover el estado:
// la factura sigue en DRAFT y puede re-emitirse.
func (p *DocumentPipeline) failStage(ctx context.Context, inv *entity.Invoice, stage string, stageErr error, responseCode string) error {
	p.log.Error().Err(stageErr).
		Int64("invoice_id", inv.ID).
		Str("stage", stage).
		Msg("etapa del pipeline falló; la factura permanece en DRAFT")
	if err := p.eventRepo.Append(ctx, entity.NewErrorEvent(inv.ID, stage, stageErr.Error(), responseCode)); err != nil {
		p.log.Error().Err(err).Int64("invoice_id", inv.ID).Msg("no se pudo anexar ERROR_OCCURRED")
	}
	return stageErr
}

// applyOutcome traduce la respuesta de la DIAN a una transición de estado.
func (p *DocumentPipeline) applyOutcome(ctx context.Context, inv *entity.Invoice, result *SubmitResult) error {
	switch result.Outcome {
	case OutcomeAccepted:
		cufe := result.DocumentUUID
		if inv.CUFE != "" {
			cufe = inv.CUFE
		}
		_, err := p.transitioner.Apply(ctx, inv, entity.StatusAccepted,
			repository.StatusFields{CUFE: &cufe, DIANUUID: &result.DocumentUUID},
			entity.NewAcceptedEvent(inv.ID, cufe, result.DocumentUUID, "submit", result.Raw),
			entity.NewStatusUpdateEvent(inv.ID, "submit", inv.Status, entity.StatusAccepted, false, result.Raw),
		)
		return err
	case OutcomeRejected:
		_, err := p.transitioner.Apply(ctx, inv, entity.StatusRejected,
			repository.StatusFields{},
			entity.NewRejectedEvent(inv.ID, "submit", result.Errors, result.Raw),
			entity.NewStatusUpdateEvent(inv.ID, "submit", inv.Status, entity.StatusRejected, false, result.Raw),
		)
		return err
	default:
		// Recibida pero sin veredicto: SENT, a la espera de webhook o poll.
		// El CUFE calculado en el render se persiste ya, para que el poll
		// pueda consultar por él.
		fields := repository.StatusFields{}
		if inv.CUFE != "" {
			fields.CUFE = &inv.CUFE
		}
		_, err := p.transitioner.Apply(ctx, inv, entity.StatusSent,
			fields,
			entity.NewSentEvent(inv.ID, "submit", result.Raw),
			entity.NewStatusUpdateEvent(inv.ID, "submit", inv.Status, entity.StatusSent, false, result.Raw),
		)
		return err
	}
}
