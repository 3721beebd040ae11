package billing

import (
	"context"
	"fmt"

	"github.com/jhoicas/Facturacion-api/internal/application/dto"
	"github.com/jhoicas/Facturacion-api/internal/domain"
	"github.com/jhoicas/Facturacion-api/internal/domain/entity"
	"github.com/jhoicas/Facturacion-api/internal/domain/repository"
	"github.com/jhoicas/Facturacion-api/pkg/logger"
)

// PDFUseCase genera la representación gráfica de la factura, la sube a storage
// y registra PDF_GENERATED. Idempotente: si la factura ya tiene PDF se
// retorna la URL existente sin regenerar.
type PDFUseCase struct {
	generator    InvoicePDFGenerator
	store        ArtifactStore
	invoiceRepo  repository.InvoiceRepository
	eventRepo    repository.EventRepository
	customerRepo repository.CustomerRepository
	orgRepo      repository.OrganizationRepository
	log          *logger.Logger
}

// NewPDFUseCase construye el caso de uso.
func NewPDFUseCase(
	generator InvoicePDFGenerator,
	store ArtifactStore,
	invoiceRepo repository.InvoiceRepository,
	eventRepo repository.EventRepository,
	customerRepo repository.CustomerRepository,
	orgRepo repository.OrganizationRepository,
	log *logger.Logger,
) *PDFUseCase {
	return &PDFUseCase{
		generator:    generator,
		store:        store,
		invoiceRepo:  invoiceRepo,
		eventRepo:    eventRepo,
		customerRepo: customerRepo,
		orgRepo:      orgRepo,
		log:          log,
	}
}

// Generate produce el PDF de la factura. Requiere que la factura haya sido
// emitida (tenga CUFE): el QR del Anexo Técnico apunta al documento validado.
func (uc *PDFUseCase) Generate(ctx context.Context, invoiceID int64) (*dto.PDFResponse, error) {
	inv, err := uc.invoiceRepo.GetByID(ctx, invoiceID)
	if err != nil {
		return nil, err
	}
	if inv == nil {
		return nil, &domain.NotFoundError{Ref: fmt.Sprintf("invoice %d", invoiceID)}
	}
	if inv.PDFURL != "" {
		return &dto.PDFResponse{PDFURL: inv.PDFURL, QRURL: inv.QRURL}, nil
	}
	if inv.CUFE == "" {
		return nil, &domain.ValidationError{Field: "cufe", Msg: "la factura aún no ha sido emitida"}
	}

	customer, err := uc.customerRepo.GetByID(ctx, inv.CustomerID)
	if err != nil {
		return nil, err
	}
	if customer == nil {
		return nil, &domain.NotFoundError{Ref: "customer " + inv.CustomerID}
	}
	org, err := uc.orgRepo.GetByID(ctx, inv.OrganizationID)
	if err != nil {
		return nil, err
	}
	if org == nil {
		return nil, &domain.NotFoundError{Ref: "organization " + inv.OrganizationID}
	}
	items, err := uc.invoiceRepo.GetItems(ctx, inv.ID)
	if err != nil {
		return nil, err
	}

	pdfBytes, err := uc.generator.GenerateInvoicePDF(ctx, inv, org, customer, items)
	if err != nil {
		return nil, &domain.RenderError{Reason: "pdf: " + err.Error()}
	}

	pdfURL, err := uc.store.Upload(ctx,
		fmt.Sprintf("invoices/%s.pdf", inv.FullNumber()),
		"application/pdf", pdfBytes,
	)
	if err != nil {
		return nil, err
	}

	inv.PDFURL = pdfURL
	if err := uc.invoiceRepo.UpdateArtifacts(ctx, inv.ID, inv.XMLURL, pdfURL, inv.QRURL); err != nil {
		return nil, err
	}
	if err := uc.eventRepo.Append(ctx, entity.NewPDFGeneratedEvent(inv.ID, pdfURL)); err != nil {
		uc.log.Warn().Err(err).Int64("invoice_id", inv.ID).Msg("no se pudo anexar PDF_GENERATED")
	}

	return &dto.PDFResponse{PDFURL: pdfURL, QRURL: inv.QRURL}, nil
}
