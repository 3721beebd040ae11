package http

import (
	"errors"
	"fmt"

	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/Facturacion-api/internal/application/billing"
	"github.com/jhoicas/Facturacion-api/internal/application/dto"
	"github.com/jhoicas/Facturacion-api/internal/domain"
	"github.com/jhoicas/Facturacion-api/internal/domain/entity"
	"github.com/jhoicas/Facturacion-api/internal/domain/repository"
)

// InvoiceHandler maneja el ciclo de vida de la factura electrónica (protegido):
// creación + emisión, re-emisión de borradores, consulta de estado, poll a la
// DIAN y generación de PDF.
type InvoiceHandler struct {
	createUC    *billing.CreateInvoiceUseCase
	pipeline    *billing.DocumentPipeline
	reconcileUC *billing.ReconcileUseCase
	pdfUC       *billing.PDFUseCase
	invoiceRepo repository.InvoiceRepository
}

// NewInvoiceHandler construye el handler.
func NewInvoiceHandler(
	createUC *billing.CreateInvoiceUseCase,
	pipeline *billing.DocumentPipeline,
	reconcileUC *billing.ReconcileUseCase,
	pdfUC *billing.PDFUseCase,
	invoiceRepo repository.InvoiceRepository,
) *InvoiceHandler {
	return &InvoiceHandler{
		createUC:    createUC,
		pipeline:    pipeline,
		reconcileUC: reconcileUC,
		pdfUC:       pdfUC,
		invoiceRepo: invoiceRepo,
	}
}

// Create godoc
// @Summary      Crear y emitir una factura
// @Description  Crea la factura en DRAFT y corre el pipeline render→sign→submit
// @Description  de forma síncrona. Si una etapa falla, la factura queda en DRAFT
// @Description  y puede re-emitirse con POST /api/invoices/{id}/issue.
// @Tags         invoices
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.CreateInvoiceRequest  true  "Cabecera y líneas"
// @Success      201   {object}  dto.IssueInvoiceResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Failure      502   {object}  dto.ErrorResponse
// @Router       /api/invoices [post]
func (h *InvoiceHandler) Create(c *fiber.Ctx) error {
	var in dto.CreateInvoiceRequest
	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "cuerpo inválido"})
	}
	inv, items, err := h.createUC.CreateInvoice(c.Context(), &in)
	if err != nil {
		return mapDomainError(c, err)
	}
	if err := h.pipeline.Process(c.Context(), inv, items); err != nil {
		// La factura ya existe en DRAFT: el error de etapa incluye el id para
		// que el cliente pueda re-emitir sin duplicar.
		var stageErr domain.StageError
		if errors.As(err, &stageErr) {
			return stageFailure(c, inv.ID, stageErr)
		}
		return mapDomainError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(dto.IssueInvoiceResponse{
		InvoiceID: inv.ID,
		Status:    inv.Status,
		CUFE:      inv.CUFE,
		DIANUUID:  inv.DIANUUID,
	})
}

// Issue godoc
// @Summary      Re-emitir un borrador
// @Description  Corre el pipeline sobre una factura existente en DRAFT (reintento
// @Description  tras una falla de render, firma o envío).
// @Tags         invoices
// @Security     Bearer
// @Produce      json
// @Param        id  path  int  true  "ID de la factura"
// @Success      200  {object}  dto.IssueInvoiceResponse
// @Failure      400  {object}  dto.ErrorResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/invoices/{id}/issue [post]
func (h *InvoiceHandler) Issue(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil || id <= 0 {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: "id inválido"})
	}
	inv, err := h.invoiceRepo.GetByID(c.Context(), int64(id))
	if err != nil {
		return mapDomainError(c, err)
	}
	if inv == nil {
		return c.Status(fiber.StatusNotFound).JSON(dto.ErrorResponse{Code: "NOT_FOUND", Message: fmt.Sprintf("factura %d no encontrada", id)})
	}
	items, err := h.invoiceRepo.GetItems(c.Context(), inv.ID)
	if err != nil {
		return mapDomainError(c, err)
	}
	if err := h.pipeline.Process(c.Context(), inv, items); err != nil {
		var stageErr domain.StageError
		if errors.As(err, &stageErr) {
			return stageFailure(c, inv.ID, stageErr)
		}
		return mapDomainError(c, err)
	}
	return c.JSON(dto.IssueInvoiceResponse{
		InvoiceID: inv.ID,
		Status:    inv.Status,
		CUFE:      inv.CUFE,
		DIANUUID:  inv.DIANUUID,
	})
}

// GetStatus godoc
// @Summary      Consultar estado e historial de una factura
// @Description  Resuelve por cufe, luego invoice_id, luego dian_uuid.
// @Tags         invoices
// @Security     Bearer
// @Produce      json
// @Param        cufe        query  string  false  "CUFE"
// @Param        invoice_id  query  int     false  "ID interno"
// @Param        dian_uuid   query  string  false  "UUID asignado por la DIAN"
// @Success      200  {object}  dto.InvoiceStatusResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/invoices/status [get]
func (h *InvoiceHandler) GetStatus(c *fiber.Ctx) error {
	cufe := c.Query("cufe")
	dianUUID := c.Query("dian_uuid")
	invoiceID := int64(c.QueryInt("invoice_id", 0))
	if cufe == "" && invoiceID == 0 && dianUUID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: "se requiere cufe, invoice_id o dian_uuid"})
	}
	out, err := h.createUC.GetStatus(c.Context(), invoiceID, cufe, dianUUID)
	if err != nil {
		return mapDomainError(c, err)
	}
	return c.JSON(out)
}

// Poll godoc
// @Summary      Consultar el estado directamente en la DIAN
// @Description  Consulta síncrona por CUFE y reconciliación del estado local.
// @Tags         invoices
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.PollStatusRequest  true  "invoice_id"
// @Success      200   {object}  dto.PollStatusResponse
// @Failure      404   {object}  dto.ErrorResponse
// @Failure      502   {object}  dto.ErrorResponse
// @Router       /api/invoices/status [post]
func (h *InvoiceHandler) Poll(c *fiber.Ctx) error {
	var in dto.PollStatusRequest
	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "cuerpo inválido"})
	}
	if in.InvoiceID <= 0 {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: "invoice_id es requerido"})
	}
	out, err := h.reconcileUC.Poll(c.Context(), in.InvoiceID)
	if err != nil {
		return mapDomainError(c, err)
	}
	return c.JSON(out)
}

// GeneratePDF godoc
// @Summary      Generar la representación gráfica (PDF)
// @Description  Idempotente: si el PDF ya existe retorna la URL sin regenerar.
// @Tags         invoices
// @Security     Bearer
// @Produce      json
// @Param        id  path  int  true  "ID de la factura"
// @Success      200  {object}  dto.PDFResponse
// @Failure      400  {object}  dto.ErrorResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/invoices/{id}/pdf [post]
func (h *InvoiceHandler) GeneratePDF(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil || id <= 0 {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: "id inválido"})
	}
	out, err := h.pdfUC.Generate(c.Context(), int64(id))
	if err != nil {
		return mapDomainError(c, err)
	}
	return c.JSON(out)
}

// stageFailure responde una falla del pipeline indicando que la factura quedó
// en DRAFT y con qué id reintentar.
func stageFailure(c *fiber.Ctx, invoiceID int64, stageErr domain.StageError) error {
	status := fiber.StatusInternalServerError
	var subErr *domain.SubmissionError
	if errors.As(stageErr, &subErr) {
		status = fiber.StatusBadGateway
	}
	return c.Status(status).JSON(dto.ErrorResponse{
		Code:    "ISSUE_FAILED",
		Message: fmt.Sprintf("factura %d quedó en %s (etapa %s): %v", invoiceID, entity.StatusDraft, stageErr.Stage(), stageErr),
	})
}
