package billing

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/jhoicas/Facturacion-api/internal/application/dto"
	"github.com/jhoicas/Facturacion-api/internal/domain"
	"github.com/jhoicas/Facturacion-api/internal/domain/entity"
	"github.com/jhoicas/Facturacion-api/internal/domain/repository"
	"github.com/jhoicas/Facturacion-api/pkg/dian"
)

// Valores por defecto del Anexo Técnico cuando la petición los omite.
const (
	defaultCurrency      = "COP"
	defaultOperationType = "10" // Estándar
	defaultTaxRate       = 19   // IVA general (informativo en la cabecera)
)

var cien = decimal.NewFromInt(100)

// CreateInvoiceUseCase arma el agregado de la factura a partir de la petición
// de venta: valida, calcula totales de forma determinista y persiste cabecera,
// líneas y evento INVOICE_CREATED en una sola transacción (estado DRAFT).
type CreateInvoiceUseCase struct {
	txRunner     TxRunner
	invoiceRepo  repository.InvoiceRepository
	eventRepo    repository.EventRepository
	customerRepo repository.CustomerRepository
	orgRepo      repository.OrganizationRepository
}

// NewCreateInvoiceUseCase construye el caso de uso.
func NewCreateInvoiceUseCase(
	txRunner TxRunner,
	invoiceRepo repository.InvoiceRepository,
	eventRepo repository.EventRepository,
	customerRepo repository.CustomerRepository,
	orgRepo repository.OrganizationRepository,
) *CreateInvoiceUseCase {
	return &CreateInvoiceUseCase{
		txRunner:     txRunner,
		invoiceRepo:  invoiceRepo,
		eventRepo:    eventRepo,
		customerRepo: customerRepo,
		orgRepo:      orgRepo,
	}
}

// CreateInvoice valida la petición, calcula los totales y persiste la factura
// en DRAFT. Retorna *domain.ValidationError nombrando el primer campo que
// falló, *domain.DuplicateError si (serie, número) ya existe y
// *domain.PersistenceError ante fallos de almacenamiento.
func (uc *CreateInvoiceUseCase) CreateInvoice(ctx context.Context, in *dto.CreateInvoiceRequest) (*entity.Invoice, []*entity.InvoiceItem, error) {
	if err := validateRequest(in); err != nil {
		return nil, nil, err
	}

	issueDate, err := time.Parse("2006-01-02", in.IssueDate)
	if err != nil {
		return nil, nil, &domain.ValidationError{Field: "issue_date"}
	}

	customer, err := uc.customerRepo.GetByID(ctx, in.CustomerID)
	if err != nil {
		return nil, nil, err
	}
	if customer == nil {
		return nil, nil, &domain.NotFoundError{Ref: "customer " + in.CustomerID}
	}

	org, err := uc.orgRepo.Get(ctx)
	if err != nil {
		return nil, nil, err
	}
	if org == nil {
		return nil, nil, &domain.NotFoundError{Ref: "organization"}
	}

	now := time.Now()
	inv := &entity.Invoice{
		OrganizationID: org.ID,
		CustomerID:     in.CustomerID,
		Series:         in.Series,
		Number:         in.Number,
		IssueDate:      issueDate,
		IssueTime:      in.IssueTime,
		Currency:       in.Currency,
		ExchangeRate:   in.ExchangeRate,
		OperationType:  in.OperationType,
		Status:         entity.StatusDraft,
		Notes:          in.Notes,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if inv.Currency == "" {
		inv.Currency = defaultCurrency
	}
	if inv.ExchangeRate.IsZero() {
		inv.ExchangeRate = decimal.NewFromInt(1)
	}
	if inv.OperationType == "" {
		inv.OperationType = defaultOperationType
	}

	items, err := buildItems(in.Items)
	if err != nil {
		return nil, nil, err
	}
	applyTotals(inv, items)

	err = uc.txRunner.RunBilling(ctx, func(
		invoices repository.InvoiceRepository,
		events repository.EventRepository,
	) error {
		if err := invoices.Create(ctx, inv); err != nil {
			return err
		}
		for _, item := range items {
			item.InvoiceID = inv.ID
			if err := invoices.CreateItem(ctx, item); err != nil {
				return err
			}
		}
		return events.Append(ctx, entity.NewCreatedEvent(inv.ID, inv.Series, inv.Number))
	})
	if err != nil {
		return nil, nil, err
	}
	return inv, items, nil
}

// validateRequest valida los campos obligatorios en orden fijo y retorna el
// primero que falte.
func validateRequest(in *dto.CreateInvoiceRequest) error {
	switch {
	case in == nil:
		return domain.ErrInvalidInput
	case in.CustomerID == "":
		return &domain.ValidationError{Field: "customer_id"}
	case in.Series == "":
		return &domain.ValidationError{Field: "series"}
	case in.Number == "":
		return &domain.ValidationError{Field: "number"}
	case in.IssueDate == "":
		return &domain.ValidationError{Field: "issue_date"}
	case in.IssueTime == "":
		return &domain.ValidationError{Field: "issue_time"}
	case len(in.Items) == 0:
		return &domain.ValidationError{Field: "items"}
	}
	return nil
}

// buildItems calcula cada línea en el orden exacto del Anexo:
//
//	line_total      = unit_price * quantity
//	discount_amount = line_total * discount_pct/100
//	taxable_amount  = line_total - discount_amount
//	tax_amount      = taxable_amount * tax_rate/100
//
// Todo en decimal; el redondeo a 2 decimales ocurre solo al persistir.
func buildItems(reqs []dto.InvoiceItemRequest) ([]*entity.InvoiceItem, error) {
	items := make([]*entity.InvoiceItem, 0, len(reqs))
	for i := range reqs {
		r := &reqs[i]
		switch {
		case r.ItemID == "":
			return nil, &domain.ValidationError{Field: "items.item_id"}
		case !r.Quantity.GreaterThan(decimal.Zero):
			return nil, &domain.ValidationError{Field: "items.quantity"}
		case r.UnitPrice.LessThan(decimal.Zero):
			return nil, &domain.ValidationError{Field: "items.unit_price"}
		case r.DiscountPct.LessThan(decimal.Zero) || r.DiscountPct.GreaterThan(cien):
			return nil, &domain.ValidationError{Field: "items.discount_pct"}
		case r.TaxRate.LessThan(decimal.Zero):
			return nil, &domain.ValidationError{Field: "items.tax_rate"}
		}

		lineTotal := r.UnitPrice.Mul(r.Quantity)
		discountAmount := lineTotal.Mul(r.DiscountPct).Div(cien)
		taxableAmount := lineTotal.Sub(discountAmount)
		taxAmount := taxableAmount.Mul(r.TaxRate).Div(cien)

		unitMeasure := r.UnitMeasure
		if unitMeasure == "" {
			unitMeasure = dian.UnitUnit
		}
		items = append(items, &entity.InvoiceItem{
			ID:             uuid.New().String(),
			ItemID:         r.ItemID,
			Description:    r.Description,
			ProductCode:    r.ProductCode,
			UnitMeasure:    unitMeasure,
			Quantity:       r.Quantity,
			UnitPrice:      r.UnitPrice,
			DiscountPct:    r.DiscountPct,
			DiscountAmount: discountAmount,
			TaxRate:        r.TaxRate,
			TaxAmount:      taxAmount,
			LineSubtotal:   lineTotal,
			LineTax:        taxAmount,
			LineTotal:      lineTotal.Add(taxAmount),
		})
	}
	return items, nil
}

// applyTotals agrega los totales de cabecera a partir de las líneas:
//
//	line_extension  = Σ line_total
//	allowance_total = Σ discount_amount
//	tax_exclusive   = line_extension - allowance_total
//	tax_amount      = Σ tax_amount
//	tax_inclusive   = tax_exclusive + tax_amount
//	charge_total    = 0 (sin modelo de cargos)
//	payable         = tax_inclusive + charge_total
func applyTotals(inv *entity.Invoice, items []*entity.InvoiceItem) {
	var lineExtension, allowanceTotal, taxTotal decimal.Decimal
	for _, item := range items {
		lineExtension = lineExtension.Add(item.LineSubtotal)
		allowanceTotal = allowanceTotal.Add(item.DiscountAmount)
		taxTotal = taxTotal.Add(item.TaxAmount)
	}
	taxExclusive := lineExtension.Sub(allowanceTotal)
	taxInclusive := taxExclusive.Add(taxTotal)
	chargeTotal := decimal.Zero

	inv.LineExtensionAmount = lineExtension
	inv.AllowanceTotalAmount = allowanceTotal
	inv.TaxExclusiveAmount = taxExclusive
	inv.TaxAmount = taxTotal
	inv.TaxInclusiveAmount = taxInclusive
	inv.ChargeTotalAmount = chargeTotal
	inv.PayableAmount = taxInclusive.Add(chargeTotal)
	inv.TaxRate = decimal.NewFromInt(defaultTaxRate)
}

// GetStatus resuelve la factura por el identificador presente (cufe primero,
// luego id interno, luego dian_uuid) y retorna cabecera + eventos, más
// reciente primero.
func (uc *CreateInvoiceUseCase) GetStatus(ctx context.Context, invoiceID int64, cufe, dianUUID string) (*dto.InvoiceStatusResponse, error) {
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
		return nil, &domain.ValidationError{Field: "invoice_id, cufe o dian_uuid"}
	}
	if err != nil {
		return nil, err
	}
	if inv == nil {
		return nil, &domain.NotFoundError{Ref: "factura consultada"}
	}

	events, err := uc.eventRepo.ListByInvoice(ctx, inv.ID)
	if err != nil {
		return nil, err
	}
	resp := &dto.InvoiceStatusResponse{
		ID:            inv.ID,
		Series:        inv.Series,
		Number:        inv.Number,
		Status:        inv.Status,
		CUFE:          inv.CUFE,
		DIANUUID:      inv.DIANUUID,
		IssueDate:     inv.IssueDate.Format("2006-01-02"),
		PayableAmount: inv.PayableAmount,
		XMLURL:        inv.XMLURL,
		PDFURL:        inv.PDFURL,
		Events:        make([]dto.EventResponse, 0, len(events)),
	}
	for _, ev := range events {
		resp.Events = append(resp.Events, dto.EventResponse{
			ID:        ev.ID,
			Type:      ev.Type,
			Payload:   ev.Payload,
			Status:    ev.Status,
			CreatedAt: ev.CreatedAt,
		})
	}
	return resp, nil
}
