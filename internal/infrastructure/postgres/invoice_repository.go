package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/jhoicas/Facturacion-api/internal/domain"
	"github.com/jhoicas/Facturacion-api/internal/domain/entity"
	"github.com/jhoicas/Facturacion-api/internal/domain/repository"
)

var _ repository.InvoiceRepository = (*InvoiceRepo)(nil)

// InvoiceRepo implementación de InvoiceRepository (usable con pool o tx).
type InvoiceRepo struct {
	q Querier
}

// NewInvoiceRepository construye el adaptador. Pasar pool o tx (Querier).
func NewInvoiceRepository(q Querier) *InvoiceRepo {
	return &InvoiceRepo{q: q}
}

const invoiceColumns = `
	id, organization_id, customer_id, series, number, issue_date, issue_time,
	currency, exchange_rate, operation_type,
	line_extension_amount, tax_exclusive_amount, tax_inclusive_amount,
	allowance_total_amount, charge_total_amount, payable_amount,
	tax_amount, tax_rate,
	status, cufe, dian_uuid, notes, xml_url, pdf_url, qr_url,
	created_at, updated_at`

// Create persiste la cabecera en DRAFT y asigna el ID generado.
// Retorna *domain.DuplicateError si ya existe (series, number).
func (r *InvoiceRepo) Create(ctx context.Context, inv *entity.Invoice) error {
	query := `
		INSERT INTO invoices (
			organization_id, customer_id, series, number, issue_date, issue_time,
			currency, exchange_rate, operation_type,
			line_extension_amount, tax_exclusive_amount, tax_inclusive_amount,
			allowance_total_amount, charge_total_amount, payable_amount,
			tax_amount, tax_rate,
			status, cufe, dian_uuid, notes, xml_url, pdf_url, qr_url,
			created_at, updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14,
		        $15, $16, $17, $18, $19, $20, $21, $22, $23, $24, $25, $26)
		RETURNING id`
	err := r.q.QueryRow(ctx, query,
		inv.OrganizationID, inv.CustomerID, inv.Series, inv.Number, inv.IssueDate, inv.IssueTime,
		inv.Currency, inv.ExchangeRate, inv.OperationType,
		inv.LineExtensionAmount.Round(2), inv.TaxExclusiveAmount.Round(2), inv.TaxInclusiveAmount.Round(2),
		inv.AllowanceTotalAmount.Round(2), inv.ChargeTotalAmount.Round(2), inv.PayableAmount.Round(2),
		inv.TaxAmount.Round(2), inv.TaxRate,
		inv.Status, nullIfEmpty(inv.CUFE), nullIfEmpty(inv.DIANUUID), nullIfEmpty(inv.Notes),
		nullIfEmpty(inv.XMLURL), nullIfEmpty(inv.PDFURL), nullIfEmpty(inv.QRURL),
		inv.CreatedAt, inv.UpdatedAt,
	).Scan(&inv.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return &domain.DuplicateError{Series: inv.Series, Number: inv.Number}
		}
		return &domain.PersistenceError{Op: "insert invoice", Err: err}
	}
	return nil
}

// CreateItem persiste una línea de la factura.
func (r *InvoiceRepo) CreateItem(ctx context.Context, item *entity.InvoiceItem) error {
	if item.ID == "" {
		item.ID = uuid.New().String()
	}
	query := `
		INSERT INTO invoice_items (
			id, invoice_id, item_id, description, product_code, unit_measure,
			quantity, unit_price, discount_pct, discount_amount,
			tax_rate, tax_amount, line_subtotal, line_tax, line_total, notes
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)`
	_, err := r.q.Exec(ctx, query,
		item.ID, item.InvoiceID, item.ItemID, item.Description, item.ProductCode, item.UnitMeasure,
		item.Quantity, item.UnitPrice.Round(2), item.DiscountPct, item.DiscountAmount.Round(2),
		item.TaxRate, item.TaxAmount.Round(2), item.LineSubtotal.Round(2), item.LineTax.Round(2),
		item.LineTotal.Round(2), nullIfEmpty(item.Notes),
	)
	if err != nil {
		return &domain.PersistenceError{Op: "insert invoice item", Err: err}
	}
	return nil
}

// GetByID obtiene una factura por ID interno. nil, nil si no existe.
func (r *InvoiceRepo) GetByID(ctx context.Context, id int64) (*entity.Invoice, error) {
	return r.getBy(ctx, "id = $1", id)
}

// GetByCUFE obtiene una factura por CUFE.
func (r *InvoiceRepo) GetByCUFE(ctx context.Context, cufe string) (*entity.Invoice, error) {
	return r.getBy(ctx, "cufe = $1", cufe)
}

// GetByDIANUUID obtiene una factura por el identificador asignado por la DIAN.
func (r *InvoiceRepo) GetByDIANUUID(ctx context.Context, dianUUID string) (*entity.Invoice, error) {
	return r.getBy(ctx, "dian_uuid = $1", dianUUID)
}

func (r *InvoiceRepo) getBy(ctx context.Context, where string, arg any) (*entity.Invoice, error) {
	query := `SELECT ` + invoiceColumns + ` FROM invoices WHERE ` + where
	var inv entity.Invoice
	var cufe, dianUUID, notes, xmlURL, pdfURL, qrURL *string
	err := r.q.QueryRow(ctx, query, arg).Scan(
		&inv.ID, &inv.OrganizationID, &inv.CustomerID, &inv.Series, &inv.Number,
		&inv.IssueDate, &inv.IssueTime,
		&inv.Currency, &inv.ExchangeRate, &inv.OperationType,
		&inv.LineExtensionAmount, &inv.TaxExclusiveAmount, &inv.TaxInclusiveAmount,
		&inv.AllowanceTotalAmount, &inv.ChargeTotalAmount, &inv.PayableAmount,
		&inv.TaxAmount, &inv.TaxRate,
		&inv.Status, &cufe, &dianUUID, &notes, &xmlURL, &pdfURL, &qrURL,
		&inv.CreatedAt, &inv.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, &domain.PersistenceError{Op: "get invoice", Err: err}
	}
	inv.CUFE = derefStr(cufe)
	inv.DIANUUID = derefStr(dianUUID)
	inv.Notes = derefStr(notes)
	inv.XMLURL = derefStr(xmlURL)
	inv.PDFURL = derefStr(pdfURL)
	inv.QRURL = derefStr(qrURL)
	return &inv, nil
}

// GetItems obtiene todas las líneas de una factura.
func (r *InvoiceRepo) GetItems(ctx context.Context, invoiceID int64) ([]*entity.InvoiceItem, error) {
	query := `
		SELECT id, invoice_id, item_id, description, product_code, unit_measure,
		       quantity, unit_price, discount_pct, discount_amount,
		       tax_rate, tax_amount, line_subtotal, line_tax, line_total,
		       COALESCE(notes, '')
		FROM invoice_items WHERE invoice_id = $1 ORDER BY id`
	rows, err := r.q.Query(ctx, query, invoiceID)
	if err != nil {
		return nil, &domain.PersistenceError{Op: "list invoice items", Err: err}
	}
	defer rows.Close()
	var list []*entity.InvoiceItem
	for rows.Next() {
		var item entity.InvoiceItem
		if err := rows.Scan(
			&item.ID, &item.InvoiceID, &item.ItemID, &item.Description, &item.ProductCode,
			&item.UnitMeasure, &item.Quantity, &item.UnitPrice, &item.DiscountPct,
			&item.DiscountAmount, &item.TaxRate, &item.TaxAmount,
			&item.LineSubtotal, &item.LineTax, &item.LineTotal, &item.Notes,
		); err != nil {
			return nil, &domain.PersistenceError{Op: "scan invoice item", Err: err}
		}
		list = append(list, &item)
	}
	return list, rows.Err()
}

// UpdateStatus aplica la transición con compare-and-swap: el UPDATE solo
// procede si el estado actual sigue siendo `from`. Retorna false sin error si
// otro proceso ganó la carrera.
func (r *InvoiceRepo) UpdateStatus(ctx context.Context, id int64, from, to string, fields repository.StatusFields) (bool, error) {
	query := `
		UPDATE invoices
		SET status     = $3,
		    cufe       = COALESCE($4, cufe),
		    dian_uuid  = COALESCE($5, dian_uuid),
		    updated_at = now()
		WHERE id = $1 AND status = $2`
	var cufe, dianUUID *string
	if fields.CUFE != nil && *fields.CUFE != "" {
		cufe = fields.CUFE
	}
	if fields.DIANUUID != nil && *fields.DIANUUID != "" {
		dianUUID = fields.DIANUUID
	}
	tag, err := r.q.Exec(ctx, query, id, from, to, cufe, dianUUID)
	if err != nil {
		return false, &domain.PersistenceError{Op: "update invoice status", Err: err}
	}
	return tag.RowsAffected() == 1, nil
}

// UpdateArtifacts registra URLs de artefactos generados. Los strings vacíos no
// sobreescriben valores existentes.
func (r *InvoiceRepo) UpdateArtifacts(ctx context.Context, id int64, xmlURL, pdfURL, qrURL string) error {
	query := `
		UPDATE invoices
		SET xml_url    = COALESCE($2, xml_url),
		    pdf_url    = COALESCE($3, pdf_url),
		    qr_url     = COALESCE($4, qr_url),
		    updated_at = now()
		WHERE id = $1`
	tag, err := r.q.Exec(ctx, query, id, nullIfEmpty(xmlURL), nullIfEmpty(pdfURL), nullIfEmpty(qrURL))
	if err != nil {
		return &domain.PersistenceError{Op: "update invoice artifacts", Err: err}
	}
	if tag.RowsAffected() == 0 {
		return &domain.NotFoundError{Ref: fmt.Sprintf("invoice %d", id)}
	}
	return nil
}
