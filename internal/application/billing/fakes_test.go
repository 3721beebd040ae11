package billing_test

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jhoicas/Facturacion-api/internal/application/billing"
	"github.com/jhoicas/Facturacion-api/internal/domain"
	"github.com/jhoicas/Facturacion-api/internal/domain/entity"
	"github.com/jhoicas/Facturacion-api/internal/domain/repository"
)

// Fakes en memoria para los puertos de facturación. Simulan la semántica de la
// capa PostgreSQL que importa a los casos de uso: CAS en UpdateStatus, unicidad
// de (serie, número) y log de eventos append-only.

// ── Repositorio de facturas ───────────────────────────────────────────────────

type fakeInvoiceRepo struct {
	nextID   int64
	invoices map[int64]*entity.Invoice
	items    map[int64][]*entity.InvoiceItem
}

func newFakeInvoiceRepo() *fakeInvoiceRepo {
	return &fakeInvoiceRepo{
		invoices: make(map[int64]*entity.Invoice),
		items:    make(map[int64][]*entity.InvoiceItem),
	}
}

func (r *fakeInvoiceRepo) Create(_ context.Context, inv *entity.Invoice) error {
	for _, existing := range r.invoices {
		if existing.Series == inv.Series && existing.Number == inv.Number {
			return &domain.DuplicateError{Series: inv.Series, Number: inv.Number}
		}
	}
	r.nextID++
	inv.ID = r.nextID
	cp := *inv
	r.invoices[inv.ID] = &cp
	return nil
}

func (r *fakeInvoiceRepo) CreateItem(_ context.Context, item *entity.InvoiceItem) error {
	cp := *item
	r.items[item.InvoiceID] = append(r.items[item.InvoiceID], &cp)
	return nil
}

func (r *fakeInvoiceRepo) GetByID(_ context.Context, id int64) (*entity.Invoice, error) {
	inv, ok := r.invoices[id]
	if !ok {
		return nil, nil
	}
	cp := *inv
	return &cp, nil
}

func (r *fakeInvoiceRepo) GetByCUFE(_ context.Context, cufe string) (*entity.Invoice, error) {
	for _, inv := range r.invoices {
		if inv.CUFE == cufe && cufe != "" {
			cp := *inv
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *fakeInvoiceRepo) GetByDIANUUID(_ context.Context, dianUUID string) (*entity.Invoice, error) {
	for _, inv := range r.invoices {
		if inv.DIANUUID == dianUUID && dianUUID != "" {
			cp := *inv
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *fakeInvoiceRepo) GetItems(_ context.Context, invoiceID int64) ([]*entity.InvoiceItem, error) {
	return r.items[invoiceID], nil
}

func (r *fakeInvoiceRepo) UpdateStatus(_ context.Context, id int64, from, to string, fields repository.StatusFields) (bool, error) {
	inv, ok := r.invoices[id]
	if !ok || inv.Status != from {
		return false, nil
	}
	inv.Status = to
	if fields.CUFE != nil && *fields.CUFE != "" {
		inv.CUFE = *fields.CUFE
	}
	if fields.DIANUUID != nil && *fields.DIANUUID != "" {
		inv.DIANUUID = *fields.DIANUUID
	}
	return true, nil
}

func (r *fakeInvoiceRepo) UpdateArtifacts(_ context.Context, id int64, xmlURL, pdfURL, qrURL string) error {
	inv, ok := r.invoices[id]
	if !ok {
		return &domain.NotFoundError{Ref: fmt.Sprintf("invoice %d", id)}
	}
	if xmlURL != "" {
		inv.XMLURL = xmlURL
	}
	if pdfURL != "" {
		inv.PDFURL = pdfURL
	}
	if qrURL != "" {
		inv.QRURL = qrURL
	}
	return nil
}

// ── Log de eventos ────────────────────────────────────────────────────────────

type fakeEventRepo struct {
	events []*entity.Event
}

func (r *fakeEventRepo) Append(_ context.Context, event *entity.Event) error {
	cp := *event
	if cp.ID == "" {
		cp.ID = fmt.Sprintf("ev-%d", len(r.events)+1)
	}
	cp.CreatedAt = time.Now()
	r.events = append(r.events, &cp)
	return nil
}

func (r *fakeEventRepo) ListByInvoice(_ context.Context, invoiceID int64) ([]*entity.Event, error) {
	var out []*entity.Event
	for i := len(r.events) - 1; i >= 0; i-- {
		if r.events[i].InvoiceID == invoiceID {
			out = append(out, r.events[i])
		}
	}
	return out, nil
}

// byType filtra los eventos registrados por tipo, en orden de inserción.
func (r *fakeEventRepo) byType(eventType string) []*entity.Event {
	var out []*entity.Event
	for _, ev := range r.events {
		if ev.Type == eventType {
			out = append(out, ev)
		}
	}
	return out
}

// ── TxRunner ──────────────────────────────────────────────────────────────────

type fakeTxRunner struct {
	invoices repository.InvoiceRepository
	events   repository.EventRepository
}

func (t *fakeTxRunner) RunBilling(ctx context.Context, fn func(
	invoices repository.InvoiceRepository,
	events repository.EventRepository,
) error) error {
	return fn(t.invoices, t.events)
}

// ── Clientes y emisor ─────────────────────────────────────────────────────────

type fakeCustomerRepo struct {
	customers map[string]*entity.Customer
}

func newFakeCustomerRepo(customers ...*entity.Customer) *fakeCustomerRepo {
	m := make(map[string]*entity.Customer, len(customers))
	for _, c := range customers {
		m[c.ID] = c
	}
	return &fakeCustomerRepo{customers: m}
}

func (r *fakeCustomerRepo) Create(_ context.Context, c *entity.Customer) error {
	r.customers[c.ID] = c
	return nil
}

func (r *fakeCustomerRepo) GetByID(_ context.Context, id string) (*entity.Customer, error) {
	return r.customers[id], nil
}

func (r *fakeCustomerRepo) List(_ context.Context, _, _ int) ([]*entity.Customer, error) {
	out := make([]*entity.Customer, 0, len(r.customers))
	for _, c := range r.customers {
		out = append(out, c)
	}
	return out, nil
}

type fakeOrgRepo struct {
	org *entity.Organization
}

func (r *fakeOrgRepo) Get(_ context.Context) (*entity.Organization, error) { return r.org, nil }

func (r *fakeOrgRepo) GetByID(_ context.Context, id string) (*entity.Organization, error) {
	if r.org != nil && r.org.ID == id {
		return r.org, nil
	}
	return nil, nil
}

// ── Puertos del pipeline ──────────────────────────────────────────────────────

// fakeRenderer asigna el CUFE como efecto del render, igual que el renderer
// real (el CUFE viaja dentro del XML).
type fakeRenderer struct {
	cufe string
	err  error
}

func (f *fakeRenderer) Render(_ context.Context, in *billing.RenderInput) ([]byte, error) {
	if f.err != nil {
		return nil, f.err
	}
	in.Invoice.CUFE = f.cufe
	return []byte("<Invoice/>"), nil
}

type fakeSigner struct {
	err error
}

func (f *fakeSigner) Sign(_ context.Context, xmlBytes []byte) ([]byte, error) {
	if f.err != nil {
		return nil, f.err
	}
	return append(xmlBytes, []byte("<!--signed-->")...), nil
}

type fakeSubmitter struct {
	result      *billing.SubmitResult
	err         error
	pollResult  *billing.SubmitResult
	pollErr     error
	submitCalls int
	pollCalls   int
}

func (f *fakeSubmitter) Submit(_ context.Context, _ []byte, _ string) (*billing.SubmitResult, error) {
	f.submitCalls++
	if f.err != nil {
		return nil, f.err
	}
	return f.result, nil
}

func (f *fakeSubmitter) CheckStatus(_ context.Context, _ string) (*billing.SubmitResult, error) {
	f.pollCalls++
	if f.pollErr != nil {
		return nil, f.pollErr
	}
	return f.pollResult, nil
}

type fakeStore struct {
	uploads map[string][]byte
	err     error
}

func newFakeStore() *fakeStore { return &fakeStore{uploads: make(map[string][]byte)} }

func (f *fakeStore) Upload(_ context.Context, path, _ string, data []byte) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	f.uploads[path] = data
	return "https://storage.local/" + path, nil
}

type fakePDFGenerator struct {
	err error
}

func (f *fakePDFGenerator) GenerateInvoicePDF(
	_ context.Context,
	_ *entity.Invoice,
	_ *entity.Organization,
	_ *entity.Customer,
	_ []*entity.InvoiceItem,
) ([]byte, error) {
	if f.err != nil {
		return nil, f.err
	}
	return []byte("%PDF-1.7 fake"), nil
}

var errStorageDown = errors.New("storage no disponible")

func statusFieldsWithCUFE(cufe string) repository.StatusFields {
	return repository.StatusFields{CUFE: &cufe}
}
