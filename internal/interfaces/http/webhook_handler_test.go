package http_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/Facturacion-api/internal/application/billing"
	"github.com/jhoicas/Facturacion-api/internal/application/dto"
	"github.com/jhoicas/Facturacion-api/internal/domain/entity"
	"github.com/jhoicas/Facturacion-api/internal/domain/repository"
	apphttp "github.com/jhoicas/Facturacion-api/internal/interfaces/http"
	"github.com/jhoicas/Facturacion-api/pkg/logger"
)

const (
	webhookSecret = "secreto-compartido-pst"
	webhookCUFE   = "aabbcc00000000000000000000000000000000000000000000000000000000000000000000000000000000000000dd11"
)

// ── Fakes mínimos para armar un ReconcileUseCase real detrás del handler ──────

type memInvoiceRepo struct {
	inv *entity.Invoice
}

func (r *memInvoiceRepo) Create(_ context.Context, _ *entity.Invoice) error         { return nil }
func (r *memInvoiceRepo) CreateItem(_ context.Context, _ *entity.InvoiceItem) error { return nil }

func (r *memInvoiceRepo) GetByID(_ context.Context, id int64) (*entity.Invoice, error) {
	if r.inv != nil && r.inv.ID == id {
		cp := *r.inv
		return &cp, nil
	}
	return nil, nil
}

func (r *memInvoiceRepo) GetByCUFE(_ context.Context, cufe string) (*entity.Invoice, error) {
	if r.inv != nil && r.inv.CUFE == cufe && cufe != "" {
		cp := *r.inv
		return &cp, nil
	}
	return nil, nil
}

func (r *memInvoiceRepo) GetByDIANUUID(_ context.Context, dianUUID string) (*entity.Invoice, error) {
	if r.inv != nil && r.inv.DIANUUID == dianUUID && dianUUID != "" {
		cp := *r.inv
		return &cp, nil
	}
	return nil, nil
}

func (r *memInvoiceRepo) GetItems(_ context.Context, _ int64) ([]*entity.InvoiceItem, error) {
	return nil, nil
}

func (r *memInvoiceRepo) UpdateStatus(_ context.Context, id int64, from, to string, fields repository.StatusFields) (bool, error) {
	if r.inv == nil || r.inv.ID != id || r.inv.Status != from {
		return false, nil
	}
	r.inv.Status = to
	if fields.CUFE != nil && *fields.CUFE != "" {
		r.inv.CUFE = *fields.CUFE
	}
	if fields.DIANUUID != nil && *fields.DIANUUID != "" {
		r.inv.DIANUUID = *fields.DIANUUID
	}
	return true, nil
}

func (r *memInvoiceRepo) UpdateArtifacts(_ context.Context, _ int64, _, _, _ string) error {
	return nil
}

type memEventRepo struct {
	events []*entity.Event
}

func (r *memEventRepo) Append(_ context.Context, ev *entity.Event) error {
	r.events = append(r.events, ev)
	return nil
}

func (r *memEventRepo) ListByInvoice(_ context.Context, _ int64) ([]*entity.Event, error) {
	return r.events, nil
}

type memTxRunner struct {
	invoices repository.InvoiceRepository
	events   repository.EventRepository
}

func (t *memTxRunner) RunBilling(ctx context.Context, fn func(
	invoices repository.InvoiceRepository,
	events repository.EventRepository,
) error) error {
	return fn(t.invoices, t.events)
}

type noopSubmitter struct{}

func (noopSubmitter) Submit(_ context.Context, _ []byte, _ string) (*billing.SubmitResult, error) {
	return &billing.SubmitResult{Outcome: billing.OutcomeInProcess}, nil
}

func (noopSubmitter) CheckStatus(_ context.Context, _ string) (*billing.SubmitResult, error) {
	return &billing.SubmitResult{Outcome: billing.OutcomeInProcess}, nil
}

type noopStore struct{}

func (noopStore) Upload(_ context.Context, path, _ string, _ []byte) (string, error) {
	return "https://storage.local/" + path, nil
}

// buildWebhookApp monta POST /api/invoices/webhook con una factura SENT lista
// para reconciliar.
func buildWebhookApp() (*fiber.App, *memInvoiceRepo, *memEventRepo) {
	invoices := &memInvoiceRepo{inv: &entity.Invoice{
		ID:     1,
		Series: "SETP",
		Number: "000000001",
		Status: entity.StatusSent,
		CUFE:   webhookCUFE,
	}}
	events := &memEventRepo{}
	uc := billing.NewReconcileUseCase(
		billing.NewStatusTransitioner(&memTxRunner{invoices: invoices, events: events}, logger.Nop()),
		invoices,
		noopSubmitter{},
		noopStore{},
		5*time.Second,
		logger.Nop(),
	)
	app := fiber.New()
	handler := apphttp.NewWebhookHandler(uc, webhookSecret)
	app.Post("/api/invoices/webhook", handler.Handle)
	return app, invoices, events
}

func postWebhook(t *testing.T, app *fiber.App, authHeader string, body any) *http.Response {
	t.Helper()
	payload, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, "/api/invoices/webhook", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	if authHeader != "" {
		req.Header.Set("Authorization", authHeader)
	}
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	return resp
}

func TestWebhookHandler_AceptacionOK(t *testing.T) {
	app, invoices, _ := buildWebhookApp()

	resp := postWebhook(t, app, "Bearer "+webhookSecret, dto.WebhookRequest{
		Type:     "invoice_accepted",
		CUFE:     webhookCUFE,
		DIANUUID: "uuid-1",
	})
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var out dto.WebhookResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	assert.True(t, out.Success)
	assert.Equal(t, entity.StatusAccepted, invoices.inv.Status)
}

// El secreto se verifica antes de tocar el cuerpo o la base: sin token válido
// no hay forma de sondear qué facturas existen.
func TestWebhookHandler_SecretoInvalido(t *testing.T) {
	app, invoices, events := buildWebhookApp()

	cases := []struct {
		name   string
		header string
	}{
		{"sin header", ""},
		{"secreto equivocado", "Bearer otro-secreto"},
		{"esquema equivocado", "Basic " + webhookSecret},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			resp := postWebhook(t, app, tc.header, dto.WebhookRequest{
				Type: "invoice_accepted",
				CUFE: webhookCUFE,
			})
			defer resp.Body.Close()
			assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
		})
	}
	assert.Equal(t, entity.StatusSent, invoices.inv.Status, "nada debe haberse aplicado")
	assert.Empty(t, events.events)
}

func TestWebhookHandler_TipoDesconocido(t *testing.T) {
	app, _, _ := buildWebhookApp()

	resp := postWebhook(t, app, "Bearer "+webhookSecret, dto.WebhookRequest{
		Type: "invoice_exploded",
		CUFE: webhookCUFE,
	})
	defer resp.Body.Close()

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	var out dto.ErrorResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	assert.Equal(t, "VALIDATION", out.Code)
}

func TestWebhookHandler_FacturaDesconocida(t *testing.T) {
	app, _, _ := buildWebhookApp()

	resp := postWebhook(t, app, "Bearer "+webhookSecret, dto.WebhookRequest{
		Type: "invoice_accepted",
		CUFE: "cufe-inexistente",
	})
	defer resp.Body.Close()

	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

// Repetir la misma notificación responde 200 sin re-aplicar la transición.
func TestWebhookHandler_DuplicadoResponde200(t *testing.T) {
	app, invoices, events := buildWebhookApp()
	body := dto.WebhookRequest{Type: "invoice_accepted", CUFE: webhookCUFE, DIANUUID: "uuid-1"}

	resp1 := postWebhook(t, app, "Bearer "+webhookSecret, body)
	resp1.Body.Close()
	resp2 := postWebhook(t, app, "Bearer "+webhookSecret, body)
	defer resp2.Body.Close()

	assert.Equal(t, http.StatusOK, resp2.StatusCode)
	assert.Equal(t, entity.StatusAccepted, invoices.inv.Status)

	var applied int
	for _, ev := range events.events {
		if ev.Type == entity.EventInvoiceAccepted {
			applied++
		}
	}
	assert.Equal(t, 1, applied, "solo la primera notificación aplica la transición")
	assert.Len(t, events.events, 2, "ambas notificaciones quedan en el log")
}
