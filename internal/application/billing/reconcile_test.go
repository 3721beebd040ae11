package billing_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/Facturacion-api/internal/application/billing"
	"github.com/jhoicas/Facturacion-api/internal/application/dto"
	"github.com/jhoicas/Facturacion-api/internal/domain"
	"github.com/jhoicas/Facturacion-api/internal/domain/entity"
	"github.com/jhoicas/Facturacion-api/pkg/logger"
)

type reconcileFixture struct {
	uc        *billing.ReconcileUseCase
	invoices  *fakeInvoiceRepo
	events    *fakeEventRepo
	submitter *fakeSubmitter
	store     *fakeStore
}

// newReconcileFixture crea una factura, la deja en el estado indicado (con CUFE
// persistido si ya salió de DRAFT) y arma el caso de uso de reconciliación.
func newReconcileFixture(t *testing.T, status string) (*reconcileFixture, *entity.Invoice) {
	t.Helper()

	invoices := newFakeInvoiceRepo()
	events := &fakeEventRepo{}
	txRunner := &fakeTxRunner{invoices: invoices, events: events}

	createUC := billing.NewCreateInvoiceUseCase(
		txRunner, invoices, events,
		newFakeCustomerRepo(testCustomer()),
		&fakeOrgRepo{org: testOrganization()},
	)
	inv, _, err := createUC.CreateInvoice(context.Background(), validRequest())
	require.NoError(t, err)

	if status != entity.StatusDraft {
		ok, err := invoices.UpdateStatus(context.Background(), inv.ID, entity.StatusDraft, status,
			statusFieldsWithCUFE(testCUFE))
		require.NoError(t, err)
		require.True(t, ok)
		inv.Status = status
		inv.CUFE = testCUFE
	}

	submitter := &fakeSubmitter{}
	store := newFakeStore()
	uc := billing.NewReconcileUseCase(
		billing.NewStatusTransitioner(txRunner, logger.Nop()),
		invoices,
		submitter,
		store,
		5*time.Second,
		logger.Nop(),
	)
	return &reconcileFixture{uc: uc, invoices: invoices, events: events, submitter: submitter, store: store}, inv
}

func acceptedWebhook() *dto.WebhookRequest {
	return &dto.WebhookRequest{
		Type:     "invoice_accepted",
		CUFE:     testCUFE,
		DIANUUID: "uuid-webhook-1",
		Message:  "Documento validado por la DIAN",
	}
}

// Webhook de aceptación sobre una factura SENT: transición aplicada, evento
// INVOICE_ACCEPTED con la fuente.
func TestWebhook_AceptaFacturaEnviada(t *testing.T) {
	f, inv := newReconcileFixture(t, entity.StatusSent)

	resp, err := f.uc.HandleWebhook(context.Background(), acceptedWebhook())
	require.NoError(t, err)
	assert.True(t, resp.Success)

	stored, err := f.invoices.GetByID(context.Background(), inv.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.StatusAccepted, stored.Status)
	assert.Equal(t, "uuid-webhook-1", stored.DIANUUID)

	accepted := f.events.byType(entity.EventInvoiceAccepted)
	require.Len(t, accepted, 1)
	assert.Equal(t, "webhook", accepted[0].Payload["source"])
}

// Idempotencia: el mismo webhook dos veces produce dos eventos de auditoría
// pero un solo cambio de estado. El segundo queda como DIAN_STATUS_UPDATED
// con applied=false.
func TestWebhook_DuplicadoEsIdempotente(t *testing.T) {
	f, inv := newReconcileFixture(t, entity.StatusSent)

	_, err := f.uc.HandleWebhook(context.Background(), acceptedWebhook())
	require.NoError(t, err)
	resp, err := f.uc.HandleWebhook(context.Background(), acceptedWebhook())
	require.NoError(t, err)
	assert.True(t, resp.Success, "el duplicado se confirma igual, sin error")

	stored, err := f.invoices.GetByID(context.Background(), inv.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.StatusAccepted, stored.Status)

	assert.Len(t, f.events.byType(entity.EventInvoiceAccepted), 1,
		"solo el primer webhook aplica la transición")

	noops := f.events.byType(entity.EventStatusUpdated)
	require.Len(t, noops, 1)
	assert.Equal(t, false, noops[0].Payload["applied"], "el duplicado se audita como no-op")
}

// Un estado terminal nunca retrocede: rechazar una factura ya aceptada se
// audita pero no cambia nada.
func TestWebhook_EstadoTerminalNoRetrocede(t *testing.T) {
	f, inv := newReconcileFixture(t, entity.StatusAccepted)

	resp, err := f.uc.HandleWebhook(context.Background(), &dto.WebhookRequest{
		Type:   "invoice_rejected",
		CUFE:   testCUFE,
		Errors: []string{"notificación tardía"},
	})
	require.NoError(t, err)
	assert.True(t, resp.Success)

	stored, err := f.invoices.GetByID(context.Background(), inv.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.StatusAccepted, stored.Status, "ACCEPTED es terminal")

	assert.Empty(t, f.events.byType(entity.EventInvoiceRejected))
	require.Len(t, f.events.byType(entity.EventStatusUpdated), 1)
}

// status_update genérico con alias event_type y estado válido.
func TestWebhook_StatusUpdateConAlias(t *testing.T) {
	f, inv := newReconcileFixture(t, entity.StatusSent)

	_, err := f.uc.HandleWebhook(context.Background(), &dto.WebhookRequest{
		EventType: "status_update",
		CUFE:      testCUFE,
		NewStatus: entity.StatusRejected,
	})
	require.NoError(t, err)

	stored, err := f.invoices.GetByID(context.Background(), inv.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.StatusRejected, stored.Status)
}

func TestWebhook_TipoDesconocido(t *testing.T) {
	f, _ := newReconcileFixture(t, entity.StatusSent)

	_, err := f.uc.HandleWebhook(context.Background(), &dto.WebhookRequest{
		Type: "invoice_exploded",
		CUFE: testCUFE,
	})

	var vErr *domain.ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.Equal(t, "type", vErr.Field)
}

func TestWebhook_StatusUpdateConEstadoInvalido(t *testing.T) {
	f, _ := newReconcileFixture(t, entity.StatusSent)

	_, err := f.uc.HandleWebhook(context.Background(), &dto.WebhookRequest{
		Type:      "status_update",
		CUFE:      testCUFE,
		NewStatus: "LIMBO",
	})

	var vErr *domain.ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.Equal(t, "new_status", vErr.Field)
}

func TestWebhook_FacturaNoEncontrada(t *testing.T) {
	f, _ := newReconcileFixture(t, entity.StatusSent)

	_, err := f.uc.HandleWebhook(context.Background(), &dto.WebhookRequest{
		Type: "invoice_accepted",
		CUFE: "cufe-que-no-existe",
	})

	var nfErr *domain.NotFoundError
	assert.ErrorAs(t, err, &nfErr)
}

// El XML de respuesta se archiva; un fallo de storage no invalida la
// reconciliación ya aplicada.
func TestWebhook_ArchivaXMLDeRespuesta(t *testing.T) {
	f, inv := newReconcileFixture(t, entity.StatusSent)
	req := acceptedWebhook()
	req.ResponseXML = "<ApplicationResponse/>"

	_, err := f.uc.HandleWebhook(context.Background(), req)
	require.NoError(t, err)
	assert.Len(t, f.store.uploads, 1)

	f.store.err = errStorageDown
	req2 := acceptedWebhook()
	req2.ResponseXML = "<ApplicationResponse/>"
	resp, err := f.uc.HandleWebhook(context.Background(), req2)
	require.NoError(t, err, "el fallo de storage no debe propagar error")
	assert.True(t, resp.Success)

	stored, err := f.invoices.GetByID(context.Background(), inv.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.StatusAccepted, stored.Status)
}

// Poll sobre una factura SENT con veredicto de aceptación.
func TestPoll_AplicaAceptacion(t *testing.T) {
	f, inv := newReconcileFixture(t, entity.StatusSent)
	f.submitter.pollResult = &billing.SubmitResult{
		Outcome:         billing.OutcomeAccepted,
		DocumentUUID:    "uuid-poll-1",
		ResponseMessage: "Procesado Correctamente",
	}

	resp, err := f.uc.Poll(context.Background(), inv.ID)
	require.NoError(t, err)

	assert.Equal(t, entity.StatusAccepted, resp.Status)
	assert.Equal(t, "Procesado Correctamente", resp.Message)
	assert.Equal(t, 1, f.submitter.pollCalls)

	stored, err := f.invoices.GetByID(context.Background(), inv.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.StatusAccepted, stored.Status)
	require.Len(t, f.events.byType(entity.EventInvoiceAccepted), 1)
}

// Poll sin veredicto: la factura sigue SENT y se audita el no-op.
func TestPoll_SinVeredictoSigueEnviada(t *testing.T) {
	f, inv := newReconcileFixture(t, entity.StatusSent)
	f.submitter.pollResult = &billing.SubmitResult{
		Outcome:         billing.OutcomeInProcess,
		ResponseMessage: "Documento en proceso de validación",
	}

	resp, err := f.uc.Poll(context.Background(), inv.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.StatusSent, resp.Status)

	require.Len(t, f.events.byType(entity.EventStatusUpdated), 1)
	assert.Equal(t, false, f.events.byType(entity.EventStatusUpdated)[0].Payload["applied"])
}

// Una factura sin CUFE no puede consultarse: primero hay que emitirla.
func TestPoll_SinCUFE(t *testing.T) {
	f, inv := newReconcileFixture(t, entity.StatusDraft)

	_, err := f.uc.Poll(context.Background(), inv.ID)

	var vErr *domain.ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.Equal(t, "cufe", vErr.Field)
	assert.Equal(t, 0, f.submitter.pollCalls)
}

func TestPoll_FacturaInexistente(t *testing.T) {
	f, _ := newReconcileFixture(t, entity.StatusSent)

	_, err := f.uc.Poll(context.Background(), 9999)

	var nfErr *domain.NotFoundError
	assert.ErrorAs(t, err, &nfErr)
}
