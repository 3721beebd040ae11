package billing_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/Facturacion-api/internal/application/billing"
	"github.com/jhoicas/Facturacion-api/internal/domain"
	"github.com/jhoicas/Facturacion-api/internal/domain/entity"
	"github.com/jhoicas/Facturacion-api/pkg/logger"
)

const testCUFE = "d3f1c0de0000000000000000000000000000000000000000000000000000000000000000000000000000000000000000"

type pipelineFixture struct {
	pipeline  *billing.DocumentPipeline
	invoices  *fakeInvoiceRepo
	events    *fakeEventRepo
	submitter *fakeSubmitter
	store     *fakeStore
}

// newPipelineFixture arma el pipeline completo con fakes y deja una factura en
// DRAFT lista para emitir.
func newPipelineFixture(t *testing.T, submitter *fakeSubmitter) (*pipelineFixture, *entity.Invoice, []*entity.InvoiceItem) {
	t.Helper()

	invoices := newFakeInvoiceRepo()
	events := &fakeEventRepo{}
	txRunner := &fakeTxRunner{invoices: invoices, events: events}
	store := newFakeStore()

	createUC := billing.NewCreateInvoiceUseCase(
		txRunner, invoices, events,
		newFakeCustomerRepo(testCustomer()),
		&fakeOrgRepo{org: testOrganization()},
	)
	inv, items, err := createUC.CreateInvoice(context.Background(), validRequest())
	require.NoError(t, err)

	pipeline := billing.NewDocumentPipeline(
		&fakeRenderer{cufe: testCUFE},
		&fakeSigner{},
		submitter,
		store,
		billing.NewStatusTransitioner(txRunner, logger.Nop()),
		invoices, events,
		newFakeCustomerRepo(testCustomer()),
		&fakeOrgRepo{org: testOrganization()},
		5*time.Second,
		logger.Nop(),
	)
	return &pipelineFixture{
		pipeline:  pipeline,
		invoices:  invoices,
		events:    events,
		submitter: submitter,
		store:     store,
	}, inv, items
}

// Aceptación síncrona: DRAFT → ACCEPTED con CUFE y UUID persistidos de forma
// atómica con el estado.
func TestPipeline_AceptacionSincrona(t *testing.T) {
	submitter := &fakeSubmitter{result: &billing.SubmitResult{
		Outcome:      billing.OutcomeAccepted,
		DocumentUUID: "uuid-dian-1",
		Raw:          map[string]any{"statusCode": "00"},
	}}
	f, inv, items := newPipelineFixture(t, submitter)

	err := f.pipeline.Process(context.Background(), inv, items)
	require.NoError(t, err)

	assert.Equal(t, entity.StatusAccepted, inv.Status)
	assert.Equal(t, testCUFE, inv.CUFE, "el CUFE calculado en el render prevalece")
	assert.Equal(t, "uuid-dian-1", inv.DIANUUID)

	stored, err := f.invoices.GetByID(context.Background(), inv.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.StatusAccepted, stored.Status)
	assert.Equal(t, testCUFE, stored.CUFE)

	require.Len(t, f.events.byType(entity.EventInvoiceAccepted), 1)
	assert.Contains(t, f.store.uploads, "invoices/SETP000000001.xml",
		"el XML firmado debe archivarse antes del envío")
}

// Rechazo síncrono: DRAFT → REJECTED, con los errores en el evento.
func TestPipeline_RechazoSincrono(t *testing.T) {
	submitter := &fakeSubmitter{result: &billing.SubmitResult{
		Outcome: billing.OutcomeRejected,
		Errors:  []string{"Regla FAD06: NIT del emisor no autorizado"},
		Raw:     map[string]any{"statusCode": "99"},
	}}
	f, inv, items := newPipelineFixture(t, submitter)

	err := f.pipeline.Process(context.Background(), inv, items)
	require.NoError(t, err)

	assert.Equal(t, entity.StatusRejected, inv.Status)

	rejected := f.events.byType(entity.EventInvoiceRejected)
	require.Len(t, rejected, 1)
	assert.Equal(t, []string{"Regla FAD06: NIT del emisor no autorizado"}, rejected[0].Payload["errors"])
}

// Respuesta inconclusa: DRAFT → SENT, persistiendo el CUFE del render para que
// el poll posterior pueda consultar por él.
func TestPipeline_EnProcesoQuedaEnviada(t *testing.T) {
	submitter := &fakeSubmitter{result: &billing.SubmitResult{
		Outcome: billing.OutcomeInProcess,
		Raw:     map[string]any{"statusCode": "98"},
	}}
	f, inv, items := newPipelineFixture(t, submitter)

	err := f.pipeline.Process(context.Background(), inv, items)
	require.NoError(t, err)

	assert.Equal(t, entity.StatusSent, inv.Status)

	stored, err := f.invoices.GetByID(context.Background(), inv.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.StatusSent, stored.Status)
	assert.Equal(t, testCUFE, stored.CUFE, "el CUFE debe quedar persistido al pasar a SENT")

	require.Len(t, f.events.byType(entity.EventInvoiceSentToDIAN), 1)
}

// Falla de entrega: la factura permanece en DRAFT, se audita ERROR_OCCURRED y
// el error tipado sube al caller para que decida el reintento.
func TestPipeline_FallaDeEnvioMantieneDraft(t *testing.T) {
	submitter := &fakeSubmitter{err: &domain.SubmissionError{StatusCode: 503, Reason: "PST no disponible"}}
	f, inv, items := newPipelineFixture(t, submitter)

	err := f.pipeline.Process(context.Background(), inv, items)

	var subErr *domain.SubmissionError
	require.ErrorAs(t, err, &subErr)
	assert.Equal(t, 503, subErr.StatusCode)

	stored, getErr := f.invoices.GetByID(context.Background(), inv.ID)
	require.NoError(t, getErr)
	assert.Equal(t, entity.StatusDraft, stored.Status, "el envío fallido no mueve el estado")

	errorEvents := f.events.byType(entity.EventErrorOccurred)
	require.Len(t, errorEvents, 1)
	assert.Equal(t, "submit", errorEvents[0].Payload["stage"])
	assert.Equal(t, "503", errorEvents[0].Payload["response_code"])
}

// Falla del render: mismo contrato que la falla de envío, con etapa "render".
func TestPipeline_FallaDeRenderMantieneDraft(t *testing.T) {
	f, inv, items := newPipelineFixture(t, &fakeSubmitter{})
	broken := billing.NewDocumentPipeline(
		&fakeRenderer{err: errStorageDown},
		&fakeSigner{},
		f.submitter,
		f.store,
		billing.NewStatusTransitioner(&fakeTxRunner{invoices: f.invoices, events: f.events}, logger.Nop()),
		f.invoices, f.events,
		newFakeCustomerRepo(testCustomer()),
		&fakeOrgRepo{org: testOrganization()},
		5*time.Second,
		logger.Nop(),
	)

	err := broken.Process(context.Background(), inv, items)

	var renderErr *domain.RenderError
	require.ErrorAs(t, err, &renderErr)
	assert.Equal(t, 0, f.submitter.submitCalls, "el render fallido no debe llegar a la DIAN")

	errorEvents := f.events.byType(entity.EventErrorOccurred)
	require.Len(t, errorEvents, 1)
	assert.Equal(t, "render", errorEvents[0].Payload["stage"])
}

// Una factura que ya salió de DRAFT no se reprocesa.
func TestPipeline_RechazaFacturaYaProcesada(t *testing.T) {
	submitter := &fakeSubmitter{result: &billing.SubmitResult{Outcome: billing.OutcomeAccepted, DocumentUUID: "uuid-1"}}
	f, inv, items := newPipelineFixture(t, submitter)

	require.NoError(t, f.pipeline.Process(context.Background(), inv, items))
	require.Equal(t, entity.StatusAccepted, inv.Status)

	err := f.pipeline.Process(context.Background(), inv, items)

	var vErr *domain.ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.Equal(t, "status", vErr.Field)
	assert.Equal(t, 1, f.submitter.submitCalls, "no debe haber un segundo envío")
}

// Un fallo del storage de artefactos no aborta la emisión.
func TestPipeline_FalloDeStorageNoAbortaEmision(t *testing.T) {
	submitter := &fakeSubmitter{result: &billing.SubmitResult{
		Outcome:      billing.OutcomeAccepted,
		DocumentUUID: "uuid-dian-2",
	}}
	f, inv, items := newPipelineFixture(t, submitter)
	f.store.err = errStorageDown

	err := f.pipeline.Process(context.Background(), inv, items)
	require.NoError(t, err)
	assert.Equal(t, entity.StatusAccepted, inv.Status)
}
