package billing

import (
	"context"

	"github.com/jhoicas/Facturacion-api/internal/domain/entity"
	"github.com/jhoicas/Facturacion-api/internal/domain/repository"
)

// RenderInput datos completos para generar el XML UBL 2.1 de la factura.
type RenderInput struct {
	Invoice      *entity.Invoice
	Items        []*entity.InvoiceItem
	Customer     *entity.Customer
	Organization *entity.Organization
}

// DocumentRenderer genera el XML UBL 2.1 (sin firma) de la factura.
// Sin efectos secundarios visibles para el núcleo: input → output.
type DocumentRenderer interface {
	Render(ctx context.Context, in *RenderInput) ([]byte, error)
}

// DocumentSigner firma digitalmente el XML (XAdES-EPES con el certificado
// configurado). El núcleo no depende de cómo se implementa la firma.
type DocumentSigner interface {
	Sign(ctx context.Context, xmlBytes []byte) ([]byte, error)
}

// Resultado de la entrega o consulta ante la DIAN.
const (
	OutcomeAccepted  = "accepted"   // la DIAN validó y aceptó el documento
	OutcomeRejected  = "rejected"   // la DIAN rechazó el documento
	OutcomeInProcess = "in_process" // recibido, validación aún en proceso (inconcluso)
)

// SubmitResult respuesta de la DIAN (o del PST) a un envío o consulta.
type SubmitResult struct {
	Outcome         string // OutcomeAccepted | OutcomeRejected | OutcomeInProcess
	DocumentUUID    string // CUFE/UUID asignado por la autoridad (vacío si no aplica)
	ResponseCode    string
	ResponseMessage string
	Errors          []string
	Raw             map[string]any // payload crudo, se conserva en el evento para auditoría
}

// AuthoritySubmitter define el puerto de salida hacia la DIAN: entrega síncrona
// del XML firmado y consulta de estado por CUFE. Los errores de red, respuestas
// no-2xx y respuestas malformadas se reportan como *domain.SubmissionError;
// la política de reintentos pertenece al caller, nunca a la etapa.
type AuthoritySubmitter interface {
	Submit(ctx context.Context, signedXML []byte, filename string) (*SubmitResult, error)
	CheckStatus(ctx context.Context, cufe string) (*SubmitResult, error)
}

// ArtifactStore almacena artefactos generados (XML firmado, XML de respuesta,
// PDF) y devuelve su URL pública.
type ArtifactStore interface {
	Upload(ctx context.Context, path, contentType string, data []byte) (string, error)
}

// InvoicePDFGenerator genera la representación gráfica (PDF) de la factura.
type InvoicePDFGenerator interface {
	GenerateInvoicePDF(
		ctx context.Context,
		invoice *entity.Invoice,
		organization *entity.Organization,
		customer *entity.Customer,
		items []*entity.InvoiceItem,
	) ([]byte, error)
}

// TxRunner ejecuta fn dentro de una transacción con los repos de facturación.
// El cambio de estado y el append del evento van siempre en la misma
// transacción: para un lector concurrente son atómicos.
type TxRunner interface {
	RunBilling(ctx context.Context, fn func(
		invoices repository.InvoiceRepository,
		events repository.EventRepository,
	) error) error
}
