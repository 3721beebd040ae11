package dian

import (
	"context"
	"fmt"

	"github.com/jhoicas/Facturacion-api/internal/application/billing"
	"github.com/jhoicas/Facturacion-api/pkg/config"
)

var _ billing.DocumentRenderer = (*UBLRenderer)(nil)

// UBLRenderer implementa billing.DocumentRenderer: calcula el CUFE y genera el
// XML UBL 2.1 listo para firmar. El CUFE queda asignado en in.Invoice.CUFE
// como efecto del render, porque viaja dentro del propio XML (cbc:UUID).
type UBLRenderer struct {
	builder *XMLBuilderService
	cfg     config.DIANConfig
}

// NewUBLRenderer construye el renderer.
func NewUBLRenderer(cfg config.DIANConfig) *UBLRenderer {
	return &UBLRenderer{
		builder: NewXMLBuilderService(cfg.SoftwareID, cfg.Environment),
		cfg:     cfg,
	}
}

// Render genera el XML de la factura.
func (r *UBLRenderer) Render(ctx context.Context, in *billing.RenderInput) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if _, err := CalculateCufe(in, r.cfg.TechnicalKey, r.cfg.Environment); err != nil {
		return nil, fmt.Errorf("calcular CUFE: %w", err)
	}
	xmlBytes, err := r.builder.Build(in)
	if err != nil {
		return nil, fmt.Errorf("construir XML UBL: %w", err)
	}
	return xmlBytes, nil
}
