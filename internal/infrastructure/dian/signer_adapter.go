package dian

import (
	"context"
	"crypto/tls"
	"fmt"
	"strings"

	"github.com/jhoicas/Facturacion-api/internal/application/billing"
	"github.com/jhoicas/Facturacion-api/internal/infrastructure/dian/signer"
	"github.com/jhoicas/Facturacion-api/pkg/config"
	"github.com/jhoicas/Facturacion-api/pkg/logger"
)

var _ billing.DocumentSigner = (*XAdESSigner)(nil)

// XAdESSigner implementa billing.DocumentSigner con la firma XAdES-EPES.
// El certificado se carga una sola vez al construir el adaptador. Sin
// certificado configurado opera en modo simulado: retorna el XML sin firma
// (útil en desarrollo y habilitación temprana).
type XAdESSigner struct {
	service   *signer.DigitalSignatureService
	cert      tls.Certificate
	simulated bool
	log       *logger.Logger
}

// NewXAdESSigner carga el certificado (.p12 o par PEM) según la configuración.
func NewXAdESSigner(cfg config.DIANConfig, log *logger.Logger) (*XAdESSigner, error) {
	s := &XAdESSigner{
		service: signer.NewDigitalSignatureService(),
		log:     log,
	}
	if cfg.CertPath == "" {
		s.simulated = true
		log.Warn().Msg("sin certificado DIAN configurado; la firma opera en modo simulado")
		return s, nil
	}

	var cert tls.Certificate
	var err error
	if strings.HasSuffix(cfg.CertPath, ".p12") || strings.HasSuffix(cfg.CertPath, ".pfx") {
		cert, err = signer.LoadFromP12(cfg.CertPath, cfg.CertPassword)
	} else {
		cert, err = signer.LoadFromPEM(cfg.CertPath, cfg.CertKeyPath)
	}
	if err != nil {
		return nil, fmt.Errorf("cargar certificado DIAN: %w", err)
	}
	s.cert = cert
	return s, nil
}

// Sign firma el XML e inyecta ds:Signature en el segundo ExtensionContent.
func (s *XAdESSigner) Sign(ctx context.Context, xmlBytes []byte) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s.simulated {
		return xmlBytes, nil
	}
	return s.service.Sign(xmlBytes, s.cert)
}
