// Cliente mínimo del Storage de Supabase (API REST de objetos).
// Solo se necesita subir artefactos (XML, PDF) y obtener su URL pública.

package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/jhoicas/Facturacion-api/internal/application/billing"
	"github.com/jhoicas/Facturacion-api/pkg/config"
	"github.com/jhoicas/Facturacion-api/pkg/logger"
)

var _ billing.ArtifactStore = (*SupabaseStore)(nil)

// SupabaseStore implementa billing.ArtifactStore contra el bucket configurado.
// Usa x-upsert para que regenerar un artefacto sobrescriba el anterior.
type SupabaseStore struct {
	baseURL    string
	serviceKey string
	bucket     string
	httpClient *http.Client
	log        *logger.Logger
}

// NewSupabaseStore construye el cliente de storage.
func NewSupabaseStore(cfg config.StorageConfig, log *logger.Logger) *SupabaseStore {
	return &SupabaseStore{
		baseURL:    strings.TrimSuffix(cfg.BaseURL, "/"),
		serviceKey: cfg.ServiceKey,
		bucket:     cfg.Bucket,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		log:        log,
	}
}

// Upload sube el contenido a {bucket}/{path} y retorna la URL pública.
func (s *SupabaseStore) Upload(ctx context.Context, path, contentType string, data []byte) (string, error) {
	if s.baseURL == "" {
		return "", fmt.Errorf("storage: STORAGE_BASE_URL no configurada")
	}
	uploadURL := fmt.Sprintf("%s/storage/v1/object/%s/%s", s.baseURL, s.bucket, path)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, uploadURL, bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("storage: construir petición: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+s.serviceKey)
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("x-upsert", "true")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("storage: subir %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return "", fmt.Errorf("storage: subir %s: respuesta %d: %s", path, resp.StatusCode, string(body))
	}

	publicURL := fmt.Sprintf("%s/storage/v1/object/public/%s/%s", s.baseURL, s.bucket, path)
	s.log.Debug().Str("path", path).Str("url", publicURL).Msg("artefacto subido")
	return publicURL, nil
}
