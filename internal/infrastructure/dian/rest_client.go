package dian

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/jhoicas/Facturacion-api/internal/application/billing"
	"github.com/jhoicas/Facturacion-api/internal/domain"
	"github.com/jhoicas/Facturacion-api/pkg/config"
	"github.com/jhoicas/Facturacion-api/pkg/logger"
)

var _ billing.AuthoritySubmitter = (*RESTClient)(nil)

// Códigos de respuesta del proveedor tecnológico (PST).
const (
	responseCodeAccepted  = "00" // documento validado y aceptado
	responseCodeRejected  = "99" // documento rechazado por la DIAN
	responseCodeInProcess = "98" // recibido, validación en proceso
)

// RESTClient implementa billing.AuthoritySubmitter contra la API REST del
// proveedor tecnológico autorizado. El token de sesión se obtiene con /login
// y se reutiliza hasta expirar; ante un 401 se renueva una sola vez.
type RESTClient struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	log        *logger.Logger

	mu          sync.Mutex
	token       string
	tokenExpiry time.Time
}

// NewRESTClient construye el cliente. El timeout de red es generoso (60 s)
// porque la validación previa de la DIAN puede tardar varios segundos; el
// caller acota cada llamada con su propio context.
func NewRESTClient(cfg config.DIANConfig, log *logger.Logger) *RESTClient {
	return &RESTClient{
		baseURL:    cfg.BaseURL,
		apiKey:     cfg.APIKey,
		httpClient: &http.Client{Timeout: 60 * time.Second},
		log:        log,
	}
}

type submitRequest struct {
	FileName    string `json:"fileName"`
	ContentFile string `json:"contentFile"` // ZIP en Base64
}

type statusRequest struct {
	DocumentID   string `json:"DocumentId"`
	DocumentType string `json:"DocumentType"`
}

type pstResponse struct {
	Success      bool     `json:"success"`
	StatusCode   string   `json:"statusCode"`
	DocumentUUID string   `json:"document_uuid"`
	Message      string   `json:"message"`
	Errors       []string `json:"errors"`
}

// Submit entrega el XML firmado (empaquetado en ZIP, Base64) al PST y traduce
// la respuesta a un resultado de dominio. Errores de red, respuestas no-2xx y
// cuerpos malformados retornan *domain.SubmissionError; no hay reintentos aquí.
func (c *RESTClient) Submit(ctx context.Context, signedXML []byte, filename string) (*billing.SubmitResult, error) {
	zipBytes, err := CompressXMLToZip(signedXML, filename)
	if err != nil {
		return nil, &domain.SubmissionError{Reason: err.Error()}
	}
	body := submitRequest{
		FileName:    strings.TrimSuffix(filename, ".xml") + ".zip",
		ContentFile: base64.StdEncoding.EncodeToString(zipBytes),
	}
	return c.call(ctx, "/insertinvoice", body)
}

// CheckStatus consulta el estado del documento por CUFE.
func (c *RESTClient) CheckStatus(ctx context.Context, cufe string) (*billing.SubmitResult, error) {
	if cufe == "" {
		return nil, &domain.SubmissionError{Reason: "cufe vacío"}
	}
	body := statusRequest{DocumentID: cufe, DocumentType: "01"}
	return c.call(ctx, "/GetDocumentStatus", body)
}

func (c *RESTClient) call(ctx context.Context, path string, body any) (*billing.SubmitResult, error) {
	raw, status, err := c.doJSON(ctx, path, body, false)
	if err != nil {
		return nil, err
	}
	if status == http.StatusUnauthorized {
		// Token vencido: renovar y reintentar una sola vez.
		raw, status, err = c.doJSON(ctx, path, body, true)
		if err != nil {
			return nil, err
		}
	}
	if status < 200 || status >= 300 {
		return nil, &domain.SubmissionError{
			StatusCode: status,
			Reason:     fmt.Sprintf("respuesta %d del PST: %s", status, truncate(raw, 512)),
		}
	}

	var resp pstResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, &domain.SubmissionError{Reason: "respuesta malformada del PST: " + err.Error()}
	}

	var rawMap map[string]any
	_ = json.Unmarshal(raw, &rawMap)

	result := &billing.SubmitResult{
		DocumentUUID:    resp.DocumentUUID,
		ResponseCode:    resp.StatusCode,
		ResponseMessage: resp.Message,
		Errors:          resp.Errors,
		Raw:             rawMap,
	}
	switch {
	case resp.StatusCode == responseCodeAccepted || (resp.Success && resp.StatusCode == ""):
		result.Outcome = billing.OutcomeAccepted
	case resp.StatusCode == responseCodeRejected || (!resp.Success && len(resp.Errors) > 0):
		result.Outcome = billing.OutcomeRejected
	default:
		result.Outcome = billing.OutcomeInProcess
	}
	return result, nil
}

func (c *RESTClient) doJSON(ctx context.Context, path string, body any, forceLogin bool) ([]byte, int, error) {
	token, err := c.sessionToken(ctx, forceLogin)
	if err != nil {
		return nil, 0, err
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return nil, 0, &domain.SubmissionError{Reason: "serializar petición: " + err.Error()}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return nil, 0, &domain.SubmissionError{Reason: err.Error()}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "misfacturas "+token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, 0, &domain.SubmissionError{Reason: "llamada al PST fallida: " + err.Error()}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20)) // max 1 MB
	if err != nil {
		return nil, 0, &domain.SubmissionError{Reason: "leer respuesta del PST: " + err.Error()}
	}
	return raw, resp.StatusCode, nil
}

type loginResponse struct {
	Token     string `json:"token"`
	ExpiresIn int    `json:"expires_in"` // segundos; 0 = usar el default
}

// sessionToken retorna el token cacheado o hace login si no hay uno vigente.
func (c *RESTClient) sessionToken(ctx context.Context, force bool) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !force && c.token != "" && time.Now().Before(c.tokenExpiry) {
		return c.token, nil
	}

	loginURL := fmt.Sprintf("%s/login?apikey=%s", c.baseURL, url.QueryEscape(c.apiKey))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, loginURL, nil)
	if err != nil {
		return "", &domain.SubmissionError{Reason: err.Error()}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", &domain.SubmissionError{Reason: "login al PST fallido: " + err.Error()}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", &domain.SubmissionError{Reason: "leer respuesta de login: " + err.Error()}
	}
	if resp.StatusCode != http.StatusOK {
		return "", &domain.SubmissionError{
			StatusCode: resp.StatusCode,
			Reason:     "login al PST rechazado: " + truncate(raw, 256),
		}
	}
	var lr loginResponse
	if err := json.Unmarshal(raw, &lr); err != nil || lr.Token == "" {
		return "", &domain.SubmissionError{Reason: "respuesta de login malformada"}
	}

	ttl := time.Duration(lr.ExpiresIn) * time.Second
	if ttl <= 0 {
		ttl = 50 * time.Minute
	}
	c.token = lr.Token
	c.tokenExpiry = time.Now().Add(ttl)
	c.log.Debug().Time("expiry", c.tokenExpiry).Msg("token del PST renovado")
	return c.token, nil
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
