package http

import (
	"crypto/subtle"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/Facturacion-api/internal/application/billing"
	"github.com/jhoicas/Facturacion-api/internal/application/dto"
)

// WebhookHandler recibe notificaciones asíncronas de la DIAN (vía PST).
// Autentica con un secreto compartido, no con JWT: la verificación ocurre
// antes de cualquier lookup para no revelar si la factura existe.
type WebhookHandler struct {
	uc     *billing.ReconcileUseCase
	secret string
}

// NewWebhookHandler construye el handler.
func NewWebhookHandler(uc *billing.ReconcileUseCase, secret string) *WebhookHandler {
	return &WebhookHandler{uc: uc, secret: secret}
}

// Handle godoc
// @Summary      Webhook de notificaciones DIAN
// @Description  Procesa invoice_accepted, invoice_rejected, invoice_pending y
// @Description  status_update. Idempotente: una notificación repetida se audita
// @Description  como no-op sin cambiar el estado.
// @Tags         invoices
// @Accept       json
// @Produce      json
// @Param        Authorization  header  string              true  "Bearer <secreto del webhook>"
// @Param        body           body    dto.WebhookRequest  true  "Notificación"
// @Success      200  {object}  dto.WebhookResponse
// @Failure      400  {object}  dto.ErrorResponse
// @Failure      401  {object}  dto.ErrorResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/invoices/webhook [post]
func (h *WebhookHandler) Handle(c *fiber.Ctx) error {
	if !h.authorized(c.Get("Authorization")) {
		return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{Code: "UNAUTHORIZED", Message: "secreto de webhook inválido"})
	}
	var in dto.WebhookRequest
	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "cuerpo inválido"})
	}
	out, err := h.uc.HandleWebhook(c.Context(), &in)
	if err != nil {
		return mapDomainError(c, err)
	}
	return c.JSON(out)
}

func (h *WebhookHandler) authorized(header string) bool {
	if h.secret == "" {
		return false
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return false
	}
	token := strings.TrimSpace(parts[1])
	return subtle.ConstantTimeCompare([]byte(token), []byte(h.secret)) == 1
}
