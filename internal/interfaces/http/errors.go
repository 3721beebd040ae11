package http

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/Facturacion-api/internal/application/dto"
	"github.com/jhoicas/Facturacion-api/internal/domain"
)

// mapDomainError traduce la taxonomía de errores de dominio a HTTP. Un único
// punto de mapeo: los handlers nunca inspeccionan errores por su cuenta.
//
//	ValidationError   → 400  VALIDATION
//	DuplicateError    → 409  DUPLICATE
//	NotFoundError     → 404  NOT_FOUND
//	UnauthorizedError → 401  UNAUTHORIZED
//	SubmissionError   → 502  SUBMIT_FAILED (la DIAN/PST no respondió bien)
//	Render/Signing    → 500  RENDER_FAILED / SIGN_FAILED
//	resto             → 500  INTERNAL
func mapDomainError(c *fiber.Ctx, err error) error {
	var valErr *domain.ValidationError
	if errors.As(err, &valErr) {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: valErr.Error()})
	}
	var dupErr *domain.DuplicateError
	if errors.As(err, &dupErr) {
		return c.Status(fiber.StatusConflict).JSON(dto.ErrorResponse{Code: "DUPLICATE", Message: dupErr.Error()})
	}
	var nfErr *domain.NotFoundError
	if errors.As(err, &nfErr) {
		return c.Status(fiber.StatusNotFound).JSON(dto.ErrorResponse{Code: "NOT_FOUND", Message: nfErr.Error()})
	}
	var unauthErr *domain.UnauthorizedError
	if errors.As(err, &unauthErr) {
		return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{Code: "UNAUTHORIZED", Message: unauthErr.Error()})
	}
	var subErr *domain.SubmissionError
	if errors.As(err, &subErr) {
		return c.Status(fiber.StatusBadGateway).JSON(dto.ErrorResponse{Code: "SUBMIT_FAILED", Message: subErr.Error()})
	}
	var stageErr domain.StageError
	if errors.As(err, &stageErr) {
		code := strings.ToUpper(stageErr.Stage()) + "_FAILED"
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Code: code, Message: stageErr.Error()})
	}
	return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Code: "INTERNAL", Message: err.Error()})
}
