package domain

import (
	"errors"
	"fmt"
)

// Errores de dominio (sin dependencias externas). Los errores con datos propios
// (campo faltante, etapa del pipeline, código HTTP de la DIAN) se modelan como
// tipos para que los handlers puedan mapearlos con errors.As.
var (
	ErrNotFound     = errors.New("recurso no encontrado")
	ErrUnauthorized = errors.New("no autorizado")
	ErrForbidden    = errors.New("acceso denegado")
	ErrInvalidInput = errors.New("entrada inválida")
)

// ValidationError indica un campo obligatorio faltante o inválido en la petición.
// Field es el primer campo que falló la validación; Msg, si está presente,
// describe la causa en vez del mensaje genérico "es requerido".
type ValidationError struct {
	Field string
	Msg   string
}

func (e *ValidationError) Error() string {
	if e.Msg != "" {
		return fmt.Sprintf("%s: %s", e.Field, e.Msg)
	}
	return fmt.Sprintf("%s es requerido", e.Field)
}

func (e *ValidationError) Is(target error) bool { return target == ErrInvalidInput }

// DuplicateError indica que ya existe una factura con el mismo (serie, número).
type DuplicateError struct {
	Series string
	Number string
}

func (e *DuplicateError) Error() string {
	return fmt.Sprintf("ya existe una factura con serie %s y número %s", e.Series, e.Number)
}

// NotFoundError indica que la referencia (id, cufe o dian_uuid) no resuelve
// a ningún recurso. Ref describe qué se buscaba.
type NotFoundError struct {
	Ref string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("no se encontró: %s", e.Ref)
}

func (e *NotFoundError) Is(target error) bool { return target == ErrNotFound }

// UnauthorizedError indica fallo de autenticación (token webhook o JWT inválido).
// Nunca revela si la factura referenciada existe: se verifica antes de cualquier lookup.
type UnauthorizedError struct {
	Reason string
}

func (e *UnauthorizedError) Error() string { return "no autorizado: " + e.Reason }

func (e *UnauthorizedError) Is(target error) bool { return target == ErrUnauthorized }

// ── Errores de etapa del pipeline de documentos ───────────────────────────────

// RenderError falla en la generación del XML UBL 2.1.
type RenderError struct {
	Reason string
}

func (e *RenderError) Error() string { return "render: " + e.Reason }

// Stage nombre de la etapa para el evento ERROR_OCCURRED.
func (e *RenderError) Stage() string { return "render" }

// SigningError falla en la firma digital del XML.
type SigningError struct {
	Reason string
}

func (e *SigningError) Error() string { return "sign: " + e.Reason }

func (e *SigningError) Stage() string { return "sign" }

// SubmissionError falla en la entrega a la DIAN (o al PST): error de red,
// respuesta no-2xx o respuesta malformada. Nunca se reintenta dentro de la etapa.
type SubmissionError struct {
	StatusCode int
	Reason     string
}

func (e *SubmissionError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("submit: HTTP %d: %s", e.StatusCode, e.Reason)
	}
	return "submit: " + e.Reason
}

func (e *SubmissionError) Stage() string { return "submit" }

// StageError lo implementan los tres errores de etapa del pipeline.
type StageError interface {
	error
	Stage() string
}

// PersistenceError falla de la capa de almacenamiento. El write aplica completo
// o no aplica (transacción): nunca queda estado parcial visible.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persistencia (%s): %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }
