package billing_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/jhoicas/Facturacion-api/internal/domain/billing"
	"github.com/jhoicas/Facturacion-api/internal/domain/entity"
)

func TestCanTransition_TablaCompleta(t *testing.T) {
	statuses := []string{
		entity.StatusDraft,
		entity.StatusSent,
		entity.StatusAccepted,
		entity.StatusRejected,
	}
	legal := map[[2]string]bool{
		{entity.StatusDraft, entity.StatusSent}:     true,
		{entity.StatusDraft, entity.StatusAccepted}: true,
		{entity.StatusDraft, entity.StatusRejected}: true,
		{entity.StatusSent, entity.StatusAccepted}:  true,
		{entity.StatusSent, entity.StatusRejected}:  true,
	}

	for _, from := range statuses {
		for _, to := range statuses {
			got := billing.CanTransition(from, to)
			assert.Equal(t, legal[[2]string{from, to}], got,
				"transición %s → %s", from, to)
		}
	}
}

// from == to no es una transición: es el no-op idempotente.
func TestCanTransition_MismoEstadoNoEsTransicion(t *testing.T) {
	for _, s := range []string{entity.StatusDraft, entity.StatusSent, entity.StatusAccepted, entity.StatusRejected} {
		assert.False(t, billing.CanTransition(s, s), "%s → %s", s, s)
	}
}

func TestCanTransition_EstadoDesconocido(t *testing.T) {
	assert.False(t, billing.CanTransition("LIMBO", entity.StatusSent))
	assert.False(t, billing.CanTransition(entity.StatusDraft, "LIMBO"))
}

func TestIsTerminal(t *testing.T) {
	assert.False(t, billing.IsTerminal(entity.StatusDraft))
	assert.False(t, billing.IsTerminal(entity.StatusSent))
	assert.True(t, billing.IsTerminal(entity.StatusAccepted))
	assert.True(t, billing.IsTerminal(entity.StatusRejected))
	assert.False(t, billing.IsTerminal("LIMBO"), "un estado desconocido no es terminal")
}
