// Package billing contiene la máquina de estados del ciclo de vida de la
// factura electrónica. Es el único lugar donde se decide qué transiciones de
// estado son legales; ningún otro componente escribe el campo status
// directamente.
package billing

import "github.com/jhoicas/Facturacion-api/internal/domain/entity"

// Tabla de transiciones:
//
//	DRAFT → SENT      entregada a la DIAN, respuesta en proceso
//	DRAFT → ACCEPTED  pipeline completo con aceptación síncrona
//	DRAFT → REJECTED  pipeline completo con rechazo síncrono
//	SENT  → ACCEPTED  webhook/poll reporta aceptación
//	SENT  → REJECTED  webhook/poll reporta rechazo
//
// ACCEPTED y REJECTED son terminales para el intento: un rechazo se reintenta
// creando una factura nueva, nunca regresando el estado.
var transitions = map[string]map[string]bool{
	entity.StatusDraft: {
		entity.StatusSent:     true,
		entity.StatusAccepted: true,
		entity.StatusRejected: true,
	},
	entity.StatusSent: {
		entity.StatusAccepted: true,
		entity.StatusRejected: true,
	},
	entity.StatusAccepted: {},
	entity.StatusRejected: {},
}

// CanTransition indica si pasar de from a to es una transición legal.
// from == to no es una transición (es el no-op idempotente, que se audita
// pero no cambia nada).
func CanTransition(from, to string) bool {
	if from == to {
		return false
	}
	allowed, ok := transitions[from]
	if !ok {
		return false
	}
	return allowed[to]
}

// IsTerminal indica si desde status ya no hay transiciones posibles.
func IsTerminal(status string) bool {
	return len(transitions[status]) == 0 && entity.ValidStatuses[status]
}
