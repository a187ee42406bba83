// Package events defines the lifecycle events published on the internal bus.
// Subscribers (metrics recorders, the MQTT push bridge) consume them without
// coupling to the orchestrator.
package events

import (
	"time"

	"github.com/ecovalle/recolecta/core/model"
)

// Kind enumerates the lifecycle event kinds.
type Kind string

const (
	KindCreated   Kind = "solicitud_creada"
	KindAccepted  Kind = "solicitud_aceptada"
	KindUpdated   Kind = "solicitud_actualizada"
	KindCompleted Kind = "solicitud_completada"
	KindCancelled Kind = "solicitud_cancelada"
	KindDeclined  Kind = "solicitud_rechazada"
	KindRedeemed  Kind = "canje"
)

// LifecycleEvent is published after a request transition or a wallet movement
// commits.
type LifecycleEvent struct {
	Kind         Kind
	SolicitudID  string
	UsuarioID    string
	RecicladorID string
	Estado       model.RequestState
	Puntos       float64
	Time         time.Time
}
