package metrics

import (
	"time"

	"github.com/ecovalle/recolecta/core/model"
)

// DeliveryEvent captures one realtime notification attempt to an identity.
type DeliveryEvent struct {
	EventType string
	UsuarioID string
	Handles   int
	Accepted  int
	Time      time.Time
}

// TransitionEvent captures one committed lifecycle transition.
type TransitionEvent struct {
	SolicitudID string
	From        model.RequestState
	To          model.RequestState
	ActorID     string
	Time        time.Time
}

// PointsEvent captures one wallet movement.
type PointsEvent struct {
	UsuarioID string
	Material  string
	Puntos    float64
	Redeemed  bool
	Time      time.Time
}

// Sink records business events for observability purposes.
type Sink interface {
	RecordDelivery(ev DeliveryEvent) error
	RecordTransition(ev TransitionEvent) error
	RecordPoints(ev PointsEvent) error
}

// NopSink discards all events.
type NopSink struct{}

func (NopSink) RecordDelivery(DeliveryEvent) error     { return nil }
func (NopSink) RecordTransition(TransitionEvent) error { return nil }
func (NopSink) RecordPoints(PointsEvent) error         { return nil }
