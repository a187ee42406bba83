package realtime

import (
	"encoding/json"
	"fmt"

	"github.com/ecovalle/recolecta/core/model"
)

// Event types carried on the realtime channel.
//
// Server -> clients:
//
//	nueva_solicitud        full request snapshot, to connected collectors
//	solicitud_creada       full request snapshot, to the requester
//	solicitud_aceptada     solicitud_id + reciclador_id, to the requester
//	solicitud_actualizada  solicitud_id + estado, to the requester
//	ubicacion_reciclador   solicitud_id + lat/lng, relayed to the requester
//	solicitud_completada   solicitud_id, to the requester
//	solicitud_cancelada    solicitud_id (+ usuario_id), to the affected party
//	solicitud_rechazada    solicitud_id + usuario_id, to the requester
//
// Client -> server:
//
//	ubicacion_reciclador   collector position update
//	ping / pong            keepalive, both directions
const (
	TypeNuevaSolicitud       = "nueva_solicitud"
	TypeSolicitudCreada      = "solicitud_creada"
	TypeSolicitudAceptada    = "solicitud_aceptada"
	TypeSolicitudActualizada = "solicitud_actualizada"
	TypeUbicacionReciclador  = "ubicacion_reciclador"
	TypeSolicitudCompletada  = "solicitud_completada"
	TypeSolicitudCancelada   = "solicitud_cancelada"
	TypeSolicitudRechazada   = "solicitud_rechazada"
	TypePing                 = "ping"
	TypePong                 = "pong"
)

// Message is the JSON envelope exchanged on the realtime channel. Fields not
// relevant to a type are omitted from the wire form.
type Message struct {
	Type         string         `json:"type"`
	Solicitud    *model.Request `json:"solicitud,omitempty"`
	SolicitudID  string         `json:"solicitud_id,omitempty"`
	RecicladorID string         `json:"reciclador_id,omitempty"`
	UsuarioID    string         `json:"usuario_id,omitempty"`
	Estado       string         `json:"estado,omitempty"`
	Lat          float64        `json:"lat,omitempty"`
	Lng          float64        `json:"lng,omitempty"`
}

// Encode marshals the message for the wire.
func (m Message) Encode() ([]byte, error) { return json.Marshal(m) }

var knownTypes = map[string]bool{
	TypeNuevaSolicitud:       true,
	TypeSolicitudCreada:      true,
	TypeSolicitudAceptada:    true,
	TypeSolicitudActualizada: true,
	TypeUbicacionReciclador:  true,
	TypeSolicitudCompletada:  true,
	TypeSolicitudCancelada:   true,
	TypeSolicitudRechazada:   true,
	TypePing:                 true,
	TypePong:                 true,
}

// ParseMessage decodes an inbound payload. Bad encoding or an unknown type
// yields a validation error; the caller drops the message and keeps the
// connection open.
func ParseMessage(payload []byte) (Message, error) {
	var m Message
	if err := json.Unmarshal(payload, &m); err != nil {
		return Message{}, fmt.Errorf("%w: %v", model.ErrValidation, err)
	}
	if !knownTypes[m.Type] {
		return Message{}, fmt.Errorf("%w: unknown message type %q", model.ErrValidation, m.Type)
	}
	return m, nil
}
