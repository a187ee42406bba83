package model

import (
	"fmt"
	"time"
)

// Role identifies what a participant is allowed to do. It is immutable after
// registration.
type Role string

const (
	RoleCiudadano  Role = "ciudadano"
	RoleReciclador Role = "reciclador"
	RoleAdmin      Role = "admin"
)

// ParseRole validates a role string coming from the wire.
func ParseRole(s string) (Role, error) {
	switch Role(s) {
	case RoleCiudadano, RoleReciclador, RoleAdmin:
		return Role(s), nil
	}
	return "", fmt.Errorf("%w: unknown role %q", ErrValidation, s)
}

// RequestState is the lifecycle state of a pickup request.
type RequestState string

const (
	StatePendiente  RequestState = "pendiente"
	StateAceptada   RequestState = "aceptada"
	StateEnCamino   RequestState = "en_camino"
	StateCompletada RequestState = "completada"
	StateCancelada  RequestState = "cancelada"
	// StateRechazada is informational only: a collector declining a request
	// never moves the shared record, it must stay acceptable by others.
	StateRechazada RequestState = "rechazada"
)

// Terminal reports whether no further transitions are allowed from s.
func (s RequestState) Terminal() bool {
	return s == StateCompletada || s == StateCancelada || s == StateRechazada
}

// ParseRequestState validates a state string coming from the wire.
func ParseRequestState(s string) (RequestState, error) {
	switch RequestState(s) {
	case StatePendiente, StateAceptada, StateEnCamino, StateCompletada, StateCancelada, StateRechazada:
		return RequestState(s), nil
	}
	return "", fmt.Errorf("%w: unknown state %q", ErrValidation, s)
}

// Participant is a registered user: a citizen requesting pickups, a collector
// fulfilling them, or an admin.
type Participant struct {
	ID           string `json:"id"`
	Nombre       string `json:"nombre"`
	Correo       string `json:"correo"`
	PasswordHash string `json:"-"`
	Rol          Role   `json:"rol"`
}

// Request is a citizen's pickup request for recyclable material.
type Request struct {
	ID              string       `json:"id"`
	UsuarioID       string       `json:"usuario_id"`
	RecicladorID    string       `json:"reciclador_id,omitempty"`
	TipoMaterial    string       `json:"tipo_material"`
	Cantidad        float64      `json:"cantidad"`
	Descripcion     string       `json:"descripcion,omitempty"`
	Latitud         float64      `json:"latitud"`
	Longitud        float64      `json:"longitud"`
	Direccion       string       `json:"direccion,omitempty"`
	Estado          RequestState `json:"estado"`
	FechaSolicitud  time.Time    `json:"fecha_solicitud"`
	FechaAceptacion *time.Time   `json:"fecha_aceptacion,omitempty"`
	FechaCompletado *time.Time   `json:"fecha_completado,omitempty"`
}

// Validate checks the fields a citizen must provide when creating a request.
func (r Request) Validate() error {
	if r.UsuarioID == "" {
		return fmt.Errorf("%w: usuario_id is required", ErrValidation)
	}
	if r.TipoMaterial == "" {
		return fmt.Errorf("%w: tipo_material is required", ErrValidation)
	}
	if r.Cantidad <= 0 {
		return fmt.Errorf("%w: cantidad must be positive", ErrValidation)
	}
	return nil
}

// Service binds one accepted request to the collector fulfilling it. It is
// created exactly once, when the acceptance race is won.
type Service struct {
	ID           string     `json:"id"`
	SolicitudID  string     `json:"solicitud_id"`
	RecicladorID string     `json:"reciclador_id"`
	Estado       string     `json:"estado"`
	FechaInicio  time.Time  `json:"fecha_inicio"`
	FechaFin     *time.Time `json:"fecha_fin,omitempty"`
}

// Evidence is the proof of pickup submitted at completion.
type Evidence struct {
	ID          string  `json:"id"`
	ServicioID  string  `json:"servicio_id,omitempty"`
	SolicitudID string  `json:"solicitud_id"`
	Material    string  `json:"material"`
	PesoKg      float64 `json:"peso_kg"`
	FotoURL     string  `json:"foto_url,omitempty"`
	Latitud     float64 `json:"latitud,omitempty"`
	Longitud    float64 `json:"longitud,omitempty"`
}

// Validate checks that the evidence payload is complete enough to score.
func (e Evidence) Validate() error {
	if e.Material == "" {
		return fmt.Errorf("%w: material is required", ErrValidation)
	}
	if e.PesoKg <= 0 {
		return fmt.Errorf("%w: peso_kg must be positive", ErrValidation)
	}
	return nil
}

// Wallet holds a participant's points balance. The balance never goes
// negative; the ledger enforces it.
type Wallet struct {
	ID        string  `json:"id"`
	UsuarioID string  `json:"usuario_id"`
	Puntos    float64 `json:"puntos"`
}

// Reward is a catalog entry redeemable for points.
type Reward struct {
	ID          string  `json:"id"`
	Nombre      string  `json:"nombre"`
	Descripcion string  `json:"descripcion,omitempty"`
	CostoPuntos float64 `json:"costo_puntos"`
	Stock       int     `json:"stock"`
}
