// Package lifecycle implements the pickup request state machine. Transitions
// are role-gated through a guard table, and acceptance is a compare-and-set
// on the assigned collector so that concurrent acceptors resolve to exactly
// one winner.
package lifecycle

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/ecovalle/recolecta/core/model"
)

// RequestStore is the slice of the persistence collaborator the machine needs.
type RequestStore interface {
	GetRequest(ctx context.Context, id string) (*model.Request, error)
	UpdateRequest(ctx context.Context, r *model.Request) (*model.Request, error)
}

// guard validates that the actor may drive the transition on r.
type guard func(r *model.Request, actorID string) error

func assignedCollector(r *model.Request, actorID string) error {
	if r.RecicladorID != actorID {
		return fmt.Errorf("%w: request %s is assigned to %s, not %s",
			model.ErrConflict, r.ID, r.RecicladorID, actorID)
	}
	return nil
}

func requester(r *model.Request, actorID string) error {
	if r.UsuarioID != actorID {
		return fmt.Errorf("%w: only the requester may cancel request %s", model.ErrConflict, r.ID)
	}
	return nil
}

func unassigned(r *model.Request, _ string) error {
	if r.RecicladorID != "" {
		return fmt.Errorf("%w: request %s already accepted by %s",
			model.ErrConflict, r.ID, r.RecicladorID)
	}
	return nil
}

// transitions is the guard table: from → to → actor guard. Edges absent from
// the table are rejected with Conflict.
var transitions = map[model.RequestState]map[model.RequestState]guard{
	model.StatePendiente: {
		model.StateAceptada:  unassigned,
		model.StateCancelada: requester,
	},
	model.StateAceptada: {
		model.StateEnCamino:   assignedCollector,
		model.StateCompletada: assignedCollector,
		model.StateCancelada:  requester,
	},
	model.StateEnCamino: {
		model.StateCompletada: assignedCollector,
	},
}

// Transition is the outcome of a committed state change.
type Transition struct {
	From    model.RequestState
	To      model.RequestState
	Request *model.Request
}

// Machine drives request transitions. Mutations on the same request are
// serialized through a per-request lock so the acceptance compare-and-set is
// atomic against concurrent attempts.
type Machine struct {
	store RequestStore

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// New creates a Machine over the given request store.
func New(store RequestStore) *Machine {
	return &Machine{store: store, locks: make(map[string]*sync.Mutex)}
}

func (m *Machine) lock(requestID string) *sync.Mutex {
	m.mu.Lock()
	defer m.mu.Unlock()
	mu, ok := m.locks[requestID]
	if !ok {
		mu = &sync.Mutex{}
		m.locks[requestID] = mu
	}
	return mu
}

func (m *Machine) load(ctx context.Context, requestID string) (*model.Request, error) {
	r, err := m.store.GetRequest(ctx, requestID)
	if err != nil {
		return nil, fmt.Errorf("get request: %w", err)
	}
	if r == nil {
		return nil, fmt.Errorf("%w: request %s", model.ErrNotFound, requestID)
	}
	return r, nil
}

func checkGuard(r *model.Request, actorID string, to model.RequestState) error {
	if r.Estado.Terminal() {
		return fmt.Errorf("%w: request %s is already %s", model.ErrConflict, r.ID, r.Estado)
	}
	edges, ok := transitions[r.Estado]
	if !ok {
		return fmt.Errorf("%w: no transitions from %s", model.ErrConflict, r.Estado)
	}
	g, ok := edges[to]
	if !ok {
		return fmt.Errorf("%w: cannot move request %s from %s to %s",
			model.ErrConflict, r.ID, r.Estado, to)
	}
	return g(r, actorID)
}

// Accept performs the pendiente→aceptada compare-and-set: the first collector
// to pass the guard wins the assignment, every other attempt fails with
// Conflict.
func (m *Machine) Accept(ctx context.Context, requestID, collectorID string) (Transition, error) {
	mu := m.lock(requestID)
	mu.Lock()
	defer mu.Unlock()

	r, err := m.load(ctx, requestID)
	if err != nil {
		return Transition{}, err
	}
	from := r.Estado
	if err := checkGuard(r, collectorID, model.StateAceptada); err != nil {
		return Transition{}, err
	}
	now := time.Now().UTC()
	r.Estado = model.StateAceptada
	r.RecicladorID = collectorID
	r.FechaAceptacion = &now
	if _, err := m.store.UpdateRequest(ctx, r); err != nil {
		return Transition{}, fmt.Errorf("update request: %w", err)
	}
	return Transition{From: from, To: model.StateAceptada, Request: r}, nil
}

// Advance drives any non-acceptance edge of the guard table.
func (m *Machine) Advance(ctx context.Context, requestID, actorID string, to model.RequestState) (Transition, error) {
	if to == model.StateAceptada {
		return m.Accept(ctx, requestID, actorID)
	}
	mu := m.lock(requestID)
	mu.Lock()
	defer mu.Unlock()

	r, err := m.load(ctx, requestID)
	if err != nil {
		return Transition{}, err
	}
	from := r.Estado
	if err := checkGuard(r, actorID, to); err != nil {
		return Transition{}, err
	}
	r.Estado = to
	if to == model.StateCompletada {
		now := time.Now().UTC()
		r.FechaCompletado = &now
	}
	if _, err := m.store.UpdateRequest(ctx, r); err != nil {
		return Transition{}, fmt.Errorf("update request: %w", err)
	}
	return Transition{From: from, To: to, Request: r}, nil
}
