// Package orchestrator drives the request lifecycle end to end: it validates
// transitions, updates the persistence collaborator and the ledger, and fans
// the resulting notifications out through the realtime dispatcher.
package orchestrator

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/ecovalle/recolecta/core/events"
	"github.com/ecovalle/recolecta/core/ledger"
	"github.com/ecovalle/recolecta/core/lifecycle"
	"github.com/ecovalle/recolecta/core/logger"
	"github.com/ecovalle/recolecta/core/metrics"
	"github.com/ecovalle/recolecta/core/model"
	"github.com/ecovalle/recolecta/internal/eventbus"
	"github.com/ecovalle/recolecta/realtime"
)

// Store is the slice of the persistence collaborator the orchestrator needs
// beyond what lifecycle and ledger already hold.
type Store interface {
	GetRequest(ctx context.Context, id string) (*model.Request, error)
	CreateService(ctx context.Context, s *model.Service) error
	GetServiceBySolicitud(ctx context.Context, solicitudID string) (*model.Service, error)
	UpdateService(ctx context.Context, s *model.Service) (*model.Service, error)
	CreateEvidence(ctx context.Context, e *model.Evidence) error
	GetReward(ctx context.Context, id string) (*model.Reward, error)
	UpdateReward(ctx context.Context, r *model.Reward) (*model.Reward, error)
}

// Orchestrator composes the lifecycle machine, the ledger and the realtime
// dispatcher.
type Orchestrator struct {
	machine    *lifecycle.Machine
	ledger     *ledger.Ledger
	dispatcher *realtime.Dispatcher
	store      Store
	bus        *eventbus.Bus[events.LifecycleEvent]
	sink       metrics.Sink
	log        logger.Logger
}

// New creates an Orchestrator. A nil sink disables metrics; a nil bus
// disables event publication.
func New(machine *lifecycle.Machine, led *ledger.Ledger, disp *realtime.Dispatcher, store Store,
	bus *eventbus.Bus[events.LifecycleEvent], sink metrics.Sink, log logger.Logger) (*Orchestrator, error) {
	if machine == nil || led == nil || disp == nil || store == nil {
		return nil, fmt.Errorf("orchestrator: nil parameter provided to New")
	}
	if sink == nil {
		sink = metrics.NopSink{}
	}
	return &Orchestrator{
		machine:    machine,
		ledger:     led,
		dispatcher: disp,
		store:      store,
		bus:        bus,
		sink:       sink,
		log:        log,
	}, nil
}

func (o *Orchestrator) publish(ev events.LifecycleEvent) {
	if o.bus == nil {
		return
	}
	ev.Time = time.Now()
	o.bus.Publish(ev)
}

func (o *Orchestrator) recordTransition(tr lifecycle.Transition, actorID string) {
	ev := metrics.TransitionEvent{
		SolicitudID: tr.Request.ID,
		From:        tr.From,
		To:          tr.To,
		ActorID:     actorID,
		Time:        time.Now(),
	}
	if err := o.sink.RecordTransition(ev); err != nil {
		o.log.Errorf("transition metrics error: %v", err)
	}
}

// NotifyCreated announces a freshly persisted request: the requester gets a
// confirmation and every connected collector gets the snapshot. It is
// fire-and-forget relative to the HTTP call that created the record.
func (o *Orchestrator) NotifyCreated(req *model.Request) {
	snapshot := *req
	go func() {
		o.dispatcher.Notify(snapshot.UsuarioID, realtime.Message{
			Type:      realtime.TypeSolicitudCreada,
			Solicitud: &snapshot,
		})
		n := o.dispatcher.BroadcastToRole(model.RoleReciclador, realtime.Message{
			Type:      realtime.TypeNuevaSolicitud,
			Solicitud: &snapshot,
		})
		o.log.Infof("request %s announced to %d collector handles", snapshot.ID, n)
		o.publish(events.LifecycleEvent{
			Kind:        events.KindCreated,
			SolicitudID: snapshot.ID,
			UsuarioID:   snapshot.UsuarioID,
			Estado:      snapshot.Estado,
		})
	}()
}

// NotifyUpdated pushes a state refresh to the requester. Like NotifyCreated
// it never fails the triggering HTTP call.
func (o *Orchestrator) NotifyUpdated(requestID, requesterID string, estado model.RequestState) {
	go func() {
		o.dispatcher.Notify(requesterID, realtime.Message{
			Type:        realtime.TypeSolicitudActualizada,
			SolicitudID: requestID,
			Estado:      string(estado),
		})
	}()
}

// Assign drives pendiente→aceptada for the collector. Exactly one concurrent
// acceptor wins; the rest get Conflict with no partial mutation. On success
// the service record is created and both parties are notified.
func (o *Orchestrator) Assign(ctx context.Context, requestID, collectorID string) (*model.Request, error) {
	tr, err := o.machine.Accept(ctx, requestID, collectorID)
	if err != nil {
		return nil, err
	}
	req := tr.Request

	svc := &model.Service{
		ID:           uuid.NewString(),
		SolicitudID:  req.ID,
		RecicladorID: collectorID,
		Estado:       "en proceso",
		FechaInicio:  time.Now().UTC(),
	}
	if err := o.store.CreateService(ctx, svc); err != nil {
		return nil, fmt.Errorf("create service: %w", err)
	}

	o.dispatcher.Notify(collectorID, realtime.Message{
		Type:      realtime.TypeSolicitudAceptada,
		Solicitud: req,
	})
	o.dispatcher.Notify(req.UsuarioID, realtime.Message{
		Type:         realtime.TypeSolicitudAceptada,
		SolicitudID:  req.ID,
		RecicladorID: collectorID,
	})
	o.recordTransition(tr, collectorID)
	o.publish(events.LifecycleEvent{
		Kind:         events.KindAccepted,
		SolicitudID:  req.ID,
		UsuarioID:    req.UsuarioID,
		RecicladorID: collectorID,
		Estado:       req.Estado,
	})
	return req, nil
}

// UpdateStatus drives any non-acceptance edge (en_camino, cancelada) for the
// actor and notifies the affected parties.
func (o *Orchestrator) UpdateStatus(ctx context.Context, requestID, actorID string, to model.RequestState) (*model.Request, error) {
	tr, err := o.machine.Advance(ctx, requestID, actorID, to)
	if err != nil {
		return nil, err
	}
	req := tr.Request

	o.dispatcher.Notify(req.UsuarioID, realtime.Message{
		Type:        realtime.TypeSolicitudActualizada,
		SolicitudID: req.ID,
		Estado:      string(req.Estado),
	})
	kind := events.KindUpdated
	if to == model.StateCancelada {
		kind = events.KindCancelled
		if req.RecicladorID != "" {
			o.dispatcher.Notify(req.RecicladorID, realtime.Message{
				Type:        realtime.TypeSolicitudCancelada,
				SolicitudID: req.ID,
				UsuarioID:   req.UsuarioID,
			})
		}
	}
	o.recordTransition(tr, actorID)
	o.publish(events.LifecycleEvent{
		Kind:         kind,
		SolicitudID:  req.ID,
		UsuarioID:    req.UsuarioID,
		RecicladorID: req.RecicladorID,
		Estado:       req.Estado,
	})
	return req, nil
}

// Decline records a collector's refusal of a pendiente request. It is
// informational only: the shared record never transitions, so other
// collectors can still accept.
func (o *Orchestrator) Decline(ctx context.Context, requestID, collectorID string) error {
	req, err := o.store.GetRequest(ctx, requestID)
	if err != nil {
		return fmt.Errorf("get request: %w", err)
	}
	if req == nil {
		return fmt.Errorf("%w: request %s", model.ErrNotFound, requestID)
	}
	if req.Estado != model.StatePendiente {
		return fmt.Errorf("%w: request %s is %s, cannot decline", model.ErrConflict, requestID, req.Estado)
	}
	o.log.Infof("collector %s declined request %s", collectorID, requestID)
	o.dispatcher.Notify(req.UsuarioID, realtime.Message{
		Type:        realtime.TypeSolicitudRechazada,
		SolicitudID: req.ID,
		UsuarioID:   collectorID,
	})
	o.publish(events.LifecycleEvent{
		Kind:         events.KindDeclined,
		SolicitudID:  req.ID,
		UsuarioID:    req.UsuarioID,
		RecicladorID: collectorID,
		Estado:       req.Estado,
	})
	return nil
}

// Complete drives →completada for the assigned collector, persists the
// evidence, awards points and notifies the requester. A ledger failure after
// the transition committed is logged and surfaced, but the completion stands:
// the pickup physically happened.
func (o *Orchestrator) Complete(ctx context.Context, requestID, actorID string, ev model.Evidence) (float64, error) {
	if err := ev.Validate(); err != nil {
		return 0, err
	}
	tr, err := o.machine.Advance(ctx, requestID, actorID, model.StateCompletada)
	if err != nil {
		return 0, err
	}
	req := tr.Request

	svc, err := o.store.GetServiceBySolicitud(ctx, req.ID)
	if err != nil {
		o.log.Errorf("lookup service for %s: %v", req.ID, err)
	}
	ev.ID = uuid.NewString()
	ev.SolicitudID = req.ID
	if svc != nil {
		ev.ServicioID = svc.ID
	}
	if err := o.store.CreateEvidence(ctx, &ev); err != nil {
		o.log.Errorf("persist evidence for %s: %v", req.ID, err)
	}
	if svc != nil {
		now := time.Now().UTC()
		svc.Estado = "finalizado"
		svc.FechaFin = &now
		if _, err := o.store.UpdateService(ctx, svc); err != nil {
			o.log.Errorf("close service %s: %v", svc.ID, err)
		}
	}

	puntos := model.PointsFor(ev.Material, ev.PesoKg)
	_, awardErr := o.ledger.Award(ctx, actorID, puntos)
	if awardErr != nil {
		o.log.Errorf("award %v points to %s for %s: %v", puntos, actorID, req.ID, awardErr)
	} else {
		if err := o.sink.RecordPoints(metrics.PointsEvent{
			UsuarioID: actorID,
			Material:  ev.Material,
			Puntos:    puntos,
			Time:      time.Now(),
		}); err != nil {
			o.log.Errorf("points metrics error: %v", err)
		}
	}

	o.dispatcher.Notify(req.UsuarioID, realtime.Message{
		Type:        realtime.TypeSolicitudCompletada,
		SolicitudID: req.ID,
	})
	o.dispatcher.Notify(req.UsuarioID, realtime.Message{
		Type:        realtime.TypeSolicitudActualizada,
		SolicitudID: req.ID,
		Estado:      string(req.Estado),
	})
	o.recordTransition(tr, actorID)
	o.publish(events.LifecycleEvent{
		Kind:         events.KindCompleted,
		SolicitudID:  req.ID,
		UsuarioID:    req.UsuarioID,
		RecicladorID: actorID,
		Estado:       req.Estado,
		Puntos:       puntos,
	})
	if awardErr != nil {
		return puntos, fmt.Errorf("request completed but points not awarded: %w", awardErr)
	}
	return puntos, nil
}

// Redeem exchanges points for a reward. Reward stock bookkeeping stays with
// the persistence collaborator; the core only reads the cost.
func (o *Orchestrator) Redeem(ctx context.Context, usuarioID, rewardID string) (float64, error) {
	reward, err := o.store.GetReward(ctx, rewardID)
	if err != nil {
		return 0, fmt.Errorf("get reward: %w", err)
	}
	if reward == nil {
		return 0, fmt.Errorf("%w: reward %s", model.ErrNotFound, rewardID)
	}
	if reward.Stock <= 0 {
		return 0, fmt.Errorf("%w: reward %s is out of stock", model.ErrConflict, rewardID)
	}
	balance, err := o.ledger.Redeem(ctx, usuarioID, reward.CostoPuntos)
	if err != nil {
		return balance, err
	}
	reward.Stock--
	if _, err := o.store.UpdateReward(ctx, reward); err != nil {
		o.log.Errorf("decrement stock for reward %s: %v", rewardID, err)
	}
	if err := o.sink.RecordPoints(metrics.PointsEvent{
		UsuarioID: usuarioID,
		Puntos:    reward.CostoPuntos,
		Redeemed:  true,
		Time:      time.Now(),
	}); err != nil {
		o.log.Errorf("points metrics error: %v", err)
	}
	o.publish(events.LifecycleEvent{
		Kind:      events.KindRedeemed,
		UsuarioID: usuarioID,
		Puntos:    reward.CostoPuntos,
	})
	return balance, nil
}

// ForwardLocation relays a collector position update to the requester of the
// service in progress.
func (o *Orchestrator) ForwardLocation(ctx context.Context, solicitudID, recicladorID string, lat, lng float64) error {
	req, err := o.store.GetRequest(ctx, solicitudID)
	if err != nil {
		return fmt.Errorf("get request: %w", err)
	}
	if req == nil {
		return fmt.Errorf("%w: request %s", model.ErrNotFound, solicitudID)
	}
	o.dispatcher.Notify(req.UsuarioID, realtime.Message{
		Type:        realtime.TypeUbicacionReciclador,
		SolicitudID: solicitudID,
		Lat:         lat,
		Lng:         lng,
	})
	return nil
}
