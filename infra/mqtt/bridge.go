// Package mqtt pushes lifecycle events to an MQTT broker so mobile clients
// without an open websocket still receive notifications.
package mqtt

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/ecovalle/recolecta/core/events"
	"github.com/ecovalle/recolecta/infra/logger"
	"github.com/ecovalle/recolecta/internal/eventbus"
)

// Bridge subscribes to the lifecycle bus and republishes each event on the
// per-user topics. Events are best effort: a publish failure is logged, never
// retried at this layer.
type Bridge struct {
	pub    Publisher
	prefix string
	log    logger.Logger

	wg   sync.WaitGroup
	bus  *eventbus.Bus[events.LifecycleEvent]
	sub  <-chan events.LifecycleEvent
	once sync.Once
}

// NewBridge wires the publisher to the bus.
func NewBridge(pub Publisher, prefix string, bus *eventbus.Bus[events.LifecycleEvent], log logger.Logger) *Bridge {
	if prefix == "" {
		prefix = "recolecta"
	}
	return &Bridge{pub: pub, prefix: prefix, bus: bus, log: log}
}

// Start begins consuming lifecycle events until the bus is closed.
func (b *Bridge) Start() {
	b.sub = b.bus.Subscribe()
	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		for ev := range b.sub {
			b.forward(ev)
		}
	}()
}

// Stop unsubscribes and waits for the pump to drain.
func (b *Bridge) Stop() {
	b.once.Do(func() {
		if b.sub != nil {
			b.bus.Unsubscribe(b.sub)
		}
	})
	b.wg.Wait()
}

func (b *Bridge) topicFor(usuarioID string) string {
	return fmt.Sprintf("%s/usuarios/%s/eventos", b.prefix, usuarioID)
}

func (b *Bridge) forward(ev events.LifecycleEvent) {
	payload, err := json.Marshal(struct {
		Tipo         string  `json:"tipo"`
		SolicitudID  string  `json:"solicitud_id,omitempty"`
		RecicladorID string  `json:"reciclador_id,omitempty"`
		Estado       string  `json:"estado,omitempty"`
		Puntos       float64 `json:"puntos,omitempty"`
		Timestamp    int64   `json:"timestamp"`
	}{
		Tipo:         string(ev.Kind),
		SolicitudID:  ev.SolicitudID,
		RecicladorID: ev.RecicladorID,
		Estado:       string(ev.Estado),
		Puntos:       ev.Puntos,
		Timestamp:    ev.Time.UnixMilli(),
	})
	if err != nil {
		b.log.Errorf("encode event %s: %v", ev.Kind, err)
		return
	}
	targets := make([]string, 0, 2)
	if ev.UsuarioID != "" {
		targets = append(targets, ev.UsuarioID)
	}
	if ev.RecicladorID != "" && ev.RecicladorID != ev.UsuarioID {
		targets = append(targets, ev.RecicladorID)
	}
	for _, id := range targets {
		if err := b.pub.Publish(b.topicFor(id), payload); err != nil {
			b.log.Errorf("publish %s to %s: %v", ev.Kind, id, err)
		}
	}
}
