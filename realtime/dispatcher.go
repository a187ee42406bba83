package realtime

import (
	"time"

	"github.com/ecovalle/recolecta/core/logger"
	"github.com/ecovalle/recolecta/core/metrics"
	"github.com/ecovalle/recolecta/core/model"
)

// Dispatcher routes an event to one identity, to every identity tagged with
// a role, or to everyone. Delivery is best effort: partial failures are
// absorbed by the registry's self-healing and only surface as delivery-count
// metrics.
type Dispatcher struct {
	reg  *Registry
	sink metrics.Sink
	log  logger.Logger
}

// NewDispatcher creates a Dispatcher over the registry. A nil sink disables
// metrics.
func NewDispatcher(reg *Registry, sink metrics.Sink, log logger.Logger) *Dispatcher {
	if sink == nil {
		sink = metrics.NopSink{}
	}
	return &Dispatcher{reg: reg, sink: sink, log: log}
}

func (d *Dispatcher) record(msg Message, usuarioID string, accepted int) {
	ev := metrics.DeliveryEvent{
		EventType: msg.Type,
		UsuarioID: usuarioID,
		Accepted:  accepted,
		Time:      time.Now(),
	}
	if err := d.sink.RecordDelivery(ev); err != nil {
		d.log.Errorf("delivery metrics error: %v", err)
	}
}

// Notify delivers the message to every handle of one identity and returns the
// accepted-handle count.
func (d *Dispatcher) Notify(usuarioID string, msg Message) int {
	payload, err := msg.Encode()
	if err != nil {
		d.log.Errorf("encode %s: %v", msg.Type, err)
		return 0
	}
	accepted := d.reg.SendTo(usuarioID, payload)
	if accepted == 0 {
		d.log.Debugf("user %s offline, %s dropped", usuarioID, msg.Type)
	}
	d.record(msg, usuarioID, accepted)
	return accepted
}

// BroadcastToRole delivers the message to every identity tagged with rol at
// snapshot time. Identities connecting after the snapshot miss this
// broadcast; identities disconnecting mid-broadcast simply count zero.
func (d *Dispatcher) BroadcastToRole(rol model.Role, msg Message) int {
	payload, err := msg.Encode()
	if err != nil {
		d.log.Errorf("encode %s: %v", msg.Type, err)
		return 0
	}
	total := 0
	for _, id := range d.reg.SnapshotByRole(rol) {
		accepted := d.reg.SendTo(id, payload)
		d.record(msg, id, accepted)
		total += accepted
	}
	return total
}

// BroadcastToAll delivers the message to every registered identity, with the
// same snapshot semantics as BroadcastToRole.
func (d *Dispatcher) BroadcastToAll(msg Message) int {
	payload, err := msg.Encode()
	if err != nil {
		d.log.Errorf("encode %s: %v", msg.Type, err)
		return 0
	}
	total := 0
	for _, id := range d.reg.SnapshotAll() {
		accepted := d.reg.SendTo(id, payload)
		d.record(msg, id, accepted)
		total += accepted
	}
	return total
}
