package realtime

import (
	"sync"
	"time"

	"github.com/ecovalle/recolecta/core/logger"
	"github.com/ecovalle/recolecta/core/model"
)

// Handle is one live transport endpoint for an identity. Implementations must
// serialize their own writes so messages to a single handle stay in send
// order.
type Handle interface {
	Send(payload []byte) error
	Close() error
}

type connection struct {
	handle  Handle
	created time.Time
}

// Registry tracks live handles per participant. An identity may hold several
// handles at once (multi-device); a failed send drops only the offending
// handle. The registry owns its map exclusively: connect, disconnect and the
// snapshot operations are the only mutation entry points, all behind one
// lock.
type Registry struct {
	log logger.Logger

	mu    sync.Mutex
	conns map[string][]connection
	roles map[string]model.Role
}

// NewRegistry creates an empty Registry.
func NewRegistry(log logger.Logger) *Registry {
	return &Registry{
		log:   log,
		conns: make(map[string][]connection),
		roles: make(map[string]model.Role),
	}
}

// Connect registers a new handle under the identity. The role tag is stored
// per identity; re-declaring it on a later connect wins.
func (r *Registry) Connect(usuarioID string, rol model.Role, h Handle) {
	r.mu.Lock()
	r.conns[usuarioID] = append(r.conns[usuarioID], connection{handle: h, created: time.Now()})
	r.roles[usuarioID] = rol
	n := len(r.conns[usuarioID])
	r.mu.Unlock()
	r.log.Debugw("connected", map[string]any{"usuario": usuarioID, "rol": string(rol), "handles": n})
}

// Disconnect removes one handle. When the last handle for the identity goes,
// its role tag goes with it.
func (r *Registry) Disconnect(usuarioID string, h Handle) {
	r.mu.Lock()
	conns := r.conns[usuarioID]
	for i, c := range conns {
		if c.handle == h {
			conns = append(conns[:i], conns[i+1:]...)
			break
		}
	}
	if len(conns) == 0 {
		delete(r.conns, usuarioID)
		delete(r.roles, usuarioID)
	} else {
		r.conns[usuarioID] = conns
	}
	r.mu.Unlock()
	_ = h.Close()
}

// SendTo delivers the payload to every current handle of the identity and
// returns the count of handles that accepted it. A failing handle is dropped
// without aborting delivery to the rest; zero means the identity is
// effectively offline and the message is gone.
func (r *Registry) SendTo(usuarioID string, payload []byte) int {
	r.mu.Lock()
	conns := r.conns[usuarioID]
	handles := make([]Handle, len(conns))
	for i, c := range conns {
		handles[i] = c.handle
	}
	r.mu.Unlock()

	accepted := 0
	for _, h := range handles {
		if err := h.Send(payload); err != nil {
			r.log.Warnf("dropping handle for %s: %v", usuarioID, err)
			r.Disconnect(usuarioID, h)
			continue
		}
		accepted++
	}
	return accepted
}

// SnapshotByRole returns a stable copy of the identities currently tagged
// with rol, decoupling broadcast iteration from concurrent connects and
// disconnects.
func (r *Registry) SnapshotByRole(rol model.Role) []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	ids := make([]string, 0, len(r.roles))
	for id, tag := range r.roles {
		if tag == rol {
			ids = append(ids, id)
		}
	}
	return ids
}

// SnapshotAll returns a stable copy of every registered identity.
func (r *Registry) SnapshotAll() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	ids := make([]string, 0, len(r.conns))
	for id := range r.conns {
		ids = append(ids, id)
	}
	return ids
}
