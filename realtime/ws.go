package realtime

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/ecovalle/recolecta/core/logger"
	"github.com/ecovalle/recolecta/core/model"
)

// Config defines settings for the realtime channel.
type Config struct {
	// SendTimeoutSeconds bounds each outbound write so one stalled
	// connection cannot block an orchestrated operation.
	SendTimeoutSeconds int `json:"send_timeout_seconds"`
}

// SetDefaults applies sane defaults.
func (c *Config) SetDefaults() {
	if c.SendTimeoutSeconds <= 0 {
		c.SendTimeoutSeconds = 5
	}
}

// LocationForwarder relays a collector position update to the requester of
// the service in progress. Implemented by the orchestrator.
type LocationForwarder interface {
	ForwardLocation(ctx context.Context, solicitudID, recicladorID string, lat, lng float64) error
}

// wsHandle adapts one websocket connection to the registry's Handle. Writes
// are serialized through the mutex, preserving send order per handle.
type wsHandle struct {
	conn    *websocket.Conn
	timeout time.Duration

	mu sync.Mutex
}

func (h *wsHandle) Send(payload []byte) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if err := h.conn.SetWriteDeadline(time.Now().Add(h.timeout)); err != nil {
		return fmt.Errorf("%w: %v", model.ErrTransport, err)
	}
	if err := h.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
		return fmt.Errorf("%w: %v", model.ErrTransport, err)
	}
	return nil
}

func (h *wsHandle) Close() error { return h.conn.Close() }

// Server upgrades websocket connections at /ws/{usuarioID} and serves each
// one with its own read loop. Outbound traffic reaches the connection through
// the registry, triggered by other participants' actions.
type Server struct {
	reg      *Registry
	fwd      LocationForwarder
	log      logger.Logger
	timeout  time.Duration
	upgrader websocket.Upgrader
}

// NewServer creates the websocket endpoint over the registry.
func NewServer(reg *Registry, fwd LocationForwarder, cfg Config, log logger.Logger) *Server {
	cfg.SetDefaults()
	return &Server{
		reg:     reg,
		fwd:     fwd,
		log:     log,
		timeout: time.Duration(cfg.SendTimeoutSeconds) * time.Second,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(*http.Request) bool { return true },
		},
	}
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	usuarioID := strings.TrimPrefix(r.URL.Path, "/ws/")
	if usuarioID == "" || strings.Contains(usuarioID, "/") {
		http.Error(w, "user id required", http.StatusNotFound)
		return
	}
	rol := model.RoleCiudadano
	if q := r.URL.Query().Get("rol"); q != "" {
		parsed, err := model.ParseRole(q)
		if err != nil {
			http.Error(w, "unknown role", http.StatusBadRequest)
			return
		}
		rol = parsed
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Errorf("upgrade for %s: %v", usuarioID, err)
		return
	}
	h := &wsHandle{conn: conn, timeout: s.timeout}
	s.reg.Connect(usuarioID, rol, h)
	defer s.reg.Disconnect(usuarioID, h)

	s.readLoop(r.Context(), conn, h, usuarioID)
}

// readLoop consumes inbound messages until the connection drops. Malformed
// payloads are dropped with a log line; the connection stays open.
func (s *Server) readLoop(ctx context.Context, conn *websocket.Conn, h *wsHandle, usuarioID string) {
	for {
		_, payload, err := conn.ReadMessage()
		if err != nil {
			s.log.Debugf("read loop for %s ended: %v", usuarioID, err)
			return
		}
		msg, err := ParseMessage(payload)
		if err != nil {
			s.log.Warnf("dropping message from %s: %v", usuarioID, err)
			continue
		}
		switch msg.Type {
		case TypePing:
			pong, _ := Message{Type: TypePong}.Encode()
			if err := h.Send(pong); err != nil {
				s.log.Debugf("pong to %s: %v", usuarioID, err)
			}
		case TypeUbicacionReciclador:
			if msg.SolicitudID == "" {
				// Position update outside a service; nothing to relay.
				continue
			}
			if err := s.fwd.ForwardLocation(ctx, msg.SolicitudID, usuarioID, msg.Lat, msg.Lng); err != nil {
				s.log.Warnf("forward location from %s: %v", usuarioID, err)
			}
		default:
			s.log.Warnf("dropping unexpected inbound %s from %s", msg.Type, usuarioID)
		}
	}
}
