// Package api exposes the REST surface: auth, request lifecycle actions,
// wallets, the reward catalog and analytics.
package api

import (
	"net/http"

	"github.com/ecovalle/recolecta/analytics"
	"github.com/ecovalle/recolecta/auth"
	"github.com/ecovalle/recolecta/core/ledger"
	"github.com/ecovalle/recolecta/core/logger"
	"github.com/ecovalle/recolecta/core/model"
	"github.com/ecovalle/recolecta/core/orchestrator"
	"github.com/ecovalle/recolecta/store"
)

// Deps carries the collaborators the handlers need.
type Deps struct {
	Auth      *auth.Service
	Orch      *orchestrator.Orchestrator
	Ledger    *ledger.Ledger
	Store     store.Store
	Analytics *analytics.Service
	Log       logger.Logger
}

// NewRouter builds the REST mux. The websocket endpoint and the Prometheus
// server are mounted elsewhere.
func NewRouter(d Deps) *http.ServeMux {
	h := &handlers{d}
	mux := http.NewServeMux()

	mux.HandleFunc("GET /healthcheck", h.healthcheck)

	mux.HandleFunc("POST /auth/register", h.register)
	mux.HandleFunc("POST /auth/login", h.login)
	mux.Handle("POST /auth/logout", d.Auth.Middleware(http.HandlerFunc(h.logout)))

	authed := func(fn http.HandlerFunc, roles ...model.Role) http.Handler {
		var inner http.Handler = fn
		if len(roles) > 0 {
			inner = auth.RequireRole(inner, roles...)
		}
		return d.Auth.Middleware(inner)
	}

	mux.Handle("GET /api/solicitudes", authed(h.listSolicitudes))
	mux.Handle("POST /api/solicitudes", authed(h.createSolicitud, model.RoleCiudadano, model.RoleAdmin))
	mux.Handle("GET /api/solicitudes/{id}", authed(h.getSolicitud))
	mux.Handle("POST /api/solicitudes/{id}/aceptar", authed(h.aceptarSolicitud, model.RoleReciclador))
	mux.Handle("POST /api/solicitudes/{id}/rechazar", authed(h.rechazarSolicitud, model.RoleReciclador))
	mux.Handle("POST /api/solicitudes/{id}/estado", authed(h.estadoSolicitud, model.RoleReciclador))
	mux.Handle("POST /api/solicitudes/{id}/completar", authed(h.completarSolicitud, model.RoleReciclador))
	mux.Handle("POST /api/solicitudes/{id}/cancelar", authed(h.cancelarSolicitud, model.RoleCiudadano, model.RoleAdmin))

	mux.Handle("GET /api/wallets/{userID}", authed(h.getWallet))
	mux.Handle("POST /api/wallets/{userID}/puntos", authed(h.awardPuntos, model.RoleAdmin))
	mux.Handle("POST /api/wallets/{userID}/canjear", authed(h.canjear))

	mux.Handle("GET /api/rewards", authed(h.listRewards))
	mux.Handle("POST /api/rewards", authed(h.createReward, model.RoleAdmin))
	mux.Handle("GET /api/rewards/{id}", authed(h.getReward))
	mux.Handle("DELETE /api/rewards/{id}", authed(h.deleteReward, model.RoleAdmin))

	mux.Handle("GET /api/analytics/resumen", authed(h.resumen, model.RoleAdmin))
	mux.Handle("GET /api/analytics/export", authed(h.exportResumen, model.RoleAdmin))

	return mux
}

type handlers struct {
	Deps
}

func (h *handlers) healthcheck(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
