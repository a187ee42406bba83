package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ecovalle/recolecta/analytics"
	"github.com/ecovalle/recolecta/auth"
	"github.com/ecovalle/recolecta/core/events"
	"github.com/ecovalle/recolecta/core/ledger"
	"github.com/ecovalle/recolecta/core/lifecycle"
	"github.com/ecovalle/recolecta/core/model"
	"github.com/ecovalle/recolecta/core/orchestrator"
	"github.com/ecovalle/recolecta/infra/logger"
	"github.com/ecovalle/recolecta/internal/eventbus"
	"github.com/ecovalle/recolecta/realtime"
	"github.com/ecovalle/recolecta/store"
)

type testAPI struct {
	srv *httptest.Server
	st  store.Store
}

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()
	st := store.NewMemory()
	log := logger.NopLogger{}
	reg := realtime.NewRegistry(log)
	disp := realtime.NewDispatcher(reg, nil, log)
	led := ledger.New(st, log)
	bus := eventbus.New[events.LifecycleEvent]()
	t.Cleanup(bus.Close)

	orch, err := orchestrator.New(lifecycle.New(st), led, disp, st, bus, nil, log)
	require.NoError(t, err)

	mux := NewRouter(Deps{
		Auth:      auth.NewService(st, log),
		Orch:      orch,
		Ledger:    led,
		Store:     st,
		Analytics: analytics.NewService(st, 10),
		Log:       log,
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return &testAPI{srv: srv, st: st}
}

func (a *testAPI) do(t *testing.T, method, path, token string, body any) *http.Response {
	t.Helper()
	var rd *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		rd = bytes.NewReader(payload)
	} else {
		rd = bytes.NewReader(nil)
	}
	req, err := http.NewRequest(method, a.srv.URL+path, rd)
	require.NoError(t, err)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&v))
	return v
}

// signup registers and logs in a participant, returning its token and id.
func (a *testAPI) signup(t *testing.T, nombre string, rol model.Role) (token, id string) {
	t.Helper()
	correo := fmt.Sprintf("%s@example.com", nombre)
	resp := a.do(t, http.MethodPost, "/auth/register", "", map[string]any{
		"nombre": nombre, "correo": correo, "password": "secreto", "rol": string(rol),
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	resp = a.do(t, http.MethodPost, "/auth/login", "", map[string]any{
		"correo": correo, "password": "secreto",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	out := decode[loginResponse](t, resp)
	return out.Token, out.Usuario.ID
}

func TestHealthcheck(t *testing.T) {
	a := newTestAPI(t)
	resp := a.do(t, http.MethodGet, "/healthcheck", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestRegisterDuplicate(t *testing.T) {
	a := newTestAPI(t)
	a.signup(t, "ana", model.RoleCiudadano)
	resp := a.do(t, http.MethodPost, "/auth/register", "", map[string]any{
		"nombre": "ana2", "correo": "ana@example.com", "password": "secreto",
	})
	require.Equal(t, http.StatusConflict, resp.StatusCode)
}

func TestSolicitudLifecycleOverHTTP(t *testing.T) {
	a := newTestAPI(t)
	citizenTok, _ := a.signup(t, "ana", model.RoleCiudadano)
	collectorTok, collectorID := a.signup(t, "carlos", model.RoleReciclador)
	otherTok, _ := a.signup(t, "lucia", model.RoleReciclador)

	// Unauthorized without a token.
	resp := a.do(t, http.MethodPost, "/api/solicitudes", "", map[string]any{})
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	// Collectors cannot create requests.
	resp = a.do(t, http.MethodPost, "/api/solicitudes", collectorTok, map[string]any{
		"tipo_material": "plastico", "cantidad": 2.0,
	})
	require.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp = a.do(t, http.MethodPost, "/api/solicitudes", citizenTok, map[string]any{
		"tipo_material": "plastico", "cantidad": 2.0, "latitud": 4.6, "longitud": -74.1,
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	created := decode[model.Request](t, resp)
	require.Equal(t, model.StatePendiente, created.Estado)

	resp = a.do(t, http.MethodGet, "/api/solicitudes/"+created.ID, citizenTok, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	// First acceptor wins, the second conflicts.
	resp = a.do(t, http.MethodPost, "/api/solicitudes/"+created.ID+"/aceptar", collectorTok, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	accepted := decode[model.Request](t, resp)
	require.Equal(t, collectorID, accepted.RecicladorID)

	resp = a.do(t, http.MethodPost, "/api/solicitudes/"+created.ID+"/aceptar", otherTok, nil)
	require.Equal(t, http.StatusConflict, resp.StatusCode)

	resp = a.do(t, http.MethodPost, "/api/solicitudes/"+created.ID+"/estado", collectorTok, map[string]any{
		"estado": "en_camino",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = a.do(t, http.MethodPost, "/api/solicitudes/"+created.ID+"/completar", collectorTok, map[string]any{
		"material": "plastico", "peso_kg": 2.0,
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	done := decode[completarResponse](t, resp)
	require.Equal(t, 10.0, done.Puntos)

	// The collector's wallet holds the award.
	resp = a.do(t, http.MethodGet, "/api/wallets/"+collectorID, collectorTok, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	bal := decode[balanceResponse](t, resp)
	require.Equal(t, 10.0, bal.Puntos)

	// Completed requests reject further actions.
	resp = a.do(t, http.MethodPost, "/api/solicitudes/"+created.ID+"/cancelar", citizenTok, nil)
	require.Equal(t, http.StatusConflict, resp.StatusCode)
}

func TestRechazarIsInformational(t *testing.T) {
	a := newTestAPI(t)
	citizenTok, _ := a.signup(t, "ana", model.RoleCiudadano)
	collectorTok, _ := a.signup(t, "carlos", model.RoleReciclador)
	otherTok, _ := a.signup(t, "lucia", model.RoleReciclador)

	resp := a.do(t, http.MethodPost, "/api/solicitudes", citizenTok, map[string]any{
		"tipo_material": "carton", "cantidad": 1.0,
	})
	created := decode[model.Request](t, resp)

	resp = a.do(t, http.MethodPost, "/api/solicitudes/"+created.ID+"/rechazar", collectorTok, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	// Still pendiente: another collector can accept.
	resp = a.do(t, http.MethodPost, "/api/solicitudes/"+created.ID+"/aceptar", otherTok, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestCancelarPendiente(t *testing.T) {
	a := newTestAPI(t)
	citizenTok, _ := a.signup(t, "ana", model.RoleCiudadano)

	resp := a.do(t, http.MethodPost, "/api/solicitudes", citizenTok, map[string]any{
		"tipo_material": "vidrio", "cantidad": 1.0,
	})
	created := decode[model.Request](t, resp)

	resp = a.do(t, http.MethodPost, "/api/solicitudes/"+created.ID+"/cancelar", citizenTok, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	cancelled := decode[model.Request](t, resp)
	require.Equal(t, model.StateCancelada, cancelled.Estado)
}

func TestWalletAccessControl(t *testing.T) {
	a := newTestAPI(t)
	tok1, id1 := a.signup(t, "ana", model.RoleCiudadano)
	tok2, _ := a.signup(t, "otro", model.RoleCiudadano)
	adminTok, _ := a.signup(t, "admin", model.RoleAdmin)

	// Own wallet auto-creates at zero.
	resp := a.do(t, http.MethodGet, "/api/wallets/"+id1, tok1, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	bal := decode[balanceResponse](t, resp)
	require.Equal(t, 0.0, bal.Puntos)

	// Someone else's wallet is off limits.
	resp = a.do(t, http.MethodGet, "/api/wallets/"+id1, tok2, nil)
	require.Equal(t, http.StatusForbidden, resp.StatusCode)

	// Admins may inspect and award.
	resp = a.do(t, http.MethodGet, "/api/wallets/"+id1, adminTok, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp = a.do(t, http.MethodPost, "/api/wallets/"+id1+"/puntos", adminTok, map[string]any{"puntos": 8.0})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	// Non-admins cannot award.
	resp = a.do(t, http.MethodPost, "/api/wallets/"+id1+"/puntos", tok1, map[string]any{"puntos": 5.0})
	require.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestCanjearInsufficientBalance(t *testing.T) {
	a := newTestAPI(t)
	tok, id := a.signup(t, "ana", model.RoleCiudadano)
	adminTok, _ := a.signup(t, "admin", model.RoleAdmin)

	resp := a.do(t, http.MethodPost, "/api/rewards", adminTok, map[string]any{
		"nombre": "bolsa", "costo_puntos": 10.0, "stock": 5,
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	reward := decode[model.Reward](t, resp)

	resp = a.do(t, http.MethodPost, "/api/wallets/"+id+"/puntos", adminTok, map[string]any{"puntos": 8.0})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	// Balance 8 < cost 10: rejected, balance unchanged.
	resp = a.do(t, http.MethodPost, "/api/wallets/"+id+"/canjear", tok, map[string]any{"reward_id": reward.ID})
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = a.do(t, http.MethodGet, "/api/wallets/"+id, tok, nil)
	bal := decode[balanceResponse](t, resp)
	require.Equal(t, 8.0, bal.Puntos)
}

func TestRewardsCRUD(t *testing.T) {
	a := newTestAPI(t)
	tok, _ := a.signup(t, "ana", model.RoleCiudadano)
	adminTok, _ := a.signup(t, "admin", model.RoleAdmin)

	// Creation is admin-only.
	resp := a.do(t, http.MethodPost, "/api/rewards", tok, map[string]any{"nombre": "x", "costo_puntos": 1.0})
	require.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp = a.do(t, http.MethodPost, "/api/rewards", adminTok, map[string]any{
		"nombre": "bolsa", "costo_puntos": 5.0, "stock": 3,
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	reward := decode[model.Reward](t, resp)

	resp = a.do(t, http.MethodGet, "/api/rewards", tok, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	list := decode[[]model.Reward](t, resp)
	require.Len(t, list, 1)

	resp = a.do(t, http.MethodGet, "/api/rewards/"+reward.ID, tok, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = a.do(t, http.MethodGet, "/api/rewards/missing", tok, nil)
	require.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp = a.do(t, http.MethodDelete, "/api/rewards/"+reward.ID, adminTok, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp = a.do(t, http.MethodGet, "/api/rewards/"+reward.ID, tok, nil)
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestAnalyticsEndpoints(t *testing.T) {
	a := newTestAPI(t)
	tok, _ := a.signup(t, "ana", model.RoleCiudadano)
	adminTok, _ := a.signup(t, "admin", model.RoleAdmin)

	resp := a.do(t, http.MethodGet, "/api/analytics/resumen", tok, nil)
	require.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp = a.do(t, http.MethodGet, "/api/analytics/resumen", adminTok, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	sum := decode[analytics.Summary](t, resp)
	require.Zero(t, sum.TotalSolicitudes)

	resp = a.do(t, http.MethodGet, "/api/analytics/export?format=csv", adminTok, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "text/csv", resp.Header.Get("Content-Type"))

	resp = a.do(t, http.MethodGet, "/api/analytics/export?format=xml", adminTok, nil)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
}
