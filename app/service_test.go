package app

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"

	"github.com/ecovalle/recolecta/config"
	"github.com/ecovalle/recolecta/core/model"
	"github.com/ecovalle/recolecta/realtime"
)

func newTestService(t *testing.T) (*Service, *httptest.Server) {
	t.Helper()
	cfg := &config.Config{}
	cfg.HTTP.SetDefaults()
	cfg.Store.SetDefaults()
	cfg.Realtime.SetDefaults()
	cfg.Metrics.SetDefaults()

	svc, err := New(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = svc.Close() })

	ts := httptest.NewServer(svc.Handler())
	t.Cleanup(ts.Close)
	return svc, ts
}

func post(t *testing.T, ts *httptest.Server, path, token string, body any) *http.Response {
	t.Helper()
	payload, err := json.Marshal(body)
	require.NoError(t, err)
	req, err := http.NewRequest(http.MethodPost, ts.URL+path, bytes.NewReader(payload))
	require.NoError(t, err)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func signup(t *testing.T, ts *httptest.Server, nombre string, rol model.Role) (token, id string) {
	t.Helper()
	resp := post(t, ts, "/auth/register", "", map[string]any{
		"nombre": nombre, "correo": nombre + "@example.com", "password": "secreto", "rol": string(rol),
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	resp = post(t, ts, "/auth/login", "", map[string]any{
		"correo": nombre + "@example.com", "password": "secreto",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var out struct {
		Token   string             `json:"token"`
		Usuario *model.Participant `json:"usuario"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out.Token, out.Usuario.ID
}

func dialWS(t *testing.T, ts *httptest.Server, userID string, rol model.Role) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws/" + userID + "?rol=" + string(rol)
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

// collect drains inbound messages into a shared slice until the connection
// closes.
func collect(conn *websocket.Conn, mu *sync.Mutex, out *[]realtime.Message) {
	for {
		_, payload, err := conn.ReadMessage()
		if err != nil {
			return
		}
		msg, err := realtime.ParseMessage(payload)
		if err != nil {
			continue
		}
		mu.Lock()
		*out = append(*out, msg)
		mu.Unlock()
	}
}

func TestEndToEndPickupFlow(t *testing.T) {
	svc, ts := newTestService(t)

	citizenTok, citizenID := signup(t, ts, "ana", model.RoleCiudadano)
	tokA, idA := signup(t, ts, "carlosa", model.RoleReciclador)
	tokB, idB := signup(t, ts, "carlosb", model.RoleReciclador)

	citizenConn := dialWS(t, ts, citizenID, model.RoleCiudadano)
	var mu sync.Mutex
	var citizenMsgs []realtime.Message
	go collect(citizenConn, &mu, &citizenMsgs)

	// Wait for the registry to see the connection so notifications land.
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if len(svc.Registry.SnapshotAll()) == 1 {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}

	resp := post(t, ts, "/api/solicitudes", citizenTok, map[string]any{
		"tipo_material": "plastico", "cantidad": 2.0, "latitud": 4.6, "longitud": -74.1,
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var created model.Request
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&created))

	// Two collectors race for the acceptance; exactly one wins.
	var wg sync.WaitGroup
	codes := make([]int, 2)
	for i, tok := range []string{tokA, tokB} {
		wg.Add(1)
		go func(i int, tok string) {
			defer wg.Done()
			r := post(t, ts, "/api/solicitudes/"+created.ID+"/aceptar", tok, nil)
			codes[i] = r.StatusCode
		}(i, tok)
	}
	wg.Wait()
	require.ElementsMatch(t, []int{http.StatusOK, http.StatusConflict}, codes)

	winnerTok, winnerID := tokA, idA
	if codes[0] != http.StatusOK {
		winnerTok, winnerID = tokB, idB
	}

	resp = post(t, ts, "/api/solicitudes/"+created.ID+"/completar", winnerTok, map[string]any{
		"material": "plastico", "peso_kg": 2.0,
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var done struct {
		Puntos float64 `json:"puntos"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&done))
	require.Equal(t, 10.0, done.Puntos)

	// The requester's live connection saw the completion.
	deadline = time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		mu.Lock()
		var completed bool
		for _, m := range citizenMsgs {
			if m.Type == realtime.TypeSolicitudCompletada && m.SolicitudID == created.ID {
				completed = true
			}
		}
		mu.Unlock()
		if completed {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}
	mu.Lock()
	var sawCompleted bool
	for _, m := range citizenMsgs {
		if m.Type == realtime.TypeSolicitudCompletada {
			sawCompleted = true
		}
	}
	mu.Unlock()
	require.True(t, sawCompleted, "requester should receive solicitud_completada")

	// The winner's wallet holds the ten points.
	req, err := http.NewRequest(http.MethodGet, ts.URL+"/api/wallets/"+winnerID, nil)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+winnerTok)
	getResp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer getResp.Body.Close()
	var bal struct {
		Puntos float64 `json:"puntos"`
	}
	require.NoError(t, json.NewDecoder(getResp.Body).Decode(&bal))
	require.Equal(t, 10.0, bal.Puntos)
}
