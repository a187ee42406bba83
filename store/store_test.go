package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/ecovalle/recolecta/core/model"
)

func backends(t *testing.T) map[string]Store {
	t.Helper()
	sq, err := NewSQLite(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = sq.Close() })
	return map[string]Store{"memory": NewMemory(), "sqlite": sq}
}

func TestStoreRequestsRoundTrip(t *testing.T) {
	ctx := context.Background()
	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			missing, err := s.GetRequest(ctx, "nope")
			require.NoError(t, err)
			require.Nil(t, missing, "missing record must be first-or-null")

			r := &model.Request{
				ID: "r1", UsuarioID: "u1", TipoMaterial: "plastico", Cantidad: 2,
				Latitud: 4.6, Longitud: -74.08, Direccion: "Calle 1",
				Estado: model.StatePendiente, FechaSolicitud: time.Now().UTC().Truncate(time.Second),
			}
			require.NoError(t, s.CreateRequest(ctx, r))

			got, err := s.GetRequest(ctx, "r1")
			require.NoError(t, err)
			require.NotNil(t, got)
			require.Equal(t, model.StatePendiente, got.Estado)
			require.Empty(t, got.RecicladorID)

			now := time.Now().UTC().Truncate(time.Second)
			got.Estado = model.StateAceptada
			got.RecicladorID = "c1"
			got.FechaAceptacion = &now
			updated, err := s.UpdateRequest(ctx, got)
			require.NoError(t, err)
			require.NotNil(t, updated)

			got, err = s.GetRequest(ctx, "r1")
			require.NoError(t, err)
			require.Equal(t, "c1", got.RecicladorID)
			require.NotNil(t, got.FechaAceptacion)

			gone, err := s.UpdateRequest(ctx, &model.Request{ID: "ghost"})
			require.NoError(t, err)
			require.Nil(t, gone, "update of missing record must be null")
		})
	}
}

func TestStoreWallets(t *testing.T) {
	ctx := context.Background()
	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			w, err := s.GetWallet(ctx, "u1")
			require.NoError(t, err)
			require.Nil(t, w)

			require.NoError(t, s.CreateWallet(ctx, &model.Wallet{ID: "w1", UsuarioID: "u1", Puntos: 0}))
			w, err = s.GetWallet(ctx, "u1")
			require.NoError(t, err)
			require.NotNil(t, w)
			require.Zero(t, w.Puntos)

			w.Puntos = 12.5
			_, err = s.UpdateWallet(ctx, w)
			require.NoError(t, err)
			w, err = s.GetWallet(ctx, "u1")
			require.NoError(t, err)
			require.Equal(t, 12.5, w.Puntos)
		})
	}
}

func TestStoreUsersAndRewards(t *testing.T) {
	ctx := context.Background()
	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			u := &model.Participant{ID: "u1", Nombre: "Ana", Correo: "ana@example.com", PasswordHash: "x", Rol: model.RoleCiudadano}
			require.NoError(t, s.CreateUser(ctx, u))
			byMail, err := s.GetUserByCorreo(ctx, "ana@example.com")
			require.NoError(t, err)
			require.NotNil(t, byMail)
			require.Equal(t, "u1", byMail.ID)

			rw := &model.Reward{ID: "rw1", Nombre: "Bolsa", CostoPuntos: 10, Stock: 3}
			require.NoError(t, s.CreateReward(ctx, rw))
			list, err := s.ListRewards(ctx)
			require.NoError(t, err)
			require.Len(t, list, 1)

			deleted, err := s.DeleteReward(ctx, "rw1")
			require.NoError(t, err)
			require.NotNil(t, deleted)
			gone, err := s.GetReward(ctx, "rw1")
			require.NoError(t, err)
			require.Nil(t, gone)
		})
	}
}

func TestStoreServicesAndEvidence(t *testing.T) {
	ctx := context.Background()
	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			sv := &model.Service{ID: "s1", SolicitudID: "r1", RecicladorID: "c1", Estado: "en proceso", FechaInicio: time.Now().UTC().Truncate(time.Second)}
			require.NoError(t, s.CreateService(ctx, sv))
			got, err := s.GetServiceBySolicitud(ctx, "r1")
			require.NoError(t, err)
			require.NotNil(t, got)
			require.Equal(t, "c1", got.RecicladorID)

			fin := time.Now().UTC().Truncate(time.Second)
			got.Estado = "finalizado"
			got.FechaFin = &fin
			_, err = s.UpdateService(ctx, got)
			require.NoError(t, err)

			ev := &model.Evidence{ID: "e1", ServicioID: "s1", SolicitudID: "r1", Material: "plastico", PesoKg: 2}
			require.NoError(t, s.CreateEvidence(ctx, ev))
			gotEv, err := s.GetEvidenceBySolicitud(ctx, "r1")
			require.NoError(t, err)
			require.NotNil(t, gotEv)
			require.Equal(t, 2.0, gotEv.PesoKg)
		})
	}
}

func TestOpenBackends(t *testing.T) {
	cfg := Config{}
	cfg.SetDefaults()
	require.Equal(t, "memory", cfg.Backend)
	s, err := Open(cfg)
	require.NoError(t, err)
	require.NoError(t, s.Close())

	cfg = Config{Backend: "sqlite", Path: filepath.Join(t.TempDir(), "open.db")}
	require.NoError(t, cfg.Validate())
	s, err = Open(cfg)
	require.NoError(t, err)
	require.NoError(t, s.Close())

	require.Error(t, Config{Backend: "redis"}.Validate())
}
