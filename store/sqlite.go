package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/ecovalle/recolecta/core/model"
)

// SQLite persists records to a SQLite database.
type SQLite struct {
	db *sql.DB
}

// NewSQLite opens or creates the database at path and ensures schema.
func NewSQLite(path string) (*SQLite, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	schema := `
CREATE TABLE IF NOT EXISTS usuarios (
    id TEXT PRIMARY KEY,
    nombre TEXT NOT NULL,
    correo TEXT NOT NULL UNIQUE,
    password_hash TEXT NOT NULL,
    rol TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS solicitudes (
    id TEXT PRIMARY KEY,
    usuario_id TEXT NOT NULL,
    reciclador_id TEXT,
    tipo_material TEXT NOT NULL,
    cantidad REAL NOT NULL,
    descripcion TEXT,
    latitud REAL,
    longitud REAL,
    direccion TEXT,
    estado TEXT NOT NULL,
    fecha_solicitud INTEGER NOT NULL,
    fecha_aceptacion INTEGER,
    fecha_completado INTEGER
);
CREATE TABLE IF NOT EXISTS servicios (
    id TEXT PRIMARY KEY,
    solicitud_id TEXT NOT NULL,
    reciclador_id TEXT NOT NULL,
    estado TEXT NOT NULL,
    fecha_inicio INTEGER NOT NULL,
    fecha_fin INTEGER
);
CREATE TABLE IF NOT EXISTS evidencias (
    id TEXT PRIMARY KEY,
    servicio_id TEXT,
    solicitud_id TEXT NOT NULL,
    material TEXT NOT NULL,
    peso_kg REAL NOT NULL,
    foto_url TEXT,
    latitud REAL,
    longitud REAL
);
CREATE TABLE IF NOT EXISTS wallets (
    id TEXT PRIMARY KEY,
    usuario_id TEXT NOT NULL UNIQUE,
    puntos REAL NOT NULL DEFAULT 0
);
CREATE TABLE IF NOT EXISTS rewards (
    id TEXT PRIMARY KEY,
    nombre TEXT NOT NULL,
    descripcion TEXT,
    costo_puntos REAL NOT NULL,
    stock INTEGER NOT NULL DEFAULT 0
);`
	if _, err := db.Exec(schema); err != nil {
		if cerr := db.Close(); cerr != nil {
			return nil, fmt.Errorf("close db: %v (schema err: %w)", cerr, err)
		}
		return nil, err
	}
	return &SQLite{db: db}, nil
}

func (s *SQLite) Close() error { return s.db.Close() }

func nullTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.Unix()
}

func scanTime(v sql.NullInt64) *time.Time {
	if !v.Valid {
		return nil
	}
	t := time.Unix(v.Int64, 0).UTC()
	return &t
}

func (s *SQLite) CreateUser(ctx context.Context, u *model.Participant) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO usuarios (id, nombre, correo, password_hash, rol) VALUES (?, ?, ?, ?, ?)`,
		u.ID, u.Nombre, u.Correo, u.PasswordHash, string(u.Rol))
	return err
}

func (s *SQLite) scanUser(row *sql.Row) (*model.Participant, error) {
	var u model.Participant
	var rol string
	err := row.Scan(&u.ID, &u.Nombre, &u.Correo, &u.PasswordHash, &rol)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	u.Rol = model.Role(rol)
	return &u, nil
}

func (s *SQLite) GetUser(ctx context.Context, id string) (*model.Participant, error) {
	return s.scanUser(s.db.QueryRowContext(ctx,
		`SELECT id, nombre, correo, password_hash, rol FROM usuarios WHERE id = ?`, id))
}

func (s *SQLite) GetUserByCorreo(ctx context.Context, correo string) (*model.Participant, error) {
	return s.scanUser(s.db.QueryRowContext(ctx,
		`SELECT id, nombre, correo, password_hash, rol FROM usuarios WHERE correo = ?`, correo))
}

func (s *SQLite) ListUsers(ctx context.Context) ([]model.Participant, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, nombre, correo, password_hash, rol FROM usuarios ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	var res []model.Participant
	for rows.Next() {
		var u model.Participant
		var rol string
		if err := rows.Scan(&u.ID, &u.Nombre, &u.Correo, &u.PasswordHash, &rol); err != nil {
			return nil, err
		}
		u.Rol = model.Role(rol)
		res = append(res, u)
	}
	return res, rows.Err()
}

const requestCols = `id, usuario_id, reciclador_id, tipo_material, cantidad, descripcion,
    latitud, longitud, direccion, estado, fecha_solicitud, fecha_aceptacion, fecha_completado`

func (s *SQLite) CreateRequest(ctx context.Context, r *model.Request) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO solicitudes (`+requestCols+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID, r.UsuarioID, r.RecicladorID, r.TipoMaterial, r.Cantidad, r.Descripcion,
		r.Latitud, r.Longitud, r.Direccion, string(r.Estado),
		r.FechaSolicitud.Unix(), nullTime(r.FechaAceptacion), nullTime(r.FechaCompletado))
	return err
}

type requestScanner interface {
	Scan(dest ...any) error
}

func scanRequest(row requestScanner) (*model.Request, error) {
	var r model.Request
	var reciclador sql.NullString
	var estado string
	var solicitada int64
	var aceptada, completada sql.NullInt64
	err := row.Scan(&r.ID, &r.UsuarioID, &reciclador, &r.TipoMaterial, &r.Cantidad, &r.Descripcion,
		&r.Latitud, &r.Longitud, &r.Direccion, &estado, &solicitada, &aceptada, &completada)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	r.RecicladorID = reciclador.String
	r.Estado = model.RequestState(estado)
	r.FechaSolicitud = time.Unix(solicitada, 0).UTC()
	r.FechaAceptacion = scanTime(aceptada)
	r.FechaCompletado = scanTime(completada)
	return &r, nil
}

func (s *SQLite) GetRequest(ctx context.Context, id string) (*model.Request, error) {
	return scanRequest(s.db.QueryRowContext(ctx,
		`SELECT `+requestCols+` FROM solicitudes WHERE id = ?`, id))
}

func (s *SQLite) ListRequests(ctx context.Context) ([]model.Request, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+requestCols+` FROM solicitudes ORDER BY fecha_solicitud`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	var res []model.Request
	for rows.Next() {
		r, err := scanRequest(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, *r)
	}
	return res, rows.Err()
}

func (s *SQLite) UpdateRequest(ctx context.Context, r *model.Request) (*model.Request, error) {
	res, err := s.db.ExecContext(ctx,
		`UPDATE solicitudes SET reciclador_id = ?, tipo_material = ?, cantidad = ?, descripcion = ?,
         latitud = ?, longitud = ?, direccion = ?, estado = ?, fecha_aceptacion = ?, fecha_completado = ?
         WHERE id = ?`,
		r.RecicladorID, r.TipoMaterial, r.Cantidad, r.Descripcion,
		r.Latitud, r.Longitud, r.Direccion, string(r.Estado),
		nullTime(r.FechaAceptacion), nullTime(r.FechaCompletado), r.ID)
	if err != nil {
		return nil, err
	}
	if n, err := res.RowsAffected(); err != nil || n == 0 {
		return nil, err
	}
	out := *r
	return &out, nil
}

func (s *SQLite) DeleteRequest(ctx context.Context, id string) (*model.Request, error) {
	r, err := s.GetRequest(ctx, id)
	if err != nil || r == nil {
		return nil, err
	}
	if _, err := s.db.ExecContext(ctx, `DELETE FROM solicitudes WHERE id = ?`, id); err != nil {
		return nil, err
	}
	return r, nil
}

func (s *SQLite) CreateService(ctx context.Context, sv *model.Service) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO servicios (id, solicitud_id, reciclador_id, estado, fecha_inicio, fecha_fin)
         VALUES (?, ?, ?, ?, ?, ?)`,
		sv.ID, sv.SolicitudID, sv.RecicladorID, sv.Estado, sv.FechaInicio.Unix(), nullTime(sv.FechaFin))
	return err
}

func (s *SQLite) GetServiceBySolicitud(ctx context.Context, solicitudID string) (*model.Service, error) {
	var sv model.Service
	var inicio int64
	var fin sql.NullInt64
	err := s.db.QueryRowContext(ctx,
		`SELECT id, solicitud_id, reciclador_id, estado, fecha_inicio, fecha_fin
         FROM servicios WHERE solicitud_id = ?`, solicitudID).
		Scan(&sv.ID, &sv.SolicitudID, &sv.RecicladorID, &sv.Estado, &inicio, &fin)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	sv.FechaInicio = time.Unix(inicio, 0).UTC()
	sv.FechaFin = scanTime(fin)
	return &sv, nil
}

func (s *SQLite) UpdateService(ctx context.Context, sv *model.Service) (*model.Service, error) {
	res, err := s.db.ExecContext(ctx,
		`UPDATE servicios SET estado = ?, fecha_fin = ? WHERE id = ?`,
		sv.Estado, nullTime(sv.FechaFin), sv.ID)
	if err != nil {
		return nil, err
	}
	if n, err := res.RowsAffected(); err != nil || n == 0 {
		return nil, err
	}
	out := *sv
	return &out, nil
}

func (s *SQLite) CreateEvidence(ctx context.Context, e *model.Evidence) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO evidencias (id, servicio_id, solicitud_id, material, peso_kg, foto_url, latitud, longitud)
         VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.ServicioID, e.SolicitudID, e.Material, e.PesoKg, e.FotoURL, e.Latitud, e.Longitud)
	return err
}

func (s *SQLite) GetEvidenceBySolicitud(ctx context.Context, solicitudID string) (*model.Evidence, error) {
	var e model.Evidence
	err := s.db.QueryRowContext(ctx,
		`SELECT id, servicio_id, solicitud_id, material, peso_kg, foto_url, latitud, longitud
         FROM evidencias WHERE solicitud_id = ?`, solicitudID).
		Scan(&e.ID, &e.ServicioID, &e.SolicitudID, &e.Material, &e.PesoKg, &e.FotoURL, &e.Latitud, &e.Longitud)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &e, nil
}

func (s *SQLite) CreateWallet(ctx context.Context, w *model.Wallet) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO wallets (id, usuario_id, puntos) VALUES (?, ?, ?)`,
		w.ID, w.UsuarioID, w.Puntos)
	return err
}

func (s *SQLite) GetWallet(ctx context.Context, usuarioID string) (*model.Wallet, error) {
	var w model.Wallet
	err := s.db.QueryRowContext(ctx,
		`SELECT id, usuario_id, puntos FROM wallets WHERE usuario_id = ?`, usuarioID).
		Scan(&w.ID, &w.UsuarioID, &w.Puntos)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &w, nil
}

func (s *SQLite) UpdateWallet(ctx context.Context, w *model.Wallet) (*model.Wallet, error) {
	res, err := s.db.ExecContext(ctx,
		`UPDATE wallets SET puntos = ? WHERE usuario_id = ?`, w.Puntos, w.UsuarioID)
	if err != nil {
		return nil, err
	}
	if n, err := res.RowsAffected(); err != nil || n == 0 {
		return nil, err
	}
	out := *w
	return &out, nil
}

func (s *SQLite) ListWallets(ctx context.Context) ([]model.Wallet, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, usuario_id, puntos FROM wallets ORDER BY usuario_id`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	var res []model.Wallet
	for rows.Next() {
		var w model.Wallet
		if err := rows.Scan(&w.ID, &w.UsuarioID, &w.Puntos); err != nil {
			return nil, err
		}
		res = append(res, w)
	}
	return res, rows.Err()
}

func (s *SQLite) CreateReward(ctx context.Context, r *model.Reward) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO rewards (id, nombre, descripcion, costo_puntos, stock) VALUES (?, ?, ?, ?, ?)`,
		r.ID, r.Nombre, r.Descripcion, r.CostoPuntos, r.Stock)
	return err
}

func (s *SQLite) GetReward(ctx context.Context, id string) (*model.Reward, error) {
	var r model.Reward
	err := s.db.QueryRowContext(ctx,
		`SELECT id, nombre, descripcion, costo_puntos, stock FROM rewards WHERE id = ?`, id).
		Scan(&r.ID, &r.Nombre, &r.Descripcion, &r.CostoPuntos, &r.Stock)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &r, nil
}

func (s *SQLite) ListRewards(ctx context.Context) ([]model.Reward, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, nombre, descripcion, costo_puntos, stock FROM rewards ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	var res []model.Reward
	for rows.Next() {
		var r model.Reward
		if err := rows.Scan(&r.ID, &r.Nombre, &r.Descripcion, &r.CostoPuntos, &r.Stock); err != nil {
			return nil, err
		}
		res = append(res, r)
	}
	return res, rows.Err()
}

func (s *SQLite) UpdateReward(ctx context.Context, r *model.Reward) (*model.Reward, error) {
	res, err := s.db.ExecContext(ctx,
		`UPDATE rewards SET nombre = ?, descripcion = ?, costo_puntos = ?, stock = ? WHERE id = ?`,
		r.Nombre, r.Descripcion, r.CostoPuntos, r.Stock, r.ID)
	if err != nil {
		return nil, err
	}
	if n, err := res.RowsAffected(); err != nil || n == 0 {
		return nil, err
	}
	out := *r
	return &out, nil
}

func (s *SQLite) DeleteReward(ctx context.Context, id string) (*model.Reward, error) {
	r, err := s.GetReward(ctx, id)
	if err != nil || r == nil {
		return nil, err
	}
	if _, err := s.db.ExecContext(ctx, `DELETE FROM rewards WHERE id = ?`, id); err != nil {
		return nil, err
	}
	return r, nil
}
