package store

import (
	"context"
	"sort"
	"sync"

	"github.com/ecovalle/recolecta/core/model"
)

// Memory is an in-process Store used by tests and single-node deployments.
type Memory struct {
	mu        sync.RWMutex
	users     map[string]model.Participant
	requests  map[string]model.Request
	services  map[string]model.Service
	evidences map[string]model.Evidence
	wallets   map[string]model.Wallet
	rewards   map[string]model.Reward
}

// NewMemory creates an empty Memory store.
func NewMemory() *Memory {
	return &Memory{
		users:     map[string]model.Participant{},
		requests:  map[string]model.Request{},
		services:  map[string]model.Service{},
		evidences: map[string]model.Evidence{},
		wallets:   map[string]model.Wallet{},
		rewards:   map[string]model.Reward{},
	}
}

func (m *Memory) Close() error { return nil }

func (m *Memory) CreateUser(_ context.Context, u *model.Participant) error {
	m.mu.Lock()
	m.users[u.ID] = *u
	m.mu.Unlock()
	return nil
}

func (m *Memory) GetUser(_ context.Context, id string) (*model.Participant, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if u, ok := m.users[id]; ok {
		return &u, nil
	}
	return nil, nil
}

func (m *Memory) GetUserByCorreo(_ context.Context, correo string) (*model.Participant, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, u := range m.users {
		if u.Correo == correo {
			u := u
			return &u, nil
		}
	}
	return nil, nil
}

func (m *Memory) ListUsers(_ context.Context) ([]model.Participant, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	res := make([]model.Participant, 0, len(m.users))
	for _, u := range m.users {
		res = append(res, u)
	}
	sort.Slice(res, func(i, j int) bool { return res[i].ID < res[j].ID })
	return res, nil
}

func (m *Memory) CreateRequest(_ context.Context, r *model.Request) error {
	m.mu.Lock()
	m.requests[r.ID] = *r
	m.mu.Unlock()
	return nil
}

func (m *Memory) GetRequest(_ context.Context, id string) (*model.Request, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if r, ok := m.requests[id]; ok {
		return &r, nil
	}
	return nil, nil
}

func (m *Memory) ListRequests(_ context.Context) ([]model.Request, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	res := make([]model.Request, 0, len(m.requests))
	for _, r := range m.requests {
		res = append(res, r)
	}
	sort.Slice(res, func(i, j int) bool { return res[i].FechaSolicitud.Before(res[j].FechaSolicitud) })
	return res, nil
}

func (m *Memory) UpdateRequest(_ context.Context, r *model.Request) (*model.Request, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.requests[r.ID]; !ok {
		return nil, nil
	}
	m.requests[r.ID] = *r
	out := *r
	return &out, nil
}

func (m *Memory) DeleteRequest(_ context.Context, id string) (*model.Request, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.requests[id]
	if !ok {
		return nil, nil
	}
	delete(m.requests, id)
	return &r, nil
}

func (m *Memory) CreateService(_ context.Context, s *model.Service) error {
	m.mu.Lock()
	m.services[s.ID] = *s
	m.mu.Unlock()
	return nil
}

func (m *Memory) GetServiceBySolicitud(_ context.Context, solicitudID string) (*model.Service, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, s := range m.services {
		if s.SolicitudID == solicitudID {
			s := s
			return &s, nil
		}
	}
	return nil, nil
}

func (m *Memory) UpdateService(_ context.Context, s *model.Service) (*model.Service, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.services[s.ID]; !ok {
		return nil, nil
	}
	m.services[s.ID] = *s
	out := *s
	return &out, nil
}

func (m *Memory) CreateEvidence(_ context.Context, e *model.Evidence) error {
	m.mu.Lock()
	m.evidences[e.ID] = *e
	m.mu.Unlock()
	return nil
}

func (m *Memory) GetEvidenceBySolicitud(_ context.Context, solicitudID string) (*model.Evidence, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, e := range m.evidences {
		if e.SolicitudID == solicitudID {
			e := e
			return &e, nil
		}
	}
	return nil, nil
}

func (m *Memory) CreateWallet(_ context.Context, w *model.Wallet) error {
	m.mu.Lock()
	m.wallets[w.UsuarioID] = *w
	m.mu.Unlock()
	return nil
}

func (m *Memory) GetWallet(_ context.Context, usuarioID string) (*model.Wallet, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if w, ok := m.wallets[usuarioID]; ok {
		return &w, nil
	}
	return nil, nil
}

func (m *Memory) UpdateWallet(_ context.Context, w *model.Wallet) (*model.Wallet, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.wallets[w.UsuarioID]; !ok {
		return nil, nil
	}
	m.wallets[w.UsuarioID] = *w
	out := *w
	return &out, nil
}

func (m *Memory) ListWallets(_ context.Context) ([]model.Wallet, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	res := make([]model.Wallet, 0, len(m.wallets))
	for _, w := range m.wallets {
		res = append(res, w)
	}
	sort.Slice(res, func(i, j int) bool { return res[i].UsuarioID < res[j].UsuarioID })
	return res, nil
}

func (m *Memory) CreateReward(_ context.Context, r *model.Reward) error {
	m.mu.Lock()
	m.rewards[r.ID] = *r
	m.mu.Unlock()
	return nil
}

func (m *Memory) GetReward(_ context.Context, id string) (*model.Reward, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if r, ok := m.rewards[id]; ok {
		return &r, nil
	}
	return nil, nil
}

func (m *Memory) ListRewards(_ context.Context) ([]model.Reward, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	res := make([]model.Reward, 0, len(m.rewards))
	for _, r := range m.rewards {
		res = append(res, r)
	}
	sort.Slice(res, func(i, j int) bool { return res[i].ID < res[j].ID })
	return res, nil
}

func (m *Memory) UpdateReward(_ context.Context, r *model.Reward) (*model.Reward, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.rewards[r.ID]; !ok {
		return nil, nil
	}
	m.rewards[r.ID] = *r
	out := *r
	return &out, nil
}

func (m *Memory) DeleteReward(_ context.Context, id string) (*model.Reward, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.rewards[id]
	if !ok {
		return nil, nil
	}
	delete(m.rewards, id)
	return &r, nil
}
