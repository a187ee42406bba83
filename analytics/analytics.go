// Package analytics aggregates requests, evidence and wallets into the
// reporting summary served to admins.
package analytics

import (
	"context"
	"fmt"
	"sort"
	"time"

	"gonum.org/v1/gonum/stat"

	"github.com/ecovalle/recolecta/core/model"
)

// Store is the slice of the persistence collaborator analytics reads.
type Store interface {
	ListRequests(ctx context.Context) ([]model.Request, error)
	ListWallets(ctx context.Context) ([]model.Wallet, error)
	ListUsers(ctx context.Context) ([]model.Participant, error)
	GetEvidenceBySolicitud(ctx context.Context, solicitudID string) (*model.Evidence, error)
}

// MaterialStat is the per-material aggregate over completed pickups.
type MaterialStat struct {
	Material    string  `json:"material"`
	Solicitudes int     `json:"solicitudes"`
	TotalKg     float64 `json:"total_kg"`
	MeanKg      float64 `json:"promedio_kg"`
	Puntos      float64 `json:"puntos"`
}

// WalletRank is one row of the top-balances table.
type WalletRank struct {
	UsuarioID string  `json:"usuario_id"`
	Nombre    string  `json:"nombre,omitempty"`
	Puntos    float64 `json:"puntos"`
}

// Summary is the reporting snapshot.
type Summary struct {
	TotalSolicitudes int            `json:"total_solicitudes"`
	PorEstado        map[string]int `json:"por_estado"`
	Materiales       []MaterialStat `json:"materiales"`
	TopWallets       []WalletRank   `json:"top_wallets"`
	PuntosOtorgados  float64        `json:"puntos_otorgados"`
	GeneradoEn       time.Time      `json:"generado_en"`
}

// Service computes reporting summaries.
type Service struct {
	store Store
	topN  int
}

// NewService creates the analytics service. topN bounds the wallet ranking;
// zero or negative means 10.
func NewService(store Store, topN int) *Service {
	if topN <= 0 {
		topN = 10
	}
	return &Service{store: store, topN: topN}
}

// Summary walks the stored records and aggregates them.
func (s *Service) Summary(ctx context.Context) (*Summary, error) {
	requests, err := s.store.ListRequests(ctx)
	if err != nil {
		return nil, fmt.Errorf("list requests: %w", err)
	}

	out := &Summary{
		TotalSolicitudes: len(requests),
		PorEstado:        make(map[string]int),
		GeneradoEn:       time.Now().UTC(),
	}
	weights := make(map[string][]float64)
	for _, r := range requests {
		out.PorEstado[string(r.Estado)]++
		if r.Estado != model.StateCompletada {
			continue
		}
		ev, err := s.store.GetEvidenceBySolicitud(ctx, r.ID)
		if err != nil {
			return nil, fmt.Errorf("evidence for %s: %w", r.ID, err)
		}
		if ev == nil {
			continue
		}
		weights[ev.Material] = append(weights[ev.Material], ev.PesoKg)
	}

	for material, kgs := range weights {
		var total float64
		for _, kg := range kgs {
			total += kg
		}
		puntos := model.PointsFor(material, total)
		out.Materiales = append(out.Materiales, MaterialStat{
			Material:    material,
			Solicitudes: len(kgs),
			TotalKg:     total,
			MeanKg:      stat.Mean(kgs, nil),
			Puntos:      puntos,
		})
		out.PuntosOtorgados += puntos
	}
	sort.Slice(out.Materiales, func(i, j int) bool {
		return out.Materiales[i].TotalKg > out.Materiales[j].TotalKg
	})

	wallets, err := s.store.ListWallets(ctx)
	if err != nil {
		return nil, fmt.Errorf("list wallets: %w", err)
	}
	users, err := s.store.ListUsers(ctx)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	names := make(map[string]string, len(users))
	for _, u := range users {
		names[u.ID] = u.Nombre
	}
	for _, w := range wallets {
		out.TopWallets = append(out.TopWallets, WalletRank{
			UsuarioID: w.UsuarioID,
			Nombre:    names[w.UsuarioID],
			Puntos:    w.Puntos,
		})
	}
	sort.Slice(out.TopWallets, func(i, j int) bool {
		if out.TopWallets[i].Puntos == out.TopWallets[j].Puntos {
			return out.TopWallets[i].UsuarioID < out.TopWallets[j].UsuarioID
		}
		return out.TopWallets[i].Puntos > out.TopWallets[j].Puntos
	})
	if len(out.TopWallets) > s.topN {
		out.TopWallets = out.TopWallets[:s.topN]
	}
	return out, nil
}
