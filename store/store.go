// Package store is the persistence collaborator. Lookups follow
// first-or-null semantics: a missing record yields (nil, nil), the core maps
// that to its NotFound error.
package store

import (
	"context"
	"fmt"

	"github.com/ecovalle/recolecta/core/model"
)

// Config selects and parameterizes the store backend.
type Config struct {
	// Backend selects the store type: "memory" or "sqlite".
	Backend string `json:"backend"`
	// Path is the database file location for the sqlite backend.
	Path string `json:"path"`
}

// SetDefaults applies sane defaults.
func (c *Config) SetDefaults() {
	if c.Backend == "" {
		c.Backend = "memory"
	}
	if c.Backend == "sqlite" && c.Path == "" {
		c.Path = "recolecta.db"
	}
}

// Validate checks mandatory fields.
func (c Config) Validate() error {
	if c.Backend != "memory" && c.Backend != "sqlite" {
		return fmt.Errorf("unknown backend %s", c.Backend)
	}
	if c.Backend == "sqlite" && c.Path == "" {
		return fmt.Errorf("path is required")
	}
	return nil
}

// UserStore persists participants.
type UserStore interface {
	CreateUser(ctx context.Context, u *model.Participant) error
	GetUser(ctx context.Context, id string) (*model.Participant, error)
	GetUserByCorreo(ctx context.Context, correo string) (*model.Participant, error)
	ListUsers(ctx context.Context) ([]model.Participant, error)
}

// RequestStore persists pickup requests.
type RequestStore interface {
	CreateRequest(ctx context.Context, r *model.Request) error
	GetRequest(ctx context.Context, id string) (*model.Request, error)
	ListRequests(ctx context.Context) ([]model.Request, error)
	UpdateRequest(ctx context.Context, r *model.Request) (*model.Request, error)
	DeleteRequest(ctx context.Context, id string) (*model.Request, error)
}

// ServiceStore persists request-to-collector assignments.
type ServiceStore interface {
	CreateService(ctx context.Context, s *model.Service) error
	GetServiceBySolicitud(ctx context.Context, solicitudID string) (*model.Service, error)
	UpdateService(ctx context.Context, s *model.Service) (*model.Service, error)
}

// EvidenceStore persists pickup evidence.
type EvidenceStore interface {
	CreateEvidence(ctx context.Context, e *model.Evidence) error
	GetEvidenceBySolicitud(ctx context.Context, solicitudID string) (*model.Evidence, error)
}

// WalletStore persists points balances.
type WalletStore interface {
	CreateWallet(ctx context.Context, w *model.Wallet) error
	GetWallet(ctx context.Context, usuarioID string) (*model.Wallet, error)
	UpdateWallet(ctx context.Context, w *model.Wallet) (*model.Wallet, error)
	ListWallets(ctx context.Context) ([]model.Wallet, error)
}

// RewardStore persists the reward catalog.
type RewardStore interface {
	CreateReward(ctx context.Context, r *model.Reward) error
	GetReward(ctx context.Context, id string) (*model.Reward, error)
	ListRewards(ctx context.Context) ([]model.Reward, error)
	UpdateReward(ctx context.Context, r *model.Reward) (*model.Reward, error)
	DeleteReward(ctx context.Context, id string) (*model.Reward, error)
}

// Store aggregates all record stores behind one backend.
type Store interface {
	UserStore
	RequestStore
	ServiceStore
	EvidenceStore
	WalletStore
	RewardStore
	Close() error
}

// Open creates the configured backend.
func Open(cfg Config) (Store, error) {
	switch cfg.Backend {
	case "memory":
		return NewMemory(), nil
	case "sqlite":
		return NewSQLite(cfg.Path)
	}
	return nil, fmt.Errorf("unknown backend %s", cfg.Backend)
}
