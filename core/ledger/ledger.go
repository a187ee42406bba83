// Package ledger keeps per-participant points balances. Award and redeem on
// the same identity are serialized so the balance can never go negative, no
// matter how the callers interleave.
package ledger

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/ecovalle/recolecta/core/logger"
	"github.com/ecovalle/recolecta/core/model"
)

// WalletStore is the slice of the persistence collaborator the ledger needs.
type WalletStore interface {
	CreateWallet(ctx context.Context, w *model.Wallet) error
	GetWallet(ctx context.Context, usuarioID string) (*model.Wallet, error)
	UpdateWallet(ctx context.Context, w *model.Wallet) (*model.Wallet, error)
}

// Ledger serializes balance mutations per identity. Different identities do
// not contend with each other.
type Ledger struct {
	store WalletStore
	log   logger.Logger

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// New creates a Ledger over the given wallet store.
func New(store WalletStore, log logger.Logger) *Ledger {
	return &Ledger{store: store, log: log, locks: make(map[string]*sync.Mutex)}
}

func (l *Ledger) lock(usuarioID string) *sync.Mutex {
	l.mu.Lock()
	defer l.mu.Unlock()
	m, ok := l.locks[usuarioID]
	if !ok {
		m = &sync.Mutex{}
		l.locks[usuarioID] = m
	}
	return m
}

// loadOrCreate returns the wallet, creating it with balance 0 if absent.
// Callers must hold the identity lock.
func (l *Ledger) loadOrCreate(ctx context.Context, usuarioID string) (*model.Wallet, error) {
	w, err := l.store.GetWallet(ctx, usuarioID)
	if err != nil {
		return nil, fmt.Errorf("get wallet: %w", err)
	}
	if w != nil {
		return w, nil
	}
	w = &model.Wallet{ID: uuid.NewString(), UsuarioID: usuarioID, Puntos: 0}
	if err := l.store.CreateWallet(ctx, w); err != nil {
		return nil, fmt.Errorf("create wallet: %w", err)
	}
	l.log.Infof("wallet created for user %s", usuarioID)
	return w, nil
}

// Balance returns the current balance, creating the wallet on first access.
func (l *Ledger) Balance(ctx context.Context, usuarioID string) (float64, error) {
	mu := l.lock(usuarioID)
	mu.Lock()
	defer mu.Unlock()
	w, err := l.loadOrCreate(ctx, usuarioID)
	if err != nil {
		return 0, err
	}
	return w.Puntos, nil
}

// Award adds puntos to the identity's balance, creating the wallet if absent.
// It is not idempotent: every call increases the balance.
func (l *Ledger) Award(ctx context.Context, usuarioID string, puntos float64) (float64, error) {
	if puntos <= 0 {
		return 0, fmt.Errorf("%w: award amount must be positive, got %v", model.ErrValidation, puntos)
	}
	mu := l.lock(usuarioID)
	mu.Lock()
	defer mu.Unlock()
	w, err := l.loadOrCreate(ctx, usuarioID)
	if err != nil {
		return 0, err
	}
	w.Puntos += puntos
	if _, err := l.store.UpdateWallet(ctx, w); err != nil {
		return 0, fmt.Errorf("update wallet: %w", err)
	}
	return w.Puntos, nil
}

// Redeem atomically checks and decrements the balance. A wallet that was
// never created fails with NotFound; a balance below costo fails with
// InsufficientBalance and leaves the balance unchanged.
func (l *Ledger) Redeem(ctx context.Context, usuarioID string, costo float64) (float64, error) {
	if costo <= 0 {
		return 0, fmt.Errorf("%w: redeem cost must be positive, got %v", model.ErrValidation, costo)
	}
	mu := l.lock(usuarioID)
	mu.Lock()
	defer mu.Unlock()
	w, err := l.store.GetWallet(ctx, usuarioID)
	if err != nil {
		return 0, fmt.Errorf("get wallet: %w", err)
	}
	if w == nil {
		return 0, fmt.Errorf("%w: wallet for user %s", model.ErrNotFound, usuarioID)
	}
	if w.Puntos < costo {
		return w.Puntos, fmt.Errorf("%w: balance %v < cost %v", model.ErrInsufficientBalance, w.Puntos, costo)
	}
	w.Puntos -= costo
	if _, err := l.store.UpdateWallet(ctx, w); err != nil {
		return 0, fmt.Errorf("update wallet: %w", err)
	}
	return w.Puntos, nil
}
