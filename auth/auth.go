// Package auth handles participant registration, credential checks and
// bearer-token authentication for the REST and websocket surfaces.
package auth

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/ecovalle/recolecta/core/logger"
	"github.com/ecovalle/recolecta/core/model"
)

// UserStore is the slice of the persistence collaborator auth needs.
type UserStore interface {
	CreateUser(ctx context.Context, u *model.Participant) error
	GetUser(ctx context.Context, id string) (*model.Participant, error)
	GetUserByCorreo(ctx context.Context, correo string) (*model.Participant, error)
}

// Service issues opaque bearer tokens backed by an in-memory session table.
// Tokens do not survive a restart; clients re-login.
type Service struct {
	store UserStore
	log   logger.Logger

	mu     sync.RWMutex
	tokens map[string]string
}

// NewService creates the auth service.
func NewService(store UserStore, log logger.Logger) *Service {
	return &Service{store: store, log: log, tokens: make(map[string]string)}
}

// Register creates a participant with a bcrypt password hash. A correo that
// is already taken fails with Conflict.
func (s *Service) Register(ctx context.Context, nombre, correo, password string, rol model.Role) (*model.Participant, error) {
	if nombre == "" || correo == "" {
		return nil, fmt.Errorf("%w: nombre and correo are required", model.ErrValidation)
	}
	if len(password) < 6 {
		return nil, fmt.Errorf("%w: password must be at least 6 characters", model.ErrValidation)
	}
	existing, err := s.store.GetUserByCorreo(ctx, correo)
	if err != nil {
		return nil, fmt.Errorf("lookup correo: %w", err)
	}
	if existing != nil {
		return nil, fmt.Errorf("%w: correo %s already registered", model.ErrConflict, correo)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	u := &model.Participant{
		ID:           uuid.NewString(),
		Nombre:       nombre,
		Correo:       correo,
		PasswordHash: string(hash),
		Rol:          rol,
	}
	if err := s.store.CreateUser(ctx, u); err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}
	s.log.Infof("registered %s as %s", correo, rol)
	return u, nil
}

// Login checks the credentials and returns a fresh bearer token. Bad
// credentials always fail the same way so correos cannot be probed.
func (s *Service) Login(ctx context.Context, correo, password string) (string, *model.Participant, error) {
	u, err := s.store.GetUserByCorreo(ctx, correo)
	if err != nil {
		return "", nil, fmt.Errorf("lookup correo: %w", err)
	}
	if u == nil {
		return "", nil, fmt.Errorf("%w: invalid credentials", model.ErrValidation)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		return "", nil, fmt.Errorf("%w: invalid credentials", model.ErrValidation)
	}
	token := uuid.NewString()
	s.mu.Lock()
	s.tokens[token] = u.ID
	s.mu.Unlock()
	return token, u, nil
}

// Logout invalidates the token.
func (s *Service) Logout(token string) {
	s.mu.Lock()
	delete(s.tokens, token)
	s.mu.Unlock()
}

// Authenticate resolves a bearer token to its participant.
func (s *Service) Authenticate(ctx context.Context, token string) (*model.Participant, error) {
	s.mu.RLock()
	userID, ok := s.tokens[token]
	s.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: unknown token", model.ErrNotFound)
	}
	u, err := s.store.GetUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	if u == nil {
		return nil, fmt.Errorf("%w: user %s", model.ErrNotFound, userID)
	}
	return u, nil
}

// BearerToken extracts the token from an Authorization header value.
func BearerToken(header string) string {
	const prefix = "Bearer "
	if strings.HasPrefix(header, prefix) {
		return strings.TrimSpace(strings.TrimPrefix(header, prefix))
	}
	return ""
}
