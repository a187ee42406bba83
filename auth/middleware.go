package auth

import (
	"context"
	"net/http"

	"github.com/ecovalle/recolecta/core/model"
)

type contextKey struct{}

// ParticipantFrom returns the authenticated participant stored in the request
// context, or nil outside an authenticated handler.
func ParticipantFrom(ctx context.Context) *model.Participant {
	u, _ := ctx.Value(contextKey{}).(*model.Participant)
	return u
}

// Middleware authenticates the bearer token and injects the participant into
// the request context. Requests without a valid token get 401.
func (s *Service) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := BearerToken(r.Header.Get("Authorization"))
		if token == "" {
			http.Error(w, `{"error":"authorization required"}`, http.StatusUnauthorized)
			return
		}
		u, err := s.Authenticate(r.Context(), token)
		if err != nil {
			http.Error(w, `{"error":"invalid token"}`, http.StatusUnauthorized)
			return
		}
		ctx := context.WithValue(r.Context(), contextKey{}, u)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireRole rejects authenticated requests whose participant holds none of
// the given roles.
func RequireRole(next http.Handler, roles ...model.Role) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		u := ParticipantFrom(r.Context())
		if u == nil {
			http.Error(w, `{"error":"authorization required"}`, http.StatusUnauthorized)
			return
		}
		for _, rol := range roles {
			if u.Rol == rol {
				next.ServeHTTP(w, r)
				return
			}
		}
		http.Error(w, `{"error":"forbidden"}`, http.StatusForbidden)
	})
}
