package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/sirupsen/logrus"

	"github.com/anavel898/project-management-dashboard/internal/authz"
)

// DefaultPublicPaths bypass authentication.
var DefaultPublicPaths = []string{"/", "/login", "/auth", "/join", "/docs", "/openapi.yaml", "/health", "/metrics"}

// ContextBuilder resolves an Authorization header into an authz.Context.
type ContextBuilder interface {
	Build(ctx context.Context, authorization string) (*authz.Context, error)
}

// RequireAuth is middleware that builds the request's authorization
// context from its bearer token and attaches it to the request context.
// Requests for publicPaths pass through untouched.
func RequireAuth(builder ContextBuilder, publicPaths []string, log logrus.FieldLogger) func(http.Handler) http.Handler {
	public := make(map[string]bool, len(publicPaths))
	for _, p := range publicPaths {
		public[p] = true
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if public[r.URL.Path] || r.Method == http.MethodOptions {
				next.ServeHTTP(w, r)
				return
			}

			authCtx, err := builder.Build(r.Context(), r.Header.Get("Authorization"))
			if err != nil {
				status, detail := authFailure(err)
				if status == http.StatusInternalServerError {
					log.WithError(err).WithField("path", r.URL.Path).Error("failed to build authorization context")
				} else {
					w.Header().Set("WWW-Authenticate", "Bearer")
				}
				writeDetail(w, status, detail)
				return
			}

			next.ServeHTTP(w, r.WithContext(authz.WithContext(r.Context(), authCtx)))
		})
	}
}

func authFailure(err error) (int, string) {
	switch {
	case errors.Is(err, authz.ErrMissingToken):
		return http.StatusUnauthorized, "Not authenticated"
	case errors.Is(err, authz.ErrExpiredToken):
		return http.StatusUnauthorized, "Token expired"
	case errors.Is(err, authz.ErrInvalidToken):
		return http.StatusUnauthorized, "Could not validate credentials"
	case errors.Is(err, authz.ErrUnknownUser):
		return http.StatusUnauthorized, "User not found"
	default:
		return http.StatusInternalServerError, "Internal server error"
	}
}

// writeJSON writes a JSON response
func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeDetail(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, map[string]string{"detail": detail})
}
