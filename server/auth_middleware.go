package server

import (
	"context"
	"net/http"
	"strings"

	"github.com/jrsteele09/media-admin/internal/errors"
	"github.com/jrsteele09/media-admin/sessions"
	"github.com/rs/zerolog/log"
)

// ContextKey is a custom type for context keys to avoid collisions
type ContextKey string

// ContextKeyUser stores the authenticated *sessions.User
const ContextKeyUser ContextKey = "user"

const (
	msgNoToken      = "Unauthorized: No token provided"
	msgInvalidToken = "Unauthorized: Invalid or expired token"
)

// RequireAuth is middleware that validates a Bearer ID token
func (s *Server) RequireAuth() func(http.HandlerFunc) http.HandlerFunc {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			token, ok := bearerToken(r)
			if !ok {
				writeError(w, r, errors.Unauthorized(msgNoToken, ""))
				return
			}

			user, err := s.deps.Verifier.Verify(r.Context(), token)
			if err != nil || user == nil {
				log.Ctx(r.Context()).Debug().Err(err).Msg("bearer token rejected")
				writeError(w, r, errors.Unauthorized(msgInvalidToken, ""))
				return
			}

			next(w, r.WithContext(context.WithValue(r.Context(), ContextKeyUser, user)))
		}
	}
}

// UserFromContext returns the user RequireAuth attached, if any.
func UserFromContext(ctx context.Context) (*sessions.User, bool) {
	user, ok := ctx.Value(ContextKeyUser).(*sessions.User)
	return user, ok
}

func bearerToken(r *http.Request) (string, bool) {
	authHeader := r.Header.Get("Authorization")
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
		return "", false
	}
	token := strings.TrimSpace(parts[1])
	return token, token != ""
}
