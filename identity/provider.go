// Package identity defines the identity provider contract used by the panel
// to sign in, answer the new-password challenge and refresh sessions.
package identity

import (
	"context"

	"github.com/jrsteele09/media-admin/sessions"
)

// NewPasswordChallenge is returned by SignIn when the account must set a new
// password before a session is issued.
type NewPasswordChallenge struct {
	Session string `json:"session"`
	Email   string `json:"email"`
}

// SignInResult holds exactly one of Session or Challenge.
type SignInResult struct {
	Session   *sessions.Session
	Challenge *NewPasswordChallenge
}

type Provider interface {
	SignIn(ctx context.Context, email, password string) (SignInResult, error)
	RespondToNewPasswordChallenge(ctx context.Context, challenge NewPasswordChallenge, newPassword string) (sessions.Session, error)
	Refresh(ctx context.Context, refreshToken string) (sessions.Session, error)
}
