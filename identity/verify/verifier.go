// Package verify turns a bearer token presented to the API into a user.
package verify

import (
	"context"
	"fmt"
	"net/http"

	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/jrsteele09/media-admin/internal/errors"
	"github.com/jrsteele09/media-admin/sessions"
)

const invalidTokenMessage = "Unauthorized: Invalid or expired token"

type Verifier interface {
	Verify(ctx context.Context, token string) (*sessions.User, error)
}

// UnverifiedDecoder only decodes the token payload and checks exp. Use it
// behind a gateway that has already validated the signature.
type UnverifiedDecoder struct{}

var _ Verifier = UnverifiedDecoder{}

func (UnverifiedDecoder) Verify(_ context.Context, token string) (*sessions.User, error) {
	user := sessions.UserFromIDToken(token, sessions.NowTimeFunc())
	if user == nil {
		return nil, invalidToken(errors.Wrapf(errors.ErrInvalidToken, "[UnverifiedDecoder Verify] undecodable or expired token"))
	}
	return user, nil
}

// OIDCVerifier checks signature, issuer, audience and expiry against the
// issuer's published keys.
type OIDCVerifier struct {
	verifier *oidc.IDTokenVerifier
}

var _ Verifier = (*OIDCVerifier)(nil)

func NewOIDCVerifier(ctx context.Context, issuer, clientID string) (*OIDCVerifier, error) {
	provider, err := oidc.NewProvider(ctx, issuer)
	if err != nil {
		return nil, fmt.Errorf("[verify NewOIDCVerifier] failed to create OIDC provider: %w", err)
	}
	return &OIDCVerifier{verifier: provider.Verifier(&oidc.Config{ClientID: clientID})}, nil
}

func (v *OIDCVerifier) Verify(ctx context.Context, token string) (*sessions.User, error) {
	idToken, err := v.verifier.Verify(ctx, token)
	if err != nil {
		return nil, invalidToken(errors.Wrapf(errors.ErrInvalidToken, "[OIDCVerifier Verify] %s", err.Error()))
	}

	var claims struct {
		Sub             string `json:"sub"`
		Email           string `json:"email"`
		CognitoUsername string `json:"cognito:username"`
	}
	if err := idToken.Claims(&claims); err != nil {
		return nil, invalidToken(errors.Wrapf(errors.ErrInvalidToken, "[OIDCVerifier Verify] claims: %s", err.Error()))
	}
	email := claims.Email
	if email == "" {
		email = claims.CognitoUsername
	}
	return &sessions.User{Email: email, Subject: claims.Sub}, nil
}

// invalidToken keeps the reason as the cause while the message stays generic.
func invalidToken(cause error) error {
	return errors.New(errors.CodeUnauthorized, invalidTokenMessage,
		errors.WithStatus(http.StatusUnauthorized), errors.WithCause(cause))
}
