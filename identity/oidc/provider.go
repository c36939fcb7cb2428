// Package oidc implements identity.Provider for any OpenID Connect issuer that
// allows the resource owner password grant.
package oidc

import (
	"context"
	"fmt"
	"time"

	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/jrsteele09/media-admin/identity"
	"github.com/jrsteele09/media-admin/internal/errors"
	"github.com/jrsteele09/media-admin/sessions"
	"golang.org/x/oauth2"
)

var _ identity.Provider = (*Provider)(nil)

type Config struct {
	Issuer       string
	ClientID     string
	ClientSecret string
}

type Provider struct {
	oauth2Config *oauth2.Config
	verifier     *oidc.IDTokenVerifier
}

// New runs discovery against the issuer.
func New(ctx context.Context, cfg Config) (*Provider, error) {
	if cfg.Issuer == "" || cfg.ClientID == "" {
		return nil, errors.Validation("OIDC configuration missing. Please set OIDC_ISSUER and OIDC_CLIENT_ID", "")
	}

	provider, err := oidc.NewProvider(ctx, cfg.Issuer)
	if err != nil {
		return nil, fmt.Errorf("[oidc New] failed to create OIDC provider: %w", err)
	}

	return &Provider{
		oauth2Config: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			Endpoint:     provider.Endpoint(),
			Scopes:       []string{oidc.ScopeOpenID, "profile", "email", oidc.ScopeOfflineAccess},
		},
		verifier: provider.Verifier(&oidc.Config{ClientID: cfg.ClientID}),
	}, nil
}

func (p *Provider) SignIn(ctx context.Context, email, password string) (identity.SignInResult, error) {
	token, err := p.oauth2Config.PasswordCredentialsToken(ctx, email, password)
	if err != nil {
		return identity.SignInResult{}, mapTokenError(err)
	}
	session, err := p.sessionFromToken(ctx, token, "")
	if err != nil {
		return identity.SignInResult{}, err
	}
	return identity.SignInResult{Session: &session}, nil
}

// RespondToNewPasswordChallenge is not part of OpenID Connect. Issuers that
// force a password change do it in their own UI.
func (p *Provider) RespondToNewPasswordChallenge(context.Context, identity.NewPasswordChallenge, string) (sessions.Session, error) {
	return sessions.Session{}, errors.New(errors.CodeOperationFailed, "New password challenge is not supported by this identity provider",
		errors.WithCause(errors.ErrUnsupported))
}

func (p *Provider) Refresh(ctx context.Context, refreshToken string) (sessions.Session, error) {
	expired := &oauth2.Token{RefreshToken: refreshToken, Expiry: time.Unix(1, 0)}
	token, err := p.oauth2Config.TokenSource(ctx, expired).Token()
	if err != nil {
		return sessions.Session{}, mapTokenError(err)
	}
	return p.sessionFromToken(ctx, token, refreshToken)
}

func (p *Provider) sessionFromToken(ctx context.Context, token *oauth2.Token, fallbackRefreshToken string) (sessions.Session, error) {
	rawIDToken, ok := token.Extra("id_token").(string)
	if !ok || rawIDToken == "" {
		return sessions.Session{}, errors.Unauthorized("Authentication failed: No ID token in response", "")
	}
	if _, err := p.verifier.Verify(ctx, rawIDToken); err != nil {
		return sessions.Session{}, errors.Unauthorized("Authentication failed: Invalid ID token", err.Error())
	}

	refreshToken := token.RefreshToken
	if refreshToken == "" {
		refreshToken = fallbackRefreshToken
	}

	now := sessions.NowTimeFunc()
	var expiresIn int64
	if !token.Expiry.IsZero() {
		expiresIn = int64(token.Expiry.Sub(now).Seconds())
	}
	return sessions.NewSession(token.AccessToken, rawIDToken, refreshToken, expiresIn, now), nil
}

func mapTokenError(err error) error {
	var retrieveErr *oauth2.RetrieveError
	if errors.As(err, &retrieveErr) {
		switch retrieveErr.ErrorCode {
		case "invalid_grant", "unauthorized_client", "invalid_client":
			return errors.InvalidCredentials("Incorrect email or password", retrieveErr.ErrorDescription)
		case "slow_down":
			return errors.RateLimited("Too many attempts. Please try again later.", retrieveErr.ErrorDescription)
		}
		status := 0
		if retrieveErr.Response != nil {
			status = retrieveErr.Response.StatusCode
		}
		return errors.New(errors.CodeUnknownError, "Authentication failed",
			errors.WithDetails(retrieveErr.ErrorDescription), errors.WithStatus(status), errors.WithCause(err))
	}
	return errors.Normalize(err)
}
