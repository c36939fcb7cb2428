package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/jrsteele09/media-admin/apiclient"
	"github.com/jrsteele09/media-admin/httpclient"
	"github.com/jrsteele09/media-admin/identity"
	"github.com/jrsteele09/media-admin/identity/cognito"
	"github.com/jrsteele09/media-admin/identity/oidc"
	"github.com/jrsteele09/media-admin/internal/config"
	"github.com/jrsteele09/media-admin/internal/errors"
	"github.com/jrsteele09/media-admin/internal/logging"
	"github.com/jrsteele09/media-admin/playback"
	"github.com/jrsteele09/media-admin/sessions"
	"github.com/jrsteele09/media-admin/sessions/refresh"
	"github.com/jrsteele09/media-admin/signedurl"
	"github.com/jrsteele09/media-admin/uploads"
)

// app holds the services a command needs. Everything is built lazily from
// the loaded config so commands that never touch the identity provider do
// not need it configured.
type app struct {
	config     config.Config
	api        *httpclient.Client
	controller *refresh.Controller
	closers    []func() error
}

func newApp(envFile string) (*app, error) {
	var files []string
	if envFile != "" {
		files = append(files, envFile)
	}
	c, err := config.Load(files...)
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}
	logging.Setup(os.Stderr, c.GetEnv(), c.GetLogLevel())

	api := httpclient.New(c.GetAPIBaseURL(),
		httpclient.WithMaxRetries(c.GetMaxRetries()),
		httpclient.WithRetryDelay(c.GetRetryDelay()),
	)
	return &app{config: c, api: api}, nil
}

func (a *app) Close() {
	if a.controller != nil {
		a.controller.Stop()
	}
	for _, closer := range a.closers {
		_ = closer()
	}
}

// sessionController starts the refresh controller over the file store. The
// persisted session, if any, is loaded and refreshed when close to expiry.
func (a *app) sessionController(ctx context.Context) (*refresh.Controller, error) {
	if a.controller != nil {
		return a.controller, nil
	}
	provider, err := a.identityProvider(ctx)
	if err != nil {
		return nil, err
	}
	store := sessions.NewFileStore(a.config.GetSessionFile(), a.config.GetSessionPassphrase())
	controller := refresh.NewController(store, provider,
		refresh.WithThreshold(a.config.GetRefreshThreshold()),
		refresh.WithInterval(a.config.GetRefreshInterval()),
	)
	if err := controller.Start(ctx); err != nil {
		return nil, err
	}
	a.controller = controller
	return controller, nil
}

func (a *app) identityProvider(ctx context.Context) (identity.Provider, error) {
	switch a.config.GetIdentityProvider() {
	case "oidc":
		provider, err := oidc.New(ctx, oidc.Config{
			Issuer:       a.config.GetOIDCIssuer(),
			ClientID:     a.config.GetOIDCClientID(),
			ClientSecret: a.config.GetOIDCClientSecret(),
		})
		if err != nil {
			return nil, err
		}
		return provider, nil
	case "cognito", "":
		return cognito.New(cognito.Config{
			Endpoint:   a.config.GetCognitoEndpoint(),
			Region:     a.config.GetRegion(),
			UserPoolID: a.config.GetUserPoolID(),
			ClientID:   a.config.GetUserPoolClientID(),
		}, nil), nil
	default:
		return nil, errors.Validation(fmt.Sprintf("Unknown identity provider %q", a.config.GetIdentityProvider()), "")
	}
}

// idToken returns the bearer token of the current session or a
// SESSION_EXPIRED error when nobody is signed in.
func (a *app) idToken(ctx context.Context) (string, error) {
	controller, err := a.sessionController(ctx)
	if err != nil {
		return "", err
	}
	token := controller.IDToken()
	if token == "" {
		return "", errors.New(errors.CodeSessionExpired, "Not signed in. Run 'panel login' first.", errors.WithStatus(http.StatusUnauthorized))
	}
	return token, nil
}

func (a *app) projects() *apiclient.ProjectService {
	return apiclient.NewProjectService(a.api)
}

func (a *app) webhooks() *apiclient.WebhookService {
	return apiclient.NewWebhookService(a.api)
}

func (a *app) uploader(ctx context.Context) (*uploads.Uploader, error) {
	var presigner uploads.Presigner
	switch a.config.GetUploadBackend() {
	case "gcs":
		gcs, closeFn, err := uploads.NewGCSPresigner(ctx, a.config.GetGCSBucket(), a.config.GetGCSCredentialsFile())
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, closeFn)
		presigner = gcs
	default:
		presigner = uploads.NewPlatformPresigner(a.api, a.config.GetUploadPresignEndpoint())
	}
	return uploads.NewUploader(presigner, nil), nil
}

func (a *app) leaseManager() *signedurl.Manager {
	m := signedurl.NewManager(
		signedurl.WithEndpoint(a.config.GetSignedURLEndpoint()),
		signedurl.WithRenewalBuffer(a.config.GetLeaseRenewalBuffer()),
		signedurl.WithDefaultLifetime(a.config.GetDefaultLeaseLifetime()),
	)
	a.closers = append(a.closers, func() error {
		m.Close()
		return nil
	})
	return m
}

func (a *app) checker() *playback.Checker {
	return playback.NewChecker(&http.Client{Timeout: 30 * time.Second})
}
