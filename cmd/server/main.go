package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"runtime/debug"
	"syscall"
	"time"

	"github.com/common-nighthawk/go-figure"
	"github.com/jrsteele09/media-admin/identity/verify"
	"github.com/jrsteele09/media-admin/internal/config"
	"github.com/jrsteele09/media-admin/internal/logging"
	"github.com/jrsteele09/media-admin/internal/metrics"
	"github.com/jrsteele09/media-admin/projects"
	"github.com/jrsteele09/media-admin/projects/badgerstore"
	"github.com/jrsteele09/media-admin/server"
	"github.com/jrsteele09/media-admin/webhook"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	if err := run(); err != nil {
		log.Fatal().Err(err).Msg("Error running server")
	}
	log.Info().Msg("Server stopped")
}

func run() (returnError error) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Bytes("stack", debug.Stack()).Msg("Recovered from panic")
			returnError = errors.New("panic recovered")
		}
	}()

	c, err := config.Load()
	if err != nil {
		return fmt.Errorf("config.Load: %w", err)
	}
	logger := logging.Setup(os.Stdout, c.GetEnv(), c.GetLogLevel())
	displayAppname(c.GetAppName())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := openStore(c, logger)
	if err != nil {
		return err
	}
	defer store.Close()

	repo, err := projects.NewRepository(c.GetProjectsTable(), store)
	if err != nil {
		return fmt.Errorf("projects.NewRepository: %w", err)
	}

	verifier, err := newVerifier(ctx, c)
	if err != nil {
		return err
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	recorder := metrics.NewCollector(reg)

	handler, err := server.New(c, server.Deps{
		Projects: projects.NewService(repo),
		Verifier: verifier,
		Webhooks: webhook.NewTester(c.GetWebhookTimeout(), webhook.WithMetrics(recorder)),
		Metrics:  recorder,
		Gatherer: reg,
	})
	if err != nil {
		return err
	}
	defer handler.Close()

	srv := &http.Server{Addr: c.GetPort(), Handler: handler, ReadHeaderTimeout: 10 * time.Second}
	errCh := make(chan error, 1)
	go func() { errCh <- listenAndServe(srv) }()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	return shutdown(srv)
}

func openStore(c config.Config, logger zerolog.Logger) (*badgerstore.Store, error) {
	cfg := badgerstore.Config{
		Path:     filepath.Join(c.GetDataFolder(), "projects"),
		InMemory: c.GetStoreBackend() == "memory" || c.GetStoreInMemory(),
		Logger:   &logger,
	}
	store, err := badgerstore.Open(cfg)
	if err != nil {
		return nil, fmt.Errorf("badgerstore.Open: %w", err)
	}
	if cfg.InMemory {
		log.Warn().Msg("Projects are held in memory and will not survive a restart")
	}
	return store, nil
}

// newVerifier checks signatures when an issuer is configured and otherwise
// only decodes tokens.
func newVerifier(ctx context.Context, c config.Config) (verify.Verifier, error) {
	if issuer := c.GetOIDCIssuer(); issuer != "" {
		v, err := verify.NewOIDCVerifier(ctx, issuer, c.GetOIDCClientID())
		if err != nil {
			return nil, fmt.Errorf("verify.NewOIDCVerifier: %w", err)
		}
		return v, nil
	}
	log.Warn().Msg("OIDC_ISSUER is not set; bearer tokens are decoded without signature verification")
	return verify.UnverifiedDecoder{}, nil
}

func listenAndServe(server *http.Server) error {
	log.Info().Str("addr", server.Addr).Msg("Server listening")
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server.ListenAndServe %w", err)
	}
	return nil
}

func shutdown(server *http.Server) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server.Shutdown: %w", err)
	}
	return nil
}

func displayAppname(appname string) {
	myFigure := figure.NewFigure(appname, "cybermedium", true)
	myFigure.Print()
	fmt.Println()
}
