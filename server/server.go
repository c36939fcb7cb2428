package server

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/jrsteele09/media-admin/identity/verify"
	"github.com/jrsteele09/media-admin/internal/config"
	"github.com/jrsteele09/media-admin/internal/metrics"
	"github.com/jrsteele09/media-admin/projects"
	"github.com/jrsteele09/media-admin/webhook"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog/log"
)

// Deps are the collaborators the HTTP surface delegates to.
type Deps struct {
	Projects *projects.Service
	Verifier verify.Verifier
	Webhooks *webhook.Tester
	Metrics  metrics.Recorder
	// Gatherer backs GET /metrics. Nil disables the route.
	Gatherer prometheus.Gatherer
}

type Server struct {
	env     string // Environment (e.g., "DEV", "PROD")
	mux     *http.ServeMux
	routes  []string
	config  config.Config
	deps    Deps
	limiter *RateLimiter
}

func New(config config.Config, deps Deps) (*Server, error) {
	if deps.Projects == nil {
		return nil, fmt.Errorf("[Server New] project service is required")
	}
	if deps.Verifier == nil {
		return nil, fmt.Errorf("[Server New] token verifier is required")
	}
	if deps.Webhooks == nil {
		deps.Webhooks = webhook.NewTester(config.GetWebhookTimeout())
	}
	if deps.Metrics == nil {
		deps.Metrics = metrics.Nop{}
	}

	s := &Server{
		env:    config.GetEnv(),
		mux:    http.NewServeMux(),
		config: config,
		deps:   deps,
	}
	if config.GetEnableRateLimiting() {
		s.limiter = NewRateLimiter(config.GetRateLimitPerSecond(), config.GetRateLimitBurst())
	}

	s.initRoutes()
	s.logRoutes()

	return s, nil
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

// Close releases background resources. The server must not be used afterwards.
func (s *Server) Close() {
	if s.limiter != nil {
		s.limiter.Stop()
	}
}

func (s *Server) RegisterRouteHandler(pattern string, handler http.Handler) {
	s.routes = append(s.routes, pattern)
	s.mux.Handle(pattern, handler)
}

func (s *Server) RegisterRouteFunc(pattern string, handler func(http.ResponseWriter, *http.Request)) {
	s.routes = append(s.routes, pattern)
	s.mux.HandleFunc(pattern, handler)
}

func (s *Server) logRoutes() {
	if s.env != "DEV" {
		return
	}
	for _, route := range s.routes {
		parts := strings.SplitN(route, " ", 2)

		if len(parts) > 1 {
			logRoute(parts[0], parts[1])
		} else {
			logRoute("", parts[0])
		}
	}
}

func logRoute(method, path string) {
	var displayMethod string
	paddedMethod := fmt.Sprintf(" %-7s", method)
	if color, ok := methodColors[method]; ok {
		displayMethod = color + paddedMethod + ResetColor
	} else {
		displayMethod = Gray + paddedMethod + ResetColor
	}
	log.Debug().Msgf("[%-19s] %s", displayMethod, path)
}
