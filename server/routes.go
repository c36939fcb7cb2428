package server

import (
	"net/http"

	"github.com/jrsteele09/media-admin/internal/metrics"
)

func (s *Server) initRoutes() {
	// Projects (bearer auth)
	s.RegisterRouteHandler("GET "+RouteProjects, ChainMiddleware(s.ListProjectsHandler(), s.APIMiddleware(s.RequireAuth())...))
	s.RegisterRouteHandler("POST "+RouteProjects, ChainMiddleware(s.CreateProjectHandler(), s.APIMiddleware(s.RequireAuth())...))
	s.RegisterRouteHandler("DELETE "+RouteProject, ChainMiddleware(s.DeleteProjectHandler(), s.APIMiddleware(s.RequireAuth())...))
	s.RegisterRouteHandler("DELETE "+RouteProjectBlank, ChainMiddleware(s.DeleteProjectHandler(), s.APIMiddleware(s.RequireAuth())...))

	s.RegisterRouteHandler("POST "+RouteWebhookTest, ChainMiddleware(s.WebhookTestHandler(), s.APIMiddleware()...))

	// CORS preflight for every API route; CorsMiddleware answers it.
	s.RegisterRouteHandler("OPTIONS "+RouteAPI, ChainMiddleware(func(http.ResponseWriter, *http.Request) {}, s.APIMiddleware()...))

	s.RegisterRouteHandler("GET "+RouteHealth, ChainMiddleware(s.HealthHandler(), s.StdMiddleware()...))
	if s.deps.Gatherer != nil {
		s.RegisterRouteHandler("GET "+RouteMetrics, metrics.Handler(s.deps.Gatherer))
	}
}
