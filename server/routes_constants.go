package server

// Route path constants
const (
	// API Routes
	RouteAPI          = "/api/"
	RouteProjects     = "/api/projects"
	RouteProject      = "/api/projects/{projectId}"
	RouteProjectBlank = "/api/projects/{$}"
	RouteWebhookTest  = "/api/webhook-test"

	// Operational Routes
	RouteHealth  = "/healthz"
	RouteMetrics = "/metrics"
)
