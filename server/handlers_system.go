package server

import "net/http"

type webhookTestRequest struct {
	WebhookURL string `json:"webhookUrl"`
}

// WebhookTestHandler calls the given webhook and reports what it answered.
// Unreachable receivers are reported in the body with a 200.
func (s *Server) WebhookTestHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req webhookTestRequest
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, r, err)
			return
		}

		result, err := s.deps.Webhooks.Test(r.Context(), req.WebhookURL)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, result)
	}
}

func (s *Server) HealthHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}
