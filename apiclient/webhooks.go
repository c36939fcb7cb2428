package apiclient

import (
	"context"
	"encoding/json"
	"net/url"
	"strings"

	"github.com/jrsteele09/media-admin/httpclient"
	"github.com/jrsteele09/media-admin/internal/errors"
)

const webhookTestEndpoint = "/api/webhook-test"

// WebhookResult is what the server saw when it called the webhook.
type WebhookResult struct {
	Status   int             `json:"status"`
	Response json.RawMessage `json:"response,omitempty"`
	Error    string          `json:"error,omitempty"`
}

func (r WebhookResult) OK() bool {
	return r.Status >= 200 && r.Status < 300 && r.Error == ""
}

type WebhookService struct {
	client *httpclient.Client
}

func NewWebhookService(client *httpclient.Client) *WebhookService {
	return &WebhookService{client: client}
}

// Test asks the server to POST an empty JSON object to webhookURL.
func (s *WebhookService) Test(ctx context.Context, webhookURL string) (*WebhookResult, error) {
	webhookURL = strings.TrimSpace(webhookURL)
	if u, err := url.ParseRequestURI(webhookURL); err != nil || u.Host == "" {
		return nil, errors.Validation("Must be a valid URL", "")
	}

	var out WebhookResult
	body := map[string]string{"webhookUrl": webhookURL}
	if err := s.client.PostUnauthenticated(ctx, webhookTestEndpoint, body, &out); err != nil {
		appErr := errors.Normalize(err)
		message := appErr.Details
		if message == "" {
			message = orMessage(appErr, "Webhook test failed")
		}
		return nil, errors.New(appErr.Code, message, errors.WithStatus(appErr.StatusCode), errors.WithCause(appErr))
	}
	return &out, nil
}

func orMessage(appErr *errors.AppError, fallback string) string {
	if appErr.Message != "" {
		return appErr.Message
	}
	return fallback
}
