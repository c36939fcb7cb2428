package apiclient_test

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/jrsteele09/media-admin/apiclient"
	"github.com/jrsteele09/media-admin/internal/errors"
	"github.com/stretchr/testify/require"
)

func TestWebhookServiceTest(t *testing.T) {
	ctx := context.Background()

	client, _ := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/webhook-test", r.URL.Path)
		require.Empty(t, r.Header.Get("Authorization"))
		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		require.Equal(t, "https://hooks.example.com/in", body["webhookUrl"])
		writeJSON(w, http.StatusOK, map[string]any{"status": 204, "response": ""})
	})

	res, err := apiclient.NewWebhookService(client).Test(ctx, " https://hooks.example.com/in ")
	require.NoError(t, err)
	require.Equal(t, 204, res.Status)
	require.True(t, res.OK())

	t.Run("transport failure reported by the server", func(t *testing.T) {
		client, _ := newServer(t, func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusOK, map[string]any{"status": 0, "response": nil, "error": "dial tcp: refused"})
		})
		res, err := apiclient.NewWebhookService(client).Test(ctx, "https://down.example.com")
		require.NoError(t, err)
		require.False(t, res.OK())
		require.Equal(t, "dial tcp: refused", res.Error)
	})

	t.Run("invalid url", func(t *testing.T) {
		client, calls := newServer(t, func(w http.ResponseWriter, r *http.Request) {})
		for _, u := range []string{"", "not a url", "/relative"} {
			_, err := apiclient.NewWebhookService(client).Test(ctx, u)
			require.EqualError(t, err, "Must be a valid URL")
		}
		require.Zero(t, calls.Load())
	})

	t.Run("server rejection surfaces details", func(t *testing.T) {
		client, _ := newServer(t, func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Invalid request", "details": "webhookUrl must use http or https"})
		})
		_, err := apiclient.NewWebhookService(client).Test(ctx, "ftp://files.example.com")
		require.EqualError(t, err, "webhookUrl must use http or https")
		require.Equal(t, errors.CodeValidationError, errors.CodeOf(err))
	})
}
