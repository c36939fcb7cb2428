package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func setupPanelEnv(t *testing.T, apiURL string) {
	t.Helper()
	t.Setenv("API_BASE_URL", apiURL)
	t.Setenv("SESSION_FILE", filepath.Join(t.TempDir(), "session"))
	t.Setenv("SESSION_PASSPHRASE", "test-passphrase")
	t.Setenv("IDENTITY_PROVIDER", "cognito")
	t.Setenv("USER_POOL_ID", "eu-west-2_test")
	t.Setenv("USER_POOL_CLIENT_ID", "client")
	t.Setenv("COGNITO_ENDPOINT", apiURL)
	t.Setenv("HTTP_MAX_RETRIES", "0")
}

func runPanel(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	err := execute(context.Background(), args, &stdout, &stderr)
	return stdout.String(), stderr.String(), err
}

func TestWhoamiWithoutSession(t *testing.T) {
	setupPanelEnv(t, "http://127.0.0.1:1")

	stdout, _, err := runPanel(t, "whoami")
	require.NoError(t, err)
	require.Equal(t, "Not signed in.\n", stdout)
}

func TestProjectsListRequiresLogin(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
	}))
	defer srv.Close()
	setupPanelEnv(t, srv.URL)

	_, stderr, err := runPanel(t, "projects", "list")
	require.Error(t, err)
	require.Contains(t, stderr, "SESSION_EXPIRED")
	require.Zero(t, calls)
}

func TestWebhookTestCommand(t *testing.T) {
	var got map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/webhook-test", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":200,"response":{"received":true}}`))
	}))
	defer srv.Close()
	setupPanelEnv(t, srv.URL)

	stdout, _, err := runPanel(t, "webhook", "test", "  https://hooks.example.com/in  ")
	require.NoError(t, err)
	require.Equal(t, "https://hooks.example.com/in", got["webhookUrl"])
	require.Contains(t, stdout, "Webhook responded with status 200")
	require.Contains(t, stdout, `{"received":true}`)
}

func TestWebhookTestRejectsInvalidURL(t *testing.T) {
	setupPanelEnv(t, "http://127.0.0.1:1")

	_, stderr, err := runPanel(t, "webhook", "test", "not a url")
	require.Error(t, err)
	require.Contains(t, stderr, "Error [VALIDATION_ERROR]: Must be a valid URL")
}

func TestPlaybackRequiresAPIKey(t *testing.T) {
	setupPanelEnv(t, "http://127.0.0.1:1")

	_, stderr, err := runPanel(t, "playback", "test", "videos/intro/master.m3u8")
	require.Error(t, err)
	require.Contains(t, stderr, "API key is required")
}
