package cognito_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/jrsteele09/media-admin/identity"
	"github.com/jrsteele09/media-admin/identity/cognito"
	"github.com/jrsteele09/media-admin/internal/errors"
	"github.com/jrsteele09/media-admin/sessions"
	"github.com/stretchr/testify/require"
)

type fakePool struct {
	t       *testing.T
	handler func(target string, body map[string]any) (int, any)
}

func (p *fakePool) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	require.Equal(p.t, "application/x-amz-json-1.1", r.Header.Get("Content-Type"))
	var body map[string]any
	require.NoError(p.t, json.NewDecoder(r.Body).Decode(&body))
	status, resp := p.handler(r.Header.Get("X-Amz-Target"), body)
	w.Header().Set("Content-Type", "application/x-amz-json-1.1")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(resp)
}

func newClient(t *testing.T, handler func(target string, body map[string]any) (int, any)) *cognito.Client {
	t.Helper()
	srv := httptest.NewServer(&fakePool{t: t, handler: handler})
	t.Cleanup(srv.Close)
	return cognito.New(cognito.Config{Endpoint: srv.URL, UserPoolID: "pool", ClientID: "client"}, srv.Client())
}

func freezeTime(t *testing.T, now time.Time) {
	prev := sessions.NowTimeFunc
	sessions.NowTimeFunc = func() time.Time { return now }
	t.Cleanup(func() { sessions.NowTimeFunc = prev })
}

func TestSignIn(t *testing.T) {
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	freezeTime(t, now)

	t.Run("issues a session", func(t *testing.T) {
		c := newClient(t, func(target string, body map[string]any) (int, any) {
			require.Equal(t, "AWSCognitoIdentityProviderService.InitiateAuth", target)
			require.Equal(t, "USER_PASSWORD_AUTH", body["AuthFlow"])
			require.Equal(t, "client", body["ClientId"])
			params := body["AuthParameters"].(map[string]any)
			require.Equal(t, "a@example.com", params["USERNAME"])
			return http.StatusOK, map[string]any{"AuthenticationResult": map[string]any{
				"AccessToken": "acc", "IdToken": "id", "RefreshToken": "ref", "ExpiresIn": 600,
			}}
		})
		res, err := c.SignIn(context.Background(), "a@example.com", "pw")
		require.NoError(t, err)
		require.Nil(t, res.Challenge)
		require.Equal(t, "ref", res.Session.RefreshToken)
		require.Equal(t, now.Add(10*time.Minute), res.Session.ExpiresAt)
	})

	t.Run("new password challenge", func(t *testing.T) {
		c := newClient(t, func(string, map[string]any) (int, any) {
			return http.StatusOK, map[string]any{
				"ChallengeName":       "NEW_PASSWORD_REQUIRED",
				"Session":             "challenge-session",
				"ChallengeParameters": map[string]any{"USERNAME": "user-123"},
			}
		})
		res, err := c.SignIn(context.Background(), "a@example.com", "pw")
		require.NoError(t, err)
		require.Nil(t, res.Session)
		require.Equal(t, &identity.NewPasswordChallenge{Session: "challenge-session", Email: "user-123"}, res.Challenge)
	})

	t.Run("wrong password", func(t *testing.T) {
		c := newClient(t, func(string, map[string]any) (int, any) {
			return http.StatusBadRequest, map[string]any{"__type": "NotAuthorizedException", "message": "Incorrect username or password."}
		})
		_, err := c.SignIn(context.Background(), "a@example.com", "pw")
		require.EqualError(t, err, "Incorrect email or password")
		require.Equal(t, errors.CodeInvalidCredentials, errors.CodeOf(err))
	})

	t.Run("namespaced error types", func(t *testing.T) {
		c := newClient(t, func(string, map[string]any) (int, any) {
			return http.StatusBadRequest, map[string]any{"__type": "com.amazonaws.cognito#TooManyRequestsException"}
		})
		_, err := c.SignIn(context.Background(), "a@example.com", "pw")
		require.Equal(t, errors.CodeRateLimitExceeded, errors.CodeOf(err))
	})

	t.Run("other service errors keep their message and status", func(t *testing.T) {
		c := newClient(t, func(string, map[string]any) (int, any) {
			return http.StatusBadRequest, map[string]any{"__type": "ResourceNotFoundException", "message": "User pool client does not exist."}
		})
		_, err := c.SignIn(context.Background(), "a@example.com", "pw")
		appErr := errors.Normalize(err)
		require.Equal(t, errors.CodeUnknownError, appErr.Code)
		require.Equal(t, "User pool client does not exist.", appErr.Message)
		require.Equal(t, http.StatusBadRequest, appErr.StatusCode)
	})

	t.Run("unreachable pool is a network error", func(t *testing.T) {
		srv := httptest.NewServer(http.NotFoundHandler())
		srv.Close()
		c := cognito.New(cognito.Config{Endpoint: srv.URL, UserPoolID: "pool", ClientID: "client"}, nil)
		_, err := c.SignIn(context.Background(), "a@example.com", "pw")
		require.Equal(t, errors.CodeNetworkError, errors.CodeOf(err))
	})

	t.Run("missing config fails before any call", func(t *testing.T) {
		c := cognito.New(cognito.Config{Endpoint: "http://127.0.0.1:1"}, nil)
		_, err := c.SignIn(context.Background(), "a@example.com", "pw")
		require.Equal(t, errors.CodeValidationError, errors.CodeOf(err))
	})
}

func TestRespondToNewPasswordChallenge(t *testing.T) {
	c := newClient(t, func(target string, body map[string]any) (int, any) {
		require.Equal(t, "AWSCognitoIdentityProviderService.RespondToAuthChallenge", target)
		require.Equal(t, "challenge-session", body["Session"])
		responses := body["ChallengeResponses"].(map[string]any)
		require.Equal(t, "Newpass1!", responses["NEW_PASSWORD"])
		return http.StatusOK, map[string]any{"AuthenticationResult": map[string]any{
			"AccessToken": "acc", "IdToken": "id", "RefreshToken": "ref",
		}}
	})
	session, err := c.RespondToNewPasswordChallenge(context.Background(),
		identity.NewPasswordChallenge{Session: "challenge-session", Email: "a@example.com"}, "Newpass1!")
	require.NoError(t, err)
	require.Equal(t, "acc", session.AccessToken)
}

func TestRefreshKeepsRefreshToken(t *testing.T) {
	c := newClient(t, func(target string, body map[string]any) (int, any) {
		require.Equal(t, "REFRESH_TOKEN_AUTH", body["AuthFlow"])
		return http.StatusOK, map[string]any{"AuthenticationResult": map[string]any{
			"AccessToken": "acc2", "IdToken": "id2", "ExpiresIn": 3600,
		}}
	})
	session, err := c.Refresh(context.Background(), "ref-original")
	require.NoError(t, err)
	require.Equal(t, "acc2", session.AccessToken)
	require.Equal(t, "ref-original", session.RefreshToken)
}
