// Package oidctest runs an in-process OpenID Connect issuer for tests. It
// supports discovery, JWKS and the password and refresh_token grants.
package oidctest

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const ClientID = "media-admin-test"

type User struct {
	Email    string
	Password string
	Subject  string
}

// Issuer is a running test issuer. URL is the issuer identifier.
type Issuer struct {
	URL      string
	Keys     *KeyPair
	TokenTTL time.Duration

	server        *httptest.Server
	users         map[string]User
	refreshTokens map[string]string // refresh token -> email
	lock          sync.Mutex
	tokenCalls    int
}

func NewIssuer(t *testing.T) *Issuer {
	t.Helper()
	kp, err := GenerateRSAKeyPair("test-key")
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}

	iss := &Issuer{
		Keys:          kp,
		TokenTTL:      time.Hour,
		users:         make(map[string]User),
		refreshTokens: make(map[string]string),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /.well-known/openid-configuration", iss.discovery)
	mux.HandleFunc("GET /jwks", iss.jwks)
	mux.HandleFunc("POST /token", iss.token)
	iss.server = httptest.NewServer(mux)
	iss.URL = iss.server.URL
	t.Cleanup(iss.server.Close)
	return iss
}

func (i *Issuer) AddUser(u User) {
	i.lock.Lock()
	defer i.lock.Unlock()
	i.users[u.Email] = u
}

// TokenCalls is the number of requests served by the token endpoint.
func (i *Issuer) TokenCalls() int {
	i.lock.Lock()
	defer i.lock.Unlock()
	return i.tokenCalls
}

// IDToken issues a signed id token for u valid for ttl from now.
func (i *Issuer) IDToken(u User, ttl time.Duration) (string, error) {
	now := time.Now()
	return i.Keys.Sign(jwt.MapClaims{
		"iss":   i.URL,
		"sub":   u.Subject,
		"aud":   ClientID,
		"email": u.Email,
		"iat":   now.Unix(),
		"exp":   now.Add(ttl).Unix(),
		"jti":   uuid.New().String(),
	})
}

func (i *Issuer) discovery(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"issuer":                                i.URL,
		"authorization_endpoint":                i.URL + "/authorize",
		"token_endpoint":                        i.URL + "/token",
		"jwks_uri":                              i.URL + "/jwks",
		"response_types_supported":              []string{"code"},
		"subject_types_supported":               []string{"public"},
		"id_token_signing_alg_values_supported": []string{"RS256"},
	})
}

func (i *Issuer) jwks(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, JWKS{Keys: []JWK{i.Keys.ToJWK()}})
}

func (i *Issuer) token(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid_request"})
		return
	}

	i.lock.Lock()
	i.tokenCalls++
	var user User
	var ok bool
	switch r.PostForm.Get("grant_type") {
	case "password":
		user, ok = i.users[r.PostForm.Get("username")]
		ok = ok && user.Password == r.PostForm.Get("password")
	case "refresh_token":
		var email string
		if email, ok = i.refreshTokens[r.PostForm.Get("refresh_token")]; ok {
			user, ok = i.users[email]
		}
	}
	refreshToken := uuid.New().String()
	if ok {
		i.refreshTokens[refreshToken] = user.Email
	}
	i.lock.Unlock()

	if !ok {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid_grant", "error_description": "invalid credentials"})
		return
	}

	idToken, err := i.IDToken(user, i.TokenTTL)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "server_error"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"access_token":  uuid.New().String(),
		"token_type":    "Bearer",
		"expires_in":    int(i.TokenTTL.Seconds()),
		"refresh_token": refreshToken,
		"id_token":      idToken,
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
