package config

import "time"

type AuthConfig interface {
	GetIdentityProvider() string
	GetRegion() string
	GetUserPoolID() string
	GetUserPoolClientID() string
	GetCognitoEndpoint() string
	GetOIDCIssuer() string
	GetOIDCClientID() string
	GetOIDCClientSecret() string
	GetRefreshThreshold() time.Duration
	GetRefreshInterval() time.Duration
}

type Auth struct{}

var _ AuthConfig = Auth{}

// GetIdentityProvider is either "cognito" or "oidc".
func (Auth) GetIdentityProvider() string {
	return GetEnv("IDENTITY_PROVIDER", "cognito")
}

func (Auth) GetRegion() string {
	return GetEnv("AWS_REGION", "eu-west-2")
}

func (Auth) GetUserPoolID() string {
	return GetEnv("USER_POOL_ID", "")
}

func (Auth) GetUserPoolClientID() string {
	return GetEnv("USER_POOL_CLIENT_ID", "")
}

// GetCognitoEndpoint overrides the regional endpoint. Empty uses the region.
func (Auth) GetCognitoEndpoint() string {
	return GetEnv("COGNITO_ENDPOINT", "")
}

func (Auth) GetOIDCIssuer() string {
	return GetEnv("OIDC_ISSUER", "")
}

func (Auth) GetOIDCClientID() string {
	return GetEnv("OIDC_CLIENT_ID", "")
}

func (Auth) GetOIDCClientSecret() string {
	return GetEnv("OIDC_CLIENT_SECRET", "")
}

// GetRefreshThreshold is how close to expiry a session must be before it is refreshed.
func (Auth) GetRefreshThreshold() time.Duration {
	return GetEnvDuration("SESSION_REFRESH_THRESHOLD", 5*time.Minute)
}

func (Auth) GetRefreshInterval() time.Duration {
	return GetEnvDuration("SESSION_REFRESH_INTERVAL", 30*time.Minute)
}
