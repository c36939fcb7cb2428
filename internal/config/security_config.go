package config

type SecurityConfig interface {
	GetEnableRateLimiting() bool
	GetRateLimitPerSecond() float64
	GetRateLimitBurst() int
	GetTrustProxyHeaders() bool
}

type Security struct{}

var _ SecurityConfig = Security{}

func (Security) GetEnableRateLimiting() bool {
	return GetEnvBool("RATE_LIMIT_ENABLED", true)
}

func (Security) GetRateLimitPerSecond() float64 {
	return float64(GetEnvInt("RATE_LIMIT_RPS", 10))
}

func (Security) GetRateLimitBurst() int {
	return GetEnvInt("RATE_LIMIT_BURST", 20)
}

// GetTrustProxyHeaders enables keying rate limits on X-Forwarded-For. Only
// turn it on behind a proxy that overwrites the header.
func (Security) GetTrustProxyHeaders() bool {
	return GetEnvBool("TRUST_PROXY", false)
}
