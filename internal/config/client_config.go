package config

import (
	"os"
	"path/filepath"
	"time"
)

type ClientConfig interface {
	GetAPIBaseURL() string
	GetSessionFile() string
	GetSessionPassphrase() string
	GetMaxRetries() int
	GetRetryDelay() time.Duration
}

type Client struct{}

var _ ClientConfig = Client{}

func (Client) GetAPIBaseURL() string {
	return GetEnv("API_BASE_URL", "http://localhost:8080")
}

// GetSessionFile defaults to <user config dir>/media-admin/session.
func (Client) GetSessionFile() string {
	if f := os.Getenv("SESSION_FILE"); f != "" {
		return f
	}
	dir, err := os.UserConfigDir()
	if err != nil {
		dir = "."
	}
	return filepath.Join(dir, "media-admin", "session")
}

func (Client) GetSessionPassphrase() string {
	return GetEnv("SESSION_PASSPHRASE", "")
}

func (Client) GetMaxRetries() int {
	return GetEnvInt("HTTP_MAX_RETRIES", 3)
}

func (Client) GetRetryDelay() time.Duration {
	return GetEnvDuration("HTTP_RETRY_DELAY", time.Second)
}
