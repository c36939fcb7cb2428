package config

import (
	"errors"
	"io/fs"

	"github.com/joho/godotenv"
)

type Config interface {
	EnvConfig
	CorsConfig
	AuthConfig
	StoreConfig
	PlatformConfig
	SecurityConfig
	ClientConfig
}

type EnvConfig interface {
	GetPort() string
	GetAppName() string
	GetDataFolder() string
	GetLogLevel() string
	GetEnv() string
}

type CorsConfig interface {
	GetAllowedOrigins() AllowedOrigins
	GetAllowedMethods() string
	GetAllowedHeaders() string
}

type mainConfig struct {
	EnvVars
	Cors
	Auth
	Store
	Platform
	Security
	Client
}

func New() Config {
	return mainConfig{}
}

// Load reads the given .env files (".env" when none are named) into the
// process environment and returns the config. Missing files are ignored;
// variables already set in the environment win.
func Load(filenames ...string) (Config, error) {
	if len(filenames) == 0 {
		filenames = []string{".env"}
	}
	for _, f := range filenames {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
	}
	return New(), nil
}
