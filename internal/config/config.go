// Package config loads service configuration from environment
// variables, with an optional .env file for local development.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// DBConfig holds PostgreSQL connection settings.
type DBConfig struct {
	DSN             string        `env:"DSN,required"`
	MaxOpenConns    int           `env:"MAX_OPEN_CONNS" envDefault:"10"`
	MaxIdleConns    int           `env:"MAX_IDLE_CONNS" envDefault:"10"`
	ConnMaxLifetime time.Duration `env:"CONN_MAX_LIFETIME" envDefault:"30m"`
}

// JWTConfig holds token issuance settings. The signing key has no
// default on purpose: a missing key is a fatal misconfiguration.
type JWTConfig struct {
	Key      string        `env:"KEY,required"`
	Issuer   string        `env:"ISSUER" envDefault:"fullpega"`
	Audience string        `env:"AUDIENCE" envDefault:"fullpega-frontend"`
	TokenTTL time.Duration `env:"TOKEN_TTL" envDefault:"1h"`
}

// GeoConfig holds geolocation lookup settings. DevFallbackIP is only
// honored when DevFallback is explicitly enabled, keeping the test
// convenience out of production paths.
type GeoConfig struct {
	BaseURL       string        `env:"BASE_URL" envDefault:"https://ipapi.co"`
	Timeout       time.Duration `env:"TIMEOUT" envDefault:"3s"`
	DevFallback   bool          `env:"DEV_FALLBACK" envDefault:"false"`
	DevFallbackIP string        `env:"DEV_FALLBACK_IP" envDefault:"181.173.7.175"`
}

// HTTPConfig holds server settings.
type HTTPConfig struct {
	Addr            string   `env:"ADDR" envDefault:":8080"`
	AllowedOrigins  []string `env:"ALLOWED_ORIGINS" envSeparator:"," envDefault:"http://localhost:4200"`
	LoginRateBurst  int      `env:"LOGIN_RATE_BURST" envDefault:"5"`
	LoginRatePerSec int      `env:"LOGIN_RATE_PER_SEC" envDefault:"2"`
}

// Config is the root configuration.
type Config struct {
	DB   DBConfig   `envPrefix:"FULLPEGA_DB_"`
	JWT  JWTConfig  `envPrefix:"FULLPEGA_JWT_"`
	Geo  GeoConfig  `envPrefix:"FULLPEGA_GEO_"`
	HTTP HTTPConfig `envPrefix:"FULLPEGA_HTTP_"`

	// SystemID identifies this application in shared identity tables.
	SystemID int `env:"FULLPEGA_SYSTEM_ID" envDefault:"3"`
}

// Load reads configuration from the environment. A .env file in the
// working directory is merged in first when present; missing files
// are ignored.
func Load() (Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}
	if strings.TrimSpace(cfg.JWT.Key) == "" {
		return Config{}, fmt.Errorf("FULLPEGA_JWT_KEY must not be blank")
	}
	return cfg, nil
}

// GeoFallbackIP returns the placeholder public IP, or empty when the
// dev fallback is disabled.
func (c Config) GeoFallbackIP() string {
	if !c.Geo.DevFallback {
		return ""
	}
	return strings.TrimSpace(c.Geo.DevFallbackIP)
}
