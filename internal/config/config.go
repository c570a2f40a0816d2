// Package config loads application configuration from environment variables.
package config

import (
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Config holds all runtime configuration values.  Each field corresponds to
// an environment variable.
type Config struct {
	Env            string `env:"APP_ENV" envDefault:"dev"`
	Port           string `env:"APP_PORT,required,notEmpty"`
	DBDriver       string `env:"DB_DRIVER" envDefault:"mysql"` // mysql | sqlite
	DBUser         string `env:"DB_USER"`
	DBPass         string `env:"DB_PASS"`
	DBHost         string `env:"DB_HOST"`
	DBPort         string `env:"DB_PORT" envDefault:"3306"`
	DBName         string `env:"DB_NAME"`
	DBPath         string `env:"DB_PATH"`
	JWTSecret      string `env:"JWT_SECRET,required,notEmpty"`
	AccessTTLMin   int    `env:"ACCESS_TOKEN_TTL_MIN" envDefault:"15"`
	RefreshTTLDays int    `env:"REFRESH_TOKEN_TTL_DAYS" envDefault:"7"`
	BcryptCost     int    `env:"BCRYPT_COST" envDefault:"10"`
	RabbitMQURL    string `env:"RABBITMQ_URL"` // empty disables events
	Timezone       string `env:"APP_TIMEZONE" envDefault:"UTC"`
	AdminEmail     string `env:"ADMIN_EMAIL"`
	AdminPassword  string `env:"ADMIN_PASSWORD"`

	loc *time.Location
}

// Location is the zone "today" is evaluated in.
func (c Config) Location() *time.Location {
	if c.loc == nil {
		return time.UTC
	}
	return c.loc
}

// LoadDotEnv reads .env into the process environment when the file exists.
// Variables already set win.
func LoadDotEnv(paths ...string) {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	if err := godotenv.Load(paths...); err != nil {
		log.Printf("config: no .env loaded (%v); using process environment", err)
	}
}

// Parse reads and validates the configuration.
func Parse() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	cfg.DBDriver = strings.ToLower(strings.TrimSpace(cfg.DBDriver))
	switch cfg.DBDriver {
	case "mysql":
		for key, v := range map[string]string{"DB_USER": cfg.DBUser, "DB_HOST": cfg.DBHost, "DB_NAME": cfg.DBName} {
			if v == "" {
				return Config{}, fmt.Errorf("missing required env var: %s", key)
			}
		}
	case "sqlite":
		if cfg.DBPath == "" {
			return Config{}, fmt.Errorf("missing required env var: DB_PATH")
		}
	default:
		return Config{}, fmt.Errorf("unsupported DB_DRIVER %q", cfg.DBDriver)
	}
	if cfg.AccessTTLMin <= 0 {
		return Config{}, fmt.Errorf("ACCESS_TOKEN_TTL_MIN must be positive")
	}
	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		return Config{}, fmt.Errorf("invalid APP_TIMEZONE %q: %w", cfg.Timezone, err)
	}
	cfg.loc = loc
	return cfg, nil
}

// Load is Parse for process startup: configuration errors exit the program.
func Load() Config {
	cfg, err := Parse()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	return cfg
}
