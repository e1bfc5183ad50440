package app

import (
	"fmt"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

// Config is the root service configuration. Values are sourced, in order of
// priority: an explicit path, CONFIG_PATH, ./local.yaml, then environment
// variables overlaid on whatever the file provided.
type Config struct {
	Env                 string        `yaml:"env" env:"ENV" env-default:"dev"`
	Port                int           `yaml:"port" env:"PORT" env-default:"8080"`
	Debug               bool          `yaml:"debug" env:"DEBUG" env-default:"false"`
	LogLevel            string        `yaml:"log_level" env:"LOG_LEVEL" env-default:"info"`
	LogFormat           string        `yaml:"log_format" env:"LOG_FORMAT" env-default:"json"`
	ShutdownGracePeriod time.Duration `yaml:"shutdown_grace_period" env:"SHUTDOWN_GRACE_PERIOD" env-default:"10s"`

	Auth    AuthConfig    `yaml:"auth"`
	Session SessionConfig `yaml:"session"`
	DB      DBConfig      `yaml:"db"`
}

// AuthConfig holds token issuance parameters. The secrets are deliberately
// not env-required: a missing secret is an error only in prod, dev falls back
// to a fixed value so the service starts out of the box (see resolveSecrets).
type AuthConfig struct {
	TokenSecret     string        `yaml:"token_secret" env:"AUTH_TOKEN_SECRET"`
	SessionSecret   string        `yaml:"session_secret" env:"AUTH_SESSION_SECRET"`
	AccessTokenTTL  time.Duration `yaml:"access_token_ttl" env:"ACCESS_TOKEN_TTL" env-default:"15m"`
	RefreshTokenTTL time.Duration `yaml:"refresh_token_ttl" env:"REFRESH_TOKEN_TTL" env-default:"168h"`
	Issuer          string        `yaml:"issuer" env:"AUTH_ISSUER" env-default:"apikit"`

	// Argon2id cost. Zero values fall back to the cryptox defaults.
	HashMemory      uint32 `yaml:"hash_memory" env:"AUTH_HASH_MEMORY" env-default:"65536"`
	HashIterations  uint32 `yaml:"hash_iterations" env:"AUTH_HASH_ITERATIONS" env-default:"3"`
	HashParallelism uint8  `yaml:"hash_parallelism" env:"AUTH_HASH_PARALLELISM" env-default:"2"`
}

// SessionConfig selects the session cache driver.
type SessionConfig struct {
	// Store is "memory" or "redis".
	Store    string `yaml:"store" env:"SESSION_STORE" env-default:"memory"`
	RedisURL string `yaml:"redis_url" env:"REDIS_URL" env-default:"redis://localhost:6379/0"`
}

// DBConfig holds the SQLite user database settings.
type DBConfig struct {
	File string `yaml:"file" env:"DATABASE_FILE" env-default:"apikit.db"`
}

// IsProd reports whether the service runs with production strictness.
func (c *Config) IsProd() bool { return c.Env == "prod" || c.Env == "production" }

// MustLoad wraps Load and panics on error.
func MustLoad(path string) *Config {
	cfg, err := Load(path)
	if err != nil {
		panic(err)
	}
	return cfg
}

// Load resolves the configuration source by priority:
// 1) explicit path; 2) CONFIG_PATH; 3) ./local.yaml; 4) env only.
// Env vars are overlaid on top of any file values.
func Load(path string) (*Config, error) {
	var cfg Config

	tryRead := func(p string) (*Config, error) {
		if _, err := os.Stat(p); err != nil {
			return nil, fmt.Errorf("config file %q stat failed: %w", p, err)
		}
		if err := cleanenv.ReadConfig(p, &cfg); err != nil {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		if err := cleanenv.ReadEnv(&cfg); err != nil {
			return nil, fmt.Errorf("failed to overlay env: %w", err)
		}
		return &cfg, nil
	}

	if path != "" {
		return tryRead(path)
	}
	if envPath := os.Getenv("CONFIG_PATH"); envPath != "" {
		return tryRead(envPath)
	}
	if _, err := os.Stat("local.yaml"); err == nil {
		return tryRead("local.yaml")
	}

	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, fmt.Errorf("failed to read config from env: %w", err)
	}
	return &cfg, nil
}
