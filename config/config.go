// Package config loads the process-wide application configuration.
//
// Configuration is read once at startup from an optional .env file and the
// process environment, validated, and then passed explicitly to every module.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/crypto/bcrypt"
)

const (
	// EnvProduction enables secure cookies and strict secret checks.
	EnvProduction = "production"
	// EnvDevelopment is the default environment.
	EnvDevelopment = "development"

	// TokenTTL is the fixed lifetime of issued session tokens.
	TokenTTL = 7 * 24 * time.Hour

	// FallbackJWTSecret is used outside production when JWT_SECRET is unset.
	FallbackJWTSecret = "civic-platform-insecure-development-secret"

	// DriverSQLite selects the SQLite store.
	DriverSQLite = "sqlite"
	// DriverPostgres selects the PostgreSQL store.
	DriverPostgres = "postgres"
)

var (
	// ErrMissingJWTSecret is returned in production when JWT_SECRET is not set.
	ErrMissingJWTSecret = errors.New("JWT_SECRET must be set in production")
	// ErrUnknownDriver is returned for an unsupported DB_DRIVER.
	ErrUnknownDriver = errors.New("unknown database driver")
)

// Config holds the application configuration.
type Config struct {
	Env             string
	HTTPAddr        string
	ShutdownTimeout time.Duration
	LogLevel        string

	DB    DBConfig
	JWT   JWTConfig
	Hash  HashConfig
	Cache CacheConfig
}

// DBConfig selects and locates the credential store.
type DBConfig struct {
	Driver string
	DSN    string
}

// JWTConfig configures token signing.
type JWTConfig struct {
	Secret string
	Issuer string
	TTL    time.Duration
	// UsingFallback reports whether Secret is the hardcoded development secret.
	UsingFallback bool
}

// HashConfig configures password hashing.
type HashConfig struct {
	Cost        int
	Concurrency int
}

// CacheConfig configures the optional Redis user cache.
type CacheConfig struct {
	RedisAddr     string
	RedisPassword string
	Prefix        string
	TTL           time.Duration
}

// Enabled reports whether a Redis address was configured.
func (c CacheConfig) Enabled() bool {
	return c.RedisAddr != ""
}

// IsProduction reports whether the application runs in production mode.
func (c Config) IsProduction() bool {
	return c.Env == EnvProduction
}

// Load reads the configuration from .env (if present) and the environment.
func Load() (Config, error) {
	return LoadFile(".env")
}

// LoadFile is Load with an explicit dotenv path. A missing file is not an
// error; a malformed one is.
func LoadFile(path string) (Config, error) {
	if err := godotenv.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("failed to load %s: %w", path, err)
	}
	return FromLookup(os.LookupEnv)
}

// FromLookup builds a Config from the given lookup function.
func FromLookup(lookup func(string) (string, bool)) (Config, error) {
	env := func(key, fallback string) string {
		if v, ok := lookup(key); ok && strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
		return fallback
	}

	var errs []error

	intVar := func(key string, fallback int) int {
		raw := env(key, "")
		if raw == "" {
			return fallback
		}
		n, err := strconv.Atoi(raw)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", key, err))
			return fallback
		}
		return n
	}

	durationVar := func(key string, fallback time.Duration) time.Duration {
		raw := env(key, "")
		if raw == "" {
			return fallback
		}
		d, err := time.ParseDuration(raw)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", key, err))
			return fallback
		}
		return d
	}

	cfg := Config{
		Env:             strings.ToLower(env("APP_ENV", EnvDevelopment)),
		HTTPAddr:        env("HTTP_ADDR", ":3000"),
		ShutdownTimeout: durationVar("SHUTDOWN_TIMEOUT", 30*time.Second),
		LogLevel:        env("LOG_LEVEL", "info"),
		DB: DBConfig{
			Driver: strings.ToLower(env("DB_DRIVER", DriverSQLite)),
			DSN:    env("DB_DSN", "civic.db"),
		},
		JWT: JWTConfig{
			Secret: env("JWT_SECRET", ""),
			Issuer: env("JWT_ISSUER", "civic-platform"),
			TTL:    TokenTTL,
		},
		Hash: HashConfig{
			Cost:        intVar("BCRYPT_COST", 10),
			Concurrency: intVar("HASH_CONCURRENCY", runtime.NumCPU()),
		},
		Cache: CacheConfig{
			RedisAddr:     env("REDIS_ADDR", ""),
			RedisPassword: env("REDIS_PASSWORD", ""),
			Prefix:        env("CACHE_PREFIX", "user:"),
			TTL:           durationVar("CACHE_TTL", 5*time.Minute),
		},
	}

	if cfg.JWT.Secret == "" {
		if cfg.IsProduction() {
			errs = append(errs, ErrMissingJWTSecret)
		} else {
			cfg.JWT.Secret = FallbackJWTSecret
			cfg.JWT.UsingFallback = true
		}
	}

	if err := errors.Join(errs...); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate rejects configurations the application cannot start with.
func (c Config) Validate() error {
	var errs []error

	switch c.DB.Driver {
	case DriverSQLite, DriverPostgres:
	default:
		errs = append(errs, fmt.Errorf("%w: %q", ErrUnknownDriver, c.DB.Driver))
	}
	if c.DB.DSN == "" {
		errs = append(errs, errors.New("DB_DSN must not be empty"))
	}
	if c.JWT.Secret == "" {
		errs = append(errs, errors.New("JWT secret must not be empty"))
	}
	if c.Hash.Cost < bcrypt.MinCost || c.Hash.Cost > bcrypt.MaxCost {
		errs = append(errs, fmt.Errorf("BCRYPT_COST must be between %d and %d, got %d",
			bcrypt.MinCost, bcrypt.MaxCost, c.Hash.Cost))
	}
	if c.Hash.Concurrency < 1 {
		errs = append(errs, fmt.Errorf("HASH_CONCURRENCY must be positive, got %d", c.Hash.Concurrency))
	}
	if c.ShutdownTimeout <= 0 {
		errs = append(errs, errors.New("SHUTDOWN_TIMEOUT must be positive"))
	}
	if c.Cache.Enabled() && c.Cache.TTL <= 0 {
		errs = append(errs, errors.New("CACHE_TTL must be positive"))
	}

	return errors.Join(errs...)
}
