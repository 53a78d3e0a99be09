package config

import (
	"errors"
	"flag"
	"fmt"
	"strings"
	"time"

	"github.com/peterbourgon/ff/v3"
)

// ErrConfig marks a configuration that cannot back a running service.
var ErrConfig = errors.New("server configuration error")

const (
	StoreDriverPostgres = "postgres"
	StoreDriverMemory   = "memory"

	EnvProduction = "production"
)

type Config struct {
	AppPort  string
	AppEnv   string
	LogLevel string

	StoreDriver string
	DatabaseDSN string

	RedisAddr     string
	RedisPassword string

	ClassifierURL          string
	ClassifierTimeout      time.Duration
	ClassifierTokenURL     string
	ClassifierClientID     string
	ClassifierClientSecret string

	AllowedOrigins []string
	MaxBodyBytes   int64
	SessionTTL     time.Duration
}

// Defaults mirror a local development setup.
func Defaults() Config {
	return Config{
		AppPort:           "3001",
		AppEnv:            "development",
		LogLevel:          "info",
		StoreDriver:       StoreDriverPostgres,
		ClassifierURL:     "http://localhost:5000",
		ClassifierTimeout: 5 * time.Second,
		AllowedOrigins:    []string{"http://localhost:5173"},
		MaxBodyBytes:      1 << 20,
		SessionTTL:        180 * 24 * time.Hour,
	}
}

// Load applies defaults, then environment variables named after the flags
// (app-port -> APP_PORT), then command-line flags. A flag given on the
// command line wins over its environment variable.
func Load(args []string) (Config, error) {
	cfg := Defaults()

	fs := flag.NewFlagSet("sessionhalt", flag.ContinueOnError)

	fs.StringVar(&cfg.AppPort, "app-port", cfg.AppPort, "HTTP listen port")
	fs.StringVar(&cfg.AppEnv, "app-env", cfg.AppEnv, "runtime environment (production enables secure cookies)")
	fs.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "log level")

	fs.StringVar(&cfg.StoreDriver, "store-driver", cfg.StoreDriver, "account store: postgres or memory")
	fs.StringVar(&cfg.DatabaseDSN, "database-dsn", cfg.DatabaseDSN, "PostgreSQL DSN")

	fs.StringVar(&cfg.RedisAddr, "redis-addr", cfg.RedisAddr, "Redis address for the session binding cache (empty disables it)")
	fs.StringVar(&cfg.RedisPassword, "redis-password", cfg.RedisPassword, "Redis password")

	fs.StringVar(&cfg.ClassifierURL, "classifier-url", cfg.ClassifierURL, "anomaly classifier base URL")
	fs.DurationVar(&cfg.ClassifierTimeout, "classifier-timeout", cfg.ClassifierTimeout, "timeout for each classifier round trip")
	fs.StringVar(&cfg.ClassifierTokenURL, "classifier-token-url", cfg.ClassifierTokenURL, "OAuth2 token URL for classifier client credentials")
	fs.StringVar(&cfg.ClassifierClientID, "classifier-client-id", cfg.ClassifierClientID, "OAuth2 client id for the classifier")
	fs.StringVar(&cfg.ClassifierClientSecret, "classifier-client-secret", cfg.ClassifierClientSecret, "OAuth2 client secret for the classifier")

	origins := fs.String("allowed-origins", strings.Join(cfg.AllowedOrigins, ","), "comma separated CORS origins")
	fs.Int64Var(&cfg.MaxBodyBytes, "max-body-bytes", cfg.MaxBodyBytes, "request body limit")
	fs.DurationVar(&cfg.SessionTTL, "session-ttl", cfg.SessionTTL, "session cookie lifetime")

	if err := ff.Parse(fs, args, ff.WithEnvVarNoPrefix()); err != nil {
		return Config{}, fmt.Errorf("config: %w", err)
	}

	cfg.AllowedOrigins = splitList(*origins)

	return cfg, nil
}

// Production reports whether cookies must carry the Secure attribute.
func (c Config) Production() bool {
	return strings.EqualFold(c.AppEnv, EnvProduction)
}

// Validate reports the first setting that prevents the service from running.
func (c Config) Validate() error {
	switch c.StoreDriver {
	case StoreDriverPostgres:
		if c.DatabaseDSN == "" {
			return fmt.Errorf("%w: DATABASE_DSN is required for the postgres store", ErrConfig)
		}
	case StoreDriverMemory:
	default:
		return fmt.Errorf("%w: unknown STORE_DRIVER %q", ErrConfig, c.StoreDriver)
	}

	if c.ClassifierURL == "" {
		return fmt.Errorf("%w: CLASSIFIER_URL is required", ErrConfig)
	}
	if c.ClassifierTimeout <= 0 {
		return fmt.Errorf("%w: CLASSIFIER_TIMEOUT must be positive", ErrConfig)
	}
	if c.ClassifierTokenURL != "" && c.ClassifierClientID == "" {
		return fmt.Errorf("%w: CLASSIFIER_CLIENT_ID is required with CLASSIFIER_TOKEN_URL", ErrConfig)
	}
	if c.MaxBodyBytes <= 0 {
		return fmt.Errorf("%w: MAX_BODY_BYTES must be positive", ErrConfig)
	}
	if c.SessionTTL <= 0 {
		return fmt.Errorf("%w: SESSION_TTL must be positive", ErrConfig)
	}

	return nil
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
