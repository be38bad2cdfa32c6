package config

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

const (
	StorePostgres = "postgres"
	StoreMemory   = "memory"

	// InsecureTestSecret signs tokens when ENV=test and JWT_SECRET is unset.
	// It is public; never rely on it outside tests.
	InsecureTestSecret = "insecure-test-secret-do-not-use"
)

type Config struct {
	//App
	Env   string `env:"ENV" envDefault:"dev"` // dev / test / staging / prod
	Store string `env:"STORE" envDefault:"postgres"`

	// SeedDemoUser creates the demo account at startup. Refused in staging/prod.
	SeedDemoUser bool `env:"SEED_DEMO_USER" envDefault:"false"`

	//HTTP
	Port               string        `env:"PORT" envDefault:"5000"`
	HTTPAddr           string        `env:"-"`
	HTTPReadTimeout    time.Duration `env:"HTTP_READ_TIMEOUT" envDefault:"10s"`
	HTTPWriteTimeout   time.Duration `env:"HTTP_WRITE_TIMEOUT" envDefault:"30s"`
	HTTPIdleTimeout    time.Duration `env:"HTTP_IDLE_TIMEOUT" envDefault:"60s"`
	CORSAllowedOrigins []string      `env:"CORS_ALLOWED_ORIGINS" envDefault:"*" envSeparator:","`

	//Auth / Security
	JWTSecret   string        `env:"JWT_SECRET"`
	JWTIssuer   string        `env:"JWT_ISSUER" envDefault:"account-service"`
	TokenTTL    time.Duration `env:"TOKEN_TTL" envDefault:"1h"`
	BcryptCost  int           `env:"BCRYPT_COST" envDefault:"10"`
	HashWorkers int           `env:"HASH_WORKERS"` // 0 = runtime.NumCPU()

	// set when JWTSecret fell back to InsecureTestSecret
	UsingInsecureSecret bool `env:"-"`

	// Database
	DBHost         string `env:"DB_HOST" envDefault:"localhost"`
	DBPort         string `env:"DB_PORT" envDefault:"5432"`
	DBUser         string `env:"DB_USER"`
	DBPassword     string `env:"DB_PASSWORD"`
	DBName         string `env:"DB_NAME"`
	DBSSLMode      string `env:"DB_SSLMODE" envDefault:"require"`
	DBMaxOpenConns int    `env:"DB_MAX_OPEN_CONNS" envDefault:"20"`
	DBMaxIdleConns int    `env:"DB_MAX_IDLE_CONNS" envDefault:"10"`

	// Messaging (publisher disabled when RabbitURL is empty)
	RabbitURL      string `env:"RABBIT_URL"`
	RabbitExchange string `env:"RABBIT_EXCHANGE" envDefault:"account.events"`
}

// loadDotEnv is a seam for tests.
var loadDotEnv = func() error { return godotenv.Load() }

// LoadDotEnv copies an optional .env file into the process environment
// without overriding variables that are already set. A missing file is not
// an error. Call it before anything else reads the environment.
func LoadDotEnv() {
	_ = loadDotEnv()
}

// Load reads an optional .env file, then the process environment, and
// validates the result.
func Load() (*Config, error) {
	LoadDotEnv()

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	switch c.Env {
	case "dev", "test", "staging", "prod":
	default:
		return fmt.Errorf("invalid ENV %q: want dev, test, staging or prod", c.Env)
	}

	switch c.Store {
	case StorePostgres, StoreMemory:
	default:
		return fmt.Errorf("invalid STORE %q: want %s or %s", c.Store, StorePostgres, StoreMemory)
	}

	if c.SeedDemoUser && (c.Env == "staging" || c.Env == "prod") {
		return fmt.Errorf("SEED_DEMO_USER is not allowed with ENV=%s", c.Env)
	}

	port, err := strconv.Atoi(c.Port)
	if err != nil || port < 1 || port > 65535 {
		return fmt.Errorf("invalid PORT %q", c.Port)
	}
	c.HTTPAddr = ":" + c.Port

	// Fail fast: a service that signs tokens with an empty or guessable key
	// must not start.
	if c.JWTSecret == "" {
		if c.Env != "test" {
			return errors.New("missing required env var: JWT_SECRET")
		}
		c.JWTSecret = InsecureTestSecret
		c.UsingInsecureSecret = true
	}
	if c.JWTIssuer == "" {
		return errors.New("JWT_ISSUER must not be empty")
	}
	if c.TokenTTL <= 0 {
		return fmt.Errorf("TOKEN_TTL must be positive, got %s", c.TokenTTL)
	}

	// bcrypt.MinCost .. bcrypt.MaxCost
	if c.BcryptCost < 4 || c.BcryptCost > 31 {
		return fmt.Errorf("BCRYPT_COST must be between 4 and 31, got %d", c.BcryptCost)
	}
	if c.HashWorkers < 0 {
		return fmt.Errorf("HASH_WORKERS must not be negative, got %d", c.HashWorkers)
	}

	if c.HTTPReadTimeout <= 0 || c.HTTPWriteTimeout <= 0 || c.HTTPIdleTimeout <= 0 {
		return errors.New("HTTP timeouts must be positive")
	}
	c.CORSAllowedOrigins = trimList(c.CORSAllowedOrigins)

	if c.Store == StorePostgres {
		if c.DBUser == "" {
			return errors.New("missing required env var: DB_USER")
		}
		if c.DBName == "" {
			return errors.New("missing required env var: DB_NAME")
		}
		switch c.DBSSLMode {
		case "disable", "allow", "prefer", "require", "verify-ca", "verify-full":
		default:
			return fmt.Errorf("invalid DB_SSLMODE %q", c.DBSSLMode)
		}
		if c.DBMaxOpenConns < 1 {
			return fmt.Errorf("DB_MAX_OPEN_CONNS must be at least 1, got %d", c.DBMaxOpenConns)
		}
		if c.DBMaxIdleConns < 0 || c.DBMaxIdleConns > c.DBMaxOpenConns {
			return fmt.Errorf("DB_MAX_IDLE_CONNS must be between 0 and DB_MAX_OPEN_CONNS, got %d", c.DBMaxIdleConns)
		}
	}
	return nil
}

// DSN builds a postgres connection URL from the DB_* settings. The password
// is escaped, so it may contain any character.
func (c *Config) DSN() string {
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(c.DBUser, c.DBPassword),
		Host:     net.JoinHostPort(c.DBHost, c.DBPort),
		Path:     "/" + c.DBName,
		RawQuery: url.Values{"sslmode": []string{c.DBSSLMode}}.Encode(),
	}
	return u.String()
}

func trimList(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
