package bootstrap

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"time"

	"github.com/baechuer/real-time-ressys/services/account-service/internal/application/auth"
	"github.com/baechuer/real-time-ressys/services/account-service/internal/config"
	"github.com/baechuer/real-time-ressys/services/account-service/internal/infrastructure/db/postgres"
	"github.com/baechuer/real-time-ressys/services/account-service/internal/infrastructure/memory"
	rabbitmq_pub "github.com/baechuer/real-time-ressys/services/account-service/internal/infrastructure/messaging/rabbitmq"
	"github.com/baechuer/real-time-ressys/services/account-service/internal/infrastructure/security"
	"github.com/baechuer/real-time-ressys/services/account-service/internal/logger"
	http_handlers "github.com/baechuer/real-time-ressys/services/account-service/internal/transport/http/handlers"
	"github.com/baechuer/real-time-ressys/services/account-service/internal/transport/http/middleware"
	"github.com/baechuer/real-time-ressys/services/account-service/internal/transport/http/response"
	"github.com/baechuer/real-time-ressys/services/account-service/internal/transport/http/router"
)

const startupTimeout = 30 * time.Second

/*
========================
 Public entry (prod)
========================
*/

func NewServer() (*http.Server, func(), error) {
	return newServer(defaultDeps())
}

// NewServerWithDeps allows injecting dependencies for testing
func NewServerWithDeps(deps Deps) (*http.Server, func(), error) {
	return newServer(deps)
}

/*
========================
 Dependency injection
========================
*/

type Deps struct {
	LoadConfig func() (*config.Config, error)

	NewDB func(dsn string, maxOpen, maxIdle int) (*sql.DB, error)

	Migrate func(ctx context.Context, db *sql.DB) error

	NewPublisher func(rabbitURL, exchange string) (Publisher, error)

	NewRouter func(router.Deps) (http.Handler, error)
}

type Publisher interface {
	auth.EventPublisher
	Close() error
}

/*
========================
 Core bootstrap logic
========================
*/

func newServer(deps Deps) (*http.Server, func(), error) {
	// 0) config
	cfg, err := deps.LoadConfig()
	if err != nil {
		return nil, nil, err
	}
	if cfg.UsingInsecureSecret {
		logger.Logger.Warn().Msg("JWT_SECRET not set; using the insecure test secret (ENV=test only)")
	}

	ctx, cancel := context.WithTimeout(context.Background(), startupTimeout)
	defer cancel()

	var cleanupFns []func()

	// 1) store
	var (
		userRepo auth.UserRepo
		pinger   http_handlers.Pinger
	)
	switch cfg.Store {
	case config.StoreMemory:
		logger.Logger.Warn().Msg("using in-memory user store; data is lost on restart")
		userRepo = memory.NewUserRepo()

	default:
		db, err := deps.NewDB(cfg.DSN(), cfg.DBMaxOpenConns, cfg.DBMaxIdleConns)
		if err != nil {
			return nil, nil, fmt.Errorf("open db: %w", err)
		}
		cleanupFns = append(cleanupFns, func() { _ = db.Close() })

		if err := deps.Migrate(ctx, db); err != nil {
			runCleanup(cleanupFns)
			return nil, nil, err
		}
		logger.Logger.Info().Str("host", cfg.DBHost).Str("db", cfg.DBName).Msg("database ready")

		userRepo = postgres.NewUserRepo(db)
		pinger = db
	}

	// 2) security
	hasher := security.NewPoolHasher(security.NewBcryptHasher(cfg.BcryptCost), cfg.HashWorkers)
	signer := security.NewJWTSigner(cfg.JWTSecret, cfg.JWTIssuer)
	logger.Logger.Info().
		Int("bcrypt_cost", cfg.BcryptCost).
		Int("hash_workers", hasher.Workers()).
		Str("issuer", cfg.JWTIssuer).
		Msg("security initialised")

	// 3) publisher
	var pub auth.EventPublisher
	if cfg.RabbitURL == "" {
		logger.Logger.Info().Msg("RABBIT_URL not set; using noop publisher")
		pub = memory.NewNoopPublisher(logger.Logger)
	} else {
		p, err := deps.NewPublisher(cfg.RabbitURL, cfg.RabbitExchange)
		switch {
		case err == nil:
			pub = p
			cleanupFns = append(cleanupFns, func() { _ = p.Close() })
		case cfg.Env == "dev" || cfg.Env == "test":
			logger.Logger.Warn().Err(err).Msg("rabbitmq unavailable; using noop publisher")
			pub = memory.NewNoopPublisher(logger.Logger)
		default:
			runCleanup(cleanupFns)
			return nil, nil, fmt.Errorf("rabbitmq: %w", err)
		}
	}

	// seed (opt-in, never staging/prod)
	if cfg.SeedDemoUser {
		n := postgres.SeedUsers(ctx, userRepo, hasher, postgres.DevSeedUsers, logger.Logger)
		logger.Logger.Debug().Int("created", n).Msg("demo seed done")
	}

	// 4) service
	authSvc := auth.NewService(userRepo, hasher, signer, pub, auth.Config{
		TokenTTL: cfg.TokenTTL,
	})

	cleanupFns = append(cleanupFns, authSvc.WaitPublishes)

	authSvc = authSvc.WithAudit(func(action string, fields map[string]string) {
		evt := logger.Logger.Info().
			Bool("audit", true).
			Str("action", action)
		for k, v := range fields {
			evt = evt.Str(k, v)
		}
		evt.Msg("audit")
	})

	// 5) handlers + middleware
	authH := http_handlers.NewAuthHandler(authSvc)
	healthH := http_handlers.NewHealthHandler(pinger)
	authMW := middleware.Auth(signer, response.WriteError)

	// 6) router
	mux, err := deps.NewRouter(router.Deps{
		Health:             healthH,
		Auth:               authH,
		AuthMW:             authMW,
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
	})
	if err != nil {
		runCleanup(cleanupFns)
		return nil, nil, err
	}

	// 7) server
	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           mux,
		ReadTimeout:       cfg.HTTPReadTimeout,
		ReadHeaderTimeout: cfg.HTTPReadTimeout,
		WriteTimeout:      cfg.HTTPWriteTimeout,
		IdleTimeout:       cfg.HTTPIdleTimeout,
	}

	cleanup := func() {
		runCleanup(cleanupFns)
	}

	return srv, cleanup, nil
}

/*
========================
 Default deps (prod)
========================
*/

func defaultDeps() Deps {
	return Deps{
		LoadConfig: config.Load,
		NewDB:      config.NewDB,
		Migrate:    postgres.Migrate,
		NewPublisher: func(url, exchange string) (Publisher, error) {
			return rabbitmq_pub.NewPublisher(url, exchange)
		},
		NewRouter: router.New,
	}
}

/*
========================
 helpers
========================
*/

func runCleanup(fns []func()) {
	for i := len(fns) - 1; i >= 0; i-- {
		fns[i]()
	}
}
