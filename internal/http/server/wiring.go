// Package server construye el handler HTTP completo a partir de la config:
// storage del ledger, nonces, registry on-chain, tokens, rate limit y métricas.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	rdb "github.com/redis/go-redis/v9"

	"github.com/dropDatabas3/skillspassport/internal/auth"
	"github.com/dropDatabas3/skillspassport/internal/chain"
	"github.com/dropDatabas3/skillspassport/internal/config"
	httpmetrics "github.com/dropDatabas3/skillspassport/internal/http"
	"github.com/dropDatabas3/skillspassport/internal/http/controllers"
	"github.com/dropDatabas3/skillspassport/internal/http/router"
	"github.com/dropDatabas3/skillspassport/internal/http/services"
	healthsvc "github.com/dropDatabas3/skillspassport/internal/http/services/health"
	"github.com/dropDatabas3/skillspassport/internal/ledger"
	"github.com/dropDatabas3/skillspassport/internal/ledger/store"
	"github.com/dropDatabas3/skillspassport/internal/nonce"
	"github.com/dropDatabas3/skillspassport/internal/observability/logger"
	"github.com/dropDatabas3/skillspassport/internal/rate"
	"github.com/dropDatabas3/skillspassport/internal/token"
)

// Options permite reemplazar piezas externas (tests).
type Options struct {
	// Registry reemplaza al cliente RPC de Config.Chain.
	Registry chain.Registry
	// Metrics: registerer de prometheus. nil = default; DisableMetrics lo apaga.
	Metrics        prometheus.Registerer
	DisableMetrics bool
}

// App es el servicio armado.
type App struct {
	Handler http.Handler
	Ledger  *ledger.Ledger
	Auth    *auth.Service

	closers []func() error
}

// Close libera recursos en orden inverso al de creación.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}

// Build arma el App. Si algo falla, lo ya creado se cierra antes de volver.
func Build(ctx context.Context, cfg *config.Config, opts Options) (app *App, err error) {
	log := logger.L().With(logger.Component("server"))
	app = &App{}
	defer func() {
		if err != nil {
			_ = app.Close()
			app = nil
		}
	}()

	// 1. Redis (solo si algún backend lo usa)
	var redisClient *rdb.Client
	if cfg.UsesRedis() {
		redisClient = rdb.NewClient(&rdb.Options{Addr: cfg.Redis.Addr, DB: cfg.Redis.DB})
		if err := redisClient.Ping(ctx).Err(); err != nil {
			_ = redisClient.Close()
			return nil, fmt.Errorf("redis ping %s: %w", cfg.Redis.Addr, err)
		}
		app.closers = append(app.closers, redisClient.Close)
	}

	// 2. Ledger
	alg, err := ledger.ParseHashAlg(cfg.Ledger.HashAlg)
	if err != nil {
		return nil, err
	}
	st, err := store.Open(ctx, store.Config{
		Driver:  cfg.Ledger.Driver,
		File:    cfg.Ledger.File,
		DSN:     cfg.Ledger.DSN,
		Migrate: cfg.AutoMigrate(),
	})
	if err != nil {
		return nil, fmt.Errorf("open ledger store: %w", err)
	}
	led, err := ledger.Open(ctx, st, ledger.Options{HashAlg: alg})
	if err != nil {
		_ = st.Close()
		return nil, err
	}
	app.Ledger = led
	app.closers = append(app.closers, led.Close)
	if rep := led.Verify(); !rep.OK {
		// Se sirve igual; /api/ledger/verify muestra el detalle.
		log.Warn("ledger integrity check failed on startup", logger.Count(len(rep.Issues)), logger.String("head", rep.Head))
	}
	log.Info("ledger loaded",
		logger.String("driver", cfg.Ledger.Driver),
		logger.Count(led.Len()),
		logger.String("hash_alg", string(led.HashAlg())),
	)

	// 3. Nonces
	var backend nonce.Backend
	switch cfg.Nonce.Store {
	case "redis":
		backend = nonce.NewRedisBackend(redisClient, cfg.Redis.Prefix)
	case "fs":
		backend = nonce.NewFileBackend(cfg.Nonce.File)
	default:
		backend = nonce.NewMemoryBackend()
	}
	nonces := nonce.New(backend, cfg.NonceTTL())

	// 4. Registry on-chain
	registry := opts.Registry
	if registry == nil {
		r, err := chain.Dial(ctx, cfg.Chain.RPCURL, cfg.Chain.ContractAddress, cfg.ChainTimeout())
		if err != nil {
			return nil, err
		}
		if eth, ok := r.(*chain.EthRegistry); ok {
			app.closers = append(app.closers, func() error { eth.Close(); return nil })
		}
		registry = r
	}
	_, unconfigured := registry.(chain.Unconfigured)
	if unconfigured {
		log.Warn("on-chain registry not configured; wallet login will fail", logger.Op("Build"))
	}

	// 5. Auth
	app.Auth = auth.NewService(auth.Deps{
		Nonces:   nonces,
		Registry: registry,
		Tokens:   token.NewIssuer(cfg.JWT.Secret, cfg.JWTTTL(), cfg.JWT.Issuer),
	})

	// 6. Rate limit
	var limiter rate.Limiter
	if cfg.RateEnabled() {
		if cfg.Rate.Backend == "redis" {
			limiter = rate.NewRedisLimiter(redisClient, cfg.Redis.Prefix+"rl:", cfg.Rate.MaxRequests, cfg.RateWindow())
		} else {
			limiter = rate.NewMemoryLimiter(cfg.Rate.MaxRequests, cfg.RateWindow())
		}
	}

	// 7. Métricas
	var metricsHandler http.Handler
	var metricsWrapper func(http.Handler) http.Handler
	if !opts.DisableMetrics {
		mcfg := httpmetrics.MetricsConfig{Registry: opts.Metrics}
		if p, ok := st.(interface{ Pool() *pgxpool.Pool }); ok {
			mcfg.LedgerPool = p.Pool
		}
		metricsHandler, err = httpmetrics.RegisterMetrics(mcfg)
		if err != nil {
			return nil, fmt.Errorf("register metrics: %w", err)
		}
		metricsWrapper = httpmetrics.WithMetrics
	}

	// 8. Services -> controllers -> router
	hd := healthsvc.Deps{
		LedgerDriver:    strings.ToLower(cfg.Ledger.Driver),
		ChainConfigured: !unconfigured,
	}
	if p, ok := st.(store.Pinger); ok {
		hd.LedgerCheck = p.Ping
	}
	if redisClient != nil {
		hd.RedisCheck = func(ctx context.Context) error { return redisClient.Ping(ctx).Err() }
	}

	svcs := services.New(services.Deps{
		Auth:          app.Auth,
		Ledger:        led,
		RecheckIssuer: cfg.RecheckIssuer(),
		Health:        hd,
	})
	app.Handler = router.New(router.Deps{
		Controllers:        controllers.New(svcs),
		Auth:               app.Auth,
		RateLimiter:        limiter,
		CORSAllowedOrigins: cfg.Server.CORSAllowedOrigins,
		Metrics:            metricsHandler,
		MetricsWrapper:     metricsWrapper,
	})
	return app, nil
}
