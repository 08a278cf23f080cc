package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"github.com/dropDatabas3/skillspassport/internal/config"
	"github.com/dropDatabas3/skillspassport/internal/http/server"
	"github.com/dropDatabas3/skillspassport/internal/observability/logger"
)

const shutdownTimeout = 15 * time.Second

func fileExists(p string) bool {
	st, err := os.Stat(p)
	return err == nil && !st.IsDir()
}

func maskSecret(s string) string {
	if len(s) <= 4 {
		return "****"
	}
	return s[:2] + "****" + s[len(s)-2:]
}

func printConfigSummary(c *config.Config) {
	fmt.Printf(`Config efectiva:
  app.env:            %s
  server.addr:        %s
  server.cors:        %v
  chain.rpc_url:      %s
  chain.contract:     %s
  chain.timeout:      %s
  jwt.issuer/ttl:     %s / %s
  jwt.secret:         %s
  nonce.store:        %s (ttl=%dms file=%s)
  ledger.driver:      %s (file=%s hash=%s auto_migrate=%t)
  redis:              %s db=%d prefix=%s
  rate:               enabled=%t window=%s max=%d backend=%s
  auth.recheck:       %t
  log.level:          %s
`,
		c.App.Env,
		c.Server.Addr, c.Server.CORSAllowedOrigins,
		c.Chain.RPCURL, c.Chain.ContractAddress, c.Chain.Timeout,
		c.JWT.Issuer, c.JWT.TTL, maskSecret(c.JWT.Secret),
		c.Nonce.Store, c.Nonce.TTLMs, c.Nonce.File,
		c.Ledger.Driver, c.Ledger.File, c.Ledger.HashAlg, c.AutoMigrate(),
		c.Redis.Addr, c.Redis.DB, c.Redis.Prefix,
		c.RateEnabled(), c.Rate.Window, c.Rate.MaxRequests, c.Rate.Backend,
		c.RecheckIssuer(),
		c.Log.Level,
	)
}

func main() {
	var (
		flagConfigPath = flag.String("config", "", "ruta a config.yaml (fallback: $CONFIG_PATH; sin archivo = solo env)")
		flagEnvFile    = flag.String("env-file", ".env", "ruta a .env (si existe, se carga)")
		flagPrint      = flag.Bool("print-config", false, "imprime config efectiva y termina")
	)
	flag.Parse()

	if *flagEnvFile != "" && fileExists(*flagEnvFile) {
		if err := godotenv.Load(*flagEnvFile); err == nil {
			log.Printf("dotenv: cargado %s", *flagEnvFile)
		}
	}

	cfgPath := *flagConfigPath
	if cfgPath == "" {
		cfgPath = os.Getenv("CONFIG_PATH")
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	if *flagPrint {
		printConfigSummary(cfg)
		return
	}

	logger.Init(logger.Config{
		Env:         cfg.App.Env,
		Level:       cfg.Log.Level,
		ServiceName: "skillspassport",
		Version:     os.Getenv("SERVICE_VERSION"),
	})
	defer func() { _ = logger.Sync() }()
	lg := logger.L()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := server.Build(ctx, cfg, server.Options{})
	if err != nil {
		lg.Fatal("wiring failed", logger.Err(err))
	}
	defer func() {
		if err := app.Close(); err != nil {
			lg.Warn("cleanup error", logger.Err(err))
		}
	}()

	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           app.Handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		lg.Info("service up",
			logger.String("addr", cfg.Server.Addr),
			logger.String("env", cfg.App.Env),
			logger.String("ledger_driver", cfg.Ledger.Driver),
			logger.Int("ledger_entries", app.Ledger.Len()),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		lg.Info("shutting down")
		sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(sctx)
	})

	if err := g.Wait(); err != nil {
		lg.Error("http server stopped with error", logger.Err(err))
		os.Exit(1)
	}
}
