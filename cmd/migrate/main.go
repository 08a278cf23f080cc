package main

import (
	"context"
	"flag"
	"log"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/dropDatabas3/skillspassport/internal/config"
	"github.com/dropDatabas3/skillspassport/internal/ledger/store/pg"
	"github.com/dropDatabas3/skillspassport/internal/migrate"
	migrations "github.com/dropDatabas3/skillspassport/migrations/postgres"
)

// Aplica las migraciones embebidas del ledger en Postgres.
//
//	migrate [-config path] [-dsn url] [up|status]
func main() {
	var (
		configPath = flag.String("config", os.Getenv("CONFIG_PATH"), "Path to YAML config (opcional)")
		dsnFlag    = flag.String("dsn", "", "DSN de Postgres (default: ledger.dsn / LEDGER_DSN)")
		envFile    = flag.String("env-file", ".env", "ruta a .env (si existe, se carga)")
	)
	flag.Parse()

	if *envFile != "" {
		_ = godotenv.Load(*envFile)
	}

	action := "up"
	if args := flag.Args(); len(args) >= 1 && args[0] != "" {
		action = strings.ToLower(args[0])
	}

	dsn := strings.TrimSpace(*dsnFlag)
	if dsn == "" {
		cfg, err := config.Load(*configPath)
		if err != nil {
			log.Fatalf("config load: %v", err)
		}
		dsn = cfg.Ledger.DSN
	}
	if dsn == "" {
		log.Fatal("falta DSN: usar -dsn o LEDGER_DSN")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	st, err := pg.New(ctx, dsn)
	if err != nil {
		log.Fatalf("connect: %v", err)
	}
	defer st.Close()

	m := migrate.New(migrations.LedgerFS, migrations.LedgerDir)

	switch action {
	case "up":
		res, err := m.Run(ctx, st)
		if err != nil {
			log.Fatalf("migrate: %v", err)
		}
		if len(res.Applied) == 0 {
			log.Println("Nothing to do: ledger schema is up to date.")
			return
		}
		log.Printf("Applied %v (skipped %d) in %s", res.Applied, len(res.Skipped), res.Duration.Truncate(time.Millisecond))

	case "status":
		pending, err := m.Pending(ctx, st)
		if err != nil {
			log.Fatalf("status: %v", err)
		}
		if len(pending) == 0 {
			log.Println("Up to date.")
			return
		}
		for _, p := range pending {
			log.Printf("pending %04d_%s", p.Version, p.Name)
		}

	default:
		log.Fatalf("unknown action %q. Use: up | status", action)
	}
}
