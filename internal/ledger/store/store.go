// Package store elige el backend del ledger según configuración.
package store

import (
	"context"
	"fmt"
	"strings"

	"github.com/dropDatabas3/skillspassport/internal/ledger"
	"github.com/dropDatabas3/skillspassport/internal/ledger/store/fs"
	"github.com/dropDatabas3/skillspassport/internal/ledger/store/memory"
	"github.com/dropDatabas3/skillspassport/internal/ledger/store/pg"
	"github.com/dropDatabas3/skillspassport/internal/ledger/store/sqlite"
)

const (
	DriverFS       = "fs"
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
	DriverMemory   = "memory"
)

type Config struct {
	Driver string
	// File es el snapshot JSON del driver fs.
	File string
	// DSN: URL de Postgres o path del archivo SQLite.
	DSN string
	// Migrate aplica migraciones al abrir Postgres (SQLite siempre migra).
	Migrate bool
}

// Pinger lo implementan los backends con conexión remota; lo usa /readyz.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Open construye el Store configurado.
func Open(ctx context.Context, cfg Config) (ledger.Store, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Driver)) {
	case "", DriverFS:
		return fs.New(cfg.File)
	case DriverPostgres, "pg":
		if strings.TrimSpace(cfg.DSN) == "" {
			return nil, fmt.Errorf("ledger store: postgres requires a DSN")
		}
		st, err := pg.New(ctx, cfg.DSN)
		if err != nil {
			return nil, err
		}
		if cfg.Migrate {
			if _, err := st.Migrate(ctx); err != nil {
				_ = st.Close()
				return nil, fmt.Errorf("ledger store: migrate: %w", err)
			}
		}
		return st, nil
	case DriverSQLite:
		if strings.TrimSpace(cfg.DSN) == "" {
			return nil, fmt.Errorf("ledger store: sqlite requires a DSN (file path)")
		}
		return sqlite.Open(ctx, cfg.DSN)
	case DriverMemory:
		return memory.New(), nil
	default:
		return nil, fmt.Errorf("ledger store: unknown driver %q", cfg.Driver)
	}
}
