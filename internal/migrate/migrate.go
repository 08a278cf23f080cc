// Package migrate aplica migraciones SQL embebidas.
//
// Formato de archivo: {version}_{name}.sql (ej: 0001_ledger_entry.sql).
// Cada driver implementa Target; el Migrator solo decide qué falta y en qué orden.
package migrate

import (
	"context"
	"fmt"
	"io/fs"
	"path"
	"regexp"
	"sort"
	"strconv"
	"time"
)

// Migration representa una migración individual.
type Migration struct {
	Version int
	Name    string
	SQL     string
}

// Result resultado de aplicar migraciones.
type Result struct {
	Applied  []int
	Skipped  []int
	Failed   *int
	Duration time.Duration
}

// Target es la base de datos destino. Apply debe ejecutar el SQL y registrar
// la versión en la misma transacción.
type Target interface {
	EnsureTable(ctx context.Context) error
	AppliedVersions(ctx context.Context) (map[int]bool, error)
	Apply(ctx context.Context, m Migration) error
}

// Migrator lee migraciones de un fs.FS (normalmente un embed.FS).
type Migrator struct {
	fsys fs.FS
	dir  string
}

func New(fsys fs.FS, dir string) *Migrator {
	return &Migrator{fsys: fsys, dir: dir}
}

var filePattern = regexp.MustCompile(`^(\d+)_(.+)\.sql$`)

// Parse devuelve las migraciones ordenadas por versión.
func (m *Migrator) Parse() ([]Migration, error) {
	entries, err := fs.ReadDir(m.fsys, m.dir)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", m.dir, err)
	}

	var out []Migration
	seen := map[int]string{}
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		match := filePattern.FindStringSubmatch(e.Name())
		if match == nil {
			continue // ignorar archivos que no coinciden
		}
		version, err := strconv.Atoi(match[1])
		if err != nil {
			return nil, fmt.Errorf("bad version in %s: %w", e.Name(), err)
		}
		if prev, dup := seen[version]; dup {
			return nil, fmt.Errorf("duplicate migration version %d: %s and %s", version, prev, e.Name())
		}
		seen[version] = e.Name()

		b, err := fs.ReadFile(m.fsys, path.Join(m.dir, e.Name()))
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", e.Name(), err)
		}
		out = append(out, Migration{Version: version, Name: match[2], SQL: string(b)})
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Version < out[j].Version })
	return out, nil
}

// Pending devuelve las migraciones que todavía no se aplicaron.
func (m *Migrator) Pending(ctx context.Context, t Target) ([]Migration, error) {
	if err := t.EnsureTable(ctx); err != nil {
		return nil, fmt.Errorf("creating migrations table: %w", err)
	}
	applied, err := t.AppliedVersions(ctx)
	if err != nil {
		return nil, fmt.Errorf("getting applied migrations: %w", err)
	}
	all, err := m.Parse()
	if err != nil {
		return nil, err
	}
	var pending []Migration
	for _, mig := range all {
		if !applied[mig.Version] {
			pending = append(pending, mig)
		}
	}
	return pending, nil
}

// Run aplica las migraciones pendientes en orden. Se detiene en la primera que falla.
func (m *Migrator) Run(ctx context.Context, t Target) (*Result, error) {
	start := time.Now()
	res := &Result{}

	if err := t.EnsureTable(ctx); err != nil {
		res.Duration = time.Since(start)
		return res, fmt.Errorf("creating migrations table: %w", err)
	}
	applied, err := t.AppliedVersions(ctx)
	if err != nil {
		res.Duration = time.Since(start)
		return res, fmt.Errorf("getting applied migrations: %w", err)
	}
	all, err := m.Parse()
	if err != nil {
		res.Duration = time.Since(start)
		return res, err
	}

	for _, mig := range all {
		if applied[mig.Version] {
			res.Skipped = append(res.Skipped, mig.Version)
			continue
		}
		if err := t.Apply(ctx, mig); err != nil {
			v := mig.Version
			res.Failed = &v
			res.Duration = time.Since(start)
			return res, fmt.Errorf("applying migration %04d_%s: %w", mig.Version, mig.Name, err)
		}
		res.Applied = append(res.Applied, mig.Version)
	}

	res.Duration = time.Since(start)
	return res, nil
}
