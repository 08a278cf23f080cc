// Package sqlite guarda la cadena en un archivo SQLite (modernc.org/sqlite,
// sin cgo). Mismo esquema y semántica transaccional que el store de Postgres.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	msqlite "modernc.org/sqlite"
	sqlite3lib "modernc.org/sqlite/lib"

	"github.com/dropDatabas3/skillspassport/internal/ledger"
	"github.com/dropDatabas3/skillspassport/internal/migrate"
	migrations "github.com/dropDatabas3/skillspassport/migrations/sqlite"
)

type Store struct {
	db *sql.DB
}

// Open abre (o crea) la base en path y aplica las migraciones embebidas.
func Open(ctx context.Context, path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("sqlite ledger: storage path is required")
	}
	cleanPath := filepath.Clean(path)
	// _txlock=immediate: BEGIN toma el lock de escritura de entrada.
	dsn := cleanPath + "?_journal_mode=WAL&_foreign_keys=ON&_busy_timeout=5000&_synchronous=NORMAL&_txlock=immediate"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	s := &Store{db: db}
	if _, err := migrate.New(migrations.LedgerFS, migrations.LedgerDir).Run(ctx, s); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return s, nil
}

func (s *Store) Ping(ctx context.Context) error { return s.db.PingContext(ctx) }

func (s *Store) Load(ctx context.Context) ([]ledger.Entry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT entry_type, COALESCE(status, ''), body
		FROM ledger_entry
		ORDER BY seq ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []ledger.Entry
	for rows.Next() {
		var typ, status, body string
		if err := rows.Scan(&typ, &status, &body); err != nil {
			return nil, err
		}
		var e ledger.Entry
		if err := json.Unmarshal([]byte(body), &e); err != nil {
			return nil, fmt.Errorf("decode ledger entry: %w", err)
		}
		if string(e.Type) != typ {
			return nil, fmt.Errorf("decode ledger entry: type column %q, body %q", typ, e.Type)
		}
		if e.Credential != nil && status != "" {
			e.Credential.Status = ledger.Status(status)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (s *Store) Append(ctx context.Context, e ledger.Entry) error {
	body, err := json.Marshal(e)
	if err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	head := ledger.Genesis
	err = tx.QueryRowContext(ctx, `SELECT hash FROM ledger_entry ORDER BY seq DESC LIMIT 1`).Scan(&head)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return err
	}
	if e.PreviousHash() != head {
		return fmt.Errorf("%w: previousHash %s does not match head %s", ledger.ErrConflict, e.PreviousHash(), head)
	}

	switch {
	case e.Type == ledger.EntryCredential && e.Credential != nil:
		c := e.Credential
		_, err = tx.ExecContext(ctx, `
			INSERT INTO ledger_entry (entry_type, entry_id, credential_id, student_wallet, status, hash, previous_hash, body, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			string(e.Type), c.ID, c.ID, c.StudentWallet, string(c.Status), c.Hash, c.PreviousHash, string(body), formatTime(c.CreatedAt))
	case e.Type == ledger.EntryRevocation && e.Revocation != nil:
		r := e.Revocation
		if err := markRevoked(ctx, tx, r.CredentialID); err != nil {
			return err
		}
		_, err = tx.ExecContext(ctx, `
			INSERT INTO ledger_entry (entry_type, entry_id, credential_id, hash, previous_hash, body, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?)`,
			string(e.Type), r.ID, r.CredentialID, r.Hash, r.PreviousHash, string(body), formatTime(r.RevokedAt))
	default:
		return fmt.Errorf("sqlite ledger: malformed entry of type %q", e.Type)
	}
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: %v", ledger.ErrConflict, err)
		}
		return err
	}
	return tx.Commit()
}

func markRevoked(ctx context.Context, tx *sql.Tx, credentialID string) error {
	res, err := tx.ExecContext(ctx, `
		UPDATE ledger_entry SET status = 'revoked'
		WHERE entry_type = 'credential' AND entry_id = ? AND status <> 'revoked'`, credentialID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 1 {
		return nil
	}
	var status string
	err = tx.QueryRowContext(ctx, `
		SELECT status FROM ledger_entry
		WHERE entry_type = 'credential' AND entry_id = ?`, credentialID).Scan(&status)
	if errors.Is(err, sql.ErrNoRows) {
		return ledger.ErrNotFound
	}
	if err != nil {
		return err
	}
	return ledger.ErrAlreadyRevoked
}

func formatTime(t time.Time) string {
	return t.UTC().Format("2006-01-02T15:04:05.000Z")
}

func isUniqueViolation(err error) bool {
	var sqliteErr *msqlite.Error
	if errors.As(err, &sqliteErr) {
		switch sqliteErr.Code() {
		case sqlite3lib.SQLITE_CONSTRAINT_PRIMARYKEY, sqlite3lib.SQLITE_CONSTRAINT_UNIQUE:
			return true
		}
	}
	return strings.Contains(strings.ToLower(err.Error()), "unique constraint failed")
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// ─── migrate.Target ───

func (s *Store) EnsureTable(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS _migrations (
			version INTEGER PRIMARY KEY,
			name TEXT NOT NULL,
			applied_at TEXT DEFAULT CURRENT_TIMESTAMP
		)`)
	return err
}

func (s *Store) AppliedVersions(ctx context.Context) (map[int]bool, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT version FROM _migrations`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	applied := map[int]bool{}
	for rows.Next() {
		var v int
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		applied[v] = true
	}
	return applied, rows.Err()
}

func (s *Store) Apply(ctx context.Context, m migrate.Migration) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, m.SQL); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `INSERT INTO _migrations (version, name) VALUES (?, ?)`, m.Version, m.Name); err != nil {
		return err
	}
	return tx.Commit()
}
