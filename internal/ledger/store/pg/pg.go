// Package pg guarda la cadena en Postgres (pgx/v5).
//
// Cada entry es una fila de ledger_entry en orden de seq. Append toma un
// advisory lock de transacción, comprueba que previousHash sea la cabeza
// actual, inserta y (si es revocación) marca la credencial, todo en la misma
// transacción.
package pg

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dropDatabas3/skillspassport/internal/ledger"
	"github.com/dropDatabas3/skillspassport/internal/migrate"
	migrations "github.com/dropDatabas3/skillspassport/migrations/postgres"
)

// appendLockKey serializa los Append de todos los procesos sobre la misma base.
const appendLockKey int64 = 0x5350_4c45_4447_4552 // "SPLEDGER"

type Store struct {
	pool  *pgxpool.Pool
	owned bool
}

// New abre un pool contra dsn y verifica la conexión.
func New(ctx context.Context, dsn string) (*Store, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("pg ledger: pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pg ledger: ping: %w", err)
	}
	return &Store{pool: pool, owned: true}, nil
}

// NewFromPool usa un pool existente; Close no lo cierra.
func NewFromPool(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

func (s *Store) Pool() *pgxpool.Pool { return s.pool }

func (s *Store) Ping(ctx context.Context) error { return s.pool.Ping(ctx) }

// Migrate aplica las migraciones embebidas del ledger.
func (s *Store) Migrate(ctx context.Context) (*migrate.Result, error) {
	return migrate.New(migrations.LedgerFS, migrations.LedgerDir).Run(ctx, s)
}

func (s *Store) Load(ctx context.Context) ([]ledger.Entry, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT entry_type, COALESCE(status, ''), body
		FROM ledger_entry
		ORDER BY seq ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []ledger.Entry
	for rows.Next() {
		var (
			typ    string
			status string
			body   []byte
		)
		if err := rows.Scan(&typ, &status, &body); err != nil {
			return nil, err
		}
		e, err := decodeRow(typ, status, body)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// decodeRow arma el entry desde el body y pisa el status con la columna,
// que es la que actualizan las revocaciones.
func decodeRow(typ, status string, body []byte) (ledger.Entry, error) {
	var e ledger.Entry
	if err := json.Unmarshal(body, &e); err != nil {
		return e, fmt.Errorf("decode ledger entry: %w", err)
	}
	if string(e.Type) != typ {
		return e, fmt.Errorf("decode ledger entry: type column %q, body %q", typ, e.Type)
	}
	if e.Credential != nil && status != "" {
		e.Credential.Status = ledger.Status(status)
	}
	return e, nil
}

func (s *Store) Append(ctx context.Context, e ledger.Entry) error {
	body, err := json.Marshal(e)
	if err != nil {
		return err
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock($1)`, appendLockKey); err != nil {
		return err
	}

	head := ledger.Genesis
	err = tx.QueryRow(ctx, `SELECT hash FROM ledger_entry ORDER BY seq DESC LIMIT 1`).Scan(&head)
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return err
	}
	if e.PreviousHash() != head {
		return fmt.Errorf("%w: previousHash %s does not match head %s", ledger.ErrConflict, e.PreviousHash(), head)
	}

	switch {
	case e.Type == ledger.EntryCredential && e.Credential != nil:
		c := e.Credential
		_, err = tx.Exec(ctx, `
			INSERT INTO ledger_entry (entry_type, entry_id, credential_id, student_wallet, status, hash, previous_hash, body, created_at)
			VALUES ($1, $2, $2, $3, $4, $5, $6, $7, $8)`,
			string(e.Type), c.ID, c.StudentWallet, string(c.Status), c.Hash, c.PreviousHash, body, c.CreatedAt)
	case e.Type == ledger.EntryRevocation && e.Revocation != nil:
		r := e.Revocation
		if err := markRevoked(ctx, tx, r.CredentialID); err != nil {
			return err
		}
		_, err = tx.Exec(ctx, `
			INSERT INTO ledger_entry (entry_type, entry_id, credential_id, hash, previous_hash, body, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			string(e.Type), r.ID, r.CredentialID, r.Hash, r.PreviousHash, body, r.RevokedAt)
	default:
		return fmt.Errorf("pg ledger: malformed entry of type %q", e.Type)
	}
	if err != nil {
		return mapErr(err)
	}
	return tx.Commit(ctx)
}

func markRevoked(ctx context.Context, tx pgx.Tx, credentialID string) error {
	tag, err := tx.Exec(ctx, `
		UPDATE ledger_entry SET status = 'revoked'
		WHERE entry_type = 'credential' AND entry_id = $1 AND status <> 'revoked'`, credentialID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 1 {
		return nil
	}
	var status string
	err = tx.QueryRow(ctx, `
		SELECT status FROM ledger_entry
		WHERE entry_type = 'credential' AND entry_id = $1`, credentialID).Scan(&status)
	if errors.Is(err, pgx.ErrNoRows) {
		return ledger.ErrNotFound
	}
	if err != nil {
		return err
	}
	return ledger.ErrAlreadyRevoked
}

// mapErr traduce violaciones de unicidad (id o previous_hash repetido) a ErrConflict.
func mapErr(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return fmt.Errorf("%w: %s", ledger.ErrConflict, pgErr.ConstraintName)
	}
	return err
}

func (s *Store) Close() error {
	if s.owned {
		s.pool.Close()
	}
	return nil
}

// ─── migrate.Target ───

func (s *Store) EnsureTable(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS _migrations (
			version INT PRIMARY KEY,
			name VARCHAR(255) NOT NULL,
			applied_at TIMESTAMPTZ DEFAULT NOW()
		)`)
	return err
}

func (s *Store) AppliedVersions(ctx context.Context) (map[int]bool, error) {
	rows, err := s.pool.Query(ctx, `SELECT version FROM _migrations`)
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
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, m.SQL); err != nil {
		return err
	}
	if _, err := tx.Exec(ctx, `INSERT INTO _migrations (version, name) VALUES ($1, $2)`, m.Version, m.Name); err != nil {
		return err
	}
	return tx.Commit(ctx)
}
