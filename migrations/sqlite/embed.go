// Package migrations embeds SQL migration files.
package migrations

import "embed"

// LedgerFS contiene las migraciones del ledger para SQLite.
//
//go:embed ledger/*.sql
var LedgerFS embed.FS

const LedgerDir = "ledger"
