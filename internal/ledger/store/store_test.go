package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dropDatabas3/skillspassport/internal/ledger/store/fs"
	"github.com/dropDatabas3/skillspassport/internal/ledger/store/memory"
	"github.com/dropDatabas3/skillspassport/internal/ledger/store/sqlite"
)

func TestOpen_Drivers(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	st, err := Open(ctx, Config{File: filepath.Join(dir, "ledger.json")})
	require.NoError(t, err)
	require.IsType(t, &fs.Store{}, st)

	st, err = Open(ctx, Config{Driver: "memory"})
	require.NoError(t, err)
	require.IsType(t, &memory.Store{}, st)

	st, err = Open(ctx, Config{Driver: "SQLite", DSN: filepath.Join(dir, "ledger.db")})
	require.NoError(t, err)
	require.IsType(t, &sqlite.Store{}, st)
	_, ok := st.(Pinger)
	require.True(t, ok)
	require.NoError(t, st.Close())
}

func TestOpen_Errors(t *testing.T) {
	ctx := context.Background()

	_, err := Open(ctx, Config{Driver: "postgres"})
	require.Error(t, err)
	_, err = Open(ctx, Config{Driver: "sqlite"})
	require.Error(t, err)
	_, err = Open(ctx, Config{Driver: "mongo"})
	require.Error(t, err)
	_, err = Open(ctx, Config{Driver: "fs"})
	require.Error(t, err)
}
