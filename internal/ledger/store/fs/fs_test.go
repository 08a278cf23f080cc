package fs

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/dropDatabas3/skillspassport/internal/ledger"
)

var issuer = ledger.Caller{Address: "0x27b1fdb04752bbc536007a920d24acb045561c26", Authorized: true}

func data(course string) ledger.CredentialData {
	return ledger.CredentialData{
		InstitutionName: "Uni",
		StudentName:     "Ana",
		StudentWallet:   "0xde709f2102306220921060314715629080e2fb77",
		CourseName:      course,
		IssueDate:       "2024-01-01",
	}
}

func TestStore_SurvivesRestart(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "data", "ledger.json")

	st, err := New(path)
	require.NoError(t, err)
	l, err := ledger.Open(ctx, st, ledger.Options{})
	require.NoError(t, err)

	c, err := l.Mint(ctx, data("Go"), issuer)
	require.NoError(t, err)
	_, err = l.Mint(ctx, data("SQL"), issuer)
	require.NoError(t, err)
	_, err = l.Revoke(ctx, c.ID, issuer, "typo")
	require.NoError(t, err)

	info, err := os.Stat(path)
	require.NoError(t, err)
	require.Equal(t, os.FileMode(filePerm), info.Mode().Perm())

	// reabrir desde disco
	st2, err := New(path)
	require.NoError(t, err)
	l2, err := ledger.Open(ctx, st2, ledger.Options{})
	require.NoError(t, err)

	require.Equal(t, l.Entries(), l2.Entries())
	got, ok := l2.FindByID(c.ID)
	require.True(t, ok)
	require.Equal(t, ledger.StatusRevoked, got.Status)
	require.True(t, l2.Verify().OK)
}

func TestStore_LoadsLegacyArray(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "ledger.json")

	c := ledger.Credential{
		ID:             "CERT-1700000000000-1111",
		CredentialData: data("HTML"),
		PreviousHash:   ledger.Genesis,
		Status:         ledger.StatusActive,
		CreatedAt:      time.Date(2023, 11, 14, 0, 0, 0, 0, time.UTC),
	}
	h, err := c.ComputeHash()
	require.NoError(t, err)
	c.Hash = h

	b, err := json.Marshal([]ledger.Credential{c})
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, b, 0o600))

	st, err := New(path)
	require.NoError(t, err)
	entries, err := st.Load(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.Equal(t, ledger.EntryCredential, entries[0].Type)
	require.Equal(t, c.ID, entries[0].Credential.ID)
	require.True(t, ledger.VerifyEntries(entries).OK)

	// el primer Append reescribe en formato nuevo
	l, err := ledger.Open(ctx, st, ledger.Options{})
	require.NoError(t, err)
	_, err = l.Mint(ctx, data("CSS"), issuer)
	require.NoError(t, err)

	var raw []map[string]any
	b, err = os.ReadFile(path)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(b, &raw))
	require.Len(t, raw, 2)
	require.Equal(t, "credential", raw[0]["type"])
}

func TestStore_RejectsStaleHead(t *testing.T) {
	ctx := context.Background()
	st, err := New(filepath.Join(t.TempDir(), "ledger.json"))
	require.NoError(t, err)
	_, err = st.Load(ctx)
	require.NoError(t, err)

	c := ledger.Credential{ID: "CERT-1-1000", CredentialData: data("Go"), PreviousHash: "0xnot-the-head", HashAlg: ledger.HashSHA256, Status: ledger.StatusActive}
	err = st.Append(ctx, ledger.Entry{Type: ledger.EntryCredential, Credential: &c})
	require.ErrorIs(t, err, ledger.ErrConflict)
}

func TestStore_CorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ledger.json")
	require.NoError(t, os.WriteFile(path, []byte(`[{"type":`), 0o600))

	st, err := New(path)
	require.NoError(t, err)
	_, err = st.Load(context.Background())
	require.Error(t, err)
}
