package client

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dropDatabas3/skillspassport/internal/chain"
	"github.com/dropDatabas3/skillspassport/internal/config"
	creddto "github.com/dropDatabas3/skillspassport/internal/http/dto/credentials"
	"github.com/dropDatabas3/skillspassport/internal/http/server"
	"github.com/dropDatabas3/skillspassport/internal/ledger"
	"github.com/dropDatabas3/skillspassport/internal/sessiongate"
	"github.com/dropDatabas3/skillspassport/internal/wallet"
)

func newBackend(t *testing.T, issuers ...string) *httptest.Server {
	t.Helper()
	t.Setenv("LEDGER_DRIVER", "memory")
	t.Setenv("NONCE_STORE", "memory")
	t.Setenv("JWT_SECRET", "client-test-secret")
	cfg, err := config.Load("")
	require.NoError(t, err)

	app, err := server.Build(context.Background(), cfg, server.Options{
		Registry:       chain.NewStatic(issuers...),
		DisableMetrics: true,
	})
	require.NoError(t, err)
	srv := httptest.NewServer(app.Handler)
	t.Cleanup(func() {
		srv.Close()
		_ = app.Close()
	})
	return srv
}

func TestClient_IssuerFlow(t *testing.T) {
	ctx := context.Background()
	key, err := wallet.NewKey()
	require.NoError(t, err)
	srv := newBackend(t, wallet.AddressOf(key))
	c := New(srv.URL)

	sess, err := c.LoginWithKey(ctx, key)
	require.NoError(t, err)
	require.Equal(t, wallet.AddressOf(key), sess.Address)

	gate, err := sessiongate.Open(sessiongate.NewFileStore(filepath.Join(t.TempDir(), "session.json")))
	require.NoError(t, err)
	require.NoError(t, gate.Login(sess))

	restored, err := gate.Restore(ctx, c)
	require.NoError(t, err)
	authed := c.WithToken(restored.Token)

	minted, err := authed.Mint(ctx, creddto.MintRequest{
		InstitutionName: "Uni", StudentName: "Ana", StudentWallet: sess.Address,
		CourseName: "Go", IssueDate: "2024-01-01",
	})
	require.NoError(t, err)
	require.Equal(t, ledger.StatusActive, minted.Status)

	got, err := c.Get(ctx, minted.Credential.ID)
	require.NoError(t, err)
	require.Equal(t, minted.Credential.Hash, got.Credential.Hash)

	missing, err := c.Get(ctx, "CERT-0-0000")
	require.NoError(t, err)
	require.Equal(t, ledger.StatusNotFound, missing.Status)

	list, err := c.ListByWallet(ctx, sess.Address)
	require.NoError(t, err)
	require.Len(t, list.Credentials, 1)

	rev, err := authed.RevokeAt(ctx, 0, "duplicada")
	require.NoError(t, err)
	require.Equal(t, ledger.StatusRevoked, rev.Status)

	_, err = authed.Revoke(ctx, minted.Credential.ID, "")
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	require.Equal(t, http.StatusConflict, apiErr.Status)
	require.Equal(t, "ALREADY_REVOKED", apiErr.Code)

	rep, err := c.Verify(ctx)
	require.NoError(t, err)
	require.True(t, rep.OK)

	led, err := c.Ledger(ctx)
	require.NoError(t, err)
	require.Len(t, led.Entries, 2)
}

func TestClient_DistinguishesFailures(t *testing.T) {
	ctx := context.Background()
	key, err := wallet.NewKey()
	require.NoError(t, err)
	srv := newBackend(t) // sin issuers

	c := New(srv.URL)
	_, err = c.LoginWithKey(ctx, key)
	require.ErrorIs(t, err, ErrNotAuthorized)
	require.NotErrorIs(t, err, ErrUnreachable)

	_, err = c.WithToken("garbage").Mint(ctx, creddto.MintRequest{})
	require.ErrorIs(t, err, ErrNotAuthorized)

	addr, ok, err := c.VerifySession(ctx, "garbage")
	require.NoError(t, err)
	require.False(t, ok)
	require.Empty(t, addr)

	dead := httptest.NewServer(http.NotFoundHandler())
	deadURL := dead.URL
	dead.Close()
	_, err = New(deadURL).Me(ctx)
	require.ErrorIs(t, err, ErrUnreachable)
	_, _, err = New(deadURL).VerifySession(ctx, "tok")
	require.ErrorIs(t, err, ErrUnreachable)
}

func TestAPIError_Message(t *testing.T) {
	e := &APIError{Status: 400, Code: "INVALID_CREDENTIAL", Message: "invalid credential data", Detail: "issueDate: must be YYYY-MM-DD"}
	require.Contains(t, e.Error(), "invalid credential data (issueDate")
	require.NotErrorIs(t, e, ErrNotAuthorized)
}
