package credentials

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dropDatabas3/skillspassport/internal/chain"
	dto "github.com/dropDatabas3/skillspassport/internal/http/dto/credentials"
	"github.com/dropDatabas3/skillspassport/internal/ledger"
	"github.com/dropDatabas3/skillspassport/internal/ledger/store/memory"
)

const (
	issuerAddr  = "0x27b1fdb04752bbc536007a920d24acb045561c26"
	studentAddr = "0xde709f2102306220921060314715629080e2fb77"
)

func newService(t *testing.T, issuers IssuerChecker) (CredentialService, *ledger.Ledger) {
	t.Helper()
	l, err := ledger.Open(context.Background(), memory.New(), ledger.Options{})
	require.NoError(t, err)
	return NewCredentialService(Deps{Ledger: l, Issuers: issuers}), l
}

func mintReq() dto.MintRequest {
	return dto.MintRequest{
		InstitutionName: "Uni",
		StudentName:     "Ana",
		StudentWallet:   studentAddr,
		CourseName:      "Go",
		IssueDate:       "2024-01-01",
	}
}

func TestMint_StampsIssuerAndStatus(t *testing.T) {
	svc, l := newService(t, chain.NewStatic(issuerAddr))
	ctx := context.Background()

	resp, err := svc.Mint(ctx, issuerAddr, mintReq())
	require.NoError(t, err)
	require.Equal(t, ledger.StatusActive, resp.Status)
	require.Equal(t, issuerAddr, resp.Credential.IssuerAddress)
	require.Equal(t, 1, l.Len())

	got, ok := svc.Get(ctx, resp.Credential.ID)
	require.True(t, ok)
	require.Equal(t, resp.Credential.Hash, got.Credential.Hash)
}

func TestMint_RecheckRejectsRemovedIssuer(t *testing.T) {
	svc, l := newService(t, chain.NewStatic())
	_, err := svc.Mint(context.Background(), issuerAddr, mintReq())
	require.ErrorIs(t, err, ledger.ErrUnauthorized)
	require.Equal(t, 0, l.Len())
}

func TestMint_RecheckPropagatesChainErrors(t *testing.T) {
	boom := errors.New("rpc down")
	svc, l := newService(t, &chain.Static{Err: boom})
	_, err := svc.Mint(context.Background(), issuerAddr, mintReq())
	require.ErrorIs(t, err, boom)
	require.Equal(t, 0, l.Len())
}

func TestMint_WithoutRecheckTrustsToken(t *testing.T) {
	svc, _ := newService(t, nil)
	_, err := svc.Mint(context.Background(), issuerAddr, mintReq())
	require.NoError(t, err)

	_, err = svc.Mint(context.Background(), "", mintReq())
	require.ErrorIs(t, err, ledger.ErrUnauthorized)
}

func TestRevoke_ByIDAndIndex(t *testing.T) {
	svc, _ := newService(t, nil)
	ctx := context.Background()

	a, err := svc.Mint(ctx, issuerAddr, mintReq())
	require.NoError(t, err)
	_, err = svc.Mint(ctx, issuerAddr, mintReq())
	require.NoError(t, err)

	rev, err := svc.Revoke(ctx, issuerAddr, a.Credential.ID, "typo")
	require.NoError(t, err)
	require.Equal(t, ledger.StatusRevoked, rev.Status)

	_, err = svc.Revoke(ctx, issuerAddr, a.Credential.ID, "")
	require.ErrorIs(t, err, ledger.ErrAlreadyRevoked)

	_, err = svc.RevokeAt(ctx, issuerAddr, 1, "")
	require.NoError(t, err)
	_, err = svc.RevokeAt(ctx, issuerAddr, 5, "")
	require.ErrorIs(t, err, ledger.ErrNotFound)

	require.True(t, svc.Verify(ctx).OK)
	require.Len(t, svc.Ledger(ctx).Entries, 4)
}

func TestGetAndList(t *testing.T) {
	svc, _ := newService(t, nil)
	ctx := context.Background()

	resp, ok := svc.Get(ctx, "CERT-nope")
	require.False(t, ok)
	require.Equal(t, ledger.StatusNotFound, resp.Status)
	require.Nil(t, resp.Credential)

	_, err := svc.Mint(ctx, issuerAddr, mintReq())
	require.NoError(t, err)

	list, err := svc.ListByWallet(ctx, "0xDE709F2102306220921060314715629080E2FB77")
	require.NoError(t, err)
	require.Equal(t, studentAddr, list.Wallet)
	require.Len(t, list.Credentials, 1)

	_, err = svc.ListByWallet(ctx, "ana")
	require.ErrorIs(t, err, ErrInvalidWallet)
}
