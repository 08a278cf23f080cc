// Package credentials contiene el service HTTP sobre el ledger de credenciales.
package credentials

import (
	"context"
	"errors"
	"strings"

	dto "github.com/dropDatabas3/skillspassport/internal/http/dto/credentials"
	"github.com/dropDatabas3/skillspassport/internal/ledger"
	"github.com/dropDatabas3/skillspassport/internal/metrics"
	"github.com/dropDatabas3/skillspassport/internal/observability/logger"
	"github.com/dropDatabas3/skillspassport/internal/wallet"
)

// ErrInvalidWallet: el filtro ?wallet= no es una dirección.
var ErrInvalidWallet = errors.New("invalid wallet address")

// IssuerChecker re-consulta el estado on-chain antes de mutar.
type IssuerChecker interface {
	IsIssuer(ctx context.Context, address string) (bool, error)
}

type CredentialService interface {
	Mint(ctx context.Context, caller string, in dto.MintRequest) (dto.CredentialResponse, error)
	Revoke(ctx context.Context, caller, id, reason string) (dto.RevokeResponse, error)
	RevokeAt(ctx context.Context, caller string, index int, reason string) (dto.RevokeResponse, error)
	Get(ctx context.Context, id string) (dto.CredentialResponse, bool)
	ListByWallet(ctx context.Context, address string) (dto.ListResponse, error)
	Ledger(ctx context.Context) dto.LedgerResponse
	Verify(ctx context.Context) ledger.IntegrityReport
}

type Deps struct {
	Ledger *ledger.Ledger
	// Issuers nil = confiar en el token sin re-chequear on-chain.
	Issuers IssuerChecker
}

type credentialService struct {
	deps Deps
}

func NewCredentialService(d Deps) CredentialService {
	return &credentialService{deps: d}
}

// authorize arma el Caller. Con Issuers configurado el token solo no alcanza:
// la wallet tiene que seguir registrada on-chain.
func (s *credentialService) authorize(ctx context.Context, caller string) (ledger.Caller, error) {
	c := ledger.Caller{Address: wallet.Lower(caller), Authorized: wallet.IsAddress(caller)}
	if !c.Authorized || s.deps.Issuers == nil {
		return c, nil
	}
	ok, err := s.deps.Issuers.IsIssuer(ctx, c.Address)
	if err != nil {
		return ledger.Caller{}, err
	}
	c.Authorized = ok
	return c, nil
}

func (s *credentialService) Mint(ctx context.Context, caller string, in dto.MintRequest) (dto.CredentialResponse, error) {
	log := logger.From(ctx).With(logger.Layer("service"), logger.Component("credentials"), logger.Op("Mint"))

	c, err := s.authorize(ctx, caller)
	if err != nil {
		return dto.CredentialResponse{}, err
	}
	cred, err := s.deps.Ledger.Mint(ctx, in.Data(), c)
	metrics.RecordLedgerOp("mint", err, s.deps.Ledger.Len())
	if err != nil {
		log.Info("mint rejected", logger.Err(err))
		return dto.CredentialResponse{}, err
	}

	log.Info("credential minted",
		logger.CredentialID(cred.ID),
		logger.Wallet(cred.StudentWallet),
		logger.Hash(cred.Hash),
	)
	return dto.CredentialResponse{Status: s.deps.Ledger.Status(&cred), Credential: &cred}, nil
}

func (s *credentialService) Revoke(ctx context.Context, caller, id, reason string) (dto.RevokeResponse, error) {
	return s.revoke(ctx, caller, reason, logger.CredentialID(id), func(c ledger.Caller) (ledger.Credential, error) {
		return s.deps.Ledger.Revoke(ctx, id, c, reason)
	})
}

func (s *credentialService) RevokeAt(ctx context.Context, caller string, index int, reason string) (dto.RevokeResponse, error) {
	return s.revoke(ctx, caller, reason, logger.EntryIndex(index), func(c ledger.Caller) (ledger.Credential, error) {
		return s.deps.Ledger.RevokeAt(ctx, index, c, reason)
	})
}

func (s *credentialService) revoke(ctx context.Context, caller, reason string, target logger.Field, do func(ledger.Caller) (ledger.Credential, error)) (dto.RevokeResponse, error) {
	log := logger.From(ctx).With(logger.Layer("service"), logger.Component("credentials"), logger.Op("Revoke"), target)

	c, err := s.authorize(ctx, caller)
	if err != nil {
		return dto.RevokeResponse{}, err
	}
	cred, err := do(c)
	metrics.RecordLedgerOp("revoke", err, s.deps.Ledger.Len())
	if err != nil {
		log.Info("revoke rejected", logger.Err(err))
		return dto.RevokeResponse{}, err
	}
	log.Info("credential revoked", logger.CredentialID(cred.ID), logger.String("reason", reason))
	return dto.RevokeResponse{Status: ledger.StatusRevoked, Credential: cred}, nil
}

func (s *credentialService) Get(_ context.Context, id string) (dto.CredentialResponse, bool) {
	cred, ok := s.deps.Ledger.FindByID(strings.TrimSpace(id))
	if !ok {
		return dto.CredentialResponse{Status: ledger.StatusNotFound}, false
	}
	return dto.CredentialResponse{Status: s.deps.Ledger.Status(&cred), Credential: &cred}, true
}

func (s *credentialService) ListByWallet(_ context.Context, address string) (dto.ListResponse, error) {
	if !wallet.IsAddress(address) {
		return dto.ListResponse{}, ErrInvalidWallet
	}
	creds := s.deps.Ledger.FindByWallet(address)
	out := dto.ListResponse{Wallet: wallet.Lower(address), Credentials: make([]dto.CredentialResponse, 0, len(creds))}
	for i := range creds {
		c := creds[i]
		out.Credentials = append(out.Credentials, dto.CredentialResponse{Status: s.deps.Ledger.Status(&c), Credential: &c})
	}
	return out, nil
}

func (s *credentialService) Ledger(_ context.Context) dto.LedgerResponse {
	entries := s.deps.Ledger.Entries()
	return dto.LedgerResponse{
		Head:    ledger.Head(entries),
		HashAlg: string(s.deps.Ledger.HashAlg()),
		Entries: entries,
	}
}

func (s *credentialService) Verify(ctx context.Context) ledger.IntegrityReport {
	// verificar lo persistido, incluido lo que escribieron otras réplicas
	if err := s.deps.Ledger.Refresh(ctx); err != nil {
		logger.From(ctx).Warn("ledger refresh failed, verifying in-memory chain",
			logger.Component("credentials"), logger.Op("Verify"), logger.Err(err),
		)
	}
	rep := s.deps.Ledger.Verify()
	if !rep.OK {
		logger.From(ctx).Warn("ledger integrity check failed",
			logger.Component("credentials"), logger.Op("Verify"),
			logger.Count(len(rep.Issues)),
		)
	}
	return rep
}
