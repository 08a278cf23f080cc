// Package auth implementa el login por firma de wallet.
//
// Flujo: RequestNonce emite un desafío para la dirección; el cliente lo firma
// con personal_sign; Authenticate recupera el firmante, exige que coincida con
// la dirección, consulta isIssuer on-chain y recién entonces consume el nonce
// y emite el session token.
package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dropDatabas3/skillspassport/internal/chain"
	"github.com/dropDatabas3/skillspassport/internal/metrics"
	"github.com/dropDatabas3/skillspassport/internal/nonce"
	"github.com/dropDatabas3/skillspassport/internal/observability/logger"
	"github.com/dropDatabas3/skillspassport/internal/token"
	"github.com/dropDatabas3/skillspassport/internal/wallet"
)

var (
	ErrMissingFields     = errors.New("address & signature required")
	ErrInvalidAddress    = errors.New("invalid address")
	ErrNonceNotFound     = errors.New("nonce not found. request /api/nonce first")
	ErrNonceExpired      = errors.New("nonce expired. request a new one")
	ErrInvalidSignature  = errors.New("invalid signature")
	ErrSignatureMismatch = errors.New("signature does not match address")
	ErrNotAnIssuer       = errors.New("address is not a registered issuer on-chain")
	ErrChainUnavailable  = errors.New("on-chain verification failed")
	// ErrChainNotConfigured también satisface errors.Is(err, ErrChainUnavailable).
	ErrChainNotConfigured = fmt.Errorf("%w: on-chain provider or contract not configured on server", ErrChainUnavailable)
	ErrInvalidToken       = errors.New("invalid token")
)

// Outcomes para logs y auth_attempts_total.
const (
	OutcomeVerified          = "verified"
	OutcomeMissingFields     = "missing_fields"
	OutcomeInvalidAddress    = "invalid_address"
	OutcomeNonceNotFound     = "nonce_not_found"
	OutcomeNonceExpired      = "nonce_expired"
	OutcomeInvalidSignature  = "invalid_signature"
	OutcomeSignatureMismatch = "signature_mismatch"
	OutcomeNotIssuer         = "not_issuer"
	OutcomeChainUnavailable  = "chain_unavailable"
	OutcomeError             = "error"
)

// Session es el resultado de un login exitoso.
type Session struct {
	Address   string    `json:"address"`
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
}

type Deps struct {
	Nonces   *nonce.Store
	Registry chain.Registry
	Tokens   *token.Issuer
}

type Service struct {
	nonces   *nonce.Store
	registry chain.Registry
	tokens   *token.Issuer
}

func NewService(d Deps) *Service {
	reg := d.Registry
	if reg == nil {
		reg = chain.Unconfigured{}
	}
	return &Service{nonces: d.Nonces, registry: reg, tokens: d.Tokens}
}

// RequestNonce emite (o reemplaza) el nonce de address.
func (s *Service) RequestNonce(ctx context.Context, address string) (string, error) {
	address = strings.TrimSpace(address)
	n, err := s.nonces.Issue(ctx, address)
	if errors.Is(err, nonce.ErrInvalidAddress) {
		return "", ErrInvalidAddress
	}
	if err != nil {
		return "", err
	}
	metrics.NoncesIssued.Inc()
	logger.From(ctx).Debug("nonce issued",
		logger.Component("auth"), logger.Op("RequestNonce"), logger.Address(wallet.Lower(address)))
	return n, nil
}

// Authenticate verifica la firma del nonce vigente y emite un session token.
// Ante cualquier rechazo el nonce queda como estaba, salvo que haya expirado.
func (s *Service) Authenticate(ctx context.Context, address, signature string) (*Session, error) {
	address = strings.TrimSpace(address)
	signature = strings.TrimSpace(signature)
	log := logger.From(ctx).With(logger.Component("auth"), logger.Op("Authenticate"))

	sess, outcome, err := s.authenticate(ctx, address, signature)
	metrics.RecordAuthAttempt(outcome)

	fields := []logger.Field{logger.Outcome(outcome)}
	if address != "" {
		fields = append(fields, logger.Address(wallet.Lower(address)))
	}
	switch outcome {
	case OutcomeVerified:
		log.Info("wallet login verified", fields...)
	case OutcomeChainUnavailable, OutcomeError:
		log.Error("wallet login failed", append(fields, logger.Err(err))...)
	default:
		log.Info("wallet login rejected", fields...)
	}
	return sess, err
}

func (s *Service) authenticate(ctx context.Context, address, signature string) (*Session, string, error) {
	if address == "" || signature == "" {
		return nil, OutcomeMissingFields, ErrMissingFields
	}
	if !wallet.IsAddress(address) {
		return nil, OutcomeInvalidAddress, ErrInvalidAddress
	}

	entry, err := s.nonces.Peek(ctx, address, 0)
	switch {
	case errors.Is(err, nonce.ErrNotFound):
		return nil, OutcomeNonceNotFound, ErrNonceNotFound
	case errors.Is(err, nonce.ErrExpired):
		return nil, OutcomeNonceExpired, ErrNonceExpired
	case err != nil:
		return nil, OutcomeError, err
	}

	signer, err := wallet.RecoverAddress(entry.Nonce, signature)
	if err != nil {
		return nil, OutcomeInvalidSignature, ErrInvalidSignature
	}
	if !wallet.Equal(signer, address) {
		return nil, OutcomeSignatureMismatch, ErrSignatureMismatch
	}

	ok, err := s.registry.IsIssuer(ctx, signer)
	switch {
	case errors.Is(err, chain.ErrNotConfigured):
		return nil, OutcomeChainUnavailable, ErrChainNotConfigured
	case err != nil:
		return nil, OutcomeChainUnavailable, fmt.Errorf("%w: %v", ErrChainUnavailable, err)
	case !ok:
		return nil, OutcomeNotIssuer, ErrNotAnIssuer
	}

	// el nonce consumido tiene que ser el mismo que se firmó
	taken, err := s.nonces.Consume(ctx, address)
	if errors.Is(err, nonce.ErrNotFound) || (err == nil && taken.Nonce != entry.Nonce) {
		return nil, OutcomeNonceNotFound, ErrNonceNotFound
	}
	if err != nil {
		return nil, OutcomeError, err
	}

	raw, exp, err := s.tokens.Issue(signer)
	if err != nil {
		return nil, OutcomeError, err
	}
	return &Session{Address: wallet.Lower(signer), Token: raw, ExpiresAt: exp}, OutcomeVerified, nil
}

// ValidateToken devuelve la dirección (minúsculas) del token.
func (s *Service) ValidateToken(_ context.Context, raw string) (string, error) {
	c, err := s.tokens.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	return c.Address, nil
}

// IsIssuer re-consulta el registro on-chain (usado antes de mutar el ledger).
func (s *Service) IsIssuer(ctx context.Context, address string) (bool, error) {
	ok, err := s.registry.IsIssuer(ctx, address)
	if errors.Is(err, chain.ErrNotConfigured) {
		return false, ErrChainNotConfigured
	}
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrChainUnavailable, err)
	}
	return ok, nil
}
