// Package auth expone al layer HTTP el login por wallet de internal/auth.
package auth

import (
	"context"

	"github.com/dropDatabas3/skillspassport/internal/auth"
)

// WalletAuthService es lo que los controllers necesitan del login.
// *auth.Service lo implementa.
type WalletAuthService interface {
	RequestNonce(ctx context.Context, address string) (string, error)
	Authenticate(ctx context.Context, address, signature string) (*auth.Session, error)
	ValidateToken(ctx context.Context, raw string) (string, error)
}

type Services struct {
	Wallet WalletAuthService
}

func NewServices(s WalletAuthService) Services {
	return Services{Wallet: s}
}
