// Package credentials contiene los controllers del ledger de credenciales.
package credentials

import svc "github.com/dropDatabas3/skillspassport/internal/http/services/credentials"

type Controllers struct {
	Credentials *CredentialsController
	Ledger      *LedgerController
}

func NewControllers(s svc.Services) *Controllers {
	return &Controllers{
		Credentials: NewCredentialsController(s.Credentials),
		Ledger:      NewLedgerController(s.Credentials),
	}
}
