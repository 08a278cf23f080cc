// Package services agrupa los services HTTP por dominio.
package services

import (
	"github.com/dropDatabas3/skillspassport/internal/auth"
	authsvc "github.com/dropDatabas3/skillspassport/internal/http/services/auth"
	credsvc "github.com/dropDatabas3/skillspassport/internal/http/services/credentials"
	healthsvc "github.com/dropDatabas3/skillspassport/internal/http/services/health"
	"github.com/dropDatabas3/skillspassport/internal/ledger"
)

// Deps son las dependencias de dominio ya construidas (ver server/wiring.go).
type Deps struct {
	Auth   *auth.Service
	Ledger *ledger.Ledger
	// RecheckIssuer: cada mutación vuelve a preguntar isIssuer on-chain.
	RecheckIssuer bool
	Health        healthsvc.Deps
}

type Services struct {
	Auth        authsvc.Services
	Credentials credsvc.Services
	Health      healthsvc.Services
}

func New(d Deps) *Services {
	cd := credsvc.Deps{Ledger: d.Ledger}
	if d.RecheckIssuer && d.Auth != nil {
		cd.Issuers = d.Auth
	}
	hd := d.Health
	if hd.Ledger == nil {
		hd.Ledger = d.Ledger
	}
	return &Services{
		Auth:        authsvc.NewServices(d.Auth),
		Credentials: credsvc.NewServices(cd),
		Health:      healthsvc.NewServices(hd),
	}
}
