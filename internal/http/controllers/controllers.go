// Package controllers agrupa los controllers HTTP por dominio.
//
// Cascada de construcción: services.New(deps) -> controllers.New(svcs) ->
// router.New(router.Deps{Controllers: ctrls, ...}).
package controllers

import (
	authctrl "github.com/dropDatabas3/skillspassport/internal/http/controllers/auth"
	credctrl "github.com/dropDatabas3/skillspassport/internal/http/controllers/credentials"
	healthctrl "github.com/dropDatabas3/skillspassport/internal/http/controllers/health"
	"github.com/dropDatabas3/skillspassport/internal/http/services"
)

type Controllers struct {
	Auth        *authctrl.Controllers
	Credentials *credctrl.Controllers
	Health      *healthctrl.Controllers
}

func New(s *services.Services) *Controllers {
	return &Controllers{
		Auth:        authctrl.NewControllers(s.Auth),
		Credentials: credctrl.NewControllers(s.Credentials),
		Health:      healthctrl.NewControllers(s.Health),
	}
}
