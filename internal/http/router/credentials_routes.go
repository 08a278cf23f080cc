package router

import (
	"github.com/go-chi/chi/v5"

	"github.com/dropDatabas3/skillspassport/internal/http/controllers"
	mw "github.com/dropDatabas3/skillspassport/internal/http/middlewares"
)

// Lecturas públicas (verificación por terceros); mutaciones con session token.
func registerCredentialRoutes(r chi.Router, c *controllers.Controllers, deps Deps) {
	cc := c.Credentials.Credentials
	lc := c.Credentials.Ledger

	r.Get("/credentials", cc.List)
	r.Get("/credentials/{id}", cc.Get)
	r.Get("/ledger", lc.Ledger)
	r.Get("/ledger/verify", lc.Verify)

	r.Group(func(g chi.Router) {
		g.Use(mw.RequireWallet(deps.Auth))
		g.Post("/credentials", cc.Mint)
		g.Post("/credentials/{id}/revoke", cc.Revoke)
		g.Post("/ledger/credentials/{index}/revoke", cc.RevokeAt)
	})
}
