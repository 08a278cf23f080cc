package router

import (
	"github.com/go-chi/chi/v5"

	"github.com/dropDatabas3/skillspassport/internal/http/controllers"
	mw "github.com/dropDatabas3/skillspassport/internal/http/middlewares"
)

// registerAuthRoutes: nonce y login comparten el limiter por IP+path.
func registerAuthRoutes(r chi.Router, c *controllers.Controllers, deps Deps) {
	a := c.Auth

	r.Group(func(g chi.Router) {
		g.Use(mw.WithNoStore())
		g.Use(mw.WithRateLimit(mw.RateLimitConfig{Limiter: deps.RateLimiter, KeyFunc: mw.IPPathRateKey}))
		g.Get("/nonce", a.Nonce.Nonce)
		g.Post("/auth/wallet", a.Login.WalletLogin)
	})

	r.Group(func(g chi.Router) {
		g.Use(mw.WithNoStore())
		g.Use(mw.RequireWallet(deps.Auth))
		g.Get("/me", a.Me.Me)
	})
}
