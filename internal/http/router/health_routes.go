package router

import (
	"github.com/go-chi/chi/v5"

	"github.com/dropDatabas3/skillspassport/internal/http/controllers"
)

// Públicas, sin auth ni rate limit.
func registerHealthRoutes(r chi.Router, c *controllers.Controllers) {
	h := c.Health.Health
	r.Get("/", h.Banner)
	r.Get("/healthz", h.Healthz)
	r.Get("/readyz", h.Readyz)
}
