// Package router arma el árbol de rutas (chi) y el chain de middlewares.
package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/dropDatabas3/skillspassport/internal/http/controllers"
	httperrors "github.com/dropDatabas3/skillspassport/internal/http/errors"
	mw "github.com/dropDatabas3/skillspassport/internal/http/middlewares"
	"github.com/dropDatabas3/skillspassport/internal/rate"
)

// Deps contiene todo lo que el router necesita ya construido.
type Deps struct {
	Controllers *controllers.Controllers

	// Auth valida el Bearer token de las rutas protegidas.
	Auth mw.TokenValidator
	// RateLimiter nil deshabilita el rate limit de /api/nonce y /api/auth/wallet.
	RateLimiter rate.Limiter

	CORSAllowedOrigins []string

	// Metrics es el handler de /metrics; nil = sin métricas HTTP.
	Metrics        http.Handler
	MetricsWrapper func(http.Handler) http.Handler
}

func New(deps Deps) http.Handler {
	r := chi.NewRouter()

	// Logging y métricas van dentro de chi para ver el patrón de la ruta.
	r.Use(mw.WithLogging())
	if deps.MetricsWrapper != nil {
		r.Use(deps.MetricsWrapper)
	}
	r.Use(mw.WithSecurityHeaders())
	r.Use(mw.WithCORS(deps.CORSAllowedOrigins))

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		httperrors.WriteError(w, httperrors.ErrRouteNotFound)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		httperrors.WriteError(w, httperrors.ErrMethodNotAllowed)
	})

	c := deps.Controllers
	registerHealthRoutes(r, c)
	if deps.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", deps.Metrics)
	}

	r.Route("/api", func(api chi.Router) {
		registerAuthRoutes(api, c, deps)
		registerCredentialRoutes(api, c, deps)
	})

	// recover afuera de todo, request id antes del logger
	return mw.Chain(r, mw.WithRecover(), mw.WithRequestID())
}
