package middlewares

import (
	"context"
	"net/http"
	"strings"

	"github.com/dropDatabas3/skillspassport/internal/http/errors"
	"github.com/dropDatabas3/skillspassport/internal/observability/logger"
)

// TokenValidator devuelve la wallet del token o error. auth.Service lo implementa.
type TokenValidator interface {
	ValidateToken(ctx context.Context, raw string) (string, error)
}

// BearerToken extrae el token de "Authorization: Bearer <token>".
func BearerToken(r *http.Request) string {
	h := strings.TrimSpace(r.Header.Get("Authorization"))
	if len(h) < 7 || !strings.EqualFold(h[:7], "bearer ") {
		return ""
	}
	return strings.TrimSpace(h[7:])
}

// RequireWallet exige un session token válido y deja la wallet en el contexto.
func RequireWallet(v TokenValidator) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := BearerToken(r)
			if raw == "" {
				w.Header().Set("WWW-Authenticate", `Bearer`)
				errors.WriteError(w, errors.ErrTokenMissing)
				return
			}
			addr, err := v.ValidateToken(r.Context(), raw)
			if err != nil {
				logger.From(r.Context()).Debug("token rejected", logger.Op("RequireWallet"), logger.Err(err))
				w.Header().Set("WWW-Authenticate", `Bearer error="invalid_token"`)
				errors.WriteError(w, errors.ErrTokenInvalid)
				return
			}

			ctx := WithAddress(r.Context(), addr)
			ctx = logger.ToContext(ctx, logger.From(ctx).With(logger.Address(addr)))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
