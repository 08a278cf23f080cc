package logger

import (
	"context"

	"go.uber.org/zap"
)

type ctxKey struct{}

// ToContext guarda l en ctx; lo usa middlewares.WithLogging con request_id,
// method y path ya cargados.
func ToContext(ctx context.Context, l *zap.Logger) context.Context {
	return context.WithValue(ctx, ctxKey{}, l)
}

// From devuelve el logger del request o el global si no hay ninguno.
func From(ctx context.Context) *zap.Logger {
	if ctx != nil {
		if l, ok := ctx.Value(ctxKey{}).(*zap.Logger); ok && l != nil {
			return l
		}
	}
	return L()
}

// WithFields agrega campos al logger del request y lo vuelve a guardar en ctx.
func WithFields(ctx context.Context, fields ...zap.Field) context.Context {
	return ToContext(ctx, From(ctx).With(fields...))
}
