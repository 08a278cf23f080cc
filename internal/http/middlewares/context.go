package middlewares

import "context"

type ctxKey string

const (
	// ctxAddressKey guarda la wallet autenticada (minúsculas)
	ctxAddressKey   ctxKey = "address"
	ctxRequestIDKey ctxKey = "request_id"
)

// WithAddress inyecta la wallet autenticada en el contexto
func WithAddress(ctx context.Context, address string) context.Context {
	return context.WithValue(ctx, ctxAddressKey, address)
}

func setRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, ctxRequestIDKey, requestID)
}

// GetAddress devuelve la wallet autenticada o "" si la ruta no pasó por RequireWallet.
func GetAddress(ctx context.Context) string {
	if v := ctx.Value(ctxAddressKey); v != nil {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

func GetRequestID(ctx context.Context) string {
	if v := ctx.Value(ctxRequestIDKey); v != nil {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}
