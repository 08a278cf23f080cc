package middlewares

import "net/http"

type Middleware func(http.Handler) http.Handler

// Chain(h, A, B, C) ejecuta A -> B -> C -> h.
func Chain(h http.Handler, mws ...Middleware) http.Handler {
	for i := len(mws) - 1; i >= 0; i-- {
		if mws[i] != nil {
			h = mws[i](h)
		}
	}
	return h
}
