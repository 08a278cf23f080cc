package middlewares

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/dropDatabas3/skillspassport/internal/observability/logger"
)

// responseRecorder guarda status y bytes para el log de acceso.
type responseRecorder struct {
	http.ResponseWriter
	status int
	bytes  int
}

func (rr *responseRecorder) WriteHeader(code int) {
	if rr.status != 0 {
		return
	}
	rr.status = code
	rr.ResponseWriter.WriteHeader(code)
}

func (rr *responseRecorder) Write(b []byte) (int, error) {
	if rr.status == 0 {
		rr.status = http.StatusOK
	}
	n, err := rr.ResponseWriter.Write(b)
	rr.bytes += n
	return n, err
}

func (rr *responseRecorder) code() int {
	if rr.status == 0 {
		return http.StatusOK
	}
	return rr.status
}

// probes se loguean en debug para no ensuciar los logs con health checks.
var probes = map[string]bool{"/healthz": true, "/readyz": true, "/metrics": true}

// WithLogging deja en el contexto un logger con request_id, method y path, y
// escribe una línea de acceso al terminar. Montado dentro de chi, agrega la
// ruta matcheada ("/api/credentials/{id}").
func WithLogging() Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			reqLog := logger.L().With(
				logger.RequestID(GetRequestID(r.Context())),
				logger.Method(r.Method),
				logger.Path(r.URL.Path),
			)
			rec := &responseRecorder{ResponseWriter: w}
			next.ServeHTTP(rec, r.WithContext(logger.ToContext(r.Context(), reqLog)))

			status := rec.code()
			fields := []logger.Field{
				logger.Status(status),
				logger.Bytes(rec.bytes),
				logger.DurationMs(time.Since(start).Milliseconds()),
				logger.ClientIP(clientIP(r)),
			}
			if rctx := chi.RouteContext(r.Context()); rctx != nil {
				if p := rctx.RoutePattern(); p != "" {
					fields = append(fields, logger.Route(p))
				}
			}
			switch {
			case status >= 500:
				reqLog.Error("request failed", fields...)
			case status >= 400:
				reqLog.Warn("request rejected", fields...)
			case probes[r.URL.Path]:
				reqLog.Debug("probe", fields...)
			default:
				reqLog.Info("request completed", fields...)
			}
		})
	}
}
