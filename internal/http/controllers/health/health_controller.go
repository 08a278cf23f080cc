// Package health contiene el controller para health checks.
package health

import (
	"encoding/json"
	"io"
	"net/http"

	dto "github.com/dropDatabas3/skillspassport/internal/http/dto/health"
	svc "github.com/dropDatabas3/skillspassport/internal/http/services/health"
	"github.com/dropDatabas3/skillspassport/internal/observability/logger"
)

// Banner es lo que responde GET /.
const Banner = "SkillsPassport issuer auth backend"

// HealthController maneja las rutas de health check.
type HealthController struct {
	service svc.HealthService
}

func NewHealthController(service svc.HealthService) *HealthController {
	return &HealthController{service: service}
}

// Healthz: liveness, no toca dependencias.
func (c *HealthController) Healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, dto.HealthResponse{Status: "ok"})
}

// Readyz maneja GET /readyz
func (c *HealthController) Readyz(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.From(ctx).With(logger.Layer("controller"), logger.Op("HealthController.Readyz"))

	response := c.service.Check(ctx)

	if response.Version != "" {
		w.Header().Set("X-Service-Version", response.Version)
	}

	// Status code según estado
	var statusCode int
	switch response.Status {
	case "unavailable":
		statusCode = http.StatusServiceUnavailable
	default: // "ready" o "degraded"
		statusCode = http.StatusOK
	}

	log.Debug("health check completed",
		logger.String("status", response.Status),
		logger.Int("components_count", len(response.Components)),
	)

	writeJSON(w, statusCode, response)
}

func (c *HealthController) Banner(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = io.WriteString(w, Banner)
}

func writeJSON(w http.ResponseWriter, status int, v dto.HealthResponse) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
