// Package health contiene el service para health checks.
package health

import (
	"context"
	"os"
	"time"

	dto "github.com/dropDatabas3/skillspassport/internal/http/dto/health"
	"github.com/dropDatabas3/skillspassport/internal/ledger"
	"github.com/dropDatabas3/skillspassport/internal/observability/logger"
)

type HealthService interface {
	Check(ctx context.Context) dto.HealthResponse
}

// Deps: cada check es opcional.
type Deps struct {
	Ledger       *ledger.Ledger
	LedgerDriver string
	LedgerCheck  func(ctx context.Context) error // ping del store SQL
	RedisCheck   func(ctx context.Context) error
	// ChainConfigured false marca el servicio como degraded (no puede loguear issuers).
	ChainConfigured bool
}

type healthService struct {
	deps Deps
}

func NewHealthService(deps Deps) HealthService {
	return &healthService{deps: deps}
}

const checkTimeout = 2 * time.Second

func (s *healthService) Check(ctx context.Context) dto.HealthResponse {
	log := logger.From(ctx).With(logger.Layer("service"), logger.Component("health"), logger.Op("Check"))

	resp := dto.HealthResponse{
		Status:     "ready",
		Version:    os.Getenv("SERVICE_VERSION"),
		Components: map[string]string{},
	}

	check := func(name string, fn func(context.Context) error, critical bool) {
		if fn == nil {
			return
		}
		cctx, cancel := context.WithTimeout(ctx, checkTimeout)
		defer cancel()
		if err := fn(cctx); err != nil {
			log.Warn("component unhealthy", logger.String("component_name", name), logger.Err(err))
			resp.Components[name] = "down"
			if critical {
				resp.Status = "unavailable"
			} else if resp.Status == "ready" {
				resp.Status = "degraded"
			}
			return
		}
		resp.Components[name] = "up"
	}

	check("ledger", s.deps.LedgerCheck, true)
	check("redis", s.deps.RedisCheck, true)

	if s.deps.ChainConfigured {
		resp.Components["chain"] = "configured"
	} else {
		resp.Components["chain"] = "not_configured"
		if resp.Status == "ready" {
			resp.Status = "degraded"
		}
	}

	if s.deps.Ledger != nil {
		resp.Ledger = &dto.LedgerInfo{
			Driver:  s.deps.LedgerDriver,
			Entries: s.deps.Ledger.Len(),
			Head:    s.deps.Ledger.Head(),
		}
	}
	return resp
}
