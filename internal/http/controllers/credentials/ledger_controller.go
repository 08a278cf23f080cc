package credentials

import (
	"net/http"

	svc "github.com/dropDatabas3/skillspassport/internal/http/services/credentials"
	"github.com/dropDatabas3/skillspassport/internal/observability/logger"
)

// LedgerController expone la cadena completa y su verificación. Solo lectura.
type LedgerController struct {
	service svc.CredentialService
}

func NewLedgerController(service svc.CredentialService) *LedgerController {
	return &LedgerController{service: service}
}

// Ledger handles GET /api/ledger.
func (c *LedgerController) Ledger(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, c.service.Ledger(r.Context()))
}

// Verify handles GET /api/ledger/verify. Una cadena rota sigue siendo 200:
// el reporte es el resultado.
func (c *LedgerController) Verify(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	rep := c.service.Verify(ctx)
	logger.From(ctx).Debug("ledger verified",
		logger.Layer("controller"), logger.Op("LedgerController.Verify"),
		logger.Bool("ok", rep.OK), logger.Count(rep.Entries),
	)
	writeJSON(w, http.StatusOK, rep)
}
