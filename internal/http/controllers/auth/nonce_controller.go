package auth

import (
	"encoding/json"
	"net/http"

	dto "github.com/dropDatabas3/skillspassport/internal/http/dto/auth"
	httperrors "github.com/dropDatabas3/skillspassport/internal/http/errors"
	svc "github.com/dropDatabas3/skillspassport/internal/http/services/auth"
	"github.com/dropDatabas3/skillspassport/internal/observability/logger"
)

// NonceController handles GET /api/nonce.
type NonceController struct {
	service svc.WalletAuthService
}

func NewNonceController(service svc.WalletAuthService) *NonceController {
	return &NonceController{service: service}
}

// Nonce emite el mensaje a firmar para ?address=.
func (c *NonceController) Nonce(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.From(ctx).With(logger.Layer("controller"), logger.Op("NonceController.Nonce"))

	address := r.URL.Query().Get("address")
	nonce, err := c.service.RequestNonce(ctx, address)
	if err != nil {
		log.Debug("nonce rejected", logger.Err(err))
		httperrors.WriteError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(dto.NonceResponse{Nonce: nonce})
}
