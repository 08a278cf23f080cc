package auth

import (
	"encoding/json"
	"net/http"
	"strings"

	dto "github.com/dropDatabas3/skillspassport/internal/http/dto/auth"
	httperrors "github.com/dropDatabas3/skillspassport/internal/http/errors"
	svc "github.com/dropDatabas3/skillspassport/internal/http/services/auth"
	"github.com/dropDatabas3/skillspassport/internal/observability/logger"
)

// LoginController handles POST /api/auth/wallet.
type LoginController struct {
	service svc.WalletAuthService
}

func NewLoginController(service svc.WalletAuthService) *LoginController {
	return &LoginController{service: service}
}

// WalletLogin verifica la firma del nonce y devuelve el session token.
func (c *LoginController) WalletLogin(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.From(ctx).With(logger.Layer("controller"), logger.Op("LoginController.WalletLogin"))

	r.Body = http.MaxBytesReader(w, r.Body, 4<<10)

	var req dto.WalletLoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Debug("failed to parse request", logger.Err(err))
		httperrors.WriteError(w, httperrors.ErrInvalidJSON)
		return
	}
	req.Address = strings.TrimSpace(req.Address)
	req.Signature = strings.TrimSpace(req.Signature)
	if req.Address == "" || req.Signature == "" {
		httperrors.WriteError(w, httperrors.ErrMissingFields)
		return
	}

	sess, err := c.service.Authenticate(ctx, req.Address, req.Signature)
	if err != nil {
		httperrors.WriteError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(dto.WalletLoginResponse{
		Token:     sess.Token,
		Address:   sess.Address,
		ExpiresAt: sess.ExpiresAt,
	})
}
