package auth

import (
	"encoding/json"
	"net/http"

	dto "github.com/dropDatabas3/skillspassport/internal/http/dto/auth"
	httperrors "github.com/dropDatabas3/skillspassport/internal/http/errors"
	"github.com/dropDatabas3/skillspassport/internal/http/middlewares"
)

// MeController handles GET /api/me. Corre detrás de RequireWallet.
type MeController struct{}

func NewMeController() *MeController { return &MeController{} }

func (c *MeController) Me(w http.ResponseWriter, r *http.Request) {
	addr := middlewares.GetAddress(r.Context())
	if addr == "" {
		httperrors.WriteError(w, httperrors.ErrTokenMissing)
		return
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(dto.MeResponse{Address: addr})
}
