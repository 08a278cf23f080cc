package credentials

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	dto "github.com/dropDatabas3/skillspassport/internal/http/dto/credentials"
	httperrors "github.com/dropDatabas3/skillspassport/internal/http/errors"
	"github.com/dropDatabas3/skillspassport/internal/http/middlewares"
	svc "github.com/dropDatabas3/skillspassport/internal/http/services/credentials"
	"github.com/dropDatabas3/skillspassport/internal/observability/logger"
)

// CredentialsController maneja mint, consulta y revocación de credenciales.
type CredentialsController struct {
	service svc.CredentialService
}

func NewCredentialsController(service svc.CredentialService) *CredentialsController {
	return &CredentialsController{service: service}
}

// Mint handles POST /api/credentials.
func (c *CredentialsController) Mint(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.From(ctx).With(logger.Layer("controller"), logger.Op("CredentialsController.Mint"))

	r.Body = http.MaxBytesReader(w, r.Body, 16<<10)

	var req dto.MintRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Debug("failed to parse request", logger.Err(err))
		httperrors.WriteError(w, httperrors.ErrInvalidJSON)
		return
	}

	resp, err := c.service.Mint(ctx, middlewares.GetAddress(ctx), req)
	if err != nil {
		httperrors.WriteError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, resp)
}

// Get handles GET /api/credentials/{id}.
func (c *CredentialsController) Get(w http.ResponseWriter, r *http.Request) {
	resp, ok := c.service.Get(r.Context(), chi.URLParam(r, "id"))
	if !ok {
		writeJSON(w, http.StatusNotFound, resp)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// List handles GET /api/credentials?wallet=.
func (c *CredentialsController) List(w http.ResponseWriter, r *http.Request) {
	resp, err := c.service.ListByWallet(r.Context(), r.URL.Query().Get("wallet"))
	if err != nil {
		if errors.Is(err, svc.ErrInvalidWallet) {
			httperrors.WriteError(w, httperrors.ErrInvalidAddress.WithDetail("wallet"))
			return
		}
		httperrors.WriteError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// Revoke handles POST /api/credentials/{id}/revoke.
func (c *CredentialsController) Revoke(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	req, ok := decodeRevoke(w, r)
	if !ok {
		return
	}
	resp, err := c.service.Revoke(ctx, middlewares.GetAddress(ctx), chi.URLParam(r, "id"), req.Reason)
	if err != nil {
		httperrors.WriteError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// RevokeAt handles POST /api/ledger/credentials/{index}/revoke.
// index cuenta solo las credenciales de la cadena (las revocaciones no suman),
// como la tabla del panel del issuer.
func (c *CredentialsController) RevokeAt(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	index, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil || index < 0 {
		httperrors.WriteError(w, httperrors.ErrInvalidParameter.WithDetail("index must be a non-negative integer"))
		return
	}
	req, ok := decodeRevoke(w, r)
	if !ok {
		return
	}
	resp, err := c.service.RevokeAt(ctx, middlewares.GetAddress(ctx), index, req.Reason)
	if err != nil {
		httperrors.WriteError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// decodeRevoke acepta body vacío (sin motivo).
func decodeRevoke(w http.ResponseWriter, r *http.Request) (dto.RevokeRequest, bool) {
	var req dto.RevokeRequest
	if r.Body == nil {
		return req, true
	}
	r.Body = http.MaxBytesReader(w, r.Body, 4<<10)
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		httperrors.WriteError(w, httperrors.ErrInvalidJSON)
		return req, false
	}
	req.Reason = strings.TrimSpace(req.Reason)
	return req, true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
