package http

import (
	"encoding/json"
	"net/http"

	"github.com/MKhiriev/go-vault-guard/internal/logger"
	"github.com/MKhiriev/go-vault-guard/internal/utils"
	"github.com/MKhiriev/go-vault-guard/models"
)

// decodeJSON decodes the request body into dst and answers 403 itself on
// malformed JSON, same as any other validation failure. Returns false when
// the request is already handled.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		logger.FromRequest(r).Err(err).Msg("invalid JSON was passed")
		writeError(w, http.StatusForbidden, models.ErrorResponse{Error: codeInvalidRequest})
		return false
	}
	return true
}

// tenantID extracts the tenant id resolved by the tenant middleware.
// Answers 500 itself when the middleware did not run, which is a routing
// bug, not a client error.
func tenantID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, ok := utils.GetTenantIDFromContext(r.Context())
	if !ok {
		logger.FromRequest(r).Error().Msg("tenant id missing from context")
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return 0, false
	}
	return id, true
}

func (h *Handler) authenticate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	tenant, ok := tenantID(w, r)
	if !ok {
		return
	}

	var req models.AuthenticateRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	session, err := h.services.AuthService.Authenticate(ctx, tenant, req)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	_, _ = utils.WriteJSON(w, models.AuthenticateResponse{
		Success:       true,
		DeviceSession: session.Token,
	}, http.StatusOK)
}

func (h *Handler) authenticateDeviceOnly(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	tenant, ok := tenantID(w, r)
	if !ok {
		return
	}

	var req models.DeviceOnlyAuthRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	_, session, err := h.services.AuthService.AuthenticateDeviceOnly(ctx, tenant, req)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	_, _ = utils.WriteJSON(w, models.AuthenticateResponse{
		Success:       true,
		DeviceSession: session.Token,
	}, http.StatusOK)
}

func (h *Handler) requestDeviceChallenge(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	tenant, ok := tenantID(w, r)
	if !ok {
		return
	}

	var req models.DeviceChallengeRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	challenge, err := h.services.AuthService.IssueDeviceChallenge(ctx, tenant, req)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	_, _ = utils.WriteJSON(w, challenge, http.StatusOK)
}

func (h *Handler) getDevicesWithPasswordBackup(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	tenant, ok := tenantID(w, r)
	if !ok {
		return
	}

	var req models.DeviceSessionRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	view, err := h.services.AuthService.DevicesWithPasswordBackup(ctx, tenant, req)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	_, _ = utils.WriteJSON(w, view, http.StatusOK)
}
