package http

import (
	"net/http"

	"github.com/MKhiriev/go-vault-guard/internal/utils"
	"github.com/MKhiriev/go-vault-guard/models"
)

// ackResponse is the body of operations with no data to return.
type ackResponse struct {
	Success bool `json:"success"`
}

func (h *Handler) requestShamirRecovery(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	tenant, ok := tenantID(w, r)
	if !ok {
		return
	}

	var req models.RequestRecoveryRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	challenge, err := h.services.ShamirRecoveryService.RequestRecovery(ctx, tenant, req)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	if challenge != nil {
		// the caller has not proven the device yet: hand the challenge out
		// with a 403 so clients treat it as a retry-with-signature prompt
		_, _ = utils.WriteJSON(w, challenge, http.StatusForbidden)
		return
	}

	_, _ = utils.WriteJSON(w, ackResponse{Success: true}, http.StatusOK)
}

func (h *Handler) getShamirStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	tenant, ok := tenantID(w, r)
	if !ok {
		return
	}

	var req models.DeviceSessionRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	view, err := h.services.ShamirRecoveryService.Status(ctx, tenant, req)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	_, _ = utils.WriteJSON(w, view, http.StatusOK)
}

func (h *Handler) abortShamirRecovery(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	tenant, ok := tenantID(w, r)
	if !ok {
		return
	}

	var req models.DeviceOnlyAuthRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	challenge, err := h.services.ShamirRecoveryService.Abort(ctx, tenant, req)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	if challenge != nil {
		_, _ = utils.WriteJSON(w, challenge, http.StatusForbidden)
		return
	}

	_, _ = utils.WriteJSON(w, ackResponse{Success: true}, http.StatusOK)
}

func (h *Handler) finishShamirRecovery(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	tenant, ok := tenantID(w, r)
	if !ok {
		return
	}

	var req models.SessionRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	if err := h.services.ShamirRecoveryService.Finish(ctx, tenant, req); err != nil {
		writeServiceError(w, r, err)
		return
	}

	_, _ = utils.WriteJSON(w, ackResponse{Success: true}, http.StatusOK)
}

func (h *Handler) upsertShamirBackup(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	tenant, ok := tenantID(w, r)
	if !ok {
		return
	}

	var req models.UpsertBackupRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	if err := h.services.ShamirBackupService.UpsertBackup(ctx, tenant, req); err != nil {
		writeServiceError(w, r, err)
		return
	}

	_, _ = utils.WriteJSON(w, ackResponse{Success: true}, http.StatusOK)
}

func (h *Handler) getShamirConfigs(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	tenant, ok := tenantID(w, r)
	if !ok {
		return
	}

	var req models.SessionRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	configs, err := h.services.ShamirBackupService.Configs(ctx, tenant, req)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	_, _ = utils.WriteJSON(w, configs, http.StatusOK)
}

func (h *Handler) openShamirShares(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	tenant, ok := tenantID(w, r)
	if !ok {
		return
	}

	var req models.OpenSharesRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	if err := h.services.ShamirRecoveryService.OpenShares(ctx, tenant, req); err != nil {
		writeServiceError(w, r, err)
		return
	}

	_, _ = utils.WriteJSON(w, ackResponse{Success: true}, http.StatusOK)
}

func (h *Handler) denyShamirRequestApproval(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	tenant, ok := tenantID(w, r)
	if !ok {
		return
	}

	var req models.DenyRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	if err := h.services.ShamirRecoveryService.Deny(ctx, tenant, req); err != nil {
		writeServiceError(w, r, err)
		return
	}

	_, _ = utils.WriteJSON(w, ackResponse{Success: true}, http.StatusOK)
}

func (h *Handler) retrieveShamirRecoveriesToApprove(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	tenant, ok := tenantID(w, r)
	if !ok {
		return
	}

	var req models.SessionRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	view, err := h.services.ShamirRecoveryService.RecoveriesToApprove(ctx, tenant, req)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	_, _ = utils.WriteJSON(w, view, http.StatusOK)
}
