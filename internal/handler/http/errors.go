package http

import (
	"errors"
	"net/http"
	"time"

	"github.com/MKhiriev/go-vault-guard/internal/logger"
	"github.com/MKhiriev/go-vault-guard/internal/service"
	"github.com/MKhiriev/go-vault-guard/internal/utils"
	"github.com/MKhiriev/go-vault-guard/models"
)

// Symbolic error codes of the API. Clients branch on these, never on the
// HTTP status alone.
const (
	codeInvalidRequest     = "invalid_request"
	codeNotAuthenticated   = "not_authenticated"
	codeBlocked            = "blocked"
	codeBadPassword        = "bad_password"
	codeBadDeviceResponse  = "bad_device_challenge_response"
	codeChallengeExpired   = "expired"
	codeConfigNotFound     = "shamir_config_not_found"
	codeRecoveryPending    = "shamir_recovery_already_pending"
	codeNoPendingRecovery  = "no_pending_recovery_request"
	codeBackupFailed       = "backup_creation_failed"
	codeStorageUnavailable = "storage_unavailable"
)

// writeServiceError maps a service-layer error onto its HTTP status and
// symbolic code. Unrecognised errors become a bare 500 with no body, so
// nothing internal leaks.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	log := logger.FromRequest(r)

	var blocked *service.BlockedError
	if errors.As(err, &blocked) {
		writeError(w, http.StatusUnauthorized, models.ErrorResponse{
			Error:         codeBlocked,
			NextRetryDate: blocked.NextRetryDate.UTC().Format(time.RFC3339),
		})
		return
	}

	switch {
	// validation failures answer 403, like every other "request refused
	// without touching state" outcome; 4xx other than 401 never leaks
	// which field was at fault beyond the symbolic code
	case errors.Is(err, service.ErrInvalidDataProvided):
		writeError(w, http.StatusForbidden, models.ErrorResponse{Error: codeInvalidRequest})
	case errors.Is(err, service.ErrBadPassword):
		writeError(w, http.StatusUnauthorized, models.ErrorResponse{Error: codeBadPassword})
	case errors.Is(err, service.ErrBadDeviceResponse):
		writeError(w, http.StatusUnauthorized, models.ErrorResponse{Error: codeBadDeviceResponse})
	case errors.Is(err, service.ErrChallengeExpired):
		writeError(w, http.StatusForbidden, models.ErrorResponse{Error: codeChallengeExpired})
	case errors.Is(err, service.ErrAuthenticationFailed), errors.Is(err, service.ErrSessionInvalid):
		writeError(w, http.StatusUnauthorized, models.ErrorResponse{Error: codeNotAuthenticated})
	case errors.Is(err, service.ErrConfigNotFound):
		writeError(w, http.StatusForbidden, models.ErrorResponse{Error: codeConfigNotFound})
	case errors.Is(err, service.ErrRecoveryAlreadyPending):
		writeError(w, http.StatusForbidden, models.ErrorResponse{Error: codeRecoveryPending})
	case errors.Is(err, service.ErrNoPendingRecovery):
		writeError(w, http.StatusForbidden, models.ErrorResponse{Error: codeNoPendingRecovery})
	case errors.Is(err, service.ErrBackupCreationFailed):
		writeError(w, http.StatusForbidden, models.ErrorResponse{Error: codeBackupFailed})
	case errors.Is(err, service.ErrStorageTemporary):
		writeError(w, http.StatusServiceUnavailable, models.ErrorResponse{Error: codeStorageUnavailable})
	default:
		log.Err(err).Msg("unexpected error")
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
	}
}

func writeError(w http.ResponseWriter, statusCode int, body models.ErrorResponse) {
	_, _ = utils.WriteJSON(w, body, statusCode)
}
