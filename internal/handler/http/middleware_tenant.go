package http

import (
	"context"
	"errors"
	"net/http"

	"github.com/MKhiriev/go-vault-guard/internal/logger"
	"github.com/MKhiriev/go-vault-guard/internal/store"
	"github.com/MKhiriev/go-vault-guard/internal/utils"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

// withTenant resolves the public tenant UUID from the route into the
// internal tenant id and stores it in the request context. Requests naming
// an unknown or malformed tenant are answered 404 without distinction.
func (h *Handler) withTenant(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		log := logger.FromRequest(r)

		tenantUUID := chi.URLParam(r, "tenantUUID")
		if _, err := uuid.Parse(tenantUUID); err != nil {
			log.Warn().Str("tenantUUID", tenantUUID).Msg("malformed tenant uuid")
			http.NotFound(w, r)
			return
		}

		tenantID, err := h.tenants.ResolveTenant(ctx, tenantUUID)
		if err != nil {
			if errors.Is(err, store.ErrTenantNotFound) {
				log.Warn().Str("tenantUUID", tenantUUID).Msg("unknown tenant")
				http.NotFound(w, r)
				return
			}

			log.Err(err).Msg("tenant resolution failed")
			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
			return
		}

		next.ServeHTTP(w, r.WithContext(context.WithValue(ctx, utils.TenantIDCtxKey, tenantID)))
	})
}
