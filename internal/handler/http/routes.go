package http

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

func (h *Handler) Init() *chi.Mux {
	router := chi.NewRouter()
	router.Use(middleware.Recoverer)
	router.Use(h.withTraceID)
	router.Use(h.withLogging)

	router.Route("/api/{tenantUUID}", func(r chi.Router) {
		r.Use(h.withTenant)

		// authentication protocol
		r.Post("/authenticate", h.authenticate)
		r.Post("/authenticate-device-only", h.authenticateDeviceOnly)
		r.Post("/request-device-challenge", h.requestDeviceChallenge)
		r.Post("/get-devices-with-password-backup", h.getDevicesWithPasswordBackup)

		// owner-side recovery lifecycle (device-challenge authenticated)
		r.Post("/request-shamir-recovery", h.requestShamirRecovery)
		r.Post("/get-shamir-status", h.getShamirStatus)
		r.Post("/abort-shamir-recovery", h.abortShamirRecovery)
		r.Post("/finish-shamir-recovery", h.finishShamirRecovery)

		// owner-side backup (session gated)
		r.Post("/upsert-shamir-backup", h.upsertShamirBackup)
		r.Post("/get-shamir-configs", h.getShamirConfigs)

		// holder side (session gated)
		r.Post("/open-shamir-shares", h.openShamirShares)
		r.Post("/deny-shamir-request-approval", h.denyShamirRequestApproval)
		r.Post("/retrieve-shamir-recoveries-to-approve", h.retrieveShamirRecoveriesToApprove)
	})

	return router
}
