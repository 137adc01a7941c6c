package service

import (
	"github.com/MKhiriev/go-vault-guard/internal/config"
	"github.com/MKhiriev/go-vault-guard/internal/logger"
	"github.com/MKhiriev/go-vault-guard/internal/store"
)

type Services struct {
	SessionService        SessionService
	AuthService           AuthService
	ShamirBackupService   ShamirBackupService
	ShamirRecoveryService ShamirRecoveryService
}

func NewServices(repositories *store.Repositories, cfg config.StructuredConfig, logger *logger.Logger) *Services {
	sessions := NewSessionService(cfg.App, logger)
	auth := NewAuthService(repositories.DeviceRepository, sessions, cfg.App, logger)

	return &Services{
		SessionService:        sessions,
		AuthService:           auth,
		ShamirBackupService:   NewShamirBackupService(auth, repositories.ShamirRepository, repositories.DB, logger),
		ShamirRecoveryService: NewShamirRecoveryService(auth, repositories.ShamirRepository, cfg.App, logger),
	}
}
