package http

import (
	"github.com/MKhiriev/go-vault-guard/internal/logger"
	"github.com/MKhiriev/go-vault-guard/internal/service"
	"github.com/MKhiriev/go-vault-guard/internal/store"
)

type Handler struct {
	services *service.Services
	tenants  store.TenantRepository

	logger *logger.Logger
}

func NewHandler(services *service.Services, tenants store.TenantRepository, logger *logger.Logger) *Handler {
	logger.Info().Msg("http handler created")
	return &Handler{
		services: services,
		tenants:  tenants,
		logger:   logger,
	}
}
