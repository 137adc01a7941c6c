package store

import (
	"context"

	"github.com/MKhiriev/go-vault-guard/internal/config"
	"github.com/MKhiriev/go-vault-guard/internal/logger"
)

// Repositories aggregates every repository the service layer depends on,
// all backed by one shared database connection.
type Repositories struct {
	DB *DB

	TenantRepository TenantRepository
	DeviceRepository DeviceRepository
	ShamirRepository ShamirRepository
}

// NewRepositories connects to PostgreSQL, applies pending migrations, and
// constructs all repositories.
func NewRepositories(ctx context.Context, cfg config.Storage, log *logger.Logger) (*Repositories, error) {
	db, err := NewConnectPostgres(ctx, cfg.DB, log)
	if err != nil {
		return nil, err
	}

	if err := db.Migrate(); err != nil {
		return nil, err
	}

	return &Repositories{
		DB:               db,
		TenantRepository: NewTenantRepository(db, log),
		DeviceRepository: NewDeviceRepository(db, log),
		ShamirRepository: NewShamirRepository(db, log),
	}, nil
}
