package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/MKhiriev/go-vault-guard/internal/logger"
)

// tenantRepository is the PostgreSQL-backed implementation of
// [TenantRepository]. Public tenant UUIDs are the only tenant identifiers
// accepted at the edge; everything below works with internal ids.
type tenantRepository struct {
	logger *logger.Logger
	db     *DB
}

// NewTenantRepository constructs a [TenantRepository] backed by the provided
// database connection and logger.
func NewTenantRepository(db *DB, logger *logger.Logger) TenantRepository {
	logger.Debug().Msg("creating tenant repository")
	return &tenantRepository{
		db:     db,
		logger: logger,
	}
}

// ResolveTenant maps a public tenant UUID to its internal id.
//
// Error handling:
//   - No matching row → [ErrTenantNotFound].
//   - Any other driver-level error → wrapped as "unexpected DB error".
func (r *tenantRepository) ResolveTenant(ctx context.Context, publicUUID string) (int64, error) {
	log := logger.FromContext(ctx)

	var tenantID int64
	err := r.db.QueryRowContext(ctx, resolveTenant, publicUUID).Scan(&tenantID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, ErrTenantNotFound
		}

		log.Err(err).Str("func", "*tenantRepository.ResolveTenant").Msg("error: tenant lookup failed")
		return 0, fmt.Errorf("unexpected DB error: %w", err)
	}

	return tenantID, nil
}
