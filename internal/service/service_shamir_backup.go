package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/MKhiriev/go-vault-guard/internal/logger"
	"github.com/MKhiriev/go-vault-guard/internal/store"
	"github.com/MKhiriev/go-vault-guard/models"
)

// shamirBackupService is the concrete implementation of
// ShamirBackupService. One session-gated auth check in front, one storage
// transaction behind.
type shamirBackupService struct {
	auth             AuthService
	shamirRepository store.ShamirRepository
	db               *store.DB

	logger *logger.Logger
}

// NewShamirBackupService constructs a ShamirBackupService.
func NewShamirBackupService(auth AuthService, shamirRepository store.ShamirRepository, db *store.DB, logger *logger.Logger) ShamirBackupService {
	return &shamirBackupService{
		auth:             auth,
		shamirRepository: shamirRepository,
		db:               db,
		logger:           logger,
	}
}

// UpsertBackup replaces the caller's entire share backup for a
// configuration. Validation failures (empty holder list, empty share
// blobs, a holder carrying the wrong number of shares) all surface as
// ErrBackupCreationFailed; the storage layer guarantees the replacement is
// atomic.
func (s *shamirBackupService) UpsertBackup(ctx context.Context, tenantID int64, req models.UpsertBackupRequest) error {
	log := logger.FromContext(ctx)

	result, err := s.auth.CheckBasicAuth(ctx, tenantID, req.SessionRequest)
	if err != nil {
		return err
	}

	if req.ConfigID == 0 || len(req.HolderShares) == 0 {
		return ErrBackupCreationFailed
	}
	for _, entry := range req.HolderShares {
		if entry.HolderID == 0 || len(entry.ClosedShares) == 0 {
			return ErrBackupCreationFailed
		}
		for _, share := range entry.ClosedShares {
			if len(share) == 0 {
				return ErrBackupCreationFailed
			}
		}
	}

	if err := s.shamirRepository.ReplaceBackup(ctx, result.VaultID, req.ConfigID, req.HolderShares); err != nil {
		if errors.Is(err, store.ErrShareCountMismatch) {
			log.Warn().Int64("vaultID", result.VaultID).Int64("configID", req.ConfigID).Msg("backup rejected: share count mismatch")
			return ErrBackupCreationFailed
		}
		if s.db.Classify(err) == store.Retryable {
			return fmt.Errorf("%w: %w", ErrStorageTemporary, err)
		}
		return err
	}

	log.Info().Int64("vaultID", result.VaultID).Int64("configID", req.ConfigID).Msg("shamir backup replaced")
	return nil
}

// Configs lists the tenant's active configurations with the caller's
// needs-update flag per configuration.
func (s *shamirBackupService) Configs(ctx context.Context, tenantID int64, req models.SessionRequest) ([]models.ShamirConfigView, error) {
	result, err := s.auth.CheckBasicAuth(ctx, tenantID, req)
	if err != nil {
		return nil, err
	}

	return s.shamirRepository.ActiveConfigs(ctx, tenantID, result.VaultID)
}
