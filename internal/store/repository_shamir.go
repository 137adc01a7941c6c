package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/MKhiriev/go-vault-guard/internal/logger"
	"github.com/MKhiriev/go-vault-guard/models"
	"github.com/jackc/pgerrcode"
)

// shamirRepository is the PostgreSQL-backed implementation of
// [ShamirRepository]. Backup replacement and recovery creation are the two
// multi-statement operations; both run inside a single transaction so a
// partial write can never be observed.
type shamirRepository struct {
	logger *logger.Logger
	db     *DB
}

// NewShamirRepository constructs a [ShamirRepository] backed by the provided
// database connection and logger.
func NewShamirRepository(db *DB, logger *logger.Logger) ShamirRepository {
	logger.Debug().Msg("creating shamir repository")
	return &shamirRepository{
		db:     db,
		logger: logger,
	}
}

func (r *shamirRepository) HasBackup(ctx context.Context, vaultID int64) (bool, error) {
	log := logger.FromContext(ctx)

	var exists bool
	if err := r.db.QueryRowContext(ctx, hasBackup, vaultID).Scan(&exists); err != nil {
		log.Err(err).Str("func", "*shamirRepository.HasBackup").Msg("error: backup existence check failed")
		return false, fmt.Errorf("%w: %w", ErrExecutingQuery, err)
	}

	return exists, nil
}

func (r *shamirRepository) ResolveBackupConfig(ctx context.Context, vaultID int64) (int64, error) {
	log := logger.FromContext(ctx)

	var configID int64
	err := r.db.QueryRowContext(ctx, resolveBackupConfig, vaultID).Scan(&configID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, ErrConfigNotFound
		}

		log.Err(err).Str("func", "*shamirRepository.ResolveBackupConfig").Msg("error: config resolution failed")
		return 0, fmt.Errorf("%w: %w", ErrExecutingQuery, err)
	}

	return configID, nil
}

// ReplaceBackup is all-or-nothing: the owner's prior shares are deleted,
// every submitted entry is validated against the holder's configured share
// count, the new rows are inserted, and any in-flight PENDING request for
// this owner+config is aborted so stale recoveries cannot consume the new
// backup. Any failure rolls back the delete along with everything else.
func (r *shamirRepository) ReplaceBackup(ctx context.Context, ownerVaultID, configID int64, holderShares []models.HolderShares) error {
	log := logger.FromContext(ctx)

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		log.Err(err).Str("func", "*shamirRepository.ReplaceBackup").Msg("failed to begin transaction")
		return fmt.Errorf("%w: %w", ErrBeginningTransaction, err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, deleteOwnerShares, ownerVaultID); err != nil {
		log.Err(err).Str("func", "*shamirRepository.ReplaceBackup").Msg("failed to delete previous shares")
		return fmt.Errorf("%w: %w", ErrExecutingStatement, err)
	}

	for _, entry := range holderShares {
		var expected int
		err := tx.QueryRowContext(ctx, holderNumShares, entry.HolderID, configID).Scan(&expected)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				// submitted holder is not part of the configuration
				return ErrShareCountMismatch
			}

			log.Err(err).Str("func", "*shamirRepository.ReplaceBackup").Msg("failed to load holder share count")
			return fmt.Errorf("%w: %w", ErrExecutingQuery, err)
		}

		if len(entry.ClosedShares) != expected {
			return ErrShareCountMismatch
		}

		_, err = tx.ExecContext(ctx, insertShare, ownerVaultID, configID, entry.HolderID, byteaArray(entry.ClosedShares))
		if err != nil {
			log.Err(err).Str("func", "*shamirRepository.ReplaceBackup").Msg("failed to insert share row")
			return fmt.Errorf("%w: %w", ErrExecutingStatement, err)
		}
	}

	if _, err := tx.ExecContext(ctx, abortPendingForOwnerConfig, ownerVaultID, configID); err != nil {
		log.Err(err).Str("func", "*shamirRepository.ReplaceBackup").Msg("failed to abort pending requests")
		return fmt.Errorf("%w: %w", ErrExecutingStatement, err)
	}

	if err := tx.Commit(); err != nil {
		log.Err(err).Str("func", "*shamirRepository.ReplaceBackup").Msg("failed to commit transaction")
		return fmt.Errorf("%w: %w", ErrCommitingTransaction, err)
	}

	return nil
}

// CreateRecoveryRequest first retires expired PENDING leftovers and nulls
// stray open shares for the vault, then inserts the new PENDING row. The
// partial unique index on (vault_id) WHERE status = 'PENDING' closes the
// check-then-insert race: a concurrent unexpired request surfaces as a
// unique violation, mapped to [ErrRecoveryAlreadyPending].
func (r *shamirRepository) CreateRecoveryRequest(ctx context.Context, vaultID, deviceID, configID int64, publicKey string, expiryDate time.Time) (int64, error) {
	log := logger.FromContext(ctx)

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		log.Err(err).Str("func", "*shamirRepository.CreateRecoveryRequest").Msg("failed to begin transaction")
		return 0, fmt.Errorf("%w: %w", ErrBeginningTransaction, err)
	}
	defer tx.Rollback()

	now := time.Now()

	if _, err := tx.ExecContext(ctx, abortExpiredPendingForVault, vaultID, now); err != nil {
		log.Err(err).Str("func", "*shamirRepository.CreateRecoveryRequest").Msg("failed to abort expired requests")
		return 0, fmt.Errorf("%w: %w", ErrExecutingStatement, err)
	}

	if _, err := tx.ExecContext(ctx, clearOpenSharesForVault, vaultID); err != nil {
		log.Err(err).Str("func", "*shamirRepository.CreateRecoveryRequest").Msg("failed to clear stale open shares")
		return 0, fmt.Errorf("%w: %w", ErrExecutingStatement, err)
	}

	var requestID int64
	err = tx.QueryRowContext(ctx, insertRecoveryRequest, vaultID, deviceID, configID, publicKey, expiryDate).Scan(&requestID)
	if err != nil {
		if postgresError(err) == pgerrcode.UniqueViolation {
			return 0, ErrRecoveryAlreadyPending
		}

		log.Err(err).Str("func", "*shamirRepository.CreateRecoveryRequest").Msg("failed to insert recovery request")
		return 0, fmt.Errorf("%w: %w", ErrExecutingStatement, err)
	}

	if err := tx.Commit(); err != nil {
		log.Err(err).Str("func", "*shamirRepository.CreateRecoveryRequest").Msg("failed to commit transaction")
		return 0, fmt.Errorf("%w: %w", ErrCommitingTransaction, err)
	}

	return requestID, nil
}

func (r *shamirRepository) PendingRequestByVaultConfig(ctx context.Context, vaultID, configID int64) (models.ShamirRecoveryRequest, error) {
	return r.scanRequest(ctx, "PendingRequestByVaultConfig", pendingRequestByVaultConfig, vaultID, configID)
}

func (r *shamirRepository) PendingUnexpiredRequestByDevice(ctx context.Context, deviceID int64, now time.Time) (models.ShamirRecoveryRequest, error) {
	return r.scanRequest(ctx, "PendingUnexpiredRequestByDevice", pendingUnexpiredRequestByDevice, deviceID, now)
}

func (r *shamirRepository) scanRequest(ctx context.Context, op, query string, args ...any) (models.ShamirRecoveryRequest, error) {
	log := logger.FromContext(ctx)

	var request models.ShamirRecoveryRequest
	var deniedBy int64Array

	err := r.db.QueryRowContext(ctx, query, args...).Scan(
		&request.ID,
		&request.DeviceID,
		&request.VaultID,
		&request.ConfigID,
		&request.PublicKey,
		&request.Status,
		&request.CreatedAt,
		&request.CompletedAt,
		&request.ExpiryDate,
		&deniedBy,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.ShamirRecoveryRequest{}, ErrNoPendingRequest
		}

		log.Err(err).Str("func", "*shamirRepository."+op).Msg("error: recovery request lookup failed")
		return models.ShamirRecoveryRequest{}, fmt.Errorf("%w: %w", ErrExecutingQuery, err)
	}

	request.DeniedBy = deniedBy
	return request, nil
}

func (r *shamirRepository) SetOpenShares(ctx context.Context, ownerVaultID, holderVaultID, configID int64, openShares [][]byte, at time.Time) error {
	log := logger.FromContext(ctx)

	_, err := r.db.ExecContext(ctx, setOpenShares, ownerVaultID, holderVaultID, configID, byteaArray(openShares), at)
	if err != nil {
		log.Err(err).Str("func", "*shamirRepository.SetOpenShares").Msg("failed to store open shares")
		return fmt.Errorf("%w: %w", ErrExecutingStatement, err)
	}

	return nil
}

// AppendDenial records the holder's refusal. The UPDATE matches only a
// PENDING, unexpired request the holder actually holds shares of, and the
// NOT(... = ANY(denied_by)) guard makes repeated denials no-ops, so (0, nil)
// covers both "already denied" and "nothing to deny".
func (r *shamirRepository) AppendDenial(ctx context.Context, ownerVaultID, holderVaultID, configID int64, now time.Time) (int64, error) {
	log := logger.FromContext(ctx)

	var requestID int64
	err := r.db.QueryRowContext(ctx, appendDenial, ownerVaultID, holderVaultID, configID, now).Scan(&requestID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, nil
		}

		log.Err(err).Str("func", "*shamirRepository.AppendDenial").Msg("failed to record denial")
		return 0, fmt.Errorf("%w: %w", ErrExecutingStatement, err)
	}

	return requestID, nil
}

func (r *shamirRepository) IsRefused(ctx context.Context, requestID int64) (bool, error) {
	log := logger.FromContext(ctx)

	var refused bool
	if err := r.db.QueryRowContext(ctx, isRefused, requestID).Scan(&refused); err != nil {
		log.Err(err).Str("func", "*shamirRepository.IsRefused").Msg("error: refusal check failed")
		return false, fmt.Errorf("%w: %w", ErrExecutingQuery, err)
	}

	return refused, nil
}

func (r *shamirRepository) MinShares(ctx context.Context, requestID int64) (int, error) {
	log := logger.FromContext(ctx)

	var minShares int
	if err := r.db.QueryRowContext(ctx, minSharesByRequest, requestID).Scan(&minShares); err != nil {
		log.Err(err).Str("func", "*shamirRepository.MinShares").Msg("error: quorum threshold lookup failed")
		return 0, fmt.Errorf("%w: %w", ErrExecutingQuery, err)
	}

	return minShares, nil
}

func (r *shamirRepository) HolderShareStates(ctx context.Context, requestID int64) ([]models.HolderShareState, error) {
	log := logger.FromContext(ctx)

	rows, err := r.db.QueryContext(ctx, holderShareStates, requestID)
	if err != nil {
		log.Err(err).Str("func", "*shamirRepository.HolderShareStates").Msg("error: holder states query failed")
		return nil, fmt.Errorf("%w: %w", ErrExecutingQuery, err)
	}
	defer rows.Close()

	var states []models.HolderShareState
	for rows.Next() {
		var state models.HolderShareState
		var open byteaArray

		if err := rows.Scan(&state.HolderVaultID, &state.Email, &state.NumShares, &open); err != nil {
			log.Err(err).Str("func", "*shamirRepository.HolderShareStates").Msg("error: scanning holder state")
			return nil, fmt.Errorf("%w: %w", ErrScanningRows, err)
		}

		state.OpenShares = open
		states = append(states, state)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrScanningRows, err)
	}

	return states, nil
}

func (r *shamirRepository) AbortPendingByDevice(ctx context.Context, deviceID int64) error {
	return r.execShamirUpdate(ctx, "AbortPendingByDevice", abortPendingByDevice, deviceID)
}

func (r *shamirRepository) CompletePendingByDevice(ctx context.Context, deviceID int64, at time.Time) error {
	return r.execShamirUpdate(ctx, "CompletePendingByDevice", completePendingByDevice, deviceID, at)
}

func (r *shamirRepository) ClearOpenShares(ctx context.Context, vaultID int64) error {
	return r.execShamirUpdate(ctx, "ClearOpenShares", clearOpenSharesForVault, vaultID)
}

func (r *shamirRepository) execShamirUpdate(ctx context.Context, op, query string, args ...any) error {
	log := logger.FromContext(ctx)

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		log.Err(err).
			Str("func", "*shamirRepository."+op).
			Msg("failed to update recovery state")
		return fmt.Errorf("%w: %w", ErrExecutingStatement, err)
	}

	return nil
}

func (r *shamirRepository) SweepExpiredOpenShares(ctx context.Context, now time.Time) (int64, error) {
	log := logger.FromContext(ctx)

	result, err := r.db.ExecContext(ctx, sweepExpiredOpenShares, now)
	if err != nil {
		log.Err(err).Str("func", "*shamirRepository.SweepExpiredOpenShares").Msg("failed to sweep open shares")
		return 0, fmt.Errorf("%w: %w", ErrExecutingStatement, err)
	}

	cleared, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrExecutingStatement, err)
	}

	return cleared, nil
}

func (r *shamirRepository) RecoveriesToApprove(ctx context.Context, holderVaultID int64, now time.Time) ([]models.RecoveryToApprove, error) {
	log := logger.FromContext(ctx)

	rows, err := r.db.QueryContext(ctx, recoveriesToApprove, holderVaultID, now)
	if err != nil {
		log.Err(err).Str("func", "*shamirRepository.RecoveriesToApprove").Msg("error: recoveries query failed")
		return nil, fmt.Errorf("%w: %w", ErrExecutingQuery, err)
	}
	defer rows.Close()

	var recoveries []models.RecoveryToApprove
	for rows.Next() {
		var recovery models.RecoveryToApprove
		var closed byteaArray

		err := rows.Scan(
			&recovery.OwnerVaultID,
			&recovery.Email,
			&recovery.DeviceName,
			&recovery.DeviceType,
			&recovery.OSFamily,
			&recovery.TenantName,
			&recovery.ConfigID,
			&closed,
			&recovery.DevicePublicKey,
			&recovery.RequestedAt,
			&recovery.ExpiryDate,
		)
		if err != nil {
			log.Err(err).Str("func", "*shamirRepository.RecoveriesToApprove").Msg("error: scanning recovery row")
			return nil, fmt.Errorf("%w: %w", ErrScanningRows, err)
		}

		recovery.ClosedShares = closed
		recoveries = append(recoveries, recovery)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrScanningRows, err)
	}

	return recoveries, nil
}

func (r *shamirRepository) IsTrustedHolder(ctx context.Context, vaultID int64) (bool, error) {
	log := logger.FromContext(ctx)

	var trusted bool
	if err := r.db.QueryRowContext(ctx, isTrustedHolder, vaultID).Scan(&trusted); err != nil {
		log.Err(err).Str("func", "*shamirRepository.IsTrustedHolder").Msg("error: trusted holder check failed")
		return false, fmt.Errorf("%w: %w", ErrExecutingQuery, err)
	}

	return trusted, nil
}

// ActiveConfigs lists the tenant's active configurations, joining in the
// holder roster and the owner's needs-update flag per configuration.
func (r *shamirRepository) ActiveConfigs(ctx context.Context, tenantID, vaultID int64) ([]models.ShamirConfigView, error) {
	log := logger.FromContext(ctx)

	rows, err := r.db.QueryContext(ctx, activeConfigs, tenantID)
	if err != nil {
		log.Err(err).Str("func", "*shamirRepository.ActiveConfigs").Msg("error: active configs query failed")
		return nil, fmt.Errorf("%w: %w", ErrExecutingQuery, err)
	}
	defer rows.Close()

	var views []models.ShamirConfigView
	for rows.Next() {
		var view models.ShamirConfigView
		if err := rows.Scan(&view.ID, &view.Name, &view.MinShares); err != nil {
			log.Err(err).Str("func", "*shamirRepository.ActiveConfigs").Msg("error: scanning config row")
			return nil, fmt.Errorf("%w: %w", ErrScanningRows, err)
		}
		views = append(views, view)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrScanningRows, err)
	}

	for i := range views {
		holders, err := r.configHolders(ctx, views[i].ID)
		if err != nil {
			return nil, err
		}
		views[i].Holders = holders

		var needsUpdate bool
		if err := r.db.QueryRowContext(ctx, configNeedsUpdate, views[i].ID, vaultID).Scan(&needsUpdate); err != nil {
			log.Err(err).Str("func", "*shamirRepository.ActiveConfigs").Msg("error: needs-update check failed")
			return nil, fmt.Errorf("%w: %w", ErrExecutingQuery, err)
		}
		views[i].NeedsUpdate = needsUpdate
	}

	return views, nil
}

func (r *shamirRepository) configHolders(ctx context.Context, configID int64) ([]models.ShamirHolder, error) {
	log := logger.FromContext(ctx)

	rows, err := r.db.QueryContext(ctx, configHolders, configID)
	if err != nil {
		log.Err(err).Str("func", "*shamirRepository.configHolders").Msg("error: config holders query failed")
		return nil, fmt.Errorf("%w: %w", ErrExecutingQuery, err)
	}
	defer rows.Close()

	var holders []models.ShamirHolder
	for rows.Next() {
		holder := models.ShamirHolder{ConfigID: configID}
		if err := rows.Scan(&holder.VaultID, &holder.NumShares, &holder.Email, &holder.SharingPublicKey); err != nil {
			log.Err(err).Str("func", "*shamirRepository.configHolders").Msg("error: scanning holder row")
			return nil, fmt.Errorf("%w: %w", ErrScanningRows, err)
		}
		holders = append(holders, holder)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrScanningRows, err)
	}

	return holders, nil
}
