package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/MKhiriev/go-vault-guard/internal/logger"
	"github.com/MKhiriev/go-vault-guard/models"
)

// deviceRepository is the PostgreSQL-backed implementation of
// [DeviceRepository]. It owns the "user_devices" scratch state that the
// authentication protocol mutates: the pending challenge pair and the
// password-backoff counter.
//
// All methods obtain a context-scoped logger via [logger.FromContext] for
// structured, request-level tracing of database interactions.
type deviceRepository struct {
	logger *logger.Logger
	db     *DB
}

// NewDeviceRepository constructs a [DeviceRepository] backed by the provided
// database connection and logger.
func NewDeviceRepository(db *DB, logger *logger.Logger) DeviceRepository {
	logger.Debug().Msg("creating device repository")
	return &deviceRepository{
		db:     db,
		logger: logger,
	}
}

// FindAuthDevice loads the joined vault+device projection used by both
// authentication flows. Only AUTHORIZED devices match; the deactivated flag
// is returned to the caller rather than filtered here so the service can
// log the distinction.
func (r *deviceRepository) FindAuthDevice(ctx context.Context, tenantID int64, email, deviceUID string) (models.AuthDevice, error) {
	log := logger.FromContext(ctx)

	var device models.AuthDevice
	err := r.db.QueryRowContext(ctx, findAuthDevice, email, deviceUID, tenantID).Scan(
		&device.DeviceID,
		&device.VaultID,
		&device.Deactivated,
		&device.DevicePublicKey,
		&device.PendingChallenge,
		&device.ChallengeExpiresAt,
		&device.PasswordErrorCount,
		&device.LastPasswordSubmissionAt,
		&device.EncryptedData,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.AuthDevice{}, ErrDeviceNotFound
		}

		log.Err(err).Str("func", "*deviceRepository.FindAuthDevice").Msg("error: device lookup failed")
		return models.AuthDevice{}, fmt.Errorf("unexpected DB error: %w", err)
	}

	return device, nil
}

// SetChallenge persists a freshly issued challenge, overwriting any prior
// one. A concurrently in-flight older challenge for the same device is
// thereby invalidated; only the newest challenge is answerable.
func (r *deviceRepository) SetChallenge(ctx context.Context, deviceID int64, challenge string, expiresAt time.Time) error {
	return r.execDeviceUpdate(ctx, "SetChallenge", setDeviceChallenge, deviceID, challenge, expiresAt)
}

// ClearChallenge nulls the pending challenge pair.
func (r *deviceRepository) ClearChallenge(ctx context.Context, deviceID int64) error {
	return r.execDeviceUpdate(ctx, "ClearChallenge", clearDeviceChallenge, deviceID)
}

// ClearAuthState nulls the pending challenge pair and resets the password
// error counter and last-submission timestamp.
func (r *deviceRepository) ClearAuthState(ctx context.Context, deviceID int64) error {
	return r.execDeviceUpdate(ctx, "ClearAuthState", clearDeviceAuthState, deviceID)
}

// RecordPasswordFailure persists the incremented counter and the submission
// timestamp the backoff policy computes from.
func (r *deviceRepository) RecordPasswordFailure(ctx context.Context, deviceID int64, errorCount int, at time.Time) error {
	return r.execDeviceUpdate(ctx, "RecordPasswordFailure", recordPasswordFailure, deviceID, errorCount, at)
}

func (r *deviceRepository) execDeviceUpdate(ctx context.Context, op, query string, args ...any) error {
	log := logger.FromContext(ctx)

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		log.Err(err).
			Str("func", "*deviceRepository."+op).
			Msg("failed to update device auth state")
		return fmt.Errorf("%w: %w", ErrExecutingStatement, err)
	}

	return nil
}

// CheckAuthState runs the composed session-gated auth check query built by
// [buildAuthCheckQuery] and scans the requested projections.
func (r *deviceRepository) CheckAuthState(ctx context.Context, tenantID int64, email, deviceUID string, opts ...AuthCheckOption) (models.AuthCheckResult, error) {
	log := logger.FromContext(ctx)

	spec := newAuthCheckSpec(opts...)

	query, args, err := buildAuthCheckQuery(tenantID, email, deviceUID, spec)
	if err != nil {
		log.Err(err).Str("func", "*deviceRepository.CheckAuthState").Msg("failed to build auth check query")
		return models.AuthCheckResult{}, fmt.Errorf("%w: %w", ErrBuildingSQLQuery, err)
	}

	var result models.AuthCheckResult
	var deactivated bool

	dests := []any{&result.VaultID, &deactivated}
	if spec.withPublicKey {
		dests = append(dests, &result.SharingPublicKey)
	}
	if spec.withEncryptedData {
		dests = append(dests, &result.EncryptedData)
	}
	if spec.withDeviceID {
		dests = append(dests, &result.DeviceID)
	}

	if err := r.db.QueryRowContext(ctx, query, args...).Scan(dests...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.AuthCheckResult{}, ErrAuthCheckNotGranted
		}

		log.Err(err).Str("func", "*deviceRepository.CheckAuthState").Msg("error: auth check query failed")
		return models.AuthCheckResult{}, fmt.Errorf("unexpected DB error: %w", err)
	}

	if deactivated {
		return models.AuthCheckResult{}, ErrAuthCheckNotGranted
	}

	return result, nil
}

// DevicesWithPasswordBackup lists the vault's AUTHORIZED devices carrying a
// non-empty encrypted password backup blob. The blobs themselves are not
// returned, only enough metadata to pick a device.
func (r *deviceRepository) DevicesWithPasswordBackup(ctx context.Context, vaultID int64) ([]models.DeviceWithPasswordBackup, error) {
	log := logger.FromContext(ctx)

	rows, err := r.db.QueryContext(ctx, devicesWithPasswordBackup, vaultID)
	if err != nil {
		log.Err(err).Str("func", "*deviceRepository.DevicesWithPasswordBackup").Msg("error: device listing failed")
		return nil, fmt.Errorf("%w: %w", ErrExecutingQuery, err)
	}
	defer rows.Close()

	var devices []models.DeviceWithPasswordBackup
	for rows.Next() {
		var device models.DeviceWithPasswordBackup
		if err := rows.Scan(&device.Name, &device.ID, &device.Type, &device.OSFamily); err != nil {
			log.Err(err).Str("func", "*deviceRepository.DevicesWithPasswordBackup").Msg("error: scanning device row")
			return nil, fmt.Errorf("%w: %w", ErrScanningRow, err)
		}
		devices = append(devices, device)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrScanningRows, err)
	}

	return devices, nil
}
