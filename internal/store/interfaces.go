package store

import (
	"context"
	"time"

	"github.com/MKhiriev/go-vault-guard/models"
)

// TenantRepository resolves public tenant identifiers to internal ids.
type TenantRepository interface {
	ResolveTenant(ctx context.Context, publicUUID string) (int64, error)
}

// DeviceRepository is the persistence surface of the authentication
// protocol: the joined vault+device lookup plus the mutable challenge and
// backoff scratch state.
type DeviceRepository interface {
	// FindAuthDevice loads the vault+device projection both challenge
	// factors evaluate against. Returns ErrDeviceNotFound when no
	// AUTHORIZED device matches.
	FindAuthDevice(ctx context.Context, tenantID int64, email, deviceUID string) (models.AuthDevice, error)

	// SetChallenge overwrites the device's pending challenge; any
	// previously issued challenge stops being answerable.
	SetChallenge(ctx context.Context, deviceID int64, challenge string, expiresAt time.Time) error

	// ClearChallenge nulls the pending challenge only. Called after a
	// successful device-only authentication.
	ClearChallenge(ctx context.Context, deviceID int64) error

	// ClearAuthState nulls the pending challenge and resets the password
	// error counter. Called after a successful full authentication.
	ClearAuthState(ctx context.Context, deviceID int64) error

	// RecordPasswordFailure persists the incremented error counter and the
	// submission timestamp.
	RecordPasswordFailure(ctx context.Context, deviceID int64, errorCount int, at time.Time) error

	// CheckAuthState performs the session-gated auth check: matching
	// email+fingerprint, AUTHORIZED, non-deactivated vault, plus any
	// predicates and projections requested through options. Returns
	// ErrAuthCheckNotGranted when no row satisfies all predicates.
	CheckAuthState(ctx context.Context, tenantID int64, email, deviceUID string, opts ...AuthCheckOption) (models.AuthCheckResult, error)

	// DevicesWithPasswordBackup lists the vault's AUTHORIZED devices that
	// carry a non-empty encrypted password backup.
	DevicesWithPasswordBackup(ctx context.Context, vaultID int64) ([]models.DeviceWithPasswordBackup, error)
}

// ShamirRepository owns all durable state of the backup and recovery
// workflows.
type ShamirRepository interface {
	HasBackup(ctx context.Context, vaultID int64) (bool, error)

	// ResolveBackupConfig resolves the single configuration the vault backs
	// up against. Returns ErrConfigNotFound for vaults without backups.
	ResolveBackupConfig(ctx context.Context, vaultID int64) (int64, error)

	// ReplaceBackup atomically replaces the owner's entire share set:
	// delete, per-holder share-count check, insert, abort of in-flight
	// PENDING requests for this owner+config. Any failure rolls the whole
	// transaction back; a count mismatch surfaces as ErrShareCountMismatch.
	ReplaceBackup(ctx context.Context, ownerVaultID, configID int64, holderShares []models.HolderShares) error

	// CreateRecoveryRequest inserts a new PENDING request after aborting
	// expired PENDING leftovers and nulling stray open shares for the
	// vault, all in one transaction. A concurrent unexpired PENDING request
	// surfaces as ErrRecoveryAlreadyPending (partial unique index).
	CreateRecoveryRequest(ctx context.Context, vaultID, deviceID, configID int64, publicKey string, expiryDate time.Time) (int64, error)

	// PendingRequestByVaultConfig returns the PENDING request of the given
	// owner+config, or ErrNoPendingRequest.
	PendingRequestByVaultConfig(ctx context.Context, vaultID, configID int64) (models.ShamirRecoveryRequest, error)

	// PendingUnexpiredRequestByDevice returns the PENDING, unexpired
	// request created from the given device, or ErrNoPendingRequest.
	PendingUnexpiredRequestByDevice(ctx context.Context, deviceID int64, now time.Time) (models.ShamirRecoveryRequest, error)

	// SetOpenShares writes a holder's re-encrypted shares into the share
	// row keyed by (owner, holder, config).
	SetOpenShares(ctx context.Context, ownerVaultID, holderVaultID, configID int64, openShares [][]byte, at time.Time) error

	// AppendDenial records the holder's refusal on the matching PENDING,
	// unexpired request. Idempotent: returns (0, nil) when the denial was
	// already recorded or no matching request exists.
	AppendDenial(ctx context.Context, ownerVaultID, holderVaultID, configID int64, now time.Time) (int64, error)

	// IsRefused reports whether quorum is structurally unreachable for the
	// request: the shares of all non-denying holders summed fall short of
	// min_shares.
	IsRefused(ctx context.Context, requestID int64) (bool, error)

	// MinShares returns the quorum threshold of the request's config.
	MinShares(ctx context.Context, requestID int64) (int, error)

	// HolderShareStates returns, per holder other than the owner, the
	// expected share count and currently open shares of the request's
	// backup.
	HolderShareStates(ctx context.Context, requestID int64) ([]models.HolderShareState, error)

	// AbortPendingByDevice / CompletePendingByDevice transition the
	// device's PENDING request to its terminal state.
	AbortPendingByDevice(ctx context.Context, deviceID int64) error
	CompletePendingByDevice(ctx context.Context, deviceID int64, at time.Time) error

	// ClearOpenShares nulls all open shares of the owner's vault.
	ClearOpenShares(ctx context.Context, vaultID int64) error

	// SweepExpiredOpenShares nulls open shares of every owner without a
	// still-valid PENDING request. Returns the number of cleared rows.
	SweepExpiredOpenShares(ctx context.Context, now time.Time) (int64, error)

	// RecoveriesToApprove lists the pending requests the holder can still
	// contribute to.
	RecoveriesToApprove(ctx context.Context, holderVaultID int64, now time.Time) ([]models.RecoveryToApprove, error)

	// IsTrustedHolder reports whether the vault participates as a holder in
	// any active config or holds shares of any backup.
	IsTrustedHolder(ctx context.Context, vaultID int64) (bool, error)

	// ActiveConfigs lists the tenant's active configurations with holders
	// and the owner's needs-update flag.
	ActiveConfigs(ctx context.Context, tenantID, vaultID int64) ([]models.ShamirConfigView, error)
}
