package service

import (
	"context"

	"github.com/MKhiriev/go-vault-guard/internal/store"
	"github.com/MKhiriev/go-vault-guard/models"
)

// SessionService mints and validates session tokens. Tokens are opaque to
// clients; validation re-binds them to the identity presented alongside.
type SessionService interface {
	// CreateSession issues a token bound to (tenant, email, fingerprint).
	// deviceOnly marks sessions minted without the password factor.
	CreateSession(ctx context.Context, tenantID int64, email, deviceUID string, deviceOnly bool) (models.Session, error)

	// CheckSession validates the token signature and lifetime and verifies
	// the claims match the presented identity. When requireFull is set,
	// device-only sessions are rejected. Any failure is normalised to
	// ErrSessionInvalid.
	CheckSession(ctx context.Context, token string, tenantID int64, email, deviceUID string, requireFull bool) (models.SessionClaims, error)
}

// AuthService implements the challenge-response authentication protocol.
type AuthService interface {
	// Authenticate runs the composite password+device flow and mints a full
	// session on success. Failure ordering is part of the contract: lockout
	// is reported before anything about the password leaks, a wrong
	// password is reported without evaluating the device factor.
	Authenticate(ctx context.Context, tenantID int64, req models.AuthenticateRequest) (models.Session, error)

	// AuthenticateDeviceOnly verifies the device factor alone and mints a
	// device-only session.
	AuthenticateDeviceOnly(ctx context.Context, tenantID int64, req models.DeviceOnlyAuthRequest) (models.DeviceAuth, models.Session, error)

	// IssueDeviceChallenge generates and stores a fresh challenge for the
	// device to sign. Any previously issued challenge stops being valid.
	IssueDeviceChallenge(ctx context.Context, tenantID int64, req models.DeviceChallengeRequest) (models.DeviceChallengeResponse, error)

	// DeviceAuthWithChallenge is the inline variant used by the
	// recovery-owner operations: with an empty challenge response it issues
	// a fresh challenge and returns it as the second result; with a signed
	// response it authenticates the device.
	DeviceAuthWithChallenge(ctx context.Context, tenantID int64, req models.DeviceOnlyAuthRequest) (models.DeviceAuth, *models.DeviceChallengeResponse, error)

	// CheckBasicAuth validates the session envelope and runs the composed
	// auth check with the given predicates and projections.
	CheckBasicAuth(ctx context.Context, tenantID int64, req models.SessionRequest, opts ...store.AuthCheckOption) (models.AuthCheckResult, error)

	// CheckDeviceAuth validates a device-only session against the presented
	// identity and the current device state. Full sessions pass too.
	CheckDeviceAuth(ctx context.Context, tenantID int64, req models.DeviceSessionRequest) (models.DeviceAuth, error)

	// DevicesWithPasswordBackup lists the caller's devices holding an
	// encrypted local password backup. Device-session gated.
	DevicesWithPasswordBackup(ctx context.Context, tenantID int64, req models.DeviceSessionRequest) (models.DevicesWithPasswordBackupView, error)
}

// ShamirBackupService owns the owner-side backup surface.
type ShamirBackupService interface {
	// UpsertBackup atomically replaces the owner's entire share backup for
	// a configuration.
	UpsertBackup(ctx context.Context, tenantID int64, req models.UpsertBackupRequest) error

	// Configs lists the tenant's active configurations together with the
	// caller's needs-update flag.
	Configs(ctx context.Context, tenantID int64, req models.SessionRequest) ([]models.ShamirConfigView, error)
}

// ShamirRecoveryService owns the recovery request lifecycle. RequestRecovery
// and Abort are authenticated by device challenge; Status polls under a
// device-only session; Finish and the holder-side operations require a full
// session.
//
// Challenge-gated methods return a non-nil *models.DeviceChallengeResponse
// when the request carried no challenge response; the caller must sign it
// and repeat the call.
type ShamirRecoveryService interface {
	RequestRecovery(ctx context.Context, tenantID int64, req models.RequestRecoveryRequest) (*models.DeviceChallengeResponse, error)
	Status(ctx context.Context, tenantID int64, req models.DeviceSessionRequest) (models.RecoveryStatusView, error)
	Abort(ctx context.Context, tenantID int64, req models.DeviceOnlyAuthRequest) (*models.DeviceChallengeResponse, error)

	// Finish marks the caller's pending request COMPLETED once the secret
	// has been reconstructed client-side. Requires a full session: the
	// recovered vault is expected to have authenticated fully by now.
	Finish(ctx context.Context, tenantID int64, req models.SessionRequest) error

	// OpenShares stores a holder's approval: shares re-encrypted to the
	// requesting device's ephemeral key.
	OpenShares(ctx context.Context, tenantID int64, req models.OpenSharesRequest) error

	// Deny records a holder's refusal. Idempotent.
	Deny(ctx context.Context, tenantID int64, req models.DenyRequest) error

	// RecoveriesToApprove lists the pending requests the caller can still
	// contribute to as a holder.
	RecoveriesToApprove(ctx context.Context, tenantID int64, req models.SessionRequest) (models.RecoveriesToApproveView, error)

	// CleanupExpiredOpenShares nulls open shares left behind by expired or
	// terminated requests. Run by the daily sweep worker.
	CleanupExpiredOpenShares(ctx context.Context) (int64, error)
}
