package models

import "time"

// Device authorization statuses. Only AUTHORIZED devices can take part in
// any authentication flow.
const (
	DeviceAuthorized = "AUTHORIZED"
	DevicePending    = "PENDING"
	DeviceRevoked    = "REVOKED"
)

// Device is a client installation bound to a vault. The challenge fields are
// mutable scratch state: rewritten on every challenge issuance and cleared on
// a successful full authentication.
type Device struct {
	ID      int64 `json:"-"`
	VaultID int64 `json:"-"`

	// UniqueID is the device fingerprint, unique across the tenant.
	UniqueID string `json:"deviceId"`

	Name     string `json:"deviceName,omitempty"`
	Type     string `json:"deviceType,omitempty"`
	OSFamily string `json:"osFamily,omitempty"`

	// AuthorizationStatus must equal DeviceAuthorized for any auth flow.
	AuthorizationStatus string `json:"-"`

	// PublicKey is the device's Ed25519 public key (crypto v2), base64.
	// Empty for devices that never opted into the v2 mechanism.
	PublicKey string `json:"-"`

	// PendingChallenge and ChallengeExpiresAt hold the currently issued
	// device challenge, if any.
	PendingChallenge   string     `json:"-"`
	ChallengeExpiresAt *time.Time `json:"-"`

	// PasswordErrorCount and LastPasswordSubmissionAt drive the
	// exponential-backoff lockout. Scoped per device, not per vault.
	PasswordErrorCount       int        `json:"-"`
	LastPasswordSubmissionAt *time.Time `json:"-"`

	// EncryptedPasswordBackup is an optional client-encrypted local
	// password backup blob. Opaque to the server.
	EncryptedPasswordBackup string `json:"-"`

	CreatedAt time.Time `json:"-"`
}

// AuthDevice is the joined vault+device projection loaded by the
// authentication queries. It carries every column the two challenge factors
// need so each flow costs a single lookup.
type AuthDevice struct {
	DeviceID    int64
	VaultID     int64
	Deactivated bool

	// DevicePublicKey is the device's Ed25519 public key (base64), empty if
	// the device never registered one.
	DevicePublicKey string

	PendingChallenge   string
	ChallengeExpiresAt *time.Time

	PasswordErrorCount       int
	LastPasswordSubmissionAt *time.Time

	// EncryptedData is the vault's formatP00x payload, loaded only by the
	// composite authentication flow.
	EncryptedData string
}

// DeviceAuth is the result of a successful device-only authentication:
// the resolved identity every recovery-owner operation works with.
type DeviceAuth struct {
	VaultID  int64
	DeviceID int64
}
