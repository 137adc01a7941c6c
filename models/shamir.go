package models

import "time"

// Recovery request statuses. PENDING is the only non-terminal state.
const (
	RecoveryPending   = "PENDING"
	RecoveryAborted   = "ABORTED"
	RecoveryCompleted = "COMPLETED"
)

// Symbolic states returned by the recovery status endpoint.
const (
	RecoveryStateNotSetup         = "not_setup"
	RecoveryStateNoPendingRequest = "no_pending_recovery_request"
	RecoveryStatePending          = "pending"
	RecoveryStateRefused          = "refused"
	RecoveryStateReady            = "ready"
)

// ShamirConfig is one recovery policy: a named threshold over a set of
// holders. Provisioned by an administrator, read-only for the protocol.
type ShamirConfig struct {
	ID        int64  `json:"id"`
	Name      string `json:"name"`
	MinShares int    `json:"minShares"`
	IsActive  bool   `json:"-"`
	TenantID  int64  `json:"-"`
}

// ShamirHolder assigns a number of shares of a configuration to a holder
// vault.
type ShamirHolder struct {
	VaultID   int64 `json:"id"`
	ConfigID  int64 `json:"-"`
	NumShares int   `json:"nbShares"`

	// Email and SharingPublicKey are joined in from the holder's vault for
	// client display and share encryption.
	Email            string `json:"email"`
	SharingPublicKey string `json:"pubKey"`
}

// ShamirShare is the share row keyed by (owner vault, holder vault, config).
// ClosedShares are written by the owner at backup time, encrypted to the
// holder's long-term key. OpenShares are written by the holder during an
// active recovery, re-encrypted to the requesting device's ephemeral key.
// Both are opaque blobs the server must never interpret.
//
// Invariant: OpenShares is non-nil only while a PENDING, unexpired recovery
// request exists for the owner.
type ShamirShare struct {
	VaultID       int64
	HolderVaultID int64
	ConfigID      int64

	ClosedShares [][]byte
	OpenShares   [][]byte

	OpenAt    *time.Time
	CreatedAt time.Time
}

// ShamirRecoveryRequest is the one tracked recovery instance per owner
// vault. Terminal rows are never deleted; they are the audit trail.
type ShamirRecoveryRequest struct {
	ID       int64
	DeviceID int64
	VaultID  int64
	ConfigID int64

	// PublicKey is the requesting device's ephemeral public key. Holders
	// re-encrypt shares to it, limiting exposure to this single attempt.
	PublicKey string

	Status      string
	CreatedAt   time.Time
	CompletedAt *time.Time
	ExpiryDate  time.Time

	// DeniedBy lists holder vault ids that refused this request.
	DeniedBy []int64
}

// HolderShareState is one holder's contribution snapshot used by the status
// aggregation: how many shares the holder is expected to open and what is
// currently open.
type HolderShareState struct {
	HolderVaultID int64
	Email         string
	NumShares     int
	OpenShares    [][]byte
}

// HolderStatus is the client-facing per-holder progress line of a pending
// recovery.
type HolderStatus struct {
	Email     string `json:"email"`
	NumShares int    `json:"nbShares"`
	Open      bool   `json:"open"`
}

// RecoveryStatusView is the aggregate returned by the status endpoint.
// Exactly one of the optional sections is populated depending on Status.
type RecoveryStatusView struct {
	Status string `json:"status"`

	// pending
	MissingShares  int            `json:"missingShares,omitempty"`
	NumOpenShares  int            `json:"nbOpenShares,omitempty"`
	HolderStatuses []HolderStatus `json:"holderStatuses,omitempty"`

	// ready: the flattened union of all open shares, base64 in JSON.
	OpenShares [][]byte `json:"openShares,omitempty"`
}

// RecoveryToApprove is a pending recovery request presented to one of its
// holders, with enough requester metadata for the holder to decide.
type RecoveryToApprove struct {
	OwnerVaultID    int64     `json:"userVaultId"`
	Email           string    `json:"email"`
	DeviceName      string    `json:"deviceName"`
	DeviceType      string    `json:"deviceType"`
	OSFamily        string    `json:"osFamily"`
	TenantName      string    `json:"tenantName"`
	ConfigID        int64     `json:"shamirConfigId"`
	ClosedShares    [][]byte  `json:"closedShares"`
	DevicePublicKey string    `json:"devicePublicKey"`
	RequestedAt     time.Time `json:"requestedAt"`
	ExpiryDate      time.Time `json:"expiryDate"`
}

// RecoveriesToApproveView is the holder-side listing response.
type RecoveriesToApproveView struct {
	IsShamirTrustedPerson   bool                `json:"isShamirTrustedPerson"`
	PendingRecoveryRequests []RecoveryToApprove `json:"pendingRecoveryRequests"`
}

// ShamirConfigView is one active configuration as presented to a vault
// owner, including whether the owner's backup needs to be (re)uploaded.
type ShamirConfigView struct {
	ID          int64          `json:"id"`
	Name        string         `json:"name"`
	MinShares   int            `json:"minShares"`
	Holders     []ShamirHolder `json:"holders"`
	NeedsUpdate bool           `json:"needsUpdate"`
}
