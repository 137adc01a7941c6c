package models

// Request bodies of the HTTP surface. All endpoints take JSON in and return
// JSON (or an empty body) out; share blobs travel as base64 strings inside
// JSON, which [][]byte marshals to natively.

// AuthenticateRequest is the composite (password + device) authentication
// input.
type AuthenticateRequest struct {
	UserEmail                 string `json:"userEmail"`
	DeviceID                  string `json:"deviceId"`
	PasswordChallengeResponse string `json:"passwordChallengeResponse"`
	DeviceChallengeResponse   string `json:"deviceChallengeResponse"`
}

// DeviceOnlyAuthRequest authenticates a device without the password factor.
type DeviceOnlyAuthRequest struct {
	UserEmail               string `json:"userEmail"`
	DeviceID                string `json:"deviceId"`
	DeviceChallengeResponse string `json:"deviceChallengeResponse"`
}

// SessionRequest is the common envelope of every session-gated call.
type SessionRequest struct {
	UserEmail     string `json:"userEmail"`
	DeviceID      string `json:"deviceId"`
	DeviceSession string `json:"deviceSession"`
}

// DeviceSessionRequest is the envelope of calls gated by a device-only
// session, the token minted by authenticate-device-only. Cheap to present
// repeatedly: no challenge round trip per call.
type DeviceSessionRequest struct {
	UserEmail         string `json:"userEmail"`
	DeviceID          string `json:"deviceId"`
	DeviceOnlySession string `json:"deviceOnlySession"`
}

// DeviceChallengeRequest asks the server to issue a fresh device challenge.
type DeviceChallengeRequest struct {
	UserEmail string `json:"userEmail"`
	DeviceID  string `json:"deviceId"`
}

// RequestRecoveryRequest starts a recovery attempt. PublicKey is the
// requesting device's ephemeral public key.
type RequestRecoveryRequest struct {
	DeviceOnlyAuthRequest
	PublicKey string `json:"publicKey"`
}

// HolderShares is one holder's entry of a backup upload.
type HolderShares struct {
	HolderID     int64    `json:"holderId"`
	ClosedShares [][]byte `json:"closedShares"`
}

// UpsertBackupRequest replaces the owner's entire share backup for a
// configuration.
type UpsertBackupRequest struct {
	SessionRequest
	ConfigID     int64          `json:"shamirConfigId"`
	HolderShares []HolderShares `json:"holderShares"`
}

// OpenSharesRequest is a holder's approval: re-encrypted shares for the
// target owner's pending recovery.
type OpenSharesRequest struct {
	SessionRequest
	TargetVaultID int64    `json:"targetVaultId"`
	ConfigID      int64    `json:"shamirConfigId"`
	OpenShares    [][]byte `json:"openShares"`
}

// DenyRequest is a holder's refusal of the target owner's pending recovery.
type DenyRequest struct {
	SessionRequest
	TargetVaultID int64 `json:"targetVaultId"`
	ConfigID      int64 `json:"shamirConfigId"`
}

// AuthenticateResponse carries the minted session token.
type AuthenticateResponse struct {
	Success       bool   `json:"success"`
	DeviceSession string `json:"deviceSession"`
}

// DeviceChallengeResponse returns a freshly issued challenge for the device
// to sign.
type DeviceChallengeResponse struct {
	DeviceChallenge string `json:"deviceChallenge"`
}

// DeviceWithPasswordBackup is one device of the caller's vault carrying an
// encrypted local password backup.
type DeviceWithPasswordBackup struct {
	Name     string `json:"name"`
	ID       string `json:"id"`
	Type     string `json:"type"`
	OSFamily string `json:"osFamily"`
}

// DevicesWithPasswordBackupView is the password-backup listing response.
type DevicesWithPasswordBackupView struct {
	Devices []DeviceWithPasswordBackup `json:"devices"`
}

// ErrorResponse is the structured error body: a symbolic code the client
// branches on, plus the unblock time for lockout errors.
type ErrorResponse struct {
	Error         string `json:"error"`
	NextRetryDate string `json:"nextRetryDate,omitempty"`
}
