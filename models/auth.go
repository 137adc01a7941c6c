package models

// AuthCheckResult is the projection returned by a successful session-gated
// auth check. Optional fields are only populated when the corresponding
// check option requested them.
type AuthCheckResult struct {
	VaultID int64

	// SharingPublicKey is populated by WithPublicKey.
	SharingPublicKey string

	// EncryptedData is populated by WithEncryptedData.
	EncryptedData string

	// DeviceID is populated by WithDeviceID.
	DeviceID int64
}
