package models

import "time"

// Vault represents a user's credential vault account. A vault belongs to
// exactly one tenant and its identity is immutable after creation; the only
// mutable flag is Deactivated, which is terminal and checked on every
// authentication path.
type Vault struct {
	// ID is the server-assigned primary key.
	ID int64 `json:"id"`

	// Email is the unique (per tenant) address the vault is registered under.
	Email string `json:"email"`

	// TenantID is the internal identifier of the owning tenant.
	TenantID int64 `json:"-"`

	// SharingPublicKey is the vault's long-term public key used by other
	// vaults to encrypt shares and shared items to this vault.
	SharingPublicKey string `json:"sharingPublicKey,omitempty"`

	// EncryptedData is the versioned encrypted vault payload
	// (formatP002/formatP003). The server never decrypts it; it only reads
	// the password-challenge segments out of it.
	EncryptedData string `json:"-"`

	// Deactivated marks the vault as terminally disabled. No authentication
	// flow succeeds for a deactivated vault.
	Deactivated bool `json:"-"`

	CreatedAt time.Time `json:"createdAt,omitempty"`
}

// Tenant is an organisational unit owning vaults and Shamir configurations.
// The public UUID is the only identifier exposed outside the service;
// internal integer ids never leave the database layer.
type Tenant struct {
	ID         int64
	PublicUUID string
	Name       string
}
