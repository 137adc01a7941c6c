package models

import "github.com/golang-jwt/jwt/v5"

// SessionClaims is the claim set carried by a session token. The token is
// opaque to clients; the binding (tenant, email, device fingerprint) is what
// session validation checks against the presented request.
type SessionClaims struct {
	jwt.RegisteredClaims

	TenantID int64  `json:"tid"`
	Email    string `json:"eml"`
	DeviceID string `json:"dev"`

	// DeviceOnly marks a session minted by device-only authentication.
	// Such sessions are not accepted where a full (password+device)
	// session is required.
	DeviceOnly bool `json:"donly,omitempty"`
}

// Session is an issued session token together with its parsed claims.
type Session struct {
	Token  string
	Claims SessionClaims
}
