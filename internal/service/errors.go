package service

import (
	"errors"
	"fmt"
	"time"
)

var (
	ErrInvalidDataProvided = errors.New("invalid data provided")

	// ErrAuthenticationFailed covers every identity failure the server
	// deliberately does not distinguish for the caller: unknown device,
	// deactivated vault, missing device key, missing pending challenge.
	ErrAuthenticationFailed = errors.New("authentication failed")

	ErrBadPassword       = errors.New("wrong password challenge response")
	ErrBadDeviceResponse = errors.New("wrong device challenge response")
	ErrChallengeExpired  = errors.New("device challenge is expired")

	ErrSessionInvalid = errors.New("session is expired or invalid")

	ErrConfigNotFound         = errors.New("no shamir config found for vault")
	ErrRecoveryAlreadyPending = errors.New("a recovery request is already pending")
	ErrNoPendingRecovery      = errors.New("no pending recovery request")
	ErrBackupCreationFailed   = errors.New("backup creation failed")

	// ErrStorageTemporary wraps database failures the classifier deems
	// retryable, so the transport can answer 503 instead of 500.
	ErrStorageTemporary = errors.New("temporary storage failure")
)

// BlockedError is returned by the composite authentication flow while the
// password backoff lockout is active. NextRetryDate is the earliest moment a
// new attempt can succeed.
type BlockedError struct {
	NextRetryDate time.Time
}

func (e *BlockedError) Error() string {
	return fmt.Sprintf("too many failed password attempts, retry after %s", e.NextRetryDate.Format(time.RFC3339))
}
