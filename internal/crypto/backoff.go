// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package crypto

import "time"

// Backoff tuning. Three attempts are free; each failure beyond that adds one
// more minute of lockout than the previous one. Exponential in the count of
// consecutive failures, not in wall-clock time.
const (
	maxFreeAttempts  = 3
	errorResetWindow = time.Hour
)

// ShouldResetErrorCount reports whether the password error counter must be
// treated as zero because the last failed attempt is more than one hour old.
// A nil lastSubmission (no failure recorded) never triggers a reset.
func ShouldResetErrorCount(lastSubmission *time.Time, now time.Time) bool {
	if lastSubmission == nil {
		return false
	}
	return now.Sub(*lastSubmission) > errorResetWindow
}

// PasswordUnblockTime computes the end of the lockout window from the last
// submission timestamp and the current error count.
//
// Returns nil when no lockout applies: no failure recorded, or errorCount is
// still within the free attempt budget. Otherwise the device is blocked
// until lastSubmission + (errorCount - maxFreeAttempts + 1) minutes.
func PasswordUnblockTime(lastSubmission *time.Time, errorCount int) *time.Time {
	if lastSubmission == nil {
		return nil
	}

	minutesToWait := errorCount - maxFreeAttempts + 1
	if minutesToWait <= 0 {
		return nil
	}

	blockedUntil := lastSubmission.Add(time.Duration(minutesToWait) * time.Minute)
	return &blockedUntil
}
