// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

// Package crypto implements the stateless primitives of the authentication
// protocol: device challenge generation and verification, the versioned
// password-challenge payload codec, and the lockout backoff policy.
//
// Nothing in this package touches storage; persistence of challenge state
// and error counters belongs to the store layer.
package crypto

import (
	"crypto/ed25519"
	"crypto/rand"
	"encoding/base64"
	"io"
	"time"
)

// challengeSize is the length in bytes of a device challenge.
const challengeSize = 32

// NewDeviceChallenge reads 32 random bytes from the OS CSPRNG and returns
// them base64-encoded, together with the challenge's expiry computed from
// now and ttl.
//
// The caller is responsible for persisting the pair on the device row,
// overwriting any previously issued challenge (only the newest challenge is
// answerable).
func NewDeviceChallenge(now time.Time, ttl time.Duration) (challenge string, expiresAt time.Time, err error) {
	raw := make([]byte, challengeSize)
	if _, err := io.ReadFull(rand.Reader, raw); err != nil {
		return "", time.Time{}, err
	}

	return base64.StdEncoding.EncodeToString(raw), now.Add(ttl), nil
}

// VerifyDeviceSignature checks that signature (base64) is a valid Ed25519
// signature of challenge (base64) under publicKey (base64).
//
// Returns false on any decoding failure or on a public key of the wrong
// size; it never reveals which check failed.
func VerifyDeviceSignature(challenge, signature, publicKey string) bool {
	challengeBytes, err := base64.StdEncoding.DecodeString(challenge)
	if err != nil {
		return false
	}

	signatureBytes, err := base64.StdEncoding.DecodeString(signature)
	if err != nil {
		return false
	}

	keyBytes, err := base64.StdEncoding.DecodeString(publicKey)
	if err != nil || len(keyBytes) != ed25519.PublicKeySize {
		return false
	}

	return ed25519.Verify(ed25519.PublicKey(keyBytes), challengeBytes, signatureBytes)
}
