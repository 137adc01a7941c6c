// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package crypto

import (
	"crypto/subtle"
	"encoding/base64"
	"strconv"
	"strings"

	"golang.org/x/crypto/blake2b"
)

// Supported format tags of the encrypted vault payload.
const (
	FormatP002 = "formatP002"
	FormatP003 = "formatP003"
)

// payloadSegments is the number of dash-separated segments of a versioned
// payload:
//
//	format-algo-cpuCost-memoryCost-salt-challenge-expectedResponse-nonce-cipherText
//
// All variable segments are base64 (standard alphabet, so they never contain
// the delimiter).
const payloadSegments = 9

const (
	segFormat = iota
	segAlgorithm
	segCPUCost
	segMemoryCost
	segSalt
	segChallenge
	segExpectedResponse
	segNonce
	segCipherText
)

// PasswordChallenge is the client-facing half of a parsed payload: the key
// derivation parameters and the challenge the client must answer. The
// expected response never leaves the server.
type PasswordChallenge struct {
	Format              string
	DerivationAlgorithm string
	CPUCost             int
	MemoryCost          int
	SaltBase64          string
	ChallengeBase64     string
}

// splitPayload validates the format tag and segment count of payload and
// returns its segments.
func splitPayload(payload string) ([]string, error) {
	parts := strings.Split(payload, "-")
	if len(parts) != payloadSegments {
		return nil, ErrMalformedPayload
	}

	if parts[segFormat] != FormatP002 && parts[segFormat] != FormatP003 {
		return nil, ErrUnsupportedPayloadFormat
	}

	return parts, nil
}

// ParsePasswordChallenge extracts the derivation parameters and the password
// challenge from a formatP002/formatP003 payload.
//
// Returns ErrUnsupportedPayloadFormat for unknown format tags and
// ErrMalformedPayload when the segment structure does not match.
func ParsePasswordChallenge(payload string) (PasswordChallenge, error) {
	parts, err := splitPayload(payload)
	if err != nil {
		return PasswordChallenge{}, err
	}

	cpuCost, err := strconv.Atoi(parts[segCPUCost])
	if err != nil {
		return PasswordChallenge{}, ErrMalformedPayload
	}
	memoryCost, err := strconv.Atoi(parts[segMemoryCost])
	if err != nil {
		return PasswordChallenge{}, ErrMalformedPayload
	}

	return PasswordChallenge{
		Format:              parts[segFormat],
		DerivationAlgorithm: parts[segAlgorithm],
		CPUCost:             cpuCost,
		MemoryCost:          memoryCost,
		SaltBase64:          parts[segSalt],
		ChallengeBase64:     parts[segChallenge],
	}, nil
}

// VerifyPasswordChallenge hashes the client-submitted response (base64) with
// BLAKE2b-256 and compares it, byte for byte in constant time, against the
// hashed expected-response segment of payload.
//
// The stored segment holds only the digest of the expected answer (see
// RehashForStorage), so a database compromise does not directly reveal it.
func VerifyPasswordChallenge(payload, response string) (bool, error) {
	parts, err := splitPayload(payload)
	if err != nil {
		return false, err
	}

	expected, err := base64.StdEncoding.DecodeString(parts[segExpectedResponse])
	if err != nil {
		return false, ErrMalformedPayload
	}

	responseBytes, err := base64.StdEncoding.DecodeString(response)
	if err != nil {
		return false, nil
	}

	digest := blake2b.Sum256(responseBytes)

	return subtle.ConstantTimeCompare(expected, digest[:]) == 1, nil
}

// RehashForStorage replaces the expected-response segment of payload with its
// BLAKE2b-256 digest. Applied once at provisioning time, before the payload
// is persisted; afterwards the server only ever holds the digest.
func RehashForStorage(payload string) (string, error) {
	parts, err := splitPayload(payload)
	if err != nil {
		return "", err
	}

	raw, err := base64.StdEncoding.DecodeString(parts[segExpectedResponse])
	if err != nil {
		return "", ErrMalformedPayload
	}

	digest := blake2b.Sum256(raw)
	parts[segExpectedResponse] = base64.StdEncoding.EncodeToString(digest[:])

	return strings.Join(parts, "-"), nil
}
