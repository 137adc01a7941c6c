package crypto

import (
	"encoding/base64"
	"errors"
	"strings"
	"testing"

	"golang.org/x/crypto/blake2b"
)

// buildPayload assembles a formatP003 payload whose expected-response
// segment already holds the digest of response, the way RehashForStorage
// leaves it at provisioning time.
func buildPayload(t *testing.T, format, response string) string {
	t.Helper()

	responseBytes, err := base64.StdEncoding.DecodeString(response)
	if err != nil {
		t.Fatalf("bad response fixture: %v", err)
	}
	digest := blake2b.Sum256(responseBytes)

	parts := []string{
		format,
		"argon2id",
		"3",
		"65536",
		base64.StdEncoding.EncodeToString([]byte("salt")),
		base64.StdEncoding.EncodeToString([]byte("challenge")),
		base64.StdEncoding.EncodeToString(digest[:]),
		base64.StdEncoding.EncodeToString([]byte("nonce")),
		base64.StdEncoding.EncodeToString([]byte("ciphertext")),
	}
	return strings.Join(parts, "-")
}

func TestParsePasswordChallenge(t *testing.T) {
	response := base64.StdEncoding.EncodeToString([]byte("the answer"))
	payload := buildPayload(t, FormatP003, response)

	challenge, err := ParsePasswordChallenge(payload)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if challenge.Format != FormatP003 {
		t.Errorf("expected format %s, got %s", FormatP003, challenge.Format)
	}
	if challenge.DerivationAlgorithm != "argon2id" {
		t.Errorf("expected argon2id, got %s", challenge.DerivationAlgorithm)
	}
	if challenge.CPUCost != 3 || challenge.MemoryCost != 65536 {
		t.Errorf("unexpected derivation costs: %d/%d", challenge.CPUCost, challenge.MemoryCost)
	}
	if challenge.ChallengeBase64 != base64.StdEncoding.EncodeToString([]byte("challenge")) {
		t.Errorf("unexpected challenge segment: %s", challenge.ChallengeBase64)
	}
}

func TestParsePasswordChallenge_UnknownFormat(t *testing.T) {
	payload := strings.Replace(buildPayload(t, FormatP002, "cmVzcG9uc2U="), FormatP002, "formatP001", 1)

	_, err := ParsePasswordChallenge(payload)
	if !errors.Is(err, ErrUnsupportedPayloadFormat) {
		t.Fatalf("expected ErrUnsupportedPayloadFormat, got %v", err)
	}
}

func TestVerifyPasswordChallenge(t *testing.T) {
	response := base64.StdEncoding.EncodeToString([]byte("the answer"))
	payload := buildPayload(t, FormatP002, response)

	ok, err := VerifyPasswordChallenge(payload, response)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !ok {
		t.Fatal("expected correct response to verify")
	}

	wrong := base64.StdEncoding.EncodeToString([]byte("not the answer"))
	ok, err = VerifyPasswordChallenge(payload, wrong)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ok {
		t.Fatal("expected wrong response to fail")
	}
}

func TestVerifyPasswordChallenge_UndecodableResponse(t *testing.T) {
	payload := buildPayload(t, FormatP003, "cmVzcG9uc2U=")

	ok, err := VerifyPasswordChallenge(payload, "%%% not base64 %%%")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ok {
		t.Fatal("undecodable response must not verify")
	}
}

func TestRehashForStorage(t *testing.T) {
	raw := []byte("expected plain response")
	parts := []string{
		FormatP003,
		"argon2id",
		"3",
		"65536",
		"c2FsdA==",
		"Y2hhbGxlbmdl",
		base64.StdEncoding.EncodeToString(raw),
		"bm9uY2U=",
		"Y2lwaGVydGV4dA==",
	}

	rehashed, err := RehashForStorage(strings.Join(parts, "-"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	digest := blake2b.Sum256(raw)
	gotParts := strings.Split(rehashed, "-")
	if gotParts[6] != base64.StdEncoding.EncodeToString(digest[:]) {
		t.Error("expected-response segment was not replaced by its digest")
	}

	// every other segment stays untouched
	for i, p := range parts {
		if i == 6 {
			continue
		}
		if gotParts[i] != p {
			t.Errorf("segment %d changed: %s -> %s", i, p, gotParts[i])
		}
	}

	// after rehashing, the original response verifies against the digest
	ok, err := VerifyPasswordChallenge(rehashed, base64.StdEncoding.EncodeToString(raw))
	if err != nil || !ok {
		t.Fatalf("rehash/verify roundtrip failed: ok=%v err=%v", ok, err)
	}
}
