package crypto

import "errors"

var (
	// ErrUnsupportedPayloadFormat is returned when an encrypted vault
	// payload does not start with a known format tag.
	ErrUnsupportedPayloadFormat = errors.New("unsupported encrypted payload format")

	// ErrMalformedPayload is returned when a payload carries a known format
	// tag but its segment structure or encoding is invalid.
	ErrMalformedPayload = errors.New("malformed encrypted payload")
)
