package mailhost

import (
	"encoding/base64"
	"fmt"
)

const (
	// MaxPayloadSize bounds decoded embedded payloads (5MB). The host
	// mail API caps attachment sizes well below this, so anything larger
	// indicates a broken payload rather than a legitimate file.
	MaxPayloadSize = 5 * 1024 * 1024
)

// DecodePayload converts an embedded payload from its wire text encoding
// to a raw byte buffer. Standard base64 is tried first, then the
// URL-safe alphabet, since hosts differ in which variant they emit.
func DecodePayload(payload string) ([]byte, error) {
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		data, err = base64.URLEncoding.DecodeString(payload)
		if err != nil {
			return nil, fmt.Errorf("failed to decode attachment payload: %w", err)
		}
	}

	if len(data) > MaxPayloadSize {
		return nil, fmt.Errorf("decoded payload size %d exceeds maximum size %d", len(data), MaxPayloadSize)
	}

	return data, nil
}

// EncodePayload converts a raw byte buffer to the wire text encoding.
func EncodePayload(data []byte) string {
	return base64.StdEncoding.EncodeToString(data)
}
