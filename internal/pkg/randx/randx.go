/*
Package randx provides cryptographically random identifier generation.

Identifiers produced here are opaque and URL-safe; they identify transient
server-side objects (live connections, upload keys) and carry no structure.
*/
package randx

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
)

// connIDBytes is the entropy, in bytes, behind a connection identifier.
const connIDBytes = 12

// ConnectionID returns a unique identifier for a live connection.
// The value is ephemeral and never persisted.
func ConnectionID() (string, error) {
	buf := make([]byte, connIDBytes)

	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to read random bytes for connection id: %w", err)
	}

	return hex.EncodeToString(buf), nil
}
