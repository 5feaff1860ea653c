// Package device provides the device key derivation shared by activation,
// auth, and payment reconciliation.
package device

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// Key derives the stable opaque device key from a raw hardware identifier:
// trim, lowercase, SHA-256, hex. Deterministic and unsalted so repeated
// lookups from any code path land on the same row.
func Key(rawID string) string {
	normalized := strings.ToLower(strings.TrimSpace(rawID))
	sum := sha256.Sum256([]byte(normalized))
	return hex.EncodeToString(sum[:])
}
