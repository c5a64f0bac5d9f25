package hash

import (
	"crypto/sha256"

	"github.com/cristalhq/base64"
)

// MaxHashLength is the widest value that still fits the POS check_name column.
const MaxHashLength = 30

// HashOrderID derives the POS-safe reference key for a Kody order id.
// The POS schema cannot hold the raw id (length and charset limits), so every
// cross-reference between the two systems goes through this value instead.
// sha256 over the UTF-8 bytes, raw URL-safe base64 (no '/', '+' or '='),
// truncated to MaxHashLength. Deterministic across restarts, never fails.
func HashOrderID(orderID string) string {
	digest := sha256.Sum256([]byte(orderID))
	encoded := base64.RawURLEncoding.EncodeToString(digest[:])
	if len(encoded) > MaxHashLength {
		encoded = encoded[:MaxHashLength]
	}
	return encoded
}
