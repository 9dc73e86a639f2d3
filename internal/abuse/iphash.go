// Package abuse provides the submission abuse controls: the salted origin
// fingerprint and the per-origin-per-recipient cooldown guard.
package abuse

import (
	"crypto/sha256"
	"encoding/hex"
)

// OriginHash returns a salted, irreversible fingerprint of a submitter's
// network origin. The raw origin must never be stored or logged; every
// persisted or keyed use of an origin goes through this function.
func OriginHash(origin, salt string) string {
	h := sha256.New()
	h.Write([]byte(origin))
	h.Write([]byte("|"))
	h.Write([]byte(salt))
	return hex.EncodeToString(h.Sum(nil))
}
