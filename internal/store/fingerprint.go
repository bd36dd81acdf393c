package store

import (
	"crypto/md5"
	"encoding/hex"
)

// messagePrefixLen bounds how much of the error message participates in
// deduplication, counted in characters, not bytes. Two long messages
// sharing the same 200-character prefix, type and category collapse
// into one group; the coarseness is intentional so messages with
// trailing variable data (ids, offsets) still dedup.
const messagePrefixLen = 200

// Fingerprint derives the dedup key for an error report. MD5 is kept
// for on-disk compatibility with databases written by earlier versions;
// it identifies, it does not protect anything.
func Fingerprint(category, errorType, errorMessage string) string {
	msg := truncate(errorMessage, messagePrefixLen)
	sum := md5.Sum([]byte(category + ":" + errorType + ":" + msg))
	return hex.EncodeToString(sum[:])
}
