// Package sha256 fingerprints rendered page content. The crawl engine
// uses the digest to spot byte-identical documents served under
// different URLs and extract each one only once.
package sha256

import (
	"crypto/sha256"
	"encoding/hex"
)

// Fingerprint returns the hex SHA-256 digest of data.
func Fingerprint(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
