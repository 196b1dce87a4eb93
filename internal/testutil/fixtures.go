package testutil

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Hash returns the hex SHA-256 digest of seed, a realistic stamp hash.
func Hash(seed string) string {
	sum := sha256.Sum256([]byte(seed))
	return hex.EncodeToString(sum[:])
}

// Hashes returns n distinct digests, Hash("doc-1") through Hash("doc-n").
func Hashes(n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = Hash(fmt.Sprintf("doc-%d", i+1))
	}
	return out
}
