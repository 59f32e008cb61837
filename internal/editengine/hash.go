package editengine

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strconv"

	"github.com/cespare/xxhash/v2"
)

// Hash algorithm identifiers accepted in ExpectedHash.Algorithm.
const (
	HashXXHash64 = "xxhash64"
	HashSHA256   = "sha256"
)

// DefaultHashAlgorithm is used for snapshot and rollback verification.
// xxhash64 is a non-cryptographic hash; it is fast enough to hash every
// file in a batch twice without a measurable cost, and integrity here means
// detecting accidental divergence, not resisting an adversary.
const DefaultHashAlgorithm = HashXXHash64

// HashContent hashes content with the named algorithm and returns the hex
// encoded digest.
func HashContent(algorithm, content string) (string, error) {
	switch algorithm {
	case HashXXHash64:
		return strconv.FormatUint(xxhash.Sum64String(content), 16), nil
	case HashSHA256:
		sum := sha256.Sum256([]byte(content))
		return hex.EncodeToString(sum[:]), nil
	default:
		return "", fmt.Errorf("unsupported hash algorithm: %s", algorithm)
	}
}

// ContentHash hashes content with the default algorithm. It cannot fail.
func ContentHash(content string) string {
	h, _ := HashContent(DefaultHashAlgorithm, content)
	return h
}

// verifyExpectedHash checks an edit's optimistic-concurrency precondition
// against the bytes at the resolved target range. A nil precondition always
// passes.
func verifyExpectedHash(expected *ExpectedHash, rangeContent string) *EditError {
	if expected == nil {
		return nil
	}
	algorithm := expected.Algorithm
	if algorithm == "" {
		algorithm = DefaultHashAlgorithm
	}
	actual, err := HashContent(algorithm, rangeContent)
	if err != nil {
		return errInvalidTarget(
			fmt.Sprintf("expectedHash uses unknown algorithm %q", expected.Algorithm),
			fmt.Sprintf("use %q or %q", HashXXHash64, HashSHA256),
		)
	}
	if actual != expected.Value {
		return errHashMismatch(expected.Value, actual)
	}
	return nil
}
