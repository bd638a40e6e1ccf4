package state

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"regexp"
	"strings"
)

// whitespaceRegex matches one or more whitespace characters
var whitespaceRegex = regexp.MustCompile(`\s+`)

// NormalizeOwner normalizes an owner identifier:
// 1. Trim leading/trailing whitespace
// 2. Lowercase
// 3. Collapse internal whitespace to single spaces
func NormalizeOwner(s string) string {
	s = strings.TrimSpace(s)
	s = strings.ToLower(s)
	s = whitespaceRegex.ReplaceAllString(s, " ")
	return s
}

// ContentHash derives a version's content hash from owner, message, and
// creation time. Collision-tolerant; not a cryptographic commitment.
func ContentHash(ownerNorm, message string, createdAt int64) string {
	h := sha256.Sum256([]byte(fmt.Sprintf("%s|%s|%d", ownerNorm, message, createdAt)))
	return hex.EncodeToString(h[:])
}

// ShortHash returns the 8-char display form of a content hash.
func ShortHash(hash string) string {
	if len(hash) < 8 {
		return hash
	}
	return hash[:8]
}
