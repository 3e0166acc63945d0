package util

import (
	"crypto/sha1"
	"encoding/hex"
)

// GetIDFromBytes returns the hex sha1 of content.
func GetIDFromBytes(content []byte) string {
	hasher := sha1.New()
	hasher.Write(content)

	return hex.EncodeToString(hasher.Sum(nil))
}
