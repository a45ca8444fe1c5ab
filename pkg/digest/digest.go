// Package digest builds the deterministic keys the cache is addressed by.
package digest

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// Artifact returns the dedup digest for a prompt sent to a producer: the
// SHA-256 of promptText followed by producerID, hex encoded.
func Artifact(promptText, producerID string) string {
	h := sha256.New()
	h.Write([]byte(promptText))
	h.Write([]byte(producerID))
	return hex.EncodeToString(h.Sum(nil))
}

// Bytes returns the hex SHA-256 of data.
func Bytes(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// Question hashes free-form question text after trimming and lowercasing,
// so trivially different phrasings of the same question share a key.
func Question(text string) string {
	return Bytes([]byte(strings.ToLower(strings.TrimSpace(text))))[:16]
}

// ReadingKey is the cache key for a full reading result.
func ReadingKey(ownerID, questionHash string, cardSet []string) string {
	return "reading_" + ownerID + "_" + questionHash + "_" + strings.Join(cardSet, "-")
}

// ProfileKey is the cache key for an owner's derived profile.
func ProfileKey(ownerID string) string {
	return "profile_" + ownerID
}
