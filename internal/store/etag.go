package store

import (
	"crypto/sha256"
	"encoding/hex"
)

// ContentHash computes an Entity's content hash from its canonical
// bytes, the material every Instance's ETag is derived from.
func ContentHash(canonical []byte) string {
	sum := sha256.Sum256(canonical)
	return hex.EncodeToString(sum[:])
}

// ComputeETag combines an entity's content hash with an instance-unique
// salt so that two instances sharing the same entity content still
// carry independent strong validators, per spec.md §4.4's ETag
// contract. The salt is the instance id itself — stable across
// restarts, unique per instance, already unique-indexed by the schema.
func ComputeETag(contentHash, instanceID string) string {
	h := sha256.New()
	h.Write([]byte(contentHash))
	h.Write([]byte{0})
	h.Write([]byte(instanceID))
	return hex.EncodeToString(h.Sum(nil))[:32]
}
