package index

import (
	"encoding/hex"

	sha256simd "github.com/minio/sha256-simd"
)

// KeySize is the fixed byte length of a rendered IndexKey: 64 ASCII hex
// characters.
const KeySize = 64

// IndexKey is the SHA-256 hex digest of a CompositeKey, rendered as a
// lowercase 64-character string. String comparison order matches digest byte
// order, which is what makes binary search over a sorted KvShard valid.
type IndexKey string

// NewIndexKey hashes key's members in declaration order: concat(field bytes
// || value bytes) per pair, then SHA-256, then lowercase hex.
func NewIndexKey(key CompositeKey) IndexKey {
	h := sha256simd.New()
	for _, p := range key {
		h.Write([]byte(p.Field))
		h.Write([]byte(p.Value))
	}
	sum := h.Sum(nil)
	return IndexKey(hex.EncodeToString(sum))
}

// Bytes returns the 64-byte ASCII hex representation used as the on-disk key
// half of a HashIndex record.
func (k IndexKey) Bytes() []byte { return []byte(k) }
