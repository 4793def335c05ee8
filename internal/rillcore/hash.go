// Package rillcore defines Rill's core data model: hashes, transactions,
// blocks and the canonical (de)serialization and hashing rules consensus
// depends on.
package rillcore

import (
	"encoding/hex"
	"encoding/json"
	"fmt"

	"github.com/zeebo/blake3"
)

// HashSize is the width in bytes of every hash used in the protocol.
const HashSize = 32

// Hash is a 32-byte BLAKE3 (or configured PoW hash) digest.
type Hash [HashSize]byte

// ZeroHash is the all-zero hash, used as prev_hash for genesis and as the
// null outpoint's txid.
var ZeroHash = Hash{}

// IsZero reports whether h is the all-zero hash.
func (h Hash) IsZero() bool {
	return h == ZeroHash
}

// String renders the hash as lowercase hex, big-endian byte order.
func (h Hash) String() string {
	return hex.EncodeToString(h[:])
}

// HashFromHex parses a hex string into a Hash.
func HashFromHex(s string) (Hash, error) {
	var h Hash
	b, err := hex.DecodeString(s)
	if err != nil {
		return h, fmt.Errorf("rillcore: invalid hash hex: %w", err)
	}
	if len(b) != HashSize {
		return h, fmt.Errorf("rillcore: hash must be %d bytes, got %d", HashSize, len(b))
	}
	copy(h[:], b)
	return h, nil
}

// MarshalJSON renders the hash as a hex string for RPC responses.
func (h Hash) MarshalJSON() ([]byte, error) {
	return json.Marshal(h.String())
}

// UnmarshalJSON parses a hex string into the hash.
func (h *Hash) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := HashFromHex(s)
	if err != nil {
		return err
	}
	*h = parsed
	return nil
}

// Less gives hashes a total order, used to sort cluster ids before merging.
func (h Hash) Less(other Hash) bool {
	for i := range h {
		if h[i] != other[i] {
			return h[i] < other[i]
		}
	}
	return false
}

// Blake3Sum256 returns the 32-byte BLAKE3 digest of data.
func Blake3Sum256(data []byte) Hash {
	var h Hash
	sum := blake3.Sum256(data)
	copy(h[:], sum[:])
	return h
}
