package rillcore

import "github.com/rillcoin/rill/internal/merkle"

// hashedLeaves applies the merkle package's leaf domain separation
// (H(0x00‖data)) to each raw hash (a txid or header hash) before it
// enters the tree, so a single-transaction block's root is never just
// that transaction's bare txid.
func hashedLeaves(leaves []Hash) []merkle.Hash {
	converted := make([]merkle.Hash, len(leaves))
	for i, h := range leaves {
		converted[i] = merkle.LeafHash(h[:])
	}
	return converted
}

// MerkleRoot computes the domain-separated Merkle root over leaves
// (tx or header hashes), delegating to the merkle package.
func MerkleRoot(leaves []Hash) Hash {
	return Hash(merkle.Root(hashedLeaves(leaves)))
}

// BuildMerkleTree builds a merkle.Tree over leaves for inclusion-proof
// generation.
func BuildMerkleTree(leaves []Hash) *merkle.Tree {
	return merkle.FromLeaves(hashedLeaves(leaves))
}
