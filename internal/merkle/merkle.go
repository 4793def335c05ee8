// Package merkle implements Rill's domain-separated BLAKE3 Merkle tree:
// leaf = H(0x00‖data), node = H(0x01‖left‖right), odd layers duplicate
// the final element, and the empty tree's root is the zero hash.
//
// This package defines its own 32-byte Hash type rather than importing
// rillcore's, so that rillcore (which needs merkle.Root for genesis
// construction) can depend on merkle without a cycle. Hash has the same
// underlying array layout as rillcore.Hash and converts between the two
// with a plain type conversion.
package merkle

import "github.com/zeebo/blake3"

// HashSize is the width in bytes of every node in the tree.
const HashSize = 32

// Hash is a 32-byte BLAKE3 digest.
type Hash [HashSize]byte

// ZeroHash is the root of an empty tree.
var ZeroHash = Hash{}

func sum(data []byte) Hash {
	var h Hash
	s := blake3.Sum256(data)
	copy(h[:], s[:])
	return h
}

// LeafHash returns H(0x00‖data).
func LeafHash(data []byte) Hash {
	buf := make([]byte, 0, len(data)+1)
	buf = append(buf, 0x00)
	buf = append(buf, data...)
	return sum(buf)
}

// NodeHash returns H(0x01‖left‖right).
func NodeHash(left, right Hash) Hash {
	buf := make([]byte, 0, 2*HashSize+1)
	buf = append(buf, 0x01)
	buf = append(buf, left[:]...)
	buf = append(buf, right[:]...)
	return sum(buf)
}

// nextLayer computes one level up from layer, duplicating the last
// element if the layer has odd length.
func nextLayer(layer []Hash) []Hash {
	if len(layer)%2 == 1 {
		layer = append(layer, layer[len(layer)-1])
	}
	out := make([]Hash, len(layer)/2)
	for i := range out {
		out[i] = NodeHash(layer[2*i], layer[2*i+1])
	}
	return out
}

// Root returns the Merkle root over leaves, which are already leaf
// hashes (the caller is responsible for applying LeafHash;
// rillcore.MerkleRoot does so for txids and header hashes).
// An empty input returns ZeroHash.
func Root(leaves []Hash) Hash {
	if len(leaves) == 0 {
		return ZeroHash
	}
	layer := append([]Hash(nil), leaves...)
	for len(layer) > 1 {
		layer = nextLayer(layer)
	}
	return layer[0]
}

// Side identifies which side of a parent node a sibling hash sits on.
type Side int

const (
	Left Side = iota
	Right
)

// ProofStep is one step of an inclusion proof: a sibling hash and which
// side it sits on relative to the node being proved.
type ProofStep struct {
	Hash Hash
	Side Side
}

// Proof is an inclusion proof for one leaf of a Tree.
type Proof struct {
	LeafIndex int
	Leaf      Hash
	Path      []ProofStep
}

// Verify recomputes the root from the proof's leaf and path and compares
// it against expectedRoot.
func (p *Proof) Verify(expectedRoot Hash) bool {
	cur := p.Leaf
	for _, step := range p.Path {
		if step.Side == Left {
			cur = NodeHash(step.Hash, cur)
		} else {
			cur = NodeHash(cur, step.Hash)
		}
	}
	return cur == expectedRoot
}

// Tree holds every layer of a Merkle tree built from a fixed leaf set,
// enabling Proof generation for any leaf index.
type Tree struct {
	leaves []Hash
	layers [][]Hash
}

// FromLeaves builds a Tree from already-hashed leaves.
func FromLeaves(leaves []Hash) *Tree {
	t := &Tree{leaves: append([]Hash(nil), leaves...)}
	if len(leaves) == 0 {
		t.layers = [][]Hash{{}}
		return t
	}
	layer := append([]Hash(nil), leaves...)
	t.layers = append(t.layers, layer)
	for len(layer) > 1 {
		layer = nextLayer(layer)
		t.layers = append(t.layers, layer)
	}
	return t
}

// RootHash returns the tree's root.
func (t *Tree) RootHash() Hash {
	if len(t.leaves) == 0 {
		return ZeroHash
	}
	last := t.layers[len(t.layers)-1]
	return last[0]
}

// LeafCount returns the number of leaves the tree was built from.
func (t *Tree) LeafCount() int { return len(t.leaves) }

// ProofFor returns an inclusion proof for the leaf at index, or false if
// index is out of range.
func (t *Tree) ProofFor(index int) (Proof, bool) {
	if index < 0 || index >= len(t.leaves) {
		return Proof{}, false
	}
	proof := Proof{LeafIndex: index, Leaf: t.leaves[index]}
	idx := index
	for layerIdx := 0; layerIdx < len(t.layers)-1; layerIdx++ {
		layer := t.layers[layerIdx]
		if idx%2 == 0 {
			siblingIdx := idx + 1
			if siblingIdx >= len(layer) {
				siblingIdx = idx // duplicated final element
			}
			proof.Path = append(proof.Path, ProofStep{Hash: layer[siblingIdx], Side: Right})
		} else {
			proof.Path = append(proof.Path, ProofStep{Hash: layer[idx-1], Side: Left})
		}
		idx /= 2
	}
	return proof, true
}
