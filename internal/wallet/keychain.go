package wallet

import (
	"crypto/ed25519"
	"encoding/binary"

	"github.com/rillcoin/rill/internal/rillcore"
	"github.com/rillcoin/rill/internal/rilladdr"
)

// kdfContext domain-separates wallet key derivation from every other
// BLAKE3 use in the codebase (txids, merkle nodes, cluster merges), so a
// derived key can never collide with a hash computed for another
// purpose.
const kdfContext = "rill-wallet-key-derivation-v1"

// Seed is a 32-byte master seed for deterministic key derivation.
// Callers are responsible for keeping the bytes behind it out of logs
// and swap; nothing in this package persists a Seed on its own.
type Seed [32]byte

// deriveChildKey derives the Ed25519 private key for index from seed via
// BLAKE3(context || seed || index_le), matching the reference wallet's
// BLAKE3-keyed-derivation scheme without depending on an unverified
// keyed-hash API: domain separation plus the seed and index as input
// material gives the same deterministic, recoverable property.
func deriveChildKey(seed Seed, index uint32) ed25519.PrivateKey {
	var indexBytes [4]byte
	binary.LittleEndian.PutUint32(indexBytes[:], index)

	ikm := make([]byte, 0, len(kdfContext)+len(seed)+4)
	ikm = append(ikm, kdfContext...)
	ikm = append(ikm, seed[:]...)
	ikm = append(ikm, indexBytes[:]...)

	derived := rillcore.Blake3Sum256(ikm)
	return ed25519.NewKeyFromSeed(derived[:])
}

// KeyChain derives Ed25519 keypairs from a master seed on demand and
// caches them by index, with a reverse lookup from pubkey hash back to
// index so an incoming payment can be matched to the key that owns it.
type KeyChain struct {
	seed      Seed
	hrp       string
	nextIndex uint32
	keys      map[uint32]ed25519.PrivateKey
	byHash    map[rillcore.Hash]uint32
}

// NewKeyChain returns a keychain deriving addresses under hrp
// (rillcore.AddressHRPMainnet or AddressHRPTestnet).
func NewKeyChain(seed Seed, hrp string) *KeyChain {
	return &KeyChain{
		seed:   seed,
		hrp:    hrp,
		keys:   make(map[uint32]ed25519.PrivateKey),
		byHash: make(map[rillcore.Hash]uint32),
	}
}

// DeriveKeypair returns the keypair at index, deriving and caching it on
// first access.
func (kc *KeyChain) DeriveKeypair(index uint32) ed25519.PrivateKey {
	if priv, ok := kc.keys[index]; ok {
		return priv
	}
	priv := deriveChildKey(kc.seed, index)
	pub := priv.Public().(ed25519.PublicKey)
	kc.keys[index] = priv
	kc.byHash[rillcore.PubkeyHash(pub)] = index
	return priv
}

// NextKeypair derives the next unused keypair and advances the internal
// index.
func (kc *KeyChain) NextKeypair() ed25519.PrivateKey {
	index := kc.nextIndex
	kc.nextIndex++
	return kc.DeriveKeypair(index)
}

// AddressAt returns the bech32 address for the keypair at index.
func (kc *KeyChain) AddressAt(index uint32) (string, error) {
	priv := kc.DeriveKeypair(index)
	pub := priv.Public().(ed25519.PublicKey)
	return rilladdr.Encode(kc.hrp, rillcore.PubkeyHash(pub))
}

// NextAddress derives the next unused keypair and returns its address,
// advancing the internal index.
func (kc *KeyChain) NextAddress() (string, error) {
	index := kc.nextIndex
	kc.nextIndex++
	priv := kc.DeriveKeypair(index)
	pub := priv.Public().(ed25519.PublicKey)
	return rilladdr.Encode(kc.hrp, rillcore.PubkeyHash(pub))
}

// KeypairForPubkeyHash returns the keypair owning hash, if it has been
// derived already (via DeriveKeypair, NextKeypair, or RestoreToIndex).
func (kc *KeyChain) KeypairForPubkeyHash(hash rillcore.Hash) (ed25519.PrivateKey, bool) {
	index, ok := kc.byHash[hash]
	if !ok {
		return nil, false
	}
	return kc.keys[index], true
}

// RestoreToIndex re-derives every keypair from 0 up to (but not
// including) n, rebuilding the pubkey-hash lookup table after loading a
// wallet whose next-index counter is n.
func (kc *KeyChain) RestoreToIndex(n uint32) {
	for i := uint32(0); i < n; i++ {
		kc.DeriveKeypair(i)
	}
	kc.nextIndex = n
}

// NextIndex returns the next derivation index that will be used.
func (kc *KeyChain) NextIndex() uint32 { return kc.nextIndex }

// AddressGapLimit is the number of consecutive derived-but-unfunded
// addresses a recovery scan tolerates before concluding the keychain has
// no further addresses worth watching. This scanner does not support a
// configurable gap larger than this fixed value.
const AddressGapLimit = 2

// ScanRecover derives keypairs in index order, consulting hasActivity
// for each one's pubkey hash, until AddressGapLimit consecutive
// addresses report no activity. It returns the highest index observed
// to have activity and advances NextIndex past it, so a wallet restored
// from seed alone knows how many addresses to keep watching.
func (kc *KeyChain) ScanRecover(hasActivity func(pubkeyHash rillcore.Hash) bool) (highestActive uint32, found bool) {
	var emptyRun uint32
	var index uint32
	for emptyRun < AddressGapLimit {
		priv := kc.DeriveKeypair(index)
		pub := priv.Public().(ed25519.PublicKey)
		if hasActivity(rillcore.PubkeyHash(pub)) {
			highestActive = index
			found = true
			emptyRun = 0
		} else {
			emptyRun++
		}
		index++
	}
	if found {
		kc.nextIndex = highestActive + 1
	}
	return highestActive, found
}
