package rillcore

import "crypto/ed25519"

// Sign returns an Ed25519 signature over tx's sighash using priv.
func Sign(priv ed25519.PrivateKey, tx *Transaction) []byte {
	msg := tx.Sighash()
	return ed25519.Sign(priv, msg[:])
}

// VerifyInput checks that input in's signature is a valid Ed25519
// signature over tx's sighash under in's declared public_key, and that
// the public_key's BLAKE3 hash matches spentPubkeyHash (the pubkey_hash
// recorded on the UTXO being spent).
func VerifyInput(tx *Transaction, inputIndex int, spentPubkeyHash Hash) bool {
	if inputIndex < 0 || inputIndex >= len(tx.Inputs) {
		return false
	}
	in := tx.Inputs[inputIndex]
	if len(in.PublicKey) != ed25519.PublicKeySize {
		return false
	}
	if Blake3Sum256(in.PublicKey) != spentPubkeyHash {
		return false
	}
	msg := tx.Sighash()
	return ed25519.Verify(ed25519.PublicKey(in.PublicKey), msg[:], in.Signature)
}

// PubkeyHash returns the BLAKE3 hash of an Ed25519 public key, the value
// stored on outputs paying that key.
func PubkeyHash(pub ed25519.PublicKey) Hash {
	return Blake3Sum256(pub)
}
