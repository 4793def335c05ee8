// Package rilladdr implements Rill's bech32-style addresses: HRP
// "rill1" (mainnet) or "trill1" (testnet), a version byte, and a 32-byte
// pubkey hash.
package rilladdr

import (
	"github.com/btcsuite/btcd/btcutil/bech32"
	"github.com/rillcoin/rill/internal/rillcore"
)

// Encode renders pubkeyHash as a bech32 address under the given
// human-readable part (rillcore.AddressHRPMainnet or
// rillcore.AddressHRPTestnet).
func Encode(hrp string, pubkeyHash rillcore.Hash) (string, error) {
	payload := make([]byte, 0, 1+rillcore.HashSize)
	payload = append(payload, rillcore.AddressVersion)
	payload = append(payload, pubkeyHash[:]...)

	converted, err := bech32.ConvertBits(payload, 8, 5, true)
	if err != nil {
		return "", &rillcore.AddressError{Msg: err.Error()}
	}
	addr, err := bech32.Encode(hrp, converted)
	if err != nil {
		return "", &rillcore.AddressError{Msg: err.Error()}
	}
	return addr, nil
}

// Decode parses a bech32 Rill address, returning its human-readable
// part and pubkey hash. The caller is responsible for checking the HRP
// matches the expected network.
func Decode(addr string) (hrp string, pubkeyHash rillcore.Hash, err error) {
	hrp, data, decErr := bech32.Decode(addr)
	if decErr != nil {
		return "", pubkeyHash, &rillcore.AddressError{Msg: decErr.Error()}
	}
	converted, convErr := bech32.ConvertBits(data, 5, 8, false)
	if convErr != nil {
		return "", pubkeyHash, &rillcore.AddressError{Msg: convErr.Error()}
	}
	if len(converted) != 1+rillcore.HashSize {
		return "", pubkeyHash, &rillcore.AddressError{Msg: "unexpected address payload length"}
	}
	if converted[0] != rillcore.AddressVersion {
		return "", pubkeyHash, &rillcore.AddressError{Msg: "unsupported address version"}
	}
	copy(pubkeyHash[:], converted[1:])
	return hrp, pubkeyHash, nil
}

// IsMainnet reports whether hrp is the mainnet human-readable part.
func IsMainnet(hrp string) bool { return hrp == rillcore.AddressHRPMainnet }

// IsTestnet reports whether hrp is the testnet human-readable part.
func IsTestnet(hrp string) bool { return hrp == rillcore.AddressHRPTestnet }
