package rillcore

import (
	"encoding/binary"
	"sync"

	"github.com/rillcoin/rill/internal/merkle"
)

var devFundPubkeyHash = Blake3Sum256([]byte("rill genesis dev fund"))

// DevFundPubkeyHash returns the deterministic pubkey hash the genesis
// coinbase pays the dev-fund premine to.
func DevFundPubkeyHash() Hash { return devFundPubkeyHash }

// CoinbaseHeightTag returns the recommended coinbase signature-field tag:
// the little-endian 8-byte encoding of height. Including this in the
// coinbase input guarantees distinct coinbase transactions at distinct
// heights have distinct txids even when they pay an identical reward to
// an identical address.
func CoinbaseHeightTag(height uint64) []byte {
	var tag [8]byte
	binary.LittleEndian.PutUint64(tag[:], height)
	return tag[:]
}

type genesisData struct {
	block        Block
	hash         Hash
	coinbaseTxID Hash
}

var (
	genesisOnce sync.Once
	genesisVal  genesisData
)

func buildGenesis() genesisData {
	coinbase := Transaction{
		Version: 1,
		Inputs: []TxInput{{
			PreviousOutput: NullOutPoint(),
			Signature:      GenesisMessage,
			PublicKey:      nil,
		}},
		Outputs: []TxOutput{{
			Value:      DevFundPreMine,
			PubkeyHash: devFundPubkeyHash,
		}},
		LockTime: 0,
	}
	coinbaseTxID := coinbase.TxID()
	root := MerkleRoot([]Hash{coinbaseTxID})
	header := BlockHeader{
		Version:          1,
		PrevHash:         ZeroHash,
		MerkleRoot:       root,
		Timestamp:        uint64(GenesisTimestamp),
		DifficultyTarget: ^uint64(0),
		Nonce:            0,
	}
	block := Block{Header: header, Transactions: []Transaction{coinbase}}
	hash := PowHashBlake3(&header)
	return genesisData{block: block, hash: hash, coinbaseTxID: coinbaseTxID}
}

func genesis() genesisData {
	genesisOnce.Do(func() {
		genesisVal = buildGenesis()
	})
	return genesisVal
}

// GenesisBlock returns the singleton genesis block.
func GenesisBlock() Block { return genesis().block }

// GenesisHash returns the genesis block's hash.
func GenesisHash() Hash { return genesis().hash }

// GenesisCoinbaseTxID returns the txid of the genesis coinbase.
func GenesisCoinbaseTxID() Hash { return genesis().coinbaseTxID }

// IsGenesis reports whether b is the genesis block by comparing its
// header hash against GenesisHash.
func IsGenesis(b *Block) bool {
	h := PowHashBlake3(&b.Header)
	return h == GenesisHash()
}

// PowHashBlake3 is the default proof-of-work hash: BLAKE3 applied twice
// to the canonical header encoding (a double hash, matching the
// reference's "BLAKE3-based double hash" default).
func PowHashBlake3(h *BlockHeader) Hash {
	first := Blake3Sum256(h.CanonicalBytes())
	return Blake3Sum256(first[:])
}
