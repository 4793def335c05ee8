// Package blockproducer assembles block templates and searches for a
// valid proof-of-work nonce: the half of consensus that creates new
// blocks rather than validating received ones (spec.md section 4.6).
package blockproducer

import (
	"github.com/rillcoin/rill/internal/consensus"
	"github.com/rillcoin/rill/internal/rillcore"
)

// ChainView is the subset of chain state template assembly needs.
type ChainView interface {
	Height() uint64
	TipHash() rillcore.Hash
	TipTimestamp() uint64
	ExpectedDifficulty() uint64
	BlockReward() uint64
	PoolRelease() uint64
}

// MempoolView is the subset of the mempool template assembly needs: a
// fee-rate-ordered, dependency-respecting selection bounded by size,
// plus the summed fee of whatever was selected.
type MempoolView interface {
	SelectForTemplateWithFees(maxSize int) ([]rillcore.Transaction, uint64)
}

// Template is an unmined candidate block plus the height and fee total
// used to build it, so a miner or RPC caller can report them alongside
// the raw block bytes without recomputing.
type Template struct {
	Block  rillcore.Block
	Height uint64
	Fees   uint64
}

// reservedCoinbaseBytes budgets room for the coinbase transaction itself
// when bounding mempool selection to MaxBlockSize; a coinbase has a
// single input and output and never approaches this size in practice.
const reservedCoinbaseBytes = 256

// BuildTemplate assembles a candidate block on top of chain's current
// tip: a coinbase paying block_reward(height+1) + mempool fees + pool
// release to minerPubkeyHash, followed by mempool transactions selected
// by fee rate subject to MaxBlockSize and intra-block dependency order,
// a computed Merkle root, and header fields set per spec.md 4.6 (nonce
// left at 0 for the caller to search).
func BuildTemplate(chain ChainView, pool MempoolView, minerPubkeyHash rillcore.Hash, now int64) Template {
	height := chain.Height() + 1
	reward := chain.BlockReward()
	poolRelease := chain.PoolRelease()

	txs, fees := pool.SelectForTemplateWithFees(rillcore.MaxBlockSize - reservedCoinbaseBytes)

	coinbase := rillcore.Transaction{
		Version: 1,
		Inputs: []rillcore.TxInput{{
			PreviousOutput: rillcore.NullOutPoint(),
			Signature:      rillcore.CoinbaseHeightTag(height),
		}},
		Outputs: []rillcore.TxOutput{{
			Value:      reward + fees + poolRelease,
			PubkeyHash: minerPubkeyHash,
		}},
	}

	allTxs := make([]rillcore.Transaction, 0, len(txs)+1)
	allTxs = append(allTxs, coinbase)
	allTxs = append(allTxs, txs...)

	leaves := make([]rillcore.Hash, len(allTxs))
	for i := range allTxs {
		leaves[i] = allTxs[i].TxID()
	}

	timestamp := chain.TipTimestamp() + 1
	if uint64(now) > timestamp {
		timestamp = uint64(now)
	}
	if maxTimestamp := uint64(now + rillcore.MaxFutureSkew); timestamp > maxTimestamp {
		timestamp = maxTimestamp
	}

	header := rillcore.BlockHeader{
		Version:          1,
		PrevHash:         chain.TipHash(),
		MerkleRoot:       rillcore.MerkleRoot(leaves),
		Timestamp:        timestamp,
		DifficultyTarget: chain.ExpectedDifficulty(),
		Nonce:            0,
	}

	return Template{
		Block:  rillcore.Block{Header: header, Transactions: allTxs},
		Height: height,
		Fees:   fees,
	}
}

// Mine searches nonces starting at tmpl.Block.Header.Nonce up through
// maxNonce (inclusive) for a value satisfying the proof-of-work check
// under hasher. It returns true and leaves the found nonce set on
// tmpl.Block.Header on success; otherwise it returns false with the
// header's nonce advanced past maxNonce so the caller can resume from
// there on the next call.
func Mine(tmpl *Template, maxNonce uint64, hasher consensus.PowHasher) (bool, error) {
	header := &tmpl.Block.Header
	nonce := header.Nonce
	for {
		header.Nonce = nonce
		hash, err := hasher.Hash(header)
		if err != nil {
			return false, err
		}
		if rillcore.CheckProofOfWork(hash, header.DifficultyTarget) {
			return true, nil
		}
		if nonce == maxNonce {
			break
		}
		nonce++
	}
	header.Nonce = maxNonce + 1
	return false, nil
}
