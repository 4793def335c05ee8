// Package chainstore owns the single writable copy of chain state: the
// UTXO set, cluster balances, circulating supply, decay-pool balance
// and best-chain tip. Connect/disconnect/reorg are the only mutation
// paths, and each keeps an undo log entry so a reorg can unwind cleanly
// if a candidate chain turns out to be invalid partway through.
//
// Concurrency model: a single writer goroutine calls Connect/Disconnect/
// Reorg; any number of readers may call the read-only accessors
// concurrently. All mutation is additionally serialized by mu to protect
// readers from observing a partially-applied block.
package chainstore

import (
	"fmt"
	"sync"

	"github.com/rillcoin/rill/internal/consensus"
	"github.com/rillcoin/rill/internal/decay"
	"github.com/rillcoin/rill/internal/rillcore"
)

// ChainState is the node's authoritative view of the chain.
type ChainState struct {
	mu sync.RWMutex

	utxos   *UtxoSet
	engine  *decay.Engine
	hasher  consensus.PowHasher

	height         uint64
	tipHash        rillcore.Hash
	tipTimestamp   uint64
	supply         uint64
	poolBalance    uint64
	recentHeaders  []headerRecord // most-recent-first, bounded to LWMAWindow
	undoStack      []undoEntry
	tipEpoch       uint64 // bumped every connect/disconnect; miners watch this to abandon stale templates
}

type headerRecord struct {
	timestamp int64
	target    uint64
}

// NewChainState returns a ChainState initialized at genesis.
func NewChainState(hasher consensus.PowHasher) *ChainState {
	g := rillcore.GenesisBlock()
	utxos := NewUtxoSet()

	coinbase := g.Transactions[0]
	clusterID := decay.DetermineOutputCluster(nil, coinbase.TxID())
	op := rillcore.OutPoint{TxID: coinbase.TxID(), Index: 0}
	utxos.Put(op, rillcore.UtxoEntry{
		Output:      coinbase.Outputs[0],
		BlockHeight: 0,
		IsCoinbase:  true,
		ClusterID:   clusterID,
	})

	return &ChainState{
		utxos:   utxos,
		engine:  decay.NewEngine(),
		hasher:  hasher,
		height:  0,
		tipHash: rillcore.GenesisHash(),
		tipTimestamp: g.Header.Timestamp,
		supply:  coinbase.Outputs[0].Value,
		recentHeaders: []headerRecord{{
			timestamp: int64(g.Header.Timestamp),
			target:    g.Header.DifficultyTarget,
		}},
	}
}

// Height returns the current tip height.
func (c *ChainState) Height() uint64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.height
}

// TipHash returns the current best block hash.
func (c *ChainState) TipHash() rillcore.Hash {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.tipHash
}

// TipTimestamp returns the current tip block's header timestamp, used by
// the block producer to pick the next block's minimum timestamp.
func (c *ChainState) TipTimestamp() uint64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.tipTimestamp
}

// CirculatingSupply returns the total supply currently in circulation.
func (c *ChainState) CirculatingSupply() uint64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.supply
}

// DecayPoolBalance returns the pool's current balance.
func (c *ChainState) DecayPoolBalance() uint64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.poolBalance
}

// Utxos exposes the read-only UTXO view used by validation and RPC.
func (c *ChainState) Utxos() *UtxoSet { return c.utxos }

// ClusterBalance returns a cluster's current aggregate balance, used by
// wallet-side coin selection to compute concentration ratios.
func (c *ChainState) ClusterBalance(clusterID rillcore.Hash) uint64 {
	return c.utxos.ClusterBalance(clusterID)
}

// TipEpoch returns a counter bumped on every connect/disconnect; miners
// use it to detect that their in-progress template is stale.
func (c *ChainState) TipEpoch() uint64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.tipEpoch
}

// ExpectedDifficulty returns the difficulty target required of the next
// block, per the LWMA rule.
func (c *ChainState) ExpectedDifficulty() uint64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.expectedDifficultyLocked()
}

func (c *ChainState) expectedDifficultyLocked() uint64 {
	timestamps := make([]int64, len(c.recentHeaders))
	targets := make([]uint64, len(c.recentHeaders))
	for i, r := range c.recentHeaders {
		timestamps[i] = r.timestamp
		targets[i] = r.target
	}
	initial := c.recentHeaders[len(c.recentHeaders)-1].target
	return rillcore.NextDifficultyTarget(c.height+1, timestamps, targets, initial)
}

// BlockReward returns the reward for the next height, including the dev
// fund special case for genesis (never reached here since height+1 >= 1).
func (c *ChainState) BlockReward() uint64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return rillcore.BlockReward(c.height + 1)
}

// PoolRelease returns the amount the next block's coinbase may claim
// from the decay pool.
func (c *ChainState) PoolRelease() uint64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.engine.PoolRelease(c.poolBalance)
}

// Connect validates and applies a new block on top of the current tip.
func (c *ChainState) Connect(b *rillcore.Block, now int64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connectLocked(b, now)
}

func (c *ChainState) connectLocked(b *rillcore.Block, now int64) error {
	if b.Header.PrevHash != c.tipHash {
		return &rillcore.ChainStateError{Msg: "block does not extend current tip"}
	}

	ctx := consensus.BlockContext{
		Height:             c.height + 1,
		ParentTimestamp:    c.tipTimestamp,
		ExpectedDifficulty: c.expectedDifficultyLocked(),
		BlockReward:        rillcore.BlockReward(c.height + 1),
		PoolRelease:        c.engine.PoolRelease(c.poolBalance),
		Now:                now,
	}
	if err := consensus.CheckBlock(b, c.utxos, ctx, c.hasher); err != nil {
		return err
	}
	blockHash, err := c.hasher.Hash(&b.Header)
	if err != nil {
		return err
	}
	if err := consensus.CheckCheckpoint(ctx.Height, blockHash); err != nil {
		return err
	}

	undo := undoEntry{
		header:          b.Header,
		prevSupply:      c.supply,
		prevPoolBalance: c.poolBalance,
	}

	// Spend inputs (skip the coinbase, whose input is the null
	// outpoint and spends nothing). Per 4.7 step (4), decay is
	// realized per spent UTXO, not by periodically sweeping every
	// cluster: nominal − effective (4.3) leaves supply and enters the
	// pool at the moment a concentrated holding is actually spent,
	// using the cluster balance as it stands at that point in the
	// block (still live, pre-removal).
	var totalSpentNominal, decayedTotal uint64
	for _, tx := range b.Transactions[1:] {
		for _, in := range tx.Inputs {
			entry, ok := c.utxos.Get(in.PreviousOutput)
			if !ok {
				return &rillcore.ChainStateError{Msg: "connect: spent utxo vanished mid-application"}
			}
			clusterBalance := c.utxos.ClusterBalance(entry.ClusterID)
			conc := c.engine.ConcentrationPPB(clusterBalance, c.supply)
			blocksHeld := ctx.Height - entry.BlockHeight
			effective := c.engine.EffectiveValue(entry.Output.Value, conc, blocksHeld)
			decayedTotal += entry.Output.Value - effective

			c.utxos.Remove(in.PreviousOutput)
			totalSpentNominal += entry.Output.Value
			undo.spentUtxos = append(undo.spentUtxos, spentUtxo{outpoint: in.PreviousOutput, entry: entry})
		}
	}

	// Create outputs, assigning cluster ids per spec 4.4.
	var feeTotal, totalCreated uint64
	for txIdx, tx := range b.Transactions {
		txid := tx.TxID()
		var inputClusters []rillcore.Hash
		var inSum uint64
		if txIdx != 0 {
			for _, in := range tx.Inputs {
				for _, sp := range undo.spentUtxos {
					if sp.outpoint == in.PreviousOutput {
						inputClusters = append(inputClusters, sp.entry.ClusterID)
						inSum += sp.entry.Output.Value
					}
				}
			}
		}
		clusterID := decay.DetermineOutputCluster(inputClusters, txid)
		var outSum uint64
		for outIdx, out := range tx.Outputs {
			op := rillcore.OutPoint{TxID: txid, Index: uint32(outIdx)}
			c.utxos.Put(op, rillcore.UtxoEntry{
				Output:      out,
				BlockHeight: ctx.Height,
				IsCoinbase:  txIdx == 0,
				ClusterID:   clusterID,
			})
			undo.createdOutpoints = append(undo.createdOutpoints, op)
			outSum += out.Value
		}
		totalCreated += outSum
		if txIdx != 0 {
			feeTotal += inSum - outSum
		}
	}

	c.height = ctx.Height
	c.tipHash = blockHash
	c.tipTimestamp = b.Header.Timestamp

	// Supply moves by the block's real created-minus-spent delta
	// (ordinarily block reward + pool release, since non-coinbase
	// txs net to zero beyond fees, which the coinbase just
	// recaptures), less whatever decay carved out of spent UTXOs
	// this block. That carved-out amount is credited to the pool,
	// never minted: supply + pool only ever grows by block reward.
	c.supply = c.supply - totalSpentNominal + totalCreated - decayedTotal
	c.poolBalance += decayedTotal
	if ctx.PoolRelease > c.poolBalance {
		ctx.PoolRelease = c.poolBalance
	}
	c.poolBalance -= ctx.PoolRelease
	c.tipEpoch++

	c.recentHeaders = append([]headerRecord{{timestamp: int64(b.Header.Timestamp), target: b.Header.DifficultyTarget}}, c.recentHeaders...)
	if uint64(len(c.recentHeaders)) > rillcore.LWMAWindow {
		c.recentHeaders = c.recentHeaders[:rillcore.LWMAWindow]
	}

	c.undoStack = append(c.undoStack, undo)
	return nil
}

// Disconnect unwinds the most recently connected block, restoring the
// prior UTXO set, supply and pool balance from the undo log.
func (c *ChainState) Disconnect() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.disconnectLocked()
}

func (c *ChainState) disconnectLocked() error {
	if len(c.undoStack) == 0 {
		return &rillcore.ChainStateError{Msg: "disconnect: no block to undo"}
	}
	undo := c.undoStack[len(c.undoStack)-1]
	c.undoStack = c.undoStack[:len(c.undoStack)-1]

	for _, op := range undo.createdOutpoints {
		c.utxos.Remove(op)
	}
	for _, sp := range undo.spentUtxos {
		c.utxos.Put(sp.outpoint, sp.entry)
	}

	c.supply = undo.prevSupply
	c.poolBalance = undo.prevPoolBalance
	c.height--
	c.tipHash = undo.header.PrevHash
	if len(c.recentHeaders) > 1 {
		c.recentHeaders = c.recentHeaders[1:]
		c.tipTimestamp = uint64(c.recentHeaders[0].timestamp)
	}
	c.tipEpoch++
	return nil
}

// reorgSnapshot captures everything Reorg needs to restore the chain to
// its exact pre-reorg state if any candidate block fails to connect.
type reorgSnapshot struct {
	utxos         *UtxoSet
	height        uint64
	tipHash       rillcore.Hash
	tipTimestamp  uint64
	supply        uint64
	poolBalance   uint64
	recentHeaders []headerRecord
	undoStack     []undoEntry
	tipEpoch      uint64
}

func (c *ChainState) snapshotLocked() reorgSnapshot {
	return reorgSnapshot{
		utxos:         c.utxos.Clone(),
		height:        c.height,
		tipHash:       c.tipHash,
		tipTimestamp:  c.tipTimestamp,
		supply:        c.supply,
		poolBalance:   c.poolBalance,
		recentHeaders: append([]headerRecord(nil), c.recentHeaders...),
		undoStack:     append([]undoEntry(nil), c.undoStack...),
		tipEpoch:      c.tipEpoch,
	}
}

func (c *ChainState) restoreLocked(s reorgSnapshot) {
	c.utxos = s.utxos
	c.height = s.height
	c.tipHash = s.tipHash
	c.tipTimestamp = s.tipTimestamp
	c.supply = s.supply
	c.poolBalance = s.poolBalance
	c.recentHeaders = s.recentHeaders
	c.undoStack = s.undoStack
	c.tipEpoch = s.tipEpoch
}

// Reorg disconnects down to the fork point and connects newBlocks in
// order. If any block in newBlocks fails to connect, the chain is
// restored to exactly the state it was in before Reorg was called —
// the original tip, not merely the fork point.
func (c *ChainState) Reorg(disconnectCount int, newBlocks []*rillcore.Block, now int64) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if consensus.IsBelowCheckpoint(c.height - uint64(disconnectCount)) {
		return &rillcore.ChainStateError{Msg: "reorg: would unwind at or below a checkpoint"}
	}

	snapshot := c.snapshotLocked()

	for i := 0; i < disconnectCount; i++ {
		if err := c.disconnectLocked(); err != nil {
			c.restoreLocked(snapshot)
			return err
		}
	}

	for _, b := range newBlocks {
		failedHeight := c.height + 1
		if err := c.connectLocked(b, now); err != nil {
			c.restoreLocked(snapshot)
			return fmt.Errorf("reorg: failed connecting block at height %d: %w", failedHeight, err)
		}
	}
	return nil
}
