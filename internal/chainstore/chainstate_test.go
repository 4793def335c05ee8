package chainstore

import (
	"crypto/ed25519"
	"testing"

	"github.com/rillcoin/rill/internal/consensus"
	"github.com/rillcoin/rill/internal/decay"
	"github.com/rillcoin/rill/internal/rillcore"
)

// coinbaseOnlyBlock builds a minimal valid block extending parentHash at
// height, paying reward to payTo. With height <= LWMAWindow the expected
// difficulty target always equals genesis's maximal (easiest) target, so
// nonce 0 always satisfies proof of work.
func coinbaseOnlyBlock(height uint64, parentHash rillcore.Hash, parentTimestamp uint64, reward uint64, payTo rillcore.Hash) *rillcore.Block {
	coinbase := rillcore.Transaction{
		Version: 1,
		Inputs: []rillcore.TxInput{{
			PreviousOutput: rillcore.NullOutPoint(),
			Signature:      rillcore.CoinbaseHeightTag(height),
		}},
		Outputs: []rillcore.TxOutput{{Value: reward, PubkeyHash: payTo}},
	}
	leaves := []rillcore.Hash{coinbase.TxID()}
	header := rillcore.BlockHeader{
		Version:          1,
		PrevHash:         parentHash,
		MerkleRoot:       rillcore.MerkleRoot(leaves),
		Timestamp:        parentTimestamp + 60,
		DifficultyTarget: ^uint64(0),
		Nonce:            0,
	}
	return &rillcore.Block{Header: header, Transactions: []rillcore.Transaction{coinbase}}
}

func newTestChain() *ChainState {
	return NewChainState(consensus.Blake3Hasher{})
}

func TestNewChainStateStartsAtGenesis(t *testing.T) {
	cs := newTestChain()
	if cs.Height() != 0 {
		t.Fatalf("Height() = %d, want 0", cs.Height())
	}
	if cs.TipHash() != rillcore.GenesisHash() {
		t.Fatal("TipHash() should equal GenesisHash() at startup")
	}
	if cs.CirculatingSupply() != rillcore.DevFundPreMine {
		t.Fatalf("CirculatingSupply() = %d, want dev fund premine %d", cs.CirculatingSupply(), rillcore.DevFundPreMine)
	}
}

func TestConnectAdvancesHeightAndSupply(t *testing.T) {
	cs := newTestChain()
	payTo := rillcore.Blake3Sum256([]byte("miner"))
	reward := rillcore.BlockReward(1)

	b := coinbaseOnlyBlock(1, cs.TipHash(), cs.TipTimestamp(), reward, payTo)
	now := int64(b.Header.Timestamp) + 10
	if err := cs.Connect(b, now); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	if cs.Height() != 1 {
		t.Fatalf("Height() = %d, want 1", cs.Height())
	}
	wantSupply := rillcore.DevFundPreMine + reward
	if cs.CirculatingSupply() != wantSupply {
		t.Fatalf("CirculatingSupply() = %d, want %d", cs.CirculatingSupply(), wantSupply)
	}
	op := rillcore.OutPoint{TxID: b.Transactions[0].TxID(), Index: 0}
	entry, ok := cs.Utxos().Get(op)
	if !ok {
		t.Fatal("expected the new coinbase output to be a live UTXO")
	}
	if entry.Output.Value != reward {
		t.Fatalf("utxo value = %d, want %d", entry.Output.Value, reward)
	}
}

func TestConnectRejectsWrongParent(t *testing.T) {
	cs := newTestChain()
	payTo := rillcore.Blake3Sum256([]byte("miner"))
	wrongParent := rillcore.Blake3Sum256([]byte("not the tip"))
	b := coinbaseOnlyBlock(1, wrongParent, cs.TipTimestamp(), rillcore.BlockReward(1), payTo)
	if err := cs.Connect(b, int64(b.Header.Timestamp)+10); err == nil {
		t.Fatal("expected Connect to reject a block that does not extend the current tip")
	}
}

func TestConnectThenDisconnectIsIdentity(t *testing.T) {
	cs := newTestChain()
	payTo := rillcore.Blake3Sum256([]byte("miner"))
	reward := rillcore.BlockReward(1)

	startHeight := cs.Height()
	startTip := cs.TipHash()
	startSupply := cs.CirculatingSupply()
	startPool := cs.DecayPoolBalance()

	b := coinbaseOnlyBlock(1, startTip, cs.TipTimestamp(), reward, payTo)
	now := int64(b.Header.Timestamp) + 10
	if err := cs.Connect(b, now); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	if err := cs.Disconnect(); err != nil {
		t.Fatalf("Disconnect: %v", err)
	}

	if cs.Height() != startHeight {
		t.Fatalf("Height() after connect+disconnect = %d, want %d", cs.Height(), startHeight)
	}
	if cs.TipHash() != startTip {
		t.Fatal("TipHash() after connect+disconnect should match the pre-connect tip")
	}
	if cs.CirculatingSupply() != startSupply {
		t.Fatalf("CirculatingSupply() after connect+disconnect = %d, want %d", cs.CirculatingSupply(), startSupply)
	}
	if cs.DecayPoolBalance() != startPool {
		t.Fatalf("DecayPoolBalance() after connect+disconnect = %d, want %d", cs.DecayPoolBalance(), startPool)
	}
	op := rillcore.OutPoint{TxID: b.Transactions[0].TxID(), Index: 0}
	if _, ok := cs.Utxos().Get(op); ok {
		t.Fatal("expected the disconnected block's coinbase output to no longer be a live utxo")
	}
}

func TestDisconnectWithNoBlocksFails(t *testing.T) {
	cs := newTestChain()
	if err := cs.Disconnect(); err == nil {
		t.Fatal("expected Disconnect to fail with nothing connected beyond genesis")
	}
}

func TestReorgReplacesTip(t *testing.T) {
	cs := newTestChain()
	payTo := rillcore.Blake3Sum256([]byte("miner"))

	b1 := coinbaseOnlyBlock(1, cs.TipHash(), cs.TipTimestamp(), rillcore.BlockReward(1), payTo)
	if err := cs.Connect(b1, int64(b1.Header.Timestamp)+10); err != nil {
		t.Fatalf("Connect b1: %v", err)
	}
	oldTip := cs.TipHash()

	// Build a replacement block 1 with a different coinbase tag so it
	// produces a different hash, then reorg onto it.
	altCoinbase := rillcore.Transaction{
		Version: 1,
		Inputs: []rillcore.TxInput{{
			PreviousOutput: rillcore.NullOutPoint(),
			Signature:      append(rillcore.CoinbaseHeightTag(1), 0xAA),
		}},
		Outputs: []rillcore.TxOutput{{Value: rillcore.BlockReward(1), PubkeyHash: payTo}},
	}
	altHeader := rillcore.BlockHeader{
		Version:          1,
		PrevHash:         rillcore.GenesisHash(),
		MerkleRoot:       rillcore.MerkleRoot([]rillcore.Hash{altCoinbase.TxID()}),
		Timestamp:        rillcore.GenesisBlock().Header.Timestamp + 60,
		DifficultyTarget: ^uint64(0),
	}
	altBlock := &rillcore.Block{Header: altHeader, Transactions: []rillcore.Transaction{altCoinbase}}

	if err := cs.Reorg(1, []*rillcore.Block{altBlock}, int64(altHeader.Timestamp)+10); err != nil {
		t.Fatalf("Reorg: %v", err)
	}
	if cs.Height() != 1 {
		t.Fatalf("Height() after reorg = %d, want 1", cs.Height())
	}
	if cs.TipHash() == oldTip {
		t.Fatal("expected the reorg to produce a different tip hash")
	}
}

func TestReorgRestoresStateOnFailure(t *testing.T) {
	cs := newTestChain()
	payTo := rillcore.Blake3Sum256([]byte("miner"))

	b1 := coinbaseOnlyBlock(1, cs.TipHash(), cs.TipTimestamp(), rillcore.BlockReward(1), payTo)
	if err := cs.Connect(b1, int64(b1.Header.Timestamp)+10); err != nil {
		t.Fatalf("Connect b1: %v", err)
	}
	preHeight := cs.Height()
	preTip := cs.TipHash()
	preSupply := cs.CirculatingSupply()

	// An invalid replacement: wrong prev hash entirely, guaranteed to
	// fail CheckBlock/connectLocked.
	badBlock := coinbaseOnlyBlock(1, rillcore.Blake3Sum256([]byte("bogus")), cs.TipTimestamp(), rillcore.BlockReward(1), payTo)

	err := cs.Reorg(1, []*rillcore.Block{badBlock}, int64(badBlock.Header.Timestamp)+10)
	if err == nil {
		t.Fatal("expected Reorg to fail when the replacement block does not connect")
	}
	if cs.Height() != preHeight {
		t.Fatalf("Height() after failed reorg = %d, want restored %d", cs.Height(), preHeight)
	}
	if cs.TipHash() != preTip {
		t.Fatal("TipHash() after failed reorg should be restored to the pre-reorg tip")
	}
	if cs.CirculatingSupply() != preSupply {
		t.Fatalf("CirculatingSupply() after failed reorg = %d, want restored %d", cs.CirculatingSupply(), preSupply)
	}
}

// seededWhaleChain returns a ChainState pre-loaded (by direct field
// construction, bypassing Connect) with a single UTXO that is 100% of
// circulating supply, so a block spending it exercises spend-time decay
// without needing to mine a realistic history of blocks first.
func seededWhaleChain(t *testing.T, seedOp rillcore.OutPoint, whaleCluster rillcore.Hash, whalePubkeyHash rillcore.Hash, seedValue uint64, tip rillcore.Hash, tipTimestamp uint64, height uint64) *ChainState {
	t.Helper()
	utxos := NewUtxoSet()
	utxos.Put(seedOp, rillcore.UtxoEntry{
		Output:      rillcore.TxOutput{Value: seedValue, PubkeyHash: whalePubkeyHash},
		BlockHeight: 0,
		IsCoinbase:  false,
		ClusterID:   whaleCluster,
	})
	return &ChainState{
		utxos:   utxos,
		engine:  decay.NewEngine(),
		hasher:  consensus.Blake3Hasher{},
		height:  height,
		tipHash: tip,
		tipTimestamp: tipTimestamp,
		supply:  seedValue,
		recentHeaders: []headerRecord{{timestamp: int64(tipTimestamp), target: ^uint64(0)}},
	}
}

func signedSpend(t *testing.T, spend rillcore.OutPoint, priv ed25519.PrivateKey, pub ed25519.PublicKey, outValue uint64, dest rillcore.Hash) rillcore.Transaction {
	t.Helper()
	tx := rillcore.Transaction{
		Version: 1,
		Inputs: []rillcore.TxInput{{
			PreviousOutput: spend,
			PublicKey:      []byte(pub),
		}},
		Outputs: []rillcore.TxOutput{{Value: outValue, PubkeyHash: dest}},
	}
	tx.Inputs[0].Signature = rillcore.Sign(priv, &tx)
	return tx
}

func TestConnectAppliesSpendTimeDecayAndDisconnectReversesIt(t *testing.T) {
	whalePub, whalePriv, err := ed25519.GenerateKey(nil)
	if err != nil {
		t.Fatalf("GenerateKey: %v", err)
	}
	whalePubkeyHash := rillcore.PubkeyHash(whalePub)
	coldHash := rillcore.Blake3Sum256([]byte("cold-storage"))
	minerHash := rillcore.Blake3Sum256([]byte("miner"))

	seedOp := rillcore.OutPoint{TxID: rillcore.Blake3Sum256([]byte("whale-seed")), Index: 0}
	whaleCluster := decay.DetermineOutputCluster(nil, seedOp.TxID)
	seedValue := 100 * rillcore.COIN
	tip := rillcore.Blake3Sum256([]byte("seed-tip"))

	cs := seededWhaleChain(t, seedOp, whaleCluster, whalePubkeyHash, seedValue, tip, 1000, 10)

	preSupply := cs.CirculatingSupply()
	prePool := cs.DecayPoolBalance()
	if preSupply != seedValue || prePool != 0 {
		t.Fatalf("precondition: supply=%d pool=%d, want supply=%d pool=0", preSupply, prePool, seedValue)
	}

	// Spend the whole whale UTXO, held 11 blocks in a 100%-concentrated
	// cluster (far above the decay threshold), with no fee so every
	// rill of the spend's nominal value is accounted for by either the
	// new output or the decay pool.
	spendTx := signedSpend(t, seedOp, whalePriv, whalePub, seedValue, coldHash)

	reward := rillcore.BlockReward(cs.Height() + 1)
	coinbase := rillcore.Transaction{
		Version: 1,
		Inputs: []rillcore.TxInput{{
			PreviousOutput: rillcore.NullOutPoint(),
			Signature:      rillcore.CoinbaseHeightTag(cs.Height() + 1),
		}},
		Outputs: []rillcore.TxOutput{{Value: reward, PubkeyHash: minerHash}},
	}

	leaves := []rillcore.Hash{coinbase.TxID(), spendTx.TxID()}
	header := rillcore.BlockHeader{
		Version:          1,
		PrevHash:         tip,
		MerkleRoot:       rillcore.MerkleRoot(leaves),
		Timestamp:        1060,
		DifficultyTarget: ^uint64(0),
		Nonce:            0,
	}
	b := &rillcore.Block{Header: header, Transactions: []rillcore.Transaction{coinbase, spendTx}}

	if err := cs.Connect(b, int64(header.Timestamp)+10); err != nil {
		t.Fatalf("Connect: %v", err)
	}

	if cs.Height() != 11 {
		t.Fatalf("Height() = %d, want 11", cs.Height())
	}
	// No value is minted out of nothing: supply plus pool grows by
	// exactly the block reward, with decay only shifting how much of
	// that total sits in supply versus the pool.
	if got, want := cs.CirculatingSupply()+cs.DecayPoolBalance(), preSupply+reward; got != want {
		t.Fatalf("supply+pool after connect = %d, want %d (preSupply %d + reward %d)", got, preSupply+reward, preSupply, reward)
	}
	if cs.DecayPoolBalance() == 0 {
		t.Fatal("expected a nonzero decay pool balance after spending a heavily concentrated, long-held UTXO")
	}
	if cs.CirculatingSupply() >= preSupply+reward {
		t.Fatalf("expected circulating supply to fall short of preSupply+reward by the decayed amount, got %d", cs.CirculatingSupply())
	}
	// The new output inherits the whale's cluster id (single input
	// cluster) at its full nominal value, so the cluster's tracked
	// balance still equals the sum of its live UTXOs -- decay never
	// desyncs cluster accounting from actual UTXO values.
	if got := cs.ClusterBalance(whaleCluster); got != seedValue {
		t.Fatalf("ClusterBalance(whaleCluster) after connect = %d, want %d (unchanged: decay only moves supply/pool, not cluster totals)", got, seedValue)
	}

	if err := cs.Disconnect(); err != nil {
		t.Fatalf("Disconnect: %v", err)
	}
	if cs.Height() != 10 {
		t.Fatalf("Height() after disconnect = %d, want 10", cs.Height())
	}
	if cs.CirculatingSupply() != preSupply {
		t.Fatalf("CirculatingSupply() after disconnect = %d, want restored %d", cs.CirculatingSupply(), preSupply)
	}
	if cs.DecayPoolBalance() != prePool {
		t.Fatalf("DecayPoolBalance() after disconnect = %d, want restored %d", cs.DecayPoolBalance(), prePool)
	}
	if got := cs.ClusterBalance(whaleCluster); got != seedValue {
		t.Fatalf("ClusterBalance(whaleCluster) after disconnect = %d, want restored %d", got, seedValue)
	}
}

func TestTipEpochAdvancesOnConnectAndDisconnect(t *testing.T) {
	cs := newTestChain()
	payTo := rillcore.Blake3Sum256([]byte("miner"))
	startEpoch := cs.TipEpoch()

	b := coinbaseOnlyBlock(1, cs.TipHash(), cs.TipTimestamp(), rillcore.BlockReward(1), payTo)
	if err := cs.Connect(b, int64(b.Header.Timestamp)+10); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	afterConnect := cs.TipEpoch()
	if afterConnect == startEpoch {
		t.Fatal("expected TipEpoch to advance after Connect")
	}
	if err := cs.Disconnect(); err != nil {
		t.Fatalf("Disconnect: %v", err)
	}
	if cs.TipEpoch() == afterConnect {
		t.Fatal("expected TipEpoch to advance again after Disconnect")
	}
}
