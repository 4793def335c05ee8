package mempool

import (
	"crypto/ed25519"
	"testing"

	"github.com/rillcoin/rill/internal/rillcore"
)

type fakeUtxoView struct {
	entries map[rillcore.OutPoint]rillcore.UtxoEntry
}

func newFakeUtxoView() *fakeUtxoView {
	return &fakeUtxoView{entries: make(map[rillcore.OutPoint]rillcore.UtxoEntry)}
}

func (v *fakeUtxoView) Get(op rillcore.OutPoint) (rillcore.UtxoEntry, bool) {
	e, ok := v.entries[op]
	return e, ok
}

func (v *fakeUtxoView) put(op rillcore.OutPoint, e rillcore.UtxoEntry) {
	v.entries[op] = e
}

func spendTx(t *testing.T, view *fakeUtxoView, spend rillcore.OutPoint, inValue, outValue uint64) rillcore.Transaction {
	t.Helper()
	pub, priv, err := ed25519.GenerateKey(nil)
	if err != nil {
		t.Fatalf("GenerateKey: %v", err)
	}
	pubkeyHash := rillcore.PubkeyHash(pub)
	view.put(spend, rillcore.UtxoEntry{Output: rillcore.TxOutput{Value: inValue, PubkeyHash: pubkeyHash}})
	tx := rillcore.Transaction{
		Version: 1,
		Inputs:  []rillcore.TxInput{{PreviousOutput: spend, PublicKey: []byte(pub)}},
		Outputs: []rillcore.TxOutput{{Value: outValue, PubkeyHash: rillcore.Blake3Sum256([]byte("dest"))}},
	}
	tx.Inputs[0].Signature = rillcore.Sign(priv, &tx)
	return tx
}

func TestAcceptAddsValidTransaction(t *testing.T) {
	pool := New()
	view := newFakeUtxoView()
	prevOp := rillcore.OutPoint{TxID: rillcore.Blake3Sum256([]byte("prev")), Index: 0}
	tx := spendTx(t, view, prevOp, 1000, 900)

	if err := pool.Accept(tx, view, 10); err != nil {
		t.Fatalf("Accept: %v", err)
	}
	if pool.Count() != 1 {
		t.Fatalf("Count() = %d, want 1", pool.Count())
	}
	if got, ok := pool.Get(tx.TxID()); !ok || got.Outputs[0].Value != 900 {
		t.Fatal("expected the accepted transaction to be retrievable")
	}
	if pool.TotalFees() != 100 {
		t.Fatalf("TotalFees() = %d, want 100", pool.TotalFees())
	}
}

func TestAcceptRejectsInvalidTransaction(t *testing.T) {
	pool := New()
	view := newFakeUtxoView()
	tx := rillcore.Transaction{} // empty inputs/outputs
	if err := pool.Accept(tx, view, 0); err == nil {
		t.Fatal("expected Accept to reject a stateless-invalid transaction")
	}
	if pool.Count() != 0 {
		t.Fatal("expected nothing pooled after a rejected Accept")
	}
}

func TestAcceptDetectsConflict(t *testing.T) {
	pool := New()
	view := newFakeUtxoView()
	prevOp := rillcore.OutPoint{TxID: rillcore.Blake3Sum256([]byte("shared")), Index: 0}
	tx1 := spendTx(t, view, prevOp, 1000, 900)
	if err := pool.Accept(tx1, view, 0); err != nil {
		t.Fatalf("Accept tx1: %v", err)
	}

	// A second, different transaction spending the same outpoint.
	pub, priv, _ := ed25519.GenerateKey(nil)
	view.put(prevOp, rillcore.UtxoEntry{Output: rillcore.TxOutput{Value: 1000, PubkeyHash: rillcore.PubkeyHash(pub)}})
	tx2 := rillcore.Transaction{
		Version: 1,
		Inputs:  []rillcore.TxInput{{PreviousOutput: prevOp, PublicKey: []byte(pub)}},
		Outputs: []rillcore.TxOutput{{Value: 500, PubkeyHash: rillcore.Blake3Sum256([]byte("elsewhere"))}},
	}
	tx2.Inputs[0].Signature = rillcore.Sign(priv, &tx2)

	err := pool.Accept(tx2, view, 0)
	if err == nil {
		t.Fatal("expected Accept to reject a transaction conflicting with a pooled one")
	}
	if _, ok := err.(*rillcore.MempoolError); !ok {
		t.Fatalf("expected MempoolError, got %T: %v", err, err)
	}
}

func TestAcceptIsIdempotentForSameTransaction(t *testing.T) {
	pool := New()
	view := newFakeUtxoView()
	prevOp := rillcore.OutPoint{TxID: rillcore.Blake3Sum256([]byte("prev")), Index: 0}
	tx := spendTx(t, view, prevOp, 1000, 900)

	if err := pool.Accept(tx, view, 0); err != nil {
		t.Fatalf("first Accept: %v", err)
	}
	if err := pool.Accept(tx, view, 0); err != nil {
		t.Fatalf("second Accept of the same tx should be a harmless no-op: %v", err)
	}
	if pool.Count() != 1 {
		t.Fatalf("Count() = %d, want 1 after re-accepting the same tx", pool.Count())
	}
}

func TestRemoveDropsFromPool(t *testing.T) {
	pool := New()
	view := newFakeUtxoView()
	prevOp := rillcore.OutPoint{TxID: rillcore.Blake3Sum256([]byte("prev")), Index: 0}
	tx := spendTx(t, view, prevOp, 1000, 900)
	if err := pool.Accept(tx, view, 0); err != nil {
		t.Fatalf("Accept: %v", err)
	}
	pool.Remove(tx.TxID())
	if pool.Count() != 0 {
		t.Fatal("expected pool to be empty after Remove")
	}
	if _, ok := pool.Get(tx.TxID()); ok {
		t.Fatal("expected Get to fail after Remove")
	}
}

func TestSelectForTemplateOrdersByFeeRateDescending(t *testing.T) {
	pool := New()
	view := newFakeUtxoView()

	lowFeeOp := rillcore.OutPoint{TxID: rillcore.Blake3Sum256([]byte("low")), Index: 0}
	highFeeOp := rillcore.OutPoint{TxID: rillcore.Blake3Sum256([]byte("high")), Index: 0}
	lowFeeTx := spendTx(t, view, lowFeeOp, 1000, 990) // fee 10
	highFeeTx := spendTx(t, view, highFeeOp, 1000, 500) // fee 500

	if err := pool.Accept(lowFeeTx, view, 0); err != nil {
		t.Fatalf("Accept lowFeeTx: %v", err)
	}
	if err := pool.Accept(highFeeTx, view, 0); err != nil {
		t.Fatalf("Accept highFeeTx: %v", err)
	}

	selected, fees := pool.SelectForTemplateWithFees(1 << 20)
	if len(selected) != 2 {
		t.Fatalf("selected %d transactions, want 2", len(selected))
	}
	if selected[0].TxID() != highFeeTx.TxID() {
		t.Fatal("expected the higher fee-rate transaction to be selected first")
	}
	if fees != 510 {
		t.Fatalf("fees = %d, want 510", fees)
	}
}

func TestSelectForTemplateRespectsSizeLimit(t *testing.T) {
	pool := New()
	view := newFakeUtxoView()
	op1 := rillcore.OutPoint{TxID: rillcore.Blake3Sum256([]byte("one")), Index: 0}
	op2 := rillcore.OutPoint{TxID: rillcore.Blake3Sum256([]byte("two")), Index: 0}
	tx1 := spendTx(t, view, op1, 1000, 900)
	tx2 := spendTx(t, view, op2, 1000, 900)
	if err := pool.Accept(tx1, view, 0); err != nil {
		t.Fatalf("Accept tx1: %v", err)
	}
	if err := pool.Accept(tx2, view, 0); err != nil {
		t.Fatalf("Accept tx2: %v", err)
	}

	size1 := len(tx1.CanonicalBytes())
	selected := pool.SelectForTemplate(size1) // room for exactly one
	if len(selected) != 1 {
		t.Fatalf("selected %d transactions with a one-tx size budget, want 1", len(selected))
	}
}

func TestSelectForTemplateRespectsPooledDependencyOrder(t *testing.T) {
	pool := New()
	view := newFakeUtxoView()

	// parent spends a fresh outpoint; child spends parent's own output,
	// which exists only once parent is pooled (not yet confirmed).
	parentPrevOp := rillcore.OutPoint{TxID: rillcore.Blake3Sum256([]byte("root")), Index: 0}
	pub, priv, _ := ed25519.GenerateKey(nil)
	view.put(parentPrevOp, rillcore.UtxoEntry{Output: rillcore.TxOutput{Value: 1000, PubkeyHash: rillcore.PubkeyHash(pub)}})
	parent := rillcore.Transaction{
		Version: 1,
		Inputs:  []rillcore.TxInput{{PreviousOutput: parentPrevOp, PublicKey: []byte(pub)}},
		Outputs: []rillcore.TxOutput{{Value: 990, PubkeyHash: rillcore.Blake3Sum256([]byte("child-owner"))}}, // fee 10, low rate
	}
	parent.Inputs[0].Signature = rillcore.Sign(priv, &parent)

	childPub, childPriv, _ := ed25519.GenerateKey(nil)
	childSpend := rillcore.OutPoint{TxID: parent.TxID(), Index: 0}
	// The parent's own output is not yet a UTXO in `view` (it only
	// becomes one once parent confirms), so the child's validity here
	// depends entirely on the parent being selected first, same as the
	// production UtxoView would behave once parent lands in a block.
	view.put(childSpend, rillcore.UtxoEntry{Output: rillcore.TxOutput{Value: 990, PubkeyHash: rillcore.PubkeyHash(childPub)}})
	child := rillcore.Transaction{
		Version: 1,
		Inputs:  []rillcore.TxInput{{PreviousOutput: childSpend, PublicKey: []byte(childPub)}},
		Outputs: []rillcore.TxOutput{{Value: 10, PubkeyHash: rillcore.Blake3Sum256([]byte("grandchild"))}}, // fee 980, high rate
	}
	child.Inputs[0].Signature = rillcore.Sign(childPriv, &child)

	if err := pool.Accept(parent, view, 0); err != nil {
		t.Fatalf("Accept parent: %v", err)
	}
	if err := pool.Accept(child, view, 0); err != nil {
		t.Fatalf("Accept child: %v", err)
	}

	selected := pool.SelectForTemplate(1 << 20)
	if len(selected) != 2 {
		t.Fatalf("selected %d transactions, want 2", len(selected))
	}
	if selected[0].TxID() != parent.TxID() {
		t.Fatal("expected the parent to be selected before its pooled child regardless of fee rate")
	}
}

func TestOnBlockConnectedRemovesIncludedTransactions(t *testing.T) {
	pool := New()
	view := newFakeUtxoView()
	prevOp := rillcore.OutPoint{TxID: rillcore.Blake3Sum256([]byte("prev")), Index: 0}
	tx := spendTx(t, view, prevOp, 1000, 900)
	if err := pool.Accept(tx, view, 0); err != nil {
		t.Fatalf("Accept: %v", err)
	}

	coinbase := rillcore.Transaction{
		Inputs:  []rillcore.TxInput{{PreviousOutput: rillcore.NullOutPoint()}},
		Outputs: []rillcore.TxOutput{{Value: 500}},
	}
	block := &rillcore.Block{Transactions: []rillcore.Transaction{coinbase, tx}}

	pool.OnBlockConnected(block, view, 1)
	if pool.Count() != 0 {
		t.Fatalf("Count() = %d after connecting a block including the tx, want 0", pool.Count())
	}
}

func TestOnBlockDisconnectedReAdmitsTransactions(t *testing.T) {
	pool := New()
	view := newFakeUtxoView()
	prevOp := rillcore.OutPoint{TxID: rillcore.Blake3Sum256([]byte("prev")), Index: 0}
	tx := spendTx(t, view, prevOp, 1000, 900)

	coinbase := rillcore.Transaction{
		Inputs:  []rillcore.TxInput{{PreviousOutput: rillcore.NullOutPoint()}},
		Outputs: []rillcore.TxOutput{{Value: 500}},
	}
	block := &rillcore.Block{Transactions: []rillcore.Transaction{coinbase, tx}}

	pool.OnBlockDisconnected(block, view, 0)
	if pool.Count() != 1 {
		t.Fatalf("Count() = %d after disconnecting a block, want 1", pool.Count())
	}
	if _, ok := pool.Get(tx.TxID()); !ok {
		t.Fatal("expected the disconnected block's transaction to be re-admitted")
	}
}
