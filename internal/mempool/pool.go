// Package mempool maintains the set of validated, not-yet-confirmed
// transactions, ordered by fee rate for block-template assembly and
// indexed by spent outpoint for conflict detection.
package mempool

import (
	"log"
	"sort"
	"sync"

	"github.com/rillcoin/rill/internal/consensus"
	"github.com/rillcoin/rill/internal/rillcore"
)

// entry is one pooled transaction together with its precomputed fee
// and size, so selection never recomputes them.
type entry struct {
	tx      rillcore.Transaction
	txid    rillcore.Hash
	fee     uint64
	size    int
	feeRate float64 // fee per byte, used purely for selection ordering
}

// Pool holds pending transactions. A single ticking goroutine is not
// required for correctness here (unlike the teacher's poller, which
// pulls from an external node); Accept is called directly by the node
// whenever a transaction arrives, matching the reference's synchronous
// mempool.
type Pool struct {
	mu        sync.RWMutex
	byTxID    map[rillcore.Hash]*entry
	spentBy   map[rillcore.OutPoint]rillcore.Hash // outpoint -> spending txid, for conflict detection
}

// New returns an empty Pool.
func New() *Pool {
	return &Pool{
		byTxID:  make(map[rillcore.Hash]*entry),
		spentBy: make(map[rillcore.OutPoint]rillcore.Hash),
	}
}

// Accept validates tx against utxos at height and, if it passes and
// does not conflict with an already-pooled transaction, adds it to the
// pool.
func (p *Pool) Accept(tx rillcore.Transaction, utxos consensus.UtxoView, height uint64) error {
	if err := consensus.CheckTransactionStateless(&tx); err != nil {
		return err
	}
	if err := consensus.CheckTransactionStateful(&tx, utxos, height); err != nil {
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	txid := tx.TxID()
	if _, exists := p.byTxID[txid]; exists {
		return nil // already pooled
	}
	for _, in := range tx.Inputs {
		if conflicting, ok := p.spentBy[in.PreviousOutput]; ok {
			return &rillcore.MempoolError{Msg: "conflicts with pooled transaction " + conflicting.String()}
		}
	}

	fee, err := consensus.Fee(&tx, utxos)
	if err != nil {
		return err
	}
	size := len(tx.CanonicalBytes())
	e := &entry{tx: tx, txid: txid, fee: fee, size: size, feeRate: float64(fee) / float64(size)}

	p.byTxID[txid] = e
	for _, in := range tx.Inputs {
		p.spentBy[in.PreviousOutput] = txid
	}
	log.Printf("mempool: accepted %s (fee=%d size=%d)", txid, fee, size)
	return nil
}

// Remove drops a transaction from the pool, e.g. once it confirms.
func (p *Pool) Remove(txid rillcore.Hash) {
	p.mu.Lock()
	defer p.mu.Unlock()
	e, ok := p.byTxID[txid]
	if !ok {
		return
	}
	delete(p.byTxID, txid)
	for _, in := range e.tx.Inputs {
		if p.spentBy[in.PreviousOutput] == txid {
			delete(p.spentBy, in.PreviousOutput)
		}
	}
}

// Get returns a pooled transaction by txid.
func (p *Pool) Get(txid rillcore.Hash) (rillcore.Transaction, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	e, ok := p.byTxID[txid]
	if !ok {
		return rillcore.Transaction{}, false
	}
	return e.tx, true
}

// Count returns the number of pooled transactions.
func (p *Pool) Count() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.byTxID)
}

// TotalFees returns the sum of fees across every pooled transaction,
// used by getmempoolinfo.
func (p *Pool) TotalFees() uint64 {
	p.mu.RLock()
	defer p.mu.RUnlock()
	var total uint64
	for _, e := range p.byTxID {
		total += e.fee
	}
	return total
}

// SelectForTemplate returns pooled transactions ordered by fee rate
// descending, dropping any whose size would push the running total past
// maxSize, and respecting intra-selection dependency order (a
// transaction spending another pooled transaction's output is never
// placed before it).
func (p *Pool) SelectForTemplate(maxSize int) []rillcore.Transaction {
	txs, _ := p.SelectForTemplateWithFees(maxSize)
	return txs
}

// SelectForTemplateWithFees is SelectForTemplate plus the summed fee of
// the selected set, so the block producer can size a coinbase without a
// second UTXO lookup (every pooled entry's fee was already computed at
// Accept time).
func (p *Pool) SelectForTemplateWithFees(maxSize int) ([]rillcore.Transaction, uint64) {
	p.mu.RLock()
	entries := make([]*entry, 0, len(p.byTxID))
	for _, e := range p.byTxID {
		entries = append(entries, e)
	}
	p.mu.RUnlock()

	sort.Slice(entries, func(i, j int) bool { return entries[i].feeRate > entries[j].feeRate })

	selected := make([]rillcore.Transaction, 0, len(entries))
	selectedTxIDs := make(map[rillcore.Hash]struct{}, len(entries))
	var total int
	var fees uint64

	// Repeated passes keep this simple: a transaction is deferred until
	// every pooled ancestor it depends on has been selected, or it is
	// dropped once no further progress is made in a pass.
	remaining := entries
	for len(remaining) > 0 {
		var next []*entry
		progressed := false
		for _, e := range remaining {
			if total+e.size > maxSize {
				continue
			}
			if dependsOnUnselectedPooledParent(e, p, selectedTxIDs) {
				next = append(next, e)
				continue
			}
			selected = append(selected, e.tx)
			selectedTxIDs[e.txid] = struct{}{}
			total += e.size
			fees += e.fee
			progressed = true
		}
		if !progressed {
			break
		}
		remaining = next
	}
	return selected, fees
}

// OnBlockConnected removes every transaction the connected block
// included and any remaining pooled transaction whose inputs are no
// longer valid against utxos at height (e.g. it spent an outpoint the
// block also spent).
func (p *Pool) OnBlockConnected(b *rillcore.Block, utxos consensus.UtxoView, height uint64) {
	p.mu.Lock()
	for _, tx := range b.Transactions[1:] {
		txid := tx.TxID()
		if e, ok := p.byTxID[txid]; ok {
			delete(p.byTxID, txid)
			for _, in := range e.tx.Inputs {
				if p.spentBy[in.PreviousOutput] == txid {
					delete(p.spentBy, in.PreviousOutput)
				}
			}
		}
	}
	stale := make([]*entry, 0, len(p.byTxID))
	for _, e := range p.byTxID {
		stale = append(stale, e)
	}
	p.mu.Unlock()

	for _, e := range stale {
		if err := consensus.CheckTransactionStateful(&e.tx, utxos, height); err != nil {
			p.Remove(e.txid)
		}
	}
}

// OnBlockDisconnected re-admits every non-coinbase transaction from a
// disconnected block, re-validating each against utxos at height (the
// post-disconnect snapshot) and silently dropping any that no longer
// validate.
func (p *Pool) OnBlockDisconnected(b *rillcore.Block, utxos consensus.UtxoView, height uint64) {
	for _, tx := range b.Transactions[1:] {
		_ = p.Accept(tx, utxos, height)
	}
}

func dependsOnUnselectedPooledParent(e *entry, p *Pool, selected map[rillcore.Hash]struct{}) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	for _, in := range e.tx.Inputs {
		if parent, ok := p.byTxID[in.PreviousOutput.TxID]; ok {
			if _, done := selected[parent.txid]; !done {
				return true
			}
		}
	}
	return false
}
