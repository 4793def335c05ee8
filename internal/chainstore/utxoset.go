package chainstore

import (
	"sync"

	"github.com/rillcoin/rill/internal/rillcore"
)

// UtxoSet is an in-memory, mutex-guarded UTXO set plus per-cluster
// balance ledger. It satisfies consensus.UtxoView.
type UtxoSet struct {
	mu        sync.RWMutex
	entries   map[rillcore.OutPoint]rillcore.UtxoEntry
	clusters  map[rillcore.Hash]uint64
}

// NewUtxoSet returns an empty UtxoSet.
func NewUtxoSet() *UtxoSet {
	return &UtxoSet{
		entries:  make(map[rillcore.OutPoint]rillcore.UtxoEntry),
		clusters: make(map[rillcore.Hash]uint64),
	}
}

// Get resolves op to its live entry, satisfying consensus.UtxoView.
func (s *UtxoSet) Get(op rillcore.OutPoint) (rillcore.UtxoEntry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.entries[op]
	return e, ok
}

// Put inserts a newly created UTXO and credits its value to the owning
// cluster's balance.
func (s *UtxoSet) Put(op rillcore.OutPoint, entry rillcore.UtxoEntry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[op] = entry
	s.clusters[entry.ClusterID] += entry.Output.Value
}

// Remove deletes a spent UTXO and debits its value from the owning
// cluster's balance, returning the removed entry for undo-log capture.
func (s *UtxoSet) Remove(op rillcore.OutPoint) (rillcore.UtxoEntry, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[op]
	if !ok {
		return rillcore.UtxoEntry{}, false
	}
	delete(s.entries, op)
	s.clusters[e.ClusterID] -= e.Output.Value
	if s.clusters[e.ClusterID] == 0 {
		delete(s.clusters, e.ClusterID)
	}
	return e, true
}

// ClusterBalance returns the current aggregate balance attributed to
// clusterID.
func (s *UtxoSet) ClusterBalance(clusterID rillcore.Hash) uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.clusters[clusterID]
}

// ForEachCluster calls fn for every cluster with a non-zero balance. fn
// must not mutate the set.
func (s *UtxoSet) ForEachCluster(fn func(id rillcore.Hash, balance uint64)) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for id, bal := range s.clusters {
		fn(id, bal)
	}
}

// UtxosByPubkeyHash returns every live UTXO paying pubkeyHash, used by
// the getutxosbyaddress RPC method.
func (s *UtxoSet) UtxosByPubkeyHash(pubkeyHash rillcore.Hash) []rillcore.UtxoEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []rillcore.UtxoEntry
	for _, e := range s.entries {
		if e.Output.PubkeyHash == pubkeyHash {
			out = append(out, e)
		}
	}
	return out
}

// Count returns the number of live UTXOs, used by getblockchaininfo.
func (s *UtxoSet) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// Clone returns a deep copy of the set, used to snapshot chain state
// before a reorg attempt that might need to be rolled back in full.
func (s *UtxoSet) Clone() *UtxoSet {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := NewUtxoSet()
	for op, e := range s.entries {
		out.entries[op] = e
	}
	for id, bal := range s.clusters {
		out.clusters[id] = bal
	}
	return out
}
