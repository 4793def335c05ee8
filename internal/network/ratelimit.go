package network

import (
	"sync"
	"time"

	"github.com/rillcoin/rill/internal/rillcore"
)

// window is the sliding interval over which per-peer message rates are
// measured.
const window = 60 * time.Second

// category identifies which per-minute budget a message counts against.
type category int

const (
	categoryBlock category = iota
	categoryTransaction
	categoryHeaders
)

func (c category) limit() int {
	switch c {
	case categoryBlock:
		return rillcore.RateLimitBlocksPerMin
	case categoryTransaction:
		return rillcore.RateLimitTxsPerMin
	case categoryHeaders:
		return rillcore.RateLimitHeadersPerMin
	default:
		return 0
	}
}

// peerRateLimits tracks the timestamps of a single peer's recent
// messages per category, pruning entries older than window on every
// check so the slice never grows unbounded.
type peerRateLimits struct {
	blocks       []time.Time
	transactions []time.Time
	headers      []time.Time
}

func (p *peerRateLimits) slice(c category) *[]time.Time {
	switch c {
	case categoryBlock:
		return &p.blocks
	case categoryTransaction:
		return &p.transactions
	case categoryHeaders:
		return &p.headers
	default:
		panic("network: unknown rate limit category")
	}
}

func prune(times []time.Time, now time.Time) []time.Time {
	cutoff := now.Add(-window)
	i := 0
	for i < len(times) && times[i].Before(cutoff) {
		i++
	}
	return times[i:]
}

// RateLimiter enforces a per-peer, per-category cap on messages within
// any trailing window, guarding against a single peer flooding the node
// with blocks, transactions, or header requests.
type RateLimiter struct {
	mu    sync.Mutex
	peers map[string]*peerRateLimits
}

// NewRateLimiter returns an empty RateLimiter.
func NewRateLimiter() *RateLimiter {
	return &RateLimiter{peers: make(map[string]*peerRateLimits)}
}

// checkAndRecord is the shared check-then-record logic for all three
// categories: it reports whether peer is still within budget for c as
// of now, and if so records this message against the budget. The check
// and the record are deliberately a single atomic operation (unlike the
// reference's separated check/record calls) to avoid a race between
// concurrent callers for the same peer.
func (r *RateLimiter) checkAndRecord(peer string, c category, now time.Time) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.peers[peer]
	if !ok {
		p = &peerRateLimits{}
		r.peers[peer] = p
	}
	slice := p.slice(c)
	*slice = prune(*slice, now)
	if len(*slice) >= c.limit() {
		return false
	}
	*slice = append(*slice, now)
	return true
}

// AllowBlock reports whether peer may send another NewBlock message at
// now, recording it if so.
func (r *RateLimiter) AllowBlock(peer string, now time.Time) bool {
	return r.checkAndRecord(peer, categoryBlock, now)
}

// AllowTransaction reports whether peer may send another NewTransaction
// message at now, recording it if so.
func (r *RateLimiter) AllowTransaction(peer string, now time.Time) bool {
	return r.checkAndRecord(peer, categoryTransaction, now)
}

// AllowHeaders reports whether peer may send another GetHeaders message
// at now, recording it if so.
func (r *RateLimiter) AllowHeaders(peer string, now time.Time) bool {
	return r.checkAndRecord(peer, categoryHeaders, now)
}

// Forget removes peer's tracked history entirely, used when a peer
// disconnects.
func (r *RateLimiter) Forget(peer string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.peers, peer)
}
