package network

import (
	"sync"
	"time"
)

// Scoring constants. A peer's score starts at zero, rises on good
// behavior up to MaxScore, and falls on bad behavior; crossing
// BanThreshold bans the peer for BanDuration.
const (
	PenaltyInvalidBlock       = -100
	PenaltyInvalidHeaders     = -50
	PenaltyTimeout            = -10
	PenaltyInvalidTransaction = -25
	PenaltyDuplicateMessage   = -5

	BonusValidBlock   = 10
	BonusValidHeaders = 5

	MaxScore     = 100
	BanThreshold = -200
	BanDuration  = 24 * time.Hour
)

// peerScore tracks one peer's running reputation and ban state.
type peerScore struct {
	score    int
	bannedAt time.Time
	banned   bool
}

// PeerScoreBoard is a concurrency-safe reputation table keyed by peer
// address or id, grounding eventual disconnect/ban decisions in a single
// place rather than scattering ad hoc counters through the handler code.
type PeerScoreBoard struct {
	mu    sync.Mutex
	peers map[string]*peerScore
}

// NewPeerScoreBoard returns an empty board.
func NewPeerScoreBoard() *PeerScoreBoard {
	return &PeerScoreBoard{peers: make(map[string]*peerScore)}
}

func (b *PeerScoreBoard) entry(peer string) *peerScore {
	e, ok := b.peers[peer]
	if !ok {
		e = &peerScore{}
		b.peers[peer] = e
	}
	return e
}

// Penalize applies a negative delta to peer's score, banning it for
// BanDuration if the score falls to or below BanThreshold. delta should
// be one of the Penalty* constants (negative).
func (b *PeerScoreBoard) Penalize(peer string, delta int, now time.Time) {
	b.mu.Lock()
	defer b.mu.Unlock()
	e := b.entry(peer)
	e.score += delta
	if e.score <= BanThreshold && !e.banned {
		e.banned = true
		e.bannedAt = now
	}
}

// Reward applies a positive delta to peer's score, capped at MaxScore.
// delta should be one of the Bonus* constants (positive).
func (b *PeerScoreBoard) Reward(peer string, delta int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	e := b.entry(peer)
	e.score += delta
	if e.score > MaxScore {
		e.score = MaxScore
	}
}

// IsBanned reports whether peer is currently banned, auto-expiring (and
// resetting the score to zero) a ban whose BanDuration has elapsed.
func (b *PeerScoreBoard) IsBanned(peer string, now time.Time) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	e, ok := b.peers[peer]
	if !ok || !e.banned {
		return false
	}
	if now.Sub(e.bannedAt) >= BanDuration {
		e.banned = false
		e.score = 0
		return false
	}
	return true
}

// Score returns peer's current numeric score (zero for an unknown peer).
func (b *PeerScoreBoard) Score(peer string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	e, ok := b.peers[peer]
	if !ok {
		return 0
	}
	return e.score
}

// UnbanExpired sweeps the board releasing every ban whose BanDuration
// has elapsed, returning the peers that were unbanned. Intended to be
// called periodically rather than relying solely on IsBanned's lazy
// expiry, so a peer that never reconnects still gets swept out of the
// banned set.
func (b *PeerScoreBoard) UnbanExpired(now time.Time) []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	var released []string
	for peer, e := range b.peers {
		if e.banned && now.Sub(e.bannedAt) >= BanDuration {
			e.banned = false
			e.score = 0
			released = append(released, peer)
		}
	}
	return released
}

// Forget removes peer from the board entirely, used when a peer is
// pruned from the address book and its history no longer matters.
func (b *PeerScoreBoard) Forget(peer string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.peers, peer)
}
