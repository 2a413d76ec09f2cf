// Package pool implements the optional mining pool: light share
// submissions tracked per address and a proportional payout on every
// mined block. Share verification is cosmetic bookkeeping only — it never
// gates chain validity.
package pool

import (
	"strings"
	"sync"
	"time"
)

// MinerShares tracks one miner's accumulated, unpaid shares.
type MinerShares struct {
	Shares     int64
	LastActive time.Time
}

// Pool holds per-address share counts behind its own lock — disjoint from
// the engine's lock, since pool bookkeeping never touches chain state
// directly. Grounded on the stratum job manager's map-of-structs-behind-
// an-RWMutex shape, adapted from per-job tracking to per-miner share
// tracking.
type Pool struct {
	mu     sync.RWMutex
	miners map[string]*MinerShares
	now    func() time.Time
}

// New constructs an empty pool. now is injected so tests can control
// LastActive timestamps.
func New(now func() time.Time) *Pool {
	return &Pool{miners: make(map[string]*MinerShares), now: now}
}

// SubmitShare verifies a claimed low-difficulty proof (a hex digest
// prefixed by at least difficulty '0' characters) and, if valid, credits
// one share to address. Returns false if the submission does not meet its
// claimed target.
func (p *Pool) SubmitShare(address string, hash string, difficulty int) bool {
	if !meetsDifficulty(hash, difficulty) {
		return false
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	m, ok := p.miners[address]
	if !ok {
		m = &MinerShares{}
		p.miners[address] = m
	}
	m.Shares++
	m.LastActive = p.now()
	return true
}

func meetsDifficulty(hash string, difficulty int) bool {
	if difficulty <= 0 {
		return true
	}
	if len(hash) < difficulty {
		return false
	}
	return strings.Count(hash[:difficulty], "0") == difficulty
}

// Payout is one miner's proportional share of a distributed block reward.
type Payout struct {
	Address string
	Amount  float64
}

// DistributeReward splits reward proportionally across every miner's share
// count (normalized by the sum of all shares) and resets every count to
// zero. Miners with zero shares receive nothing and are left out of the
// result. An empty pool returns no payouts.
func (p *Pool) DistributeReward(reward float64) []Payout {
	p.mu.Lock()
	defer p.mu.Unlock()

	var total int64
	for _, m := range p.miners {
		total += m.Shares
	}
	if total == 0 {
		return nil
	}

	payouts := make([]Payout, 0, len(p.miners))
	for address, m := range p.miners {
		if m.Shares == 0 {
			continue
		}
		payouts = append(payouts, Payout{
			Address: address,
			Amount:  reward * float64(m.Shares) / float64(total),
		})
		m.Shares = 0
	}
	return payouts
}

// Stats is a snapshot of one miner's current standing.
type Stats struct {
	Address    string
	Shares     int64
	LastActive time.Time
}

// Join ensures address has an entry in the pool, joining with zero shares
// if it has none yet.
func (p *Pool) Join(address string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, ok := p.miners[address]; !ok {
		p.miners[address] = &MinerShares{LastActive: p.now()}
	}
}

// Leave removes address from the pool entirely, forfeiting any unpaid
// shares.
func (p *Pool) Leave(address string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.miners, address)
}

// StatsFor reports address's current standing. ok is false if address has
// never joined.
func (p *Pool) StatsFor(address string) (Stats, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	m, ok := p.miners[address]
	if !ok {
		return Stats{}, false
	}
	return Stats{Address: address, Shares: m.Shares, LastActive: m.LastActive}, true
}

// All returns a snapshot of every miner currently tracked.
func (p *Pool) All() []Stats {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]Stats, 0, len(p.miners))
	for address, m := range p.miners {
		out = append(out, Stats{Address: address, Shares: m.Shares, LastActive: m.LastActive})
	}
	return out
}
