package session

import (
	"strconv"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// pendingTable stores sent envelopes awaiting a reply, keyed by
// correlation tag. Every entry has needsResponse set; tags are unique
// among live entries.
type pendingTable struct {
	mu    sync.RWMutex
	items map[string]*Envelope
}

func newPendingTable() *pendingTable {
	return &pendingTable{items: make(map[string]*Envelope)}
}

func (p *pendingTable) put(env *Envelope) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.items[env.tag] = env
}

// take removes and returns the entry for tag. Lookup and removal are
// one critical section, so a reply dispatch and a timeout sweep racing
// on the same tag resolve to exactly one winner.
func (p *pendingTable) take(tag string) (*Envelope, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	env, ok := p.items[tag]
	if !ok {
		return nil, false
	}
	delete(p.items, tag)
	return env, true
}

func (p *pendingTable) clear() {
	p.mu.Lock()
	defer p.mu.Unlock()
	clear(p.items)
}

// clearBefore drops every entry whose tag parses as an integer below
// threshold. Non-numeric tags are skipped, not treated as an error.
func (p *pendingTable) clearBefore(threshold uint64) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	removed := 0
	for tag := range p.items {
		id, err := strconv.ParseUint(tag, 10, 64)
		if err != nil {
			log.Debug().Str("tag", tag).Msg("skipping non-numeric correlation tag")
			continue
		}
		if id < threshold {
			delete(p.items, tag)
			removed++
		}
	}
	return removed
}

// takeExpired collects and removes every entry past its deadline.
// Removal happens before any handler runs, so an expired envelope can
// never also be resolved by a late reply.
func (p *pendingTable) takeExpired(now time.Time) []*Envelope {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []*Envelope
	for tag, env := range p.items {
		if env.expired(now) {
			out = append(out, env)
			delete(p.items, tag)
		}
	}
	return out
}

func (p *pendingTable) length() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.items)
}
