package weather

import (
	"sync"
	"time"
)

// GateState is the refresh state machine's current state.
type GateState string

const (
	GateIdle     GateState = "idle"
	GateFetching GateState = "fetching"
)

// ShouldFetch reports whether a fetch is due: the position must be known and
// valid, and no fetch may have settled within minInterval.
func ShouldFetch(now, lastUpdate time.Time, minInterval time.Duration, pos *Position) bool {
	if pos == nil || !pos.Valid() {
		return false
	}
	if lastUpdate.IsZero() {
		return true
	}
	return now.Sub(lastUpdate) >= minInterval
}

// Gate admits at most one fetch at a time. The update stamp is written when a
// fetch settles, so a failed fetch does not postpone the next attempt by more
// than one interval.
type Gate struct {
	mu          sync.Mutex
	minInterval time.Duration
	lastUpdate  time.Time
	inFlight    bool
	position    *Position
	epoch       uint64
}

// Ticket is an admitted fetch.
type Ticket struct {
	Position Position
	epoch    uint64
}

// NewGate creates an idle gate.
func NewGate(minInterval time.Duration) *Gate {
	return &Gate{minInterval: minInterval}
}

// Observe records the latest known position.
func (g *Gate) Observe(pos Position) {
	g.mu.Lock()
	g.position = &pos
	g.mu.Unlock()
}

// LastPosition returns the latest observed position.
func (g *Gate) LastPosition() (Position, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.position == nil {
		return Position{}, false
	}
	return *g.position, true
}

// Reconfigure sets the refresh interval and makes a fetch due again. A fetch
// in flight keeps the gate busy until it settles, but its settle no longer
// stamps the update time.
func (g *Gate) Reconfigure(minInterval time.Duration) {
	g.mu.Lock()
	g.minInterval = minInterval
	g.lastUpdate = time.Time{}
	g.epoch++
	g.mu.Unlock()
}

// TryAdmit moves the gate to Fetching and returns a ticket for the position to
// fetch, unless a fetch is in flight or not yet due.
func (g *Gate) TryAdmit(now time.Time) (Ticket, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.inFlight || !ShouldFetch(now, g.lastUpdate, g.minInterval, g.position) {
		return Ticket{}, false
	}
	g.inFlight = true
	return Ticket{Position: *g.position, epoch: g.epoch}, true
}

// Settle returns the gate to Idle and stamps the update time, unless the gate
// was reconfigured after the ticket was issued.
func (g *Gate) Settle(t Ticket, now time.Time) {
	g.mu.Lock()
	if t.epoch == g.epoch {
		g.lastUpdate = now
	}
	g.inFlight = false
	g.mu.Unlock()
}

// Current reports whether the ticket was issued since the last Reconfigure.
func (g *Gate) Current(t Ticket) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return t.epoch == g.epoch
}

// LastUpdate returns when the last fetch settled; zero if none has.
func (g *Gate) LastUpdate() time.Time {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.lastUpdate
}

// State reports the gate's state.
func (g *Gate) State() GateState {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.inFlight {
		return GateFetching
	}
	return GateIdle
}
