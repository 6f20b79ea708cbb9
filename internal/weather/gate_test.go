package weather

import (
	"math"
	"testing"
	"time"
)

func TestShouldFetch(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	pos := &Position{Latitude: 10, Longitude: 20}

	tests := []struct {
		name string
		last time.Time
		pos  *Position
		want bool
	}{
		{"no position", time.Time{}, nil, false},
		{"invalid position", time.Time{}, &Position{Latitude: 95}, false},
		{"nan position", time.Time{}, &Position{Latitude: math.NaN()}, false},
		{"never fetched", time.Time{}, pos, true},
		{"within interval", now.Add(-30 * time.Minute), pos, false},
		{"exactly one interval", now.Add(-time.Hour), pos, true},
		{"past interval", now.Add(-2 * time.Hour), pos, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ShouldFetch(now, tt.last, time.Hour, tt.pos); got != tt.want {
				t.Fatalf("ShouldFetch() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestGateAdmitsOneFetchAtATime(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	g := NewGate(time.Hour)

	if _, ok := g.TryAdmit(now); ok {
		t.Fatalf("admitted without a position")
	}

	g.Observe(Position{Latitude: 10, Longitude: 20})
	ticket, ok := g.TryAdmit(now)
	if !ok || ticket.Position.Latitude != 10 {
		t.Fatalf("TryAdmit() = %v, %v", ticket, ok)
	}
	if g.State() != GateFetching {
		t.Fatalf("state = %s, want fetching", g.State())
	}
	if _, ok := g.TryAdmit(now.Add(2 * time.Hour)); ok {
		t.Fatalf("admitted a second fetch while one is in flight")
	}

	settled := now.Add(time.Second)
	g.Settle(ticket, settled)
	if g.State() != GateIdle || !g.LastUpdate().Equal(settled) {
		t.Fatalf("after settle: state %s, last update %v", g.State(), g.LastUpdate())
	}
	if _, ok := g.TryAdmit(settled.Add(59 * time.Minute)); ok {
		t.Fatalf("admitted before the interval elapsed")
	}
	if _, ok := g.TryAdmit(settled.Add(time.Hour)); !ok {
		t.Fatalf("not admitted once the interval elapsed")
	}
}

func TestGateUsesLatestPosition(t *testing.T) {
	g := NewGate(time.Hour)
	g.Observe(Position{Latitude: 1, Longitude: 1})
	g.Observe(Position{Latitude: 2, Longitude: 3})

	ticket, ok := g.TryAdmit(time.Now())
	if !ok || ticket.Position != (Position{Latitude: 2, Longitude: 3}) {
		t.Fatalf("TryAdmit() = %v, %v", ticket, ok)
	}
	if last, _ := g.LastPosition(); last != ticket.Position {
		t.Fatalf("LastPosition() = %v", last)
	}
}

func TestGateReconfigureKeepsFetchInFlight(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	g := NewGate(time.Hour)
	g.Observe(Position{Latitude: 10, Longitude: 20})

	old, ok := g.TryAdmit(now)
	if !ok {
		t.Fatalf("first fetch not admitted")
	}
	g.Reconfigure(2 * time.Hour)
	if _, ok := g.TryAdmit(now); ok {
		t.Fatalf("admitted a second fetch while one is in flight")
	}
	if g.Current(old) {
		t.Fatalf("ticket from before Reconfigure reported current")
	}

	g.Settle(old, now.Add(time.Second))
	if !g.LastUpdate().IsZero() {
		t.Fatalf("stale settle stamped last update %v", g.LastUpdate())
	}
	next, ok := g.TryAdmit(now.Add(2 * time.Second))
	if !ok || !g.Current(next) {
		t.Fatalf("fetch not due after reconfigure")
	}
	g.Settle(next, now.Add(3*time.Second))
	if _, ok := g.TryAdmit(now.Add(time.Hour + 3*time.Second)); ok {
		t.Fatalf("admitted before the new interval elapsed")
	}
}
