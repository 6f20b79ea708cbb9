package weather

import (
	"log/slog"
	"sync"
	"time"
)

// HealthSnapshot is the last status reported through the side channel.
type HealthSnapshot struct {
	Status    string    `json:"status"`
	Error     string    `json:"error,omitempty"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Health is a StatusReporter that remembers the latest report and logs transitions.
// The snapshot holds the current state only: SetError attaches an error to the
// current status, and a later SetStatus replaces both, so an error reported
// before a successful fetch is no longer visible once that fetch succeeds.
type Health struct {
	mu     sync.RWMutex
	snap   HealthSnapshot
	logger *slog.Logger
}

// NewHealth creates a Health reporter in the "Initializing" state.
func NewHealth(logger *slog.Logger) *Health {
	if logger == nil {
		logger = slog.Default()
	}
	return &Health{
		snap:   HealthSnapshot{Status: "Initializing", UpdatedAt: time.Now().UTC()},
		logger: logger,
	}
}

// SetStatus records a new status and clears any stored error.
func (h *Health) SetStatus(msg string) {
	h.mu.Lock()
	h.snap = HealthSnapshot{Status: msg, UpdatedAt: time.Now().UTC()}
	h.mu.Unlock()
	h.logger.Info("status changed", "status", msg)
}

func (h *Health) SetError(msg string) {
	h.mu.Lock()
	h.snap.Error = msg
	h.snap.UpdatedAt = time.Now().UTC()
	h.mu.Unlock()
	h.logger.Error("status error", "error", msg)
}

// Snapshot returns the latest report.
func (h *Health) Snapshot() HealthSnapshot {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.snap
}
