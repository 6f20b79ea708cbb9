package weather

import "testing"

func TestHealthReports(t *testing.T) {
	h := NewHealth(quietLogger)
	if h.Snapshot().Status != "Initializing" {
		t.Fatalf("initial status = %q", h.Snapshot().Status)
	}

	h.SetError("weather: credential rejected by provider")
	snap := h.Snapshot()
	if snap.Status != "Initializing" || snap.Error == "" {
		t.Fatalf("after error: %+v", snap)
	}

	h.SetStatus("Started")
	if snap := h.Snapshot(); snap.Status != "Started" || snap.Error != "" {
		t.Fatalf("status should clear the previous error: %+v", snap)
	}
}
