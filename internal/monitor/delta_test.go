package monitor

import "testing"

func TestDeltaTrackerFirstObservation(t *testing.T) {
	tr := NewDeltaTracker()

	delta, ok := tr.Observe("pvp|walobots|kill_player", 50)
	if ok {
		t.Errorf("first observation returned ok=true with delta %v; want no delta", delta)
	}
}

func TestDeltaTrackerSecondObservation(t *testing.T) {
	tr := NewDeltaTracker()

	tr.Observe("k", 50)
	delta, ok := tr.Observe("k", 200)
	if !ok || delta != 150 {
		t.Errorf("Observe = (%v, %v), want (150, true)", delta, ok)
	}
}

func TestDeltaTrackerDecreaseOverwritesCache(t *testing.T) {
	tr := NewDeltaTracker()

	tr.Observe("k", 200)
	delta, ok := tr.Observe("k", 190)
	if !ok || delta != -10 {
		t.Errorf("Observe after decrease = (%v, %v), want (-10, true)", delta, ok)
	}

	// Cache now holds 190, not 200.
	delta, ok = tr.Observe("k", 195)
	if !ok || delta != 5 {
		t.Errorf("Observe after cached decrease = (%v, %v), want (5, true)", delta, ok)
	}
}

func TestDeltaTrackerIndependentKeys(t *testing.T) {
	tr := NewDeltaTracker()

	tr.Observe("looted|a|looted_crate", 10)
	if _, ok := tr.Observe("looted|b|looted_crate", 10); ok {
		t.Error("different key should start with no delta")
	}
	if tr.Len() != 2 {
		t.Errorf("Len() = %d, want 2", tr.Len())
	}
}
