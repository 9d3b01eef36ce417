package monitor

import "sync"

// DeltaTracker keeps the last observed value per key and reports the change
// between consecutive observations.
type DeltaTracker struct {
	mu   sync.Mutex
	last map[string]float64
}

func NewDeltaTracker() *DeltaTracker {
	return &DeltaTracker{last: make(map[string]float64)}
}

// Observe records value for key and returns the delta against the previous
// observation. The first observation of a key returns ok=false: there is no
// delta yet, which is not the same as a delta of zero. The cached value is
// overwritten unconditionally, including on decreases, so the next delta is
// always computed against the latest observation.
func (t *DeltaTracker) Observe(key string, value float64) (delta float64, ok bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	prev, seen := t.last[key]
	t.last[key] = value
	if !seen {
		return 0, false
	}
	return value - prev, true
}

// Len returns the number of tracked keys.
func (t *DeltaTracker) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.last)
}
