package cache

import (
	"context"
	"sync"

	"conversation-ai-core/pkg/models"
)

// Flight is the shared pending result of one in-flight computation. Every
// caller that joined the flight observes the same result and error.
type Flight struct {
	done   chan struct{}
	result models.AIProcessingResult
	err    error
}

// Wait blocks until the flight settles or the caller's context ends.
func (f *Flight) Wait(ctx context.Context) (models.AIProcessingResult, error) {
	select {
	case <-ctx.Done():
		return models.AIProcessingResult{}, ctx.Err()
	case <-f.done:
		return f.result, f.err
	}
}

// InflightTable collapses concurrent identical requests into one computation.
// At most one flight exists per key; the check-then-insert is a single
// lock-protected operation.
type InflightTable struct {
	mu      sync.Mutex
	flights map[string]*Flight
}

func NewInflightTable() *InflightTable {
	return &InflightTable{flights: make(map[string]*Flight)}
}

// Begin returns the flight for key. owner reports whether the caller won the
// insert race and is responsible for computing the result and calling Settle.
func (t *InflightTable) Begin(key string) (flight *Flight, owner bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if f, ok := t.flights[key]; ok {
		return f, false
	}
	f := &Flight{done: make(chan struct{})}
	t.flights[key] = f
	return f, true
}

// Settle resolves the flight and removes its key from the table. The flight
// is closed unconditionally, so waiters are released with the owner's result
// and error even if the table entry was cleared while the computation ran.
// The key is freed only if it still points at this flight.
func (t *InflightTable) Settle(key string, f *Flight, result models.AIProcessingResult, err error) {
	f.result = result
	f.err = err
	close(f.done)

	t.mu.Lock()
	defer t.mu.Unlock()
	if current, ok := t.flights[key]; ok && current == f {
		delete(t.flights, key)
	}
}

func (t *InflightTable) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.flights)
}

// Clear frees all keys for new computations. Pending flights are not
// resolved here; each owner still settles its own flight, releasing any
// waiters that joined before the clear.
func (t *InflightTable) Clear() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.flights = make(map[string]*Flight)
}
