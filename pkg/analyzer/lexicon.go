package analyzer

import (
	"context"
	"sync/atomic"
)

// lexiconBase carries the lifecycle and concurrency-ceiling plumbing shared
// by the lexicon-based reference analyzers.
type lexiconBase struct {
	version       string
	maxConcurrent int
	sem           chan struct{}
	ready         atomic.Bool
}

func newLexiconBase(version string, maxConcurrent int) lexiconBase {
	if maxConcurrent <= 0 {
		maxConcurrent = 1
	}
	return lexiconBase{version: version, maxConcurrent: maxConcurrent}
}

func (b *lexiconBase) Initialize(_ context.Context) error {
	b.sem = make(chan struct{}, b.maxConcurrent)
	b.ready.Store(true)
	return nil
}

func (b *lexiconBase) IsHealthy(_ context.Context) bool {
	return b.ready.Load()
}

func (b *lexiconBase) Version() string {
	return b.version
}

func (b *lexiconBase) Shutdown(_ context.Context) error {
	b.ready.Store(false)
	return nil
}

// acquire reserves a concurrency slot without blocking. A full semaphore
// surfaces as a retryable RateLimitError.
func (b *lexiconBase) acquire() (release func(), err error) {
	if !b.ready.Load() {
		return nil, ErrNotInitialized
	}
	select {
	case b.sem <- struct{}{}:
		return func() { <-b.sem }, nil
	default:
		return nil, &RateLimitError{Limit: b.maxConcurrent}
	}
}
