package resolver

import (
	"time"

	"go.uber.org/atomic"
)

// Stats accumulates run counters. Counters the query goroutines never touch
// are still atomic so callers may read a snapshot while a run is in
// progress.
type Stats struct {
	Lines       atomic.Int64 // input lines buffered
	Hosts       atomic.Int64 // host entries created (a re-added key counts again)
	Sent        atomic.Int64 // queries dispatched
	Received    atomic.Int64 // replies parsed
	Resolved    atomic.Int64 // keys answered by a nameserver
	StoreHits   atomic.Int64 // keys answered by the database
	Recursed    atomic.Int64 // hosts named via class recursion
	Timeouts    atomic.Int64 // slots swept past the deadline
	Bogus       atomic.Int64 // unusable or errored replies
	Failed      atomic.Int64 // hosts left unresolved
	StoreErrors atomic.Int64 // database write-back failures

	MaxResponse atomic.Duration // slowest parsed reply

	// Elapsed is set once when the run finishes.
	Elapsed time.Duration
}

func (s *Stats) observeRTT(d time.Duration) {
	for {
		cur := s.MaxResponse.Load()
		if d <= cur || s.MaxResponse.CompareAndSwap(cur, d) {
			return
		}
	}
}
