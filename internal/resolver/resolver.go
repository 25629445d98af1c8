// Package resolver implements the asynchronous reverse-DNS pipeline: a
// bounded window of input lines, a two-tier pending table of host and class
// keys, a bounded pool of in-flight queries, and an output committer that
// releases lines in input order once every address on them is decided.
//
// One driver goroutine owns all mutable state. Apparent concurrency comes
// from the query goroutines, which only ever touch the responses channel;
// every table mutation happens on the driver.
package resolver

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"time"

	"github.com/miekg/dns"

	"github.com/wepl/jdresolve/internal/config"
	"github.com/wepl/jdresolve/internal/dnsclient"
	"github.com/wepl/jdresolve/internal/log"
	"github.com/wepl/jdresolve/internal/scan"
	"github.com/wepl/jdresolve/internal/store"
)

var _ Querier = (*dnsclient.Client)(nil)

// Querier issues the two reverse-DNS query shapes the pipeline needs.
type Querier interface {
	LookupPTR(ctx context.Context, ip string) (*dns.Msg, time.Duration, error)
	LookupNS(ctx context.Context, prefix string) (*dns.Msg, time.Duration, error)
}

// Store is the slice of the resolution database the pipeline consumes.
type Store interface {
	Get(key string) (*store.Record, bool, error)
	Put(key string, rec store.Record) error
}

var _ Store = (*store.DB)(nil)

// Options configures a run. Zero values fall back to the package defaults
// from internal/config.
type Options struct {
	Recursive  bool
	Anywhere   bool
	Timeout    time.Duration
	Sockets    int
	LineCache  int
	Mask       scan.Mask
	DBFirst    bool
	DBOnly     bool
	Progress   bool
	Unresolved bool
}

// Resolver runs the pipeline over one input stream.
type Resolver struct {
	opts Options
	dns  Querier
	db   Store // nil when no database is configured

	hosts   map[string]*entry
	classes map[string]*entry
	queue   workQueue

	slots     []slot
	inFlight  int
	responses chan response

	buf      *lineBuffer
	out      *bufio.Writer
	diag     io.Writer
	progress progressWriter

	stats         Stats
	werrs         error
	unresolvedSet map[string]struct{}
	unresolved    []string

	now       func() time.Time
	reactWait time.Duration
}

// New builds a Resolver reading from in and writing rewritten lines to out.
// Progress and the unresolved report go to diag. db may be nil.
func New(q Querier, db Store, in io.Reader, out, diag io.Writer, opts Options) *Resolver {
	if opts.Timeout == 0 {
		opts.Timeout = config.DefaultTimeout
	}
	if opts.Sockets <= 0 {
		opts.Sockets = config.DefaultSockets
	}
	if opts.LineCache <= 0 {
		opts.LineCache = config.DefaultLineCache
	}
	if opts.Mask == "" {
		opts.Mask = scan.DefaultMask
	}
	if opts.DBOnly {
		opts.DBFirst = true
	}

	return &Resolver{
		opts:          opts,
		dns:           q,
		db:            db,
		hosts:         make(map[string]*entry),
		classes:       make(map[string]*entry),
		slots:         make([]slot, opts.Sockets),
		responses:     make(chan response, 2*opts.Sockets),
		buf:           newLineBuffer(in, opts.LineCache),
		out:           bufio.NewWriter(out),
		diag:          diag,
		progress:      progressWriter{w: diag, enabled: opts.Progress},
		unresolvedSet: make(map[string]struct{}),
		now:           time.Now,
		reactWait:     _reactWait,
	}
}

// Run drives the pipeline to completion: refill the line window, dispatch
// queries onto free slots, react to replies, sweep timed-out slots, commit
// finished lines. It returns once the input is exhausted and the window has
// drained, or earlier on input/output errors or context cancellation.
func (r *Resolver) Run(ctx context.Context) error {
	startedAt := r.now()

	for {
		if err := r.refill(); err != nil {
			return err
		}
		r.dispatch(ctx)
		r.react(ctx.Done())
		r.sweepTimeouts()
		if err := r.commit(); err != nil {
			return err
		}
		if err := r.out.Flush(); err != nil {
			return fmt.Errorf("flushing output: %w", err)
		}
		if r.buf.empty() && r.buf.eof {
			break
		}
		if err := ctx.Err(); err != nil {
			return err
		}
	}

	r.progress.Finish()
	r.stats.Elapsed = r.now().Sub(startedAt)

	if r.opts.Unresolved {
		for _, ip := range r.unresolved {
			fmt.Fprintln(r.diag, ip)
		}
	}
	if r.werrs != nil {
		log.Warnf("resolver: database write-back errors: %v", r.werrs)
	}
	return nil
}

// Stats returns the run counters. Safe to read while Run is in progress.
func (r *Resolver) Stats() *Stats {
	return &r.stats
}
