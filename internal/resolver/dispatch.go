package resolver

import (
	"context"
	"time"

	"github.com/miekg/dns"

	"github.com/wepl/jdresolve/internal/log"
)

// slot is one unit of the bounded in-flight query pool. The generation
// counter ties a slot binding to the reply it is waiting for; a reply whose
// generation no longer matches belongs to a binding that was already timed
// out or released and is dropped.
type slot struct {
	busy   bool
	gen    uint64
	item   workItem
	start  time.Time
	cancel context.CancelFunc
}

// response carries a completed exchange from a query goroutine back to the
// reactor.
type response struct {
	slot int
	gen  uint64
	msg  *dns.Msg
	rtt  time.Duration
	err  error
}

// dispatch binds queued keys to free slots until either runs out. Keys whose
// pending entry was retired, already resolved, or already bound are skipped.
func (r *Resolver) dispatch(ctx context.Context) {
	for r.inFlight < len(r.slots) && r.queue.len() > 0 {
		w, _ := r.queue.popFront()
		e := r.lookupEntry(w)
		if e == nil || e.state != StatePending || e.slot >= 0 {
			continue
		}
		e.queued = false

		i := r.freeSlot()
		s := &r.slots[i]
		s.gen++
		s.busy = true
		s.item = w
		s.start = r.now()

		qctx, cancel := context.WithCancel(ctx)
		s.cancel = cancel
		e.slot = i
		r.inFlight++
		r.stats.Sent.Inc()

		gen := s.gen
		go func() {
			var (
				msg *dns.Msg
				rtt time.Duration
				err error
			)
			if w.kind == KindHost {
				msg, rtt, err = r.dns.LookupPTR(qctx, w.key)
			} else {
				msg, rtt, err = r.dns.LookupNS(qctx, w.key)
			}
			select {
			case r.responses <- response{slot: i, gen: gen, msg: msg, rtt: rtt, err: err}:
			case <-ctx.Done():
			}
		}()
	}
}

func (r *Resolver) freeSlot() int {
	for i := range r.slots {
		if !r.slots[i].busy {
			return i
		}
	}
	// dispatch only runs while inFlight < len(slots)
	panic("resolver: no free slot")
}

// releaseSlot frees a slot and cancels its in-flight exchange. Any reply
// still on the way fails the generation check in the reactor.
func (r *Resolver) releaseSlot(i int) {
	s := &r.slots[i]
	if !s.busy {
		return
	}
	s.busy = false
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	r.inFlight--
}

// sweepTimeouts fails every slot that has been waiting longer than the
// per-query deadline and routes its key through the fallback chain.
func (r *Resolver) sweepTimeouts() {
	now := r.now()
	for i := range r.slots {
		s := &r.slots[i]
		if !s.busy || now.Sub(s.start) <= r.opts.Timeout {
			continue
		}
		w := s.item
		log.Debugf("resolver: %s query for %q timed out", w.kind, w.key)
		r.stats.Timeouts.Inc()
		r.releaseSlot(i)

		e := r.lookupEntry(w)
		if e == nil {
			continue
		}
		e.slot = -1
		r.nsFailed(e)
	}
}
