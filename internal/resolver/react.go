package resolver

import (
	"time"

	"github.com/wepl/jdresolve/internal/dnsclient"
	"github.com/wepl/jdresolve/internal/log"
)

// _reactWait bounds how long one driver iteration blocks waiting for the
// first reply. Timeout sweeping and output committing must keep running even
// when no reply arrives.
const _reactWait = 5 * time.Second

// react waits up to _reactWait for a reply, then drains everything else that
// is already available. With nothing in flight it returns immediately.
func (r *Resolver) react(done <-chan struct{}) {
	if r.inFlight == 0 {
		return
	}

	timer := time.NewTimer(r.reactWait)
	defer timer.Stop()

	select {
	case resp := <-r.responses:
		r.handleResponse(resp)
	case <-timer.C:
		return
	case <-done:
		return
	}

	for {
		select {
		case resp := <-r.responses:
			r.handleResponse(resp)
		default:
			return
		}
	}
}

func (r *Resolver) handleResponse(resp response) {
	s := &r.slots[resp.slot]
	if !s.busy || s.gen != resp.gen {
		// A reply for a binding that was timed out or released.
		return
	}
	w := s.item
	r.releaseSlot(resp.slot)

	e := r.lookupEntry(w)
	if e == nil {
		return
	}
	e.slot = -1

	if resp.err != nil {
		if dnsclient.IsTransportExhausted(resp.err) {
			// Not a query failure: the process is out of sockets. Put the
			// key back at the head and try again next tick.
			log.Warnf("resolver: out of sockets, requeueing %s %q: %v", w.kind, w.key, resp.err)
			e.queued = true
			r.queue.pushFront(w)
			return
		}
		log.Debugf("resolver: %s query for %q: %v", w.kind, w.key, resp.err)
		r.stats.Bogus.Inc()
		r.nsFailed(e)
		return
	}

	r.stats.Received.Inc()
	r.stats.observeRTT(resp.rtt)

	var (
		name string
		ok   bool
	)
	if w.kind == KindHost {
		name, ok = dnsclient.PTRName(resp.msg)
	} else {
		name, ok = dnsclient.ClassName(resp.msg)
	}
	if !ok {
		r.stats.Bogus.Inc()
		r.nsFailed(e)
		return
	}
	r.finish(e, StateFromNS, name)
}
