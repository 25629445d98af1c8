package resolver

import "github.com/wepl/jdresolve/internal/scan"

// tryRecurse advances a host in StatePendingRecurse. The class prefixes are
// tried most specific first: the first one that resolved supplies the name
// fed to the mask, a failed one passes to the next broader prefix, and an
// undetermined one keeps the host blocked. A prefix is only queried once
// the narrower ones have failed, so a /24 answer costs a single class
// query. With all three failed the host fails too.
func (r *Resolver) tryRecurse(e *entry) {
	for _, p := range scan.Classes(e.key) {
		ce := r.classes[p]
		if ce == nil {
			continue
		}
		switch {
		case !ce.state.Terminal():
			if !ce.queued && ce.slot < 0 {
				// Class queries preempt queued hosts: output latency
				// depends on them.
				ce.queued = true
				r.queue.pushFront(workItem{kind: KindClass, key: p})
			}
			return
		case ce.state == StateFailed:
			continue
		default:
			r.finish(e, StateFromRecursion, r.opts.Mask.Expand(e.key, ce.name))
			r.removeClass(e.key)
			return
		}
	}

	r.finish(e, StateFailed, "")
	r.removeClass(e.key)
}
