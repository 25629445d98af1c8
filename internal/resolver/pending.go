package resolver

import (
	"go.uber.org/multierr"

	"github.com/wepl/jdresolve/internal/log"
	"github.com/wepl/jdresolve/internal/scan"
	"github.com/wepl/jdresolve/internal/store"
)

// entry is one key in the pending table. An entry exists while at least one
// buffered line references the key (refs > 0); deleting it is what triggers
// the single store write-back for the run.
type entry struct {
	kind   Kind
	key    string
	refs   int
	state  State
	slot   int  // bound query slot, -1 when none
	queued bool // sitting in the work queue awaiting dispatch
	name   string
	// cached is the database record read once at creation time. It is the
	// first fallback when the nameserver path fails.
	cached *store.Record
}

// addHost registers one occurrence of ip on a buffered line. Repeats bump
// the refcount; the first occurrence creates the entry and queues a PTR
// query unless the database already answers it.
func (r *Resolver) addHost(ip string) {
	r.add(KindHost, ip, true)
}

// removeHost drops one occurrence of ip. When the last reference goes, the
// terminal result is written back to the database and the entry deleted.
func (r *Resolver) removeHost(ip string) {
	r.removeKey(KindHost, ip)
}

// addClass registers the three owning prefixes of ip, most specific first.
// Class entries are created (and answered from the database when possible)
// up front, but their queries are enqueued one at a time by the recursion
// controller: a broader prefix is only queried after the narrower one
// failed.
func (r *Resolver) addClass(ip string) {
	for _, p := range scan.Classes(ip) {
		r.add(KindClass, p, false)
	}
}

// removeClass mirrors addClass.
func (r *Resolver) removeClass(ip string) {
	for _, p := range scan.Classes(ip) {
		r.removeKey(KindClass, p)
	}
}

func (r *Resolver) tableFor(kind Kind) map[string]*entry {
	if kind == KindHost {
		return r.hosts
	}
	return r.classes
}

func (r *Resolver) lookupEntry(w workItem) *entry {
	return r.tableFor(w.kind)[w.key]
}

func (r *Resolver) add(kind Kind, key string, enqueue bool) {
	m := r.tableFor(kind)
	if e, ok := m[key]; ok {
		e.refs++
		return
	}

	e := &entry{kind: kind, key: key, refs: 1, state: StatePending, slot: -1}
	m[key] = e
	if kind == KindHost {
		r.stats.Hosts.Inc()
	}

	if r.db != nil {
		rec, ok, err := r.db.Get(key)
		if err != nil {
			log.Warnf("resolver: database read for %q: %v", key, err)
		} else if ok {
			e.cached = rec
		}
	}

	switch {
	case r.opts.DBFirst && e.cached != nil:
		r.finish(e, StateFromStore, e.cached.Name)
	case r.opts.DBOnly:
		r.finish(e, StateFailed, "")
	case enqueue:
		e.queued = true
		r.queue.pushBack(workItem{kind: kind, key: key})
	}
}

func (r *Resolver) removeKey(kind Kind, key string) {
	m := r.tableFor(kind)
	e, ok := m[key]
	if !ok {
		return
	}
	e.refs--
	if e.refs > 0 {
		return
	}

	r.writeBack(e)
	if e.slot >= 0 {
		r.releaseSlot(e.slot)
		e.slot = -1
	}
	delete(m, key)
}

// writeBack persists a result that was reached from the network. Names that
// came out of the database go back in neither shape; recursion results are
// host-only.
func (r *Resolver) writeBack(e *entry) {
	if r.db == nil {
		return
	}
	var origin store.Origin
	switch {
	case e.state == StateFromNS:
		origin = store.OriginNS
	case e.kind == KindHost && e.state == StateFromRecursion:
		origin = store.OriginRecursed
	default:
		return
	}
	rec := store.Record{Name: e.name, Origin: origin, Timestamp: r.now().Unix()}
	if err := r.db.Put(e.key, rec); err != nil {
		r.stats.StoreErrors.Inc()
		r.werrs = multierr.Append(r.werrs, err)
	}
}

// nsFailed is the fallback when the nameserver path yields nothing for a
// key: a timeout, a bogus reply, or an answer with no usable record. The
// chain is cached record, then class recursion (hosts only), then failed.
func (r *Resolver) nsFailed(e *entry) {
	if e.cached != nil {
		r.finish(e, StateFromStore, e.cached.Name)
		return
	}
	if e.kind == KindHost && r.opts.Recursive {
		e.state = StatePendingRecurse
		r.addClass(e.key)
		return
	}
	r.finish(e, StateFailed, "")
}

// finish publishes a terminal state for e and updates statistics and the
// progress display. Transitions are one-shot: callers only invoke this on
// non-terminal entries.
func (r *Resolver) finish(e *entry, s State, name string) {
	e.state = s
	e.name = name

	switch s {
	case StateFromNS:
		r.stats.Resolved.Inc()
		if e.kind == KindHost {
			r.progress.Mark('.')
		}
	case StateFromStore:
		r.stats.StoreHits.Inc()
		if e.kind == KindHost {
			r.progress.Mark('d')
		}
	case StateFromRecursion:
		r.stats.Recursed.Inc()
		r.progress.Mark('r')
	case StateFailed:
		if e.kind == KindHost {
			r.stats.Failed.Inc()
			r.noteUnresolved(e.key)
		}
	}
}

func (r *Resolver) noteUnresolved(ip string) {
	if !r.opts.Unresolved {
		return
	}
	if _, ok := r.unresolvedSet[ip]; ok {
		return
	}
	r.unresolvedSet[ip] = struct{}{}
	r.unresolved = append(r.unresolved, ip)
}
