package resolver

import (
	"fmt"
	"strings"
)

// commit emits lines from the head of the buffer while every host on the
// head line is terminal. Hosts stuck in StatePendingRecurse get one chance
// to finalize against their classes first; if any host is still undecided
// after that, the head stays and output waits.
func (r *Resolver) commit() error {
	for !r.buf.empty() {
		rec := r.buf.head()

		if len(rec.hosts) > 0 {
			for _, h := range rec.hosts {
				if e := r.hosts[h]; e != nil && e.state == StatePendingRecurse {
					r.tryRecurse(e)
				}
			}
			ready := true
			for _, h := range rec.hosts {
				if e := r.hosts[h]; e != nil && !e.state.Terminal() {
					ready = false
					break
				}
			}
			if !ready {
				return nil
			}
			rec.text = r.rewrite(rec)
		}

		if _, err := fmt.Fprintln(r.out, rec.text); err != nil {
			return fmt.Errorf("writing output: %w", err)
		}
		r.buf.pop()
	}
	return nil
}

// rewrite substitutes resolved names into the line, left to right, one
// occurrence per scanned address. The search restarts after each handled
// occurrence so a literal that reappears inside an already substituted name
// is never expanded twice. Failed hosts keep their literal address.
func (r *Resolver) rewrite(rec *lineRecord) string {
	text := rec.text
	off := 0
	for _, h := range rec.hosts {
		e := r.hosts[h]
		if idx := strings.Index(text[off:], h); idx >= 0 {
			at := off + idx
			if e != nil && e.state != StateFailed {
				text = text[:at] + e.name + text[at+len(h):]
				off = at + len(e.name)
			} else {
				off = at + len(h)
			}
		}
		r.removeHost(h)
	}
	return text
}
