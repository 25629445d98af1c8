package resolver

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/wepl/jdresolve/internal/scan"
)

// lineRecord is one buffered input line together with the address literals
// scanned out of it, in occurrence order. A repeated address appears once
// per occurrence.
type lineRecord struct {
	text  string
	hosts []string
}

// lineBuffer holds the bounded window of input lines awaiting resolution.
type lineBuffer struct {
	recs []*lineRecord
	max  int
	rd   *bufio.Reader
	eof  bool
}

func newLineBuffer(in io.Reader, max int) *lineBuffer {
	return &lineBuffer{
		rd:  bufio.NewReader(in),
		max: max,
	}
}

func (b *lineBuffer) full() bool         { return len(b.recs) >= b.max }
func (b *lineBuffer) empty() bool        { return len(b.recs) == 0 }
func (b *lineBuffer) head() *lineRecord  { return b.recs[0] }
func (b *lineBuffer) pop()               { b.recs = b.recs[1:] }
func (b *lineBuffer) push(r *lineRecord) { b.recs = append(b.recs, r) }

// refill reads input lines into the buffer until the window is full or the
// input ends, registering every scanned address with the pending table.
func (r *Resolver) refill() error {
	mode := scan.Anchored
	if r.opts.Anywhere {
		mode = scan.Anywhere
	}

	for !r.buf.full() && !r.buf.eof {
		line, err := r.buf.rd.ReadString('\n')
		if err != nil {
			if !errors.Is(err, io.EOF) {
				return fmt.Errorf("reading input: %w", err)
			}
			r.buf.eof = true
			if line == "" {
				break
			}
		}
		text := strings.TrimSuffix(line, "\n")

		hosts := scan.Addresses(text, mode)
		for _, h := range hosts {
			r.addHost(h)
		}
		r.buf.push(&lineRecord{text: text, hosts: hosts})
		r.stats.Lines.Inc()
	}
	return nil
}
