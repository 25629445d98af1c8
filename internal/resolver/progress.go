package resolver

import (
	"fmt"
	"io"
)

const _glyphsPerRow = 50

// progressWriter prints one status glyph per finished host: '.' for a
// nameserver answer, 'r' for a recursion-synthesized name, 'd' for a
// database hit. Rows are fifty glyphs wide and start with the running count.
type progressWriter struct {
	w       io.Writer
	enabled bool
	count   int
}

func (p *progressWriter) Mark(glyph byte) {
	if !p.enabled {
		return
	}
	if p.count%_glyphsPerRow == 0 {
		if p.count > 0 {
			fmt.Fprintln(p.w)
		}
		fmt.Fprintf(p.w, "%7d ", p.count)
	}
	fmt.Fprintf(p.w, "%c", glyph)
	p.count++
}

// Finish terminates a partially filled row.
func (p *progressWriter) Finish() {
	if p.enabled && p.count > 0 {
		fmt.Fprintln(p.w)
	}
}
