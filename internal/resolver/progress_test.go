package resolver

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestProgressRows(t *testing.T) {
	var buf bytes.Buffer
	p := progressWriter{w: &buf, enabled: true}

	for i := 0; i < 120; i++ {
		p.Mark('.')
	}
	p.Finish()

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	assert.Len(t, lines, 3)
	assert.Equal(t, "      0 "+strings.Repeat(".", 50), lines[0])
	assert.Equal(t, "     50 "+strings.Repeat(".", 50), lines[1])
	assert.Equal(t, "    100 "+strings.Repeat(".", 20), lines[2])
}

func TestProgressDisabled(t *testing.T) {
	var buf bytes.Buffer
	p := progressWriter{w: &buf}

	p.Mark('.')
	p.Finish()

	assert.Empty(t, buf.String())
}

func TestProgressGlyphVariety(t *testing.T) {
	var buf bytes.Buffer
	p := progressWriter{w: &buf, enabled: true}

	p.Mark('.')
	p.Mark('r')
	p.Mark('d')
	p.Finish()

	assert.Equal(t, "      0 .rd\n", buf.String())
}
