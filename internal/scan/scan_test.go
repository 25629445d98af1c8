package scan

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAddresses(t *testing.T) {
	testCases := []struct {
		name     string
		line     string
		mode     Mode
		expected []string
	}{
		{
			name:     "address at line start, anchored",
			line:     "1.2.3.4 GET /index.html",
			mode:     Anchored,
			expected: []string{"1.2.3.4"},
		},
		{
			name: "address mid-line ignored when anchored",
			line: "client 1.2.3.4 connected",
			mode: Anchored,
		},
		{
			name:     "address mid-line found when anywhere",
			line:     "client 1.2.3.4 connected",
			mode:     Anywhere,
			expected: []string{"1.2.3.4"},
		},
		{
			name:     "repeated address reported per occurrence",
			line:     "a 10.0.0.1 b 10.0.0.1 c",
			mode:     Anywhere,
			expected: []string{"10.0.0.1", "10.0.0.1"},
		},
		{
			name:     "multiple distinct addresses",
			line:     "8.8.8.8 -> 9.9.9.9",
			mode:     Anywhere,
			expected: []string{"8.8.8.8", "9.9.9.9"},
		},
		{
			name: "octet out of range",
			line: "1.2.3.256 x",
			mode: Anywhere,
		},
		{
			name: "too many octets",
			line: "1.2.3.4.5 x",
			mode: Anywhere,
		},
		{
			name: "too few octets",
			line: "1.2.3 x",
			mode: Anywhere,
		},
		{
			name: "version string is not an address",
			line: "release 1.2.3.4.5 shipped",
			mode: Anywhere,
		},
		{
			name:     "address at end of line",
			line:     "dst=192.168.0.10",
			mode:     Anywhere,
			expected: []string{"192.168.0.10"},
		},
		{
			name: "empty line",
			line: "",
			mode: Anywhere,
		},
		{
			name: "plain text line",
			line: "nothing to see here",
			mode: Anchored,
		},
		{
			name:     "boundary octets",
			line:     "0.0.0.0 255.255.255.255",
			mode:     Anywhere,
			expected: []string{"0.0.0.0", "255.255.255.255"},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, Addresses(tc.line, tc.mode))
		})
	}
}

func TestLiteral(t *testing.T) {
	assert.True(t, Literal("1.2.3.4"))
	assert.True(t, Literal("255.0.255.0"))
	assert.False(t, Literal("1.2.3"))
	assert.False(t, Literal("1.2.3.4.5"))
	assert.False(t, Literal("1.2.3.999"))
	assert.False(t, Literal("1..2.3"))
	assert.False(t, Literal("a.b.c.d"))
	assert.False(t, Literal(""))
}

func TestClasses(t *testing.T) {
	assert.Equal(t, [3]string{"1.2.3", "1.2", "1"}, Classes("1.2.3.4"))
	assert.Equal(t, [3]string{"10.0.0", "10.0", "10"}, Classes("10.0.0.1"))
}

func TestReverseName(t *testing.T) {
	assert.Equal(t, "3.2.1.in-addr.arpa.", ReverseName("1.2.3"))
	assert.Equal(t, "2.1.in-addr.arpa.", ReverseName("1.2"))
	assert.Equal(t, "1.in-addr.arpa.", ReverseName("1"))
}

func TestMaskExpand(t *testing.T) {
	testCases := []struct {
		name     string
		mask     Mask
		ip       string
		class    string
		expected string
	}{
		{
			name:     "default mask",
			mask:     DefaultMask,
			ip:       "1.2.3.4",
			class:    "net.example",
			expected: "1.2.3.4.net.example",
		},
		{
			name:     "tokens substituted once each",
			mask:     "%i-%c-%i",
			ip:       "1.2.3.4",
			class:    "c",
			expected: "1.2.3.4-c-%i",
		},
		{
			name:     "mask without class token",
			mask:     "%i.unknown",
			ip:       "1.2.3.4",
			class:    "ignored",
			expected: "1.2.3.4.unknown",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, tc.mask.Expand(tc.ip, tc.class))
		})
	}
}
