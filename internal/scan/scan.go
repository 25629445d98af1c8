// Package scan recognizes IPv4 address literals inside log lines and derives
// the keys the resolver pipeline works with: the dotted-quad host key, the
// three owning class prefixes, and the reverse in-addr.arpa query names.
package scan

import (
	"strings"
)

// Mode selects where on a line address literals are recognized.
type Mode int

const (
	// Anchored recognizes an address only at the very start of a line.
	Anchored Mode = iota
	// Anywhere recognizes every address occurrence on a line.
	Anywhere
)

// Addresses returns the address literals found in line under the given mode,
// in the order they occur. Every occurrence is reported, including repeats
// of the same address.
func Addresses(line string, mode Mode) []string {
	var found []string
	for i := 0; i < len(line); {
		if !isAddrByte(line[i]) {
			i++
			continue
		}
		// Maximal run of digits and dots.
		j := i
		for j < len(line) && isAddrByte(line[j]) {
			j++
		}
		if lit := line[i:j]; Literal(lit) {
			if mode == Anywhere || i == 0 {
				found = append(found, lit)
			}
		}
		i = j
		if mode == Anchored {
			break
		}
	}
	return found
}

// Literal reports whether s is a dotted quad with every octet in 0..255.
func Literal(s string) bool {
	octets := strings.Split(s, ".")
	if len(octets) != 4 {
		return false
	}
	for _, o := range octets {
		if !validOctet(o) {
			return false
		}
	}
	return true
}

// Classes returns the three owning class prefixes of ip, most specific
// first: a.b.c, a.b, a. The ip must be a valid address literal.
func Classes(ip string) [3]string {
	octets := strings.Split(ip, ".")
	return [3]string{
		strings.Join(octets[:3], "."),
		strings.Join(octets[:2], "."),
		octets[0],
	}
}

// ReverseName forms the in-addr.arpa name for a class prefix by reversing
// its octets: "1.2.3" becomes "3.2.1.in-addr.arpa.".
func ReverseName(prefix string) string {
	octets := strings.Split(prefix, ".")
	var b strings.Builder
	for i := len(octets) - 1; i >= 0; i-- {
		b.WriteString(octets[i])
		b.WriteByte('.')
	}
	b.WriteString("in-addr.arpa.")
	return b.String()
}

func isAddrByte(c byte) bool {
	return c == '.' || (c >= '0' && c <= '9')
}

func validOctet(o string) bool {
	if len(o) == 0 || len(o) > 3 {
		return false
	}
	n := 0
	for i := 0; i < len(o); i++ {
		if o[i] < '0' || o[i] > '9' {
			return false
		}
		n = n*10 + int(o[i]-'0')
	}
	return n <= 255
}
