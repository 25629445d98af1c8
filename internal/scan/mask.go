package scan

import "strings"

// Mask is the template used to synthesize a hostname from an address and its
// owning class name. The tokens %i and %c are each substituted once by the
// address literal and the class name.
type Mask string

// DefaultMask appends the class name to the address.
const DefaultMask Mask = "%i.%c"

// Expand substitutes ip and class into the mask.
func (m Mask) Expand(ip, class string) string {
	s := strings.Replace(string(m), "%i", ip, 1)
	return strings.Replace(s, "%c", class, 1)
}
