package resolver

// Kind distinguishes the two key flavors tracked by the pending table: full
// dotted-quad hosts and the class prefixes used for recursion.
type Kind int

const (
	// KindHost is a full dotted-quad address.
	KindHost Kind = iota
	// KindClass is a 24-, 16-, or 8-bit leading prefix of an address.
	KindClass
)

func (k Kind) String() string {
	if k == KindHost {
		return "host"
	}
	return "class"
}

// State tracks where a pending key is in its lifecycle. The last four states
// are terminal: once reached, the key never transitions again before its
// entry is deleted.
type State int

const (
	// StatePending means a query has not completed yet.
	StatePending State = iota
	// StatePendingRecurse means the direct PTR failed and the host is
	// waiting on its class prefixes. Hosts only.
	StatePendingRecurse
	// StateFailed means no name could be determined.
	StateFailed
	// StateFromStore means the name came from the resolution database.
	StateFromStore
	// StateFromNS means the name came from a nameserver reply.
	StateFromNS
	// StateFromRecursion means the name was synthesized from a class name.
	// Hosts only.
	StateFromRecursion
)

// Terminal reports whether no further transition can occur.
func (s State) Terminal() bool {
	switch s {
	case StateFailed, StateFromStore, StateFromNS, StateFromRecursion:
		return true
	}
	return false
}

// workItem is one queued query: a key tagged with its kind.
type workItem struct {
	kind Kind
	key  string
}
