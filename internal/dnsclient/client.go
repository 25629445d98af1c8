// Package dnsclient issues the two query shapes the resolver pipeline needs:
// PTR lookups for full addresses and NS lookups for the reverse zone of a
// class prefix. It also classifies the replies.
package dnsclient

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"net"
	"strings"
	"syscall"
	"time"

	"github.com/miekg/dns"

	"github.com/wepl/jdresolve/internal/scan"
)

var (
	// ErrEmptyMsg is returned when the DNS response message is empty.
	ErrEmptyMsg = fmt.Errorf("empty message")
	// ErrBadAddress is returned when a PTR query is requested for a string
	// that is not an IPv4 literal.
	ErrBadAddress = fmt.Errorf("not an IPv4 address")
)

var _defaultResolver = "1.1.1.1:53"

// Exchanger defines the interface for DNS message exchange.
type Exchanger interface {
	ExchangeContext(ctx context.Context, m *dns.Msg, a string) (r *dns.Msg, rtt time.Duration, err error)
}

// Client issues reverse DNS queries against a configurable resolver set.
type Client struct {
	Client    Exchanger
	Timeout   time.Duration
	Resolvers []string
}

// Opt is a function option for configuring the Client.
type Opt func(c *Client)

// New creates a new Client with the given timeout and optional configurations.
func New(timeout time.Duration, opts ...Opt) *Client {
	c := &Client{
		Client: &dns.Client{
			Timeout: timeout,
		},
		Timeout: timeout,
	}

	for _, o := range opts {
		o(c)
	}

	return c
}

// WithResolvers returns an option to set custom DNS resolvers.
// If not provided, the default resolver (1.1.1.1:53) will be used.
func WithResolvers(resolvers []string) Opt {
	return func(c *Client) {
		c.Resolvers = resolvers
	}
}

// LookupPTR sends a PTR query for the dotted-quad address ip.
func (c *Client) LookupPTR(ctx context.Context, ip string) (*dns.Msg, time.Duration, error) {
	rev, err := dns.ReverseAddr(ip)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: %q", ErrBadAddress, ip)
	}
	req := &dns.Msg{}
	req.SetQuestion(rev, dns.TypePTR)
	return c.exchange(ctx, req)
}

// LookupNS sends an NS query for the reverse in-addr.arpa zone of the class
// prefix (one to three leading octets of an address).
func (c *Client) LookupNS(ctx context.Context, prefix string) (*dns.Msg, time.Duration, error) {
	req := &dns.Msg{}
	req.SetQuestion(scan.ReverseName(prefix), dns.TypeNS)
	return c.exchange(ctx, req)
}

func (c *Client) exchange(ctx context.Context, req *dns.Msg) (*dns.Msg, time.Duration, error) {
	resp, rtt, err := c.Client.ExchangeContext(ctx, req, c.getResolver())
	if err != nil {
		return nil, rtt, err
	}
	if resp == nil {
		return nil, rtt, ErrEmptyMsg
	}
	return resp, rtt, nil
}

// PTRName extracts the hostname from a PTR reply. When the answer carries
// several PTR records, the last one observed wins. The returned name keeps
// its trailing dot.
func PTRName(msg *dns.Msg) (string, bool) {
	name := ""
	for _, rr := range msg.Answer {
		if ptr, ok := rr.(*dns.PTR); ok {
			name = ptr.Ptr
		}
	}
	return name, name != ""
}

// ClassName derives the class name from an NS reply. The first SOA mname
// wins; with no SOA, the first NS nsdname. The record name is split at its
// first label: when the remainder is itself a multi-label domain it becomes
// the class name, otherwise the whole record name does. The result is
// lowercased with no trailing dot.
func ClassName(msg *dns.Msg) (string, bool) {
	var firstSOA, firstNS string
	for _, rr := range msg.Answer {
		switch r := rr.(type) {
		case *dns.SOA:
			if firstSOA == "" {
				firstSOA = r.Ns
			}
		case *dns.NS:
			if firstNS == "" {
				firstNS = r.Ns
			}
		}
	}
	full := firstSOA
	if full == "" {
		full = firstNS
	}
	if full == "" {
		return "", false
	}
	full = strings.TrimSuffix(full, ".")
	if _, rest, ok := strings.Cut(full, "."); ok && strings.Contains(rest, ".") {
		return strings.ToLower(rest), true
	}
	return strings.ToLower(full), true
}

// IsTransportExhausted reports whether err means the process cannot open
// another query socket. The resolver's reactor requeues the key at the head
// of the work queue for the next tick instead of counting a query failure.
func IsTransportExhausted(err error) bool {
	var opErr *net.OpError
	if !errors.As(err, &opErr) {
		return false
	}
	return errors.Is(opErr.Err, syscall.EMFILE) || errors.Is(opErr.Err, syscall.ENFILE)
}

// getResolver returns a random resolver from the list of resolvers.
func (c *Client) getResolver() string {
	if len(c.Resolvers) == 0 {
		return _defaultResolver
	}

	n, err := rand.Int(rand.Reader, big.NewInt(int64(len(c.Resolvers))))
	if err != nil {
		// Fall back to first resolver on error
		return c.Resolvers[0]
	}

	return c.Resolvers[n.Int64()]
}
