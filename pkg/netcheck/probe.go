// Package netcheck decides whether the machine is online by resolving a
// well-known host.
package netcheck

import (
	"context"
	"net"
	"time"
)

// DefaultHost is resolved when no host is configured.
const DefaultHost = "google.com"

// Resolver looks up host addresses. *net.Resolver satisfies it.
type Resolver interface {
	LookupHost(ctx context.Context, host string) ([]string, error)
}

// DNSProbe reports connectivity from DNS resolution.
type DNSProbe struct {
	Host     string
	Timeout  time.Duration
	Resolver Resolver
}

// NewDNSProbe creates a probe using the system resolver.
func NewDNSProbe(host string, timeout time.Duration) *DNSProbe {
	if host == "" {
		host = DefaultHost
	}
	return &DNSProbe{
		Host:     host,
		Timeout:  timeout,
		Resolver: net.DefaultResolver,
	}
}

// Reachable reports whether Host resolves to at least one address within
// Timeout.
func (p *DNSProbe) Reachable(ctx context.Context) bool {
	if p.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.Timeout)
		defer cancel()
	}

	resolver := p.Resolver
	if resolver == nil {
		resolver = net.DefaultResolver
	}

	addrs, err := resolver.LookupHost(ctx, p.Host)
	return err == nil && len(addrs) > 0
}
