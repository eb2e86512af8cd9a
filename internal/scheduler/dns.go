package scheduler

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/miekg/dns"
)

var ErrNoAddress = errors.New("host has no address records")

// DNSResolver checks that a site host resolves before the agent is called.
type DNSResolver struct {
	client *dns.Client
	server string
}

func NewDNSResolver(server string) *DNSResolver {
	if server == "" {
		server = "1.1.1.1:53"
	}
	return &DNSResolver{
		client: &dns.Client{Timeout: 5 * time.Second},
		server: server,
	}
}

// Resolve succeeds when host is an IP literal or has at least one A, AAAA or
// CNAME answer.
func (d *DNSResolver) Resolve(ctx context.Context, host string) error {
	if host == "" {
		return ErrNoAddress
	}
	if net.ParseIP(host) != nil {
		return nil
	}

	var lastErr error
	for _, qtype := range []uint16{dns.TypeA, dns.TypeAAAA} {
		m := new(dns.Msg)
		m.SetQuestion(dns.Fqdn(host), qtype)
		m.RecursionDesired = true

		r, _, err := d.client.ExchangeContext(ctx, m, d.server)
		if err != nil {
			lastErr = fmt.Errorf("dns query %s: %w", host, err)
			continue
		}
		if r.Rcode != dns.RcodeSuccess {
			lastErr = fmt.Errorf("dns query %s: %s", host, dns.RcodeToString[r.Rcode])
			continue
		}
		for _, rr := range r.Answer {
			switch rr.(type) {
			case *dns.A, *dns.AAAA, *dns.CNAME:
				return nil
			}
		}
	}

	if lastErr != nil {
		return lastErr
	}
	return ErrNoAddress
}
