package probe

import (
	"context"
	"fmt"
	"net"
	"time"

	"github.com/likexian/doh"
	dohdns "github.com/likexian/doh/dns"
	mdns "github.com/miekg/dns"
	"github.com/sergds/dnschanger/internal/catalog"
	"github.com/sourcegraph/conc/pool"
)

const (
	DefaultHost    = "example.com"
	DefaultTimeout = 2 * time.Second
	DefaultPort    = "53"
)

type Options struct {
	Host        string
	Timeout     time.Duration
	Port        string
	Concurrency int
	// Verify compares every answer with a DoH lookup of the same host.
	Verify bool
	// Reference replaces the DoH lookup used by Verify.
	Reference func(ctx context.Context, host string) ([]string, error)
}

func (o *Options) defaults() {
	if o.Host == "" {
		o.Host = DefaultHost
	}
	if o.Timeout <= 0 {
		o.Timeout = DefaultTimeout
	}
	if o.Port == "" {
		o.Port = DefaultPort
	}
	if o.Concurrency <= 0 {
		o.Concurrency = 4
	}
	if o.Reference == nil {
		o.Reference = DoHLookup
	}
}

type ServerResult struct {
	Address    string
	RTT        time.Duration
	Answers    []string
	Err        error
	Verified   bool // a reference answer was available
	Consistent bool // answers share at least one address with the reference
}

type Result struct {
	Profile catalog.Profile
	Servers []ServerResult
}

// Probe asks every resolver of every profile for Options.Host. Profiles are probed in parallel,
// results come back in input order. Nothing on the host is reconfigured.
func Probe(ctx context.Context, profiles []catalog.Profile, opts Options) []Result {
	opts.defaults()

	var reference map[string]bool
	var refErr error
	if opts.Verify {
		refCtx, cancel := context.WithTimeout(ctx, opts.Timeout*2)
		answers, err := opts.Reference(refCtx, opts.Host)
		cancel()
		refErr = err
		reference = make(map[string]bool, len(answers))
		for _, a := range answers {
			reference[a] = true
		}
	}

	results := make([]Result, len(profiles))
	p := pool.New().WithMaxGoroutines(opts.Concurrency)
	for i, prof := range profiles {
		i, prof := i, prof
		p.Go(func() {
			res := Result{Profile: prof}
			for _, addr := range prof.Addresses.Addresses() {
				sr := query(ctx, addr, opts)
				if opts.Verify && sr.Err == nil && refErr == nil && len(reference) > 0 {
					sr.Verified = true
					for _, a := range sr.Answers {
						if reference[a] {
							sr.Consistent = true
							break
						}
					}
				}
				res.Servers = append(res.Servers, sr)
			}
			results[i] = res
		})
	}
	p.Wait()
	return results
}

func query(ctx context.Context, addr string, opts Options) ServerResult {
	sr := ServerResult{Address: addr}
	ip, err := catalog.CanonicalIPv4(addr)
	if err != nil {
		sr.Err = err
		return sr
	}
	client := &mdns.Client{Net: "udp", Timeout: opts.Timeout}
	msg := new(mdns.Msg)
	msg.SetQuestion(mdns.Fqdn(opts.Host), mdns.TypeA)

	qctx, cancel := context.WithTimeout(ctx, opts.Timeout)
	defer cancel()
	resp, rtt, err := client.ExchangeContext(qctx, msg, net.JoinHostPort(ip.String(), opts.Port))
	sr.RTT = rtt
	if err != nil {
		sr.Err = err
		return sr
	}
	if resp.Rcode != mdns.RcodeSuccess {
		sr.Err = fmt.Errorf("rcode %s", mdns.RcodeToString[resp.Rcode])
		return sr
	}
	for _, rr := range resp.Answer {
		if a, ok := rr.(*mdns.A); ok {
			sr.Answers = append(sr.Answers, a.A.String())
		}
	}
	return sr
}

// DoHLookup resolves host's A records over DNS-over-HTTPS, independent of the host resolver.
func DoHLookup(ctx context.Context, host string) ([]string, error) {
	c := doh.Use(doh.CloudflareProvider, doh.GoogleProvider)
	defer c.Close()
	resp, err := c.Query(ctx, dohdns.Domain(host), dohdns.TypeA)
	if err != nil {
		return nil, err
	}
	var out []string
	for _, a := range resp.Answer {
		if a.Type == 1 { // 1 -- A
			out = append(out, a.Data)
		}
	}
	return out, nil
}
