package configurator

import (
	"context"
	"fmt"
	"net/netip"
	"time"

	"github.com/sergds/dnschanger/internal/adapters/dns"
	"github.com/sergds/dnschanger/internal/catalog"
	"github.com/sergds/dnschanger/internal/executor"
	"github.com/sirupsen/logrus"
)

const DefaultCallTimeout = 15 * time.Second

// ProgressFunc receives the completed percentage after every adapter.
type ProgressFunc func(percent int)

// Configurator applies resolver lists to the adapters the backend reported when it was built.
// The adapter set is a snapshot; build a new Configurator to pick up hot-plugged interfaces.
//
// Failure policy is best effort: an adapter that rejects the change is recorded in the report
// and the remaining adapters are still configured. Nothing is rolled back.
type Configurator struct {
	backend  dns.DNSAdapter
	adapters []dns.Adapter
	timeout  time.Duration
	log      logrus.FieldLogger
}

type Option func(*Configurator)

func WithLogger(log logrus.FieldLogger) Option {
	return func(c *Configurator) { c.log = log }
}

func WithCallTimeout(d time.Duration) Option {
	return func(c *Configurator) {
		if d > 0 {
			c.timeout = d
		}
	}
}

func New(backend dns.DNSAdapter, opts ...Option) (*Configurator, error) {
	c := &Configurator{backend: backend, timeout: DefaultCallTimeout, log: logrus.StandardLogger()}
	for _, opt := range opts {
		opt(c)
	}
	c.log = c.log.WithField("backend", backend.Name())

	ctx, cancel := context.WithTimeout(context.Background(), c.timeout)
	defer cancel()
	adapters, err := backend.ListAdapters(ctx)
	if err != nil {
		return nil, fmt.Errorf("list adapters: %w", err)
	}
	c.adapters = adapters
	c.log.WithField("count", len(adapters)).Debug("adapters enumerated")
	return c, nil
}

func (c *Configurator) Backend() string { return c.backend.Name() }

func (c *Configurator) Adapters() []dns.Adapter {
	return append([]dns.Adapter(nil), c.adapters...)
}

// Apply sets addrs on every adapter. Empty entries are skipped, so a pair with no secondary
// sets a single server. Invalid addresses are rejected before any adapter is touched.
func (c *Configurator) Apply(addrs []string, progress ProgressFunc) (*ApplyReport, error) {
	servers := make([]netip.Addr, 0, len(addrs))
	kept := make([]string, 0, len(addrs))
	for _, a := range addrs {
		if a == "" {
			continue
		}
		ip, err := catalog.CanonicalIPv4(a)
		if err != nil {
			return nil, err
		}
		servers = append(servers, ip)
		kept = append(kept, ip.String())
	}
	if len(servers) == 0 {
		return nil, &catalog.ValidationError{Field: "addresses", Reason: "nothing to apply, use clear instead"}
	}
	return c.run(OpApply, kept, func(ctx context.Context, a dns.Adapter) error {
		return c.backend.SetDNS(ctx, a, servers)
	}, progress), nil
}

// Clear drops the static resolver list on every adapter.
func (c *Configurator) Clear(progress ProgressFunc) (*ApplyReport, error) {
	return c.run(OpClear, nil, c.backend.ClearDNS, progress), nil
}

func (c *Configurator) run(op string, addrs []string, f func(context.Context, dns.Adapter) error, progress ProgressFunc) *ApplyReport {
	report := &ApplyReport{Op: op, Addresses: addrs, Started: time.Now()}
	exec := executor.NewExecutor()
	for _, a := range c.adapters {
		a := a
		exec.AddStep(executor.NewStep(a.ID, func(ctx context.Context) error {
			ctx, cancel := context.WithTimeout(ctx, c.timeout)
			defer cancel()
			return f(ctx, a)
		}))
	}
	exec.Run(func(u *executor.ExecutorUpdate) {
		a := c.adapters[u.Index]
		report.Results = append(report.Results, AdapterResult{Adapter: a, Err: u.Err})
		log := c.log.WithFields(logrus.Fields{"adapter": a.String(), "op": op})
		if u.Err != nil {
			log.WithError(u.Err).Warn("adapter rejected dns change")
		} else {
			log.Debug("adapter updated")
		}
		if progress != nil {
			progress(Percent(u.Index, u.Total))
		}
	})
	report.Finished = time.Now()
	return report
}

// Percent is the progress after the adapter at index i of total, rounded up: 34, 67, 100 for three.
func Percent(i, total int) int {
	if total <= 0 {
		return 100
	}
	return ((i+1)*100 + total - 1) / total
}

