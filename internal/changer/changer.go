package changer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/sergds/dnschanger/internal/adapters/dns"
	"github.com/sergds/dnschanger/internal/catalog"
	"github.com/sergds/dnschanger/internal/configurator"
	"github.com/sergds/dnschanger/internal/journal"
	"github.com/sergds/dnschanger/internal/probe"
	"github.com/sirupsen/logrus"
)

var (
	ErrUnknownProfile = errors.New("unknown profile")
	ErrBusy           = errors.New("another apply or clear is in progress")
)

type Status struct {
	Backend  string
	Adapters []dns.Adapter
	Active   string
	Last     *journal.Entry
}

// Changer is what a front-end talks to: the catalog, the configurator and, optionally,
// the journal behind one set of calls. Catalog calls are serialised; only one apply or
// clear may run at a time, a second one gets ErrBusy instead of waiting.
type Changer struct {
	mu      sync.Mutex
	busy    sync.Mutex
	store   *catalog.Store
	conf    *configurator.Configurator
	journal *journal.Journal
	log     logrus.FieldLogger
}

// New wires the pieces together. j may be nil. conf may be nil when only catalog calls are made.
func New(store *catalog.Store, conf *configurator.Configurator, j *journal.Journal, log logrus.FieldLogger) *Changer {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Changer{store: store, conf: conf, journal: j, log: log}
}

func (c *Changer) ListProfiles() []catalog.Profile {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.store.Profiles()
}

func (c *Changer) AddProfile(name, primary, secondary string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.store.Add(name, primary, secondary)
}

func (c *Changer) RemoveProfile(name string) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.store.Remove(name)
}

func (c *Changer) Adapters() []dns.Adapter {
	return c.conf.Adapters()
}

func (c *Changer) ApplyProfile(name string, progress configurator.ProgressFunc) (*configurator.ApplyReport, error) {
	if !c.busy.TryLock() {
		return nil, ErrBusy
	}
	defer c.busy.Unlock()

	c.mu.Lock()
	p, ok := c.store.Get(name)
	c.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownProfile, name)
	}
	report, err := c.conf.Apply(p.Addresses.Addresses(), progress)
	if err != nil {
		return nil, fmt.Errorf("profile %q: %w", name, err)
	}
	c.record(p.Name, report)
	return report, nil
}

func (c *Changer) ClearAll(progress configurator.ProgressFunc) (*configurator.ApplyReport, error) {
	if !c.busy.TryLock() {
		return nil, ErrBusy
	}
	defer c.busy.Unlock()

	report, err := c.conf.Clear(progress)
	if err != nil {
		return nil, err
	}
	c.record("", report)
	return report, nil
}

// record writes the run to the journal. The host is already changed at this point, so a
// journal failure is only logged.
func (c *Changer) record(profile string, report *configurator.ApplyReport) {
	log := c.log.WithFields(logrus.Fields{"op": report.Op, "profile": profile})
	if err := report.Err(); err != nil {
		log.WithError(err).Warn("some adapters were not updated")
	} else {
		log.Info("dns updated on all adapters")
	}
	if c.journal == nil {
		return
	}
	e := journal.Entry{Op: report.Op, Profile: profile, Addresses: report.Addresses, Time: report.Finished}
	for _, a := range report.Succeeded() {
		e.Adapters = append(e.Adapters, a.String())
	}
	for _, f := range report.Failed() {
		e.Failed = append(e.Failed, f.Adapter.String())
	}
	if _, err := c.journal.Record(e); err != nil {
		log.WithError(err).Warn("could not write journal")
	}
}

func (c *Changer) Status() (Status, error) {
	st := Status{Backend: c.conf.Backend(), Adapters: c.conf.Adapters()}
	if c.journal == nil {
		return st, nil
	}
	active, err := c.journal.Active()
	if err != nil {
		return st, err
	}
	st.Active = active
	last, err := c.journal.Recent(1)
	if err != nil {
		return st, err
	}
	if len(last) == 1 {
		st.Last = &last[0]
	}
	return st, nil
}

// History returns up to n journal entries, newest first. Without a journal it is always empty.
func (c *Changer) History(n int) ([]journal.Entry, error) {
	if c.journal == nil {
		return nil, nil
	}
	return c.journal.Recent(n)
}

// Probe checks the resolvers of the named profiles, or of every profile when names is empty.
func (c *Changer) Probe(ctx context.Context, names []string, opts probe.Options) ([]probe.Result, error) {
	c.mu.Lock()
	var profiles []catalog.Profile
	if len(names) == 0 {
		profiles = c.store.Profiles()
	}
	for _, n := range names {
		p, ok := c.store.Get(n)
		if !ok {
			c.mu.Unlock()
			return nil, fmt.Errorf("%w: %q", ErrUnknownProfile, n)
		}
		profiles = append(profiles, p)
	}
	c.mu.Unlock()
	return probe.Probe(ctx, profiles, opts), nil
}

func (c *Changer) Export(w io.Writer) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.store.ExportYAML(w)
}

func (c *Changer) Import(r io.Reader, replace bool) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.store.ImportYAML(r, replace)
}
