package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/fatih/color"
	"github.com/sergds/dnschanger/internal/adapters/dns"
	"github.com/sergds/dnschanger/internal/catalog"
	"github.com/sergds/dnschanger/internal/changer"
	"github.com/sergds/dnschanger/internal/client"
	"github.com/sergds/dnschanger/internal/config"
	"github.com/sergds/dnschanger/internal/configurator"
	"github.com/sergds/dnschanger/internal/fastansi"
	"github.com/sergds/dnschanger/internal/journal"
	"github.com/sirupsen/logrus"
)

// frontend is what the commands drive: a local changer or a remote server.
type frontend interface {
	ListProfiles() ([]catalog.Profile, error)
	AddProfile(name, primary, secondary string) error
	RemoveProfile(name string) (bool, error)
	Adapters() (string, []dns.Adapter, error)
	ApplyProfile(name string, progress configurator.ProgressFunc) (*configurator.ApplyReport, error)
	ClearAll(progress configurator.ProgressFunc) (*configurator.ApplyReport, error)
	Status() (changer.Status, error)
	Close() error
}

// local adapts changer.Changer to frontend.
type local struct {
	*changer.Changer
	journal *journal.Journal
	backend string
}

func (l *local) ListProfiles() ([]catalog.Profile, error) {
	return l.Changer.ListProfiles(), nil
}

func (l *local) Adapters() (string, []dns.Adapter, error) {
	return l.backend, l.Changer.Adapters(), nil
}

func (l *local) Close() error {
	if l.journal != nil {
		return l.journal.Close()
	}
	return nil
}

var errRemoteOnly = errors.New("not available with --remote, run it on the server host")

// need says which parts of the local stack a command touches.
type need int

const (
	needCatalog need = 0
	needHost    need = 1 << iota
	needJournal
)

// env carries the resolved configuration between Before and the commands.
type env struct {
	conf   config.Config
	remote string
	log    *logrus.Logger
}

func (e *env) openLocal(n need) (*local, error) {
	store := catalog.Open(e.conf.Catalog, e.log)
	l := &local{}
	var conf *configurator.Configurator
	if n&needHost != 0 {
		backend, err := dns.NewDNSAdapter(e.conf.Backend)
		if err != nil {
			return nil, err
		}
		conf, err = configurator.New(backend,
			configurator.WithLogger(e.log),
			configurator.WithCallTimeout(e.conf.CallTimeout))
		if err != nil {
			return nil, err
		}
		l.backend = backend.Name()
	}
	if n&needJournal != 0 && e.conf.Journal != "" {
		j, err := journal.Open(e.conf.Journal)
		if err != nil {
			return nil, err
		}
		l.journal = j
	}
	l.Changer = changer.New(store, conf, l.journal, e.log)
	return l, nil
}

// open returns the remote server when --remote is set, the local stack otherwise.
func (e *env) open(n need) (frontend, error) {
	if e.remote == "" {
		l, err := e.openLocal(n)
		if err != nil {
			return nil, err
		}
		return l, nil
	}
	addr := e.remote
	if addr == "auto" || addr == "mdns" {
		sp := fastansi.NewStatusPrinter(color.Output)
		sp.Reserve(1)
		sp.Status(0, color.YellowString("Resolving dnschanger host(s) via mDNS..."))
		addrs, err := client.Discover(context.Background(), "", 2*time.Second)
		if err != nil {
			sp.Status(0, color.RedString(err.Error()))
			return nil, err
		}
		addr = addrs[0]
		sp.Status(0, "Found "+fmt.Sprint(len(addrs))+", using "+addr)
	}
	c, err := client.Dial(addr)
	if err != nil {
		return nil, err
	}
	e.log.WithField("addr", c.Target()).Debug("using remote dnschanger")
	return c, nil
}
