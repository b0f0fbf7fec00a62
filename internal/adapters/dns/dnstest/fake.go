// Package dnstest provides an in-memory dns backend for tests.
package dnstest

import (
	"context"
	"errors"
	"net/netip"
	"strconv"
	"sync"

	"github.com/sergds/dnschanger/internal/adapters/dns"
)

var ErrRejected = errors.New("access denied")

type Call struct {
	Adapter string
	Servers []string // nil for a clear
	Clear   bool
}

// Fake records calls in order and fails the adapter IDs listed in FailOn.
type Fake struct {
	mu       sync.Mutex
	adapters []dns.Adapter
	FailOn   map[string]bool
	calls    []Call
	listed   int
}

// New returns a fake with n adapters: IDs if0..ifN-1, names eth0..ethN-1.
func New(n int) *Fake {
	f := &Fake{FailOn: map[string]bool{}}
	for i := 0; i < n; i++ {
		f.adapters = append(f.adapters, dns.Adapter{ID: "if" + strconv.Itoa(i), Name: "eth" + strconv.Itoa(i), Index: i + 1})
	}
	return f
}

func (f *Fake) Name() string { return "fake" }

func (f *Fake) ListAdapters(ctx context.Context) ([]dns.Adapter, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listed++
	return append([]dns.Adapter(nil), f.adapters...), nil
}

func (f *Fake) SetDNS(ctx context.Context, a dns.Adapter, servers []netip.Addr) error {
	s := make([]string, 0, len(servers))
	for _, addr := range servers {
		s = append(s, addr.String())
	}
	return f.add(Call{Adapter: a.ID, Servers: s})
}

func (f *Fake) ClearDNS(ctx context.Context, a dns.Adapter) error {
	return f.add(Call{Adapter: a.ID, Clear: true})
}

func (f *Fake) add(c Call) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, c)
	if f.FailOn[c.Adapter] {
		return ErrRejected
	}
	return nil
}

// AddAdapter simulates a hot-plugged interface.
func (f *Fake) AddAdapter(a dns.Adapter) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.adapters = append(f.adapters, a)
}

func (f *Fake) Calls() []Call {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Call(nil), f.calls...)
}

func (f *Fake) Listed() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.listed
}
