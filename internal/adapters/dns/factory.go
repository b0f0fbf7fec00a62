package dns

import (
	"fmt"
	"sort"
	"strings"
)

const (
	BackendAuto       = "auto"
	BackendNull       = "null"
	BackendResolvconf = "resolvconf"
)

var backends = map[string]func() (DNSAdapter, error){
	BackendNull:       func() (DNSAdapter, error) { return newNullDNS(), nil },
	BackendResolvconf: func() (DNSAdapter, error) { return NewResolvconf(DefaultResolvConfPath), nil },
}

// detectDefault picks the backend for "auto". Platform files replace it.
var detectDefault = func() string { return BackendResolvconf }

func register(name string, f func() (DNSAdapter, error)) {
	backends[name] = f
}

// Backends lists the names NewDNSAdapter accepts on this platform.
func Backends() []string {
	names := make([]string, 0, len(backends))
	for n := range backends {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

func NewDNSAdapter(name string) (DNSAdapter, error) {
	n := strings.ToLower(strings.TrimSpace(name))
	if n == "" || n == BackendAuto {
		n = detectDefault()
	}
	f, ok := backends[n]
	if !ok {
		return nil, fmt.Errorf("unknown dns backend %q (available: %s)", name, strings.Join(Backends(), ", "))
	}
	return f()
}
