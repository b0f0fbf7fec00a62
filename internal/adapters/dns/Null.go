package dns

import (
	"context"
	"net/netip"
)

// Null DNS backend (no-op). Reports a single fake adapter and accepts everything.
// Usable for dry runs and as a skeleton for new backends.

type NullDNS struct {
}

func newNullDNS() *NullDNS {
	return &NullDNS{}
}

func (n *NullDNS) Name() string { return BackendNull }
func (n *NullDNS) ListAdapters(ctx context.Context) ([]Adapter, error) {
	return []Adapter{{ID: "null0", Name: "null0"}}, nil
}
func (n *NullDNS) SetDNS(ctx context.Context, a Adapter, servers []netip.Addr) error { return nil }
func (n *NullDNS) ClearDNS(ctx context.Context, a Adapter) error                    { return nil }
