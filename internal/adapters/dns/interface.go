package dns

import (
	"context"
	"net/netip"
)

// Adapter is a host network interface whose resolver list can be set on its own.
// ID is whatever the backend needs to find it again (GUID, link index, service name, file path).
type Adapter struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Index int    `json:"index,omitempty"`
}

func (a Adapter) String() string {
	if a.Name != "" {
		return a.Name
	}
	return a.ID
}

type DNSAdapter interface {
	Name() string                                                       // Backend name, as accepted by NewDNSAdapter.
	ListAdapters(ctx context.Context) ([]Adapter, error)                 // IP-enabled adapters, in the order they should be configured.
	SetDNS(ctx context.Context, a Adapter, servers []netip.Addr) error // Replace the static resolver list of one adapter.
	ClearDNS(ctx context.Context, a Adapter) error                      // Drop the static resolver list, back to whatever the OS does by default.
}
