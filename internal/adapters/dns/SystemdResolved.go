//go:build linux

package dns

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/netip"
	"strconv"
	"time"

	dbus "github.com/godbus/dbus/v5"
	"github.com/vishvananda/netlink"
	"golang.org/x/sys/unix"
)

const (
	BackendSystemdResolved = "systemd-resolved"

	resolvedDest        = "org.freedesktop.resolve1"
	resolvedObjectNode  = "/org/freedesktop/resolve1"
	resolvedManager     = "org.freedesktop.resolve1.Manager"
	resolvedSetLinkDNS  = resolvedManager + ".SetLinkDNS"
	resolvedRevertLink  = resolvedManager + ".RevertLink"
	resolvedFlushCaches = resolvedManager + ".FlushCaches"
)

func init() {
	register(BackendSystemdResolved, func() (DNSAdapter, error) { return NewSystemdResolved(), nil })
	detectDefault = func() string {
		if IsSystemdResolvedAvailable() {
			return BackendSystemdResolved
		}
		return BackendResolvconf
	}
}

// resolvedDNSInput maps to the (iay) pairs SetLinkDNS takes.
type resolvedDNSInput struct {
	Family  int32
	Address []byte
}

// SystemdResolved sets per-link DNS through the systemd-resolved manager object.
// Links are found with netlink: up, not loopback, with at least one IPv4 address.
type SystemdResolved struct{}

func NewSystemdResolved() *SystemdResolved {
	return &SystemdResolved{}
}

func (s *SystemdResolved) Name() string { return BackendSystemdResolved }

func (s *SystemdResolved) ListAdapters(ctx context.Context) ([]Adapter, error) {
	links, err := netlink.LinkList()
	if err != nil {
		return nil, fmt.Errorf("list links: %w", err)
	}
	var out []Adapter
	for _, link := range links {
		attrs := link.Attrs()
		if attrs.Flags&net.FlagLoopback != 0 || attrs.Flags&net.FlagUp == 0 {
			continue
		}
		addrs, err := netlink.AddrList(link, netlink.FAMILY_V4)
		if err != nil || len(addrs) == 0 {
			continue
		}
		out = append(out, Adapter{ID: strconv.Itoa(attrs.Index), Name: attrs.Name, Index: attrs.Index})
	}
	return out, nil
}

func (s *SystemdResolved) SetDNS(ctx context.Context, a Adapter, servers []netip.Addr) error {
	if len(servers) == 0 {
		return errors.New("no DNS servers provided")
	}
	inputs := make([]resolvedDNSInput, 0, len(servers))
	for _, server := range servers {
		family := unix.AF_INET
		if server.Is6() {
			family = unix.AF_INET6
		}
		inputs = append(inputs, resolvedDNSInput{Family: int32(family), Address: server.AsSlice()})
	}
	if err := s.call(ctx, resolvedSetLinkDNS, int32(a.Index), inputs); err != nil {
		return fmt.Errorf("set link dns: %w", err)
	}
	s.flush(ctx)
	return nil
}

func (s *SystemdResolved) ClearDNS(ctx context.Context, a Adapter) error {
	if err := s.call(ctx, resolvedRevertLink, int32(a.Index)); err != nil {
		return fmt.Errorf("revert link: %w", err)
	}
	s.flush(ctx)
	return nil
}

// Cache flush failures don't matter for correctness, resolved drops stale entries on its own.
func (s *SystemdResolved) flush(ctx context.Context) {
	_ = s.call(ctx, resolvedFlushCaches)
}

func (s *SystemdResolved) call(ctx context.Context, method string, args ...any) error {
	conn, err := dbus.ConnectSystemBus()
	if err != nil {
		return fmt.Errorf("connect to system bus: %w", err)
	}
	defer conn.Close()
	obj := conn.Object(resolvedDest, resolvedObjectNode)
	return obj.CallWithContext(ctx, method, 0, args...).Store()
}

// IsSystemdResolvedAvailable pings resolved on the system bus.
func IsSystemdResolvedAvailable() bool {
	conn, err := dbus.ConnectSystemBus()
	if err != nil {
		return false
	}
	defer conn.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	obj := conn.Object(resolvedDest, resolvedObjectNode)
	return obj.CallWithContext(ctx, "org.freedesktop.DBus.Peer.Ping", 0).Store() == nil
}
