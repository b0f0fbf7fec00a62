//go:build darwin

package dns

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/netip"
	"os/exec"
	"strings"
)

const (
	BackendNetworksetup = "networksetup"

	networksetupPath = "/usr/sbin/networksetup"
)

func init() {
	register(BackendNetworksetup, func() (DNSAdapter, error) { return NewNetworksetup(), nil })
	detectDefault = func() string { return BackendNetworksetup }
}

// Networksetup configures macOS network services. Each enabled service counts as an adapter.
type Networksetup struct{}

func NewNetworksetup() *Networksetup {
	return &Networksetup{}
}

func (n *Networksetup) Name() string { return BackendNetworksetup }

func (n *Networksetup) ListAdapters(ctx context.Context) ([]Adapter, error) {
	out, err := n.run(ctx, "-listallnetworkservices")
	if err != nil {
		return nil, err
	}
	var adapters []Adapter
	scanner := bufio.NewScanner(bytes.NewReader(out))
	first := true
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if first {
			// "An asterisk (*) denotes that a network service is disabled."
			first = false
			continue
		}
		if line == "" || strings.HasPrefix(line, "*") {
			continue
		}
		adapters = append(adapters, Adapter{ID: line, Name: line})
	}
	return adapters, scanner.Err()
}

func (n *Networksetup) SetDNS(ctx context.Context, a Adapter, servers []netip.Addr) error {
	if len(servers) == 0 {
		return errors.New("no DNS servers provided")
	}
	args := []string{"-setdnsservers", a.ID}
	for _, s := range servers {
		args = append(args, s.String())
	}
	_, err := n.run(ctx, args...)
	return err
}

func (n *Networksetup) ClearDNS(ctx context.Context, a Adapter) error {
	_, err := n.run(ctx, "-setdnsservers", a.ID, "Empty")
	return err
}

func (n *Networksetup) run(ctx context.Context, args ...string) ([]byte, error) {
	out, err := exec.CommandContext(ctx, networksetupPath, args...).CombinedOutput()
	if err != nil {
		return nil, fmt.Errorf("networksetup %s: %s: %w", args[0], strings.TrimSpace(string(out)), err)
	}
	return out, nil
}
