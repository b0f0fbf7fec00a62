//go:build windows

package dns

import (
	"context"
	"errors"
	"fmt"
	"net/netip"
	"os"
	"strings"
	"unsafe"

	"golang.org/x/sys/windows"
	"golang.org/x/sys/windows/registry"
)

const (
	BackendWindowsRegistry = "windows-registry"

	interfaceConfigPath       = `SYSTEM\CurrentControlSet\Services\Tcpip\Parameters\Interfaces`
	interfaceConfigNameServer = "NameServer"
)

var (
	dnsapi                  = windows.NewLazySystemDLL("dnsapi.dll")
	dnsFlushResolverCacheFn = dnsapi.NewProc("DnsFlushResolverCache")
)

func init() {
	register(BackendWindowsRegistry, func() (DNSAdapter, error) { return NewWindowsRegistry(), nil })
	detectDefault = func() string { return BackendWindowsRegistry }
}

// WindowsRegistry writes the static NameServer value of each interface, the same value
// the adapter properties dialog edits. Adapters come from GetAdaptersAddresses.
type WindowsRegistry struct{}

func NewWindowsRegistry() *WindowsRegistry {
	return &WindowsRegistry{}
}

func (w *WindowsRegistry) Name() string { return BackendWindowsRegistry }

func (w *WindowsRegistry) ListAdapters(ctx context.Context) ([]Adapter, error) {
	aas, err := adapterAddresses()
	if err != nil {
		return nil, err
	}
	var out []Adapter
	for _, aa := range aas {
		if aa.OperStatus != windows.IfOperStatusUp || aa.IfType == windows.IF_TYPE_SOFTWARE_LOOPBACK {
			continue
		}
		if aa.FirstUnicastAddress == nil {
			continue
		}
		out = append(out, Adapter{
			ID:    windows.BytePtrToString(aa.AdapterName),
			Name:  windows.UTF16PtrToString(aa.FriendlyName),
			Index: int(aa.IfIndex),
		})
	}
	return out, nil
}

// adapterAddresses returns IPv4 adapters, growing the buffer until the call fits.
func adapterAddresses() ([]*windows.IpAdapterAddresses, error) {
	var b []byte
	l := uint32(15000)
	for {
		b = make([]byte, l)
		flags := uint32(windows.GAA_FLAG_SKIP_ANYCAST | windows.GAA_FLAG_SKIP_MULTICAST | windows.GAA_FLAG_SKIP_DNS_SERVER)
		err := windows.GetAdaptersAddresses(windows.AF_INET, flags, 0, (*windows.IpAdapterAddresses)(unsafe.Pointer(&b[0])), &l)
		if err == nil {
			if l == 0 {
				return nil, nil
			}
			break
		}
		if !errors.Is(err, windows.ERROR_BUFFER_OVERFLOW) {
			return nil, os.NewSyscallError("getadaptersaddresses", err)
		}
		if l <= uint32(len(b)) {
			return nil, os.NewSyscallError("getadaptersaddresses", err)
		}
	}
	var aas []*windows.IpAdapterAddresses
	for aa := (*windows.IpAdapterAddresses)(unsafe.Pointer(&b[0])); aa != nil; aa = aa.Next {
		aas = append(aas, aa)
	}
	return aas, nil
}

func (w *WindowsRegistry) SetDNS(ctx context.Context, a Adapter, servers []netip.Addr) error {
	if len(servers) == 0 {
		return errors.New("no DNS servers provided")
	}
	list := make([]string, 0, len(servers))
	for _, s := range servers {
		list = append(list, s.String())
	}
	if err := w.setNameServer(a, strings.Join(list, ",")); err != nil {
		return err
	}
	flushDNSCache()
	return nil
}

// ClearDNS writes an empty NameServer, which sends the adapter back to DHCP-provided resolvers.
func (w *WindowsRegistry) ClearDNS(ctx context.Context, a Adapter) error {
	if err := w.setNameServer(a, ""); err != nil {
		return err
	}
	flushDNSCache()
	return nil
}

func (w *WindowsRegistry) setNameServer(a Adapter, value string) error {
	path := interfaceConfigPath + `\` + a.ID
	key, err := registry.OpenKey(registry.LOCAL_MACHINE, path, registry.SET_VALUE)
	if err != nil {
		return fmt.Errorf("open HKEY_LOCAL_MACHINE\\%s: %w", path, err)
	}
	defer key.Close()
	if err := key.SetStringValue(interfaceConfigNameServer, value); err != nil {
		return fmt.Errorf("set NameServer: %w", err)
	}
	return nil
}

func flushDNSCache() {
	// The proc may be missing on stripped-down systems; Call panics then.
	defer func() { _ = recover() }()
	_, _, _ = dnsFlushResolverCacheFn.Call()
}
