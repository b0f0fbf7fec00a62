package dns

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/netip"
	"os"
	"strings"
)

const (
	DefaultResolvConfPath = "/etc/resolv.conf"

	backupSuffix  = ".dnschanger"
	managedMarker = "# nameservers managed by dnschanger"
)

// Resolvconf rewrites the nameserver lines of a resolv.conf style file. The file is global,
// so it shows up as a single adapter named after the path.
// The original content is saved once to <path>.dnschanger and put back on ClearDNS.
type Resolvconf struct {
	path string
}

func NewResolvconf(path string) *Resolvconf {
	return &Resolvconf{path: path}
}

func (r *Resolvconf) Name() string { return BackendResolvconf }

func (r *Resolvconf) ListAdapters(ctx context.Context) ([]Adapter, error) {
	if _, err := os.Stat(r.path); err != nil {
		return nil, fmt.Errorf("stat %s: %w", r.path, err)
	}
	return []Adapter{{ID: r.path, Name: r.path}}, nil
}

func (r *Resolvconf) SetDNS(ctx context.Context, a Adapter, servers []netip.Addr) error {
	if len(servers) == 0 {
		return errors.New("no DNS servers provided")
	}
	content, err := os.ReadFile(r.path)
	if err != nil {
		return fmt.Errorf("read %s: %w", r.path, err)
	}
	if _, err := os.Stat(r.path + backupSuffix); errors.Is(err, os.ErrNotExist) {
		if err := os.WriteFile(r.path+backupSuffix, content, 0o644); err != nil {
			return fmt.Errorf("backup %s: %w", r.path, err)
		}
	}

	var buf bytes.Buffer
	for _, line := range stripNameservers(content) {
		buf.WriteString(line)
		buf.WriteByte('\n')
	}
	buf.WriteString(managedMarker + "\n")
	for _, s := range servers {
		buf.WriteString("nameserver " + s.String() + "\n")
	}
	if err := os.WriteFile(r.path, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", r.path, err)
	}
	return nil
}

func (r *Resolvconf) ClearDNS(ctx context.Context, a Adapter) error {
	backup, err := os.ReadFile(r.path + backupSuffix)
	if err == nil {
		if err := os.WriteFile(r.path, backup, 0o644); err != nil {
			return fmt.Errorf("restore %s: %w", r.path, err)
		}
		return os.Remove(r.path + backupSuffix)
	}
	if !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("read backup: %w", err)
	}

	content, err := os.ReadFile(r.path)
	if err != nil {
		return fmt.Errorf("read %s: %w", r.path, err)
	}
	var buf bytes.Buffer
	for _, line := range stripManaged(content) {
		buf.WriteString(line)
		buf.WriteByte('\n')
	}
	return os.WriteFile(r.path, buf.Bytes(), 0o644)
}

// stripManaged drops our marker and the nameserver lines after it. Nameservers we did not
// write stay.
func stripManaged(content []byte) []string {
	var out []string
	managed := false
	scanner := bufio.NewScanner(bytes.NewReader(content))
	for scanner.Scan() {
		line := scanner.Text()
		trimmed := strings.TrimSpace(line)
		if trimmed == managedMarker {
			managed = true
			continue
		}
		if fields := strings.Fields(trimmed); managed && len(fields) > 0 && fields[0] == "nameserver" {
			continue
		}
		out = append(out, line)
	}
	return out
}

// stripNameservers drops nameserver lines and our marker, keeps everything else.
func stripNameservers(content []byte) []string {
	var out []string
	scanner := bufio.NewScanner(bytes.NewReader(content))
	for scanner.Scan() {
		line := scanner.Text()
		trimmed := strings.TrimSpace(line)
		if trimmed == managedMarker {
			continue
		}
		if fields := strings.Fields(trimmed); len(fields) > 0 && fields[0] == "nameserver" {
			continue
		}
		out = append(out, line)
	}
	return out
}
