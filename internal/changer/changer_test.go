package changer

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/sergds/dnschanger/internal/adapters/dns/dnstest"
	"github.com/sergds/dnschanger/internal/catalog"
	"github.com/sergds/dnschanger/internal/configurator"
	"github.com/sergds/dnschanger/internal/journal"
	"github.com/sergds/dnschanger/internal/probe"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestChanger(t *testing.T, adapters int) (*Changer, *dnstest.Fake) {
	t.Helper()
	log := logrus.New()
	log.SetOutput(io.Discard)

	dir := t.TempDir()
	store := catalog.Open(filepath.Join(dir, "dns_list.json"), log)
	fake := dnstest.New(adapters)
	conf, err := configurator.New(fake, configurator.WithLogger(log))
	require.NoError(t, err)
	j, err := journal.Open(filepath.Join(dir, "journal.db"))
	require.NoError(t, err)
	t.Cleanup(func() { j.Close() })
	return New(store, conf, j, log), fake
}

func TestApplyProfile(t *testing.T) {
	t.Parallel()

	c, fake := newTestChanger(t, 3)
	var progress []int
	report, err := c.ApplyProfile("Google", func(p int) { progress = append(progress, p) })
	require.NoError(t, err)
	assert.NoError(t, report.Err())
	assert.Equal(t, []int{34, 67, 100}, progress)
	for _, call := range fake.Calls() {
		assert.Equal(t, []string{"8.8.8.8", "8.8.4.4"}, call.Servers)
	}

	st, err := c.Status()
	require.NoError(t, err)
	assert.Equal(t, "Google", st.Active)
	assert.Equal(t, "fake", st.Backend)
	require.NotNil(t, st.Last)
	assert.Equal(t, []string{"eth0", "eth1", "eth2"}, st.Last.Adapters)
}

func TestApplyUnknownProfile(t *testing.T) {
	t.Parallel()

	c, fake := newTestChanger(t, 2)
	_, err := c.ApplyProfile("Nope", nil)
	assert.ErrorIs(t, err, ErrUnknownProfile)
	assert.Empty(t, fake.Calls())
}

func TestApplyInvalidStoredAddress(t *testing.T) {
	t.Parallel()

	c, fake := newTestChanger(t, 1)
	// Hand-edited file content is not validated on load, so catch it before the host sees it.
	require.NoError(t, os.WriteFile(c.store.Path(), []byte(`{"Odd": ["1.2.3"]}`), 0o644))
	c.store.Load()
	_, err := c.ApplyProfile("Odd", nil)
	assert.ErrorIs(t, err, catalog.ErrValidation)
	assert.Empty(t, fake.Calls())
}

func TestClearAllAndHistory(t *testing.T) {
	t.Parallel()

	c, fake := newTestChanger(t, 2)
	fake.FailOn["if0"] = true
	_, err := c.ApplyProfile("Cloudflare", nil)
	require.NoError(t, err)

	report, err := c.ClearAll(nil)
	require.NoError(t, err)
	assert.Len(t, report.Failed(), 1)

	history, err := c.History(0)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, configurator.OpClear, history[0].Op)
	assert.Equal(t, []string{"eth0"}, history[0].Failed)
	assert.Equal(t, "Cloudflare", history[1].Profile)

	st, err := c.Status()
	require.NoError(t, err)
	assert.Equal(t, "", st.Active)
}

func TestBusy(t *testing.T) {
	t.Parallel()

	c, _ := newTestChanger(t, 1)
	var nested error
	_, err := c.ApplyProfile("Google", func(int) {
		_, nested = c.ClearAll(nil)
	})
	require.NoError(t, err)
	assert.ErrorIs(t, nested, ErrBusy)
}

func TestAddRemoveExportImport(t *testing.T) {
	t.Parallel()

	c, _ := newTestChanger(t, 1)
	require.NoError(t, c.AddProfile("Quad9", "9.9.9.9", "149.112.112.112"))
	assert.ErrorIs(t, c.AddProfile("Bad", "999.1.1.1", "1.1.1.1"), catalog.ErrValidation)

	ok, err := c.RemoveProfile("Google")
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = c.RemoveProfile("Google")
	require.NoError(t, err)
	assert.False(t, ok)

	var buf bytes.Buffer
	require.NoError(t, c.Export(&buf))
	assert.Contains(t, buf.String(), "Quad9")

	n, err := c.Import(bytes.NewBufferString("- name: Google\n  primary: 8.8.8.8\n  secondary: 8.8.4.4\n"), false)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	profiles := c.ListProfiles()
	assert.Equal(t, "Google", profiles[len(profiles)-1].Name)
}

func TestProbeUnknown(t *testing.T) {
	t.Parallel()

	c, _ := newTestChanger(t, 1)
	_, err := c.Probe(context.Background(), []string{"Nope"}, probe.Options{})
	assert.ErrorIs(t, err, ErrUnknownProfile)
}
