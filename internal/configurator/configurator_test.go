package configurator

import (
	"io"
	"strconv"
	"testing"

	"github.com/sergds/dnschanger/internal/adapters/dns"
	"github.com/sergds/dnschanger/internal/adapters/dns/dnstest"
	"github.com/sergds/dnschanger/internal/catalog"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func quiet() Option {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return WithLogger(l)
}

func TestApplyThreeAdapters(t *testing.T) {
	t.Parallel()

	fake := dnstest.New(3)
	c, err := New(fake, quiet())
	require.NoError(t, err)

	var progress []int
	report, err := c.Apply([]string{"8.8.8.8", "8.8.4.4"}, func(p int) { progress = append(progress, p) })
	require.NoError(t, err)

	assert.Equal(t, []int{34, 67, 100}, progress)
	require.Len(t, fake.Calls(), 3)
	for i, cl := range fake.Calls() {
		assert.Equal(t, "if"+strconv.Itoa(i), cl.Adapter)
		assert.Equal(t, []string{"8.8.8.8", "8.8.4.4"}, cl.Servers)
	}
	assert.NoError(t, report.Err())
	assert.Len(t, report.Succeeded(), 3)
	assert.Equal(t, OpApply, report.Op)
}

func TestClearThreeAdapters(t *testing.T) {
	t.Parallel()

	fake := dnstest.New(3)
	c, err := New(fake, quiet())
	require.NoError(t, err)

	var progress []int
	report, err := c.Clear(func(p int) { progress = append(progress, p) })
	require.NoError(t, err)
	require.Len(t, fake.Calls(), 3)
	for i, cl := range fake.Calls() {
		assert.True(t, cl.Clear)
		assert.Nil(t, cl.Servers)
		assert.Equal(t, "if"+strconv.Itoa(i), cl.Adapter)
	}
	assert.Equal(t, []int{34, 67, 100}, progress)
	assert.Equal(t, OpClear, report.Op)
}

func TestApplyBestEffort(t *testing.T) {
	t.Parallel()

	fake := dnstest.New(3)
	fake.FailOn["if1"] = true
	c, err := New(fake, quiet())
	require.NoError(t, err)

	var progress []int
	report, err := c.Apply([]string{"1.1.1.1", ""}, func(p int) { progress = append(progress, p) })
	require.NoError(t, err)

	assert.Len(t, fake.Calls(), 3, "a failing adapter does not stop the others")
	assert.Equal(t, []int{34, 67, 100}, progress)
	failed := report.Failed()
	require.Len(t, failed, 1)
	assert.Equal(t, "if1", failed[0].Adapter.ID)
	assert.ErrorContains(t, report.Err(), "eth1: access denied")
	assert.Equal(t, []string{"1.1.1.1"}, fake.Calls()[0].Servers)
}

func TestApplyValidation(t *testing.T) {
	t.Parallel()

	fake := dnstest.New(2)
	c, err := New(fake, quiet())
	require.NoError(t, err)

	_, err = c.Apply([]string{"999.1.1.1", "1.1.1.1"}, nil)
	assert.ErrorIs(t, err, catalog.ErrValidation)
	_, err = c.Apply([]string{"", ""}, nil)
	assert.ErrorIs(t, err, catalog.ErrValidation)
	assert.Empty(t, fake.Calls())

	// Leading zeros are accepted and normalised before reaching the host.
	_, err = c.Apply([]string{"008.008.008.008"}, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"8.8.8.8"}, fake.Calls()[0].Servers)
}

func TestSnapshotEnumeration(t *testing.T) {
	t.Parallel()

	fake := dnstest.New(2)
	c, err := New(fake, quiet())
	require.NoError(t, err)
	fake.AddAdapter(dns.Adapter{ID: "hotplug"})

	_, err = c.Clear(nil)
	require.NoError(t, err)
	assert.Equal(t, 1, fake.Listed())
	assert.Len(t, fake.Calls(), 2)
	assert.Len(t, c.Adapters(), 2)
}

func TestNoAdapters(t *testing.T) {
	t.Parallel()

	c, err := New(dnstest.New(0), quiet())
	require.NoError(t, err)
	called := false
	report, err := c.Apply([]string{"8.8.8.8"}, func(int) { called = true })
	require.NoError(t, err)
	assert.False(t, called)
	assert.Empty(t, report.Results)
	assert.NoError(t, report.Err())
}

func TestPercent(t *testing.T) {
	t.Parallel()

	assert.Equal(t, 100, Percent(0, 1))
	assert.Equal(t, 50, Percent(0, 2))
	assert.Equal(t, 15, Percent(0, 7))
	assert.Equal(t, 100, Percent(6, 7))
}
