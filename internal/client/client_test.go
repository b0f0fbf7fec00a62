package client

import (
	"context"
	"io"
	"net"
	"path/filepath"
	"testing"

	"github.com/sergds/dnschanger/internal/adapters/dns/dnstest"
	"github.com/sergds/dnschanger/internal/catalog"
	"github.com/sergds/dnschanger/internal/changer"
	"github.com/sergds/dnschanger/internal/configurator"
	"github.com/sergds/dnschanger/internal/server"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/test/bufconn"
)

func connect(t *testing.T, adapters int) (*Client, *dnstest.Fake) {
	t.Helper()
	log := logrus.New()
	log.SetOutput(io.Discard)

	store := catalog.Open(filepath.Join(t.TempDir(), "dns_list.json"), log)
	fake := dnstest.New(adapters)
	conf, err := configurator.New(fake, configurator.WithLogger(log))
	require.NoError(t, err)

	lis := bufconn.Listen(1 << 20)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- server.Run(ctx, changer.New(store, conf, nil, log), server.Options{Listener: lis, Log: log})
	}()

	c, err := Dial("passthrough:///bufnet", grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
		return lis.DialContext(ctx)
	}))
	require.NoError(t, err)
	t.Cleanup(func() {
		c.Close()
		cancel()
		<-done
	})
	return c, fake
}

func TestRemoteRoundTrip(t *testing.T) {
	c, fake := connect(t, 3)

	require.NoError(t, c.AddProfile("Quad9", "9.9.9.9", ""))
	profiles, err := c.ListProfiles()
	require.NoError(t, err)
	last := profiles[len(profiles)-1]
	assert.Equal(t, "Quad9", last.Name)
	assert.Equal(t, catalog.Pair{"9.9.9.9", ""}, last.Addresses)

	var progress []int
	report, err := c.ApplyProfile("Quad9", func(p int) { progress = append(progress, p) })
	require.NoError(t, err)
	assert.Equal(t, []int{34, 67, 100}, progress)
	assert.NoError(t, report.Err())
	require.Len(t, fake.Calls(), 3)
	assert.Equal(t, []string{"9.9.9.9"}, fake.Calls()[0].Servers)

	report, err = c.ClearAll(nil)
	require.NoError(t, err)
	assert.Equal(t, configurator.OpClear, report.Op)

	backend, adapters, err := c.Adapters()
	require.NoError(t, err)
	assert.Equal(t, "fake", backend)
	assert.Len(t, adapters, 3)
}

func TestRemoteErrorsMatchSentinels(t *testing.T) {
	c, _ := connect(t, 1)

	err := c.AddProfile("Bad", "1.2.3", "")
	assert.ErrorIs(t, err, catalog.ErrValidation)

	_, err = c.ApplyProfile("Nope", nil)
	assert.ErrorIs(t, err, changer.ErrUnknownProfile)

	removed, err := c.RemoveProfile("Nope")
	require.NoError(t, err)
	assert.False(t, removed)
}

func TestRemoteFailedAdapterInReport(t *testing.T) {
	c, fake := connect(t, 2)
	fake.FailOn["if0"] = true

	report, err := c.ApplyProfile("Google", nil)
	require.NoError(t, err)
	require.Len(t, report.Failed(), 1)
	assert.ErrorContains(t, report.Err(), "access denied")
	assert.Len(t, report.Succeeded(), 1)
}
