package journal

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTemp(t *testing.T) *Journal {
	t.Helper()
	j, err := Open(filepath.Join(t.TempDir(), "journal.db"))
	require.NoError(t, err)
	t.Cleanup(func() { j.Close() })
	return j
}

func TestRecordAndRecent(t *testing.T) {
	t.Parallel()

	j := openTemp(t)
	active, err := j.Active()
	require.NoError(t, err)
	assert.Equal(t, "", active)

	first, err := j.Record(Entry{Op: "apply", Profile: "Google", Addresses: []string{"8.8.8.8", "8.8.4.4"}, Adapters: []string{"eth0"}})
	require.NoError(t, err)
	assert.NotEmpty(t, first.ID)
	assert.False(t, first.Time.IsZero())

	_, err = j.Record(Entry{Op: "apply", Profile: "Cloudflare", Adapters: []string{"eth0", "wlan0"}})
	require.NoError(t, err)

	active, err = j.Active()
	require.NoError(t, err)
	assert.Equal(t, "Cloudflare", active)

	entries, err := j.Recent(0)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "Cloudflare", entries[0].Profile)
	assert.Equal(t, "Google", entries[1].Profile)
	assert.Equal(t, []string{"8.8.8.8", "8.8.4.4"}, entries[1].Addresses)

	entries, err = j.Recent(1)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestActiveTracksFailuresAndClear(t *testing.T) {
	t.Parallel()

	j := openTemp(t)
	_, err := j.Record(Entry{Op: "apply", Profile: "Google"})
	require.NoError(t, err)

	_, err = j.Record(Entry{Op: "apply", Profile: "Shekan", Failed: []string{"wlan0"}})
	require.NoError(t, err)
	active, err := j.Active()
	require.NoError(t, err)
	assert.Equal(t, "Google", active, "partial apply does not move the marker")

	_, err = j.Record(Entry{Op: "clear", Time: time.Now()})
	require.NoError(t, err)
	active, err = j.Active()
	require.NoError(t, err)
	assert.Equal(t, "", active)
}

func TestReopen(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "journal.db")
	j, err := Open(path)
	require.NoError(t, err)
	_, err = j.Record(Entry{Op: "apply", Profile: "Google"})
	require.NoError(t, err)
	require.NoError(t, j.Close())

	j, err = Open(path)
	require.NoError(t, err)
	defer j.Close()
	entries, err := j.Recent(10)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}
