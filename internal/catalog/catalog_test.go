package catalog

import (
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func quietLog() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func tempCatalog(t *testing.T) string {
	t.Helper()
	return filepath.Join(t.TempDir(), "dns_list.json")
}

func TestLoadMissingSeedsDefaults(t *testing.T) {
	t.Parallel()

	path := tempCatalog(t)
	s := Open(path, quietLog())
	assert.Equal(t, Defaults(), s.Profiles())

	_, err := os.Stat(path)
	require.NoError(t, err, "defaults should be persisted")

	again := Open(path, quietLog())
	assert.Equal(t, s.Profiles(), again.Profiles())
}

func TestLoadNotAnObject(t *testing.T) {
	t.Parallel()

	for _, content := range []string{
		`["8.8.8.8", "8.8.4.4"]`,
		`"not an object"`,
		`42`,
		`{"Google": "8.8.8.8"}`,
		`{"Google": []}`,
		`{"Google": ["1.1.1.1", "1.0.0.1", "9.9.9.9"]}`,
		`{"Google": ["1.1.1.1", 7]}`,
		`{broken`,
		`{"Mine": ["9.9.9.9", ""]`,
		`{"Mine": ["9.9.9.9", ""]} garbage`,
		`{"Mine": ["9.9.9.9", ""]}{"x": 1}`,
		``,
	} {
		path := tempCatalog(t)
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

		s := Open(path, quietLog())
		assert.Equal(t, Defaults(), s.Profiles(), "content %q", content)

		again := Open(path, quietLog())
		assert.Equal(t, Defaults(), again.Profiles(), "content %q", content)
	}
}

func TestLoadToleratesMissingSecondary(t *testing.T) {
	t.Parallel()

	path := tempCatalog(t)
	require.NoError(t, os.WriteFile(path, []byte(`{"Solo": ["9.9.9.9"], "Empty": {}}`), 0o644))
	s := Open(path, quietLog())
	// "Empty" is not an array, so the whole file is discarded.
	assert.Equal(t, Defaults(), s.Profiles())

	require.NoError(t, os.WriteFile(path, []byte(`{"Solo": ["9.9.9.9"]}`), 0o644))
	s = Open(path, quietLog())
	p, ok := s.Get("Solo")
	require.True(t, ok)
	assert.Equal(t, Pair{"9.9.9.9", ""}, p.Addresses)
}

func TestLoadKeepsFileOrder(t *testing.T) {
	t.Parallel()

	path := tempCatalog(t)
	content := `{"Zeta": ["1.1.1.1", "1.0.0.1"], "Alpha": ["8.8.8.8", "8.8.4.4"], "Mid": ["9.9.9.9", ""]}`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	s := Open(path, quietLog())
	var names []string
	for _, p := range s.Profiles() {
		names = append(names, p.Name)
	}
	assert.Equal(t, []string{"Zeta", "Alpha", "Mid"}, names)
}

func TestAddPersists(t *testing.T) {
	t.Parallel()

	path := tempCatalog(t)
	s := Open(path, quietLog())
	require.NoError(t, s.Add("Test", "1.2.3.4", "5.6.7.8"))

	fresh := Open(path, quietLog())
	p, ok := fresh.Get("Test")
	require.True(t, ok)
	assert.Equal(t, Pair{"1.2.3.4", "5.6.7.8"}, p.Addresses)
	assert.Equal(t, len(Defaults())+1, fresh.Len())
	assert.Equal(t, "Test", fresh.Profiles()[fresh.Len()-1].Name)
}

func TestAddInvalid(t *testing.T) {
	t.Parallel()

	path := tempCatalog(t)
	s := Open(path, quietLog())
	before, err := os.ReadFile(path)
	require.NoError(t, err)

	err = s.Add("Bad", "999.1.1.1", "1.1.1.1")
	require.ErrorIs(t, err, ErrValidation)
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "primary", verr.Field)
	assert.Equal(t, len(Defaults()), s.Len())

	assert.ErrorIs(t, s.Add("", "1.1.1.1", ""), ErrValidation)
	assert.ErrorIs(t, s.Add("X", "", ""), ErrValidation)
	assert.ErrorIs(t, s.Add("X", "1.1.1.1", "1.1.1"), ErrValidation)

	after, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, before, after)
}

func TestAddOverwriteKeepsPosition(t *testing.T) {
	t.Parallel()

	s := Open(tempCatalog(t), quietLog())
	require.NoError(t, s.Add("Cloudflare", "1.1.1.2", ""))
	profiles := s.Profiles()
	assert.Equal(t, "Cloudflare", profiles[1].Name)
	assert.Equal(t, Pair{"1.1.1.2", ""}, profiles[1].Addresses)
	assert.Equal(t, len(Defaults()), s.Len())
}

func TestRemove(t *testing.T) {
	t.Parallel()

	path := tempCatalog(t)
	s := Open(path, quietLog())
	before, err := os.ReadFile(path)
	require.NoError(t, err)

	ok, err := s.Remove("NonExistent")
	require.NoError(t, err)
	assert.False(t, ok)
	after, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, before, after)

	ok, err = s.Remove("Google")
	require.NoError(t, err)
	assert.True(t, ok)
	_, found := Open(path, quietLog()).Get("Google")
	assert.False(t, found)
}

func TestNamesAreTrimmed(t *testing.T) {
	t.Parallel()

	s := Open(tempCatalog(t), quietLog())
	require.NoError(t, s.Add(" Quad9 ", "9.9.9.9", ""))
	p, ok := s.Get(" Quad9 ")
	require.True(t, ok)
	assert.Equal(t, "Quad9", p.Name)

	removed, err := s.Remove("  Quad9")
	require.NoError(t, err)
	assert.True(t, removed)
	_, ok = s.Get("Quad9")
	assert.False(t, ok)
}

func TestPersistFailureRollsBack(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	blocker := filepath.Join(dir, "blocker")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0o644))
	path := filepath.Join(blocker, "dns_list.json")

	s := Open(path, quietLog())
	require.Equal(t, len(Defaults()), s.Len(), "defaults are kept in memory even when they cannot be written")

	err := s.Add("New", "1.2.3.4", "")
	require.ErrorIs(t, err, ErrPersist)
	_, ok := s.Get("New")
	assert.False(t, ok)

	removed, err := s.Remove("Google")
	require.ErrorIs(t, err, ErrPersist)
	assert.False(t, removed)
	assert.Equal(t, Defaults(), s.Profiles())
}

func TestExportImport(t *testing.T) {
	t.Parallel()

	src := Open(tempCatalog(t), quietLog())
	var buf strings.Builder
	require.NoError(t, src.ExportYAML(&buf))
	assert.Contains(t, buf.String(), "name: Radar Games")

	dst := Open(tempCatalog(t), quietLog())
	_, err := dst.Remove("Google")
	require.NoError(t, err)
	n, err := dst.ImportYAML(strings.NewReader(buf.String()), false)
	require.NoError(t, err)
	assert.Equal(t, len(Defaults()), n)
	assert.Equal(t, len(Defaults()), dst.Len())

	n, err = dst.ImportYAML(strings.NewReader("- name: Quad9\n  primary: 9.9.9.9\n"), true)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, []Profile{{Name: "Quad9", Addresses: Pair{"9.9.9.9", ""}}}, dst.Profiles())
}

func TestImportAllOrNothing(t *testing.T) {
	t.Parallel()

	s := Open(tempCatalog(t), quietLog())
	in := "- name: Good\n  primary: 9.9.9.9\n- name: Bad\n  primary: 300.0.0.1\n"
	_, err := s.ImportYAML(strings.NewReader(in), false)
	require.ErrorIs(t, err, ErrValidation)
	_, ok := s.Get("Good")
	assert.False(t, ok)
	assert.Equal(t, Defaults(), s.Profiles())
}
