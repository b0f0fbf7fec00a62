package dns

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDNSAdapter(t *testing.T) {
	t.Parallel()

	a, err := NewDNSAdapter("NULL")
	require.NoError(t, err)
	assert.Equal(t, BackendNull, a.Name())
	adapters, err := a.ListAdapters(context.Background())
	require.NoError(t, err)
	assert.Len(t, adapters, 1)

	_, err = NewDNSAdapter("piholeapi")
	assert.ErrorContains(t, err, "unknown dns backend")

	assert.Contains(t, Backends(), BackendResolvconf)
	assert.Contains(t, Backends(), detectDefaultName(t))
}

func detectDefaultName(t *testing.T) string {
	t.Helper()
	return detectDefault()
}
