package rpc

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/sergds/dnschanger/internal/adapters/dns"
	"github.com/sergds/dnschanger/internal/catalog"
	"github.com/sergds/dnschanger/internal/changer"
	"github.com/sergds/dnschanger/internal/configurator"
	"github.com/sergds/dnschanger/internal/journal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

func TestStatusMapping(t *testing.T) {
	t.Parallel()

	cases := []struct {
		err  error
		code codes.Code
	}{
		{&catalog.ValidationError{Field: "primary", Value: "x", Reason: "not an IPv4 address"}, codes.InvalidArgument},
		{fmt.Errorf("%w: %q", changer.ErrUnknownProfile, "Nope"), codes.NotFound},
		{changer.ErrBusy, codes.FailedPrecondition},
		{&catalog.PersistError{Path: "dns_list.json", Err: errors.New("read-only file system")}, codes.DataLoss},
		{errors.New("boom"), codes.Internal},
	}
	for _, c := range cases {
		st := ToStatus(c.err)
		assert.Equal(t, c.code, status.Code(st), c.err.Error())
		back := FromStatus(st)
		assert.Equal(t, c.err.Error(), status.Convert(st).Message())
		if c.code != codes.Internal {
			assert.Equal(t, c.err.Error(), back.Error())
		}
	}

	assert.ErrorIs(t, FromStatus(ToStatus(changer.ErrBusy)), changer.ErrBusy)
	assert.ErrorIs(t, FromStatus(ToStatus(&catalog.ValidationError{})), catalog.ErrValidation)
	assert.ErrorIs(t, FromStatus(ToStatus(&catalog.PersistError{Err: errors.New("x")})), catalog.ErrPersist)
	assert.NoError(t, ToStatus(nil))
	assert.NoError(t, FromStatus(nil))
}

func TestProfileMessages(t *testing.T) {
	t.Parallel()

	ps := []catalog.Profile{
		{Name: "Google", Addresses: catalog.Pair{"8.8.8.8", "8.8.4.4"}},
		{Name: "Solo", Addresses: catalog.Pair{"9.9.9.9", ""}},
	}
	assert.Equal(t, ps, ProfilesFromStruct(ProfilesStruct(ps)))
	assert.Empty(t, ProfilesFromStruct(ProfilesStruct(nil)))
}

func TestStatusMessage(t *testing.T) {
	t.Parallel()

	when := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	st := changer.Status{
		Backend:  "systemd-resolved",
		Adapters: []dns.Adapter{{ID: "2", Name: "eth0", Index: 2}},
		Active:   "Google",
		Last: &journal.Entry{
			ID: "abc", Op: configurator.OpApply, Profile: "Google",
			Addresses: []string{"8.8.8.8"}, Adapters: []string{"eth0"}, Time: when,
		},
	}
	got := StatusFromStruct(StatusStruct(st))
	require.NotNil(t, got.Last)
	assert.True(t, when.Equal(got.Last.Time))
	got.Last.Time = when
	assert.Equal(t, st, got)
}

func TestStreamMessages(t *testing.T) {
	t.Parallel()

	step, percent, report := StreamMessage(ProgressStruct(67))
	assert.Equal(t, STEP_PROGRESS, step)
	assert.Equal(t, 67, percent)
	assert.Nil(t, report)

	in := &configurator.ApplyReport{
		Op:        configurator.OpClear,
		Addresses: nil,
		Results: []configurator.AdapterResult{
			{Adapter: dns.Adapter{ID: "if0", Name: "eth0"}},
			{Adapter: dns.Adapter{ID: "if1", Name: "eth1"}, Err: errors.New("access denied")},
		},
	}
	step, _, report = StreamMessage(DoneStruct(in))
	assert.Equal(t, STEP_DONE, step)
	require.NotNil(t, report)
	assert.Equal(t, configurator.OpClear, report.Op)
	require.Len(t, report.Failed(), 1)
	assert.Equal(t, "if1", report.Failed()[0].Adapter.ID)
	assert.EqualError(t, report.Failed()[0].Err, "access denied")
	assert.Len(t, report.Succeeded(), 1)
}
