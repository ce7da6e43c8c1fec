package usage_test

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"etsy-edge/usage"
)

func newTracker() *usage.Tracker {
	return usage.NewTracker(usage.NewMemoryStore(), usage.DefaultLimits())
}

func at(year int, month time.Month) time.Time {
	return time.Date(year, month, 15, 12, 0, 0, 0, time.UTC)
}

func TestPeriodKeyIsUTC(t *testing.T) {
	// 23:30 on Jan 31 in UTC+10 is already February locally; the key must
	// stay on the UTC month.
	loc := time.FixedZone("UTC+10", 10*3600)
	now := time.Date(2025, 2, 1, 9, 30, 0, 0, loc)
	assert.Equal(t, "2025-01", usage.PeriodKey(now))
}

func TestCheckIsIdempotent(t *testing.T) {
	tr := newTracker()
	ctx := context.Background()
	now := at(2025, time.January)

	for i := 0; i < 10; i++ {
		d, err := tr.Check(ctx, "install-1", usage.TierFree, now)
		require.NoError(t, err)
		assert.Zero(t, d.Used)
		assert.True(t, d.Allowed)
	}
}

func TestFreeInstallPeriodAllotment(t *testing.T) {
	tr := newTracker()
	ctx := context.Background()
	now := at(2025, time.January)

	// FREE_INITIAL=3 during the install month.
	for i := 0; i < 3; i++ {
		d, err := tr.Check(ctx, "install-1", usage.TierFree, now)
		require.NoError(t, err)
		assert.True(t, d.Allowed, "audit %d", i)
		assert.Equal(t, i, d.Used)
		assert.Equal(t, 3, d.Limit)
		require.NoError(t, tr.Record(ctx, "install-1", usage.TierFree, now))
	}

	d, err := tr.Check(ctx, "install-1", usage.TierFree, now)
	require.NoError(t, err)
	assert.False(t, d.Allowed)
	assert.Equal(t, 3, d.Used)
	assert.Equal(t, 3, d.Limit)
}

func TestFreeSteadyStateAfterInstallMonth(t *testing.T) {
	tr := newTracker()
	ctx := context.Background()
	install := at(2025, time.January)
	later := at(2025, time.March)

	// Exhaust the install allotment in January.
	for i := 0; i < 3; i++ {
		require.NoError(t, tr.Record(ctx, "install-1", usage.TierFree, install))
	}

	// March reverts to the monthly allotment, freshly rolled over.
	d, err := tr.Check(ctx, "install-1", usage.TierFree, later)
	require.NoError(t, err)
	assert.True(t, d.Allowed)
	assert.Zero(t, d.Used)
	assert.Equal(t, 5, d.Limit)
}

func TestLazyRolloverResetsMonthlyCount(t *testing.T) {
	tr := newTracker()
	ctx := context.Background()
	feb := at(2025, time.February)
	mar := at(2025, time.March)

	for i := 0; i < 5; i++ {
		require.NoError(t, tr.Record(ctx, "install-1", usage.TierFree, feb))
	}
	d, err := tr.Check(ctx, "install-1", usage.TierFree, mar)
	require.NoError(t, err)
	// Install month was February, so March reads the monthly counter, which
	// rolls over to zero without any Record call.
	assert.Zero(t, d.Used)
	assert.True(t, d.Allowed)
}

func TestLifetimeFreeCounterNeverResets(t *testing.T) {
	tr := newTracker()
	ctx := context.Background()
	install := at(2025, time.January)

	require.NoError(t, tr.Record(ctx, "install-1", usage.TierFree, install))
	require.NoError(t, tr.Record(ctx, "install-1", usage.TierFree, install))

	// Checking months later and recording again must not restore install
	// allotment when the user returns to January... which cannot happen with
	// a monotonic clock; instead assert the install-month view still reads
	// the lifetime counter.
	d, err := tr.Check(ctx, "install-1", usage.TierFree, install)
	require.NoError(t, err)
	assert.Equal(t, 2, d.Used)
	assert.Equal(t, 3, d.Limit)
}

func TestRecordIncrementsByExactlyOne(t *testing.T) {
	tr := newTracker()
	ctx := context.Background()
	now := at(2025, time.June)

	prev := 0
	for i := 0; i < 4; i++ {
		require.NoError(t, tr.Record(ctx, "install-9", usage.TierPaid, now))
		d, err := tr.Check(ctx, "install-9", usage.TierPaid, now)
		require.NoError(t, err)
		assert.Equal(t, prev+1, d.Used)
		prev = d.Used

		// Interleaved checks never move the counter.
		for j := 0; j < 3; j++ {
			again, err := tr.Check(ctx, "install-9", usage.TierPaid, now)
			require.NoError(t, err)
			assert.Equal(t, prev, again.Used)
		}
	}
}

func TestPaidWarningsEscalate(t *testing.T) {
	limits := usage.Limits{
		FreeInitial:    3,
		FreeMonthly:    5,
		PaidMonthlyCap: 40,
		WarningSteps: []usage.WarningStep{
			{Fraction: 0.5, Message: "busy month"},
			{Fraction: 0.75, Message: "well into allowance"},
			{Fraction: 0.95, Message: "almost at cap: %d of %d used", RevealsLimit: true},
		},
	}
	store := usage.NewMemoryStore()
	tr := usage.NewTracker(store, limits)
	ctx := context.Background()
	now := at(2025, time.May)

	record := func(n int) {
		for i := 0; i < n; i++ {
			require.NoError(t, tr.Record(ctx, "p1", usage.TierPaid, now))
		}
	}
	check := func() usage.Decision {
		d, err := tr.Check(ctx, "p1", usage.TierPaid, now)
		require.NoError(t, err)
		return d
	}

	record(10) // 10/40, below every step
	assert.Empty(t, check().Warning)

	record(10) // 20/40 crosses 0.5
	d := check()
	assert.Equal(t, "busy month", d.Warning)
	assert.NotContains(t, d.Warning, "40", "early warnings must not reveal the cap")
	assert.False(t, d.ShowPersistentCounter)

	record(10) // 30/40 crosses 0.75
	assert.Equal(t, "well into allowance", check().Warning)

	record(8) // 38/40 crosses 0.95
	d = check()
	assert.Equal(t, fmt.Sprintf("almost at cap: %d of %d used", 38, 40), d.Warning)
	assert.True(t, d.ShowPersistentCounter)

	record(2) // 40/40: cap reached
	d = check()
	assert.False(t, d.Allowed)
	assert.Equal(t, 40, d.Used)
	assert.Equal(t, 40, d.Limit)
}

func TestPaidWarningsAreMonotone(t *testing.T) {
	limits := usage.DefaultLimits()
	tr := usage.NewTracker(usage.NewMemoryStore(), limits)
	ctx := context.Background()
	now := at(2025, time.July)

	// Map a warning back to its step by the text before any format verb.
	stepOf := func(warning string) int {
		if warning == "" {
			return -1
		}
		for i, step := range limits.WarningSteps {
			prefix := strings.Split(step.Message, "%d")[0]
			if strings.HasPrefix(warning, prefix) {
				return i
			}
		}
		t.Fatalf("warning %q matches no configured step", warning)
		return -1
	}

	prev := -1
	for i := 0; i < limits.PaidMonthlyCap; i++ {
		require.NoError(t, tr.Record(ctx, "p2", usage.TierPaid, now))
		d, err := tr.Check(ctx, "p2", usage.TierPaid, now)
		require.NoError(t, err)
		cur := stepOf(d.Warning)
		assert.GreaterOrEqual(t, cur, prev, "warning step regressed at count %d", i+1)
		prev = cur
	}
	// The full cap walks through every step.
	assert.Equal(t, len(limits.WarningSteps)-1, prev)
}

func TestExhaustedDecisionStillWellFormed(t *testing.T) {
	tr := newTracker()
	ctx := context.Background()
	now := at(2025, time.January)

	for i := 0; i < 3; i++ {
		require.NoError(t, tr.Record(ctx, "f1", usage.TierFree, now))
	}
	d, err := tr.Check(ctx, "f1", usage.TierFree, now)
	require.NoError(t, err)
	assert.False(t, d.Allowed)
	assert.Equal(t, 3, d.Used)
	assert.Equal(t, 3, d.Limit)
	assert.True(t, d.ShowPersistentCounter)
}
