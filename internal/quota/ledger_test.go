package quota

import (
	"testing"
	"time"

	"github.com/aatumaykin/linkpilot/internal/logger"
	"github.com/aatumaykin/linkpilot/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *store.Store {
	t.Helper()
	log, err := logger.New(logger.Config{Level: "error", Format: "text", Output: "stderr"})
	require.NoError(t, err)
	return store.New(t.TempDir(), log)
}

func newTestLedger(t *testing.T, st *store.Store, overall int, limits map[string]int) *Ledger {
	t.Helper()
	log, err := logger.New(logger.Config{Level: "error", Format: "text", Output: "stderr"})
	require.NoError(t, err)
	return NewLedger(st, overall, limits, time.UTC, log)
}

func TestCategoryLimitBoundary(t *testing.T) {
	ledger := newTestLedger(t, newTestStore(t), 0, map[string]int{"likes": 3})

	for i := 0; i < 2; i++ {
		require.True(t, ledger.CanPerform("likes"))
		require.NoError(t, ledger.Record("likes"))
	}

	// Count is limit-1: one more action allowed.
	assert.True(t, ledger.CanPerform("likes"))
	require.NoError(t, ledger.Record("likes"))

	// Count reached the limit: denied.
	assert.False(t, ledger.CanPerform("likes"))
}

func TestOverallLimitSpansCategories(t *testing.T) {
	ledger := newTestLedger(t, newTestStore(t), 3, map[string]int{
		"likes":    10,
		"comments": 10,
	})

	require.NoError(t, ledger.Record("likes"))
	require.NoError(t, ledger.Record("likes"))
	require.NoError(t, ledger.Record("comments"))

	assert.False(t, ledger.CanPerform("likes"))
	assert.False(t, ledger.CanPerform("comments"))
}

func TestUnconfiguredCategoryIsUngated(t *testing.T) {
	ledger := newTestLedger(t, newTestStore(t), 0, map[string]int{"likes": 1})

	for i := 0; i < 5; i++ {
		assert.True(t, ledger.CanPerform("connections"))
		require.NoError(t, ledger.Record("connections"))
	}
}

func TestRecordDoesNotEnforce(t *testing.T) {
	ledger := newTestLedger(t, newTestStore(t), 0, map[string]int{"likes": 1})

	require.NoError(t, ledger.Record("likes"))
	require.False(t, ledger.CanPerform("likes"))

	// Record is an observation, not a gate.
	assert.NoError(t, ledger.Record("likes"))
	assert.Equal(t, 2, ledger.Count("likes"))
}

func TestRolloverResetsAllCategories(t *testing.T) {
	ledger := newTestLedger(t, newTestStore(t), 0, map[string]int{"likes": 2, "comments": 2})

	day1 := time.Date(2026, 3, 9, 22, 0, 0, 0, time.UTC)
	ledger.now = func() time.Time { return day1 }

	require.NoError(t, ledger.Record("likes"))
	require.NoError(t, ledger.Record("likes"))
	require.NoError(t, ledger.Record("comments"))
	require.False(t, ledger.CanPerform("likes"))

	// Cross midnight: every counter resets in the same operation.
	ledger.now = func() time.Time { return day1.Add(3 * time.Hour) }

	assert.True(t, ledger.CanPerform("likes"))
	assert.Equal(t, 0, ledger.Count("likes"))
	assert.Equal(t, 0, ledger.Count("comments"))

	date, counts := ledger.Summary()
	assert.Equal(t, "2026-03-10", date)
	assert.Empty(t, counts)
}

func TestRolloverUsesConfiguredTimezone(t *testing.T) {
	log, err := logger.New(logger.Config{Level: "error", Format: "text", Output: "stderr"})
	require.NoError(t, err)
	loc := time.FixedZone("UTC+3", 3*60*60)
	ledger := NewLedger(newTestStore(t), 0, map[string]int{"likes": 5}, loc, log)

	// 22:30 UTC is already the next day at UTC+3.
	ledger.now = func() time.Time { return time.Date(2026, 3, 9, 22, 30, 0, 0, time.UTC) }
	require.NoError(t, ledger.Record("likes"))

	date, _ := ledger.Summary()
	assert.Equal(t, "2026-03-10", date)
}

func TestLedgerPersistsAcrossRestarts(t *testing.T) {
	st := newTestStore(t)

	first := newTestLedger(t, st, 0, map[string]int{"likes": 2})
	require.NoError(t, first.Record("likes"))
	require.NoError(t, first.Record("likes"))

	// A fresh ledger over the same store sees the exhausted quota.
	second := newTestLedger(t, st, 0, map[string]int{"likes": 2})
	assert.False(t, second.CanPerform("likes"))
	assert.Equal(t, 2, second.Count("likes"))
}

func TestRemaining(t *testing.T) {
	ledger := newTestLedger(t, newTestStore(t), 4, map[string]int{"likes": 3})

	assert.Equal(t, 3, ledger.Remaining("likes"))

	require.NoError(t, ledger.Record("likes"))
	require.NoError(t, ledger.Record("comments"))
	require.NoError(t, ledger.Record("comments"))

	// Category would allow 2 more but the combined gate allows only 1.
	assert.Equal(t, 1, ledger.Remaining("likes"))

	require.NoError(t, ledger.Record("likes"))
	assert.Equal(t, 0, ledger.Remaining("likes"))
}

func TestRemainingUnlimitedCategory(t *testing.T) {
	ledger := newTestLedger(t, newTestStore(t), 0, map[string]int{"likes": 3})

	// No category limit and no combined limit: unlimited, and the answer
	// agrees with CanPerform.
	assert.Equal(t, -1, ledger.Remaining("connections"))
	assert.True(t, ledger.CanPerform("connections"))

	require.NoError(t, ledger.Record("connections"))
	assert.Equal(t, -1, ledger.Remaining("connections"))
}

func TestRemainingClampsOvershoot(t *testing.T) {
	ledger := newTestLedger(t, newTestStore(t), 0, map[string]int{"likes": 1})

	// Record past the limit; Remaining never goes negative.
	require.NoError(t, ledger.Record("likes"))
	require.NoError(t, ledger.Record("likes"))
	assert.Equal(t, 0, ledger.Remaining("likes"))
}
