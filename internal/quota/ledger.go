// Package quota provides persistent per-category daily action counters with
// date-based rollover. The ledger is a gate, not a cap: callers must check
// CanPerform before acting and Record after acting; Record itself never
// refuses an increment.
package quota

import (
	"errors"
	"time"

	"github.com/aatumaykin/linkpilot/internal/logger"
	"github.com/aatumaykin/linkpilot/internal/metrics"
	"github.com/aatumaykin/linkpilot/internal/store"
)

const documentName = "quota"

// ErrExceeded is returned by gated operations when a daily limit is reached.
var ErrExceeded = errors.New("daily action quota exceeded")

// document is the persisted ledger state.
type document struct {
	Date   string         `json:"date"` // calendar date in the configured timezone
	Counts map[string]int `json:"counts"`
}

// Ledger tracks daily action counts per category. Every access performs a
// lazy rollover: when the stored date differs from the current date in the
// configured timezone, all counts reset to zero in a single operation. The
// check happens on access rather than via a timer, so it is correct even
// after the process was offline across a day boundary.
type Ledger struct {
	store    *store.Store
	logger   *logger.Logger
	location *time.Location
	overall  int            // combined limit across all categories, 0 disables
	limits   map[string]int // per-category limits, absent category is ungated

	doc document

	// now is replaceable in tests.
	now func() time.Time
}

// NewLedger creates a ledger backed by the given store. overall is the
// combined daily limit across all categories (0 disables the combined gate);
// limits holds per-category daily limits.
func NewLedger(st *store.Store, overall int, limits map[string]int, location *time.Location, log *logger.Logger) *Ledger {
	l := &Ledger{
		store:    st,
		logger:   log,
		location: location,
		overall:  overall,
		limits:   limits,
		now:      time.Now,
	}

	l.store.Load(documentName, &l.doc)
	if l.doc.Counts == nil {
		l.doc.Counts = make(map[string]int)
	}
	if l.doc.Date == "" {
		l.doc.Date = l.today()
	}

	return l
}

// CanPerform reports whether another action in the category is allowed today.
// Both the per-category gate and the combined gate (when configured) must
// pass.
func (l *Ledger) CanPerform(category string) bool {
	l.rollover()

	if limit, ok := l.limits[category]; ok && l.doc.Counts[category] >= limit {
		l.logger.Debug("category quota reached",
			logger.Field{Key: "category", Value: category},
			logger.Field{Key: "count", Value: l.doc.Counts[category]},
			logger.Field{Key: "limit", Value: limit})
		return false
	}

	if l.overall > 0 && l.total() >= l.overall {
		l.logger.Debug("overall quota reached",
			logger.Field{Key: "total", Value: l.total()},
			logger.Field{Key: "limit", Value: l.overall})
		return false
	}

	return true
}

// Record increments the category counter and persists the ledger. It does not
// enforce limits; callers gate with CanPerform before acting.
func (l *Ledger) Record(category string) error {
	l.rollover()

	l.doc.Counts[category]++
	metrics.ActionsRecorded.WithLabelValues(category).Inc()

	return l.store.Save(documentName, &l.doc)
}

// Count returns today's count for the category.
func (l *Ledger) Count(category string) int {
	l.rollover()
	return l.doc.Counts[category]
}

// Remaining returns how many more actions the category allows today, never
// below zero. A category gated by neither a per-category limit nor the
// combined limit is unlimited, reported as -1.
func (l *Ledger) Remaining(category string) int {
	l.rollover()

	remaining := -1
	if limit, ok := l.limits[category]; ok {
		remaining = max(limit-l.doc.Counts[category], 0)
	}
	if l.overall > 0 {
		overallLeft := max(l.overall-l.total(), 0)
		if remaining < 0 || overallLeft < remaining {
			remaining = overallLeft
		}
	}
	return remaining
}

// Summary returns today's date and a copy of the per-category counts.
func (l *Ledger) Summary() (string, map[string]int) {
	l.rollover()

	counts := make(map[string]int, len(l.doc.Counts))
	for k, v := range l.doc.Counts {
		counts[k] = v
	}
	return l.doc.Date, counts
}

// rollover resets every counter to zero when the stored date is not today.
// The reset is all-or-nothing: either every category resets in the same
// operation or none does.
func (l *Ledger) rollover() {
	today := l.today()
	if l.doc.Date == today {
		return
	}

	l.logger.Info("new day detected, resetting daily action counters",
		logger.Field{Key: "previous_date", Value: l.doc.Date},
		logger.Field{Key: "date", Value: today})

	l.doc = document{
		Date:   today,
		Counts: make(map[string]int),
	}
	if err := l.store.Save(documentName, &l.doc); err != nil {
		l.logger.Error("failed to persist quota rollover", err)
	}
}

func (l *Ledger) total() int {
	total := 0
	for _, count := range l.doc.Counts {
		total += count
	}
	return total
}

func (l *Ledger) today() string {
	return l.now().In(l.location).Format("2006-01-02")
}
