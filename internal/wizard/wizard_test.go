package wizard

import (
	"context"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aatumaykin/linkpilot/internal/auth"
	"github.com/aatumaykin/linkpilot/internal/browser"
	"github.com/aatumaykin/linkpilot/internal/content"
	"github.com/aatumaykin/linkpilot/internal/history"
	"github.com/aatumaykin/linkpilot/internal/logger"
	"github.com/aatumaykin/linkpilot/internal/quota"
)

const jobURL = "https://www.example-platform.com/jobs/view/123"

func testTarget() Target {
	return Target{
		ID:      "job-123",
		Title:   "Backend Engineer",
		Company: "Acme",
		URL:     jobURL,
	}
}

type stubAuthenticator struct {
	result auth.AuthResult
	err    error
	calls  int
}

func (s *stubAuthenticator) Authenticate(ctx context.Context, session browser.Session) (auth.AuthResult, error) {
	s.calls++
	return s.result, s.err
}

type stubQuota struct {
	allowed  bool
	recorded []string
}

func (s *stubQuota) CanPerform(category string) bool { return s.allowed }

func (s *stubQuota) Record(category string) error {
	s.recorded = append(s.recorded, category)
	return nil
}

type stubRecorder struct {
	attempted map[string]bool
	records   []history.ApplicationRecord
}

func (s *stubRecorder) Attempted(jobID string) bool { return s.attempted[jobID] }

func (s *stubRecorder) Record(record history.ApplicationRecord) (history.ApplicationRecord, error) {
	s.records = append(s.records, record)
	s.attempted[record.JobID] = true
	return record, nil
}

type fixture struct {
	wizard        *Wizard
	authenticator *stubAuthenticator
	quota         *stubQuota
	recorder      *stubRecorder
	session       *browser.FakeSession
}

func newFixture(t *testing.T, cfg Config) *fixture {
	t.Helper()

	log, err := logger.New(logger.Config{Level: "error", Format: "text", Output: "stderr"})
	require.NoError(t, err)

	rules, err := DefaultRules(Defaults{})
	require.NoError(t, err)

	f := &fixture{
		authenticator: &stubAuthenticator{result: auth.AuthResult{Success: true, Method: auth.MethodSessionCookies}},
		quota:         &stubQuota{allowed: true},
		recorder:      &stubRecorder{attempted: map[string]bool{}},
		session:       browser.NewFakeSession(),
	}
	f.wizard = New(cfg, rules, f.authenticator, f.quota, f.recorder, content.NewStaticGenerator(""), nil, log)
	return f
}

// scriptSuccessfulFlow registers a job page whose entry control opens a
// two-screen flow: a question screen with a next control, then a submit
// screen whose submit click reveals the confirmation element.
func scriptSuccessfulFlow(f *fixture) (entry *browser.FakeElement) {
	session := f.session

	experience := browser.NewFakeElement(map[string]string{"aria-label": "Years of experience"})

	submit := browser.NewFakeElement(nil)
	submit.OnClick = func() {
		session.Pages[jobURL] = &browser.FakePage{Elements: map[string][]*browser.FakeElement{
			".jobs-easy-apply-confirmation": {browser.NewFakeElement(nil)},
		}}
	}

	next := browser.NewFakeElement(nil)
	next.OnClick = func() {
		session.AddPage(jobURL, &browser.FakePage{Elements: map[string][]*browser.FakeElement{
			`button[aria-label="Submit application"]`: {submit},
		}})
	}

	entry = browser.NewFakeElement(nil)
	entry.OnClick = func() {
		session.AddPage(jobURL, &browser.FakePage{Elements: map[string][]*browser.FakeElement{
			`input[type="text"]`:            {experience},
			`button[aria-label*="next"]`:    {next},
		}})
	}

	session.AddPage(jobURL, &browser.FakePage{Elements: map[string][]*browser.FakeElement{
		"button.jobs-apply-button": {entry},
	}})
	return entry
}

func TestApplySubmitsThroughMultiStepFlow(t *testing.T) {
	f := newFixture(t, Config{MaxSteps: 5})
	scriptSuccessfulFlow(f)

	result, err := f.wizard.Apply(context.Background(), f.session, testTarget())
	require.NoError(t, err)

	assert.Equal(t, history.OutcomeApplied, result.Outcome)
	assert.True(t, result.Submitted)
	assert.Contains(t, result.Steps, "submission confirmed")

	require.Len(t, f.recorder.records, 1)
	record := f.recorder.records[0]
	assert.Equal(t, "job-123", record.JobID)
	assert.Equal(t, history.OutcomeApplied, record.Outcome)
	assert.NotEmpty(t, record.Steps)

	assert.Equal(t, []string{QuotaCategory}, f.quota.recorded)
}

func TestApplyFillsHeuristicAnswers(t *testing.T) {
	f := newFixture(t, Config{MaxSteps: 5})

	session := f.session
	experience := browser.NewFakeElement(map[string]string{"aria-label": "Years of experience"})
	salary := browser.NewFakeElement(map[string]string{"placeholder": "Expected salary"})

	submit := browser.NewFakeElement(nil)
	submit.OnClick = func() {
		session.Pages[jobURL] = &browser.FakePage{Elements: map[string][]*browser.FakeElement{
			".jobs-easy-apply-confirmation": {browser.NewFakeElement(nil)},
		}}
	}

	entry := browser.NewFakeElement(nil)
	entry.OnClick = func() {
		session.AddPage(jobURL, &browser.FakePage{Elements: map[string][]*browser.FakeElement{
			`input[type="text"]`:                     {experience, salary},
			`button[aria-label="Submit application"]`: {submit},
		}})
	}

	session.AddPage(jobURL, &browser.FakePage{Elements: map[string][]*browser.FakeElement{
		"button.jobs-apply-button": {entry},
	}})

	result, err := f.wizard.Apply(context.Background(), f.session, testTarget())
	require.NoError(t, err)
	require.Equal(t, history.OutcomeApplied, result.Outcome)

	assert.Equal(t, []string{"2"}, experience.FillCalls)
	assert.Equal(t, []string{"Negotiable"}, salary.FillCalls)
}

func TestApplyDuplicateRejectedBeforeAnySideEffect(t *testing.T) {
	f := newFixture(t, Config{MaxSteps: 5})
	f.recorder.attempted["job-123"] = true

	_, err := f.wizard.Apply(context.Background(), f.session, testTarget())
	require.ErrorIs(t, err, history.ErrAlreadyApplied)

	// Rejected at eligibility: no authentication, no navigation, no record.
	assert.Zero(t, f.authenticator.calls)
	assert.Empty(t, f.session.VisitedURLs)
	assert.Empty(t, f.recorder.records)
}

func TestApplyQuotaExhaustedRejected(t *testing.T) {
	f := newFixture(t, Config{MaxSteps: 5})
	f.quota.allowed = false

	_, err := f.wizard.Apply(context.Background(), f.session, testTarget())
	require.ErrorIs(t, err, quota.ErrExceeded)

	assert.Zero(t, f.authenticator.calls)
	assert.Empty(t, f.recorder.records)
}

func TestApplyBlocklistedCompanyRejected(t *testing.T) {
	f := newFixture(t, Config{MaxSteps: 5, Blocklist: []string{"acme"}})

	_, err := f.wizard.Apply(context.Background(), f.session, testTarget())
	require.ErrorIs(t, err, ErrCompanyBlocked)

	assert.Zero(t, f.authenticator.calls)
	assert.Empty(t, f.recorder.records)
}

func TestApplyAuthFailureRecordsFailedAttempt(t *testing.T) {
	f := newFixture(t, Config{MaxSteps: 5})
	f.authenticator.result = auth.AuthResult{Success: false, Message: "invalid credentials"}

	result, err := f.wizard.Apply(context.Background(), f.session, testTarget())
	require.NoError(t, err)

	assert.Equal(t, history.OutcomeFailed, result.Outcome)
	assert.Contains(t, result.Detail, "invalid credentials")
	require.Len(t, f.recorder.records, 1)
	assert.Equal(t, history.OutcomeFailed, f.recorder.records[0].Outcome)
	assert.Empty(t, f.quota.recorded)
}

func TestApplyWizardUnavailable(t *testing.T) {
	f := newFixture(t, Config{MaxSteps: 5})
	// Job page exists but has no application entry control.
	f.session.AddPage(jobURL, &browser.FakePage{})

	result, err := f.wizard.Apply(context.Background(), f.session, testTarget())
	require.NoError(t, err)

	assert.Equal(t, history.OutcomeUnavailable, result.Outcome)
	assert.False(t, result.Submitted)
	require.Len(t, f.recorder.records, 1)
	assert.Equal(t, history.OutcomeUnavailable, f.recorder.records[0].Outcome)
}

func TestApplyFailedAttemptIsNotRetried(t *testing.T) {
	f := newFixture(t, Config{MaxSteps: 5})
	// Job page exists but has no application entry control.
	f.session.AddPage(jobURL, &browser.FakePage{})

	result, err := f.wizard.Apply(context.Background(), f.session, testTarget())
	require.NoError(t, err)
	require.Equal(t, history.OutcomeUnavailable, result.Outcome)
	require.Len(t, f.recorder.records, 1)
	authCalls := f.authenticator.calls
	visits := len(f.session.VisitedURLs)

	// One attempt per job: the recorded failure blocks a second pass before
	// any authentication or navigation happens.
	_, err = f.wizard.Apply(context.Background(), f.session, testTarget())
	require.ErrorIs(t, err, history.ErrAlreadyApplied)

	assert.Equal(t, authCalls, f.authenticator.calls)
	assert.Equal(t, visits, len(f.session.VisitedURLs))
	assert.Len(t, f.recorder.records, 1)
}

func TestTruncateToRuneBoundary(t *testing.T) {
	assert.Equal(t, "short", truncateToRune("short", 100))

	// Cutting inside a multi-byte rune backs up to the previous boundary.
	text := strings.Repeat("résumé", 1000)
	for _, limit := range []int{1, 2, 3, 7, 2000} {
		got := truncateToRune(text, limit)
		assert.True(t, utf8.ValidString(got), "limit %d produced invalid UTF-8: %q", limit, got)
		assert.LessOrEqual(t, len(got), limit)
	}
}

func TestApplyStepLimitYieldsIndeterminate(t *testing.T) {
	f := newFixture(t, Config{MaxSteps: 5})

	// The entry control opens a screen with no advancing control at all.
	entry := browser.NewFakeElement(nil)
	entry.OnClick = func() {
		f.session.AddPage(jobURL, &browser.FakePage{Elements: map[string][]*browser.FakeElement{
			`input[type="text"]`: {browser.NewFakeElement(map[string]string{"aria-label": "Years of experience"})},
		}})
	}
	f.session.AddPage(jobURL, &browser.FakePage{Elements: map[string][]*browser.FakeElement{
		"button.jobs-apply-button": {entry},
	}})

	result, err := f.wizard.Apply(context.Background(), f.session, testTarget())
	require.NoError(t, err)

	assert.Equal(t, history.OutcomeIndeterminate, result.Outcome)
	assert.False(t, result.Submitted)
	require.Len(t, f.recorder.records, 1)
	assert.Empty(t, f.quota.recorded)
}

func TestApplyCloseWithoutSubmitIsNotSuccess(t *testing.T) {
	f := newFixture(t, Config{MaxSteps: 5})

	done := browser.NewFakeElement(nil)
	entry := browser.NewFakeElement(nil)
	entry.OnClick = func() {
		f.session.AddPage(jobURL, &browser.FakePage{Elements: map[string][]*browser.FakeElement{
			`button[aria-label="Done"]`: {done},
		}})
	}
	f.session.AddPage(jobURL, &browser.FakePage{Elements: map[string][]*browser.FakeElement{
		"button.jobs-apply-button": {entry},
	}})

	result, err := f.wizard.Apply(context.Background(), f.session, testTarget())
	require.NoError(t, err)

	assert.Equal(t, history.OutcomeIndeterminate, result.Outcome)
	assert.False(t, result.Submitted)
	assert.Equal(t, 1, done.Clicks)
}

func TestApplyDryRunLeavesHistoryUntouched(t *testing.T) {
	f := newFixture(t, Config{MaxSteps: 5, DryRun: true})
	entry := scriptSuccessfulFlow(f)

	result, err := f.wizard.Apply(context.Background(), f.session, testTarget())
	require.NoError(t, err)

	// Success-shaped result, but nothing committed and nothing recorded.
	assert.Equal(t, history.OutcomeDryRun, result.Outcome)
	assert.NotEmpty(t, result.Steps)
	assert.Zero(t, entry.Clicks)
	assert.Empty(t, f.recorder.records)
	assert.Empty(t, f.quota.recorded)
}

func TestApplyResolvesChoiceControls(t *testing.T) {
	f := newFixture(t, Config{MaxSteps: 5})

	yes := browser.NewFakeElement(map[string]string{"name": "authorized", "value": "Yes"})
	no := browser.NewFakeElement(map[string]string{"name": "authorized", "value": "No"})
	dropdown := browser.NewFakeElement(nil)

	submit := browser.NewFakeElement(nil)
	submit.OnClick = func() {
		f.session.Pages[jobURL] = &browser.FakePage{Elements: map[string][]*browser.FakeElement{
			".jobs-easy-apply-confirmation": {browser.NewFakeElement(nil)},
		}}
	}

	entry := browser.NewFakeElement(nil)
	entry.OnClick = func() {
		f.session.AddPage(jobURL, &browser.FakePage{Elements: map[string][]*browser.FakeElement{
			// The "No" option is scripted first so value preference, not
			// document order, must pick the affirmative one.
			`input[type="radio"]`:                     {no, yes},
			`select`:                              {dropdown},
			`button[aria-label="Submit application"]`: {submit},
		}})
	}
	f.session.AddPage(jobURL, &browser.FakePage{Elements: map[string][]*browser.FakeElement{
		"button.jobs-apply-button": {entry},
	}})

	result, err := f.wizard.Apply(context.Background(), f.session, testTarget())
	require.NoError(t, err)
	require.Equal(t, history.OutcomeApplied, result.Outcome)

	assert.Equal(t, 1, yes.Clicks)
	assert.Zero(t, no.Clicks)
	assert.Equal(t, []int{1}, dropdown.Selected)
}
