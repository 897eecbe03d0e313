// Package wizard drives the embedded multi-step application flow to a
// definite terminal outcome. The flow is a bounded state machine: eligibility
// gates, authentication, navigation, then up to maxSteps form-filling
// iterations. Success is never assumed: an application counts as submitted
// only on an explicit confirmation signal or a terminal close control after a
// submit action.
package wizard

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"unicode/utf8"

	"github.com/aatumaykin/linkpilot/internal/auth"
	"github.com/aatumaykin/linkpilot/internal/browser"
	"github.com/aatumaykin/linkpilot/internal/content"
	"github.com/aatumaykin/linkpilot/internal/history"
	"github.com/aatumaykin/linkpilot/internal/logger"
	"github.com/aatumaykin/linkpilot/internal/metrics"
	"github.com/aatumaykin/linkpilot/internal/quota"
)

// QuotaCategory is the ledger category gated and recorded per application.
const QuotaCategory = "applications"

// ErrCompanyBlocked reports that the target's organization is blocklisted.
var ErrCompanyBlocked = errors.New("company is on the blocklist")

// coverLetterLimit caps cover letter length to the platform's field limit.
const coverLetterLimit = 2000

const (
	entrySelector        = `button.jobs-apply-button, button[data-control-name="jobdetails_topcard_inapply"]`
	uploadSelector       = `input[type="file"]`
	coverLetterSelector  = `textarea[name*="cover"], textarea[id*="cover"]`
	textFieldSelector    = `input[type="text"], input[type="number"], input[type="tel"], textarea`
	selectSelector       = `select`
	radioSelector        = `input[type="radio"]`
	confirmationSelector = `.jobs-easy-apply-confirmation, [class*="confirmation"], [class*="artdeco-inline-feedback--success"]`
)

// defaultAdvanceSelectors maps advance-control names to their selectors. The
// order controls are tried in comes from configuration, not from this map.
var defaultAdvanceSelectors = map[string]string{
	"next":   `button[aria-label*="next"], button[aria-label="Continue to next step"]`,
	"review": `button[aria-label*="Review"], button[aria-label="Review your application"]`,
	"submit": `button[aria-label="Submit application"], button[aria-label*="Submit"]`,
	"done":   `button[aria-label="Done"], button[aria-label="Dismiss"], button[aria-label*="close"]`,
}

// Target identifies one job posting.
type Target struct {
	ID      string
	Title   string
	Company string
	URL     string
}

// Result is the terminal outcome of one application attempt.
type Result struct {
	Outcome   history.Outcome
	Submitted bool
	Steps     []string
	Detail    string
}

// Config holds wizard settings.
type Config struct {
	MaxSteps        int
	CVPath          string
	AdvancePriority []string
	Blocklist       []string
	DryRun          bool
}

// Authenticator is the authentication collaborator.
type Authenticator interface {
	Authenticate(ctx context.Context, session browser.Session) (auth.AuthResult, error)
}

// QuotaGate gates and records quota-limited actions.
type QuotaGate interface {
	CanPerform(category string) bool
	Record(category string) error
}

// Recorder is the application-history collaborator.
type Recorder interface {
	Attempted(jobID string) bool
	Record(record history.ApplicationRecord) (history.ApplicationRecord, error)
}

// Wizard applies to job postings through the embedded application flow.
type Wizard struct {
	cfg           Config
	rules         *RuleSet
	authenticator Authenticator
	quota         QuotaGate
	recorder      Recorder
	generator     content.Generator
	logger        *logger.Logger

	// wait inserts a pacing delay between discrete actions.
	wait func(ctx context.Context) error

	fileExists func(path string) bool
}

// New creates a Wizard. pacer may be nil to disable pacing delays.
func New(cfg Config, rules *RuleSet, authenticator Authenticator, quota QuotaGate, recorder Recorder, generator content.Generator, pacer *browser.Pacer, log *logger.Logger) *Wizard {
	if cfg.MaxSteps <= 0 {
		cfg.MaxSteps = 5
	}
	if len(cfg.AdvancePriority) == 0 {
		cfg.AdvancePriority = []string{"next", "review", "submit", "done"}
	}

	wait := func(ctx context.Context) error { return nil }
	if pacer != nil {
		wait = pacer.Wait
	}

	return &Wizard{
		cfg:           cfg,
		rules:         rules,
		authenticator: authenticator,
		quota:         quota,
		recorder:      recorder,
		generator:     generator,
		logger:        log,
		wait:          wait,
		fileExists: func(path string) bool {
			_, err := os.Stat(path)
			return err == nil
		},
	}
}

// Apply runs one application attempt for the target. Eligibility rejections
// (duplicate target, exhausted quota, blocklisted company) return an error
// before any authentication or navigation and leave no record. Every attempt
// past eligibility persists exactly one history record, whatever the
// outcome. Dry-run attempts record nothing.
func (w *Wizard) Apply(ctx context.Context, session browser.Session, target Target) (Result, error) {
	if err := w.checkEligibility(target); err != nil {
		return Result{}, err
	}

	authResult, err := w.authenticator.Authenticate(ctx, session)
	if err != nil {
		return Result{}, err
	}
	if !authResult.Success {
		return w.finish(target, Result{
			Outcome: history.OutcomeFailed,
			Detail:  "authentication failed: " + authResult.Message,
		})
	}

	result := w.run(ctx, session, target)
	return w.finish(target, result)
}

func (w *Wizard) checkEligibility(target Target) error {
	if w.recorder.Attempted(target.ID) {
		return fmt.Errorf("job %s: %w", target.ID, history.ErrAlreadyApplied)
	}
	if !w.quota.CanPerform(QuotaCategory) {
		return fmt.Errorf("job %s: application quota: %w", target.ID, quota.ErrExceeded)
	}
	if company := w.blockedCompany(target.Company); company != "" {
		return fmt.Errorf("job %s: company %q: %w", target.ID, company, ErrCompanyBlocked)
	}
	return nil
}

func (w *Wizard) blockedCompany(company string) string {
	lower := strings.ToLower(company)
	for _, blocked := range w.cfg.Blocklist {
		if blocked != "" && strings.Contains(lower, strings.ToLower(blocked)) {
			return blocked
		}
	}
	return ""
}

// run executes navigation and the bounded step loop.
func (w *Wizard) run(ctx context.Context, session browser.Session, target Target) Result {
	result := Result{}

	step := func(format string, args ...any) {
		result.Steps = append(result.Steps, fmt.Sprintf(format, args...))
	}

	if err := session.Goto(target.URL); err != nil {
		result.Outcome = history.OutcomeFailed
		result.Detail = fmt.Sprintf("failed to open job page: %v", err)
		return result
	}
	step("opened job page")

	entry := session.Locator(entrySelector)
	count, err := entry.Count()
	if err != nil || count == 0 {
		result.Outcome = history.OutcomeUnavailable
		result.Detail = "embedded application flow not available for this job"
		return result
	}

	if w.cfg.DryRun {
		step("dry run: found application entry control")
		for k := 1; k <= w.cfg.MaxSteps; k++ {
			step("dry run: simulated step %d", k)
		}
		result.Outcome = history.OutcomeDryRun
		result.Detail = "dry run, no application submitted"
		return result
	}

	if err := entry.First().Click(); err != nil {
		result.Outcome = history.OutcomeFailed
		result.Detail = fmt.Sprintf("failed to open application flow: %v", err)
		return result
	}
	step("opened application flow")
	_ = w.wait(ctx)

	submitClicked := false

	for k := 1; k <= w.cfg.MaxSteps; k++ {
		if ctx.Err() != nil {
			result.Outcome = history.OutcomeFailed
			result.Detail = "canceled before completion"
			return result
		}

		step("processing step %d", k)
		w.fillStep(ctx, session, target, step)

		control, found := w.findAdvanceControl(session)
		if !found {
			break
		}

		if control == "done" && !submitClicked {
			// A close control with nothing submitted dismisses the flow
			// without an application.
			_ = session.Locator(w.advanceSelector(control)).First().Click()
			step("closed application flow without submitting")
			result.Outcome = history.OutcomeIndeterminate
			result.Detail = "application flow closed before a submit action"
			return result
		}

		if err := session.Locator(w.advanceSelector(control)).First().Click(); err != nil {
			result.Outcome = history.OutcomeFailed
			result.Detail = fmt.Sprintf("failed to click %s control: %v", control, err)
			return result
		}
		step("clicked %s control", control)
		_ = w.wait(ctx)

		if control == "submit" {
			submitClicked = true
			if w.confirmed(session) {
				step("submission confirmed")
				result.Outcome = history.OutcomeApplied
				result.Submitted = true
				return result
			}
			continue
		}

		if control == "done" {
			// Terminal close after a submit action.
			step("application flow completed")
			result.Outcome = history.OutcomeApplied
			result.Submitted = true
			return result
		}
	}

	// Late confirmation check covers flows that confirm after the final
	// submit without presenting a close control.
	if submitClicked && w.confirmed(session) {
		step("submission confirmed")
		result.Outcome = history.OutcomeApplied
		result.Submitted = true
		return result
	}

	result.Outcome = history.OutcomeIndeterminate
	result.Detail = "no advancing control found within step limit"
	return result
}

// fillStep performs the applicable subset of form actions for the current
// screen: document upload, cover letter, heuristic text answers, dropdowns
// and yes/no choices.
func (w *Wizard) fillStep(ctx context.Context, session browser.Session, target Target, step func(string, ...any)) {
	w.uploadDocument(session, step)
	w.fillCoverLetter(ctx, session, target, step)
	w.fillTextFields(session, step)
	w.resolveSelects(session, step)
	w.resolveRadios(session, step)
}

func (w *Wizard) uploadDocument(session browser.Session, step func(string, ...any)) {
	if w.cfg.CVPath == "" || !w.fileExists(w.cfg.CVPath) {
		return
	}
	upload := session.Locator(uploadSelector)
	if count, err := upload.Count(); err != nil || count == 0 {
		return
	}
	if err := upload.First().SetInputFiles(w.cfg.CVPath); err != nil {
		w.logger.Warn("document upload failed",
			logger.Field{Key: "error", Value: err})
		return
	}
	step("uploaded document")
}

func (w *Wizard) fillCoverLetter(ctx context.Context, session browser.Session, target Target, step func(string, ...any)) {
	field := session.Locator(coverLetterSelector)
	count, err := field.Count()
	if err != nil || count == 0 {
		return
	}

	letter := w.coverLetter(ctx, target)
	if letter == "" {
		return
	}
	letter = truncateToRune(letter, coverLetterLimit)

	if err := field.First().Fill(letter); err != nil {
		w.logger.Warn("cover letter fill failed",
			logger.Field{Key: "error", Value: err})
		return
	}
	step("added cover letter")
}

func (w *Wizard) coverLetter(ctx context.Context, target Target) string {
	letter, err := w.generator.CoverLetter(ctx, content.JobContext{
		Title:   target.Title,
		Company: target.Company,
	})
	if err != nil {
		w.logger.Warn("cover letter generation failed, using fallback",
			logger.Field{Key: "error", Value: err})
		letter, _ = content.NewStaticGenerator("").CoverLetter(ctx, content.JobContext{
			Title:   target.Title,
			Company: target.Company,
		})
	}
	return letter
}

func (w *Wizard) fillTextFields(session browser.Session, step func(string, ...any)) {
	fields, err := session.Locator(textFieldSelector).All()
	if err != nil {
		return
	}

	filled := 0
	for _, field := range fields {
		label := fieldLabel(field)
		if label == "" {
			continue
		}
		if isCoverLetterField(label) {
			continue
		}

		value, ok := w.rules.Match(label)
		if !ok {
			continue
		}
		if err := field.Fill(value); err != nil {
			continue
		}
		filled++
	}

	if filled > 0 {
		step("answered %d question field(s)", filled)
	}
}

func (w *Wizard) resolveSelects(session browser.Session, step func(string, ...any)) {
	selects, err := session.Locator(selectSelector).All()
	if err != nil || len(selects) == 0 {
		return
	}

	resolved := 0
	for _, sel := range selects {
		// First non-empty option; index 0 is usually the placeholder.
		if err := sel.SelectOptionIndex(1); err != nil {
			continue
		}
		resolved++
	}

	if resolved > 0 {
		step("resolved %d dropdown(s)", resolved)
	}
}

func (w *Wizard) resolveRadios(session browser.Session, step func(string, ...any)) {
	radios, err := session.Locator(radioSelector).All()
	if err != nil || len(radios) == 0 {
		return
	}

	// Group radios by name, preferring an explicit affirmative option over
	// the first one in the group.
	type group struct {
		first       browser.Locator
		affirmative browser.Locator
	}
	order := []string{}
	groups := map[string]*group{}

	for _, radio := range radios {
		name, _ := radio.GetAttribute("name")
		g, ok := groups[name]
		if !ok {
			g = &group{first: radio}
			groups[name] = g
			order = append(order, name)
		}
		if g.affirmative == nil {
			if value, _ := radio.GetAttribute("value"); affirmativePattern.MatchString(value) {
				g.affirmative = radio
			}
		}
	}

	resolved := 0
	for _, name := range order {
		g := groups[name]
		choice := g.first
		if g.affirmative != nil {
			choice = g.affirmative
		}
		if err := choice.Click(); err != nil {
			continue
		}
		resolved++
	}

	if resolved > 0 {
		step("resolved %d choice group(s)", resolved)
	}
}

// findAdvanceControl returns the first configured advance control present on
// the current screen.
func (w *Wizard) findAdvanceControl(session browser.Session) (string, bool) {
	for _, name := range w.cfg.AdvancePriority {
		selector := w.advanceSelector(name)
		if selector == "" {
			continue
		}
		if count, err := session.Locator(selector).Count(); err == nil && count > 0 {
			return name, true
		}
	}
	return "", false
}

func (w *Wizard) advanceSelector(name string) string {
	return defaultAdvanceSelectors[strings.ToLower(name)]
}

func (w *Wizard) confirmed(session browser.Session) bool {
	count, err := session.Locator(confirmationSelector).Count()
	return err == nil && count > 0
}

// finish persists the attempt record, updates quota and metrics, and
// returns the result. Dry-run results leave the history untouched.
func (w *Wizard) finish(target Target, result Result) (Result, error) {
	metrics.Applications.WithLabelValues(string(result.Outcome)).Inc()

	if result.Outcome == history.OutcomeDryRun {
		w.logger.Info("dry-run application finished",
			logger.Field{Key: "job_id", Value: target.ID})
		return result, nil
	}

	_, err := w.recorder.Record(history.ApplicationRecord{
		JobID:    target.ID,
		JobTitle: target.Title,
		Company:  target.Company,
		JobURL:   target.URL,
		Outcome:  result.Outcome,
		Detail:   result.Detail,
		Steps:    result.Steps,
	})
	if err != nil {
		return result, fmt.Errorf("record application attempt: %w", err)
	}

	if result.Outcome == history.OutcomeApplied {
		if err := w.quota.Record(QuotaCategory); err != nil {
			w.logger.Error("failed to record application quota", err)
		}
	}

	w.logger.Info("application attempt finished",
		logger.Field{Key: "job_id", Value: target.ID},
		logger.Field{Key: "outcome", Value: result.Outcome},
		logger.Field{Key: "steps", Value: len(result.Steps)})

	return result, nil
}

func fieldLabel(field browser.Locator) string {
	parts := make([]string, 0, 4)
	for _, attr := range []string{"aria-label", "placeholder", "name", "id"} {
		if value, err := field.GetAttribute(attr); err == nil && value != "" {
			parts = append(parts, value)
		}
	}
	return strings.Join(parts, " ")
}

// truncateToRune shortens s to at most limit bytes without splitting a
// multi-byte rune.
func truncateToRune(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	for limit > 0 && !utf8.RuneStart(s[limit]) {
		limit--
	}
	return s[:limit]
}
