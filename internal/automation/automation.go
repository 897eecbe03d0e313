// Package automation wires the components into runnable flows: the one-shot
// daily run, single-purpose runs (analyze, apply) and the scheduled serve
// loop. One browsing session is active at a time; scheduled tasks run to
// completion before the next due-check.
package automation

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	regexp "github.com/wasilibs/go-re2"

	"github.com/aatumaykin/linkpilot/internal/analyze"
	"github.com/aatumaykin/linkpilot/internal/auth"
	"github.com/aatumaykin/linkpilot/internal/browser"
	"github.com/aatumaykin/linkpilot/internal/config"
	"github.com/aatumaykin/linkpilot/internal/content"
	"github.com/aatumaykin/linkpilot/internal/engage"
	"github.com/aatumaykin/linkpilot/internal/history"
	"github.com/aatumaykin/linkpilot/internal/logger"
	"github.com/aatumaykin/linkpilot/internal/notify"
	"github.com/aatumaykin/linkpilot/internal/quota"
	"github.com/aatumaykin/linkpilot/internal/schedule"
	"github.com/aatumaykin/linkpilot/internal/store"
	"github.com/aatumaykin/linkpilot/internal/wizard"
	"github.com/aatumaykin/linkpilot/internal/workspace"
)

// ErrDisabled is returned by Serve when automation is switched off in the
// configuration.
var ErrDisabled = errors.New("automation is disabled in configuration")

// Scheduled task names.
const (
	TaskProfileUpdate = "profile_update"
	TaskEngagement    = "engagement"
	TaskApplications  = "applications"
)

var jobIDPattern = regexp.MustCompile(`/jobs/view/(\d+)`)

// Automation owns the assembled component graph.
type Automation struct {
	cfg    *config.Config
	logger *logger.Logger
	driver browser.Driver

	store         *store.Store
	ledger        *quota.Ledger
	history       *history.History
	authenticator *auth.Authenticator
	wizard        *wizard.Wizard
	engager       *engage.Engager
	analyzer      *analyze.Analyzer
	notifier      notify.Notifier
	scheduler     *schedule.Scheduler
	location      *time.Location
}

// New builds the component graph from the configuration. The browser driver
// is injected so tests can substitute an in-memory fake.
func New(cfg *config.Config, driver browser.Driver, log *logger.Logger) (*Automation, error) {
	location, err := time.LoadLocation(cfg.Automation.Timezone)
	if err != nil {
		return nil, fmt.Errorf("load timezone %q: %w", cfg.Automation.Timezone, err)
	}

	ws := workspace.New(cfg.Workspace.Path)
	if err := ws.EnsureDir(); err != nil {
		return nil, fmt.Errorf("prepare workspace: %w", err)
	}

	st := store.New(ws.Path(), log)
	ledger := quota.NewLedger(st, cfg.Quota.MaxDailyActions, cfg.Quota.Limits, location, log)

	hist, err := history.New(ws.Path(), log)
	if err != nil {
		return nil, fmt.Errorf("load application history: %w", err)
	}

	authenticator := auth.NewAuthenticator(auth.Config{
		BaseURL:   cfg.Platform.BaseURL,
		Email:     cfg.Platform.Email,
		Password:  cfg.Platform.Password,
		AuthToken: cfg.Platform.AuthToken,
	}, st, log)

	generator := content.New(content.Config{
		Enabled:             cfg.Content.Enabled,
		APIKey:              cfg.Content.APIKey,
		BaseURL:             cfg.Content.BaseURL,
		Model:               cfg.Content.Model,
		Timeout:             time.Duration(cfg.Content.TimeoutSeconds) * time.Second,
		CoverLetterTemplate: cfg.Applications.CoverLetterTemplate,
	}, log)

	pacer := browser.NewPacer(
		time.Duration(cfg.Automation.ActionDelayMin)*time.Second,
		time.Duration(cfg.Automation.ActionDelayMax)*time.Second,
	)

	rules, err := loadRules(cfg)
	if err != nil {
		return nil, err
	}

	// Safe mode forces dry-run applications and skips engagement writes.
	dryRun := cfg.Automation.DryRun || cfg.Automation.SafeMode

	wiz := wizard.New(wizard.Config{
		MaxSteps:        cfg.Applications.MaxSteps,
		CVPath:          cfg.Applications.CVPath,
		AdvancePriority: cfg.Applications.AdvancePriority,
		Blocklist:       cfg.Applications.Blocklist,
		DryRun:          dryRun,
	}, rules, authenticator, ledger, hist, generator, pacer, log)

	engager := engage.New(engage.Config{
		BaseURL:        cfg.Platform.BaseURL,
		Keywords:       cfg.Engagement.Keywords,
		MaxLikes:       cfg.Engagement.MaxLikes,
		MaxComments:    cfg.Engagement.MaxComments,
		MaxConnections: cfg.Engagement.MaxConnections,
	}, ledger, generator, pacer, log)

	analyzer := analyze.New(ws.Path(), generator, log)

	notifier, err := notify.New(notify.Config{
		Enabled: cfg.Notifications.Telegram.Enabled,
		Token:   cfg.Notifications.Telegram.Token,
		ChatID:  cfg.Notifications.Telegram.ChatID,
	}, log)
	if err != nil {
		return nil, fmt.Errorf("build notifier: %w", err)
	}

	scheduler := schedule.NewScheduler(st,
		time.Duration(cfg.Automation.CatchUpWindowMin)*time.Minute,
		time.Duration(cfg.Automation.PollIntervalSeconds)*time.Second,
		location, log)

	return &Automation{
		cfg:           cfg,
		logger:        log,
		driver:        driver,
		store:         st,
		ledger:        ledger,
		history:       hist,
		authenticator: authenticator,
		wizard:        wiz,
		engager:       engager,
		analyzer:      analyzer,
		notifier:      notifier,
		scheduler:     scheduler,
		location:      location,
	}, nil
}

func loadRules(cfg *config.Config) (*wizard.RuleSet, error) {
	if cfg.Applications.RulesPath != "" {
		rules, err := wizard.LoadRules(cfg.Applications.RulesPath)
		if err != nil {
			return nil, fmt.Errorf("load application rules: %w", err)
		}
		return rules, nil
	}

	return wizard.DefaultRules(wizard.Defaults{
		YearsExperience: cfg.Applications.Defaults.YearsExperience,
		Compensation:    cfg.Applications.Defaults.Compensation,
		PortfolioURL:    cfg.Applications.Defaults.PortfolioURL,
		Phone:           cfg.Applications.Defaults.Phone,
	})
}

// Ledger exposes quota state for the CLI.
func (a *Automation) Ledger() *quota.Ledger { return a.ledger }

// History exposes the application history for the CLI.
func (a *Automation) History() *history.History { return a.history }

// Scheduler exposes scheduler state for the CLI.
func (a *Automation) Scheduler() *schedule.Scheduler { return a.scheduler }

// Close releases the browser driver.
func (a *Automation) Close() error {
	return a.driver.Close()
}

// launch opens a fresh browsing session.
func (a *Automation) launch() (browser.Session, error) {
	session, err := a.driver.Launch(a.cfg.Platform.Headless)
	if err != nil {
		return nil, fmt.Errorf("launch browser: %w", err)
	}
	return session, nil
}

// RunAnalyze performs one profile analysis run.
func (a *Automation) RunAnalyze(ctx context.Context) (analyze.Report, error) {
	session, err := a.launch()
	if err != nil {
		return analyze.Report{}, err
	}
	defer session.Close()

	result, err := a.authenticator.Authenticate(ctx, session)
	if err != nil {
		return analyze.Report{}, err
	}
	if !result.Success {
		return analyze.Report{}, fmt.Errorf("authentication failed: %s", result.Message)
	}

	return a.analyzer.Run(ctx, session, a.cfg.Platform.BaseURL+"/in/me")
}

// RunEngagement performs one engagement run. In safe mode the run is skipped.
func (a *Automation) RunEngagement(ctx context.Context) (engage.Summary, error) {
	if a.cfg.Automation.SafeMode {
		a.logger.Info("safe mode active, skipping engagement run")
		return engage.Summary{}, nil
	}

	session, err := a.launch()
	if err != nil {
		return engage.Summary{}, err
	}
	defer session.Close()

	result, err := a.authenticator.Authenticate(ctx, session)
	if err != nil {
		return engage.Summary{}, err
	}
	if !result.Success {
		return engage.Summary{}, fmt.Errorf("authentication failed: %s", result.Message)
	}

	return a.engager.Run(ctx, session)
}

// RunApply applies to a single job posting URL.
func (a *Automation) RunApply(ctx context.Context, jobURL string) (wizard.Result, error) {
	session, err := a.launch()
	if err != nil {
		return wizard.Result{}, err
	}
	defer session.Close()

	return a.wizard.Apply(ctx, session, TargetFromURL(jobURL))
}

// RunApplications applies to every configured target in order. Duplicate
// targets are skipped; an exhausted quota ends the round.
func (a *Automation) RunApplications(ctx context.Context) ([]wizard.Result, []string) {
	var results []wizard.Result
	var failures []string

	if len(a.cfg.Applications.Targets) == 0 {
		return results, failures
	}

	session, err := a.launch()
	if err != nil {
		failures = append(failures, err.Error())
		return results, failures
	}
	defer session.Close()

	for _, target := range a.cfg.Applications.Targets {
		if ctx.Err() != nil {
			break
		}

		result, err := a.wizard.Apply(ctx, session, TargetFromURL(target))
		switch {
		case errors.Is(err, history.ErrAlreadyApplied):
			a.logger.Info("skipping already attempted target",
				logger.Field{Key: "url", Value: target})
			continue
		case errors.Is(err, quota.ErrExceeded):
			a.logger.Info("application quota exhausted, ending round")
			return results, failures
		case err != nil:
			failures = append(failures, fmt.Sprintf("%s: %v", target, err))
			continue
		}

		results = append(results, result)
	}

	return results, failures
}

// DailySummary reports the outcome of one daily run.
type DailySummary struct {
	Analysis     *analyze.Report
	Engagement   *engage.Summary
	Applications []wizard.Result
	Errors       []string

	unitsRun       int
	unitsSucceeded int
}

// Succeeded reports overall success: at least one unit succeeded.
func (s *DailySummary) Succeeded() bool {
	return s.unitsRun == 0 || s.unitsSucceeded > 0
}

// Text renders a plain-text summary for notifications.
func (s *DailySummary) Text() string {
	var b strings.Builder
	b.WriteString("Daily automation run finished.\n")

	if s.Analysis != nil {
		fmt.Fprintf(&b, "Profile analysis: report written to %s\n", s.Analysis.Path)
	}
	if s.Engagement != nil {
		fmt.Fprintf(&b, "Engagement: %d likes, %d comments, %d connection requests\n",
			s.Engagement.Likes, s.Engagement.Comments, s.Engagement.Connections)
	}
	if len(s.Applications) > 0 {
		applied := 0
		for _, result := range s.Applications {
			if result.Submitted {
				applied++
			}
		}
		fmt.Fprintf(&b, "Applications: %d attempted, %d submitted\n", len(s.Applications), applied)
	}
	if len(s.Errors) > 0 {
		fmt.Fprintf(&b, "Errors (%d):\n", len(s.Errors))
		for _, e := range s.Errors {
			fmt.Fprintf(&b, "- %s\n", e)
		}
	}

	return strings.TrimRight(b.String(), "\n")
}

// RunDaily executes the daily batch: profile analysis, engagement and the
// application round. Unit failures are accumulated; the run as a whole fails
// only when every unit failed.
func (a *Automation) RunDaily(ctx context.Context) (*DailySummary, error) {
	summary := &DailySummary{}

	summary.unitsRun++
	if report, err := a.RunAnalyze(ctx); err != nil {
		summary.Errors = append(summary.Errors, fmt.Sprintf("profile analysis: %v", err))
	} else {
		summary.Analysis = &report
		summary.unitsSucceeded++
	}

	summary.unitsRun++
	if engagement, err := a.RunEngagement(ctx); err != nil {
		summary.Errors = append(summary.Errors, fmt.Sprintf("engagement: %v", err))
	} else {
		summary.Engagement = &engagement
		summary.unitsSucceeded++
	}

	if len(a.cfg.Applications.Targets) > 0 {
		summary.unitsRun++
		results, failures := a.RunApplications(ctx)
		summary.Applications = results
		summary.Errors = append(summary.Errors, failures...)
		if len(results) > 0 {
			summary.unitsSucceeded++
		}
	}

	if err := a.notifier.Notify(ctx, summary.Text()); err != nil {
		a.logger.Warn("daily summary notification failed",
			logger.Field{Key: "error", Value: err})
	}

	if !summary.Succeeded() {
		return summary, fmt.Errorf("all daily units failed: %s", strings.Join(summary.Errors, "; "))
	}

	return summary, nil
}

// Serve registers the scheduled tasks and runs the polling loop until the
// context is canceled.
func (a *Automation) Serve(ctx context.Context) error {
	if !a.cfg.Automation.Enabled {
		return ErrDisabled
	}

	err := a.scheduler.Register(TaskProfileUpdate, a.cfg.Schedules.ProfileUpdate, nil,
		func(ctx context.Context) (string, error) {
			report, err := a.RunAnalyze(ctx)
			if err != nil {
				return "", err
			}
			return "report: " + report.Path, nil
		})
	if err != nil {
		return err
	}

	err = a.scheduler.Register(TaskEngagement, a.cfg.Schedules.Engagement,
		func() bool {
			return a.ledger.CanPerform(engage.CategoryLikes) ||
				a.ledger.CanPerform(engage.CategoryComments) ||
				a.ledger.CanPerform(engage.CategoryConnections)
		},
		func(ctx context.Context) (string, error) {
			summary, err := a.RunEngagement(ctx)
			if err != nil {
				return "", err
			}
			return fmt.Sprintf("%d likes, %d comments, %d connections",
				summary.Likes, summary.Comments, summary.Connections), nil
		})
	if err != nil {
		return err
	}

	err = a.scheduler.Register(TaskApplications, a.cfg.Schedules.Applications,
		func() bool {
			return len(a.cfg.Applications.Targets) > 0 &&
				a.ledger.CanPerform(wizard.QuotaCategory)
		},
		func(ctx context.Context) (string, error) {
			results, failures := a.RunApplications(ctx)
			if len(results) == 0 && len(failures) > 0 {
				return "", fmt.Errorf("application round failed: %s", strings.Join(failures, "; "))
			}
			return fmt.Sprintf("%d attempts, %d failures", len(results), len(failures)), nil
		})
	if err != nil {
		return err
	}

	a.logger.Info("entering scheduled mode",
		logger.Field{Key: "poll_interval", Value: a.cfg.Automation.PollIntervalSeconds},
		logger.Field{Key: "timezone", Value: a.location.String()})

	a.scheduler.Loop(ctx)
	return nil
}

// TargetFromURL derives an application target from a job posting URL. The
// numeric posting id is the unique key; without one, the full URL is used.
func TargetFromURL(jobURL string) wizard.Target {
	id := jobURL
	if m := jobIDPattern.FindStringSubmatch(jobURL); len(m) == 2 {
		id = m[1]
	}
	return wizard.Target{ID: id, URL: jobURL}
}
