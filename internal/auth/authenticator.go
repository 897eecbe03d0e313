// Package auth implements multi-strategy authentication against the target
// platform. Strategies are tried in a fixed order, short-circuiting on the
// first success: cached session cookies, a configured long-lived auth token,
// then interactive credential login. Successful token and credential logins
// persist a reusable session for later runs.
//
// Authenticate never returns an error for expected failure modes; those are
// reported in the AuthResult. The only error condition is configuration
// impossibility: no token and no credentials configured at all.
package auth

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/aatumaykin/linkpilot/internal/browser"
	"github.com/aatumaykin/linkpilot/internal/logger"
	"github.com/aatumaykin/linkpilot/internal/metrics"
	"github.com/aatumaykin/linkpilot/internal/store"
)

// ErrNoAuthConfigured is returned when neither an auth token nor credentials
// are configured. This is the only unrecoverable authentication condition.
var ErrNoAuthConfigured = errors.New("no authentication method configured: set platform.auth_token or platform.email and platform.password")

// FailureKind classifies an authentication failure.
type FailureKind string

const (
	FailureNone               FailureKind = ""
	FailureInvalidCredentials FailureKind = "invalid_credentials"
	FailureManualIntervention FailureKind = "manual_intervention_required"
	FailureTimeout            FailureKind = "timeout"
	FailureUnknown            FailureKind = "unknown"
)

// AuthResult is the structured outcome of an authentication attempt.
type AuthResult struct {
	Success                    bool
	Method                     Method
	Message                    string
	Failure                    FailureKind
	RequiresManualIntervention bool
}

// Config holds authenticator settings.
type Config struct {
	BaseURL   string
	Email     string
	Password  string
	AuthToken string
	// SessionTTL bounds how long a persisted session is reused. Defaults to
	// 7 days.
	SessionTTL time.Duration
	// ChallengeWindow bounds how long a security challenge is polled for
	// manual resolution. Defaults to 2 minutes.
	ChallengeWindow   time.Duration
	ChallengeInterval time.Duration
}

// Login form and probe selectors for the platform.
const (
	loginEmailSelector    = `input[name="session_key"]`
	loginPasswordSelector = `input[name="session_password"]`
	loginSubmitSelector   = `button[type="submit"]`
)

var (
	// authenticatedPaths are URL path prefixes only reachable while logged in.
	authenticatedPaths = []string{"/feed", "/in/", "/mynetwork", "/messaging"}

	// authenticatedLandmarks are UI elements only rendered while logged in.
	authenticatedLandmarks = []string{
		".global-nav__me",
		`[data-test-id="nav-me-button"]`,
		`[aria-label="Me"]`,
	}

	challengeSelectors = []string{
		`[data-test-id="challenge-form"]`,
		".challenge-page",
	}

	captchaSelectors = []string{
		`iframe[src*="captcha"]`,
		`[data-test-id="captcha"]`,
	}

	verificationSelectors = []string{
		`input[name="pin"]`,
		`input[id*="verification"]`,
	}

	loginErrorSelectors = []string{
		".form__label--error",
		`[data-test-id="sign-in-error"]`,
		".login-form__error-message",
	}
)

// Authenticator drives the ordered authentication strategy chain.
type Authenticator struct {
	cfg    Config
	store  *store.Store
	logger *logger.Logger

	data SessionData

	// now and sleep are replaceable in tests.
	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error
}

// NewAuthenticator creates an authenticator, loading any persisted session.
func NewAuthenticator(cfg Config, st *store.Store, log *logger.Logger) *Authenticator {
	if cfg.SessionTTL == 0 {
		cfg.SessionTTL = 7 * 24 * time.Hour
	}
	if cfg.ChallengeWindow == 0 {
		cfg.ChallengeWindow = 2 * time.Minute
	}
	if cfg.ChallengeInterval == 0 {
		cfg.ChallengeInterval = 5 * time.Second
	}

	a := &Authenticator{
		cfg:    cfg,
		store:  st,
		logger: log,
		now:    time.Now,
		sleep:  sleepCtx,
	}

	if !a.store.Load(sessionDocument, &a.data) {
		a.data = SessionData{CreatedAt: a.now()}
	}

	return a
}

// Authenticate obtains an authenticated browsing session using the first
// strategy that succeeds. Expected failures come back in the result; an
// error is returned only when no strategy is configured at all.
func (a *Authenticator) Authenticate(ctx context.Context, session browser.Session) (AuthResult, error) {
	hasCredentials := a.cfg.Email != "" && a.cfg.Password != ""
	if !hasCredentials && a.cfg.AuthToken == "" {
		return AuthResult{}, ErrNoAuthConfigured
	}

	// Strategy 1: cached session cookies.
	if a.tryCachedSession(ctx, session) {
		a.recordSuccess(MethodSessionCookies)
		return AuthResult{
			Success: true,
			Method:  MethodSessionCookies,
			Message: "authenticated using saved session cookies",
		}, nil
	}

	// Strategy 2: long-lived auth token cookie.
	if a.cfg.AuthToken != "" && a.tryAuthToken(ctx, session) {
		a.saveSessionCookies(session)
		a.recordSuccess(MethodAuthToken)
		return AuthResult{
			Success: true,
			Method:  MethodAuthToken,
			Message: "authenticated using configured auth token",
		}, nil
	}

	// Strategy 3: interactive credential login.
	if hasCredentials {
		result := a.tryCredentialLogin(ctx, session)
		if result.Success {
			a.saveSessionCookies(session)
			a.recordSuccess(MethodCredentials)
			return result, nil
		}

		a.data.FailedAttempts++
		a.persist()
		metrics.AuthAttempts.WithLabelValues(string(MethodCredentials), "failure").Inc()
		return result, nil
	}

	a.data.FailedAttempts++
	a.persist()

	a.logger.Error("all authentication methods failed", nil,
		logger.Field{Key: "failed_attempts", Value: a.data.FailedAttempts})

	return AuthResult{
		Success: false,
		Message: "all authentication methods failed",
		Failure: FailureUnknown,
	}, nil
}

// Status summarizes the authenticator's persisted state.
func (a *Authenticator) Status() SessionData {
	return a.data
}

// ClearSession discards the persisted session.
func (a *Authenticator) ClearSession() {
	a.data = SessionData{CreatedAt: a.now()}
	a.persist()
	a.logger.Info("cleared saved session data")
}

// tryCachedSession injects the persisted cookie set and verifies it still
// authenticates. A cached session that fails verification is discarded, not
// retried.
func (a *Authenticator) tryCachedSession(ctx context.Context, session browser.Session) bool {
	if len(a.data.Cookies) == 0 {
		return false
	}

	if a.data.ValidUntil != nil && a.now().After(*a.data.ValidUntil) {
		a.logger.Info("saved session expired",
			logger.Field{Key: "valid_until", Value: a.data.ValidUntil})
		return false
	}

	a.logger.Info("trying saved session cookies",
		logger.Field{Key: "cookies", Value: len(a.data.Cookies)})

	if err := session.AddCookies(a.data.Cookies); err != nil {
		a.logger.Warn("failed to inject saved cookies",
			logger.Field{Key: "error", Value: err})
		return false
	}

	if err := session.Goto(a.cfg.BaseURL + "/feed"); err != nil {
		a.logger.Warn("navigation failed during session reuse",
			logger.Field{Key: "error", Value: err})
		return false
	}

	if a.verifyAuthenticated(session) {
		metrics.AuthAttempts.WithLabelValues(string(MethodSessionCookies), "success").Inc()
		return true
	}

	a.logger.Info("saved session cookies invalid, clearing saved session")
	a.data.Cookies = nil
	a.data.ValidUntil = nil
	a.persist()
	metrics.AuthAttempts.WithLabelValues(string(MethodSessionCookies), "failure").Inc()
	return false
}

// tryAuthToken injects the configured long-lived token as a session cookie
// and verifies it.
func (a *Authenticator) tryAuthToken(ctx context.Context, session browser.Session) bool {
	a.logger.Info("trying auth token cookie")

	domain := cookieDomain(a.cfg.BaseURL)
	err := session.AddCookies([]browser.Cookie{{
		Name:   "li_at",
		Value:  a.cfg.AuthToken,
		Domain: domain,
		Path:   "/",
	}})
	if err != nil {
		a.logger.Warn("failed to inject auth token cookie",
			logger.Field{Key: "error", Value: err})
		return false
	}

	if err := session.Goto(a.cfg.BaseURL + "/feed"); err != nil {
		a.logger.Warn("navigation failed during token authentication",
			logger.Field{Key: "error", Value: err})
		return false
	}

	if a.verifyAuthenticated(session) {
		metrics.AuthAttempts.WithLabelValues(string(MethodAuthToken), "success").Inc()
		return true
	}

	a.logger.Warn("auth token authentication failed")
	metrics.AuthAttempts.WithLabelValues(string(MethodAuthToken), "failure").Inc()
	return false
}

// tryCredentialLogin submits the login form and classifies the post-submit
// state.
func (a *Authenticator) tryCredentialLogin(ctx context.Context, session browser.Session) AuthResult {
	a.logger.Info("trying credential login")

	failure := func(kind FailureKind, message string) AuthResult {
		return AuthResult{
			Success:                    false,
			Method:                     MethodCredentials,
			Message:                    message,
			Failure:                    kind,
			RequiresManualIntervention: kind == FailureManualIntervention,
		}
	}

	if err := session.Goto(a.cfg.BaseURL + "/login"); err != nil {
		return failure(FailureTimeout, fmt.Sprintf("failed to open login page: %v", err))
	}
	if err := session.WaitForSelector(loginEmailSelector, 10*time.Second); err != nil {
		return failure(FailureTimeout, "login form did not appear")
	}

	if err := session.Locator(loginEmailSelector).Fill(a.cfg.Email); err != nil {
		return failure(FailureUnknown, fmt.Sprintf("failed to fill email: %v", err))
	}
	if err := session.Locator(loginPasswordSelector).Fill(a.cfg.Password); err != nil {
		return failure(FailureUnknown, fmt.Sprintf("failed to fill password: %v", err))
	}
	if err := session.Locator(loginSubmitSelector).Click(); err != nil {
		return failure(FailureUnknown, fmt.Sprintf("failed to submit login form: %v", err))
	}

	// Successful login redirects to an authenticated page.
	if a.onAuthenticatedPath(session.URL()) {
		return AuthResult{
			Success: true,
			Method:  MethodCredentials,
			Message: "credential login successful",
		}
	}

	// Security challenge: poll for manual resolution within a bounded window.
	if countAny(session, challengeSelectors) > 0 {
		if a.awaitChallengeResolution(ctx, session) {
			return AuthResult{
				Success: true,
				Method:  MethodCredentials,
				Message: "authenticated after security challenge",
			}
		}
		return failure(FailureManualIntervention, "security challenge not resolved within window")
	}

	if countAny(session, captchaSelectors) > 0 {
		a.logger.Warn("captcha detected during login")
		return failure(FailureManualIntervention, "CAPTCHA detected, manual intervention required")
	}

	if countAny(session, verificationSelectors) > 0 {
		a.logger.Warn("verification code required during login")
		return failure(FailureManualIntervention, "verification code required, manual intervention required")
	}

	for _, selector := range loginErrorSelectors {
		locator := session.Locator(selector)
		if count, _ := locator.Count(); count > 0 {
			text, _ := locator.First().TextContent()
			text = strings.TrimSpace(text)
			a.logger.Warn("login error reported by platform",
				logger.Field{Key: "message", Value: text})
			return failure(FailureInvalidCredentials, fmt.Sprintf("login error: %s", text))
		}
	}

	return failure(FailureUnknown, "login failed for an unknown reason")
}

// awaitChallengeResolution polls for the challenge to be resolved manually,
// up to the configured window.
func (a *Authenticator) awaitChallengeResolution(ctx context.Context, session browser.Session) bool {
	a.logger.Warn("security challenge detected, waiting for manual resolution",
		logger.Field{Key: "window", Value: a.cfg.ChallengeWindow.String()})

	deadline := a.now().Add(a.cfg.ChallengeWindow)
	for a.now().Before(deadline) {
		if err := a.sleep(ctx, a.cfg.ChallengeInterval); err != nil {
			return false
		}
		if a.onAuthenticatedPath(session.URL()) {
			a.logger.Info("security challenge resolved")
			return true
		}
	}

	a.logger.Warn("security challenge timed out")
	return false
}

// verifyAuthenticated probes whether the session is logged in, first by URL
// pattern, then by authenticated-only UI landmarks, finally by opening a
// protected endpoint.
func (a *Authenticator) verifyAuthenticated(session browser.Session) bool {
	current := session.URL()

	if a.onAuthenticatedPath(current) {
		return true
	}

	if countAny(session, authenticatedLandmarks) > 0 {
		return true
	}

	if !strings.Contains(current, "login") && !strings.Contains(current, "challenge") {
		if err := session.Goto(a.cfg.BaseURL + "/in/me"); err == nil {
			return !strings.Contains(session.URL(), "login")
		}
	}

	return false
}

func (a *Authenticator) onAuthenticatedPath(rawURL string) bool {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	for _, path := range authenticatedPaths {
		if strings.HasPrefix(parsed.Path, path) {
			return true
		}
	}
	return false
}

// saveSessionCookies persists the session's important cookies with a fresh
// validity window.
func (a *Authenticator) saveSessionCookies(session browser.Session) {
	cookies, err := session.Cookies()
	if err != nil {
		a.logger.Error("failed to read session cookies", err)
		return
	}

	kept := filterSessionCookies(cookies, strings.TrimPrefix(cookieHost(a.cfg.BaseURL), "www."))
	if len(kept) == 0 {
		return
	}

	validUntil := a.now().Add(a.cfg.SessionTTL)
	a.data.Cookies = kept
	a.data.ValidUntil = &validUntil
	a.persist()

	a.logger.Info("saved session cookies",
		logger.Field{Key: "cookies", Value: len(kept)},
		logger.Field{Key: "valid_until", Value: validUntil})
}

func (a *Authenticator) recordSuccess(method Method) {
	now := a.now()
	a.data.LastSuccessfulAuth = &now
	a.data.AuthMethod = method
	a.data.FailedAttempts = 0
	a.persist()
}

func (a *Authenticator) persist() {
	if err := a.store.Save(sessionDocument, &a.data); err != nil {
		a.logger.Error("failed to persist session data", err)
	}
}

// countAny returns the total element count across the given selectors.
func countAny(session browser.Session, selectors []string) int {
	total := 0
	for _, selector := range selectors {
		if count, err := session.Locator(selector).Count(); err == nil {
			total += count
		}
	}
	return total
}

// cookieDomain derives the cookie domain (with leading dot) from a base URL.
func cookieDomain(baseURL string) string {
	host := cookieHost(baseURL)
	if host == "" {
		return ""
	}
	// Strip a www prefix so the cookie covers all subdomains.
	host = strings.TrimPrefix(host, "www.")
	return "." + host
}

func cookieHost(baseURL string) string {
	parsed, err := url.Parse(baseURL)
	if err != nil {
		return ""
	}
	return parsed.Host
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
