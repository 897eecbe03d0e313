package browser

import (
	"fmt"
	"io"
	"time"

	"github.com/playwright-community/playwright-go"
)

const (
	// DefaultTimeoutMs is the default navigation and action timeout.
	DefaultTimeoutMs = 30000
)

// PlaywrightDriver implements Driver on top of Playwright Chromium.
type PlaywrightDriver struct {
	pw        *playwright.Playwright
	timeoutMs float64
}

// NewPlaywrightDriver installs and starts Playwright. Install output is
// discarded so it cannot interfere with CLI output.
func NewPlaywrightDriver(timeoutMs int) (*PlaywrightDriver, error) {
	opts := &playwright.RunOptions{
		Verbose: false,
		Stdout:  io.Discard,
		Stderr:  io.Discard,
	}

	if err := playwright.Install(opts); err != nil {
		return nil, fmt.Errorf("failed to install playwright: %w", err)
	}

	pw, err := playwright.Run(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to start playwright: %w", err)
	}

	if timeoutMs <= 0 {
		timeoutMs = DefaultTimeoutMs
	}

	return &PlaywrightDriver{
		pw:        pw,
		timeoutMs: float64(timeoutMs),
	}, nil
}

// Launch starts a Chromium browser and returns a session wrapping a fresh
// context and page.
func (d *PlaywrightDriver) Launch(headless bool) (Session, error) {
	browser, err := d.pw.Chromium.Launch(playwright.BrowserTypeLaunchOptions{
		Headless: playwright.Bool(headless),
		Args:     []string{"--no-sandbox", "--disable-dev-shm-usage"},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to launch browser: %w", err)
	}

	context, err := browser.NewContext(playwright.BrowserNewContextOptions{})
	if err != nil {
		browser.Close()
		return nil, fmt.Errorf("failed to create context: %w", err)
	}

	page, err := context.NewPage()
	if err != nil {
		context.Close()
		browser.Close()
		return nil, fmt.Errorf("failed to create page: %w", err)
	}

	page.SetDefaultTimeout(d.timeoutMs)

	return &playwrightSession{
		browser:   browser,
		context:   context,
		page:      page,
		timeoutMs: d.timeoutMs,
	}, nil
}

// Close stops the Playwright instance.
func (d *PlaywrightDriver) Close() error {
	if err := d.pw.Stop(); err != nil {
		return fmt.Errorf("failed to stop playwright: %w", err)
	}
	return nil
}

// playwrightSession implements Session over a Playwright browser context.
type playwrightSession struct {
	browser   playwright.Browser
	context   playwright.BrowserContext
	page      playwright.Page
	timeoutMs float64
}

func (s *playwrightSession) Goto(url string) error {
	_, err := s.page.Goto(url, playwright.PageGotoOptions{
		Timeout:   playwright.Float(s.timeoutMs),
		WaitUntil: playwright.WaitUntilStateLoad,
	})
	if err != nil {
		return fmt.Errorf("navigation failed: %w", err)
	}
	return nil
}

func (s *playwrightSession) URL() string {
	return s.page.URL()
}

func (s *playwrightSession) WaitForSelector(selector string, timeout time.Duration) error {
	_, err := s.page.WaitForSelector(selector, playwright.PageWaitForSelectorOptions{
		Timeout: playwright.Float(float64(timeout.Milliseconds())),
	})
	if err != nil {
		return fmt.Errorf("wait failed: %w", err)
	}
	return nil
}

func (s *playwrightSession) Locator(selector string) Locator {
	return &playwrightLocator{locator: s.page.Locator(selector)}
}

func (s *playwrightSession) Content() (string, error) {
	return s.page.Content()
}

func (s *playwrightSession) AddCookies(cookies []Cookie) error {
	optional := make([]playwright.OptionalCookie, 0, len(cookies))
	for _, c := range cookies {
		cookie := playwright.OptionalCookie{
			Name:   c.Name,
			Value:  c.Value,
			Domain: playwright.String(c.Domain),
			Path:   playwright.String(c.Path),
		}
		if !c.Expires.IsZero() {
			cookie.Expires = playwright.Float(float64(c.Expires.Unix()))
		}
		optional = append(optional, cookie)
	}
	return s.context.AddCookies(optional)
}

func (s *playwrightSession) Cookies() ([]Cookie, error) {
	raw, err := s.context.Cookies()
	if err != nil {
		return nil, err
	}

	cookies := make([]Cookie, 0, len(raw))
	for _, c := range raw {
		cookie := Cookie{
			Name:   c.Name,
			Value:  c.Value,
			Domain: c.Domain,
			Path:   c.Path,
		}
		if c.Expires > 0 {
			cookie.Expires = time.Unix(int64(c.Expires), 0)
		}
		cookies = append(cookies, cookie)
	}
	return cookies, nil
}

func (s *playwrightSession) Close() error {
	// Best effort teardown, closing outer resources even when an inner close
	// fails.
	_ = s.page.Close()
	_ = s.context.Close()
	return s.browser.Close()
}

// playwrightLocator implements Locator over playwright.Locator.
type playwrightLocator struct {
	locator playwright.Locator
}

func (l *playwrightLocator) Count() (int, error) {
	return l.locator.Count()
}

func (l *playwrightLocator) First() Locator {
	return &playwrightLocator{locator: l.locator.First()}
}

func (l *playwrightLocator) Click() error {
	return l.locator.Click()
}

func (l *playwrightLocator) Fill(value string) error {
	return l.locator.Fill(value)
}

func (l *playwrightLocator) GetAttribute(name string) (string, error) {
	return l.locator.GetAttribute(name)
}

func (l *playwrightLocator) TextContent() (string, error) {
	return l.locator.TextContent()
}

func (l *playwrightLocator) All() ([]Locator, error) {
	raw, err := l.locator.All()
	if err != nil {
		return nil, err
	}
	locators := make([]Locator, 0, len(raw))
	for _, r := range raw {
		locators = append(locators, &playwrightLocator{locator: r})
	}
	return locators, nil
}

func (l *playwrightLocator) SetInputFiles(path string) error {
	return l.locator.SetInputFiles(path)
}

func (l *playwrightLocator) SelectOptionIndex(index int) error {
	_, err := l.locator.SelectOption(playwright.SelectOptionValues{
		Indexes: &[]int{index},
	})
	return err
}

func (l *playwrightLocator) IsVisible() (bool, error) {
	return l.locator.IsVisible()
}
