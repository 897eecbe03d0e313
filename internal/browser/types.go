// Package browser defines the minimal browser-automation capability surface
// the automation core depends on, together with a Playwright-backed
// implementation. Core components program against the Driver, Session and
// Locator interfaces and never against Playwright types, so tests can drive
// them with the in-memory fake.
package browser

import (
	"time"
)

// Cookie is a browser cookie in driver-independent form.
type Cookie struct {
	Name    string    `json:"name"`
	Value   string    `json:"value"`
	Domain  string    `json:"domain"`
	Path    string    `json:"path"`
	Expires time.Time `json:"expires,omitempty"`
}

// Driver launches browsing sessions. The underlying driver is a single
// stateful resource: one session drives one logical flow at a time.
type Driver interface {
	// Launch starts a browser and returns a fresh session.
	Launch(headless bool) (Session, error)
	// Close releases the driver and any remaining sessions.
	Close() error
}

// Session is one authenticated browsing session (a browser context plus a
// single page).
type Session interface {
	// Goto navigates to the URL and waits for the page to load.
	Goto(url string) error
	// URL returns the current page URL.
	URL() string
	// WaitForSelector waits until an element matching the selector appears.
	WaitForSelector(selector string, timeout time.Duration) error
	// Locator returns a locator for elements matching the selector.
	Locator(selector string) Locator
	// Content returns the full HTML of the current page.
	Content() (string, error)
	// AddCookies injects cookies into the browsing context.
	AddCookies(cookies []Cookie) error
	// Cookies returns the current cookie set of the browsing context.
	Cookies() ([]Cookie, error)
	// Close closes the session and its underlying browser resources.
	Close() error
}

// Locator addresses zero or more elements on the current page.
type Locator interface {
	Count() (int, error)
	First() Locator
	Click() error
	Fill(value string) error
	GetAttribute(name string) (string, error)
	TextContent() (string, error)
	All() ([]Locator, error)
	SetInputFiles(path string) error
	SelectOptionIndex(index int) error
	IsVisible() (bool, error)
}
