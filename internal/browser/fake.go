package browser

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// FakeDriver is an in-memory Driver implementation for tests. It always
// returns the configured session.
type FakeDriver struct {
	Session     *FakeSession
	LaunchErr   error
	LaunchCount int
}

// Launch returns the configured fake session.
func (d *FakeDriver) Launch(headless bool) (Session, error) {
	d.LaunchCount++
	if d.LaunchErr != nil {
		return nil, d.LaunchErr
	}
	return d.Session, nil
}

// Close is a no-op.
func (d *FakeDriver) Close() error { return nil }

// FakePage is one scripted page: selector patterns mapped to elements.
// Selectors match by exact string or, for selector lists separated by
// commas, by any listed alternative.
type FakePage struct {
	Elements map[string][]*FakeElement
	HTML     string
}

// FakeSession is a scriptable in-memory Session. Pages are keyed by URL;
// Goto switches the current page (through Redirects when configured) and
// records every visited URL.
type FakeSession struct {
	Pages       map[string]*FakePage
	Redirects   map[string]string
	CurrentURL  string
	GotoErr     error
	VisitedURLs []string
	CookieJar   []Cookie
	Closed      bool
}

// NewFakeSession creates an empty fake session.
func NewFakeSession() *FakeSession {
	return &FakeSession{
		Pages:     make(map[string]*FakePage),
		Redirects: make(map[string]string),
	}
}

// AddPage registers a scripted page under the URL.
func (s *FakeSession) AddPage(url string, page *FakePage) {
	if page.Elements == nil {
		page.Elements = make(map[string][]*FakeElement)
	}
	s.Pages[url] = page
}

// SetURL moves the session to the URL without recording a navigation.
func (s *FakeSession) SetURL(url string) {
	s.CurrentURL = url
}

func (s *FakeSession) Goto(url string) error {
	if s.GotoErr != nil {
		return s.GotoErr
	}
	s.VisitedURLs = append(s.VisitedURLs, url)
	if target, ok := s.Redirects[url]; ok {
		url = target
	}
	s.CurrentURL = url
	return nil
}

func (s *FakeSession) URL() string {
	return s.CurrentURL
}

func (s *FakeSession) WaitForSelector(selector string, timeout time.Duration) error {
	if len(s.find(selector)) == 0 {
		return fmt.Errorf("timeout waiting for selector: %s", selector)
	}
	return nil
}

func (s *FakeSession) Locator(selector string) Locator {
	return &fakeLocator{session: s, selector: selector}
}

func (s *FakeSession) Content() (string, error) {
	if page := s.currentPage(); page != nil {
		return page.HTML, nil
	}
	return "", nil
}

func (s *FakeSession) AddCookies(cookies []Cookie) error {
	s.CookieJar = append(s.CookieJar, cookies...)
	return nil
}

func (s *FakeSession) Cookies() ([]Cookie, error) {
	return s.CookieJar, nil
}

func (s *FakeSession) Close() error {
	s.Closed = true
	return nil
}

func (s *FakeSession) currentPage() *FakePage {
	return s.Pages[s.CurrentURL]
}

// find resolves a selector against the current page. Comma-separated
// selector alternatives match any scripted entry for one alternative.
func (s *FakeSession) find(selector string) []*FakeElement {
	page := s.currentPage()
	if page == nil {
		return nil
	}

	if elements, ok := page.Elements[selector]; ok {
		return elements
	}

	var matched []*FakeElement
	seen := make(map[*FakeElement]bool)
	for _, alt := range strings.Split(selector, ",") {
		alt = strings.TrimSpace(alt)
		for key, elements := range page.Elements {
			for _, keyAlt := range strings.Split(key, ",") {
				if strings.TrimSpace(keyAlt) != alt {
					continue
				}
				for _, el := range elements {
					if !seen[el] {
						seen[el] = true
						matched = append(matched, el)
					}
				}
			}
		}
	}

	// Stable ordering keeps step traces deterministic.
	sort.SliceStable(matched, func(i, j int) bool { return matched[i].order < matched[j].order })
	return matched
}

var fakeElementOrder int

// FakeElement is one scripted element.
type FakeElement struct {
	Text     string
	Attrs    map[string]string
	Hidden   bool
	ClickErr error

	// OnClick runs on every click, letting scripts mutate the session
	// (switch pages, reveal elements).
	OnClick func()

	Clicks      int
	FillCalls   []string
	FileUploads []string
	Selected    []int

	order int
}

// NewFakeElement creates a scripted element with the given attributes.
func NewFakeElement(attrs map[string]string) *FakeElement {
	fakeElementOrder++
	if attrs == nil {
		attrs = make(map[string]string)
	}
	return &FakeElement{Attrs: attrs, order: fakeElementOrder}
}

// fakeLocator implements Locator over a live selector query, mirroring how a
// real locator re-resolves on every action.
type fakeLocator struct {
	session  *FakeSession
	selector string
	first    bool
	element  *FakeElement
}

func (l *fakeLocator) resolve() []*FakeElement {
	if l.element != nil {
		return []*FakeElement{l.element}
	}
	elements := l.session.find(l.selector)
	if l.first && len(elements) > 1 {
		return elements[:1]
	}
	return elements
}

func (l *fakeLocator) Count() (int, error) {
	return len(l.resolve()), nil
}

func (l *fakeLocator) First() Locator {
	return &fakeLocator{session: l.session, selector: l.selector, first: true}
}

func (l *fakeLocator) Click() error {
	elements := l.resolve()
	if len(elements) == 0 {
		return fmt.Errorf("no element matching selector: %s", l.selector)
	}
	el := elements[0]
	if el.ClickErr != nil {
		return el.ClickErr
	}
	el.Clicks++
	if el.OnClick != nil {
		el.OnClick()
	}
	return nil
}

func (l *fakeLocator) Fill(value string) error {
	elements := l.resolve()
	if len(elements) == 0 {
		return fmt.Errorf("no element matching selector: %s", l.selector)
	}
	elements[0].FillCalls = append(elements[0].FillCalls, value)
	return nil
}

func (l *fakeLocator) GetAttribute(name string) (string, error) {
	elements := l.resolve()
	if len(elements) == 0 {
		return "", fmt.Errorf("no element matching selector: %s", l.selector)
	}
	return elements[0].Attrs[name], nil
}

func (l *fakeLocator) TextContent() (string, error) {
	elements := l.resolve()
	if len(elements) == 0 {
		return "", fmt.Errorf("no element matching selector: %s", l.selector)
	}
	return elements[0].Text, nil
}

func (l *fakeLocator) All() ([]Locator, error) {
	elements := l.resolve()
	locators := make([]Locator, 0, len(elements))
	for _, el := range elements {
		locators = append(locators, &fakeLocator{session: l.session, selector: l.selector, element: el})
	}
	return locators, nil
}

func (l *fakeLocator) SetInputFiles(path string) error {
	elements := l.resolve()
	if len(elements) == 0 {
		return fmt.Errorf("no element matching selector: %s", l.selector)
	}
	elements[0].FileUploads = append(elements[0].FileUploads, path)
	return nil
}

func (l *fakeLocator) SelectOptionIndex(index int) error {
	elements := l.resolve()
	if len(elements) == 0 {
		return fmt.Errorf("no element matching selector: %s", l.selector)
	}
	elements[0].Selected = append(elements[0].Selected, index)
	return nil
}

func (l *fakeLocator) IsVisible() (bool, error) {
	elements := l.resolve()
	if len(elements) == 0 {
		return false, nil
	}
	return !elements[0].Hidden, nil
}
