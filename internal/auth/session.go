package auth

import (
	"time"

	"github.com/aatumaykin/linkpilot/internal/browser"
)

const sessionDocument = "session"

// Method identifies which authentication strategy produced a session.
type Method string

const (
	MethodSessionCookies Method = "session_cookies"
	MethodAuthToken      Method = "auth_token"
	MethodCredentials    Method = "credentials"
)

// SessionData is the persisted reusable session.
type SessionData struct {
	CreatedAt          time.Time        `json:"created_at"`
	LastSuccessfulAuth *time.Time       `json:"last_successful_auth,omitempty"`
	AuthMethod         Method           `json:"auth_method,omitempty"`
	FailedAttempts     int              `json:"failed_attempts"`
	Cookies            []browser.Cookie `json:"cookies,omitempty"`
	ValidUntil         *time.Time       `json:"valid_until,omitempty"`
}

// importantCookies are the cookie names worth persisting for session reuse.
var importantCookies = []string{"li_at", "JSESSIONID", "liap", "li_mc", "bcookie", "bscookie"}

// filterSessionCookies keeps cookies that matter for authentication: the
// known session cookie names plus anything scoped to the platform domain.
func filterSessionCookies(cookies []browser.Cookie, domain string) []browser.Cookie {
	var kept []browser.Cookie
	for _, cookie := range cookies {
		if containsDomain(cookie.Domain, domain) {
			kept = append(kept, cookie)
			continue
		}
		for _, name := range importantCookies {
			if cookie.Name == name {
				kept = append(kept, cookie)
				break
			}
		}
	}
	return kept
}

func containsDomain(cookieDomain, domain string) bool {
	if cookieDomain == "" || domain == "" {
		return false
	}
	if cookieDomain == domain || cookieDomain == "."+domain {
		return true
	}
	return len(cookieDomain) > len(domain) &&
		cookieDomain[len(cookieDomain)-len(domain)-1:] == "."+domain
}
