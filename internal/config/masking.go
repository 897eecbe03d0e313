package config

import (
	"strings"
)

// maskSecret masks a secret, keeping only the first and last 4 characters.
func maskSecret(secret string) string {
	if secret == "" {
		return ""
	}

	if len(secret) < 8 {
		return "***"
	}

	prefix := secret[:4]
	suffix := secret[len(secret)-4:]
	masked := strings.Repeat("*", len(secret)-8)

	return prefix + masked + suffix
}

// MaskedCopy returns a copy of the configuration with all secret-bearing
// fields masked, suitable for display and diagnostics.
func (c *Config) MaskedCopy() Config {
	masked := *c
	masked.Platform.Password = maskSecret(c.Platform.Password)
	masked.Platform.AuthToken = maskSecret(c.Platform.AuthToken)
	masked.Content.APIKey = maskSecret(c.Content.APIKey)
	masked.Notifications.Telegram.Token = maskSecret(c.Notifications.Telegram.Token)
	return masked
}
