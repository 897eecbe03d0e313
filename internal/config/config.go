package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/robfig/cron/v3"
)

// Load loads configuration from a TOML file, applies defaults and expands
// environment variable references.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	applyDefaults(&cfg)

	if err := expandEnvVars(&cfg); err != nil {
		return nil, fmt.Errorf("failed to expand environment variables: %w", err)
	}

	return &cfg, nil
}

// Validate checks the configuration for errors. It returns all problems found
// rather than stopping at the first one.
func (c *Config) Validate() []error {
	var errors []error

	if c.Workspace.Path == "" {
		errors = append(errors, fmt.Errorf("workspace.path is required"))
	} else if err := validatePath(c.Workspace.Path, "workspace.path"); err != nil {
		errors = append(errors, err)
	}

	// At least one authentication method must be configured. Without a token
	// or full credentials the automation can never obtain a session.
	hasCredentials := c.Platform.Email != "" && c.Platform.Password != ""
	if !hasCredentials && c.Platform.AuthToken == "" {
		errors = append(errors, fmt.Errorf("platform: either platform.auth_token or both platform.email and platform.password are required"))
	}
	if c.Platform.Email != "" && c.Platform.Password == "" {
		errors = append(errors, fmt.Errorf("platform.password is required when platform.email is set"))
	}

	if c.Logging.Level == "" {
		errors = append(errors, fmt.Errorf("logging.level is required"))
	} else {
		validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
		if !validLevels[strings.ToLower(c.Logging.Level)] {
			errors = append(errors, fmt.Errorf("invalid logging.level: %s (expected: debug, info, warn, error)", c.Logging.Level))
		}
	}

	if c.Logging.Format == "" {
		errors = append(errors, fmt.Errorf("logging.format is required"))
	} else {
		validFormats := map[string]bool{"json": true, "text": true}
		if !validFormats[strings.ToLower(c.Logging.Format)] {
			errors = append(errors, fmt.Errorf("invalid logging.format: %s (expected: json, text)", c.Logging.Format))
		}
	}

	if c.Logging.Output == "" {
		errors = append(errors, fmt.Errorf("logging.output is required"))
	}

	// Cron expressions must parse with the standard 5-field parser.
	schedules := map[string]string{
		"schedules.profile_update": c.Schedules.ProfileUpdate,
		"schedules.engagement":     c.Schedules.Engagement,
		"schedules.applications":   c.Schedules.Applications,
	}
	for field, expr := range schedules {
		if expr == "" {
			continue
		}
		if _, err := cron.ParseStandard(expr); err != nil {
			errors = append(errors, fmt.Errorf("invalid %s: %q: %v", field, expr, err))
		}
	}

	if c.Automation.ActionDelayMin < 0 || c.Automation.ActionDelayMax < c.Automation.ActionDelayMin {
		errors = append(errors, fmt.Errorf("automation: action_delay_max_seconds must be >= action_delay_min_seconds >= 0"))
	}
	if c.Automation.PollIntervalSeconds <= 0 {
		errors = append(errors, fmt.Errorf("automation.poll_interval_seconds must be positive"))
	}
	if c.Automation.CatchUpWindowMin <= 0 {
		errors = append(errors, fmt.Errorf("automation.catch_up_window_minutes must be positive"))
	}

	if c.Quota.MaxDailyActions < 0 {
		errors = append(errors, fmt.Errorf("quota.max_daily_actions cannot be negative"))
	}
	for category, limit := range c.Quota.Limits {
		if limit < 0 {
			errors = append(errors, fmt.Errorf("quota.limits.%s cannot be negative", category))
		}
	}

	if c.Applications.MaxSteps <= 0 {
		errors = append(errors, fmt.Errorf("applications.max_steps must be positive"))
	}

	if c.Content.Enabled && c.Content.APIKey == "" {
		errors = append(errors, fmt.Errorf("content.api_key is required when content generation is enabled"))
	}

	if c.Notifications.Telegram.Enabled {
		if c.Notifications.Telegram.Token == "" {
			errors = append(errors, fmt.Errorf("notifications.telegram.token is required when telegram is enabled"))
		} else if err := validateTelegramToken(c.Notifications.Telegram.Token); err != nil {
			errors = append(errors, err)
		}
		if c.Notifications.Telegram.ChatID == 0 {
			errors = append(errors, fmt.Errorf("notifications.telegram.chat_id is required when telegram is enabled"))
		}
	}

	return errors
}

func validateTelegramToken(token string) error {
	parts := strings.Split(token, ":")
	if len(parts) != 2 {
		return fmt.Errorf("telegram token has invalid format (expected format: <bot_id>:<token>, got: %s)", maskSecret(token))
	}
	for _, r := range parts[0] {
		if r < '0' || r > '9' {
			return fmt.Errorf("telegram token has invalid bot ID (expected digits only)")
		}
	}
	if len(parts[1]) < 10 {
		return fmt.Errorf("telegram token is too short")
	}
	return nil
}

func validatePath(path, fieldName string) error {
	if path == "" {
		return fmt.Errorf("%s cannot be empty", fieldName)
	}

	if strings.HasPrefix(path, "~") {
		return nil
	}

	if strings.Contains(path, "..") {
		return fmt.Errorf("%s contains potentially dangerous path traversal sequence", fieldName)
	}

	return nil
}

// applyDefaults fills in default values for unset fields.
func applyDefaults(c *Config) {
	if c.Workspace.Path == "" {
		c.Workspace.Path = "~/.linkpilot"
	}

	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "text"
	}
	if c.Logging.Output == "" {
		c.Logging.Output = "stdout"
	}

	if c.Platform.BaseURL == "" {
		c.Platform.BaseURL = "https://www.linkedin.com"
	}
	if c.Platform.TimeoutMs == 0 {
		c.Platform.TimeoutMs = 30000
	}

	if c.Automation.Timezone == "" {
		c.Automation.Timezone = "UTC"
	}
	if c.Automation.ActionDelayMin == 0 && c.Automation.ActionDelayMax == 0 {
		c.Automation.ActionDelayMin = 30
		c.Automation.ActionDelayMax = 120
	}
	if c.Automation.PollIntervalSeconds == 0 {
		c.Automation.PollIntervalSeconds = 60
	}
	if c.Automation.CatchUpWindowMin == 0 {
		c.Automation.CatchUpWindowMin = 60
	}

	if c.Schedules.ProfileUpdate == "" {
		c.Schedules.ProfileUpdate = "0 9 * * 1"
	}
	if c.Schedules.Engagement == "" {
		c.Schedules.Engagement = "0 10,14,18 * * *"
	}
	if c.Schedules.Applications == "" {
		c.Schedules.Applications = "0 11 * * 1-5"
	}

	if c.Quota.MaxDailyActions == 0 {
		c.Quota.MaxDailyActions = 50
	}
	if c.Quota.Limits == nil {
		c.Quota.Limits = map[string]int{
			"applications": 10,
			"likes":        20,
			"comments":     10,
			"connections":  5,
		}
	}

	if c.Applications.CVPath == "" {
		c.Applications.CVPath = "./cv/resume.pdf"
	}
	if c.Applications.MaxSteps == 0 {
		c.Applications.MaxSteps = 5
	}
	if len(c.Applications.AdvancePriority) == 0 {
		c.Applications.AdvancePriority = []string{"next", "review", "submit", "done"}
	}
	if c.Applications.Defaults.YearsExperience == "" {
		c.Applications.Defaults.YearsExperience = "2"
	}
	if c.Applications.Defaults.Compensation == "" {
		c.Applications.Defaults.Compensation = "Negotiable"
	}

	if c.Engagement.MaxLikes == 0 {
		c.Engagement.MaxLikes = 5
	}
	if c.Engagement.MaxComments == 0 {
		c.Engagement.MaxComments = 3
	}
	if c.Engagement.MaxConnections == 0 {
		c.Engagement.MaxConnections = 3
	}

	if c.Content.Model == "" {
		c.Content.Model = "gpt-4o-mini"
	}
	if c.Content.TimeoutSeconds == 0 {
		c.Content.TimeoutSeconds = 60
	}
}

// expandEnvVars expands ${VAR} references in secret-bearing fields and
// resolves ~ in paths.
func expandEnvVars(c *Config) error {
	c.Platform.Email = expandEnv(c.Platform.Email)
	c.Platform.Password = expandEnv(c.Platform.Password)
	c.Platform.AuthToken = expandEnv(c.Platform.AuthToken)
	c.Content.APIKey = expandEnv(c.Content.APIKey)
	c.Notifications.Telegram.Token = expandEnv(c.Notifications.Telegram.Token)

	c.Workspace.Path = expandHome(expandEnv(c.Workspace.Path))
	c.Applications.CVPath = expandHome(expandEnv(c.Applications.CVPath))
	c.Applications.RulesPath = expandHome(expandEnv(c.Applications.RulesPath))

	return nil
}

// expandEnv expands a ${VAR} or ${VAR:default} reference. Plain strings pass
// through unchanged.
func expandEnv(s string) string {
	if !strings.HasPrefix(s, "${") {
		return s
	}

	end := strings.Index(s, "}")
	if end == -1 {
		return s
	}

	content := s[2:end]
	if parts := strings.SplitN(content, ":", 2); len(parts) == 2 {
		key := parts[0]
		defaultVal := parts[1]
		if val := os.Getenv(key); val != "" {
			return val
		}
		return defaultVal
	}

	return os.Getenv(s[2:end])
}

// expandHome expands a leading ~ in a path.
func expandHome(path string) string {
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(home, path[2:])
	}
	return path
}
