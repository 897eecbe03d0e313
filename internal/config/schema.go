// Package config provides configuration loading and validation for LinkPilot.
// It supports TOML configuration files with environment variable expansion,
// default values, and comprehensive validation.
//
// Configuration structure:
//   - [workspace]: Workspace directory for persistent state and reports
//   - [logging]: Logging level, format, and output
//   - [platform]: Target platform credentials and browser settings
//   - [automation]: Global automation toggles, timezone, pacing and polling
//   - [schedules]: Cron expressions per task type
//   - [quota]: Daily action limits, overall and per category
//   - [applications]: Job application wizard settings
//   - [engagement]: Feed engagement settings
//   - [content]: Content generation provider settings
//   - [notifications]: Notification delivery settings
//
// Environment variables can be referenced using ${VAR} or ${VAR:default}
// syntax. For example: password = "${LINKEDIN_PASSWORD}"
package config

// Config represents the main application configuration.
type Config struct {
	Workspace     WorkspaceConfig     `toml:"workspace"`
	Logging       LoggingConfig       `toml:"logging"`
	Platform      PlatformConfig      `toml:"platform"`
	Automation    AutomationConfig    `toml:"automation"`
	Schedules     SchedulesConfig     `toml:"schedules"`
	Quota         QuotaConfig         `toml:"quota"`
	Applications  ApplicationsConfig  `toml:"applications"`
	Engagement    EngagementConfig    `toml:"engagement"`
	Content       ContentConfig       `toml:"content"`
	Notifications NotificationsConfig `toml:"notifications"`
}

// WorkspaceConfig holds the workspace directory settings.
type WorkspaceConfig struct {
	Path string `toml:"path"`
}

// LoggingConfig holds the logging settings.
type LoggingConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
	Output string `toml:"output"`
}

// PlatformConfig holds credentials and browser settings for the target platform.
type PlatformConfig struct {
	BaseURL   string `toml:"base_url"`
	Email     string `toml:"email"`
	Password  string `toml:"password"`
	AuthToken string `toml:"auth_token"` // long-lived li_at session cookie
	TimeoutMs int    `toml:"timeout_ms"`
	Headless  bool   `toml:"headless"`
}

// AutomationConfig holds global automation behavior settings.
type AutomationConfig struct {
	Enabled             bool   `toml:"enabled"`
	SafeMode            bool   `toml:"safe_mode"`
	DryRun              bool   `toml:"dry_run"`
	Timezone            string `toml:"timezone"`
	ActionDelayMin      int    `toml:"action_delay_min_seconds"`
	ActionDelayMax      int    `toml:"action_delay_max_seconds"`
	PollIntervalSeconds int    `toml:"poll_interval_seconds"`
	CatchUpWindowMin    int    `toml:"catch_up_window_minutes"`
}

// SchedulesConfig holds cron expressions per task type (standard 5-field).
type SchedulesConfig struct {
	ProfileUpdate string `toml:"profile_update"`
	Engagement    string `toml:"engagement"`
	Applications  string `toml:"applications"`
}

// QuotaConfig holds daily action limits. MaxDailyActions is the combined
// overall limit across all categories; Limits holds per-category sub-limits.
type QuotaConfig struct {
	MaxDailyActions int            `toml:"max_daily_actions"`
	Limits          map[string]int `toml:"limits"`
}

// ApplicationsConfig holds job application wizard settings.
type ApplicationsConfig struct {
	// Targets are job posting URLs processed during scheduled and daily
	// application rounds.
	Targets             []string            `toml:"targets"`
	CVPath              string              `toml:"cv_path"`
	CoverLetterTemplate string              `toml:"cover_letter_template"`
	MaxSteps            int                 `toml:"max_steps"`
	AdvancePriority     []string            `toml:"advance_priority"`
	Blocklist           []string            `toml:"blocklist"`
	RulesPath           string              `toml:"rules_path"`
	Defaults            ApplicationDefaults `toml:"defaults"`
}

// ApplicationDefaults holds default answers for wizard free-text questions.
type ApplicationDefaults struct {
	YearsExperience string `toml:"years_experience"`
	Compensation    string `toml:"compensation"`
	PortfolioURL    string `toml:"portfolio_url"`
	Phone           string `toml:"phone"`
}

// EngagementConfig holds feed engagement settings.
type EngagementConfig struct {
	Keywords       []string `toml:"keywords"`
	MaxLikes       int      `toml:"max_likes"`
	MaxComments    int      `toml:"max_comments"`
	MaxConnections int      `toml:"max_connections"`
}

// ContentConfig holds content generation provider settings.
type ContentConfig struct {
	Enabled        bool   `toml:"enabled"`
	APIKey         string `toml:"api_key"`
	BaseURL        string `toml:"base_url"`
	Model          string `toml:"model"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// NotificationsConfig holds notification delivery settings.
type NotificationsConfig struct {
	Telegram TelegramConfig `toml:"telegram"`
}

// TelegramConfig holds Telegram notification settings.
type TelegramConfig struct {
	Enabled bool   `toml:"enabled"`
	Token   string `toml:"token"`
	ChatID  int64  `toml:"chat_id"`
}
