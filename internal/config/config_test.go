package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

const minimalConfig = `
[workspace]
path = "/tmp/linkpilot-test"

[platform]
auth_token = "token-value-1234567890"
`

func TestLoadAppliesDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, minimalConfig))
	require.NoError(t, err)

	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, "text", cfg.Logging.Format)
	assert.Equal(t, "stdout", cfg.Logging.Output)
	assert.Equal(t, "https://www.linkedin.com", cfg.Platform.BaseURL)
	assert.Equal(t, 30000, cfg.Platform.TimeoutMs)
	assert.Equal(t, "UTC", cfg.Automation.Timezone)
	assert.Equal(t, 60, cfg.Automation.PollIntervalSeconds)
	assert.Equal(t, 60, cfg.Automation.CatchUpWindowMin)
	assert.Equal(t, "0 9 * * 1", cfg.Schedules.ProfileUpdate)
	assert.Equal(t, 50, cfg.Quota.MaxDailyActions)
	assert.Equal(t, 10, cfg.Quota.Limits["applications"])
	assert.Equal(t, 5, cfg.Applications.MaxSteps)
	assert.Equal(t, []string{"next", "review", "submit", "done"}, cfg.Applications.AdvancePriority)
	assert.Equal(t, "2", cfg.Applications.Defaults.YearsExperience)
	assert.Equal(t, "gpt-4o-mini", cfg.Content.Model)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.toml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read config file")
}

func TestLoadInvalidTOML(t *testing.T) {
	_, err := Load(writeConfig(t, "not [valid toml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse config file")
}

func TestLoadExpandsEnvReferences(t *testing.T) {
	t.Setenv("LP_TEST_PASSWORD", "secret-from-env")

	cfg, err := Load(writeConfig(t, `
[workspace]
path = "/tmp/linkpilot-test"

[platform]
email = "user@example.com"
password = "${LP_TEST_PASSWORD}"
`))
	require.NoError(t, err)
	assert.Equal(t, "secret-from-env", cfg.Platform.Password)
}

func TestLoadEnvReferenceDefault(t *testing.T) {
	os.Unsetenv("LP_TEST_ABSENT")

	cfg, err := Load(writeConfig(t, `
[workspace]
path = "/tmp/linkpilot-test"

[platform]
auth_token = "${LP_TEST_ABSENT:fallback-token}"
`))
	require.NoError(t, err)
	assert.Equal(t, "fallback-token", cfg.Platform.AuthToken)
}

func TestValidateMinimalConfig(t *testing.T) {
	cfg, err := Load(writeConfig(t, minimalConfig))
	require.NoError(t, err)
	assert.Empty(t, cfg.Validate())
}

func TestValidateRequiresAuthMethod(t *testing.T) {
	cfg, err := Load(writeConfig(t, `
[workspace]
path = "/tmp/linkpilot-test"
`))
	require.NoError(t, err)

	errs := cfg.Validate()
	require.NotEmpty(t, errs)
	assert.Contains(t, errs[0].Error(), "platform")
}

func TestValidateEmailWithoutPassword(t *testing.T) {
	cfg, err := Load(writeConfig(t, `
[workspace]
path = "/tmp/linkpilot-test"

[platform]
email = "user@example.com"
`))
	require.NoError(t, err)

	var found bool
	for _, e := range cfg.Validate() {
		if e.Error() == "platform.password is required when platform.email is set" {
			found = true
		}
	}
	assert.True(t, found)
}

func TestValidateBadCronExpression(t *testing.T) {
	cfg, err := Load(writeConfig(t, minimalConfig+`
[schedules]
engagement = "99 99 * * *"
`))
	require.NoError(t, err)

	errs := cfg.Validate()
	require.NotEmpty(t, errs)
	assert.Contains(t, errs[0].Error(), "schedules.engagement")
}

func TestValidateCollectsAllErrors(t *testing.T) {
	cfg := &Config{}
	cfg.Logging.Level = "loud"
	cfg.Logging.Format = "xml"
	cfg.Automation.PollIntervalSeconds = 60
	cfg.Automation.CatchUpWindowMin = 60
	cfg.Applications.MaxSteps = 5

	errs := cfg.Validate()
	assert.GreaterOrEqual(t, len(errs), 4, "workspace, auth, level and format should all be reported")
}

func TestValidateTelegramToken(t *testing.T) {
	cfg, err := Load(writeConfig(t, minimalConfig+`
[notifications.telegram]
enabled = true
token = "no-colon-here"
chat_id = 42
`))
	require.NoError(t, err)

	errs := cfg.Validate()
	require.NotEmpty(t, errs)
	assert.Contains(t, errs[0].Error(), "telegram token")
}

func TestMaskedCopy(t *testing.T) {
	cfg := &Config{}
	cfg.Platform.Password = "super-secret-password"
	cfg.Platform.AuthToken = "short"
	cfg.Content.APIKey = "sk-abcdefghijklmnop"

	masked := cfg.MaskedCopy()
	assert.Equal(t, "supe*************word", masked.Platform.Password)
	assert.Equal(t, "***", masked.Platform.AuthToken)
	assert.NotContains(t, masked.Content.APIKey, "abcdefghijklm")

	// The original is untouched.
	assert.Equal(t, "super-secret-password", cfg.Platform.Password)
}

func TestLoadEnvFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte(`
# comment
LP_TEST_ENV_KEY = from-file

MALFORMED LINE
`), 0644))

	t.Setenv("LP_TEST_ENV_KEY", "")
	require.NoError(t, LoadEnv(path))
	assert.Equal(t, "from-file", os.Getenv("LP_TEST_ENV_KEY"))
}

func TestLoadEnvOptionalMissingFile(t *testing.T) {
	assert.NoError(t, LoadEnvOptional(filepath.Join(t.TempDir(), "absent.env")))
}
