package wizard

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultRulesMatching(t *testing.T) {
	rules, err := DefaultRules(Defaults{
		YearsExperience: "3",
		Compensation:    "Negotiable",
		PortfolioURL:    "https://example.com/me",
		Phone:           "+1-555-0100",
	})
	require.NoError(t, err)

	tests := []struct {
		label string
		want  string
	}{
		{"Years of experience with Go", "3"},
		{"How much experience do you have?", "3"},
		{"Expected salary", "Negotiable"},
		{"Desired compensation range", "Negotiable"},
		{"Portfolio website", "https://example.com/me"},
		{"GitHub profile URL", "https://example.com/me"},
		{"Phone number", "+1-555-0100"},
		{"Mobile", "+1-555-0100"},
	}

	for _, tt := range tests {
		value, ok := rules.Match(tt.label)
		require.True(t, ok, "label %q should match", tt.label)
		assert.Equal(t, tt.want, value, "label %q", tt.label)
	}

	_, ok := rules.Match("Why do you want this job?")
	assert.False(t, ok)
}

func TestDefaultRulesOrderPrecedence(t *testing.T) {
	rules, err := DefaultRules(Defaults{YearsExperience: "5", Compensation: "Negotiable"})
	require.NoError(t, err)

	// "years of experience in sales" matches the experience rule first even
	// though later rules could also be made to match similar text.
	value, ok := rules.Match("years of experience required")
	require.True(t, ok)
	assert.Equal(t, "5", value)
}

func TestRulesWithEmptyValuesAreDropped(t *testing.T) {
	rules, err := DefaultRules(Defaults{})
	require.NoError(t, err)

	// No portfolio or phone configured, so those fields stay blank.
	_, ok := rules.Match("Portfolio website")
	assert.False(t, ok)
	_, ok = rules.Match("Phone number")
	assert.False(t, ok)

	// Experience and compensation fall back to built-in defaults.
	value, ok := rules.Match("Years of experience")
	require.True(t, ok)
	assert.Equal(t, "2", value)
}

func TestLoadRulesFromYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rules.yaml")
	content := `
- name: clearance
  pattern: (?i)security clearance
  value: "No"
- name: notice
  pattern: (?i)notice period
  value: "2 weeks"
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	rules, err := LoadRules(path)
	require.NoError(t, err)

	value, ok := rules.Match("Do you hold a security clearance?")
	require.True(t, ok)
	assert.Equal(t, "No", value)

	value, ok = rules.Match("What is your notice period?")
	require.True(t, ok)
	assert.Equal(t, "2 weeks", value)

	_, ok = rules.Match("Years of experience")
	assert.False(t, ok)
}

func TestLoadRulesInvalidPattern(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rules.yaml")
	require.NoError(t, os.WriteFile(path, []byte("- name: bad\n  pattern: '('\n  value: x\n"), 0644))

	_, err := LoadRules(path)
	assert.Error(t, err)
}

func TestCoverLetterFieldDetection(t *testing.T) {
	assert.True(t, isCoverLetterField("Cover letter"))
	assert.True(t, isCoverLetterField("cover  letter (optional)"))
	assert.True(t, isCoverLetterField("Why are you interested in this role?"))
	assert.True(t, isCoverLetterField("Message to the hiring manager"))
	assert.False(t, isCoverLetterField("Years of experience"))
}
