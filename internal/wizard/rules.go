package wizard

import (
	"fmt"
	"os"

	regexp "github.com/wasilibs/go-re2"
	"gopkg.in/yaml.v3"
)

// Rule maps a field-label pattern to the value filled into matching fields.
// Rules are evaluated in order; the first match wins.
type Rule struct {
	Name    string `yaml:"name"`
	Pattern string `yaml:"pattern"`
	Value   string `yaml:"value"`

	re *regexp.Regexp
}

// Defaults are the configured answers backing the built-in rules.
type Defaults struct {
	YearsExperience string
	Compensation    string
	PortfolioURL    string
	Phone           string
}

// RuleSet classifies free-text form fields by their label.
type RuleSet struct {
	rules []Rule
}

// DefaultRules builds the built-in rule table from the configured defaults.
// Rules with an empty value are omitted so unanswerable fields stay blank.
func DefaultRules(d Defaults) (*RuleSet, error) {
	if d.YearsExperience == "" {
		d.YearsExperience = "2"
	}
	if d.Compensation == "" {
		d.Compensation = "Negotiable"
	}

	return CompileRules([]Rule{
		{Name: "experience", Pattern: `(?i)(experience|years)`, Value: d.YearsExperience},
		{Name: "compensation", Pattern: `(?i)(salary|compensation|pay\b|rate\b)`, Value: d.Compensation},
		{Name: "portfolio", Pattern: `(?i)(website|portfolio|github|url)`, Value: d.PortfolioURL},
		{Name: "phone", Pattern: `(?i)(phone|mobile|cell)`, Value: d.Phone},
	})
}

// LoadRules reads a rule table from a YAML file, replacing the built-in
// heuristics entirely.
func LoadRules(path string) (*RuleSet, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read rules file: %w", err)
	}

	var rules []Rule
	if err := yaml.Unmarshal(data, &rules); err != nil {
		return nil, fmt.Errorf("parse rules file %s: %w", path, err)
	}

	return CompileRules(rules)
}

// CompileRules compiles rule patterns, dropping rules with empty values.
func CompileRules(rules []Rule) (*RuleSet, error) {
	set := &RuleSet{}
	for _, rule := range rules {
		if rule.Value == "" {
			continue
		}
		re, err := regexp.Compile(rule.Pattern)
		if err != nil {
			return nil, fmt.Errorf("compile rule %q: %w", rule.Name, err)
		}
		rule.re = re
		set.rules = append(set.rules, rule)
	}
	return set, nil
}

// Match returns the value for the first rule matching the field label, or
// false when no rule applies.
func (s *RuleSet) Match(label string) (string, bool) {
	for _, rule := range s.rules {
		if rule.re.MatchString(label) {
			return rule.Value, true
		}
	}
	return "", false
}

// coverLetterPattern detects free-text fields asking for a cover letter or
// motivation message.
var coverLetterPattern = regexp.MustCompile(`(?i)(cover\s*letter|motivation|why.*(join|interested|apply)|message to)`)

func isCoverLetterField(label string) bool {
	return coverLetterPattern.MatchString(label)
}

// affirmativePattern matches explicit yes-style option values.
var affirmativePattern = regexp.MustCompile(`(?i)^\s*(yes|y|true)\s*$`)
