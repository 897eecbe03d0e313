package content

import (
	"context"
	"strings"
)

const defaultCoverLetterTemplate = `Dear {{company}} hiring team,

I am excited to apply for the {{title}} position. My background matches the requirements of this role, and I would welcome the chance to discuss how I can contribute to your team.

Thank you for your consideration.`

// StaticGenerator produces deterministic template-based text. It is the
// fallback when no generation API is configured and never returns an error.
type StaticGenerator struct {
	coverLetterTemplate string
}

// NewStaticGenerator creates a static generator. An empty template falls
// back to the built-in one.
func NewStaticGenerator(coverLetterTemplate string) *StaticGenerator {
	if strings.TrimSpace(coverLetterTemplate) == "" {
		coverLetterTemplate = defaultCoverLetterTemplate
	}
	return &StaticGenerator{coverLetterTemplate: coverLetterTemplate}
}

func (g *StaticGenerator) CoverLetter(_ context.Context, job JobContext) (string, error) {
	letter := g.coverLetterTemplate
	letter = strings.ReplaceAll(letter, "{{title}}", fallback(job.Title, "advertised"))
	letter = strings.ReplaceAll(letter, "{{company}}", fallback(job.Company, "your company's"))
	return letter, nil
}

func (g *StaticGenerator) Comment(_ context.Context, _ string) (string, error) {
	return "Thanks for sharing, this is a really interesting perspective.", nil
}

func (g *StaticGenerator) ProfileAdvice(_ context.Context, _ string) (string, error) {
	return "Content generation is not configured. Review the profile snapshot manually for missing sections, outdated roles and skills worth highlighting.", nil
}

func fallback(value, alt string) string {
	if strings.TrimSpace(value) == "" {
		return alt
	}
	return value
}
