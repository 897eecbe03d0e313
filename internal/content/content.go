// Package content generates text used by automation flows: cover letters,
// post comments and profile improvement advice. An OpenAI-backed generator
// is used when configured, with a static template generator as fallback so
// automation never blocks on a missing API key.
package content

import (
	"context"
	"time"

	"github.com/aatumaykin/linkpilot/internal/logger"
)

// JobContext describes the job an application text is generated for.
type JobContext struct {
	Title       string
	Company     string
	Description string
}

// Generator produces platform-ready text.
type Generator interface {
	// CoverLetter produces a short cover letter for the job.
	CoverLetter(ctx context.Context, job JobContext) (string, error)

	// Comment produces a short, relevant comment for a post.
	Comment(ctx context.Context, postText string) (string, error)

	// ProfileAdvice produces improvement suggestions for a profile rendered
	// as markdown.
	ProfileAdvice(ctx context.Context, profileMarkdown string) (string, error)
}

// Config holds content generation settings.
type Config struct {
	Enabled bool
	APIKey  string
	BaseURL string
	Model   string
	Timeout time.Duration

	// CoverLetterTemplate backs the static generator. Supports {{title}}
	// and {{company}} placeholders.
	CoverLetterTemplate string
}

// New selects a generator for the configuration. Without an enabled API key
// the static generator is returned.
func New(cfg Config, log *logger.Logger) Generator {
	if cfg.Enabled && cfg.APIKey != "" {
		log.Info("content generation enabled",
			logger.Field{Key: "model", Value: cfg.Model})
		return NewOpenAIGenerator(cfg, log)
	}

	log.Info("content generation disabled, using static templates")
	return NewStaticGenerator(cfg.CoverLetterTemplate)
}
