package content

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/aatumaykin/linkpilot/internal/logger"
	"github.com/aatumaykin/linkpilot/internal/retry"
)

const (
	defaultModel   = "gpt-4o-mini"
	defaultTimeout = 30 * time.Second
)

// OpenAIGenerator generates text through an OpenAI-compatible chat
// completion API. Transient API failures are retried with backoff.
type OpenAIGenerator struct {
	client  openai.Client
	model   string
	timeout time.Duration
	logger  *logger.Logger
}

// NewOpenAIGenerator creates a generator for the configured API.
func NewOpenAIGenerator(cfg Config, log *logger.Logger) *OpenAIGenerator {
	opts := []option.RequestOption{option.WithAPIKey(cfg.APIKey)}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}

	model := cfg.Model
	if model == "" {
		model = defaultModel
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	return &OpenAIGenerator{
		client:  openai.NewClient(opts...),
		model:   model,
		timeout: timeout,
		logger:  log,
	}
}

func (g *OpenAIGenerator) CoverLetter(ctx context.Context, job JobContext) (string, error) {
	system := "You write short, professional cover letters. Three paragraphs at most, no placeholders, no salutation fields left blank."
	prompt := fmt.Sprintf("Write a cover letter for the position %q at %q.", job.Title, job.Company)
	if job.Description != "" {
		prompt += "\n\nJob description:\n" + truncate(job.Description, 4000)
	}
	return g.complete(ctx, system, prompt)
}

func (g *OpenAIGenerator) Comment(ctx context.Context, postText string) (string, error) {
	system := "You write brief, thoughtful professional comments for social posts. One or two sentences, no hashtags, no emoji."
	prompt := "Write a comment reacting to this post:\n\n" + truncate(postText, 2000)
	return g.complete(ctx, system, prompt)
}

func (g *OpenAIGenerator) ProfileAdvice(ctx context.Context, profileMarkdown string) (string, error) {
	system := "You are a career coach reviewing a professional profile. Give concrete, prioritized improvement suggestions as a short markdown list."
	prompt := "Review this profile and suggest improvements:\n\n" + truncate(profileMarkdown, 8000)
	return g.complete(ctx, system, prompt)
}

func (g *OpenAIGenerator) complete(ctx context.Context, system, prompt string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	text, err := retry.Do(ctx, func() (string, error) {
		completion, err := g.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
			Model: openai.ChatModel(g.model),
			Messages: []openai.ChatCompletionMessageParamUnion{
				openai.SystemMessage(system),
				openai.UserMessage(prompt),
			},
		})
		if err != nil {
			return "", err
		}
		if len(completion.Choices) == 0 {
			return "", fmt.Errorf("completion returned no choices")
		}
		return strings.TrimSpace(completion.Choices[0].Message.Content), nil
	}, retry.Config{})
	if err != nil {
		g.logger.Error("content generation failed", err,
			logger.Field{Key: "model", Value: g.model})
		return "", fmt.Errorf("generate content: %w", err)
	}

	return text, nil
}

// truncate bounds prompt input, backing up to a rune boundary so a clipped
// multi-byte character never yields invalid UTF-8.
func truncate(text string, limit int) string {
	if len(text) <= limit {
		return text
	}
	for limit > 0 && !utf8.RuneStart(text[limit]) {
		limit--
	}
	return text[:limit]
}
