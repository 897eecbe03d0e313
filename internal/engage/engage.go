// Package engage performs daily feed engagement: liking and commenting on
// relevant posts and sending connection requests. Every action is gated
// through the quota ledger and paced with randomized delays. Failures are
// accumulated per action, never aborting the whole run.
package engage

import (
	"context"
	"fmt"
	"strings"

	"github.com/aatumaykin/linkpilot/internal/browser"
	"github.com/aatumaykin/linkpilot/internal/content"
	"github.com/aatumaykin/linkpilot/internal/logger"
)

// Quota ledger categories used by engagement actions.
const (
	CategoryLikes       = "likes"
	CategoryComments    = "comments"
	CategoryConnections = "connections"
)

const (
	postTextSelector      = `.feed-shared-text__text-view, .feed-shared-inline-show-more-text`
	likeButtonSelector    = `button[aria-label*="React Like"], button[data-control-name="like"]`
	commentButtonSelector = `button[aria-label*="Comment"], button[data-control-name="comment"]`
	commentInputSelector  = `.ql-editor, div[role="textbox"]`
	commentSubmitSelector = `button[aria-label*="Post comment"], button.comments-comment-box__submit-button`
	connectButtonSelector = `button[aria-label*="Connect"], button[data-control-name="connect"]`
	sendNowSelector       = `button[aria-label="Send now"], button[aria-label="Send without a note"]`
)

// Config holds engagement settings.
type Config struct {
	BaseURL        string
	Keywords       []string
	MaxLikes       int
	MaxComments    int
	MaxConnections int
}

// QuotaGate gates and records quota-limited actions.
type QuotaGate interface {
	CanPerform(category string) bool
	Record(category string) error
}

// Summary reports what one engagement run accomplished. Errors are
// accumulated per action; the run is a partial success when any count is
// nonzero.
type Summary struct {
	Likes       int
	Comments    int
	Connections int
	Errors      []string
}

// Engager drives one engagement run over an authenticated session.
type Engager struct {
	cfg       Config
	quota     QuotaGate
	generator content.Generator
	logger    *logger.Logger

	wait func(ctx context.Context) error
}

// New creates an Engager. pacer may be nil to disable pacing delays.
func New(cfg Config, quota QuotaGate, generator content.Generator, pacer *browser.Pacer, log *logger.Logger) *Engager {
	wait := func(ctx context.Context) error { return nil }
	if pacer != nil {
		wait = pacer.Wait
	}

	return &Engager{
		cfg:       cfg,
		quota:     quota,
		generator: generator,
		logger:    log,
		wait:      wait,
	}
}

// Run performs likes, comments and connection requests up to their
// configured and quota limits.
func (e *Engager) Run(ctx context.Context, session browser.Session) (Summary, error) {
	summary := Summary{}

	if err := session.Goto(e.cfg.BaseURL + "/feed"); err != nil {
		return summary, fmt.Errorf("open feed: %w", err)
	}

	e.likePosts(ctx, session, &summary)
	e.commentOnPosts(ctx, session, &summary)
	e.sendConnectionRequests(ctx, session, &summary)

	e.logger.Info("engagement run complete",
		logger.Field{Key: "likes", Value: summary.Likes},
		logger.Field{Key: "comments", Value: summary.Comments},
		logger.Field{Key: "connections", Value: summary.Connections},
		logger.Field{Key: "errors", Value: len(summary.Errors)})

	return summary, nil
}

func (e *Engager) likePosts(ctx context.Context, session browser.Session, summary *Summary) {
	texts := e.postTexts(session)
	buttons, err := session.Locator(likeButtonSelector).All()
	if err != nil {
		summary.Errors = append(summary.Errors, fmt.Sprintf("find like buttons: %v", err))
		return
	}

	for i, button := range buttons {
		if ctx.Err() != nil {
			return
		}
		if summary.Likes >= e.cfg.MaxLikes {
			break
		}
		if !e.quota.CanPerform(CategoryLikes) {
			e.logger.Info("like quota exhausted, stopping")
			break
		}
		if i < len(texts) && !e.relevant(texts[i]) {
			continue
		}
		// Skip posts already liked.
		if pressed, err := button.GetAttribute("aria-pressed"); err == nil && pressed == "true" {
			continue
		}

		if err := button.Click(); err != nil {
			summary.Errors = append(summary.Errors, fmt.Sprintf("like post %d: %v", i+1, err))
			continue
		}

		summary.Likes++
		if err := e.quota.Record(CategoryLikes); err != nil {
			summary.Errors = append(summary.Errors, fmt.Sprintf("record like: %v", err))
		}
		_ = e.wait(ctx)
	}
}

func (e *Engager) commentOnPosts(ctx context.Context, session browser.Session, summary *Summary) {
	texts := e.postTexts(session)
	buttons, err := session.Locator(commentButtonSelector).All()
	if err != nil {
		summary.Errors = append(summary.Errors, fmt.Sprintf("find comment buttons: %v", err))
		return
	}

	for i, button := range buttons {
		if ctx.Err() != nil {
			return
		}
		if summary.Comments >= e.cfg.MaxComments {
			break
		}
		if !e.quota.CanPerform(CategoryComments) {
			e.logger.Info("comment quota exhausted, stopping")
			break
		}
		if i >= len(texts) || !e.relevant(texts[i]) {
			continue
		}

		comment, err := e.generator.Comment(ctx, texts[i])
		if err != nil || strings.TrimSpace(comment) == "" {
			summary.Errors = append(summary.Errors, fmt.Sprintf("generate comment for post %d: %v", i+1, err))
			continue
		}

		if err := e.postComment(ctx, session, button, comment); err != nil {
			summary.Errors = append(summary.Errors, fmt.Sprintf("comment on post %d: %v", i+1, err))
			continue
		}

		summary.Comments++
		if err := e.quota.Record(CategoryComments); err != nil {
			summary.Errors = append(summary.Errors, fmt.Sprintf("record comment: %v", err))
		}
		_ = e.wait(ctx)
	}
}

func (e *Engager) postComment(ctx context.Context, session browser.Session, button browser.Locator, comment string) error {
	if err := button.Click(); err != nil {
		return fmt.Errorf("open comment box: %w", err)
	}
	_ = e.wait(ctx)

	input := session.Locator(commentInputSelector)
	if count, err := input.Count(); err != nil || count == 0 {
		return fmt.Errorf("comment box did not appear")
	}
	if err := input.First().Fill(comment); err != nil {
		return fmt.Errorf("fill comment: %w", err)
	}

	submit := session.Locator(commentSubmitSelector)
	if count, err := submit.Count(); err != nil || count == 0 {
		return fmt.Errorf("comment submit control not found")
	}
	if err := submit.First().Click(); err != nil {
		return fmt.Errorf("submit comment: %w", err)
	}

	return nil
}

func (e *Engager) sendConnectionRequests(ctx context.Context, session browser.Session, summary *Summary) {
	if e.cfg.MaxConnections <= 0 {
		return
	}

	if err := session.Goto(e.cfg.BaseURL + "/mynetwork/"); err != nil {
		summary.Errors = append(summary.Errors, fmt.Sprintf("open network page: %v", err))
		return
	}

	buttons, err := session.Locator(connectButtonSelector).All()
	if err != nil {
		summary.Errors = append(summary.Errors, fmt.Sprintf("find connect buttons: %v", err))
		return
	}

	for i, button := range buttons {
		if ctx.Err() != nil {
			return
		}
		if summary.Connections >= e.cfg.MaxConnections {
			break
		}
		if !e.quota.CanPerform(CategoryConnections) {
			e.logger.Info("connection quota exhausted, stopping")
			break
		}

		if err := button.Click(); err != nil {
			summary.Errors = append(summary.Errors, fmt.Sprintf("connect %d: %v", i+1, err))
			continue
		}

		// Some requests open a confirmation dialog.
		confirm := session.Locator(sendNowSelector)
		if count, err := confirm.Count(); err == nil && count > 0 {
			if err := confirm.First().Click(); err != nil {
				summary.Errors = append(summary.Errors, fmt.Sprintf("confirm connect %d: %v", i+1, err))
				continue
			}
		}

		summary.Connections++
		if err := e.quota.Record(CategoryConnections); err != nil {
			summary.Errors = append(summary.Errors, fmt.Sprintf("record connection: %v", err))
		}
		_ = e.wait(ctx)
	}
}

// postTexts returns visible post texts in feed order. Posts and action
// buttons are paired by index.
func (e *Engager) postTexts(session browser.Session) []string {
	elements, err := session.Locator(postTextSelector).All()
	if err != nil {
		return nil
	}

	texts := make([]string, 0, len(elements))
	for _, element := range elements {
		text, err := element.TextContent()
		if err != nil {
			text = ""
		}
		texts = append(texts, text)
	}
	return texts
}

// relevant reports whether the text matches any configured keyword. With no
// keywords configured, everything is relevant.
func (e *Engager) relevant(text string) bool {
	if len(e.cfg.Keywords) == 0 {
		return true
	}

	lower := strings.ToLower(text)
	for _, keyword := range e.cfg.Keywords {
		if keyword != "" && strings.Contains(lower, strings.ToLower(keyword)) {
			return true
		}
	}
	return false
}
