// Package analyze fetches the user's own profile page, converts it to a
// markdown snapshot and produces improvement advice through the content
// generator. Reports are written to the workspace for later review.
package analyze

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/PuerkitoBio/goquery"

	"github.com/aatumaykin/linkpilot/internal/browser"
	"github.com/aatumaykin/linkpilot/internal/content"
	"github.com/aatumaykin/linkpilot/internal/logger"
)

// reportsSubdirectory is where analysis reports land within the workspace.
const reportsSubdirectory = "reports"

// Report is the outcome of one profile analysis.
type Report struct {
	GeneratedAt time.Time
	ProfileURL  string
	Name        string
	Headline    string
	HasAbout    bool
	Experience  int
	Skills      int
	Snapshot    string
	Advice      string
	Path        string
}

// Analyzer inspects the authenticated user's profile.
type Analyzer struct {
	workspace string
	generator content.Generator
	logger    *logger.Logger

	now func() time.Time
}

// New creates an Analyzer writing reports under the workspace.
func New(workspace string, generator content.Generator, log *logger.Logger) *Analyzer {
	return &Analyzer{
		workspace: workspace,
		generator: generator,
		logger:    log,
		now:       time.Now,
	}
}

// Run opens the profile URL in an already authenticated session, extracts a
// markdown snapshot, asks the generator for advice and writes the report
// file. Generation failures degrade to a report without advice.
func (a *Analyzer) Run(ctx context.Context, session browser.Session, profileURL string) (Report, error) {
	report := Report{GeneratedAt: a.now(), ProfileURL: profileURL}

	if err := session.Goto(profileURL); err != nil {
		return report, fmt.Errorf("open profile page: %w", err)
	}

	html, err := session.Content()
	if err != nil {
		return report, fmt.Errorf("read profile page: %w", err)
	}

	a.extractSections(html, &report)
	report.Snapshot = a.htmlToMarkdown(html)

	advice, err := a.generator.ProfileAdvice(ctx, report.Snapshot)
	if err != nil {
		a.logger.Warn("profile advice generation failed",
			logger.Field{Key: "error", Value: err})
	} else {
		report.Advice = advice
	}

	path, err := a.writeReport(report)
	if err != nil {
		return report, err
	}
	report.Path = path

	a.logger.Info("profile analysis complete",
		logger.Field{Key: "report", Value: path},
		logger.Field{Key: "experience_entries", Value: report.Experience})

	return report, nil
}

func (a *Analyzer) extractSections(html string, report *Report) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		a.logger.Warn("failed to parse profile page",
			logger.Field{Key: "error", Value: err})
		return
	}

	report.Name = strings.TrimSpace(doc.Find("main h1").First().Text())
	report.Headline = strings.TrimSpace(doc.Find(".text-body-medium").First().Text())
	report.HasAbout = doc.Find("#about").Length() > 0
	report.Experience = doc.Find("#experience ~ div li, section.experience li").Length()
	report.Skills = doc.Find("#skills ~ div li, section.skills li").Length()
}

func (a *Analyzer) htmlToMarkdown(html string) string {
	opts := &md.Options{
		HeadingStyle:    "atx",
		CodeBlockStyle:  "fenced",
		EmDelimiter:     "*",
		StrongDelimiter: "**",
	}

	converter := md.NewConverter("", true, opts)

	converter.AddRules(md.Rule{
		Filter: []string{"nav", "footer", "aside", "script", "style", "noscript"},
		Replacement: func(content string, selec *goquery.Selection, opt *md.Options) *string {
			empty := ""
			return &empty
		},
	})

	markdown, err := converter.ConvertString(html)
	if err != nil {
		a.logger.Warn("failed to convert profile page to markdown",
			logger.Field{Key: "error", Value: err})
		return ""
	}

	reCleanNewlines := regexp.MustCompile(`\n{3,}`)
	markdown = reCleanNewlines.ReplaceAllString(markdown, "\n\n")

	return strings.TrimSpace(markdown)
}

func (a *Analyzer) writeReport(report Report) (string, error) {
	dir := filepath.Join(a.workspace, reportsSubdirectory)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("create reports directory: %w", err)
	}

	path := filepath.Join(dir, fmt.Sprintf("profile-%s.md", report.GeneratedAt.Format("2006-01-02")))

	var b strings.Builder
	fmt.Fprintf(&b, "# Profile Analysis (%s)\n\n", report.GeneratedAt.Format("2006-01-02 15:04"))
	fmt.Fprintf(&b, "- Profile: %s\n", report.ProfileURL)
	if report.Name != "" {
		fmt.Fprintf(&b, "- Name: %s\n", report.Name)
	}
	if report.Headline != "" {
		fmt.Fprintf(&b, "- Headline: %s\n", report.Headline)
	}
	fmt.Fprintf(&b, "- About section: %s\n", yesNo(report.HasAbout))
	fmt.Fprintf(&b, "- Experience entries: %d\n", report.Experience)
	fmt.Fprintf(&b, "- Skills listed: %d\n", report.Skills)

	if report.Advice != "" {
		b.WriteString("\n## Suggestions\n\n")
		b.WriteString(report.Advice)
		b.WriteString("\n")
	}

	if report.Snapshot != "" {
		b.WriteString("\n## Snapshot\n\n")
		b.WriteString(report.Snapshot)
		b.WriteString("\n")
	}

	if err := os.WriteFile(path, []byte(b.String()), 0644); err != nil {
		return "", fmt.Errorf("write report: %w", err)
	}

	return path, nil
}

func yesNo(v bool) string {
	if v {
		return "present"
	}
	return "missing"
}
