package engage

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aatumaykin/linkpilot/internal/browser"
	"github.com/aatumaykin/linkpilot/internal/content"
	"github.com/aatumaykin/linkpilot/internal/logger"
)

const baseURL = "https://www.example-platform.com"

type stubQuota struct {
	allowed  map[string]bool
	recorded []string
}

func newStubQuota() *stubQuota {
	return &stubQuota{allowed: map[string]bool{
		CategoryLikes:       true,
		CategoryComments:    true,
		CategoryConnections: true,
	}}
}

func (s *stubQuota) CanPerform(category string) bool { return s.allowed[category] }

func (s *stubQuota) Record(category string) error {
	s.recorded = append(s.recorded, category)
	return nil
}

func newTestEngager(t *testing.T, cfg Config, quota *stubQuota) *Engager {
	t.Helper()
	log, err := logger.New(logger.Config{Level: "error", Format: "text", Output: "stderr"})
	require.NoError(t, err)
	cfg.BaseURL = baseURL
	return New(cfg, quota, content.NewStaticGenerator(""), nil, log)
}

func feedPage(postTexts []string) (*browser.FakePage, []*browser.FakeElement) {
	texts := make([]*browser.FakeElement, 0, len(postTexts))
	likes := make([]*browser.FakeElement, 0, len(postTexts))
	for _, text := range postTexts {
		el := browser.NewFakeElement(nil)
		el.Text = text
		texts = append(texts, el)
		likes = append(likes, browser.NewFakeElement(nil))
	}

	page := &browser.FakePage{Elements: map[string][]*browser.FakeElement{
		".feed-shared-text__text-view":      texts,
		`button[aria-label*="React Like"]`: likes,
	}}
	return page, likes
}

func TestRunLikesRelevantPosts(t *testing.T) {
	quota := newStubQuota()
	engager := newTestEngager(t, Config{
		Keywords: []string{"golang"},
		MaxLikes: 10,
	}, quota)

	session := browser.NewFakeSession()
	page, likes := feedPage([]string{
		"Shipping a new golang service",
		"Unrelated cooking post",
		"Why Golang generics matter",
	})
	session.AddPage(baseURL+"/feed", page)

	summary, err := engager.Run(context.Background(), session)
	require.NoError(t, err)

	assert.Equal(t, 2, summary.Likes)
	assert.Equal(t, 1, likes[0].Clicks)
	assert.Zero(t, likes[1].Clicks)
	assert.Equal(t, 1, likes[2].Clicks)
	assert.Equal(t, []string{CategoryLikes, CategoryLikes}, quota.recorded)
}

func TestRunRespectsMaxLikes(t *testing.T) {
	quota := newStubQuota()
	engager := newTestEngager(t, Config{MaxLikes: 1}, quota)

	session := browser.NewFakeSession()
	page, likes := feedPage([]string{"post one", "post two"})
	session.AddPage(baseURL+"/feed", page)

	summary, err := engager.Run(context.Background(), session)
	require.NoError(t, err)

	assert.Equal(t, 1, summary.Likes)
	assert.Equal(t, 1, likes[0].Clicks)
	assert.Zero(t, likes[1].Clicks)
}

func TestRunSkipsAlreadyLikedPosts(t *testing.T) {
	quota := newStubQuota()
	engager := newTestEngager(t, Config{MaxLikes: 10}, quota)

	session := browser.NewFakeSession()
	page, likes := feedPage([]string{"post one", "post two"})
	likes[0].Attrs["aria-pressed"] = "true"
	session.AddPage(baseURL+"/feed", page)

	summary, err := engager.Run(context.Background(), session)
	require.NoError(t, err)

	assert.Equal(t, 1, summary.Likes)
	assert.Zero(t, likes[0].Clicks)
	assert.Equal(t, 1, likes[1].Clicks)
}

func TestRunStopsWhenQuotaExhausted(t *testing.T) {
	quota := newStubQuota()
	quota.allowed[CategoryLikes] = false
	engager := newTestEngager(t, Config{MaxLikes: 10}, quota)

	session := browser.NewFakeSession()
	page, likes := feedPage([]string{"post one"})
	session.AddPage(baseURL+"/feed", page)

	summary, err := engager.Run(context.Background(), session)
	require.NoError(t, err)

	assert.Zero(t, summary.Likes)
	assert.Zero(t, likes[0].Clicks)
	assert.Empty(t, quota.recorded)
}

func TestRunCommentsOnRelevantPosts(t *testing.T) {
	quota := newStubQuota()
	quota.allowed[CategoryLikes] = false
	engager := newTestEngager(t, Config{
		Keywords:    []string{"hiring"},
		MaxComments: 5,
	}, quota)

	session := browser.NewFakeSession()
	commentButton := browser.NewFakeElement(nil)
	commentInput := browser.NewFakeElement(nil)
	commentSubmit := browser.NewFakeElement(nil)
	postText := browser.NewFakeElement(nil)
	postText.Text = "We are hiring Go engineers"

	session.AddPage(baseURL+"/feed", &browser.FakePage{Elements: map[string][]*browser.FakeElement{
		".feed-shared-text__text-view":        {postText},
		`button[aria-label*="Comment"]`:       {commentButton},
		".ql-editor":                          {commentInput},
		`button[aria-label*="Post comment"]`:  {commentSubmit},
	}})

	summary, err := engager.Run(context.Background(), session)
	require.NoError(t, err)

	assert.Equal(t, 1, summary.Comments)
	assert.Equal(t, 1, commentButton.Clicks)
	require.Len(t, commentInput.FillCalls, 1)
	assert.NotEmpty(t, commentInput.FillCalls[0])
	assert.Equal(t, 1, commentSubmit.Clicks)
	assert.Equal(t, []string{CategoryComments}, quota.recorded)
}

func TestRunSendsConnectionRequests(t *testing.T) {
	quota := newStubQuota()
	engager := newTestEngager(t, Config{MaxConnections: 2}, quota)

	session := browser.NewFakeSession()
	session.AddPage(baseURL+"/feed", &browser.FakePage{})

	connect1 := browser.NewFakeElement(nil)
	connect2 := browser.NewFakeElement(nil)
	connect3 := browser.NewFakeElement(nil)
	sendNow := browser.NewFakeElement(nil)
	session.AddPage(baseURL+"/mynetwork/", &browser.FakePage{Elements: map[string][]*browser.FakeElement{
		`button[aria-label*="Connect"]`: {connect1, connect2, connect3},
		`button[aria-label="Send now"]`: {sendNow},
	}})

	summary, err := engager.Run(context.Background(), session)
	require.NoError(t, err)

	assert.Equal(t, 2, summary.Connections)
	assert.Equal(t, 1, connect1.Clicks)
	assert.Equal(t, 1, connect2.Clicks)
	assert.Zero(t, connect3.Clicks)
	assert.Equal(t, 2, sendNow.Clicks)
}

func TestRunAccumulatesErrorsWithoutAborting(t *testing.T) {
	quota := newStubQuota()
	engager := newTestEngager(t, Config{MaxLikes: 10}, quota)

	session := browser.NewFakeSession()
	page, likes := feedPage([]string{"post one", "post two"})
	likes[0].ClickErr = assert.AnError
	session.AddPage(baseURL+"/feed", page)

	summary, err := engager.Run(context.Background(), session)
	require.NoError(t, err)

	// The failed like is reported, the second one still happens.
	assert.Equal(t, 1, summary.Likes)
	assert.Len(t, summary.Errors, 1)
	assert.Equal(t, 1, likes[1].Clicks)
}
