package collector

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/herald/internal/common"
	"github.com/ternarybob/herald/internal/newsapi"
)

type fakeSearcher struct {
	articles []newsapi.Article
	err      error
	query    newsapi.EverythingQuery
}

func (f *fakeSearcher) Everything(ctx context.Context, q newsapi.EverythingQuery) ([]newsapi.Article, error) {
	f.query = q
	return f.articles, f.err
}

type fakeSummarizer struct {
	responses map[string]string // keyed by article title substring
	fallback  string
	err       error
	calls     int
}

func (f *fakeSummarizer) Summarize(ctx context.Context, prompt string) (string, error) {
	f.calls++
	if f.err != nil {
		return "", f.err
	}
	for key, resp := range f.responses {
		if strings.Contains(prompt, key) {
			return resp, nil
		}
	}
	return f.fallback, nil
}

func testLogger() arbor.ILogger {
	return arbor.NewLogger()
}

func testConfig() *common.NewsConfig {
	return &common.NewsConfig{
		Keywords: []string{"mixed heritage", "biracial"},
		Domains:  []string{"bbc.co.uk"},
		PageSize: 10,
		Language: "en",
	}
}

func TestCanonicalURL(t *testing.T) {
	tests := []struct {
		raw  string
		want string
	}{
		{"https://x/a?utm=1", "https://x/a"},
		{"https://x/a?utm=2", "https://x/a"},
		{"https://x/a", "https://x/a"},
		{"https://x/a#section", "https://x/a"},
		{"https://x/a?b=1&c=2#frag", "https://x/a"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, CanonicalURL(tt.raw))
	}
}

func TestDedupe(t *testing.T) {
	articles := []newsapi.Article{
		{Title: "first copy", URL: "https://x/a?utm=1"},
		{Title: "second copy", URL: "https://x/a?utm=2"},
		{Title: "different", URL: "https://x/b"},
	}

	deduped := Dedupe(articles)
	require.Len(t, deduped, 2)
	assert.Equal(t, "first copy", deduped[0].Title)
	assert.Equal(t, "different", deduped[1].Title)
}

func TestCollectKeepsRelevantDropsIrrelevant(t *testing.T) {
	now := time.Date(2026, 8, 24, 9, 0, 0, 0, time.UTC)
	searcher := &fakeSearcher{
		articles: []newsapi.Article{
			{Title: "Older relevant", Description: "about identity", URL: "https://x/old", PublishedAt: now.Add(-10 * time.Hour)},
			{Title: "Irrelevant piece", Description: "sports", URL: "https://x/sports", PublishedAt: now.Add(-2 * time.Hour)},
			{Title: "Newer relevant", Description: "about heritage", URL: "https://x/new", PublishedAt: now.Add(-1 * time.Hour)},
		},
	}
	summarizer := &fakeSummarizer{
		responses: map[string]string{
			"Irrelevant piece": "Not relevant.",
		},
		fallback: "A two sentence summary.",
	}

	svc := NewService(searcher, summarizer, testConfig(), testLogger())

	html, err := svc.Collect(context.Background(), now)
	require.NoError(t, err)

	assert.Contains(t, html, "Newer relevant")
	assert.Contains(t, html, "Older relevant")
	assert.NotContains(t, html, "Irrelevant piece")

	// Newest first.
	assert.Less(t, strings.Index(html, "Newer relevant"), strings.Index(html, "Older relevant"))

	// Search parameters reflect the configuration.
	assert.Equal(t, "mixed heritage OR biracial", searcher.query.Query)
	assert.Equal(t, now.Add(-24*time.Hour), searcher.query.From)
	assert.Equal(t, 10, searcher.query.PageSize)
}

func TestCollectNotRelevantCaseInsensitive(t *testing.T) {
	searcher := &fakeSearcher{
		articles: []newsapi.Article{
			{Title: "Filtered", URL: "https://x/a", Description: "d"},
		},
	}
	summarizer := &fakeSummarizer{fallback: "NOT RELEVANT"}

	svc := NewService(searcher, summarizer, testConfig(), testLogger())

	html, err := svc.Collect(context.Background(), time.Now())
	require.NoError(t, err)
	assert.Equal(t, Placeholder, html)
}

func TestCollectEmptyCandidatesYieldsPlaceholder(t *testing.T) {
	searcher := &fakeSearcher{}
	summarizer := &fakeSummarizer{fallback: "summary"}

	svc := NewService(searcher, summarizer, testConfig(), testLogger())

	html, err := svc.Collect(context.Background(), time.Now())
	require.NoError(t, err)
	assert.Equal(t, Placeholder, html)
	assert.Zero(t, summarizer.calls)
}

func TestCollectSummarizerFailureIsFatal(t *testing.T) {
	searcher := &fakeSearcher{
		articles: []newsapi.Article{
			{Title: "Doomed", URL: "https://x/a", Description: "d"},
		},
	}
	summarizer := &fakeSummarizer{err: errors.New("model unavailable")}

	svc := NewService(searcher, summarizer, testConfig(), testLogger())

	_, err := svc.Collect(context.Background(), time.Now())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "model unavailable")
}

func TestCollectSearchFailureIsFatal(t *testing.T) {
	searcher := &fakeSearcher{err: errors.New("index down")}
	summarizer := &fakeSummarizer{}

	svc := NewService(searcher, summarizer, testConfig(), testLogger())

	_, err := svc.Collect(context.Background(), time.Now())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "index down")
}

func TestCollectDeduplicatesBeforeSummarizing(t *testing.T) {
	searcher := &fakeSearcher{
		articles: []newsapi.Article{
			{Title: "Copy A", URL: "https://x/a?utm=1", Description: "d"},
			{Title: "Copy B", URL: "https://x/a?utm=2", Description: "d"},
		},
	}
	summarizer := &fakeSummarizer{fallback: "summary"}

	svc := NewService(searcher, summarizer, testConfig(), testLogger())

	html, err := svc.Collect(context.Background(), time.Now())
	require.NoError(t, err)
	assert.Equal(t, 1, summarizer.calls)
	assert.Contains(t, html, "Copy A")
	assert.NotContains(t, html, "Copy B")
}
