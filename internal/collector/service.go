// Package collector gathers candidate news articles, deduplicates them by
// canonical URL, and filters each through a relevance/summarization call.
package collector

import (
	"context"
	"fmt"
	"html"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/herald/internal/common"
	"github.com/ternarybob/herald/internal/llm"
	"github.com/ternarybob/herald/internal/newsapi"
)

// Placeholder is emitted when no article survives the relevance filter.
const Placeholder = "No relevant news articles today."

// searchWindow restricts candidates to articles published in the last day.
const searchWindow = 24 * time.Hour

// Searcher is the slice of the news client the collector needs.
type Searcher interface {
	Everything(ctx context.Context, q newsapi.EverythingQuery) ([]newsapi.Article, error)
}

// Service collects and filters news articles into an HTML fragment.
type Service struct {
	searcher   Searcher
	summarizer llm.Summarizer
	config     *common.NewsConfig
	logger     arbor.ILogger
}

// NewService creates a new collector service.
func NewService(searcher Searcher, summarizer llm.Summarizer, config *common.NewsConfig, logger arbor.ILogger) *Service {
	return &Service{
		searcher:   searcher,
		summarizer: summarizer,
		config:     config,
		logger:     logger,
	}
}

// keptArticle pairs a candidate with the summary that kept it.
type keptArticle struct {
	article newsapi.Article
	summary string
}

// Collect runs one search, deduplicates by canonical URL, and filters each
// candidate through a summarization call. Articles whose response is
// "not relevant" are dropped; the rest are rendered as independent HTML
// blocks sorted by publish time, newest first.
//
// A failed summarization call aborts the whole collection. Analytics
// failures degrade to an inline warning, but news failures do not.
func (s *Service) Collect(ctx context.Context, now time.Time) (string, error) {
	candidates, err := s.searcher.Everything(ctx, newsapi.EverythingQuery{
		Query:    strings.Join(s.config.Keywords, " OR "),
		Domains:  s.config.Domains,
		From:     now.Add(-searchWindow),
		Language: s.config.Language,
		SortBy:   "publishedAt",
		PageSize: s.config.PageSize,
	})
	if err != nil {
		return "", fmt.Errorf("news search failed: %w", err)
	}

	candidates = Dedupe(candidates)

	s.logger.Info().
		Int("candidates", len(candidates)).
		Msg("Collected news candidates")

	var kept []keptArticle
	for _, article := range candidates {
		summary, err := s.summarizer.Summarize(ctx, relevancePrompt(article))
		if err != nil {
			return "", fmt.Errorf("failed to summarize article %q: %w", article.Title, err)
		}

		if isNotRelevant(summary) {
			s.logger.Debug().Str("title", article.Title).Msg("Article dropped as not relevant")
			continue
		}

		kept = append(kept, keptArticle{article: article, summary: summary})
	}

	if len(kept) == 0 {
		return Placeholder, nil
	}

	sort.SliceStable(kept, func(i, j int) bool {
		return kept[i].article.PublishedAt.After(kept[j].article.PublishedAt)
	})

	var b strings.Builder
	for _, k := range kept {
		b.WriteString("<div class=\"article\">")
		b.WriteString("<b>" + html.EscapeString(k.article.Title) + "</b><br>")
		b.WriteString(html.EscapeString(k.summary) + "<br>")
		escapedURL := html.EscapeString(k.article.URL)
		b.WriteString("<a href=\"" + escapedURL + "\">" + escapedURL + "</a>")
		b.WriteString("</div>\n")
	}

	return b.String(), nil
}

// relevancePrompt builds the per-article relevance and summary prompt.
func relevancePrompt(a newsapi.Article) string {
	content := a.Description
	if content == "" {
		content = a.Content
	}

	return fmt.Sprintf(`You are helping a heritage organisation track public conversations about mixed heritage.

Given the following article, is it relevant to themes of mixed heritage, racial identity, or representation?
If yes, summarise in 2 sentences. If not, say 'Not relevant.'

Title: %s
Content: %s
`, a.Title, content)
}

// isNotRelevant checks for the filter sentinel, tolerating case and a
// trailing period.
func isNotRelevant(summary string) bool {
	trimmed := strings.TrimSpace(summary)
	trimmed = strings.TrimSuffix(trimmed, ".")
	return strings.EqualFold(trimmed, "not relevant")
}

// CanonicalURL strips the query string and fragment from an article URL.
// Tracking parameters would otherwise make the same article look distinct.
func CanonicalURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	u.RawQuery = ""
	u.Fragment = ""
	return u.String()
}

// Dedupe removes articles whose canonical URL has already been seen,
// keeping the first occurrence.
func Dedupe(articles []newsapi.Article) []newsapi.Article {
	seen := make(map[string]bool, len(articles))
	out := articles[:0:0]
	for _, a := range articles {
		key := CanonicalURL(a.URL)
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, a)
	}
	return out
}
