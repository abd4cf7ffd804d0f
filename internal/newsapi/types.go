// Package newsapi provides a client for the NewsAPI.org article index.
// This package centralizes all news search interactions for the application.
package newsapi

import (
	"fmt"
	"time"
)

// Article is a single search result from the article index.
type Article struct {
	Source      Source    `json:"source"`
	Author      string    `json:"author"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	URL         string    `json:"url"`
	ImageURL    string    `json:"urlToImage"`
	PublishedAt time.Time `json:"publishedAt"`
	Content     string    `json:"content"`
}

// Source identifies the publication an article came from.
type Source struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// EverythingQuery holds the parameters for an /v2/everything search.
type EverythingQuery struct {
	Query    string    // Keyword expression, e.g. "a OR b OR c"
	Domains  []string  // Restrict results to these source domains
	From     time.Time // Earliest publish time
	Language string
	SortBy   string // "publishedAt", "relevancy", "popularity"
	PageSize int
}

// everythingResponse is the wire shape of a successful search response.
type everythingResponse struct {
	Status       string    `json:"status"`
	TotalResults int       `json:"totalResults"`
	Articles     []Article `json:"articles"`
	Code         string    `json:"code"`
	Message      string    `json:"message"`
}

// APIError represents an error returned by the NewsAPI service.
type APIError struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("NewsAPI error: %s (status: %d, code: %s)", e.Message, e.StatusCode, e.Code)
}
