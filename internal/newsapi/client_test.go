package newsapi

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEverything(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/everything", r.URL.Path)
		assert.Equal(t, "test-key", r.Header.Get("X-Api-Key"))

		q := r.URL.Query()
		assert.Equal(t, "mixed heritage OR biracial", q.Get("q"))
		assert.Equal(t, "bbc.co.uk,npr.org", q.Get("domains"))
		assert.Equal(t, "en", q.Get("language"))
		assert.Equal(t, "publishedAt", q.Get("sortBy"))
		assert.Equal(t, "10", q.Get("pageSize"))
		assert.NotEmpty(t, q.Get("from"))

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"status": "ok",
			"totalResults": 2,
			"articles": [
				{
					"source": {"id": "bbc-news", "name": "BBC News"},
					"title": "First",
					"description": "first desc",
					"url": "https://www.bbc.co.uk/news/first",
					"publishedAt": "2026-08-23T10:00:00Z"
				},
				{
					"source": {"id": null, "name": "NPR"},
					"title": "Second",
					"description": "second desc",
					"url": "https://www.npr.org/second",
					"publishedAt": "2026-08-23T08:30:00Z"
				}
			]
		}`))
	}))
	defer server.Close()

	client := NewClient("test-key", WithBaseURL(server.URL))

	articles, err := client.Everything(context.Background(), EverythingQuery{
		Query:    "mixed heritage OR biracial",
		Domains:  []string{"bbc.co.uk", "npr.org"},
		From:     time.Now().Add(-24 * time.Hour),
		Language: "en",
		SortBy:   "publishedAt",
		PageSize: 10,
	})
	require.NoError(t, err)
	require.Len(t, articles, 2)
	assert.Equal(t, "First", articles[0].Title)
	assert.Equal(t, "BBC News", articles[0].Source.Name)
	assert.Equal(t, time.Date(2026, 8, 23, 10, 0, 0, 0, time.UTC), articles[0].PublishedAt)
}

func TestEverythingAPIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"status":"error","code":"apiKeyInvalid","message":"Your API key is invalid"}`))
	}))
	defer server.Close()

	client := NewClient("bad-key", WithBaseURL(server.URL))

	_, err := client.Everything(context.Background(), EverythingQuery{Query: "anything"})
	require.Error(t, err)

	apiErr, ok := err.(*APIError)
	require.True(t, ok, "expected *APIError, got %T", err)
	assert.Equal(t, http.StatusUnauthorized, apiErr.StatusCode)
	assert.Equal(t, "apiKeyInvalid", apiErr.Code)
}

func TestEverythingErrorWithOKStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"error","code":"parametersMissing","message":"Required parameters are missing"}`))
	}))
	defer server.Close()

	client := NewClient("test-key", WithBaseURL(server.URL))

	_, err := client.Everything(context.Background(), EverythingQuery{})
	require.Error(t, err)

	apiErr, ok := err.(*APIError)
	require.True(t, ok)
	assert.Equal(t, "parametersMissing", apiErr.Code)
}
