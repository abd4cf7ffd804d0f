package llm

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/ternarybob/herald/internal/common"
)

func newTestFactory() *Factory {
	return NewFactory(
		&common.GeminiConfig{Model: "gemini-3-flash-preview"},
		&common.ClaudeConfig{Model: "claude-haiku-3-5-20241022"},
		&common.LLMConfig{DefaultProvider: common.LLMProviderGemini},
		nil,
	)
}

func TestDetectProvider(t *testing.T) {
	f := newTestFactory()

	tests := []struct {
		model string
		want  ProviderType
	}{
		{"", ProviderGemini},
		{"claude-haiku-3-5-20241022", ProviderClaude},
		{"claude/claude-haiku-3-5-20241022", ProviderClaude},
		{"anthropic/claude-sonnet", ProviderClaude},
		{"gemini-3-flash-preview", ProviderGemini},
		{"google/gemini-3-flash", ProviderGemini},
		{"something-else", ProviderGemini},
	}

	for _, tt := range tests {
		t.Run(tt.model, func(t *testing.T) {
			assert.Equal(t, tt.want, f.DetectProvider(tt.model))
		})
	}
}

func TestNormalizeModel(t *testing.T) {
	f := newTestFactory()

	assert.Equal(t, "claude-haiku-3-5-20241022", f.NormalizeModel("claude/claude-haiku-3-5-20241022"))
	assert.Equal(t, "gemini-3-flash", f.NormalizeModel("gemini/gemini-3-flash"))
	assert.Equal(t, "gemini-3-flash", f.NormalizeModel("gemini-3-flash"))
}

func TestConvertMessagesToClaude(t *testing.T) {
	messages := []Message{
		{Role: "system", Content: "be terse"},
		{Role: "user", Content: "hello"},
		{Role: "assistant", Content: "hi"},
	}

	claudeMessages, systemText, err := convertMessagesToClaude(messages)
	assert.NoError(t, err)
	assert.Equal(t, "be terse", systemText)
	assert.Len(t, claudeMessages, 2)

	_, _, err = convertMessagesToClaude(nil)
	assert.Error(t, err)
}

func TestConvertMessagesToGemini(t *testing.T) {
	messages := []Message{
		{Role: "system", Content: "be terse"},
		{Role: "user", Content: "hello"},
		{Role: "assistant", Content: "hi"},
	}

	contents, systemText, err := convertMessagesToGemini(messages)
	assert.NoError(t, err)
	assert.Equal(t, "be terse", systemText)
	assert.Len(t, contents, 2)
	assert.Equal(t, "user", string(contents[0].Role))
	assert.Equal(t, "model", string(contents[1].Role))

	_, _, err = convertMessagesToGemini(nil)
	assert.Error(t, err)
}

func TestIsRateLimitError(t *testing.T) {
	assert.False(t, IsRateLimitError(nil))
	assert.True(t, IsRateLimitError(errors.New("Error 429: too many requests")))
	assert.True(t, IsRateLimitError(errors.New("RESOURCE_EXHAUSTED: quota exceeded")))
	assert.False(t, IsRateLimitError(errors.New("connection refused")))
}

func TestExtractRetryDelay(t *testing.T) {
	err := errors.New("Error 429, Message: Please retry in 45.5s., Status: RESOURCE_EXHAUSTED")
	assert.Equal(t, 45500*time.Millisecond, ExtractRetryDelay(err))

	assert.Equal(t, time.Duration(0), ExtractRetryDelay(errors.New("no delay here")))
}

func TestCalculateBackoff(t *testing.T) {
	c := NewDefaultRetryConfig()

	// First attempt without an API delay uses the initial backoff.
	assert.Equal(t, DefaultInitialBackoff, c.CalculateBackoff(0, 0))

	// API-provided delay takes over as the base, plus buffer.
	assert.Equal(t, 15*time.Second, c.CalculateBackoff(0, 10*time.Second))

	// Capped at MaxBackoff.
	assert.Equal(t, DefaultMaxBackoff, c.CalculateBackoff(10, 0))
}
