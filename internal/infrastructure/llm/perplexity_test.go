package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"RedditAnalyzer/internal/config"
	"RedditAnalyzer/internal/domain"
	"RedditAnalyzer/internal/retry"
)

var sampleComments = []domain.Comment{
	{Author: "a", Text: "first", Score: 30},
	{Author: "b", Text: "second", Score: -2},
}

func newTestClient(endpoint string) *PerplexityClient {
	return NewPerplexityClient(config.PerplexityConfig{
		Endpoint:    endpoint,
		Model:       "sonar",
		APIKey:      "pplx-test",
		Temperature: 0.2,
		MaxTokens:   1000,
		Timeout:     time.Second,
	}, retry.Config{MaxAttempts: 2, InitialInterval: time.Millisecond, MaxInterval: time.Millisecond}, nil)
}

func TestBuildPrompt(t *testing.T) {
	t.Parallel()

	prompt := BuildPrompt("GME to 1000", "Buy now.", sampleComments)

	assert.Contains(t, prompt, `Title: "GME to 1000"`)
	assert.Contains(t, prompt, "\"\"\"\nBuy now.\n\"\"\"")
	assert.Contains(t, prompt, "Comment by u/a (Score: 30):\nfirst\n\nComment by u/b (Score: -2):\nsecond")
	assert.Contains(t, prompt, "Summarize the main claims")
	assert.Contains(t, prompt, "Fact-check")
	assert.Contains(t, prompt, "ONLY the post and comments above")
}

func TestBuildPromptKeepsTitleVerbatim(t *testing.T) {
	t.Parallel()

	title := "He said \"moon\"\nthen left"
	prompt := BuildPrompt(title, "body", nil)

	assert.Contains(t, prompt, "Title: \""+title+"\"\n")
	assert.NotContains(t, prompt, `\"moon\"`)
}

func TestBuildPromptWithoutComments(t *testing.T) {
	t.Parallel()

	prompt := BuildPrompt("T", domain.NoPostContent, nil)
	assert.Contains(t, prompt, "Top comments: none")
	assert.Contains(t, prompt, domain.NoPostContent)
}

func TestAnalyzeSendsChatCompletion(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "Bearer pplx-test", r.Header.Get("Authorization"))

		var req chatRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "sonar", req.Model)
		assert.InDelta(t, 0.2, req.Temperature, 1e-9)
		assert.Equal(t, 1000, req.MaxTokens)
		if assert.Len(t, req.Messages, 1) {
			assert.Equal(t, "user", req.Messages[0].Role)
			assert.Contains(t, req.Messages[0].Content, "Comment by u/a (Score: 30)")
		}

		_, _ = w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"  Summary: bullish.  "}}],"usage":{"total_tokens":321}}`))
	}))
	defer server.Close()

	result, err := newTestClient(server.URL).Analyze(context.Background(), "GME", "Buy now.", sampleComments)
	require.NoError(t, err)
	assert.Equal(t, domain.AnalysisResult("Summary: bullish."), result)
}

func TestAnalyzeFailures(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		status   int
		body     string
		attempts int32
	}{
		{name: "missing choices", status: http.StatusOK, body: `{"id":"x"}`, attempts: 1},
		{name: "missing content", status: http.StatusOK, body: `{"choices":[{"message":{"role":"assistant"}}]}`, attempts: 1},
		{name: "client error", status: http.StatusUnauthorized, body: `{"error":"bad key"}`, attempts: 1},
		{name: "server error retried", status: http.StatusInternalServerError, body: `oops`, attempts: 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			var hits atomic.Int32
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				hits.Add(1)
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer server.Close()

			result, err := newTestClient(server.URL).Analyze(context.Background(), "T", "B", nil)
			require.Error(t, err)
			assert.ErrorIs(t, err, domain.ErrAnalysis)
			assert.Empty(t, result)
			assert.Equal(t, tt.attempts, hits.Load())
		})
	}
}

func TestAnalyzeRequiresAPIKey(t *testing.T) {
	t.Parallel()

	client := NewPerplexityClient(config.PerplexityConfig{Endpoint: "http://127.0.0.1:0", Model: "sonar"}, retry.Config{}, nil)

	_, err := client.Analyze(context.Background(), "T", "B", nil)
	require.ErrorIs(t, err, domain.ErrAnalysis)
	assert.NotErrorIs(t, err, domain.ErrConfig, "a missing key must not abort the run")
	assert.Contains(t, err.Error(), "PERPLEXITY_API_KEY")
}
