package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"RedditAnalyzer/internal/config"
	"RedditAnalyzer/internal/domain"
	"RedditAnalyzer/internal/ports"
	"RedditAnalyzer/internal/retry"
)

// PerplexityClient implements ports.Analyzer on an OpenAI-compatible
// chat-completions endpoint.
type PerplexityClient struct {
	endpoint    string
	model       string
	apiKey      string
	temperature float64
	maxTokens   int
	httpClient  *http.Client
	retry       retry.Config
	logger      *slog.Logger
}

var _ ports.Analyzer = (*PerplexityClient)(nil)

// NewPerplexityClient builds a client from configuration.
func NewPerplexityClient(cfg config.PerplexityConfig, retryCfg retry.Config, logger *slog.Logger) *PerplexityClient {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &PerplexityClient{
		endpoint:    cfg.Endpoint,
		model:       cfg.Model,
		apiKey:      cfg.APIKey,
		temperature: cfg.Temperature,
		maxTokens:   cfg.MaxTokens,
		httpClient:  &http.Client{Timeout: timeout},
		retry:       retryCfg,
		logger:      logger,
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content *string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Usage struct {
		TotalTokens int `json:"total_tokens"`
	} `json:"usage"`
}

// Analyze asks the model to summarize and fact-check one post with its comments.
func (c *PerplexityClient) Analyze(ctx context.Context, title, body string, comments []domain.Comment) (domain.AnalysisResult, error) {
	if c == nil {
		return "", domain.AnalysisError("analyze", errors.New("client is nil"))
	}
	if c.apiKey == "" {
		return "", domain.AnalysisError("analyze", errors.New("api key is not set (PERPLEXITY_API_KEY)"))
	}
	if c.endpoint == "" || c.model == "" {
		return "", domain.AnalysisError("analyze", errors.New("endpoint or model is not set"))
	}

	payload, err := json.Marshal(chatRequest{
		Model:       c.model,
		Messages:    []chatMessage{{Role: "user", Content: BuildPrompt(title, body, comments)}},
		Temperature: c.temperature,
		MaxTokens:   c.maxTokens,
	})
	if err != nil {
		return "", domain.AnalysisError("marshal request", err)
	}

	var parsed chatResponse
	err = retry.Do(ctx, c.retry, func() error {
		return c.send(ctx, payload, &parsed)
	})
	if err != nil {
		return "", domain.AnalysisError("chat completion", err)
	}

	if len(parsed.Choices) == 0 {
		return "", domain.AnalysisError("chat completion", errors.New("response has no choices"))
	}
	content := parsed.Choices[0].Message.Content
	if content == nil || strings.TrimSpace(*content) == "" {
		return "", domain.AnalysisError("chat completion", errors.New("response has no choices[0].message.content"))
	}

	c.logger.Debug("analysis complete", "title", title, "total_tokens", parsed.Usage.TotalTokens)
	return domain.AnalysisResult(strings.TrimSpace(*content)), nil
}

func (c *PerplexityClient) send(ctx context.Context, payload []byte, out *chatResponse) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(payload))
	if err != nil {
		return retry.Permanent(fmt.Errorf("new request: %w", err))
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		statusErr := fmt.Errorf("perplexity error %s: %s", resp.Status, strings.TrimSpace(string(body)))
		if retry.RetryableStatus(resp.StatusCode) {
			return statusErr
		}
		return retry.Permanent(statusErr)
	}

	*out = chatResponse{}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return retry.Permanent(fmt.Errorf("decode response: %w", err))
	}
	return nil
}
