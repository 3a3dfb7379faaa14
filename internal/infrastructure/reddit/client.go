package reddit

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"RedditAnalyzer/internal/config"
	"RedditAnalyzer/internal/domain"
	"RedditAnalyzer/internal/ports"
	"RedditAnalyzer/internal/retry"
)

const maxResponseBytes = 8 << 20

var errEmptyToken = errors.New("bearer token is empty")

// Client reads hot listings and threads from the OAuth API host.
type Client struct {
	apiBaseURL string
	webBaseURL string
	http       *http.Client
	limiter    *rate.Limiter
	retry      retry.Config
	logger     *slog.Logger
}

var _ ports.PostSource = (*Client)(nil)

// NewClient wires an HTTP client, rate limiter and retry policy.
func NewClient(cfg config.RedditConfig, retryCfg retry.Config, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Client{
		apiBaseURL: strings.TrimSuffix(cfg.APIBaseURL, "/"),
		webBaseURL: cfg.WebBaseURL,
		http:       NewHTTPClient(cfg.RequestTimeout, cfg.UserAgent),
		limiter:    newLimiter(cfg.RequestsPerMinute),
		retry:      retryCfg,
		logger:     logger,
	}
}

func newLimiter(perMinute int) *rate.Limiter {
	if perMinute <= 0 {
		return rate.NewLimiter(rate.Inf, 1)
	}
	return rate.NewLimiter(rate.Every(time.Minute/time.Duration(perMinute)), 1)
}

// FetchHot returns at most limit posts from the first page of the feed's hot listing.
func (c *Client) FetchHot(ctx context.Context, token, feed string, limit int) ([]domain.Post, error) {
	feed = strings.TrimSpace(feed)
	if feed == "" {
		return nil, domain.FetchError("fetch hot", errors.New("feed name is empty"))
	}
	if limit < 1 {
		return nil, domain.FetchError("fetch hot", fmt.Errorf("limit must be positive, got %d", limit))
	}

	query := url.Values{}
	query.Set("limit", strconv.Itoa(limit))
	endpoint := fmt.Sprintf("%s/r/%s/hot?%s", c.apiBaseURL, url.PathEscape(feed), query.Encode())

	body, err := c.get(ctx, token, endpoint)
	if err != nil {
		return nil, wrapRequestError("fetch hot r/"+feed, err)
	}

	children, err := decodeListing(body)
	if err != nil {
		return nil, domain.FetchError("fetch hot r/"+feed, err)
	}

	posts := make([]domain.Post, 0, min(len(children), limit))
	for _, child := range children {
		if len(posts) >= limit {
			break
		}
		if child.Kind != KindLink {
			continue
		}
		post, err := toPost(child, c.webBaseURL)
		if err != nil {
			return nil, domain.ParseError("fetch hot r/"+feed, err)
		}
		posts = append(posts, post)
	}

	c.logger.Debug("fetched hot listing", "feed", feed, "count", len(posts))
	return posts, nil
}

// FetchThread returns the two-part thread response for permalink.
func (c *Client) FetchThread(ctx context.Context, token, permalink string) (Thread, error) {
	if !strings.HasPrefix(permalink, "/") {
		return nil, domain.FetchError("fetch thread", fmt.Errorf("permalink %q is not a relative path", permalink))
	}

	body, err := c.get(ctx, token, c.apiBaseURL+permalink)
	if err != nil {
		return nil, wrapRequestError("fetch thread "+permalink, err)
	}

	return DecodeThread(body)
}

// FetchComments fetches the thread and keeps its top limit comments.
func (c *Client) FetchComments(ctx context.Context, token, permalink string, limit int) ([]domain.Comment, error) {
	thread, err := c.FetchThread(ctx, token, permalink)
	if err != nil {
		return nil, err
	}
	return ExtractTopComments(thread, limit)
}

// statusError carries a non-success response.
type statusError struct {
	Code   int
	Status string
	Body   string
}

func (e *statusError) Error() string {
	if e.Body == "" {
		return "unexpected status " + e.Status
	}
	return fmt.Sprintf("unexpected status %s: %s", e.Status, e.Body)
}

func (c *Client) get(ctx context.Context, token, endpoint string) ([]byte, error) {
	if token == "" {
		return nil, errEmptyToken
	}

	var payload []byte
	err := retry.Do(ctx, c.retry, func() error {
		if err := c.limiter.Wait(ctx); err != nil {
			return retry.Permanent(fmt.Errorf("rate limiter: %w", err))
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return retry.Permanent(fmt.Errorf("new request: %w", err))
		}
		req.Header.Set("Authorization", "Bearer "+token)

		resp, err := c.http.Do(req)
		if err != nil {
			return fmt.Errorf("do request: %w", err)
		}
		defer resp.Body.Close()

		body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
		if err != nil {
			return fmt.Errorf("read response: %w", err)
		}

		if resp.StatusCode != http.StatusOK {
			serr := &statusError{Code: resp.StatusCode, Status: resp.Status, Body: snippet(body)}
			if retry.RetryableStatus(resp.StatusCode) {
				c.logger.Debug("retryable response", "url", endpoint, "status", resp.StatusCode)
				return serr
			}
			return retry.Permanent(serr)
		}

		payload = body
		return nil
	})
	if err != nil {
		return nil, err
	}
	return payload, nil
}

func wrapRequestError(op string, err error) error {
	if errors.Is(err, errEmptyToken) {
		return domain.AuthError(op, err)
	}
	return domain.FetchError(op, err)
}

func snippet(body []byte) string {
	const limit = 256
	s := strings.TrimSpace(string(body))
	if len(s) > limit {
		s = s[:limit]
	}
	return s
}
