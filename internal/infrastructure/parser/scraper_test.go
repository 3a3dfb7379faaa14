package parser

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"RedditAnalyzer/internal/config"
	"RedditAnalyzer/internal/domain"
	"RedditAnalyzer/internal/ports"
)

const renderedPage = `<html><body>
  <h1> Ape strong together </h1>
  <div data-test-id="post-content"><p>Bought the dip.</p></div>
  <div data-testid="comment"><a data-testid="comment_author">u1</a><div data-testid="comment-content">to the moon</div></div>
  <div data-testid="comment"><div data-testid="comment-content">no author here</div></div>
  <div data-testid="comment"><a data-testid="comment_author">u3</a><div data-testid="comment-content">c3</div></div>
  <div data-testid="comment"><a data-testid="comment_author">u4</a><div data-testid="comment-content">c4</div></div>
  <div data-testid="comment"><a data-testid="comment_author">u5</a><div data-testid="comment-content">c5</div></div>
  <div data-testid="comment"><a data-testid="comment_author">u6</a><div data-testid="comment-content">c6</div></div>
</body></html>`

type fakeSession struct {
	navigateErr error
	waitErr     error
	html        string

	waitedFor string
	waitedMax time.Duration
	closed    int
}

func (f *fakeSession) Navigate(context.Context, string) error { return f.navigateErr }

func (f *fakeSession) WaitForSelector(_ context.Context, selector string, timeout time.Duration) error {
	f.waitedFor = selector
	f.waitedMax = timeout
	return f.waitErr
}

func (f *fakeSession) HTML(context.Context) (string, error) { return f.html, nil }

func (f *fakeSession) Close() error {
	f.closed++
	return nil
}

type fakeBrowser struct {
	session *fakeSession
	err     error
	opened  int
}

func (f *fakeBrowser) NewSession(context.Context) (ports.BrowserSession, error) {
	f.opened++
	if f.err != nil {
		return nil, f.err
	}
	return f.session, nil
}

func browserConfig() config.BrowserConfig {
	return config.BrowserConfig{
		ContentWait: 5 * time.Second,
		MaxComments: 5,
		Selectors:   config.DefaultSelectors(),
	}
}

func TestExtractRenderedPost(t *testing.T) {
	t.Parallel()

	doc, err := ParseDocument(renderedPage)
	require.NoError(t, err)

	got := ExtractRenderedPost(doc, config.DefaultSelectors(), 5)

	assert.Equal(t, "Ape strong together", got.Title)
	assert.Equal(t, "Bought the dip.", got.Content)

	parts := strings.Split(got.Comments, "\n\n")
	require.Len(t, parts, 5)
	assert.Equal(t, "u1: to the moon", parts[0])
	assert.Equal(t, "Unknown: no author here", parts[1])
	assert.Equal(t, "u5: c5", parts[4])
}

func TestExtractRenderedPostWithoutComments(t *testing.T) {
	t.Parallel()

	doc, err := ParseDocument(`<h1>T</h1><div data-test-id="post-content">body</div>`)
	require.NoError(t, err)

	got := ExtractRenderedPost(doc, config.DefaultSelectors(), 5)
	assert.Equal(t, domain.ScrapedContent{Title: "T", Content: "body"}, got)
}

func TestScrapeSuccessClosesSession(t *testing.T) {
	t.Parallel()

	session := &fakeSession{html: renderedPage}
	browser := &fakeBrowser{session: session}

	got, err := NewScraper(browser, browserConfig(), nil).Scrape(context.Background(), "https://reddit.com/r/a/comments/1/x/")
	require.NoError(t, err)

	assert.Equal(t, "Bought the dip.", got.Content)
	assert.Equal(t, config.DefaultSelectors().Content, session.waitedFor)
	assert.Equal(t, 5*time.Second, session.waitedMax)
	assert.Equal(t, 1, session.closed)
}

func TestScrapeContentNeverRenders(t *testing.T) {
	t.Parallel()

	session := &fakeSession{waitErr: fmt.Errorf("selector missing: %w", context.DeadlineExceeded)}
	browser := &fakeBrowser{session: session}

	got, err := NewScraper(browser, browserConfig(), nil).Scrape(context.Background(), "https://reddit.com/r/a/comments/1/x/")

	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrScrape)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, domain.ScrapedContent{}, got, "no partial data")
	assert.Equal(t, 1, session.closed, "session must be torn down")
}

func TestScrapeNavigationFailureClosesSession(t *testing.T) {
	t.Parallel()

	session := &fakeSession{navigateErr: errors.New("net::ERR_NAME_NOT_RESOLVED")}
	browser := &fakeBrowser{session: session}

	_, err := NewScraper(browser, browserConfig(), nil).Scrape(context.Background(), "https://reddit.com/r/a/comments/1/x/")
	require.ErrorIs(t, err, domain.ErrScrape)
	assert.Equal(t, 1, session.closed)
}

func TestScrapeRejectsInput(t *testing.T) {
	t.Parallel()

	browser := &fakeBrowser{err: errors.New("chrome not found")}
	scraper := NewScraper(browser, browserConfig(), nil)

	_, err := scraper.Scrape(context.Background(), "/r/a/comments/1/x/")
	require.ErrorIs(t, err, domain.ErrScrape)
	assert.Zero(t, browser.opened, "relative url never opens a session")

	_, err = scraper.Scrape(context.Background(), "https://reddit.com/r/a/")
	require.ErrorIs(t, err, domain.ErrScrape)
	assert.Equal(t, 1, browser.opened)
}
