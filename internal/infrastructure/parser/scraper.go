package parser

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"time"

	"RedditAnalyzer/internal/config"
	"RedditAnalyzer/internal/domain"
	"RedditAnalyzer/internal/ports"
)

// Scraper renders post pages in a fresh browser session and extracts
// their content. Each call owns its session and closes it on return.
type Scraper struct {
	browser     ports.Browser
	selectors   config.Selectors
	contentWait time.Duration
	maxComments int
	logger      *slog.Logger
}

var _ ports.ContentScraper = (*Scraper)(nil)

// NewScraper wires a browser with selector and wait settings.
func NewScraper(browser ports.Browser, cfg config.BrowserConfig, logger *slog.Logger) *Scraper {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	wait := cfg.ContentWait
	if wait <= 0 {
		wait = 5 * time.Second
	}
	return &Scraper{
		browser:     browser,
		selectors:   cfg.Selectors,
		contentWait: wait,
		maxComments: cfg.MaxComments,
		logger:      logger,
	}
}

// Scrape returns the rendered content of pageURL. If the content container
// does not appear within the wait, the whole scrape fails.
func (s *Scraper) Scrape(ctx context.Context, pageURL string) (domain.ScrapedContent, error) {
	if s.browser == nil {
		return domain.ScrapedContent{}, domain.ScrapeError("scrape", errors.New("browser is not configured"))
	}
	parsed, err := url.Parse(pageURL)
	if err != nil || !parsed.IsAbs() {
		return domain.ScrapedContent{}, domain.ScrapeError("scrape", fmt.Errorf("url %q is not absolute", pageURL))
	}

	session, err := s.browser.NewSession(ctx)
	if err != nil {
		return domain.ScrapedContent{}, domain.ScrapeError("open session", err)
	}
	defer func() {
		if closeErr := session.Close(); closeErr != nil {
			s.logger.Warn("close browser session", "url", pageURL, "error", closeErr)
		}
	}()

	s.logger.Debug("navigating", "url", pageURL)
	if err := session.Navigate(ctx, pageURL); err != nil {
		return domain.ScrapedContent{}, domain.ScrapeError("navigate", err)
	}

	if err := session.WaitForSelector(ctx, s.selectors.Content, s.contentWait); err != nil {
		return domain.ScrapedContent{}, domain.ScrapeError("wait for content", err)
	}

	html, err := session.HTML(ctx)
	if err != nil {
		return domain.ScrapedContent{}, domain.ScrapeError("read page", err)
	}

	doc, err := ParseDocument(html)
	if err != nil {
		return domain.ScrapedContent{}, domain.ScrapeError("read page", err)
	}

	return ExtractRenderedPost(doc, s.selectors, s.maxComments), nil
}
