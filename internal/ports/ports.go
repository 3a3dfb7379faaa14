package ports

import (
	"context"
	"time"

	"RedditAnalyzer/internal/domain"
)

// TokenProvider issues the bearer token for the content API.
type TokenProvider interface {
	Token(ctx context.Context) (string, error)
}

// PostSource reads listings and threads from the content API.
type PostSource interface {
	FetchHot(ctx context.Context, token, feed string, limit int) ([]domain.Post, error)
	FetchComments(ctx context.Context, token, permalink string, limit int) ([]domain.Comment, error)
}

// ContentScraper renders a post page and extracts its content.
type ContentScraper interface {
	Scrape(ctx context.Context, url string) (domain.ScrapedContent, error)
}

// Analyzer sends assembled post content to a language model.
type Analyzer interface {
	Analyze(ctx context.Context, title, body string, comments []domain.Comment) (domain.AnalysisResult, error)
}

// Browser opens isolated rendering sessions.
type Browser interface {
	NewSession(ctx context.Context) (BrowserSession, error)
}

// BrowserSession is one isolated page. Close must be called on every path.
type BrowserSession interface {
	Navigate(ctx context.Context, url string) error
	WaitForSelector(ctx context.Context, selector string, timeout time.Duration) error
	HTML(ctx context.Context) (string, error)
	Close() error
}

// ProcessedRepository remembers which posts were already analyzed.
type ProcessedRepository interface {
	AlreadyProcessed(ctx context.Context, ids []string) (map[string]bool, error)
	SaveProcessed(ctx context.Context, post domain.ProcessedPost) error
}

// ReportPublisher delivers a run's reports somewhere outside the process.
type ReportPublisher interface {
	Publish(ctx context.Context, reports []domain.PostReport) error
}

// Scheduler controls when pipelines execute.
type Scheduler interface {
	Start(ctx context.Context, job func(time.Time)) error
	Stop(ctx context.Context) error
}
