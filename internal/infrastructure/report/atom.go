package report

import (
	"context"
	"fmt"
	"html"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gorilla/feeds"

	"RedditAnalyzer/internal/domain"
	"RedditAnalyzer/internal/ports"
)

// AtomFeed writes a run's reports as an Atom document on disk.
type AtomFeed struct {
	path   string
	link   string
	now    func() time.Time
	logger *slog.Logger
}

var _ ports.ReportPublisher = (*AtomFeed)(nil)

// NewAtomFeed targets path; link is the site the feed points at.
func NewAtomFeed(path, link string, logger *slog.Logger) *AtomFeed {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &AtomFeed{path: path, link: link, now: time.Now, logger: logger}
}

// Publish replaces the feed file with the current reports.
func (a *AtomFeed) Publish(ctx context.Context, reports []domain.PostReport) error {
	if a.path == "" {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	atom, err := BuildAtom(reports, a.link, a.now())
	if err != nil {
		return err
	}

	if dir := filepath.Dir(a.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create feed dir: %w", err)
		}
	}

	tmp := a.path + ".tmp"
	if err := os.WriteFile(tmp, []byte(atom), 0o644); err != nil {
		return fmt.Errorf("write feed: %w", err)
	}
	if err := os.Rename(tmp, a.path); err != nil {
		return fmt.Errorf("replace feed: %w", err)
	}

	a.logger.Info("atom feed written", "path", a.path, "items", len(reports), "bytes", len(atom))
	return nil
}

// BuildAtom renders reports into an Atom document.
func BuildAtom(reports []domain.PostReport, link string, now time.Time) (string, error) {
	feed := &feeds.Feed{
		Title:       "Reddit hot post analysis",
		Description: "Top posts per feed with comment digest and fact-check",
		Link:        &feeds.Link{Href: link, Rel: "self", Type: "text/html"},
		Id:          "tag:redditanalyzer,2024:feed",
		Created:     now,
		Updated:     now,
	}

	for _, r := range reports {
		created := r.Post.CreatedUTC
		if created.IsZero() {
			created = now
		}
		feed.Items = append(feed.Items, &feeds.Item{
			Title:       fmt.Sprintf("[r/%s] %s", r.Feed, r.Post.Title),
			Link:        &feeds.Link{Href: r.Post.URL, Rel: "alternate", Type: "text/html"},
			Id:          r.Post.URL,
			Author:      &feeds.Author{Name: r.Post.Author},
			Description: describe(r),
			Created:     created,
			Updated:     r.Processed,
		})
	}

	atom, err := feed.ToAtom()
	if err != nil {
		return "", fmt.Errorf("render atom: %w", err)
	}
	return atom, nil
}

func describe(r domain.PostReport) string {
	var b strings.Builder
	fmt.Fprintf(&b, "<p><strong>%d points</strong> • %d comments • ratio %.2f</p>",
		r.Post.Score, r.Post.NumComments, r.Post.UpvoteRatio)
	fmt.Fprintf(&b, "<pre>%s</pre>", html.EscapeString(bodyOf(r)))
	if comments := commentsOf(r); comments != "" {
		fmt.Fprintf(&b, "<h4>Top comments</h4><pre>%s</pre>", html.EscapeString(comments))
	}
	switch {
	case r.Analyzed():
		fmt.Fprintf(&b, "<h4>Analysis</h4><pre>%s</pre>", html.EscapeString(string(r.Analysis)))
	case r.Failed(domain.StageAnalysis):
		b.WriteString("<p><em>Analysis failed</em></p>")
	default:
		b.WriteString("<p><em>Analysis unavailable</em></p>")
	}
	return b.String()
}
