package report

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"RedditAnalyzer/internal/domain"
	"RedditAnalyzer/internal/ports"
)

// ConsoleWriter prints one human-readable block per analyzed post.
type ConsoleWriter struct {
	out    io.Writer
	logger *slog.Logger
}

var _ ports.ReportPublisher = (*ConsoleWriter)(nil)

// NewConsoleWriter writes report blocks to out.
func NewConsoleWriter(out io.Writer, logger *slog.Logger) *ConsoleWriter {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &ConsoleWriter{out: out, logger: logger}
}

// Publish renders every report in order.
func (w *ConsoleWriter) Publish(ctx context.Context, reports []domain.PostReport) error {
	if w.out == nil {
		return nil
	}
	for _, r := range reports {
		if err := ctx.Err(); err != nil {
			return err
		}
		if _, err := io.WriteString(w.out, FormatBlock(r)); err != nil {
			return fmt.Errorf("write report for %s: %w", r.Post.ID, err)
		}
	}
	w.logger.Debug("console report written", "posts", len(reports))
	return nil
}

// FormatBlock renders a single report. Raw content is always included so a
// failed analysis still shows what was gathered.
func FormatBlock(r domain.PostReport) string {
	var b strings.Builder

	fmt.Fprintf(&b, "=== %d. %s ===\n", r.Rank, r.Post.Title)
	fmt.Fprintf(&b, "Feed: r/%s\n", r.Feed)
	fmt.Fprintf(&b, "Score: %d | Comments: %d | Author: u/%s\n", r.Post.Score, r.Post.NumComments, r.Post.Author)
	fmt.Fprintf(&b, "Upvote Ratio: %.2f | URL: %s\n\n", r.Post.UpvoteRatio, r.Post.URL)

	b.WriteString("Content:\n")
	b.WriteString(bodyOf(r))
	b.WriteString("\n\n")

	b.WriteString("Top comments:\n")
	if comments := commentsOf(r); comments != "" {
		b.WriteString(comments)
	} else {
		b.WriteString("none")
	}
	b.WriteString("\n\n")

	switch {
	case r.Analyzed():
		b.WriteString("Analysis:\n")
		b.WriteString(string(r.Analysis))
		b.WriteString("\n")
	case r.Failed(domain.StageAnalysis):
		b.WriteString("Analysis: failed\n")
	default:
		b.WriteString("Analysis: unavailable\n")
	}

	for _, f := range r.Failures {
		fmt.Fprintf(&b, "! %s failed: %v\n", f.Stage, f.Err)
	}
	b.WriteString("\n")

	return b.String()
}

func bodyOf(r domain.PostReport) string {
	if r.Scraped != nil && strings.TrimSpace(r.Scraped.Content) != "" {
		return r.Scraped.Content
	}
	return domain.PostContent(r.Post.Content)
}

// commentsOf renders API comments, or the rendered page's comments when the
// API gave none.
func commentsOf(r domain.PostReport) string {
	if len(r.Comments) > 0 {
		parts := make([]string, 0, len(r.Comments))
		for _, c := range r.Comments {
			parts = append(parts, fmt.Sprintf("Comment by u/%s (Score: %d):\n%s", c.Author, c.Score, c.Text))
		}
		return strings.Join(parts, "\n\n")
	}
	if r.Scraped != nil {
		return r.Scraped.Comments
	}
	return ""
}
