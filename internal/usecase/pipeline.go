package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"RedditAnalyzer/internal/domain"
	"RedditAnalyzer/internal/ports"
	"RedditAnalyzer/internal/ranking"
)

// Settings selects what a run reads.
type Settings struct {
	Feeds        []string
	FetchLimit   int
	TopPosts     int
	CommentLimit int
	Scrape       bool
}

// PipelineDeps wires all driven adapters into the orchestration pipeline.
// Scraper, Analyzer and Repository are optional.
type PipelineDeps struct {
	Tokens     ports.TokenProvider
	Posts      ports.PostSource
	Scraper    ports.ContentScraper
	Analyzer   ports.Analyzer
	Repository ports.ProcessedRepository
	Publishers []ports.ReportPublisher
	Settings   Settings
	Logger     *slog.Logger
}

// Pipeline fetches hot posts per feed, picks the top ones and analyzes
// each in turn. A failing post or feed never stops the others.
type Pipeline struct {
	tokens     ports.TokenProvider
	posts      ports.PostSource
	scraper    ports.ContentScraper
	analyzer   ports.Analyzer
	repository ports.ProcessedRepository
	publishers []ports.ReportPublisher
	settings   Settings
	logger     *slog.Logger
	now        func() time.Time
	newRunID   func() string
}

// NewPipeline constructs the orchestration component.
func NewPipeline(deps PipelineDeps) *Pipeline {
	logger := deps.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Pipeline{
		tokens:     deps.Tokens,
		posts:      deps.Posts,
		scraper:    deps.Scraper,
		analyzer:   deps.Analyzer,
		repository: deps.Repository,
		publishers: deps.Publishers,
		settings:   deps.Settings,
		logger:     logger,
		now:        time.Now,
		newRunID:   uuid.NewString,
	}
}

// Run executes one pass over all configured feeds. Only an authentication
// or configuration failure, or ctx cancellation, ends it early; in that
// case the reports gathered so far are returned with the error.
func (p *Pipeline) Run(ctx context.Context) ([]domain.PostReport, error) {
	if p.tokens == nil || p.posts == nil {
		return nil, domain.ConfigError("pipeline", errors.New("token provider and post source are required"))
	}

	runID := p.newRunID()
	logger := p.logger.With("run_id", runID)
	logger.Info("run started", "feeds", strings.Join(p.settings.Feeds, ","), "top", p.settings.TopPosts)

	if _, err := p.tokens.Token(ctx); err != nil {
		logger.Error("authentication failed", "error", err)
		return nil, fmt.Errorf("obtain token: %w", err)
	}
	logger.Info("access token obtained")

	var reports []domain.PostReport
	for _, feed := range p.settings.Feeds {
		if err := ctx.Err(); err != nil {
			return reports, err
		}

		feedReports, err := p.runFeed(ctx, logger.With("feed", feed), runID, feed, len(reports))
		reports = append(reports, feedReports...)
		if err != nil {
			if domain.Fatal(err) {
				p.publish(ctx, logger, reports)
			}
			return reports, err
		}
	}

	p.publish(ctx, logger, reports)
	logger.Info("run finished", "posts", len(reports), "failed", countFailed(reports))
	return reports, nil
}

func (p *Pipeline) runFeed(ctx context.Context, logger *slog.Logger, runID, feed string, offset int) ([]domain.PostReport, error) {
	token, err := p.tokens.Token(ctx)
	if err != nil {
		logger.Error("authentication failed", "error", err)
		return nil, fmt.Errorf("obtain token: %w", err)
	}

	posts, err := p.posts.FetchHot(ctx, token, feed, p.settings.FetchLimit)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		if domain.Fatal(err) {
			logger.Error("fetch hot posts failed", "stage", domain.StageFetch, "error", err)
			return nil, fmt.Errorf("fetch %s: %w", feed, err)
		}
		logger.Warn("skipping feed", "stage", domain.StageFetch, "error", err)
		return nil, nil
	}
	logger.Info("hot posts fetched", "count", len(posts))

	selected := ranking.TopN(posts, p.settings.TopPosts)
	done := p.alreadyProcessed(ctx, logger, selected)

	var reports []domain.PostReport
	for _, post := range selected {
		if err := ctx.Err(); err != nil {
			return reports, err
		}
		if done[post.ID] {
			logger.Info("post already analyzed, skipping", "post", post.ID)
			continue
		}

		report := p.processPost(ctx, logger.With("post", post.ID), runID, token, feed, post)
		if err := ctx.Err(); err != nil {
			return reports, err
		}
		report.Rank = offset + len(reports) + 1
		reports = append(reports, report)
	}

	return reports, nil
}

// processPost gathers comments, optional rendered content and the analysis
// for one post. Stage failures are recorded on the report, never returned.
func (p *Pipeline) processPost(ctx context.Context, logger *slog.Logger, runID, token, feed string, post domain.Post) domain.PostReport {
	report := domain.PostReport{Feed: feed, Post: post}
	logger.Info("processing post", "title", post.Title, "score", post.Score)

	comments, err := p.posts.FetchComments(ctx, token, post.Permalink, p.settings.CommentLimit)
	if err != nil {
		report.Failures = append(report.Failures, p.fail(logger, domain.StageThread, post, err))
	} else {
		report.Comments = comments
		logger.Info("comments fetched", "count", len(comments))
	}

	if p.scraper != nil && p.settings.Scrape && ctx.Err() == nil {
		scraped, err := p.scraper.Scrape(ctx, post.URL)
		if err != nil {
			report.Failures = append(report.Failures, p.fail(logger, domain.StageScrape, post, err))
		} else if !scraped.Empty() {
			report.Scraped = &scraped
			logger.Info("rendered page scraped", "content_bytes", len(scraped.Content))
		}
	}

	if p.analyzer != nil && ctx.Err() == nil {
		body, analysisComments := analysisInput(report)
		result, err := p.analyzer.Analyze(ctx, post.Title, body, analysisComments)
		if err != nil {
			report.Failures = append(report.Failures, p.fail(logger, domain.StageAnalysis, post, err))
		} else {
			report.Analysis = result
			logger.Info("analysis complete", "chars", len(result))
		}
		p.record(ctx, logger, runID, &report)
	}

	report.Processed = p.now()
	return report
}

// analysisInput prefers rendered content when it is non-empty. Rendered
// comments are appended to the body only when the API gave none.
func analysisInput(report domain.PostReport) (string, []domain.Comment) {
	body := domain.PostContent(report.Post.Content)
	if report.Scraped == nil {
		return body, report.Comments
	}
	if strings.TrimSpace(report.Scraped.Content) != "" {
		body = report.Scraped.Content
	}
	if len(report.Comments) == 0 && report.Scraped.Comments != "" {
		body += "\n\nComments from the page:\n" + report.Scraped.Comments
	}
	return body, report.Comments
}

func (p *Pipeline) fail(logger *slog.Logger, stage domain.Stage, post domain.Post, err error) domain.StageFailure {
	logger.Warn("stage failed", "stage", stage, "title", post.Title, "error", err)
	return domain.StageFailure{Stage: stage, Err: err}
}

func (p *Pipeline) alreadyProcessed(ctx context.Context, logger *slog.Logger, posts []domain.Post) map[string]bool {
	if p.repository == nil || len(posts) == 0 {
		return nil
	}
	ids := make([]string, len(posts))
	for i, post := range posts {
		ids[i] = post.ID
	}
	done, err := p.repository.AlreadyProcessed(ctx, ids)
	if err != nil {
		logger.Warn("ledger lookup failed, processing all posts", "stage", domain.StageLedger, "error", err)
		return nil
	}
	return done
}

func (p *Pipeline) record(ctx context.Context, logger *slog.Logger, runID string, report *domain.PostReport) {
	if p.repository == nil || ctx.Err() != nil {
		return
	}
	status := domain.StatusAnalyzed
	if !report.Analyzed() {
		status = domain.StatusAnalysisFailed
	}
	err := p.repository.SaveProcessed(ctx, domain.ProcessedPost{
		PostID:    report.Post.ID,
		Feed:      report.Feed,
		Permalink: report.Post.Permalink,
		Score:     report.Post.Score,
		Status:    status,
		RunID:     runID,
	})
	if err != nil {
		report.Failures = append(report.Failures, p.fail(logger, domain.StageLedger, report.Post, err))
	}
}

func (p *Pipeline) publish(ctx context.Context, logger *slog.Logger, reports []domain.PostReport) {
	if len(reports) == 0 {
		return
	}
	for _, pub := range p.publishers {
		if err := pub.Publish(ctx, reports); err != nil {
			logger.Warn("publish report failed", "error", err)
		}
	}
}

func countFailed(reports []domain.PostReport) int {
	n := 0
	for _, r := range reports {
		if len(r.Failures) > 0 {
			n++
		}
	}
	return n
}
