package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"RedditAnalyzer/internal/config"
	"RedditAnalyzer/internal/domain"
	"RedditAnalyzer/internal/infrastructure/browser"
	"RedditAnalyzer/internal/infrastructure/llm"
	"RedditAnalyzer/internal/infrastructure/parser"
	"RedditAnalyzer/internal/infrastructure/reddit"
	"RedditAnalyzer/internal/infrastructure/report"
	"RedditAnalyzer/internal/infrastructure/scheduler"
	"RedditAnalyzer/internal/infrastructure/storage"
	"RedditAnalyzer/internal/logging"
	"RedditAnalyzer/internal/ports"
	"RedditAnalyzer/internal/retry"
	"RedditAnalyzer/internal/usecase"
)

const stopTimeout = 30 * time.Second

// Application wires configs to use cases and lifecycle orchestration.
type Application struct {
	cfg       config.Config
	logger    *slog.Logger
	pipeline  *usecase.Pipeline
	scheduler *usecase.Scheduler
	db        *sql.DB
}

// Options carries process-level collaborators.
type Options struct {
	Logger *slog.Logger
	// Out receives the console report; defaults to stdout.
	Out io.Writer
}

// New validates cfg and builds every adapter the run needs.
func New(ctx context.Context, cfg config.Config, opts Options) (*Application, error) {
	baseLogger := opts.Logger
	if baseLogger == nil {
		baseLogger = logging.New(cfg.Logging.Level, cfg.Logging.Format)
	}
	out := opts.Out
	if out == nil {
		out = os.Stdout
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	redditLogger := baseLogger.With("component", "reddit")
	tokens := reddit.NewTokenProvider(cfg.Reddit, retryPolicy(cfg.Retry, redditLogger), redditLogger)
	client := reddit.NewClient(cfg.Reddit, retryPolicy(cfg.Retry, redditLogger), redditLogger)

	var scraper ports.ContentScraper
	if cfg.Pipeline.Scrape {
		chrome := browser.NewChrome(cfg.Browser, cfg.Reddit.UserAgent, baseLogger.With("component", "browser"))
		scraper = parser.NewScraper(chrome, cfg.Browser, baseLogger.With("component", "scraper"))
	}

	var analyzer ports.Analyzer
	switch {
	case !cfg.Pipeline.Analyze:
		baseLogger.Info("analysis disabled by configuration")
	case cfg.Perplexity.APIKey == "":
		baseLogger.Warn("PERPLEXITY_API_KEY is not set, posts will be reported without analysis")
	default:
		llmLogger := baseLogger.With("component", "perplexity")
		analyzer = llm.NewPerplexityClient(cfg.Perplexity, retryPolicy(cfg.Retry, llmLogger), llmLogger)
	}

	application := &Application{cfg: cfg, logger: baseLogger}

	var repository ports.ProcessedRepository
	if cfg.Database.DSN != "" {
		repo, db, err := openLedger(ctx, cfg.Database.DSN)
		if err != nil {
			return nil, err
		}
		application.db = db
		repository = repo
	}

	var publishers []ports.ReportPublisher
	if cfg.Report.Console {
		publishers = append(publishers, report.NewConsoleWriter(out, baseLogger.With("component", "report")))
	}
	if cfg.Report.FeedPath != "" {
		publishers = append(publishers, report.NewAtomFeed(cfg.Report.FeedPath, cfg.Reddit.WebBaseURL, baseLogger.With("component", "atom")))
	}

	application.pipeline = usecase.NewPipeline(usecase.PipelineDeps{
		Tokens:     tokens,
		Posts:      client,
		Scraper:    scraper,
		Analyzer:   analyzer,
		Repository: repository,
		Publishers: publishers,
		Settings: usecase.Settings{
			Feeds:        cfg.Pipeline.Feeds,
			FetchLimit:   cfg.Pipeline.FetchLimit,
			TopPosts:     cfg.Pipeline.TopPosts,
			CommentLimit: cfg.Pipeline.CommentLimit,
			Scrape:       cfg.Pipeline.Scrape,
		},
		Logger: baseLogger.With("component", "pipeline"),
	})

	if cfg.Scheduler.CronExpression != "" {
		driver := scheduler.NewCronScheduler(cfg.Scheduler.CronExpression, cfg.Scheduler.Location(), baseLogger.With("component", "scheduler"))
		if err := driver.Validate(); err != nil {
			_ = application.Close()
			return nil, err
		}
		application.scheduler = usecase.NewScheduler(driver, application.pipeline, baseLogger.With("component", "scheduler"))
	}

	return application, nil
}

func openLedger(ctx context.Context, dsn string) (*storage.PostgresRepository, *sql.DB, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, nil, fmt.Errorf("open ledger: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, nil, fmt.Errorf("ping ledger: %w", err)
	}
	repo := storage.NewPostgresRepository(db)
	if err := repo.EnsureSchema(ctx); err != nil {
		_ = db.Close()
		return nil, nil, fmt.Errorf("prepare ledger: %w", err)
	}
	return repo, db, nil
}

func retryPolicy(cfg config.RetryConfig, logger *slog.Logger) retry.Config {
	policy := retry.DefaultConfig()
	if cfg.MaxAttempts > 0 {
		policy.MaxAttempts = cfg.MaxAttempts
	}
	if cfg.InitialInterval > 0 {
		policy.InitialInterval = cfg.InitialInterval
	}
	if cfg.MaxInterval > 0 {
		policy.MaxInterval = cfg.MaxInterval
	}
	policy.OnRetry = func(err error, wait time.Duration) {
		logger.Warn("request failed, retrying", "error", err, "wait", wait)
	}
	return policy
}

// Run performs a single pipeline execution.
func (a *Application) Run(ctx context.Context) error {
	if a.pipeline == nil {
		return nil
	}

	_, err := a.pipeline.Run(ctx)
	return err
}

// Watch runs the pipeline on the configured cron schedule until ctx is done.
func (a *Application) Watch(ctx context.Context) error {
	if a.scheduler == nil {
		return domain.ConfigError("watch", errors.New("scheduler.cronExpression is not set"))
	}

	if err := a.scheduler.Start(ctx); err != nil {
		return err
	}
	<-ctx.Done()

	stopCtx, cancel := context.WithTimeout(context.Background(), stopTimeout)
	defer cancel()
	return a.scheduler.Stop(stopCtx)
}

// Close releases the ledger connection, if any.
func (a *Application) Close() error {
	if a.db == nil {
		return nil
	}
	return a.db.Close()
}
