package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"RedditAnalyzer/internal/app"
	"RedditAnalyzer/internal/config"
	"RedditAnalyzer/internal/logging"
)

// runOptions mirrors the flags of the run command.
type runOptions struct {
	configPath string
	feeds      []string
	top        int
	limit      int
	comments   int
	scrape     bool
	noAnalyze  bool
	watch      bool
	cron       string
	atomPath   string
	logLevel   string
	logFormat  string
}

func newRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           "redditanalyzer",
		Short:         "Fetch hot posts, gather comments and fact-check them with an LLM",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
	}
	root.AddCommand(newRunCommand(&runOptions{}))
	return root
}

func newRunCommand(opts *runOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Analyze the top hot posts of each feed",
		Example: "  redditanalyzer run --feed wallstreetbets --feed stocks --top 3\n" +
			"  redditanalyzer run --watch --cron '0 */6 * * *' --atom out/feed.xml",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd, opts)
			if err != nil {
				fmt.Fprintln(os.Stderr, "config:", err)
				return err
			}

			logger := logging.New(cfg.Logging.Level, cfg.Logging.Format)
			ctx := cmd.Context()

			application, err := app.New(ctx, cfg, app.Options{Logger: logger, Out: cmd.OutOrStdout()})
			if err != nil {
				logger.Error("startup failed", "error", err)
				return err
			}
			defer func() {
				if cerr := application.Close(); cerr != nil {
					logger.Warn("close failed", "error", cerr)
				}
			}()

			if opts.watch {
				err = application.Watch(ctx)
			} else {
				err = application.Run(ctx)
			}
			if err != nil {
				logger.Error("application stopped", "error", err)
			}
			return err
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&opts.configPath, "config", "", "YAML config file (overrides REDDIT_ANALYZER_CONFIG)")
	flags.StringSliceVar(&opts.feeds, "feed", nil, "feed (subreddit) to read; repeatable")
	flags.IntVar(&opts.top, "top", 0, "posts analyzed per feed")
	flags.IntVar(&opts.limit, "limit", 0, "posts fetched from each hot listing")
	flags.IntVar(&opts.comments, "comments", 0, "top comments included per post")
	flags.BoolVar(&opts.scrape, "scrape", false, "render each post page in a headless browser")
	flags.BoolVar(&opts.noAnalyze, "no-analyze", false, "report posts without calling the analysis endpoint")
	flags.BoolVar(&opts.watch, "watch", false, "keep running on the cron schedule")
	flags.StringVar(&opts.cron, "cron", "", "cron expression for --watch")
	flags.StringVar(&opts.atomPath, "atom", "", "write an Atom feed of the reports to this path")
	flags.StringVar(&opts.logLevel, "log-level", "", "debug, info, warn or error")
	flags.StringVar(&opts.logFormat, "log-format", "", "text or json")

	return cmd
}

// loadConfig reads the layered configuration and applies flags that were
// set explicitly.
func loadConfig(cmd *cobra.Command, opts *runOptions) (config.Config, error) {
	if opts.configPath != "" {
		if err := os.Setenv("REDDIT_ANALYZER_CONFIG", opts.configPath); err != nil {
			return config.Config{}, err
		}
	}

	cfg, err := config.Load()
	if err != nil {
		return config.Config{}, err
	}

	flags := cmd.Flags()
	if flags.Changed("feed") {
		cfg.Pipeline.Feeds = opts.feeds
	}
	if flags.Changed("top") {
		cfg.Pipeline.TopPosts = opts.top
	}
	if flags.Changed("limit") {
		cfg.Pipeline.FetchLimit = opts.limit
	}
	if flags.Changed("comments") {
		cfg.Pipeline.CommentLimit = opts.comments
	}
	if flags.Changed("scrape") {
		cfg.Pipeline.Scrape = opts.scrape
	}
	if opts.noAnalyze {
		cfg.Pipeline.Analyze = false
	}
	if flags.Changed("cron") {
		cfg.Scheduler.CronExpression = opts.cron
	}
	if flags.Changed("atom") {
		cfg.Report.FeedPath = opts.atomPath
	}
	if flags.Changed("log-level") {
		cfg.Logging.Level = opts.logLevel
	}
	if flags.Changed("log-format") {
		cfg.Logging.Format = opts.logFormat
	}

	return cfg, nil
}
