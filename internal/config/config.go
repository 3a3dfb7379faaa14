package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"RedditAnalyzer/internal/domain"
)

const (
	defaultTimezone = "UTC"
	configPathEnv   = "REDDIT_ANALYZER_CONFIG"
	dotenvPathEnv   = "REDDIT_ANALYZER_DOTENV"

	redditClientIDEnv     = "REDDIT_CLIENT_ID"
	redditClientSecretEnv = "REDDIT_CLIENT_SECRET"
	redditUserAgentEnv    = "REDDIT_USER_AGENT"
	perplexityAPIKeyEnv   = "PERPLEXITY_API_KEY"
	perplexityModelEnv    = "PERPLEXITY_MODEL"
	databaseDSNEnv        = "DATABASE_DSN"
	logLevelEnv           = "LOG_LEVEL"
	chromePathEnv         = "CHROME_PATH"
)

// Config holds high-level settings required across the application.
type Config struct {
	Reddit     RedditConfig     `yaml:"reddit"`
	Perplexity PerplexityConfig `yaml:"perplexity"`
	Browser    BrowserConfig    `yaml:"browser"`
	Pipeline   PipelineConfig   `yaml:"pipeline"`
	Retry      RetryConfig      `yaml:"retry"`
	Database   DatabaseConfig   `yaml:"database"`
	Scheduler  SchedulerConfig  `yaml:"scheduler"`
	Report     ReportConfig     `yaml:"report"`
	Logging    LoggingConfig    `yaml:"logging"`
}

// RedditConfig describes the OAuth client and API hosts.
type RedditConfig struct {
	ClientID       string        `yaml:"clientId"`
	ClientSecret   string        `yaml:"clientSecret"`
	UserAgent      string        `yaml:"userAgent"`
	TokenURL       string        `yaml:"tokenUrl"`
	APIBaseURL     string        `yaml:"apiBaseUrl"`
	WebBaseURL     string        `yaml:"webBaseUrl"`
	RequestTimeout time.Duration `yaml:"requestTimeout"`
	// RequestsPerMinute caps calls to the API host; zero disables limiting.
	RequestsPerMinute int `yaml:"requestsPerMinute"`
	// TokenExpirySkew renews the token this long before it actually expires.
	TokenExpirySkew time.Duration `yaml:"tokenExpirySkew"`
}

// PerplexityConfig defines how to contact the analysis endpoint.
type PerplexityConfig struct {
	Endpoint    string        `yaml:"endpoint"`
	Model       string        `yaml:"model"`
	APIKey      string        `yaml:"apiKey"`
	Temperature float64       `yaml:"temperature"`
	MaxTokens   int           `yaml:"maxTokens"`
	Timeout     time.Duration `yaml:"timeout"`
}

// BrowserConfig tunes the headless rendering session.
type BrowserConfig struct {
	ExecPath          string        `yaml:"execPath"`
	Headless          bool          `yaml:"headless"`
	NavigationTimeout time.Duration `yaml:"navigationTimeout"`
	ContentWait       time.Duration `yaml:"contentWait"`
	MaxComments       int           `yaml:"maxComments"`
	Selectors         Selectors     `yaml:"selectors"`
}

// Selectors locate post parts inside the rendered page.
type Selectors struct {
	Title         string `yaml:"title"`
	Content       string `yaml:"content"`
	Comment       string `yaml:"comment"`
	CommentAuthor string `yaml:"commentAuthor"`
	CommentText   string `yaml:"commentText"`
}

// PipelineConfig controls which feeds are read and how much of each.
type PipelineConfig struct {
	Feeds        []string `yaml:"feeds"`
	FetchLimit   int      `yaml:"fetchLimit"`
	TopPosts     int      `yaml:"topPosts"`
	CommentLimit int      `yaml:"commentLimit"`
	Scrape       bool     `yaml:"scrape"`
	Analyze      bool     `yaml:"analyze"`
}

// RetryConfig bounds retries at the HTTP boundary.
type RetryConfig struct {
	MaxAttempts     int           `yaml:"maxAttempts"`
	InitialInterval time.Duration `yaml:"initialInterval"`
	MaxInterval     time.Duration `yaml:"maxInterval"`
}

// DatabaseConfig describes the optional Postgres ledger.
type DatabaseConfig struct {
	DSN string `yaml:"dsn"`
}

// SchedulerConfig defines when recurring runs happen.
type SchedulerConfig struct {
	CronExpression string         `yaml:"cronExpression"`
	Timezone       string         `yaml:"timezone"`
	location       *time.Location `yaml:"-"`
}

// Location resolves the scheduler timezone string to a time.Location.
func (s SchedulerConfig) Location() *time.Location {
	if s.location != nil {
		return s.location
	}
	loc, _ := time.LoadLocation(defaultTimezone)
	return loc
}

// ReportConfig lists optional report sinks.
type ReportConfig struct {
	FeedPath string `yaml:"feedPath"`
	Console  bool   `yaml:"console"`
}

// LoggingConfig selects level and handler format.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Load reads YAML configuration (if present), an optional .env file and
// applies environment overrides.
func Load() (Config, error) {
	cfg := defaultConfig()

	if path := os.Getenv(configPathEnv); path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		}
		// Keys present in the file overwrite defaults, including false and zero.
		if err := yaml.Unmarshal(raw, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	if err := loadDotenv(os.Getenv(dotenvPathEnv)); err != nil {
		return Config{}, err
	}

	cfg.applyEnvOverrides()
	cfg.bindTimezone()

	if len(cfg.Pipeline.Feeds) == 0 {
		cfg.Pipeline.Feeds = defaultConfig().Pipeline.Feeds
	}

	return cfg, nil
}

// loadDotenv reads KEY=value pairs into the process environment without
// overriding variables that are already set. A missing default .env is fine.
func loadDotenv(path string) error {
	explicit := path != ""
	if !explicit {
		path = ".env"
	}
	err := godotenv.Load(path)
	if err == nil {
		return nil
	}
	if !explicit && errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return fmt.Errorf("load %s: %w", path, err)
}

// Validate reports required settings that are absent.
func (c Config) Validate() error {
	var missing []string
	if c.Reddit.ClientID == "" {
		missing = append(missing, redditClientIDEnv)
	}
	if c.Reddit.ClientSecret == "" {
		missing = append(missing, redditClientSecretEnv)
	}
	if strings.TrimSpace(c.Reddit.UserAgent) == "" {
		missing = append(missing, redditUserAgentEnv)
	}
	if len(missing) > 0 {
		return domain.ConfigError("validate", fmt.Errorf("missing required settings: %s", strings.Join(missing, ", ")))
	}
	if c.Pipeline.TopPosts < 1 {
		return domain.ConfigError("validate", fmt.Errorf("pipeline.topPosts must be positive, got %d", c.Pipeline.TopPosts))
	}
	if c.Pipeline.FetchLimit < 1 {
		return domain.ConfigError("validate", fmt.Errorf("pipeline.fetchLimit must be positive, got %d", c.Pipeline.FetchLimit))
	}
	return nil
}

func (c *Config) applyEnvOverrides() {
	if v := os.Getenv(redditClientIDEnv); v != "" {
		c.Reddit.ClientID = v
	}
	if v := os.Getenv(redditClientSecretEnv); v != "" {
		c.Reddit.ClientSecret = v
	}
	if v := os.Getenv(redditUserAgentEnv); v != "" {
		c.Reddit.UserAgent = v
	}
	if v := os.Getenv(perplexityAPIKeyEnv); v != "" {
		c.Perplexity.APIKey = v
	}
	if v := os.Getenv(perplexityModelEnv); v != "" {
		c.Perplexity.Model = v
	}
	if v := os.Getenv(databaseDSNEnv); v != "" {
		c.Database.DSN = v
	}
	if v := os.Getenv(logLevelEnv); v != "" {
		c.Logging.Level = v
	}
	if v := os.Getenv(chromePathEnv); v != "" {
		c.Browser.ExecPath = v
	}
}

func (c *Config) bindTimezone() {
	tz := c.Scheduler.Timezone
	if tz == "" {
		tz = defaultTimezone
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		log.Printf("config: unknown timezone %s, reverting to %s", tz, defaultTimezone)
		loc, _ = time.LoadLocation(defaultTimezone)
	}
	c.Scheduler.location = loc
}

// DefaultSelectors match the post page markup of the web client.
func DefaultSelectors() Selectors {
	return Selectors{
		Title:         "h1",
		Content:       `div[data-test-id="post-content"]`,
		Comment:       `div[data-testid="comment"]`,
		CommentAuthor: `a[data-testid="comment_author"]`,
		CommentText:   `div[data-testid="comment-content"]`,
	}
}

func defaultConfig() Config {
	tz, _ := time.LoadLocation(defaultTimezone)
	return Config{
		Reddit: RedditConfig{
			TokenURL:          "https://www.reddit.com/api/v1/access_token",
			APIBaseURL:        "https://oauth.reddit.com",
			WebBaseURL:        "https://reddit.com",
			RequestTimeout:    15 * time.Second,
			RequestsPerMinute: 60,
			TokenExpirySkew:   time.Minute,
		},
		Perplexity: PerplexityConfig{
			Endpoint:    "https://api.perplexity.ai/chat/completions",
			Model:       "sonar",
			Temperature: 0.2,
			MaxTokens:   1000,
			Timeout:     60 * time.Second,
		},
		Browser: BrowserConfig{
			Headless:          true,
			NavigationTimeout: 30 * time.Second,
			ContentWait:       5 * time.Second,
			MaxComments:       5,
			Selectors:         DefaultSelectors(),
		},
		Pipeline: PipelineConfig{
			Feeds:        []string{"wallstreetbets"},
			FetchLimit:   10,
			TopPosts:     1,
			CommentLimit: 5,
			Analyze:      true,
		},
		Retry: RetryConfig{
			MaxAttempts:     3,
			InitialInterval: 500 * time.Millisecond,
			MaxInterval:     5 * time.Second,
		},
		Scheduler: SchedulerConfig{Timezone: defaultTimezone, location: tz},
		Report:    ReportConfig{Console: true},
		Logging:   LoggingConfig{Level: "info", Format: "text"},
	}
}
