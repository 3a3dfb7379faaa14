package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"RedditAnalyzer/internal/domain"
)

func isolateEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		configPathEnv, redditClientIDEnv, redditClientSecretEnv, redditUserAgentEnv,
		perplexityAPIKeyEnv, perplexityModelEnv, databaseDSNEnv, logLevelEnv, chromePathEnv,
	} {
		t.Setenv(key, "")
	}
	t.Setenv(dotenvPathEnv, "")
	t.Chdir(t.TempDir())
}

func TestLoadDefaults(t *testing.T) {
	isolateEnv(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, []string{"wallstreetbets"}, cfg.Pipeline.Feeds)
	assert.Equal(t, 10, cfg.Pipeline.FetchLimit)
	assert.Equal(t, 5*time.Second, cfg.Browser.ContentWait)
	assert.Equal(t, 5, cfg.Browser.MaxComments)
	assert.Equal(t, "https://www.reddit.com/api/v1/access_token", cfg.Reddit.TokenURL)
	assert.Equal(t, "https://api.perplexity.ai/chat/completions", cfg.Perplexity.Endpoint)
	assert.Equal(t, "UTC", cfg.Scheduler.Location().String())
}

func TestLoadMergesFileAndEnv(t *testing.T) {
	isolateEnv(t)

	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
reddit:
  clientId: file-id
  userAgent: file-agent/1.0
  requestTimeout: 7s
pipeline:
  feeds: [stocks, investing]
  topPosts: 3
  scrape: true
browser:
  contentWait: 2s
  selectors:
    title: h2
`), 0o600))

	t.Setenv(configPathEnv, path)
	t.Setenv(redditClientIDEnv, "env-id")
	t.Setenv(redditClientSecretEnv, "env-secret")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "env-id", cfg.Reddit.ClientID, "env wins over file")
	assert.Equal(t, "env-secret", cfg.Reddit.ClientSecret)
	assert.Equal(t, "file-agent/1.0", cfg.Reddit.UserAgent)
	assert.Equal(t, 7*time.Second, cfg.Reddit.RequestTimeout)
	assert.Equal(t, []string{"stocks", "investing"}, cfg.Pipeline.Feeds)
	assert.Equal(t, 3, cfg.Pipeline.TopPosts)
	assert.True(t, cfg.Pipeline.Scrape)
	assert.Equal(t, 2*time.Second, cfg.Browser.ContentWait)
	assert.Equal(t, "h2", cfg.Browser.Selectors.Title)
	assert.Equal(t, DefaultSelectors().Content, cfg.Browser.Selectors.Content)
	require.NoError(t, cfg.Validate())
}

func TestLoadFileOverridesWithFalseAndZero(t *testing.T) {
	isolateEnv(t)

	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
pipeline:
  analyze: false
report:
  console: false
browser:
  headless: false
perplexity:
  temperature: 0
`), 0o600))
	t.Setenv(configPathEnv, path)

	cfg, err := Load()
	require.NoError(t, err)

	assert.False(t, cfg.Pipeline.Analyze)
	assert.False(t, cfg.Report.Console)
	assert.False(t, cfg.Browser.Headless)
	assert.Zero(t, cfg.Perplexity.Temperature)
	assert.Equal(t, "sonar", cfg.Perplexity.Model, "keys absent from the file keep defaults")
	assert.Equal(t, 1000, cfg.Perplexity.MaxTokens)
}

func TestLoadReadsDotenv(t *testing.T) {
	isolateEnv(t)

	dir := t.TempDir()
	path := filepath.Join(dir, "test.env")
	require.NoError(t, os.WriteFile(path, []byte("PERPLEXITY_API_KEY=pplx-from-dotenv\n"), 0o600))
	t.Setenv(dotenvPathEnv, path)
	// godotenv does not override variables that are already set, even empty ones.
	require.NoError(t, os.Unsetenv(perplexityAPIKeyEnv))

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "pplx-from-dotenv", cfg.Perplexity.APIKey)
}

func TestLoadFailsOnMissingExplicitDotenv(t *testing.T) {
	isolateEnv(t)
	t.Setenv(dotenvPathEnv, filepath.Join(t.TempDir(), "absent.env"))

	_, err := Load()
	require.Error(t, err)
}

func TestValidateNamesMissingSettings(t *testing.T) {
	t.Parallel()

	cfg := defaultConfig()
	cfg.Reddit.ClientID = "id"

	err := cfg.Validate()
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrConfig)
	assert.Contains(t, err.Error(), redditClientSecretEnv)
	assert.Contains(t, err.Error(), redditUserAgentEnv)
	assert.NotContains(t, err.Error(), redditClientIDEnv)
}
