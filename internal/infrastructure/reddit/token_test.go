package reddit

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"RedditAnalyzer/internal/config"
	"RedditAnalyzer/internal/domain"
	"RedditAnalyzer/internal/retry"
)

func testRetry() retry.Config {
	return retry.Config{MaxAttempts: 2, InitialInterval: time.Millisecond, MaxInterval: time.Millisecond}
}

func tokenServer(t *testing.T, hits *atomic.Int32, status int, body string) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)

		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "analyzer-test/1.0", r.Header.Get("User-Agent"))
		user, pass, ok := r.BasicAuth()
		assert.True(t, ok, "basic auth expected")
		assert.Equal(t, "client", user)
		assert.Equal(t, "secret", pass)
		assert.NoError(t, r.ParseForm())
		assert.Equal(t, "client_credentials", r.PostForm.Get("grant_type"))

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(server.Close)
	return server
}

func newTestProvider(tokenURL string) *TokenProvider {
	return NewTokenProvider(config.RedditConfig{
		ClientID:        "client",
		ClientSecret:    "secret",
		UserAgent:       "analyzer-test/1.0",
		TokenURL:        tokenURL,
		RequestTimeout:  time.Second,
		TokenExpirySkew: time.Minute,
	}, testRetry(), nil)
}

func TestTokenProviderCachesUntilExpiry(t *testing.T) {
	t.Parallel()

	var hits atomic.Int32
	server := tokenServer(t, &hits, http.StatusOK, `{"access_token":"T1","token_type":"bearer","expires_in":3600}`)

	provider := newTestProvider(server.URL)
	now := time.Now()
	provider.now = func() time.Time { return now }

	token, err := provider.Token(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "T1", token)

	token, err = provider.Token(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "T1", token)
	assert.Equal(t, int32(1), hits.Load(), "second call must hit the cache")

	cred, err := provider.Credential(context.Background())
	require.NoError(t, err)
	assert.InDelta(t, time.Hour.Seconds(), cred.TTL.Seconds(), 5)

	now = now.Add(time.Hour)
	_, err = provider.Token(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int32(2), hits.Load(), "expired credential must be renewed")
}

func TestTokenProviderSingleFetchUnderConcurrency(t *testing.T) {
	t.Parallel()

	var hits atomic.Int32
	server := tokenServer(t, &hits, http.StatusOK, `{"access_token":"T1","token_type":"bearer","expires_in":3600}`)
	provider := newTestProvider(server.URL)

	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			token, err := provider.Token(context.Background())
			assert.NoError(t, err)
			assert.Equal(t, "T1", token)
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), hits.Load())
}

func TestTokenProviderRejectedCredentials(t *testing.T) {
	t.Parallel()

	var hits atomic.Int32
	server := tokenServer(t, &hits, http.StatusUnauthorized, `{"error":"invalid_client"}`)
	provider := newTestProvider(server.URL)

	token, err := provider.Token(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrAuth)
	assert.Empty(t, token)
	assert.Equal(t, int32(1), hits.Load(), "4xx is not retried")
}

func TestTokenProviderMissingAccessToken(t *testing.T) {
	t.Parallel()

	var hits atomic.Int32
	server := tokenServer(t, &hits, http.StatusOK, `{"token_type":"bearer","expires_in":3600}`)
	provider := newTestProvider(server.URL)

	_, err := provider.Token(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrAuth)
}

func TestTokenProviderRetriesServerErrors(t *testing.T) {
	t.Parallel()

	var hits atomic.Int32
	server := tokenServer(t, &hits, http.StatusServiceUnavailable, `busy`)
	provider := newTestProvider(server.URL)

	_, err := provider.Token(context.Background())
	require.ErrorIs(t, err, domain.ErrAuth)
	assert.Equal(t, int32(2), hits.Load())
}

func TestTokenProviderRequiresCredentials(t *testing.T) {
	t.Parallel()

	provider := NewTokenProvider(config.RedditConfig{TokenURL: "http://127.0.0.1:0"}, testRetry(), nil)

	_, err := provider.Token(context.Background())
	require.ErrorIs(t, err, domain.ErrAuth)
	assert.Contains(t, err.Error(), "client id")
	assert.Contains(t, err.Error(), "user agent")
}
