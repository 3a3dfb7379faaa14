package reddit

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"

	"RedditAnalyzer/internal/config"
	"RedditAnalyzer/internal/domain"
	"RedditAnalyzer/internal/ports"
	"RedditAnalyzer/internal/retry"
)

// TokenProvider exchanges the client id and secret for an application-only
// bearer token and caches it until shortly before it expires.
type TokenProvider struct {
	oauth      clientcredentials.Config
	userAgent  string
	httpClient *http.Client
	retry      retry.Config
	skew       time.Duration
	now        func() time.Time
	logger     *slog.Logger

	mu   sync.Mutex
	cred domain.Credential
}

var _ ports.TokenProvider = (*TokenProvider)(nil)

// NewTokenProvider builds a provider from the reddit section of the config.
func NewTokenProvider(cfg config.RedditConfig, retryCfg retry.Config, logger *slog.Logger) *TokenProvider {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &TokenProvider{
		oauth: clientcredentials.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			TokenURL:     cfg.TokenURL,
			AuthStyle:    oauth2.AuthStyleInHeader,
		},
		userAgent:  cfg.UserAgent,
		httpClient: NewHTTPClient(cfg.RequestTimeout, cfg.UserAgent),
		retry:      retryCfg,
		skew:       cfg.TokenExpirySkew,
		now:        time.Now,
		logger:     logger,
	}
}

// Token returns a bearer token that is valid right now.
func (p *TokenProvider) Token(ctx context.Context) (string, error) {
	cred, err := p.Credential(ctx)
	if err != nil {
		return "", err
	}
	return cred.AccessToken, nil
}

// Credential returns the cached credential, renewing it when it has expired.
// Concurrent callers share a single renewal.
func (p *TokenProvider) Credential(ctx context.Context) (domain.Credential, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	now := p.now()
	if p.cred.Valid(now, p.skew) {
		return p.cred, nil
	}

	if err := p.checkConfigured(); err != nil {
		return domain.Credential{}, err
	}

	ctx = context.WithValue(ctx, oauth2.HTTPClient, p.httpClient)

	var tok *oauth2.Token
	err := retry.Do(ctx, p.retry, func() error {
		t, err := p.oauth.Token(ctx)
		if err != nil {
			return classifyTokenError(err)
		}
		tok = t
		return nil
	})
	if err != nil {
		return domain.Credential{}, domain.AuthError("request token", err)
	}
	if tok == nil || tok.AccessToken == "" {
		return domain.Credential{}, domain.AuthError("request token", errors.New("response has no access_token"))
	}

	var ttl time.Duration
	if !tok.Expiry.IsZero() {
		ttl = tok.Expiry.Sub(now)
	}
	p.cred = domain.Credential{
		AccessToken: tok.AccessToken,
		ObtainedAt:  now,
		TTL:         ttl,
	}
	p.logger.Debug("obtained access token", "ttl", ttl)

	return p.cred, nil
}

func (p *TokenProvider) checkConfigured() error {
	var missing []string
	if p.oauth.ClientID == "" {
		missing = append(missing, "client id")
	}
	if p.oauth.ClientSecret == "" {
		missing = append(missing, "client secret")
	}
	if strings.TrimSpace(p.userAgent) == "" {
		missing = append(missing, "user agent")
	}
	if p.oauth.TokenURL == "" {
		missing = append(missing, "token url")
	}
	if len(missing) > 0 {
		return domain.AuthError("configure", fmt.Errorf("missing %s", strings.Join(missing, ", ")))
	}
	return nil
}

// classifyTokenError decides whether a failed exchange is worth repeating.
// Transport failures and 429/5xx are retried; anything else is final.
func classifyTokenError(err error) error {
	var rerr *oauth2.RetrieveError
	if errors.As(err, &rerr) {
		if rerr.Response != nil && retry.RetryableStatus(rerr.Response.StatusCode) {
			return err
		}
		return retry.Permanent(err)
	}
	var uerr *url.Error
	if errors.As(err, &uerr) {
		return err
	}
	return retry.Permanent(err)
}
