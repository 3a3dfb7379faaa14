// Package browser runs isolated headless Chrome sessions through the
// DevTools protocol.
package browser

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"

	"RedditAnalyzer/internal/config"
	"RedditAnalyzer/internal/ports"
)

// Chrome launches one browser process per session.
type Chrome struct {
	execPath          string
	headless          bool
	userAgent         string
	navigationTimeout time.Duration
	logger            *slog.Logger
}

var _ ports.Browser = (*Chrome)(nil)

// NewChrome builds a launcher from the browser config.
func NewChrome(cfg config.BrowserConfig, userAgent string, logger *slog.Logger) *Chrome {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	timeout := cfg.NavigationTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Chrome{
		execPath:          cfg.ExecPath,
		headless:          cfg.Headless,
		userAgent:         userAgent,
		navigationTimeout: timeout,
		logger:            logger,
	}
}

func (c *Chrome) allocatorOptions() []chromedp.ExecAllocatorOption {
	opts := append([]chromedp.ExecAllocatorOption{}, chromedp.DefaultExecAllocatorOptions[:]...)
	if !c.headless {
		opts = append(opts, chromedp.Flag("headless", false))
	}
	if c.execPath != "" {
		opts = append(opts, chromedp.ExecPath(c.execPath))
	}
	if c.userAgent != "" {
		opts = append(opts, chromedp.UserAgent(c.userAgent))
	}
	return opts
}

// NewSession starts a fresh browser with its own profile. The caller must Close it.
func (c *Chrome) NewSession(ctx context.Context) (ports.BrowserSession, error) {
	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, c.allocatorOptions()...)
	browserCtx, cancelBrowser := chromedp.NewContext(allocCtx)

	// The first Run starts the process; later timeouts derive from browserCtx
	// without owning the browser.
	if err := chromedp.Run(browserCtx, page.SetLifecycleEventsEnabled(true)); err != nil {
		cancelBrowser()
		cancelAlloc()
		return nil, fmt.Errorf("start browser: %w", err)
	}

	c.logger.Debug("browser session started")
	return &Session{
		ctx:               browserCtx,
		cancelBrowser:     cancelBrowser,
		cancelAlloc:       cancelAlloc,
		navigationTimeout: c.navigationTimeout,
	}, nil
}

// Session is a single tab in a dedicated browser process.
type Session struct {
	ctx               context.Context
	cancelBrowser     context.CancelFunc
	cancelAlloc       context.CancelFunc
	navigationTimeout time.Duration

	closeOnce sync.Once
	closeErr  error
}

var _ ports.BrowserSession = (*Session)(nil)

// run executes actions bounded by timeout and by the caller's ctx.
func (s *Session) run(ctx context.Context, timeout time.Duration, actions ...chromedp.Action) error {
	runCtx, cancel := context.WithTimeout(s.ctx, timeout)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	return chromedp.Run(runCtx, actions...)
}

// Navigate loads url and waits until the top-level frame reports network idle.
func (s *Session) Navigate(ctx context.Context, url string) error {
	var mainFrame cdp.FrameID
	err := s.run(ctx, s.navigationTimeout, chromedp.ActionFunc(func(ctx context.Context) error {
		tree, err := page.GetFrameTree().Do(ctx)
		if err != nil {
			return err
		}
		mainFrame = tree.Frame.ID
		return nil
	}))
	if err != nil {
		return fmt.Errorf("navigate %s: read frame tree: %w", url, err)
	}

	idle := make(chan struct{})
	var once sync.Once
	tracker := newLifecycleTracker(mainFrame)

	listenCtx, stopListening := context.WithCancel(s.ctx)
	defer stopListening()
	chromedp.ListenTarget(listenCtx, func(ev any) {
		e, ok := ev.(*page.EventLifecycleEvent)
		if !ok {
			return
		}
		if tracker.observe(e) {
			once.Do(func() { close(idle) })
		}
	})

	deadline := time.Now().Add(s.navigationTimeout)
	if err := s.run(ctx, s.navigationTimeout, chromedp.Navigate(url)); err != nil {
		return fmt.Errorf("navigate %s: %w", url, err)
	}

	timer := time.NewTimer(max(time.Until(deadline), 0))
	defer timer.Stop()
	select {
	case <-idle:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return fmt.Errorf("navigate %s: network did not settle within %s", url, s.navigationTimeout)
	}
}

// lifecycleTracker reports network idle for one frame once a new document
// has started loading in it. Events from other frames are ignored.
type lifecycleTracker struct {
	frame   cdp.FrameID
	started atomic.Bool
}

func newLifecycleTracker(frame cdp.FrameID) *lifecycleTracker {
	return &lifecycleTracker{frame: frame}
}

func (t *lifecycleTracker) observe(e *page.EventLifecycleEvent) bool {
	if e == nil || e.FrameID != t.frame {
		return false
	}
	switch e.Name {
	case "init":
		t.started.Store(true)
	case "networkIdle":
		return t.started.Load()
	}
	return false
}

// WaitForSelector blocks until selector matches a node or timeout passes.
func (s *Session) WaitForSelector(ctx context.Context, selector string, timeout time.Duration) error {
	err := s.run(ctx, timeout, chromedp.WaitReady(selector, chromedp.ByQuery))
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("selector %s not found within %s: %w", selector, timeout, err)
	}
	return err
}

// HTML returns the serialized rendered document.
func (s *Session) HTML(ctx context.Context) (string, error) {
	var html string
	if err := s.run(ctx, s.navigationTimeout, chromedp.OuterHTML("html", &html, chromedp.ByQuery)); err != nil {
		return "", fmt.Errorf("read document: %w", err)
	}
	return html, nil
}

// Close shuts the browser down. It is safe to call more than once.
func (s *Session) Close() error {
	s.closeOnce.Do(func() {
		s.closeErr = chromedp.Cancel(s.ctx)
		s.cancelBrowser()
		s.cancelAlloc()
	})
	return s.closeErr
}
