package browser

import (
	"testing"
	"time"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
	"github.com/stretchr/testify/assert"

	"RedditAnalyzer/internal/config"
)

func TestNewChromeDefaults(t *testing.T) {
	t.Parallel()

	c := NewChrome(config.BrowserConfig{Headless: true}, "analyzer-test/1.0", nil)

	assert.Equal(t, 30*time.Second, c.navigationTimeout)
	assert.Len(t, c.allocatorOptions(), len(chromedp.DefaultExecAllocatorOptions)+1, "user agent only")
}

func TestAllocatorOptionsExtras(t *testing.T) {
	t.Parallel()

	c := NewChrome(config.BrowserConfig{
		Headless:          false,
		ExecPath:          "/usr/bin/chromium",
		NavigationTimeout: 10 * time.Second,
	}, "", nil)

	assert.Equal(t, 10*time.Second, c.navigationTimeout)
	assert.Len(t, c.allocatorOptions(), len(chromedp.DefaultExecAllocatorOptions)+2)
}

func TestLifecycleTrackerIgnoresOtherFrames(t *testing.T) {
	t.Parallel()

	main := cdp.FrameID("MAIN")
	iframe := cdp.FrameID("AD")
	tracker := newLifecycleTracker(main)

	assert.False(t, tracker.observe(&page.EventLifecycleEvent{FrameID: main, Name: "networkIdle"}), "idle before the new document starts")
	assert.False(t, tracker.observe(&page.EventLifecycleEvent{FrameID: iframe, Name: "init"}))
	assert.False(t, tracker.observe(&page.EventLifecycleEvent{FrameID: iframe, Name: "networkIdle"}))
	assert.False(t, tracker.observe(&page.EventLifecycleEvent{FrameID: main, Name: "init"}))
	assert.False(t, tracker.observe(&page.EventLifecycleEvent{FrameID: iframe, Name: "networkIdle"}))
	assert.True(t, tracker.observe(&page.EventLifecycleEvent{FrameID: main, Name: "networkIdle"}))
}
