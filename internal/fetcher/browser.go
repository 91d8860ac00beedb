package fetcher

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"

	"github.com/dancedb/dancedb/internal/config"
	"github.com/dancedb/dancedb/internal/types"
)

// BrowserFetcher implements Fetcher using a headless browser via Rod.
// Chromium is launched on the first Fetch, not at construction.
type BrowserFetcher struct {
	cfg     *config.BrowserConfig
	logger  *slog.Logger
	mu      sync.Mutex
	browser *rod.Browser
}

// NewBrowserFetcher creates a new headless browser fetcher.
func NewBrowserFetcher(cfg *config.BrowserConfig, logger *slog.Logger) *BrowserFetcher {
	return &BrowserFetcher{
		cfg:    cfg,
		logger: logger.With("component", "browser_fetcher"),
	}
}

// connect launches Chromium if it is not already running.
func (bf *BrowserFetcher) connect() (*rod.Browser, error) {
	bf.mu.Lock()
	defer bf.mu.Unlock()

	if bf.browser != nil {
		return bf.browser, nil
	}

	l := launcher.New().
		Headless(bf.cfg.Headless).
		Set("disable-gpu").
		Set("disable-dev-shm-usage").
		Set("no-sandbox").
		Set("disable-blink-features", "AutomationControlled")
	if bf.cfg.Bin != "" {
		l = l.Bin(bf.cfg.Bin)
	}

	launchURL, err := l.Launch()
	if err != nil {
		return nil, fmt.Errorf("launch browser: %w", err)
	}

	browser := rod.New().ControlURL(launchURL)
	if err := browser.Connect(); err != nil {
		return nil, fmt.Errorf("connect browser: %w", err)
	}
	bf.browser = browser

	bf.logger.Info("browser fetcher ready", "stealth", bf.cfg.Stealth)
	return browser, nil
}

// Fetch navigates to a URL and returns the rendered page content.
func (bf *BrowserFetcher) Fetch(ctx context.Context, req *types.Request) (*types.Response, error) {
	start := time.Now()

	browser, err := bf.connect()
	if err != nil {
		return nil, &types.FetchError{URL: req.URLString(), Reason: types.ReasonNetwork, Err: err}
	}

	var page *rod.Page
	if bf.cfg.Stealth {
		page, err = stealth.Page(browser)
	} else {
		page, err = browser.Page(proto.TargetCreateTarget{URL: "about:blank"})
	}
	if err != nil {
		return nil, &types.FetchError{URL: req.URLString(), Reason: types.ReasonNetwork, Err: fmt.Errorf("open page: %w", err)}
	}
	defer func() { _ = page.Close() }()

	timeout := bf.cfg.Timeout
	if req.Timeout > 0 {
		timeout = req.Timeout
	}
	page = page.Context(ctx).Timeout(timeout)

	if err := page.Navigate(req.URLString()); err != nil {
		return nil, &types.FetchError{URL: req.URLString(), Reason: types.ReasonTimeout, Err: err, Retryable: true}
	}
	if err := page.WaitStable(500 * time.Millisecond); err != nil {
		bf.logger.Warn("page stability timeout, continuing", "url", req.URLString(), "error", err)
	}

	html, err := page.HTML()
	if err != nil {
		return nil, &types.FetchError{URL: req.URLString(), Reason: types.ReasonNetwork, Err: err, Retryable: true}
	}

	if challenge := DetectChallenge(http.StatusOK, html); challenge != "" {
		return nil, &types.FetchError{
			URL:    req.URLString(),
			Reason: types.ReasonBlocked,
			Err:    fmt.Errorf("%w: %s (browser)", types.ErrBlocked, challenge),
		}
	}

	finalURL := req.URLString()
	if info, err := page.Info(); err == nil && info != nil {
		finalURL = info.URL
	}

	duration := time.Since(start)
	bf.logger.Debug("browser fetch complete",
		"url", req.URLString(),
		"final_url", finalURL,
		"size", len(html),
		"duration", duration,
	)

	// Rod does not expose the document status code; a rendered page is treated as 200.
	return types.NewBrowserResponse(req, http.StatusOK, []byte(html), finalURL, duration), nil
}

// Close shuts down the browser if it was launched.
func (bf *BrowserFetcher) Close() error {
	bf.mu.Lock()
	defer bf.mu.Unlock()
	if bf.browser == nil {
		return nil
	}
	err := bf.browser.Close()
	bf.browser = nil
	return err
}

// Type returns the fetcher type identifier.
func (bf *BrowserFetcher) Type() string {
	return "browser"
}
