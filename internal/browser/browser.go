package browser

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/chromedp/cdproto/emulation"
	"github.com/chromedp/chromedp"

	"github.com/nap4595/CustomPlaceDB/internal/extractor"
	"github.com/nap4595/CustomPlaceDB/pkg/logger"
)

const userAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/131.0.0.0 Safari/537.36"

const snapshotTimeout = 30 * time.Second

// Browser attaches to a Chrome instance and reads the active map tab.
// It never navigates on its own; the user drives the tab, we observe.
type Browser struct {
	allocCtx      context.Context
	allocCancel   context.CancelFunc
	browserCtx    context.Context
	browserCancel context.CancelFunc
}

// New launches a headless instance, mostly useful for development runs.
func New(ctx context.Context) (*Browser, error) {
	allocCtx, allocCancel := chromedp.NewExecAllocator(ctx, chromedp.DefaultExecAllocatorOptions[:]...)
	return start(allocCtx, allocCancel)
}

// NewRemote attaches to a running browser over the DevTools websocket.
func NewRemote(ctx context.Context, wsURL string) (*Browser, error) {
	allocCtx, allocCancel := chromedp.NewRemoteAllocator(ctx, wsURL)
	return start(allocCtx, allocCancel)
}

func start(allocCtx context.Context, allocCancel context.CancelFunc) (*Browser, error) {
	browserCtx, browserCancel := chromedp.NewContext(allocCtx)

	if err := chromedp.Run(browserCtx); err != nil {
		browserCancel()
		allocCancel()
		return nil, fmt.Errorf("start browser: %w", err)
	}

	logger.Log.Info().Msg("browser attached")
	return &Browser{
		allocCtx:      allocCtx,
		allocCancel:   allocCancel,
		browserCtx:    browserCtx,
		browserCancel: browserCancel,
	}, nil
}

// Navigate opens a URL in the tab. Development helper; real sessions
// follow wherever the user goes.
func (b *Browser) Navigate(ctx context.Context, rawURL string) error {
	runCtx, cancel := context.WithTimeout(b.browserCtx, snapshotTimeout)
	defer cancel()

	tasks := chromedp.Tasks{
		chromedp.ActionFunc(func(ctx context.Context) error {
			return emulation.SetUserAgentOverride(userAgent).
				WithAcceptLanguage("ko-KR,ko;q=0.9,en-US;q=0.8,en;q=0.7").
				Do(ctx)
		}),
		chromedp.Navigate(rawURL),
		chromedp.WaitReady("body", chromedp.ByQuery),
	}
	if err := chromedp.Run(runCtx, tasks); err != nil {
		return fmt.Errorf("navigate: %w", err)
	}
	return nil
}

// Location returns the tab's current URL.
func (b *Browser) Location(ctx context.Context) (string, error) {
	runCtx, cancel := context.WithTimeout(b.browserCtx, snapshotTimeout)
	defer cancel()

	var loc string
	if err := chromedp.Run(runCtx, chromedp.Location(&loc)); err != nil {
		return "", fmt.Errorf("read location: %w", err)
	}
	return loc, nil
}

// Snapshot captures the tab's URL and rendered DOM as an extraction
// page.
func (b *Browser) Snapshot(ctx context.Context) (extractor.Page, error) {
	runCtx, cancel := context.WithTimeout(b.browserCtx, snapshotTimeout)
	defer cancel()

	var loc, html string
	tasks := chromedp.Tasks{
		chromedp.Location(&loc),
		chromedp.OuterHTML("html", &html),
	}
	if err := chromedp.Run(runCtx, tasks); err != nil {
		return extractor.Page{}, fmt.Errorf("snapshot page: %w", err)
	}

	u, err := url.Parse(loc)
	if err != nil {
		return extractor.Page{}, fmt.Errorf("parse location %q: %w", loc, err)
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return extractor.Page{}, fmt.Errorf("parse dom: %w", err)
	}

	logger.Log.Debug().Str("url", loc).Int("html_len", len(html)).Msg("page snapshot taken")
	return extractor.Page{URL: u, Doc: doc}, nil
}

func (b *Browser) Close() {
	b.browserCancel()
	b.allocCancel()
}
