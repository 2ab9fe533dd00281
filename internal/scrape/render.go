package scrape

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/chromedp/chromedp"
	log "github.com/sirupsen/logrus"
)

// RenderStrategy is tier three: load the page in a headless rendering
// context with a bounded wait, then re-run selector matching against the
// rendered DOM. Good enough for pages that only need minimal client-side
// rendering, much cheaper than a full stealth browser session.
type RenderStrategy struct {
	allocCtx  context.Context
	waitAfter time.Duration
	timeout   time.Duration
	artifacts *ArtifactStore
}

// NewRenderStrategy shares one chromedp ExecAllocator across attempts; each
// attempt gets its own tab context so nothing leaks between invocations.
func NewRenderStrategy(allocCtx context.Context, timeout time.Duration, artifacts *ArtifactStore) *RenderStrategy {
	if timeout <= 0 {
		timeout = 20 * time.Second
	}
	return &RenderStrategy{
		allocCtx:  allocCtx,
		waitAfter: 2 * time.Second,
		timeout:   timeout,
		artifacts: artifacts,
	}
}

// NewRenderAllocator builds the shared headless allocator.
func NewRenderAllocator(parent context.Context) (context.Context, context.CancelFunc) {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("lang", "pt-BR"),
		chromedp.UserAgent(defaultUserAgent),
	)
	return chromedp.NewExecAllocator(parent, opts...)
}

func (s *RenderStrategy) Name() string { return "js_render" }

func (s *RenderStrategy) Attempt(ctx context.Context, target *Target) (*Fields, error) {
	tabCtx, cancelTab := chromedp.NewContext(s.allocCtx)
	defer cancelTab()
	runCtx, cancelRun := context.WithTimeout(tabCtx, s.timeout)
	defer cancelRun()

	// The tab context must descend from the allocator, so the invocation
	// context is wired in separately: cancelling it aborts the render
	// immediately instead of waiting out the strategy timeout.
	stopWatch := context.AfterFunc(ctx, cancelRun)
	defer stopWatch()

	var html string
	err := chromedp.Run(runCtx,
		chromedp.Navigate(target.URL),
		chromedp.WaitReady("body", chromedp.ByQuery),
		chromedp.Sleep(s.waitAfter),
		chromedp.OuterHTML("html", &html, chromedp.ByQuery),
	)
	if err != nil {
		return nil, &TransportError{URL: target.URL, Err: err}
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, errors.Join(ErrNoMatch, err)
	}
	fields, ok := MatchSelectors(doc, target.Selectors)
	if !ok {
		s.artifacts.Dump(s.Name(), target.URL, []byte(html))
		return nil, ErrNoMatch
	}
	log.WithFields(log.Fields{"url": target.URL, "name": fields.Name, "price": fields.Price}).
		Info("rendered DOM matched")
	return fields, nil
}
