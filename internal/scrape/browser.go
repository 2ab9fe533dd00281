package scrape

import (
	"context"
	"fmt"
	"math/rand"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/semaphore"
)

// Rotated per session; retail sites fingerprint repeated agents quickly.
var browserUserAgents = []string{
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
	"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/119.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:121.0) Gecko/20100101 Firefox/121.0",
}

// BrowserStrategy is the last resort: a full automated browser session with
// stealth countermeasures. Each attempt owns its browser exclusively and
// tears it down on every exit path; a semaphore caps how many sessions run
// at once so concurrent invocations queue instead of exhausting the host.
type BrowserStrategy struct {
	sessions  *semaphore.Weighted
	timeout   time.Duration
	artifacts *ArtifactStore
}

func NewBrowserStrategy(maxSessions int64, timeout time.Duration, artifacts *ArtifactStore) *BrowserStrategy {
	if maxSessions <= 0 {
		maxSessions = 2
	}
	if timeout <= 0 {
		timeout = 40 * time.Second
	}
	return &BrowserStrategy{
		sessions:  semaphore.NewWeighted(maxSessions),
		timeout:   timeout,
		artifacts: artifacts,
	}
}

func (s *BrowserStrategy) Name() string { return "stealth_browser" }

func (s *BrowserStrategy) Attempt(ctx context.Context, target *Target) (*Fields, error) {
	if err := s.sessions.Acquire(ctx, 1); err != nil {
		return nil, &TransportError{URL: target.URL, Err: err}
	}
	defer s.sessions.Release(1)

	html, err := s.renderPage(ctx, target.URL)
	if err != nil {
		return nil, err
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("parse rendered html: %w", err)
	}

	// Structured data first, selector matching second, same order as the
	// static tiers but against the final rendered DOM.
	if name, rawPrice, ok := ExtractProductJSONLD(doc); ok {
		if price, ok := NormalizePrice(rawPrice); ok && name != "" {
			log.WithFields(log.Fields{"url": target.URL, "name": name}).
				Info("browser session: structured data matched")
			return &Fields{Name: CleanText(name), Price: price}, nil
		}
	}
	if fields, ok := MatchSelectors(doc, target.Selectors); ok {
		log.WithFields(log.Fields{"url": target.URL, "name": fields.Name}).
			Info("browser session: selectors matched")
		return fields, nil
	}

	s.artifacts.Dump(s.Name(), target.URL, []byte(html))
	return nil, ErrNoMatch
}

// renderPage launches, navigates, waits for a product signal, and returns
// the final DOM. The launcher and browser are always cleaned up, including
// mid-navigation failures.
func (s *BrowserStrategy) renderPage(ctx context.Context, url string) (string, error) {
	l := launcher.New().
		Headless(true).
		NoSandbox(true).
		Set("disable-blink-features", "AutomationControlled").
		Set("disable-infobars").
		Set("lang", "pt-BR")

	controlURL, err := l.Launch()
	if err != nil {
		return "", &TransportError{URL: url, Err: fmt.Errorf("launch browser: %w", err)}
	}
	browser := rod.New().ControlURL(controlURL).Context(ctx)
	if err := browser.Connect(); err != nil {
		l.Kill()
		return "", &TransportError{URL: url, Err: fmt.Errorf("connect browser: %w", err)}
	}
	defer func() {
		_ = browser.Close()
		l.Kill()
	}()

	page, err := stealth.Page(browser)
	if err != nil {
		return "", &TransportError{URL: url, Err: fmt.Errorf("open stealth page: %w", err)}
	}
	defer page.Close()

	ua := browserUserAgents[rand.Intn(len(browserUserAgents))]
	if err := page.SetUserAgent(&proto.NetworkSetUserAgentOverride{
		UserAgent:      ua,
		AcceptLanguage: "pt-BR,pt;q=0.9",
	}); err != nil {
		return "", &TransportError{URL: url, Err: err}
	}

	page = page.Timeout(s.timeout)
	if err := page.Navigate(url); err != nil {
		return "", &TransportError{URL: url, Err: fmt.Errorf("navigate: %w", err)}
	}

	// Whichever product signal shows up first unblocks the wait: the
	// structured-data block, a title heading, or a price-looking element.
	_, err = page.Race().
		Element(`script[type="application/ld+json"]`).
		Element("h1").
		Element(`[class*="price"]`).
		Do()
	if err != nil {
		return "", &TransportError{URL: url, Err: fmt.Errorf("wait for product elements: %w", err)}
	}

	// Small human-ish settle delay before reading the DOM.
	time.Sleep(time.Duration(500+rand.Intn(1500)) * time.Millisecond)

	html, err := page.HTML()
	if err != nil {
		return "", &TransportError{URL: url, Err: fmt.Errorf("read rendered html: %w", err)}
	}
	return html, nil
}
