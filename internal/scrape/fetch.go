package scrape

import (
	"context"
	"fmt"
	"time"

	"github.com/gocolly/colly/v2"
	log "github.com/sirupsen/logrus"
)

const defaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

// Snapshot is one fetched page.
type Snapshot struct {
	URL        string
	StatusCode int
	Body       []byte
}

// Fetcher retrieves a page over plain HTTP.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (*Snapshot, error)
}

// CollyFetcher fetches product pages with browser-like headers. All
// failures come back as *TransportError so the orchestrator retries them.
type CollyFetcher struct {
	timeout   time.Duration
	userAgent string
}

func NewCollyFetcher(timeout time.Duration) *CollyFetcher {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &CollyFetcher{timeout: timeout, userAgent: defaultUserAgent}
}

func (f *CollyFetcher) Fetch(ctx context.Context, url string) (*Snapshot, error) {
	c := colly.NewCollector(
		colly.UserAgent(f.userAgent),
		colly.AllowURLRevisit(),
		colly.IgnoreRobotsTxt(),
	)
	c.SetRequestTimeout(f.timeout)

	var snap *Snapshot
	var fetchErr error

	c.OnRequest(func(r *colly.Request) {
		r.Headers.Set("Accept-Language", "pt-BR,pt;q=0.9,en-US;q=0.8,en;q=0.7")
		r.Headers.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	})
	c.OnResponse(func(r *colly.Response) {
		body := make([]byte, len(r.Body))
		copy(body, r.Body)
		snap = &Snapshot{URL: url, StatusCode: r.StatusCode, Body: body}
	})
	c.OnError(func(r *colly.Response, err error) {
		if r != nil && r.StatusCode != 0 {
			fetchErr = &TransportError{URL: url, Err: fmt.Errorf("http status %d: %w", r.StatusCode, err)}
			return
		}
		fetchErr = &TransportError{URL: url, Err: err}
	})

	if err := c.Visit(url); err != nil && fetchErr == nil {
		fetchErr = &TransportError{URL: url, Err: err}
	}
	c.Wait()

	if fetchErr != nil {
		log.WithFields(log.Fields{"url": url}).WithError(fetchErr).Warn("fetch failed")
		return nil, fetchErr
	}
	if snap == nil {
		return nil, &TransportError{URL: url, Err: fmt.Errorf("no response received")}
	}
	return snap, nil
}
