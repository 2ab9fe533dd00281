// Package scrape holds the extraction strategies for competitor product
// pages. Each strategy implements the same contract and is tried by the
// pipeline in escalating cost order: structured data, static HTML
// selectors, lightweight JS render, full stealth browser.
package scrape

import (
	"context"
	"errors"
	"fmt"

	"github.com/CidQueiroz/Caca-Preco/internal/selectors"
)

// Fields is a validated extraction result.
type Fields struct {
	Name  string
	Price float64
}

// ErrNoMatch means the strategy ran but the page did not yield usable data.
// It drives escalation to the next strategy and is never surfaced to the
// caller directly.
var ErrNoMatch = errors.New("no product data matched")

// TransportError marks network-level failures (timeouts, refused
// connections, HTTP error statuses). The orchestrator retries the whole
// pipeline on these.
type TransportError struct {
	URL string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("transport failure for %s: %v", e.URL, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// IsTransport reports whether err is (or wraps) a TransportError.
func IsTransport(err error) bool {
	var te *TransportError
	return errors.As(err, &te)
}

// Target is one page the pipeline is working on. It carries the resolved
// selector set (nil when the registry had no match) and memoizes the static
// fetch so the selector strategy reuses the HTML the structured-data
// strategy already pulled.
type Target struct {
	URL       string
	Host      string
	Selectors *selectors.Set

	fetcher Fetcher
	snap    *Snapshot
	snapErr error
	fetched bool
}

// NewTarget builds a target for one pipeline attempt. Retries construct a
// fresh target so the page is refetched.
func NewTarget(url, host string, set *selectors.Set, fetcher Fetcher) *Target {
	return &Target{URL: url, Host: host, Selectors: set, fetcher: fetcher}
}

// Snapshot fetches the page over plain HTTP once per target.
func (t *Target) Snapshot(ctx context.Context) (*Snapshot, error) {
	if !t.fetched {
		t.snap, t.snapErr = t.fetcher.Fetch(ctx, t.URL)
		t.fetched = true
	}
	return t.snap, t.snapErr
}

// Strategy is one extraction tier. Attempt returns ErrNoMatch when the site
// did not have the data, a TransportError for network failures, and a
// validated Fields value otherwise.
type Strategy interface {
	Name() string
	Attempt(ctx context.Context, target *Target) (*Fields, error)
}
