package pipeline

import (
	"context"
	"errors"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/CidQueiroz/Caca-Preco/internal/canonical"
	"github.com/CidQueiroz/Caca-Preco/internal/scrape"
	"github.com/CidQueiroz/Caca-Preco/internal/selectors"
)

func hostOf(url string) string { return canonical.Host(url) }

// Store persists a validated extraction: upsert of the monitored product
// plus one appended history row, in a single transaction.
type Store interface {
	UpsertAndLog(ctx context.Context, sellerID int64, canonicalURL, urlHash, name string, price float64) (int64, error)
}

// FallbackLog durably records extractions that could not be saved, so data
// obtained at browser-session cost is never silently lost.
type FallbackLog interface {
	Append(sellerID int64, url, name string, price float64, cause error) error
}

// Policy holds the fixed retry/backoff/timeout budget of one invocation.
type Policy struct {
	Attempts  int
	Backoff   time.Duration
	WallClock time.Duration
}

// DefaultPolicy matches the production budget: 3 full pipeline attempts
// with a fixed pause between them, bounded by a hard wall-clock limit that
// is independent of per-strategy timeouts.
func DefaultPolicy() Policy {
	return Policy{Attempts: 3, Backoff: 15 * time.Second, WallClock: 5 * time.Minute}
}

// Orchestrator runs submissions through the strategy tiers.
type Orchestrator struct {
	registry   selectors.Registry
	fetcher    scrape.Fetcher
	strategies []scrape.Strategy
	store      Store
	fallback   FallbackLog
	tracker    *Tracker
	policy     Policy
}

func NewOrchestrator(
	registry selectors.Registry,
	fetcher scrape.Fetcher,
	strategies []scrape.Strategy,
	store Store,
	fallback FallbackLog,
	tracker *Tracker,
	policy Policy,
) *Orchestrator {
	if policy.Attempts <= 0 {
		policy = DefaultPolicy()
	}
	return &Orchestrator{
		registry:   registry,
		fetcher:    fetcher,
		strategies: strategies,
		store:      store,
		fallback:   fallback,
		tracker:    tracker,
		policy:     policy,
	}
}

// Run drives one invocation to a terminal state. NoMatch escalates to the
// next tier; a transport error restarts the whole pipeline from tier one,
// up to the attempt budget; the first validated result wins.
func (o *Orchestrator) Run(ctx context.Context, inv Invocation) {
	ctx, cancel := context.WithTimeout(ctx, o.policy.WallClock)
	defer cancel()

	logger := log.WithFields(log.Fields{"task": inv.ID, "url": inv.CanonicalURL, "seller": inv.SellerID})
	logger.Info("pipeline started")

	for attempt := 1; attempt <= o.policy.Attempts; attempt++ {
		fields, transient := o.attemptAllTiers(ctx, inv, logger.WithField("attempt", attempt))

		if fields != nil {
			o.persist(ctx, inv, fields, logger)
			return
		}
		if ctx.Err() != nil {
			logger.Warn("pipeline wall-clock timeout")
			o.tracker.setExhausted(inv.ID, ReasonTimedOut)
			return
		}
		if !transient {
			logger.Warn("all strategies exhausted")
			o.tracker.setExhausted(inv.ID, ReasonAllTiersFailed)
			return
		}
		if attempt == o.policy.Attempts {
			logger.Warn("retry budget exhausted")
			o.tracker.setExhausted(inv.ID, ReasonRetryBudget)
			return
		}

		logger.WithField("backoff", o.policy.Backoff).Info("transient failure, retrying pipeline")
		select {
		case <-ctx.Done():
			o.tracker.setExhausted(inv.ID, ReasonTimedOut)
			return
		case <-time.After(o.policy.Backoff):
		}
	}
}

// attemptAllTiers runs one full escalation pass. It returns the validated
// fields on success, or (nil, true) when a transport failure should trigger
// a pipeline restart and (nil, false) when every tier reported NoMatch.
func (o *Orchestrator) attemptAllTiers(ctx context.Context, inv Invocation, logger *log.Entry) (*scrape.Fields, bool) {
	target := scrape.NewTarget(inv.CanonicalURL, hostOf(inv.CanonicalURL), o.lookupSelectors(ctx, inv.CanonicalURL), o.fetcher)

	for _, strategy := range o.strategies {
		if ctx.Err() != nil {
			return nil, false
		}
		o.tracker.setTrying(inv.ID, strategy.Name())
		slog := logger.WithField("strategy", strategy.Name())

		fields, err := strategy.Attempt(ctx, target)
		switch {
		case err == nil:
			if valid(fields) {
				slog.Info("strategy succeeded")
				return fields, false
			}
			// Extracted but unusable counts as NoMatch: keep escalating.
			slog.Warn("strategy returned invalid fields, escalating")
		case errors.Is(err, scrape.ErrNoMatch):
			slog.Info("no match, escalating")
		case scrape.IsTransport(err):
			slog.WithError(err).Warn("transport failure")
			return nil, true
		default:
			// Unexpected strategy errors are contained here; they behave
			// like NoMatch rather than crashing the invocation.
			slog.WithError(err).Error("strategy error, escalating")
		}
	}
	return nil, false
}

func (o *Orchestrator) lookupSelectors(ctx context.Context, url string) *selectors.Set {
	host := hostOf(url)
	if host == "" || o.registry == nil {
		return nil
	}
	set, err := o.registry.Lookup(ctx, host)
	if err != nil {
		if !errors.Is(err, selectors.ErrNotFound) {
			log.WithError(err).WithField("host", host).Error("selector registry lookup failed")
		}
		return nil
	}
	return set
}

func (o *Orchestrator) persist(ctx context.Context, inv Invocation, fields *scrape.Fields, logger *log.Entry) {
	productID, err := o.store.UpsertAndLog(ctx, inv.SellerID, inv.CanonicalURL, inv.URLHash, fields.Name, fields.Price)
	if err != nil {
		logger.WithError(err).Error("monitoring store write failed")
		if o.fallback != nil {
			if ferr := o.fallback.Append(inv.SellerID, inv.CanonicalURL, fields.Name, fields.Price, err); ferr != nil {
				logger.WithError(ferr).Error("fallback log write failed")
			}
		}
		o.tracker.setExhausted(inv.ID, ReasonSaveFailed)
		return
	}
	logger.WithFields(log.Fields{"product": productID, "price": fields.Price}).Info("pipeline succeeded")
	o.tracker.setSucceeded(inv.ID, &Result{ProductID: productID, Name: fields.Name, Price: fields.Price})
}

func valid(fields *scrape.Fields) bool {
	return fields != nil && strings.TrimSpace(fields.Name) != "" && fields.Price > 0
}
