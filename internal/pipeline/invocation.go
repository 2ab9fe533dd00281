// Package pipeline orchestrates the tiered extraction of a competitor
// product page: it escalates through the scrape strategies, validates and
// persists results, and owns the retry, backoff, and timeout policy. Every
// caller-visible outcome is a terminal status with a readable reason, never
// a raw low-level error.
package pipeline

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// Status of one pipeline invocation.
type Status string

const (
	StatusPending   Status = "PENDING"
	StatusTrying    Status = "TRYING"
	StatusSucceeded Status = "SUCCEEDED"
	StatusExhausted Status = "EXHAUSTED"
)

// Terminal reasons surfaced to the caller.
const (
	ReasonAllTiersFailed = "extraction failed at all tiers: the site may be blocking access or its page structure changed"
	ReasonRetryBudget    = "transient failure exceeded retry budget"
	ReasonTimedOut       = "pipeline exceeded its time limit"
	ReasonSaveFailed     = "product data was extracted but could not be saved"
)

// Result is the payload of a succeeded invocation.
type Result struct {
	ProductID int64   `json:"product_id"`
	Name      string  `json:"name"`
	Price     float64 `json:"price"`
}

// Invocation is one submission travelling through the pipeline.
type Invocation struct {
	ID           string    `json:"task_id"`
	SellerID     int64     `json:"-"`
	RawURL       string    `json:"url"`
	CanonicalURL string    `json:"-"`
	URLHash      string    `json:"-"`
	Status       Status    `json:"status"`
	Strategy     string    `json:"strategy,omitempty"`
	Result       *Result   `json:"result,omitempty"`
	Reason       string    `json:"reason,omitempty"`
	SubmittedAt  time.Time `json:"submitted_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Terminal invocations are kept around long enough for the frontend to poll
// them, then swept so the map does not grow for the life of the process.
const (
	trackerRetention = time.Hour
	trackerSweepGap  = time.Minute
)

// Tracker keeps invocation state in memory for status polling. Results are
// also persisted by the store on success, so tracker state is allowed to be
// process-local.
type Tracker struct {
	mu          sync.RWMutex
	invocations map[string]*Invocation
	retention   time.Duration
	lastSweep   time.Time
}

func NewTracker() *Tracker {
	return &Tracker{
		invocations: make(map[string]*Invocation),
		retention:   trackerRetention,
	}
}

// Create registers a new pending invocation and returns its ID.
func (t *Tracker) Create(sellerID int64, rawURL, canonicalURL, urlHash string) *Invocation {
	now := time.Now().UTC()
	inv := &Invocation{
		ID:           uuid.NewString(),
		SellerID:     sellerID,
		RawURL:       rawURL,
		CanonicalURL: canonicalURL,
		URLHash:      urlHash,
		Status:       StatusPending,
		SubmittedAt:  now,
		UpdatedAt:    now,
	}
	t.mu.Lock()
	t.sweepLocked(now)
	t.invocations[inv.ID] = inv
	t.mu.Unlock()
	return inv
}

// sweepLocked evicts terminal invocations past the retention window. Runs at
// most once per trackerSweepGap so Create stays cheap under load.
func (t *Tracker) sweepLocked(now time.Time) {
	if now.Sub(t.lastSweep) < trackerSweepGap {
		return
	}
	t.lastSweep = now
	cutoff := now.Add(-t.retention)
	for id, inv := range t.invocations {
		if inv.Status != StatusSucceeded && inv.Status != StatusExhausted {
			continue
		}
		if inv.UpdatedAt.Before(cutoff) {
			delete(t.invocations, id)
		}
	}
}

// Get returns a snapshot copy of an invocation.
func (t *Tracker) Get(id string) (Invocation, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	inv, ok := t.invocations[id]
	if !ok {
		return Invocation{}, false
	}
	return *inv, true
}

func (t *Tracker) setTrying(id, strategy string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if inv, ok := t.invocations[id]; ok {
		inv.Status = StatusTrying
		inv.Strategy = strategy
		inv.UpdatedAt = time.Now().UTC()
	}
}

func (t *Tracker) setSucceeded(id string, result *Result) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if inv, ok := t.invocations[id]; ok {
		inv.Status = StatusSucceeded
		inv.Strategy = ""
		inv.Result = result
		inv.Reason = ""
		inv.UpdatedAt = time.Now().UTC()
	}
}

func (t *Tracker) setExhausted(id, reason string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if inv, ok := t.invocations[id]; ok {
		inv.Status = StatusExhausted
		inv.Strategy = ""
		inv.Reason = reason
		inv.UpdatedAt = time.Now().UTC()
	}
}
