package pipeline_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/CidQueiroz/Caca-Preco/internal/pipeline"
	"github.com/CidQueiroz/Caca-Preco/internal/scrape"
	"github.com/CidQueiroz/Caca-Preco/internal/selectors"
)

type fakeStrategy struct {
	name    string
	mu      sync.Mutex
	calls   int
	attempt func(call int) (*scrape.Fields, error)
}

func (f *fakeStrategy) Name() string { return f.name }

func (f *fakeStrategy) Attempt(_ context.Context, _ *scrape.Target) (*scrape.Fields, error) {
	f.mu.Lock()
	f.calls++
	call := f.calls
	f.mu.Unlock()
	return f.attempt(call)
}

func (f *fakeStrategy) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func noMatch(int) (*scrape.Fields, error) { return nil, scrape.ErrNoMatch }

type fakeStore struct {
	mu       sync.Mutex
	upserts  int
	lastName string
	err      error
}

func (f *fakeStore) UpsertAndLog(_ context.Context, _ int64, _, _, name string, _ float64) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return 0, f.err
	}
	f.upserts++
	f.lastName = name
	return 1, nil
}

type fakeFallback struct {
	mu      sync.Mutex
	entries int
}

func (f *fakeFallback) Append(int64, string, string, float64, error) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.entries++
	return nil
}

type fakeRegistry struct{}

func (fakeRegistry) Lookup(context.Context, string) (*selectors.Set, error) {
	return nil, selectors.ErrNotFound
}

type fakeFetcher struct{}

func (fakeFetcher) Fetch(_ context.Context, url string) (*scrape.Snapshot, error) {
	return &scrape.Snapshot{URL: url, Body: []byte("<html></html>")}, nil
}

func testPolicy() pipeline.Policy {
	return pipeline.Policy{Attempts: 3, Backoff: time.Millisecond, WallClock: 5 * time.Second}
}

func runPipeline(t *testing.T, strategies []scrape.Strategy, store pipeline.Store, fallback pipeline.FallbackLog, policy pipeline.Policy) pipeline.Invocation {
	t.Helper()
	tracker := pipeline.NewTracker()
	o := pipeline.NewOrchestrator(fakeRegistry{}, fakeFetcher{}, strategies, store, fallback, tracker, policy)
	inv := tracker.Create(7, "https://x.com/p?utm=1", "https://x.com/p", "deadbeef")
	o.Run(context.Background(), *inv)
	got, ok := tracker.Get(inv.ID)
	require.True(t, ok)
	return got
}

func TestOrchestratorEscalation(t *testing.T) {
	t.Parallel()

	t.Run("second tier wins and later tiers never run", func(t *testing.T) {
		t.Parallel()
		s1 := &fakeStrategy{name: "one", attempt: noMatch}
		s2 := &fakeStrategy{name: "two", attempt: func(int) (*scrape.Fields, error) {
			return &scrape.Fields{Name: "Widget", Price: 199.90}, nil
		}}
		s3 := &fakeStrategy{name: "three", attempt: noMatch}
		s4 := &fakeStrategy{name: "four", attempt: noMatch}
		store := &fakeStore{}

		inv := runPipeline(t, []scrape.Strategy{s1, s2, s3, s4}, store, &fakeFallback{}, testPolicy())

		assert.Equal(t, pipeline.StatusSucceeded, inv.Status)
		require.NotNil(t, inv.Result)
		assert.Equal(t, "Widget", inv.Result.Name)
		assert.InDelta(t, 199.90, inv.Result.Price, 0.001)
		assert.Equal(t, 1, s1.callCount())
		assert.Equal(t, 1, s2.callCount())
		assert.Zero(t, s3.callCount(), "strategies after the first success must not run")
		assert.Zero(t, s4.callCount())
		assert.Equal(t, 1, store.upserts)
	})

	t.Run("invalid extracted fields escalate instead of succeeding", func(t *testing.T) {
		t.Parallel()
		s1 := &fakeStrategy{name: "one", attempt: func(int) (*scrape.Fields, error) {
			return &scrape.Fields{Name: "  ", Price: 10}, nil
		}}
		s2 := &fakeStrategy{name: "two", attempt: func(int) (*scrape.Fields, error) {
			return &scrape.Fields{Name: "Real", Price: -5}, nil
		}}
		s3 := &fakeStrategy{name: "three", attempt: func(int) (*scrape.Fields, error) {
			return &scrape.Fields{Name: "Real", Price: 42}, nil
		}}

		inv := runPipeline(t, []scrape.Strategy{s1, s2, s3}, &fakeStore{}, &fakeFallback{}, testPolicy())

		assert.Equal(t, pipeline.StatusSucceeded, inv.Status)
		require.NotNil(t, inv.Result)
		assert.Equal(t, "Real", inv.Result.Name)
		assert.InDelta(t, 42.0, inv.Result.Price, 0.001)
	})

	t.Run("all tiers failing exhausts without retry", func(t *testing.T) {
		t.Parallel()
		s1 := &fakeStrategy{name: "one", attempt: noMatch}
		s2 := &fakeStrategy{name: "two", attempt: noMatch}
		store := &fakeStore{}

		inv := runPipeline(t, []scrape.Strategy{s1, s2}, store, &fakeFallback{}, testPolicy())

		assert.Equal(t, pipeline.StatusExhausted, inv.Status)
		assert.Equal(t, pipeline.ReasonAllTiersFailed, inv.Reason)
		assert.Equal(t, 1, s1.callCount(), "NoMatch everywhere is terminal, not retryable")
		assert.Zero(t, store.upserts)
	})
}

func TestOrchestratorRetries(t *testing.T) {
	t.Parallel()

	t.Run("transient failures restart the pipeline up to the budget", func(t *testing.T) {
		t.Parallel()
		s1 := &fakeStrategy{name: "one", attempt: func(int) (*scrape.Fields, error) {
			return nil, &scrape.TransportError{URL: "https://x.com/p", Err: errors.New("connection refused")}
		}}
		s2 := &fakeStrategy{name: "two", attempt: noMatch}

		inv := runPipeline(t, []scrape.Strategy{s1, s2}, &fakeStore{}, &fakeFallback{}, testPolicy())

		assert.Equal(t, pipeline.StatusExhausted, inv.Status)
		assert.Equal(t, pipeline.ReasonRetryBudget, inv.Reason)
		assert.Equal(t, 3, s1.callCount(), "each attempt restarts from tier one")
		assert.Zero(t, s2.callCount(), "transport failure aborts the attempt before later tiers")
	})

	t.Run("a retry can succeed after a transient failure", func(t *testing.T) {
		t.Parallel()
		s1 := &fakeStrategy{name: "one", attempt: func(call int) (*scrape.Fields, error) {
			if call == 1 {
				return nil, &scrape.TransportError{URL: "https://x.com/p", Err: errors.New("timeout")}
			}
			return &scrape.Fields{Name: "Recovered", Price: 10}, nil
		}}
		store := &fakeStore{}

		inv := runPipeline(t, []scrape.Strategy{s1}, store, &fakeFallback{}, testPolicy())

		assert.Equal(t, pipeline.StatusSucceeded, inv.Status)
		assert.Equal(t, 2, s1.callCount())
		assert.Equal(t, 1, store.upserts)
	})

	t.Run("wall-clock timeout forces exhaustion", func(t *testing.T) {
		t.Parallel()
		s1 := &fakeStrategy{name: "slow", attempt: func(int) (*scrape.Fields, error) {
			time.Sleep(50 * time.Millisecond)
			return nil, &scrape.TransportError{URL: "https://x.com/p", Err: errors.New("timeout")}
		}}
		policy := pipeline.Policy{Attempts: 3, Backoff: time.Hour, WallClock: 20 * time.Millisecond}

		inv := runPipeline(t, []scrape.Strategy{s1}, &fakeStore{}, &fakeFallback{}, policy)

		assert.Equal(t, pipeline.StatusExhausted, inv.Status)
		assert.Equal(t, pipeline.ReasonTimedOut, inv.Reason)
	})
}

func TestOrchestratorPersistenceFailure(t *testing.T) {
	t.Parallel()

	s1 := &fakeStrategy{name: "one", attempt: func(int) (*scrape.Fields, error) {
		return &scrape.Fields{Name: "Widget", Price: 199.90}, nil
	}}
	store := &fakeStore{err: errors.New("db down")}
	fallback := &fakeFallback{}

	inv := runPipeline(t, []scrape.Strategy{s1}, store, fallback, testPolicy())

	assert.Equal(t, pipeline.StatusExhausted, inv.Status)
	assert.Equal(t, pipeline.ReasonSaveFailed, inv.Reason)
	assert.Equal(t, 1, fallback.entries, "extracted data must be durably recorded")
}
