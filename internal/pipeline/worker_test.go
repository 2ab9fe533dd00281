package pipeline_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/CidQueiroz/Caca-Preco/internal/canonical"
	"github.com/CidQueiroz/Caca-Preco/internal/pipeline"
	"github.com/CidQueiroz/Caca-Preco/internal/scrape"
)

func newTestService(t *testing.T, strategies []scrape.Strategy, store pipeline.Store) *pipeline.Service {
	t.Helper()
	tracker := pipeline.NewTracker()
	o := pipeline.NewOrchestrator(fakeRegistry{}, fakeFetcher{}, strategies, store, &fakeFallback{}, tracker, testPolicy())
	return pipeline.NewService(o, tracker, 2)
}

func TestServiceSubmit(t *testing.T) {
	t.Parallel()

	t.Run("rejects malformed urls before any extraction", func(t *testing.T) {
		t.Parallel()
		s1 := &fakeStrategy{name: "one", attempt: noMatch}
		svc := newTestService(t, []scrape.Strategy{s1}, &fakeStore{})

		_, err := svc.Submit(7, "definitely not a url")
		require.ErrorIs(t, err, canonical.ErrInvalidURL)
		assert.Zero(t, s1.callCount())
	})

	t.Run("accepted submission is pending until a worker runs it", func(t *testing.T) {
		t.Parallel()
		svc := newTestService(t, []scrape.Strategy{&fakeStrategy{name: "one", attempt: noMatch}}, &fakeStore{})

		inv, err := svc.Submit(7, "https://retailer.example/item/42?utm=x")
		require.NoError(t, err)
		assert.NotEmpty(t, inv.ID)
		assert.Equal(t, pipeline.StatusPending, inv.Status)

		got, ok := svc.Status(inv.ID)
		require.True(t, ok)
		assert.Equal(t, pipeline.StatusPending, got.Status)
	})

	t.Run("workers drive a submission to success", func(t *testing.T) {
		t.Parallel()
		strategy := &fakeStrategy{name: "structured", attempt: func(int) (*scrape.Fields, error) {
			return &scrape.Fields{Name: "Widget", Price: 199.90}, nil
		}}
		store := &fakeStore{}
		svc := newTestService(t, []scrape.Strategy{strategy}, store)

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		svc.Start(ctx)

		inv, err := svc.Submit(7, "https://retailer.example/item/42?utm=x")
		require.NoError(t, err)

		require.Eventually(t, func() bool {
			got, ok := svc.Status(inv.ID)
			return ok && got.Status == pipeline.StatusSucceeded
		}, 2*time.Second, 10*time.Millisecond)

		got, _ := svc.Status(inv.ID)
		require.NotNil(t, got.Result)
		assert.Equal(t, "Widget", got.Result.Name)
		assert.InDelta(t, 199.90, got.Result.Price, 0.001)
	})

	t.Run("unknown task id", func(t *testing.T) {
		t.Parallel()
		svc := newTestService(t, nil, &fakeStore{})
		_, ok := svc.Status("nope")
		assert.False(t, ok)
	})
}
