package pipeline

import (
	"context"
	"errors"
	"sync"

	log "github.com/sirupsen/logrus"

	"github.com/CidQueiroz/Caca-Preco/internal/canonical"
)

// ErrQueueFull is returned when the submission queue cannot accept more
// work; callers should retry later.
var ErrQueueFull = errors.New("pipeline queue is full")

// Service accepts submissions and dispatches them to a bounded worker pool.
// Strategies 3 and 4 block on renders and browser lifecycles for
// seconds-to-minutes, so invocations never run inline with the request.
type Service struct {
	orchestrator *Orchestrator
	tracker      *Tracker
	jobs         chan Invocation
	workers      int
	wg           sync.WaitGroup
}

func NewService(orchestrator *Orchestrator, tracker *Tracker, workers int) *Service {
	if workers <= 0 {
		workers = 4
	}
	return &Service{
		orchestrator: orchestrator,
		tracker:      tracker,
		jobs:         make(chan Invocation, 256),
		workers:      workers,
	}
}

// Start launches the worker pool. Workers drain until ctx is cancelled;
// Wait blocks until they exit.
func (s *Service) Start(ctx context.Context) {
	for i := 0; i < s.workers; i++ {
		s.wg.Add(1)
		go func(worker int) {
			defer s.wg.Done()
			for {
				select {
				case <-ctx.Done():
					return
				case inv := <-s.jobs:
					log.WithFields(log.Fields{"worker": worker, "task": inv.ID}).Debug("worker picked up task")
					s.orchestrator.Run(ctx, inv)
				}
			}
		}(i)
	}
	log.WithField("workers", s.workers).Info("pipeline workers started")
}

func (s *Service) Wait() { s.wg.Wait() }

// Submit canonicalizes the URL, registers a pending invocation, and queues
// it. Malformed URLs fail fast before any extraction is attempted.
// Resubmitting an already-monitored URL is accepted and results in an
// update, never a conflict.
func (s *Service) Submit(sellerID int64, rawURL string) (Invocation, error) {
	canonicalURL, err := canonical.Canonicalize(rawURL)
	if err != nil {
		return Invocation{}, err
	}
	inv := s.tracker.Create(sellerID, rawURL, canonicalURL, canonical.Hash(canonicalURL))

	select {
	case s.jobs <- *inv:
	default:
		s.tracker.setExhausted(inv.ID, "submission rejected: queue full")
		return Invocation{}, ErrQueueFull
	}
	log.WithFields(log.Fields{"task": inv.ID, "url": canonicalURL, "seller": sellerID}).
		Info("monitoring task accepted")
	return *inv, nil
}

// Status returns the invocation snapshot for polling.
func (s *Service) Status(id string) (Invocation, bool) {
	return s.tracker.Get(id)
}
