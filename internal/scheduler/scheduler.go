// Package scheduler periodically resubmits stale monitored products
// through the scraping pipeline so price histories keep growing without
// manual resubmission.
package scheduler

import (
	"context"
	"errors"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/CidQueiroz/Caca-Preco/internal/monitor"
	"github.com/CidQueiroz/Caca-Preco/internal/pipeline"
)

// Config for the re-collection loop.
type Config struct {
	Interval  time.Duration // how often to scan for stale products
	MaxPerRun int           // cap per scan so one tick cannot flood the queue
}

// Run blocks until ctx is cancelled, scanning for products whose last
// collection is older than one interval and feeding them back into the
// pipeline.
func Run(ctx context.Context, repo *monitor.Repository, svc *pipeline.Service, cfg Config) {
	interval := cfg.Interval
	if interval <= 0 {
		interval = time.Hour
	}
	maxPerRun := cfg.MaxPerRun
	if maxPerRun <= 0 {
		maxPerRun = 50
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	log.WithField("interval", interval).Info("recollection scheduler started")

	recollect(ctx, repo, svc, interval, maxPerRun)

	for {
		select {
		case <-ctx.Done():
			log.Info("recollection scheduler stopping")
			return
		case <-ticker.C:
			recollect(ctx, repo, svc, interval, maxPerRun)
		}
	}
}

func recollect(ctx context.Context, repo *monitor.Repository, svc *pipeline.Service, interval time.Duration, maxPerRun int) {
	cutoff := time.Now().Add(-interval)
	stale, err := repo.ListStale(ctx, cutoff, maxPerRun)
	if err != nil {
		log.WithError(err).Error("scheduler: failed to list stale products")
		return
	}
	if len(stale) == 0 {
		return
	}
	log.WithField("count", len(stale)).Info("scheduler: resubmitting stale products")

	for _, p := range stale {
		select {
		case <-ctx.Done():
			return
		default:
		}
		if _, err := svc.Submit(p.SellerID, p.URL); err != nil {
			if errors.Is(err, pipeline.ErrQueueFull) {
				log.Warn("scheduler: pipeline queue full, deferring remaining products")
				return
			}
			log.WithError(err).WithField("product", p.ID).Error("scheduler: resubmission failed")
		}
	}
}
