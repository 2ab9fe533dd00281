package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"sync"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"

	"github.com/CidQueiroz/Caca-Preco/internal/database"
	"github.com/CidQueiroz/Caca-Preco/internal/monitor"
	"github.com/CidQueiroz/Caca-Preco/internal/pipeline"
	"github.com/CidQueiroz/Caca-Preco/internal/scheduler"
	"github.com/CidQueiroz/Caca-Preco/internal/scrape"
	"github.com/CidQueiroz/Caca-Preco/internal/selectors"
)

func main() {
	_ = godotenv.Load() // load .env if present; not fatal if missing

	log.SetFormatter(&log.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04:05",
	})
	if level, err := log.ParseLevel(envOr("LOG_LEVEL", "info")); err == nil {
		log.SetLevel(level)
	}

	// graceful shutdown coordination
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.Connect(ctx)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer db.Close()
	if err := database.Migrate(ctx, db); err != nil {
		log.Fatalf("migrate: %v", err)
	}

	// extraction strategies, cheapest first
	artifacts := scrape.NewArtifactStore(envOr("DEBUG_ARTIFACT_DIR", "./debug_artifacts"))
	fetcher := scrape.NewCollyFetcher(10 * time.Second)
	allocCtx, cancelAlloc := scrape.NewRenderAllocator(ctx)
	defer cancelAlloc()
	strategies := []scrape.Strategy{
		scrape.NewStructuredDataStrategy(artifacts),
		scrape.NewStaticHTMLStrategy(artifacts),
		scrape.NewRenderStrategy(allocCtx, 20*time.Second, artifacts),
		scrape.NewBrowserStrategy(int64(intEnvOr("BROWSER_SESSIONS", 2)), 40*time.Second, artifacts),
	}

	registry := selectors.NewRepository(db)
	repo := monitor.NewRepository(db)
	fallback := monitor.NewFileFallbackLog(envOr("FALLBACK_LOG", "./monitoring_fallback.log"))
	tracker := pipeline.NewTracker()

	policy := pipeline.DefaultPolicy()
	if mins := intEnvOr("PIPELINE_TIMEOUT_MINUTES", 0); mins > 0 {
		policy.WallClock = time.Duration(mins) * time.Minute
	}
	orchestrator := pipeline.NewOrchestrator(registry, fetcher, strategies, repo, fallback, tracker, policy)
	svc := pipeline.NewService(orchestrator, tracker, intEnvOr("SCRAPE_WORKERS", 4))
	svc.Start(ctx)

	wg := &sync.WaitGroup{}
	if mins := intEnvOr("RECHECK_INTERVAL_MINUTES", 0); mins > 0 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			scheduler.Run(ctx, repo, svc, scheduler.Config{Interval: time.Duration(mins) * time.Minute})
		}()
	}

	if mode := os.Getenv("GIN_MODE"); mode != "" {
		gin.SetMode(mode)
	}
	r := gin.Default()

	api := r.Group("/api")
	api.Use(monitor.SellerAuth())
	monitor.NewHandler(repo, svc).Register(api)

	srv := &http.Server{
		Addr:    ":" + envOr("PORT", "8080"),
		Handler: r,
	}

	go func() {
		log.Infof("server started on %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server ListenAndServe: %v", err)
		}
	}()

	// wait for interrupt
	<-ctx.Done()
	log.Info("shutdown signal received")

	// stop accepting new requests, allow 15s to finish
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Errorf("server Shutdown: %v", err)
	}

	// workers and scheduler react to ctx cancellation
	svc.Wait()
	wg.Wait()

	log.Info("graceful shutdown complete")
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func intEnvOr(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}
