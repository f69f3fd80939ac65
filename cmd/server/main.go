package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sort"
	"strings"
	"syscall"
	"time"

	"github.com/edulytic/mastery-service/internal/clients"
	"github.com/edulytic/mastery-service/internal/event"
	"github.com/edulytic/mastery-service/internal/history"
	"github.com/edulytic/mastery-service/internal/mastery"
	"github.com/edulytic/mastery-service/internal/model"
	"github.com/edulytic/mastery-service/internal/platform/cache"
	"github.com/edulytic/mastery-service/internal/platform/config"
	"github.com/edulytic/mastery-service/internal/platform/database"
	"github.com/edulytic/mastery-service/internal/vocab"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	slog.SetDefault(newLogger(cfg.Log))

	if err := cfg.Validate(); err != nil {
		slog.Error("invalid config", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	voc, err := vocab.Load(cfg.Model.ArtifactsDir)
	if err != nil {
		slog.Error("failed to load model artifacts", "dir", cfg.Model.ArtifactsDir, "error", err)
		os.Exit(1)
	}
	slog.Info("model vocabulary loaded", "skills", voc.NumSkills(), "max_seq_len", voc.MaxSeqLen(cfg.Model.MaxSeqLen))

	var scorer mastery.Scorer
	var scorerHealth interface {
		HealthCheck(ctx context.Context) error
	}
	scorerTag := "http"
	if cfg.Model.UseMock {
		scorer = model.NewMockScorer(voc.NumSkills())
		scorerTag = "mock"
		slog.Warn("using mock scorer; predictions are uniform")
	} else {
		httpScorer := model.NewHTTPScorer(cfg.Model.EndpointURL)
		scorer = httpScorer
		scorerHealth = httpScorer
	}

	pipeline := mastery.NewPipeline(mastery.PipelineConfig{
		Scorer:        scorer,
		SkillIDToName: voc.IDToName(),
		MaxSeqLen:     voc.MaxSeqLen(cfg.Model.MaxSeqLen),
	})

	srv := &server{
		pipeline:     pipeline,
		voc:          voc,
		scorerTag:    scorerTag,
		scorerHealth: scorerHealth,
	}

	// Snapshot store: postgres when reachable, in-memory otherwise.
	db, err := database.New(ctx, cfg.Database)
	if err != nil {
		slog.Warn("database unavailable, snapshots are in-memory only", "error", err)
		srv.snapshots = history.NewMemoryStore()
	} else {
		defer db.Close()
		store, err := history.NewPostgresStore(ctx, db.Pool)
		if err != nil {
			slog.Error("failed to initialize snapshot store", "error", err)
			os.Exit(1)
		}
		srv.db = db
		srv.snapshots = store
	}

	if cfg.Progress.URL != "" {
		srv.progress = clients.NewProgressClient(cfg.Progress.URL, cfg.Progress.Secret)
	}

	if cfg.Content.URL != "" {
		content := clients.NewContentClient(cfg.Content.URL, cfg.Content.Secret)
		go reportVocabularyGaps(ctx, content, voc)
	}

	cacheConn, err := cache.New(ctx, cfg.Cache)
	if err != nil {
		slog.Warn("cache unavailable, result caching disabled", "error", err)
	} else {
		defer cacheConn.Close()
		srv.cacheConn = cacheConn
		srv.results = history.NewResultCache(cacheConn.Client, cacheConn.ResultTTL())
	}

	publisher, err := event.NewPublisher(cfg.Broker.URL)
	if err != nil {
		slog.Error("failed to connect result publisher", "error", err)
		os.Exit(1)
	}
	defer publisher.Close()

	consumer, err := event.NewConsumer(cfg.Broker.URL, pipeline, publisher)
	if err != nil {
		slog.Error("failed to connect score consumer", "error", err)
		os.Exit(1)
	}
	defer consumer.Close()

	if err := consumer.Start(ctx); err != nil {
		slog.Error("failed to start score consumer", "error", err)
		os.Exit(1)
	}

	mux := newMux(srv)

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	httpSrv := &http.Server{
		Addr:         addr,
		Handler:      mux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		slog.Info("server starting", "addr", httpSrv.Addr, "scorer", scorerTag)
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	slog.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		slog.Error("shutdown error", "error", err)
	}
}

// reportVocabularyGaps warns about trained skills that no longer exist
// in the curriculum's concept graph, which usually means the model is
// due for retraining.
func reportVocabularyGaps(ctx context.Context, content *clients.ContentClient, voc *vocab.Vocabulary) {
	graph, err := content.ConceptGraph(ctx)
	if err != nil {
		slog.Warn("concept graph fetch failed, skipping vocabulary check", "error", err)
		return
	}
	if missing := missingConcepts(graph, voc); len(missing) > 0 {
		slog.Warn("trained skills missing from concept graph", "skills", missing)
	}
}

// missingConcepts lists vocabulary skills absent from the concept
// graph, sorted for stable logging.
func missingConcepts(graph *clients.ConceptGraph, voc *vocab.Vocabulary) []string {
	known := make(map[string]struct{}, len(graph.Concepts))
	for _, c := range graph.Concepts {
		known[c.Name] = struct{}{}
	}

	var missing []string
	for _, name := range voc.IDToName() {
		if _, ok := known[name]; !ok {
			missing = append(missing, name)
		}
	}
	sort.Strings(missing)
	return missing
}

// newLogger builds the process logger from log config.
func newLogger(cfg config.LogConfig) *slog.Logger {
	var level slog.Level
	switch strings.ToLower(cfg.Level) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	if cfg.Format == "text" {
		return slog.New(slog.NewTextHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, opts))
}
