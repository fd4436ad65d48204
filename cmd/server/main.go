package main

import (
	"context"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/kadeyemi/casetrail/internal/advisory"
	"github.com/kadeyemi/casetrail/internal/api"
	"github.com/kadeyemi/casetrail/internal/casefile"
	"github.com/kadeyemi/casetrail/internal/config"
	"github.com/kadeyemi/casetrail/internal/ingest"
	"github.com/kadeyemi/casetrail/internal/store"
	"github.com/kadeyemi/casetrail/internal/store/memory"
	"github.com/kadeyemi/casetrail/internal/store/postgres"
)

func main() {
	addr := flag.String("addr", ":8080", "HTTP listen address")
	cfgPath := flag.String("config", "configs/pipeline.yaml", "Path to pipeline YAML config")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	// ── Load config ──────────────────────────────────────────────────────────
	// The loader validates on every load, so cfg is always a config that
	// passed config.Validate.
	loader, err := config.NewLoader(*cfgPath)
	if err != nil {
		slog.Error("failed to load config", "err", err)
		os.Exit(1)
	}
	cfg := loader.Config()

	// ── Storage ──────────────────────────────────────────────────────────────
	// DB_URL selects Postgres; without it the in-memory store keeps the
	// service runnable out of the box.
	var st store.Store
	if dbURL := os.Getenv("DB_URL"); dbURL != "" {
		pg, err := postgres.New(dbURL)
		if err != nil {
			slog.Error("failed to connect to database", "err", err)
			os.Exit(1)
		}
		if err := pg.EnsureSchema(context.Background()); err != nil {
			slog.Error("failed to apply schema", "err", err)
			os.Exit(1)
		}
		st = pg
		slog.Info("using postgres store")
	} else {
		st = memory.New()
		slog.Warn("DB_URL not set; using in-memory store (data is lost on restart)")
	}
	defer st.Close()

	// ── Decision engine ──────────────────────────────────────────────────────
	validator, err := advisory.NewValidator()
	if err != nil {
		slog.Error("failed to compile advisory schema", "err", err)
		os.Exit(1)
	}
	engine := casefile.New(cfg, validator, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ingestor := ingest.New(ctx, st, cfg.Ingest)

	// ── Hot-reload watcher ────────────────────────────────────────────────────
	// Invalid files never reach OnChange; the loader warns and keeps the
	// previous config.
	loader.OnChange(func(newCfg *config.Pipeline) {
		engine.SwapConfig(newCfg)
		slog.Info("pipeline config hot-reloaded", "version", newCfg.Version)
	})
	stopWatch, err := loader.Watch()
	if err != nil {
		slog.Warn("config watcher unavailable (hot-reload disabled)", "err", err)
	} else {
		defer stopWatch()
	}

	// ── HTTP server ───────────────────────────────────────────────────────────
	handler := api.New(engine, ingestor, st, loader)
	srv := &http.Server{
		Addr:         *addr,
		Handler:      handler,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		slog.Info("server starting", "addr", *addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "err", err)
			os.Exit(1)
		}
	}()

	// ── Graceful shutdown ─────────────────────────────────────────────────────
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	slog.Info("shutting down…")

	shutCtx, shutCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutCancel()
	_ = srv.Shutdown(shutCtx)
	ingestor.Shutdown()
	cancel()
	slog.Info("goodbye")
}
