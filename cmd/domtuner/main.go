// Command domtuner attaches to a live page and keeps it reconciled with the
// user's stored preferences: feature markers, thumbnail blur, playback-rate
// enforcement and an injected speed-selection control.
//
// Usage:
//
//	domtuner -config domtuner.yaml          # full configuration
//	domtuner -url https://host.example/...  # quick attach with defaults
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "modernc.org/sqlite"

	"github.com/hazyhaar/domtuner"
	"github.com/hazyhaar/domtuner/dbopen"
	"github.com/hazyhaar/domtuner/internal/browser"
	"github.com/hazyhaar/domtuner/internal/config"
	"github.com/hazyhaar/domtuner/internal/dom"
	"github.com/hazyhaar/domtuner/internal/editorapi"
	"github.com/hazyhaar/domtuner/internal/observer"
	"github.com/hazyhaar/domtuner/internal/prefs"
)

func main() {
	configPath := flag.String("config", "", "path to domtuner.yaml config file")
	pageURL := flag.String("url", "", "attach to a single URL with default configuration")
	logLevel := flag.String("log-level", "", "log level: debug, info, warn, error (overrides config)")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := loadConfig(*configPath, *pageURL)
	if err != nil {
		fmt.Fprintln(os.Stderr, "domtuner:", err)
		os.Exit(1)
	}
	if *logLevel != "" {
		cfg.LogLevel = *logLevel
	}
	logger := newLogger(cfg.LogLevel)

	if err := run(ctx, cfg, *configPath, logger); err != nil {
		logger.Error("domtuner: fatal", "error", err)
		os.Exit(1)
	}
}

func loadConfig(path, url string) (*config.Config, error) {
	var cfg *config.Config
	var err error
	if path != "" {
		cfg, err = config.LoadFile(path)
	} else {
		cfg, err = config.Default()
	}
	if err != nil {
		return nil, err
	}
	if url != "" {
		cfg.Page.URL = url
	}
	if cfg.Page.URL == "" {
		return nil, errors.New("no page URL: pass -url or set page.url in the config")
	}
	return cfg, nil
}

func newLogger(level string) *slog.Logger {
	var l slog.Level
	switch level {
	case "debug":
		l = slog.LevelDebug
	case "warn":
		l = slog.LevelWarn
	case "error":
		l = slog.LevelError
	default:
		l = slog.LevelInfo
	}
	return slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: l}))
}

func run(ctx context.Context, cfg *config.Config, configPath string, logger *slog.Logger) error {
	// Preference tiers: remote sync service first, local SQLite fallback.
	db, err := dbopen.Open(cfg.Storage.SQLitePath, dbopen.WithMkdirAll())
	if err != nil {
		return fmt.Errorf("open local store: %w", err)
	}
	defer db.Close()

	local, err := prefs.NewLocal(db)
	if err != nil {
		return err
	}
	remote := prefs.NewRemote(cfg.Storage.RemoteURL,
		prefs.WithRemoteLogger(logger),
		prefs.WithProbeTTL(cfg.Storage.ProbeTTL))
	store := prefs.NewStore(logger, remote, local)

	// Browser and page.
	mgr := browser.NewManager(browser.Config{
		RemoteURL: cfg.Browser.Remote,
		Stealth:   cfg.Browser.Stealth,
		Headless:  cfg.Browser.Headless,
		Logger:    logger,
	})
	if _, err := mgr.Start(); err != nil {
		return err
	}
	defer mgr.Close()

	page, err := mgr.OpenPage(ctx, cfg.Page.URL)
	if err != nil {
		return err
	}

	doc := dom.NewRodDocument(page, dom.HostProfile{
		VideoSelector:  cfg.Host.VideoSelector,
		ThumbSelector:  cfg.Host.ThumbSelector,
		AnchorSelector: cfg.Host.AnchorSelector,
	}, logger)

	agent := domtuner.New(cfg, domtuner.Options{
		Document: doc,
		Store:    store,
		Logger:   logger,
	})

	// Page observation feeds the structure watcher and the bridges.
	obs := observer.New(observer.Config{
		Page:           page,
		PageURL:        cfg.Page.URL,
		Handler:        agent.HandleBatch,
		NavigateEvents: cfg.Host.NavigateEvents,
		PageDataEvents: cfg.Host.PageDataEvents,
		DebounceWindow: cfg.Debounce.Window,
		DebounceMax:    cfg.Debounce.MaxBuffer,
		Logger:         logger,
	})
	obs.SetContext(ctx)
	if err := obs.Start(); err != nil {
		return err
	}
	defer obs.Stop()

	// Remote change feed: preference writes from other agents.
	go remote.Feed(ctx, func(change prefs.Change) {
		agent.HandleFeedChange(ctx, change)
	})

	// Editor API.
	srv := &http.Server{
		Addr: cfg.Editor.Listen,
		Handler: editorapi.NewRouter(editorapi.Config{
			Store:    store,
			Snapshot: agent.Snapshot,
			Publish:  func(keys []string) { agent.PublishChange(ctx, keys) },
			Status:   agent.Status,
			Logger:   logger,
		}),
	}
	go func() {
		logger.Info("domtuner: editor API listening", "addr", cfg.Editor.Listen)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("domtuner: editor API failed", "error", err)
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	// Config live reload: a changed file re-applies the augmentation.
	// Structural settings (selectors, storage) need a restart.
	if configPath != "" {
		go func() {
			err := config.Watch(ctx, configPath, config.WatchOptions{Logger: logger}, func(*config.Config) {
				agent.Reapply(ctx)
			})
			if err != nil {
				logger.Warn("domtuner: config watch failed", "error", err)
			}
		}()
	}

	return agent.Run(ctx)
}
