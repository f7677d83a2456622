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

	"github.com/go-chi/chi/v5"

	"github.com/gabiworld/pipewatch/dashboard/internal/alerts"
	"github.com/gabiworld/pipewatch/dashboard/internal/api"
	"github.com/gabiworld/pipewatch/dashboard/internal/auth"
	"github.com/gabiworld/pipewatch/dashboard/internal/config"
	"github.com/gabiworld/pipewatch/dashboard/internal/history"
	"github.com/gabiworld/pipewatch/dashboard/internal/poller"
	"github.com/gabiworld/pipewatch/dashboard/internal/source"
	"github.com/gabiworld/pipewatch/dashboard/internal/state"
	"github.com/gabiworld/pipewatch/dashboard/internal/ws"
)

func main() {
	configPath := flag.String("config", "config/dashboard.yaml", "path to config file")
	uiDir := flag.String("ui-dir", "", "serve the built dashboard UI from this directory (e.g. ui/dist); leave empty to disable")
	flag.Parse()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	slog.Info("pipewatch-dashboard starting", "config", *configPath)

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load config", "err", err)
		os.Exit(1)
	}

	slog.Info("config loaded",
		"mode", cfg.Backend.Mode,
		"endpoint", cfg.Backend.Endpoint,
		"poll_interval", cfg.Backend.PollInterval,
		"fallback", cfg.Backend.Fallback(),
		"http_port", cfg.Server.HTTPPort,
		"auth_mode", cfg.Server.Auth.Mode,
		"history", cfg.History.Backend,
	)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	primary, err := source.New(cfg.Backend)
	if err != nil {
		slog.Error("failed to build data source", "err", err)
		os.Exit(1)
	}

	holder := state.NewHolder(cfg.Server.Snapshot.TTL)

	opts := poller.Options{
		Interval: cfg.Backend.PollInterval,
		Timeout:  cfg.Backend.Timeout,
	}
	if cfg.Backend.Fallback() && !primary.Demo() {
		opts.Fallback = source.NewFixture()
	}
	p := poller.New(primary, holder, opts)

	// History: synthetic series, or samples recorded from every live snapshot.
	hist, store, err := history.New(cfg.History)
	if err != nil {
		slog.Error("failed to open history store", "err", err)
		os.Exit(1)
	}
	if store != nil {
		defer store.Close()
		p.OnSnapshot(store.Observe)
		go store.Run(ctx)
	}

	alertEngine, err := alerts.New(cfg.Alerts)
	if err != nil {
		slog.Error("invalid alert rules", "err", err)
		os.Exit(1)
	}
	p.OnSnapshot(alertEngine.Evaluate)

	handler := api.New(holder, api.Options{
		History: hist,
		Alerts:  alertEngine,
		Poller:  p,
		Auth: auth.APIKey(
			cfg.Server.Auth.Mode,
			cfg.Server.Auth.EffectiveHeader(),
			cfg.Server.Auth.Key(),
		),
	})

	// WebSocket hub: broadcasts every stream interval and after each poll.
	hub := ws.New(handler.Document, cfg.Server.StreamInterval)
	handler.MountStream(hub)
	p.OnSnapshot(func(*state.Snapshot) { hub.Notify() })
	go hub.Run(ctx)

	go p.Run(ctx)

	// Hot reload: only the poll interval is applied live.
	go func() {
		err := config.Watch(ctx, *configPath, func(next *config.Config) {
			p.SetInterval(next.Backend.PollInterval)
		})
		if err != nil {
			slog.Error("config watch stopped", "err", err)
		}
	}()

	root := chi.NewRouter()
	root.Mount("/", handler)

	// Optional: serve the pre-built UI from a local directory.
	// The catch-all serves index.html for any unknown path (SPA routing).
	if *uiDir != "" {
		fs := http.FileServer(http.Dir(*uiDir))
		root.Get("/ui/*", func(w http.ResponseWriter, r *http.Request) {
			path := *uiDir + r.URL.Path[len("/ui"):]
			if _, err := os.Stat(path); os.IsNotExist(err) {
				http.ServeFile(w, r, *uiDir+"/index.html")
				return
			}
			http.StripPrefix("/ui", fs).ServeHTTP(w, r)
		})
		slog.Info("serving UI static files", "dir", *uiDir, "path", "/ui/")
	}

	httpSrv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.HTTPPort),
		Handler:           root,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		slog.Info("HTTP server listening", "port", cfg.Server.HTTPPort)
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("HTTP server stopped", "err", err)
			cancel()
		}
	}()

	<-ctx.Done()
	slog.Info("pipewatch-dashboard shutting down")

	shutdownCtx, done := context.WithTimeout(context.Background(), 10*time.Second)
	defer done()
	httpSrv.Shutdown(shutdownCtx) //nolint:errcheck
	alertEngine.Wait()
}
