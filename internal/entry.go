// Package internal provides the main application initialization and runtime logic.
package internal

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"

	"github.com/starford/zettelnav/internal/api"
	"github.com/starford/zettelnav/internal/apperr"
	"github.com/starford/zettelnav/internal/catalog"
	"github.com/starford/zettelnav/internal/editor"
	"github.com/starford/zettelnav/internal/engine"
	"github.com/starford/zettelnav/internal/mcpserver"
	"github.com/starford/zettelnav/internal/metrics"
	"github.com/starford/zettelnav/internal/models"
	"github.com/starford/zettelnav/internal/noteservice"
	"github.com/starford/zettelnav/internal/sse"
	"github.com/starford/zettelnav/internal/storage"
)

var errConfigRequired = errors.New("config is required")

func newLogger(level slog.Level, w io.Writer) *slog.Logger {
	logger := slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)
	return logger
}

// openService builds the note service. With withCorpus the service is bound
// to the configured corpus file, whose directory is created when missing.
func (a *application) openService(logger *slog.Logger, withCorpus bool, extra ...noteservice.Option) (*noteservice.Service, func(), error) {
	cat, err := catalog.Open()
	if err != nil {
		return nil, nil, fmt.Errorf("init catalog: %w", err)
	}

	opts := append([]noteservice.Option{noteservice.WithLogger(logger)}, extra...)
	if withCorpus {
		dir, name := filepath.Split(a.config.Corpus.Path)
		if dir == "" {
			dir = "."
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			cat.Close()
			return nil, nil, fmt.Errorf("create corpus dir: %w", err)
		}
		store, err := storage.NewFS(dir)
		if err != nil {
			cat.Close()
			return nil, nil, fmt.Errorf("init storage: %w", err)
		}
		opts = append(opts, noteservice.WithCorpus(store, name))
	}

	svc := noteservice.NewService(engine.New(), cat, opts...)
	return svc, func() { cat.Close() }, nil
}

// initialLoad indexes the corpus file if it exists.
func initialLoad(ctx context.Context, svc *noteservice.Service, logger *slog.Logger) {
	res, _, err := svc.Reload(ctx)
	switch {
	case errors.Is(err, apperr.ErrNotFound):
		logger.Warn("corpus file not found, starting with an empty index")
	case err != nil:
		logger.Warn("initial index failed", slog.String("error", err.Error()))
	default:
		logger.Info("corpus indexed", slog.Int("notes", res.Notes), slog.Int("links", res.Links))
	}
}

// brokerHook forwards rebuild outcomes to SSE clients.
func brokerHook(b *sse.Broker) noteservice.RebuildHook {
	return func(res noteservice.RebuildResult, err error) {
		if err != nil {
			b.PublishFailed(sse.FailedData{Kind: apperr.Kind(err), Message: err.Error()})
			return
		}
		b.PublishRebuilt(sse.RebuiltData{Notes: res.Notes, Links: res.Links, Checksum: res.Checksum})
	}
}

func writeStatus(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(body))
}

// Run starts the HTTP server, the corpus watcher and the SSE broker.
func Run(ctx context.Context, opts ...Option) error {
	app, err := newApplication(opts)
	if err != nil {
		return err
	}
	cfg := app.config

	logger := newLogger(cfg.App.LogLevel, os.Stdout)
	logger.Info("Configuration loaded",
		slog.String("http_address", cfg.App.HTTP.Address()),
		slog.String("corpus_path", cfg.Corpus.Path),
		slog.Bool("watch", cfg.Corpus.Watch),
		slog.String("log_level", cfg.App.LogLevel.String()))

	broker := sse.NewBroker(cfg.Events.GraphThrottle, cfg.Events.KeepAlive)
	defer broker.Close()
	m := metrics.New()

	svc, closeSvc, err := app.openService(logger, true,
		noteservice.WithMetrics(m),
		noteservice.WithRebuildHook(brokerHook(broker)))
	if err != nil {
		return err
	}
	defer closeSvc()

	var ready atomic.Bool
	initialLoad(ctx, svc, logger)
	ready.Store(true)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	// Health and metrics endpoints (unauthenticated).
	r.Get("/health/live", func(w http.ResponseWriter, _ *http.Request) {
		writeStatus(w, http.StatusOK, `{"status":"ok"}`)
	})
	r.Get("/health/ready", func(w http.ResponseWriter, _ *http.Request) {
		if !ready.Load() {
			writeStatus(w, http.StatusServiceUnavailable, `{"status":"loading"}`)
			return
		}
		writeStatus(w, http.StatusOK, `{"status":"ok"}`)
	})
	r.Method(http.MethodGet, "/metrics", m.Handler())

	r.Mount("/api", api.NewRouter(svc, cfg.Auth.AuthEnabled(), cfg.Auth.Token, broker))

	httpServer := &http.Server{
		Addr:              cfg.App.HTTP.Address(),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gCtx := errgroup.WithContext(ctx)

	if cfg.Corpus.Watch {
		g.Go(func() error {
			if err := svc.Watch(gCtx, cfg.Corpus.Debounce); err != nil {
				logger.Error("watcher failed", slog.String("error", err.Error()))
			}
			return nil
		})
	}

	g.Go(func() error {
		logger.Info("Starting HTTP server", slog.String("address", cfg.App.HTTP.Address()))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP server error: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(quit)

		select {
		case sig := <-quit:
			logger.Info("Received shutdown signal", slog.String("signal", sig.String()))
		case <-gCtx.Done():
			logger.Info("Context cancelled, initiating shutdown")
		}

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("HTTP server shutdown error", slog.String("error", err.Error()))
		}
		// Shutdown does not wait for SSE streams; closing the broker ends them.
		broker.Close()
		return context.Canceled
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Application error", slog.String("error", err.Error()))
		return err
	}

	logger.Info("Server stopped successfully")
	return nil
}

// RunStdio serves the editor JSON-lines protocol on in and out. The host
// editor pushes content, so the corpus file is not read.
func RunStdio(ctx context.Context, in io.Reader, out io.Writer, opts ...Option) error {
	app, err := newApplication(opts)
	if err != nil {
		return err
	}
	logger := newLogger(app.config.App.LogLevel, os.Stderr)

	svc, closeSvc, err := app.openService(logger, false)
	if err != nil {
		return err
	}
	defer closeSvc()

	logger.Info("editor session started")
	if err := editor.Serve(ctx, svc, in, out, logger); err != nil {
		return err
	}
	logger.Info("editor session ended")
	return nil
}

// RunMCP serves the MCP tools over stdio, watching the corpus file when
// configured to.
func RunMCP(ctx context.Context, opts ...Option) error {
	app, err := newApplication(opts)
	if err != nil {
		return err
	}
	cfg := app.config
	logger := newLogger(cfg.App.LogLevel, os.Stderr)

	svc, closeSvc, err := app.openService(logger, true)
	if err != nil {
		return err
	}
	defer closeSvc()
	initialLoad(ctx, svc, logger)

	srv := mcpserver.New(svc, app.version)

	g, gCtx := errgroup.WithContext(ctx)
	watchCtx, stopWatch := context.WithCancel(gCtx)
	defer stopWatch()

	if cfg.Corpus.Watch {
		g.Go(func() error {
			if err := svc.Watch(watchCtx, cfg.Corpus.Debounce); err != nil {
				logger.Error("watcher failed", slog.String("error", err.Error()))
			}
			return nil
		})
	}
	g.Go(func() error {
		defer stopWatch()
		return srv.ServeStdio()
	})
	return g.Wait()
}

// RunJump indexes content, resolves one request and writes the target as
// JSON to out.
func RunJump(ctx context.Context, content string, req models.JumpRequest, out io.Writer, opts ...Option) error {
	app, err := newApplication(opts)
	if err != nil {
		return err
	}
	logger := newLogger(app.config.App.LogLevel, os.Stderr)

	svc, closeSvc, err := app.openService(logger, false)
	if err != nil {
		return err
	}
	defer closeSvc()

	if _, err := svc.Rebuild(ctx, content); err != nil {
		return fmt.Errorf("index: %w", err)
	}
	target, err := svc.Jump(ctx, req)
	if err != nil {
		return fmt.Errorf("jump: %w", err)
	}
	return json.NewEncoder(out).Encode(target)
}
