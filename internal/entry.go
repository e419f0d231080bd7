// Package internal provides the main application initialization and runtime logic.
package internal

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"

	"github.com/starford/mdorg/internal/api"
	"github.com/starford/mdorg/internal/apperr"
	"github.com/starford/mdorg/internal/convert"
	"github.com/starford/mdorg/internal/header"
	"github.com/starford/mdorg/internal/ids"
	"github.com/starford/mdorg/internal/ledger"
	"github.com/starford/mdorg/internal/mcpserver"
	"github.com/starford/mdorg/internal/models"
	"github.com/starford/mdorg/internal/render"
	"github.com/starford/mdorg/internal/sse"
	"github.com/starford/mdorg/internal/storage"
	"github.com/starford/mdorg/internal/watch"
)

func newApplication(opts []Option) (*application, error) {
	app := &application{
		version: "dev",
		stdout:  os.Stdout,
		stderr:  os.Stderr,
	}
	for _, opt := range opts {
		opt(app)
	}
	if app.config == nil {
		return nil, fmt.Errorf("config is required")
	}
	return app, nil
}

// newLogger builds the process logger. Logs go to stderr so that stdout
// stays free for command output and the MCP stdio transport.
func (a *application) newLogger() *slog.Logger {
	cfg := a.config.App
	hopts := &slog.HandlerOptions{Level: cfg.LogLevel}
	var h slog.Handler
	if cfg.LogFormat == LogFormatJSON {
		h = slog.NewJSONHandler(a.stderr, hopts)
	} else {
		h = slog.NewTextHandler(a.stderr, hopts)
	}
	logger := slog.New(h)
	slog.SetDefault(logger)
	return logger
}

// resolveInput classifies the input path. ok is false when the path was
// reported as invalid and the command should stop without error.
func (a *application) resolveInput(logger *slog.Logger) (in convert.Input, ok bool, err error) {
	in, err = convert.ResolveInput(a.input, a.config.Source.Extension)
	if errors.Is(err, apperr.ErrInvalidInput) {
		logger.Error("invalid input", slog.String("path", a.input))
		fmt.Fprintf(a.stderr, "%s is neither a directory nor a %s file; nothing converted\n",
			a.input, a.config.Source.Extension)
		return in, false, nil
	}
	return in, err == nil, err
}

// runtime bundles the components shared by every command.
type runtime struct {
	conv    *convert.Converter
	closers []func() error
}

func (rt *runtime) Close() {
	for i := len(rt.closers) - 1; i >= 0; i-- {
		_ = rt.closers[i]()
	}
}

func newRenderer(cfg RendererConfig) (render.Renderer, func() error) {
	if cfg.Kind == render.KindBuiltin {
		return render.NewBuiltin(), func() error { return nil }
	}
	p := render.NewPandoc(cfg.Pandoc)
	return p, p.Close
}

// open wires storage, the identifier index, the ledger and the renderer
// into a Converter rooted at srcRoot. notifier may be nil.
func (a *application) open(logger *slog.Logger, srcRoot string, notifier convert.Notifier) (*runtime, error) {
	cfg := a.config
	rt := &runtime{}

	src, err := storage.NewFS(srcRoot)
	if err != nil {
		return nil, fmt.Errorf("init source storage: %w", err)
	}
	if err := os.MkdirAll(cfg.Output.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}
	out, err := storage.NewFS(cfg.Output.Dir)
	if err != nil {
		return nil, fmt.Errorf("init output storage: %w", err)
	}

	index, err := ids.Build(out, cfg.Output.Extension)
	if err != nil {
		return nil, fmt.Errorf("build index: %w", err)
	}
	logger.Info("index built", slog.String("output", cfg.Output.Dir), slog.Int("ids", index.Len()))

	r, closeRenderer := newRenderer(cfg.Renderer)
	rt.closers = append(rt.closers, closeRenderer)

	opts := []convert.Option{
		convert.WithIndex(index),
		convert.WithLinkMode(cfg.Links.Mode),
		convert.WithHeader(header.NewGenerator(cfg.Header.Convention, cfg.Header.TagStyle)),
		convert.WithExtensions(cfg.Source.Extension, cfg.Output.Extension),
		convert.WithForce(cfg.Run.Force),
		convert.WithContinueOnError(cfg.Run.ContinueOnError),
		convert.WithLogger(logger),
	}
	if notifier != nil {
		opts = append(opts, convert.WithNotifier(notifier))
	}
	if cfg.Ledger.Enabled() {
		db, err := ledger.Open(cfg.Ledger.Resolve(cfg.Output.Dir))
		if err != nil {
			rt.Close()
			return nil, fmt.Errorf("init ledger: %w", err)
		}
		rt.closers = append(rt.closers, db.Close)
		opts = append(opts, convert.WithLedger(db))
	}

	rt.conv = convert.New(src, out, r, opts...)
	return rt, nil
}

// Run converts the input path once: a single file or a whole tree.
func Run(ctx context.Context, opts ...Option) error {
	app, err := newApplication(opts)
	if err != nil {
		return err
	}
	logger := app.newLogger()

	in, ok, err := app.resolveInput(logger)
	if !ok {
		return err
	}

	rt, err := app.open(logger, in.Root, nil)
	if err != nil {
		return err
	}
	defer rt.Close()

	if in.File != "" {
		conv, err := rt.conv.ConvertFile(ctx, in.File)
		sum := convert.Summary{}
		switch {
		case err != nil:
			sum.Failed = 1
			sum.Failures = []convert.Failure{{Source: in.File, Error: err.Error()}}
		case conv.Status == models.StatusSkipped:
			sum.Skipped = 1
		default:
			sum.Converted = 1
		}
		printSummary(app.stdout, sum)
		return nil
	}

	sum, err := rt.conv.ConvertTree(ctx)
	printSummary(app.stdout, sum)
	if err != nil {
		return fmt.Errorf("convert tree: %w", err)
	}
	return nil
}

func printSummary(w io.Writer, sum convert.Summary) {
	fmt.Fprintf(w, "converted: %d, skipped: %d, failed: %d, removed: %d, refreshed: %d\n",
		sum.Converted, sum.Skipped, sum.Failed, sum.Removed, sum.Refreshed)
	for _, f := range sum.Failures {
		fmt.Fprintf(w, "  %s: %s\n", f.Source, f.Error)
	}
}

// Watch converts the input tree, then keeps the output in step with the
// source until ctx is cancelled or a shutdown signal arrives.
func Watch(ctx context.Context, opts ...Option) error {
	app, err := newApplication(opts)
	if err != nil {
		return err
	}
	logger := app.newLogger()

	in, ok, err := app.resolveInput(logger)
	if !ok {
		return err
	}
	if in.File != "" {
		return fmt.Errorf("watch: %s: a directory is required", app.input)
	}

	rt, err := app.open(logger, in.Root, nil)
	if err != nil {
		return err
	}
	defer rt.Close()

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if _, err := rt.conv.ConvertTree(ctx); err != nil {
		logger.Warn("initial conversion failed", slog.String("error", err.Error()))
	}
	return watch.Watch(ctx, rt.conv, in.Root, logger, nil)
}

// Serve runs watch mode together with the HTTP API and the SSE event stream.
func Serve(ctx context.Context, opts ...Option) error {
	app, err := newApplication(opts)
	if err != nil {
		return err
	}
	cfg := app.config
	logger := app.newLogger()

	logger.Info("Configuration loaded",
		slog.String("http_address", cfg.App.HTTP.Address()),
		slog.String("input", app.input),
		slog.String("output_dir", cfg.Output.Dir),
		slog.String("renderer", cfg.Renderer.Kind),
		slog.String("link_mode", string(cfg.Links.Mode)),
		slog.Bool("ledger", cfg.Ledger.Enabled()),
		slog.String("log_level", cfg.App.LogLevel.String()))

	in, ok, err := app.resolveInput(logger)
	if !ok {
		return err
	}
	if in.File != "" {
		return fmt.Errorf("serve: %s: a directory is required", app.input)
	}

	broker := sse.NewBroker(2 * time.Second)
	defer broker.Close()

	rt, err := app.open(logger, in.Root, broker)
	if err != nil {
		return err
	}
	defer rt.Close()

	if _, err := rt.conv.ConvertTree(ctx); err != nil {
		logger.Warn("initial conversion failed", slog.String("error", err.Error()))
	}

	apiRouter := api.NewRouter(rt.conv, rt.conv.Ledger(), cfg.Auth.AuthEnabled(), cfg.Auth.Token, broker)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	// Health check endpoints (unauthenticated).
	r.Get("/health/live", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	r.Mount("/api", apiRouter)

	httpServer := &http.Server{
		Addr:    cfg.App.HTTP.Address(),
		Handler: r,
	}

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return watch.Watch(gCtx, rt.conv, in.Root, logger, nil)
	})

	g.Go(func() error {
		logger.Info("Starting HTTP server", slog.String("address", cfg.App.HTTP.Address()))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP server error: %w", err)
		}
		return nil
	})

	// Handle shutdown signals.
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
		return context.Canceled
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Application error", slog.String("error", err.Error()))
		return err
	}

	logger.Info("Server stopped successfully")
	return nil
}

// MCP serves the conversion tools over stdio. The input path, when given,
// is the source root; the identifier index always comes from the output
// directory.
func MCP(_ context.Context, opts ...Option) error {
	app, err := newApplication(opts)
	if err != nil {
		return err
	}
	logger := app.newLogger()

	root := "."
	if app.input != "" {
		in, ok, err := app.resolveInput(logger)
		if !ok {
			return err
		}
		root = in.Root
	}

	rt, err := app.open(logger, root, nil)
	if err != nil {
		return err
	}
	defer rt.Close()

	srv := mcpserver.New(rt.conv, rt.conv.Ledger(), app.version)
	logger.Info("MCP server starting on stdio")
	return srv.ServeStdio()
}

// Status prints the ledger report: conversion counts, failed sources and
// unresolved cross-references.
func Status(_ context.Context, opts ...Option) error {
	app, err := newApplication(opts)
	if err != nil {
		return err
	}
	cfg := app.config
	app.newLogger()

	if !cfg.Ledger.Enabled() {
		fmt.Fprintln(app.stdout, "ledger disabled")
		return nil
	}
	path := cfg.Ledger.Resolve(cfg.Output.Dir)
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		fmt.Fprintf(app.stdout, "no ledger at %s; run a conversion first\n", path)
		return nil
	}
	db, err := ledger.Open(path)
	if err != nil {
		return fmt.Errorf("open ledger: %w", err)
	}
	defer db.Close()

	return report(app.stdout, db)
}

func report(w io.Writer, db ledger.Store) error {
	sum, err := db.Summary()
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "sources: %d (converted %d, failed %d)\n", sum.Total, sum.Converted, sum.Failed)
	fmt.Fprintf(w, "links: %d (unresolved %d)\n", sum.Links, sum.Unresolved)

	if sum.Failed > 0 {
		failed, _, err := db.ListConversions(models.StatusFailed, 0, 0)
		if err != nil {
			return err
		}
		fmt.Fprintln(w, "failed:")
		for _, c := range failed {
			fmt.Fprintf(w, "  %s: %s\n", c.Source, c.Error)
		}
	}
	if sum.Unresolved > 0 {
		unresolved, err := db.UnresolvedLinks()
		if err != nil {
			return err
		}
		fmt.Fprintln(w, "unresolved:")
		for _, l := range unresolved {
			fmt.Fprintf(w, "  %s -> %s\n", l.Source, l.Target)
		}
	}
	return nil
}
