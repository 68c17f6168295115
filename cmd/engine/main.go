// Command engine serves agent topology runs over HTTP: SSE streaming per
// endpoint, scheduled async functions, and hot configuration reload.
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

	"github.com/fabriq-ai/engine"
	"github.com/fabriq-ai/engine/config"
	"github.com/fabriq-ai/engine/core"
	"github.com/fabriq-ai/engine/logging"
	"github.com/fabriq-ai/engine/model/anthropic"
	"github.com/fabriq-ai/engine/model/openai"
	"github.com/fabriq-ai/engine/server"
)

func main() {
	var (
		configPath = flag.String("config", "config.yaml", "path to the configuration file")
		addr       = flag.String("addr", ":8080", "listen address")
		provider   = flag.String("provider", "anthropic", "model provider (anthropic or openai)")
	)
	flag.Parse()

	logger := logging.NewJSONLogger(os.Stdout, slog.LevelInfo)

	if err := run(*configPath, *addr, *provider, logger); err != nil {
		logger.Error("engine exited", "error", err)
		os.Exit(1)
	}
}

func run(configPath, addr, provider string, logger logging.Logger) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	invoker, err := newInvoker(provider)
	if err != nil {
		return err
	}

	e, err := engine.New(cfg, invoker, func(o *engine.Options) {
		o.Logger = logger
	})
	if err != nil {
		return err
	}
	defer e.Close()

	srv := &http.Server{
		Addr: addr,
		Handler: server.New(e, configPath, func(o *server.Options) {
			o.Logger = logger
		}).Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", "addr", addr, "provider", provider)
		errCh <- srv.ListenAndServe()
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func newInvoker(provider string) (core.Invoker, error) {
	switch provider {
	case "anthropic":
		return anthropic.New(), nil
	case "openai":
		return openai.New(), nil
	default:
		return nil, fmt.Errorf("unknown provider %q", provider)
	}
}
