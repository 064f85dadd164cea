package main

import (
	"context"
	"encoding/json"
	"io"
	"os/signal"
	"syscall"

	"github.com/Kotbarsikow/Shed-parser-nuwee/internal/bootstrap"
	"github.com/Kotbarsikow/Shed-parser-nuwee/pkg/config"
	"github.com/Kotbarsikow/Shed-parser-nuwee/pkg/logger"
)

// withApp loads configuration, builds the pipeline and runs fn with a context
// cancelled on SIGINT or SIGTERM.
func withApp(parent context.Context, fn func(ctx context.Context, app *bootstrap.App) error) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	// Logs go to stderr; stdout carries command output.
	cfg.Log.Format = "console"
	logr, err := logger.New(cfg)
	if err != nil {
		return err
	}
	defer logr.Sync() //nolint:errcheck

	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.New(ctx, cfg, logr)
	if err != nil {
		return err
	}
	defer app.Close()
	return fn(ctx, app)
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(v)
}
