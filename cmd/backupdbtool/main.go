package main

import (
	"context"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/imedwei/backupdbtool/internal/backup"
	"github.com/imedwei/backupdbtool/internal/config"
	"github.com/imedwei/backupdbtool/internal/server"
	"github.com/imedwei/backupdbtool/internal/storage"
)

func main() {
	// Replaced once the config file selects a level and format
	slog.SetDefault(newLogger(os.Stderr, "info", "text"))

	if err := newRootCmd().ExecuteContext(context.Background()); err != nil {
		slog.Error("Command failed", "error", err)
		os.Exit(1)
	}
}

// newLogger builds the process logger. Unknown levels fall back to info and
// any format other than "json" produces text output.
func newLogger(w io.Writer, level, format string) *slog.Logger {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		lvl = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: lvl}
	if strings.EqualFold(format, "json") {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// app holds the state shared by every subcommand.
type app struct {
	configPath string
	cfg        *config.Config
	logger     *slog.Logger
}

// load reads the configuration and installs the configured logger.
func (a *app) load() error {
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return err
	}
	a.cfg = cfg
	a.logger = newLogger(os.Stderr, cfg.App.LogLevel, cfg.App.LogFormat)
	slog.SetDefault(a.logger)

	a.logger.Debug("Configuration loaded",
		"config", a.configPath,
		"db_type", cfg.App.DBType,
		"storage_provider", cfg.App.CosProvider,
		"cos_path", cfg.App.CosPath,
		"backup_dir", cfg.BackupDir(),
	)
	return nil
}

// run wires the orchestrator and runs fn under a context cancelled by
// SIGINT or SIGTERM. The metrics server lives for the duration of fn.
func (a *app) run(ctx context.Context, fn func(context.Context, *backup.Orchestrator) error) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := storage.NewStorage(ctx, a.cfg, a.logger)
	if err != nil {
		return err
	}
	if c, ok := store.(io.Closer); ok {
		defer func() {
			if err := c.Close(); err != nil {
				a.logger.Warn("Failed to close storage", "error", err)
			}
		}()
	}

	dumper, err := backup.NewDumper(a.cfg, a.logger)
	if err != nil {
		return err
	}

	orch := backup.NewOrchestrator(a.cfg, dumper, backup.NewSevenZip(a.cfg.App.ToolTimeout, a.logger), store, a.logger)

	if a.cfg.Metrics.Port > 0 {
		srvCfg := server.DefaultConfig()
		srvCfg.Port = a.cfg.Metrics.Port
		srv := server.New(srvCfg, a.logger)
		srv.RegisterHealthCheck("workflow", orch.Tracker().Check)

		srvCtx, stopServer := context.WithCancel(ctx)
		served := make(chan struct{})
		go func() {
			defer close(served)
			if err := srv.Run(srvCtx); err != nil {
				a.logger.Error("HTTP server failed", "error", err)
			}
		}()

		defer func() {
			stopServer()
			<-served
		}()
	}

	start := time.Now()
	err = fn(ctx, orch)
	if ctx.Err() != nil && err != nil {
		a.logger.Warn("Interrupted", "elapsed", time.Since(start))
	}
	return err
}
