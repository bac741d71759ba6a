package main

import (
	"context"
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/jakelee-bot/google-form-automation/internal/checkpoint"
	"github.com/jakelee-bot/google-form-automation/internal/config"
	"github.com/jakelee-bot/google-form-automation/internal/driver"
	"github.com/jakelee-bot/google-form-automation/internal/driver/replay"
	"github.com/jakelee-bot/google-form-automation/internal/driver/rodriver"
	"github.com/jakelee-bot/google-form-automation/internal/extraction"
	"github.com/jakelee-bot/google-form-automation/internal/intake"
	"github.com/jakelee-bot/google-form-automation/internal/logging"
	"github.com/jakelee-bot/google-form-automation/internal/normalize"
	"github.com/jakelee-bot/google-form-automation/internal/pages"
	"github.com/jakelee-bot/google-form-automation/internal/service"
	"github.com/jakelee-bot/google-form-automation/internal/workflow"
)

// app holds what every subcommand shares once configuration is loaded.
type app struct {
	cfg    *config.Config
	logger *zap.Logger
	flush  func()
}

func newApp(cfg *config.Config) (*app, error) {
	if version != "dev" {
		cfg.Version = version
	}
	logger, flush, err := logging.New(logging.Options{
		Level:  cfg.LogLevel,
		Format: cfg.LogFormat,
		File:   cfg.LogFile,
	})
	if err != nil {
		return nil, err
	}
	logger.Debug("configuration loaded", zap.Stringer("config", cfg))
	return &app{cfg: cfg, logger: logger, flush: flush}, nil
}

func (a *app) close() {
	if a != nil && a.flush != nil {
		a.flush()
	}
}

// surface selects how a service is assembled.
type surface int

const (
	// local is the CLI: file arguments are unrestricted and checkpoints
	// follow --interactive.
	local surface = iota
	// remote is HTTP and MCP: files stay inside --input-dir and runs are
	// unattended and headless unless a request says otherwise.
	remote
)

func (a *app) service(ctx context.Context, s surface, needDriver bool) (*service.Service, error) {
	table, err := pages.LoadFile(a.cfg.PagesFile)
	if err != nil {
		return nil, err
	}

	loaderOpts := intake.Options{MaxFileSize: a.cfg.MaxFileSize}
	if s == remote {
		loaderOpts.InputDir = a.cfg.InputDir
	}

	deps := service.Deps{
		Loader:     intake.New(a.logger, loaderOpts),
		Normalizer: normalize.FromConfig(ctx, a.cfg, a.logger),
		Extractor:  extraction.New(a.logger),
		Table:      table,
		Workflow:   a.workflowOptions(s),
		Checkpoint: checkpoint.AutoApprove{},
	}
	if s == local && a.cfg.Interactive {
		deps.Checkpoint = checkpoint.NewConsole()
	}
	if needDriver {
		if deps.Driver, err = a.driver(); err != nil {
			return nil, err
		}
	}
	return service.New(deps, a.logger), nil
}

func (a *app) workflowOptions(s surface) workflow.Options {
	opts := workflow.Options{
		FormURL:            a.cfg.FormURL,
		Headless:           a.cfg.Headless,
		Interactive:        a.cfg.Interactive,
		NavigationAttempts: a.cfg.NavigationAttempts,
		NavigationTimeout:  a.cfg.NavigationTimeout,
		ElementTimeout:     a.cfg.ElementTimeout,
		ProbeTimeout:       a.cfg.ProbeTimeout,
		SettleDelay:        a.cfg.SettleDelay,
		ScreenshotDir:      a.cfg.ScreenshotDir,
	}
	if s == remote {
		opts.Headless = true
		opts.Interactive = false
	}
	return opts
}

// driver picks the offline replay driver when snapshots are configured and
// Chrome otherwise.
func (a *app) driver() (driver.Driver, error) {
	if a.cfg.ScreenshotDir != "" {
		if err := os.MkdirAll(a.cfg.ScreenshotDir, config.DefaultDirPerm); err != nil {
			return nil, fmt.Errorf("create screenshot dir: %w", err)
		}
	}
	if a.cfg.ReplayDir != "" {
		a.logger.Info("using replay driver", zap.String("dir", a.cfg.ReplayDir))
		drv, err := replay.FromDir(a.cfg.ReplayDir)
		if err != nil {
			return nil, err
		}
		return drv, nil
	}
	return rodriver.New(rodriver.Config{
		BrowserBin:  a.cfg.BrowserBin,
		DebuggerURL: a.cfg.DebuggerURL,
	}, a.logger), nil
}
