// Package main provides the CLI entry point for the grav1go coordinator.
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/exec"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/five82/grav1go/internal/config"
	"github.com/five82/grav1go/internal/coordinator"
	"github.com/five82/grav1go/internal/logging"
	"github.com/five82/grav1go/internal/mediautil"
	"github.com/five82/grav1go/internal/registry"
	"github.com/five82/grav1go/internal/sceneplan"
)

const appName = "grav1go-coordinator"

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	fs := flag.NewFlagSet(appName, flag.ExitOnError)
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `%s - re-encode job coordinator

Usage:
  %s --cwd <dir> [options]

Required:
  --cwd <dir>       Working directory holding projects.json, scenes/, and jobs/

Options:
  --port <int>       HTTP listen port (default 8080)
  --password <str>   Shared password gating mutating /api endpoints
  --reload            Watch persisted state for external edits and reload (default true)
  --ffmpeg <path>      Path to ffmpeg (default "ffmpeg")
  --ffprobe <path>     Path to ffprobe (default "ffprobe")
  --aomdec <path>      Path to aomdec, used to verify aom uploads (default "aomdec")
  --aomenc <path>      Path to aomenc, fingerprinted as the required aom version (default "aomenc")
  --vpxenc <path>      Path to vpxenc, fingerprinted as the required vpx version (default "vpxenc")
  --log-dir <path>     Log directory (defaults to ~/.local/state/grav1go/logs)
  --verbose            Enable verbose logging
  --no-log             Disable log file creation
`, appName, appName)
	}

	var cfg config.CoordinatorConfig
	var reload, verbose, noLog bool
	var ffmpegPath, ffprobePath, aomdecPath, aomencPath, vpxencPath, logDir string

	fs.IntVar(&cfg.Port, "port", 8080, "HTTP listen port")
	fs.StringVar(&cfg.Cwd, "cwd", "", "working directory")
	fs.StringVar(&cfg.Password, "password", "", "shared password gating mutating endpoints")
	fs.BoolVar(&reload, "reload", true, "watch persisted state for external edits and reload")
	fs.StringVar(&ffmpegPath, "ffmpeg", "ffmpeg", "path to ffmpeg")
	fs.StringVar(&ffprobePath, "ffprobe", "ffprobe", "path to ffprobe")
	fs.StringVar(&aomdecPath, "aomdec", "aomdec", "path to aomdec")
	fs.StringVar(&aomencPath, "aomenc", "aomenc", "path to aomenc")
	fs.StringVar(&vpxencPath, "vpxenc", "vpxenc", "path to vpxenc")
	fs.StringVar(&logDir, "log-dir", "", "log directory")
	fs.BoolVar(&verbose, "verbose", false, "enable verbose logging")
	fs.BoolVar(&noLog, "no-log", false, "disable log file creation")

	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	for _, tool := range []string{ffmpegPath, ffprobePath, aomdecPath, aomencPath, vpxencPath} {
		if _, err := exec.LookPath(tool); err != nil {
			return fmt.Errorf("required tool not found: %s", tool)
		}
	}

	if logDir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return fmt.Errorf("failed to get home directory: %w", err)
		}
		logDir = filepath.Join(homeDir, ".local", "state", "grav1go", "logs")
	}
	logger, err := logging.Setup(logDir, "coordinator", verbose, noLog)
	if err != nil {
		return fmt.Errorf("failed to setup logging: %w", err)
	}
	if logger != nil {
		defer func() { _ = logger.Close() }()
	}

	if err := os.MkdirAll(cfg.Cwd, 0755); err != nil {
		return fmt.Errorf("create cwd: %w", err)
	}

	tools := sceneplan.Tools{FFmpeg: ffmpegPath, FFprobe: ffprobePath}
	decoder := registry.NewFrameDecoder(aomdecPath, ffprobePath)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	encoderVersions := make(map[config.EncoderKind]string, 2)
	for _, kind := range []config.EncoderKind{config.EncoderAom, config.EncoderVpx} {
		v, err := mediautil.DetectEncoderVersion(ctx, kind, aomencPath, vpxencPath)
		if err != nil {
			return fmt.Errorf("detect %s encoder version: %w", kind, err)
		}
		encoderVersions[kind] = v
	}

	reg, err := registry.New(cfg.Cwd, tools, decoder, encoderVersions, logger)
	if err != nil {
		return fmt.Errorf("load registry: %w", err)
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		cancel()
	}()

	go reg.Run(ctx)

	if reload {
		go func() {
			if err := coordinator.WatchReload(ctx, cfg.Cwd, func() error { return reg.Reload(ctx) }, logger); err != nil && logger != nil {
				logger.Error(logging.CategoryAction, "fsnotify watch: %v", err)
			}
		}()
	}

	srv := coordinator.New(reg, cfg.Password, logger)
	httpServer := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Port),
		Handler: srv.Engine(),
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- httpServer.ListenAndServe()
	}()

	if logger != nil {
		logger.Info(logging.CategoryAction, "%s listening on :%d (cwd=%s)", appName, cfg.Port, cfg.Cwd)
	}

	select {
	case <-ctx.Done():
		shutdownCtx, shutdownCancel := context.WithCancel(context.Background())
		defer shutdownCancel()
		return httpServer.Shutdown(shutdownCtx)
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	}
}
