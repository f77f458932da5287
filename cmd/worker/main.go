// Package main provides the CLI entry point for the grav1go worker.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/five82/grav1go/internal/config"
	"github.com/five82/grav1go/internal/logging"
	"github.com/five82/grav1go/internal/mediautil"
	"github.com/five82/grav1go/internal/workerclient"
)

const appName = "grav1go-worker"

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	fs := flag.NewFlagSet(appName, flag.ExitOnError)
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `%s - re-encode worker

Usage:
  %s --target <url> [options]

Required:
  --target <url>         Coordinator base URL (e.g. http://coordinator:8080)

Options:
  --config <path>         Optional YAML file providing flag defaults
  --workers <n>           Parallel encode goroutines (default 1)
  --threads <n>           Encoder thread count (default 4)
  --queue <n>             Prefetch queue capacity, 0 disables prefetch (default 0)
  --aomenc <path>         Path to aomenc (default "aomenc")
  --vpxenc <path>         Path to vpxenc (default "vpxenc")
  --ffmpeg <path>         Path to ffmpeg (default "ffmpeg")
  --vmaf-model <path>     Path to a VMAF model, used when encoder params reference vmaf
  --no-ui                 Disable the terminal status view and keypress menu
  --log-dir <path>        Log directory (defaults to ~/.local/state/grav1go/logs)
  --verbose               Enable verbose logging
  --no-log                Disable log file creation
  --work-dir <path>       Directory for downloaded segments and encoded scenes (default a temp dir)
`, appName, appName)
	}

	var configPath, workDir, logDir string
	var verbose, noLog bool
	var cfg config.WorkerConfig

	fs.StringVar(&configPath, "config", "", "optional YAML config file")
	fs.StringVar(&cfg.Target, "target", "", "coordinator base URL")
	fs.IntVar(&cfg.Workers, "workers", 0, "parallel encode goroutines")
	fs.IntVar(&cfg.Threads, "threads", 0, "encoder thread count")
	fs.IntVar(&cfg.Queue, "queue", -1, "prefetch queue capacity")
	fs.StringVar(&cfg.AomencPath, "aomenc", "", "path to aomenc")
	fs.StringVar(&cfg.VpxencPath, "vpxenc", "", "path to vpxenc")
	fs.StringVar(&cfg.FfmpegPath, "ffmpeg", "", "path to ffmpeg")
	fs.StringVar(&cfg.VMAFModelPath, "vmaf-model", "", "path to a VMAF model")
	fs.BoolVar(&cfg.NoUI, "no-ui", false, "disable the terminal status view")
	fs.StringVar(&logDir, "log-dir", "", "log directory")
	fs.BoolVar(&verbose, "verbose", false, "enable verbose logging")
	fs.BoolVar(&noLog, "no-log", false, "disable log file creation")
	fs.StringVar(&workDir, "work-dir", "", "directory for downloaded segments and encoded scenes")

	if err := fs.Parse(args); err != nil {
		return err
	}

	defaults, err := config.LoadWorkerYAML(configPath)
	if err != nil {
		return fmt.Errorf("load config file: %w", err)
	}
	if cfg.Queue < 0 {
		cfg.Queue = 0
	}
	defaults.ApplyDefaults(&cfg)
	if cfg.AomencPath == "" {
		cfg.AomencPath = "aomenc"
	}
	if cfg.VpxencPath == "" {
		cfg.VpxencPath = "vpxenc"
	}
	if cfg.FfmpegPath == "" {
		cfg.FfmpegPath = "ffmpeg"
	}
	if cfg.Workers == 0 {
		cfg.Workers = 1
	}
	if cfg.Threads == 0 {
		cfg.Threads = 4
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	if logDir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return fmt.Errorf("failed to get home directory: %w", err)
		}
		logDir = filepath.Join(homeDir, ".local", "state", "grav1go", "logs")
	}
	logger, err := logging.Setup(logDir, "worker", verbose, noLog)
	if err != nil {
		return fmt.Errorf("failed to setup logging: %w", err)
	}
	if logger != nil {
		defer func() { _ = logger.Close() }()
	}

	if workDir == "" {
		workDir, err = os.MkdirTemp("", "grav1go-worker-*")
		if err != nil {
			return fmt.Errorf("create work dir: %w", err)
		}
		defer func() { _ = os.RemoveAll(workDir) }()
	}

	hostname, _ := os.Hostname()
	clientID := fmt.Sprintf("%s-%d", hostname, os.Getpid())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		cancel()
	}()

	encoderVersions := make(map[config.EncoderKind]string, 2)
	for _, kind := range []config.EncoderKind{config.EncoderAom, config.EncoderVpx} {
		v, err := mediautil.DetectEncoderVersion(ctx, kind, cfg.AomencPath, cfg.VpxencPath)
		if err != nil {
			return fmt.Errorf("detect %s encoder version: %w", kind, err)
		}
		encoderVersions[kind] = v
	}

	if err := workerclient.Run(ctx, cfg, clientID, encoderVersions, workDir, logger); err != nil {
		return err
	}
	return nil
}
