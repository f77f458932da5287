package workerclient

import (
	"context"
	"os"
	"sync/atomic"

	"github.com/five82/grav1go/internal/config"
	"github.com/five82/grav1go/internal/logging"
)

// Run wires a Downloader, Pool, and (unless cfg.NoUI) a StatusView
// together and blocks until ctx is cancelled or the coordinator
// reports a fatal encoder-version mismatch, in which case it returns
// a non-nil error so main can choose a non-zero exit code (spec §6).
// encoderVersions is this worker's own detected aomenc/vpxenc version
// per encoder kind.
func Run(ctx context.Context, cfg config.WorkerConfig, clientID string, encoderVersions map[config.EncoderKind]string, workDir string, logger *logging.Logger) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	client := NewClient(cfg.Target, clientID)
	down := NewDownloader(client, workDir, cfg.Queue, logger)

	var fatalReason atomic.Value // string
	onFatal := func(reason string) {
		fatalReason.Store(reason)
		cancel()
	}
	uploader := NewUploader(client, clientID, encoderVersions, logger, onFatal)

	var completed, failed atomic.Int64
	onFinish := func(outcome FinishOutcome) {
		if outcome.Reason == reasonSaved {
			completed.Add(1)
		} else {
			failed.Add(1)
		}
		if logger != nil {
			logger.Info(logging.CategoryWorker, "%s/%s: %s", outcome.Job.ProjectID, outcome.Job.Scene, outcome.Reason)
		}
	}

	pool := NewPool(cfg, down, uploader, client, clientID, encoderVersions, logger, onFinish, onFatal)
	for i := 0; i < cfg.Workers; i++ {
		pool.AddWorker(ctx)
	}

	go down.Run(ctx)

	if !cfg.NoUI && isTerminalStdout() {
		view := NewStatusView(pool)
		go view.RunKeypressMenu(ctx, cancel)
	}

	<-ctx.Done()
	pool.Wait()

	if logger != nil {
		logger.Info(logging.CategoryWorker, "shutdown: %d completed, %d failed", completed.Load(), failed.Load())
	}

	if reason, ok := fatalReason.Load().(string); ok && reason != "" {
		return fatalEncoderVersionError{reason: reason}
	}
	return nil
}

const reasonSaved = "saved"

func isTerminalStdout() bool {
	info, err := os.Stdout.Stat()
	if err != nil {
		return false
	}
	return (info.Mode() & os.ModeCharDevice) != 0
}

// fatalEncoderVersionError signals the worker must exit non-zero: the
// coordinator rejected its encoder version and every future upload
// would fail identically until the binary is updated.
type fatalEncoderVersionError struct {
	reason string
}

func (e fatalEncoderVersionError) Error() string {
	return "coordinator rejected encoder version: " + e.reason
}
