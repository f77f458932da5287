package workerclient

import (
	"context"
	"time"

	"github.com/five82/grav1go/internal/config"
	"github.com/five82/grav1go/internal/logging"
)

// Uploader retries finish_job per spec's upload retry policy: a
// bounded number of attempts on a `bad upload` reason (the upload
// itself was corrupt, worth a prompt retry), a larger bound for
// transport failures or any other non-terminal reason, and none at
// all for terminal reasons (saved, already done, bad params, frame
// mismatch, …) where retrying cannot change the outcome.
// jobUploader is the subset of *Client the uploader needs, broken out
// so tests can fake the coordinator's finish_job responses.
type jobUploader interface {
	FinishJob(ctx context.Context, req FinishRequest, path string) (string, error)
}

type Uploader struct {
	client         jobUploader
	clientID       string
	badRetries     int
	otherRetries   int
	backoff        time.Duration
	logger         *logging.Logger
	encoderVersions map[config.EncoderKind]string
	onFatal        func(reason string)
}

// NewUploader builds an Uploader using the package's default retry
// budgets (spec §6). encoderVersions is this worker's own detected
// aomenc/vpxenc version per encoder kind, echoed on every finish_job
// call so the coordinator can compare it against its own; onFatal is
// invoked once if the coordinator ever reports a bad encoder version,
// since that means every future upload will fail the same way until
// the binary is updated.
func NewUploader(client jobUploader, clientID string, encoderVersions map[config.EncoderKind]string, logger *logging.Logger, onFatal func(reason string)) *Uploader {
	return &Uploader{
		client:          client,
		clientID:        clientID,
		badRetries:      config.DefaultUploadBadRetries,
		otherRetries:    config.DefaultUploadOtherRetries,
		backoff:         time.Duration(config.DefaultUploadBackoffSecs) * time.Second,
		logger:          logger,
		encoderVersions: encoderVersions,
		onFatal:         onFatal,
	}
}

const reasonBadUpload = "bad upload"
const reasonBadEncoderVersion = "bad encoder version"

// terminalReasons never benefit from a retry: the coordinator has
// already made a final decision about this scene.
var terminalReasons = map[string]bool{
	"saved":             true,
	"already done":      true,
	"bad params":        true,
	"frame mismatch":    true,
	"bad encode":        true,
	"project not found": true,
	"job not found":     true,
}

// Upload uploads one encoded scene, retrying transient failures. The
// returned outcome's Reason is the coordinator's last response (or a
// transport-error placeholder if every attempt failed to even reach
// it).
func (u *Uploader) Upload(ctx context.Context, job *Job, path string) FinishOutcome {
	req := FinishRequest{
		Client:        u.clientID,
		Encoder:       job.Encoder,
		Version:       u.encoderVersions[job.Encoder],
		EncoderParams: job.EncoderParams,
		FFmpegParams:  job.FFmpegParams,
		ProjectID:     job.ProjectID,
		Scene:         job.Scene,
		Grain:         job.Grain,
	}

	var lastReason string
	attempts := u.otherRetries
	for attempt := 0; attempt <= attempts; attempt++ {
		if ctx.Err() != nil {
			return FinishOutcome{Reason: lastReason, Job: *job}
		}

		reason, err := u.client.FinishJob(ctx, req, path)
		if err != nil {
			if u.logger != nil {
				u.logger.Warn(logging.CategoryWorker, "upload %s/%s attempt %d: %v", job.ProjectID, job.Scene, attempt+1, err)
			}
			lastReason = err.Error()
			sleepOrDone(ctx, u.backoff)
			continue
		}

		lastReason = reason
		if reason == reasonBadEncoderVersion {
			if u.onFatal != nil {
				u.onFatal(reason)
			}
			return FinishOutcome{Reason: reason, Job: *job}
		}
		if terminalReasons[reason] {
			return FinishOutcome{Reason: reason, Job: *job}
		}
		if reason == reasonBadUpload && attempt >= u.badRetries {
			return FinishOutcome{Reason: reason, Job: *job}
		}

		if u.logger != nil {
			u.logger.Warn(logging.CategoryWorker, "upload %s/%s attempt %d: %s", job.ProjectID, job.Scene, attempt+1, reason)
		}
		sleepOrDone(ctx, u.backoff)
	}

	return FinishOutcome{Reason: lastReason, Job: *job}
}
