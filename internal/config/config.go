// Package config holds the coordinator and worker configuration types
// populated from CLI flags.
package config

import "fmt"

// EncoderKind is the closed enum of supported scene encoders (design
// note: optional dynamic dispatch becomes a small closed enum with a
// function table; new encoders expand the enum).
type EncoderKind string

const (
	EncoderAom EncoderKind = "aom"
	EncoderVpx EncoderKind = "vpx"
)

// DefaultUploadBadRetries is the retry budget for a `bad upload` response.
const DefaultUploadBadRetries = 3

// DefaultUploadOtherRetries is the retry budget for transport/unknown upload failures.
const DefaultUploadOtherRetries = 10

// DefaultUploadBackoffSecs is the pause between upload retry attempts.
const DefaultUploadBackoffSecs = 1

// DefaultJobFetchBackoffSecs is the pause after a failed job-fetch before retrying.
const DefaultJobFetchBackoffSecs = 15

// CoordinatorConfig holds CLI-derived settings for the coordinator process.
type CoordinatorConfig struct {
	// Port is the HTTP listen port.
	Port int
	// Cwd is the working directory holding projects.json, scenes/, and jobs/.
	Cwd string
	// Password gates the mutating /api endpoints when non-empty.
	Password string
}

// Validate checks the coordinator configuration for errors.
func (c *CoordinatorConfig) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("%w: got %d", ErrInvalidPort, c.Port)
	}
	if c.Cwd == "" {
		return ErrEmptyCwd
	}
	return nil
}

// WorkerConfig holds CLI-derived settings for the worker process.
type WorkerConfig struct {
	// Target is the coordinator base URL.
	Target string
	// Workers is the number of parallel encode goroutines.
	Workers int
	// Threads is passed through to the encoder as its thread-count flag.
	Threads int
	// Queue is the prefetch capacity; 0 disables prefetch.
	Queue int
	// AomencPath, VpxencPath, FfmpegPath are paths to the external tools.
	AomencPath string
	VpxencPath string
	FfmpegPath string
	// VMAFModelPath is appended as --vmaf-model-path for aom params that reference vmaf.
	VMAFModelPath string
	// NoUI disables the terminal status view and keypress menu.
	NoUI bool
}

// Validate checks the worker configuration for errors.
func (c *WorkerConfig) Validate() error {
	if c.Target == "" {
		return ErrEmptyTarget
	}
	if c.Workers < 1 {
		return fmt.Errorf("%w: got %d", ErrInvalidWorkers, c.Workers)
	}
	if c.Threads < 1 {
		return fmt.Errorf("%w: got %d", ErrInvalidThreads, c.Threads)
	}
	if c.Queue < 0 {
		return fmt.Errorf("%w: got %d", ErrInvalidQueue, c.Queue)
	}
	if c.AomencPath == "" {
		return fmt.Errorf("%w: aomenc", ErrMissingTool)
	}
	if c.VpxencPath == "" {
		return fmt.Errorf("%w: vpxenc", ErrMissingTool)
	}
	if c.FfmpegPath == "" {
		return fmt.Errorf("%w: ffmpeg", ErrMissingTool)
	}
	return nil
}

// PrefetchDisabled reports whether the worker should hold at most one job.
func (c *WorkerConfig) PrefetchDisabled() bool {
	return c.Queue == 0
}
