package config

import "errors"

// Sentinel errors for configuration validation.
var (
	ErrInvalidPort    = errors.New("port out of range")
	ErrEmptyCwd       = errors.New("cwd must be set")
	ErrEmptyTarget    = errors.New("target must be set")
	ErrInvalidWorkers = errors.New("workers must be at least 1")
	ErrInvalidThreads = errors.New("threads must be at least 1")
	ErrInvalidQueue   = errors.New("queue must be non-negative")
	ErrMissingTool    = errors.New("required external tool path must be set")
)
