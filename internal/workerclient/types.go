// Package workerclient is the worker-side counterpart to
// internal/registry: it fetches jobs from a coordinator, runs them
// through mediautil's two-pass encoder, and uploads the result,
// generalizing the teacher's single-process encode pipeline
// (internal/processing.ProcessVideos) into a fleet member polling a
// remote dispatcher instead of walking a local file list.
package workerclient

import (
	"github.com/five82/grav1go/internal/config"
)

// SceneRef identifies one scene within one project — the held-list
// entry a worker sends with every get_job poll so it isn't re-handed
// a scene it is already holding.
type SceneRef struct {
	ProjectID string
	Scene     string
}

// Job is a dispatched unit of work: the job metadata a get_job
// response carries in its headers, plus the local path the segment
// body was streamed to.
type Job struct {
	ProjectID     string
	Scene         string
	Filename      string
	Encoder       config.EncoderKind
	EncoderParams string
	FFmpegParams  string
	Version       string
	Start         int
	Frames        int
	Grain         bool
	SegmentPath   string
}

// FinishOutcome is what the coordinator said about an uploaded scene.
type FinishOutcome struct {
	Reason string
	Job    Job
}
