// Package registry holds every project in memory behind one mutex,
// dispatches jobs to workers, verifies uploads, and serializes the
// slow project-scoped mutations (split, complete) onto a single
// action queue — the teacher's single collector-goroutine shape in
// internal/encode.EncodeAll, generalized from in-process chunk
// encoding to a coordinator serving a worker fleet over HTTP.
package registry

import (
	"context"

	"github.com/five82/grav1go/internal/config"
	"github.com/five82/grav1go/internal/project"
)

// SceneRef identifies one scene within one project, used both as a
// job's identity and as an entry in a worker's held-list.
type SceneRef struct {
	ProjectID string
	Scene     string
}

// JobAssignment is what GetJob hands back to the transport layer: the
// job record plus everything needed to locate and stream its segment.
type JobAssignment struct {
	ProjectID   string
	SceneID     string
	SegmentPath string
	Job         project.Job
	Version     string
}

// Upload verification reason strings (spec §4.4/§7), returned verbatim
// as the finish_job response body.
const (
	ReasonProjectNotFound   = "project not found"
	ReasonJobNotFound       = "job not found"
	ReasonBadEncoderVersion = "bad encoder version"
	ReasonBadParams         = "bad params"
	ReasonAlreadyDone       = "already done"
	ReasonBadUpload         = "bad upload"
	ReasonBadEncode         = "bad encode"
	ReasonFrameMismatch     = "frame mismatch"
	ReasonSaved             = "saved"
)

// FinishRequest carries a finish_job call's form fields; the
// multipart file itself is streamed separately.
type FinishRequest struct {
	Client        string
	Encoder       config.EncoderKind
	Version       string
	EncoderParams string
	FFmpegParams  string
	ProjectID     string
	Scene         string
	Grain         bool
}

// FrameDecoder abstracts the reference-decoder and slow-count checks
// upload verification needs, so tests can fake them without real
// encoder/ffprobe binaries (mirrors sceneplan.FrameCounter).
type FrameDecoder interface {
	DecodeFrames(ctx context.Context, encoder config.EncoderKind, path string) (uint64, error)
}
