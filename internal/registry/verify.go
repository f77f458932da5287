package registry

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/five82/grav1go/internal/config"
	"github.com/five82/grav1go/internal/logging"
	"github.com/five82/grav1go/internal/mediautil"
)

// Finish implements spec §4.4's upload verification: ordered
// pre-checks, then a streamed write and decode/frame-count check. It
// always returns one of the Reason constants; callers reply 200 with
// that string as the body regardless of outcome.
func (r *Registry) Finish(ctx context.Context, req FinishRequest, body io.Reader) string {
	r.mu.Lock()
	p, ok := r.projects[req.ProjectID]
	if !ok {
		r.mu.Unlock()
		return ReasonProjectNotFound
	}
	job, ok := p.OpenJobs()[req.Scene]
	if !ok {
		r.mu.Unlock()
		return ReasonJobNotFound
	}
	if req.Version != r.encoderVersions[req.Encoder] {
		r.mu.Unlock()
		return ReasonBadEncoderVersion
	}
	if req.EncoderParams != job.EncoderParams || req.FFmpegParams != job.FFmpegParams {
		delete(job.Workers, req.Client)
		r.mu.Unlock()
		return ReasonBadParams
	}
	scene, ok := p.Scenes[req.Scene]
	if !ok {
		r.mu.Unlock()
		return ReasonJobNotFound
	}
	if scene.Filesize > 0 {
		r.mu.Unlock()
		return ReasonAlreadyDone
	}
	path := p.ScenePath(req.Scene)
	r.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return ReasonBadUpload
	}
	size, err := streamToFile(path, body)
	if err != nil || size == 0 {
		_ = os.Remove(path)
		return ReasonBadUpload
	}

	frames, err := r.decoder.DecodeFrames(ctx, req.Encoder, path)
	if err != nil {
		_ = os.Remove(path)
		return ReasonBadEncode
	}
	if int(frames) != job.Frames {
		_ = os.Remove(path)
		return ReasonFrameMismatch
	}

	return r.acceptUpload(req.ProjectID, req.Scene, path, job.Frames)
}

// acceptUpload records the verified upload under the registry lock:
// writes back the scene's filesize, updates throughput, retires the
// job, persists, and enqueues completion if the project is now done.
func (r *Registry) acceptUpload(pid, sceneID, path string, frames int) string {
	r.mu.Lock()

	p, ok := r.projects[pid]
	if !ok {
		r.mu.Unlock()
		return ReasonProjectNotFound
	}
	scene, ok := p.Scenes[sceneID]
	if !ok {
		r.mu.Unlock()
		return ReasonJobNotFound
	}
	// Re-check under the lock: two uploads for the same scene can both
	// pass Finish's pre-checks and decode verification concurrently,
	// but only the first to reach here should record throughput and
	// retire the job.
	if scene.Filesize > 0 {
		r.mu.Unlock()
		return ReasonAlreadyDone
	}

	info, err := os.Stat(path)
	if err == nil {
		scene.Filesize = info.Size()
	} else {
		scene.Filesize = 1 // best-effort: the file exists, stat merely failed transiently
	}
	delete(p.OpenJobs(), sceneID)
	r.throughput.Record(frames, time.Now())

	allDone := len(p.OpenJobs()) == 0
	if err := r.persistLocked(); err != nil && r.logger != nil {
		r.logger.Error(logging.CategoryUpload, "persist after upload: %v", err)
	}
	r.mu.Unlock()

	if allDone {
		r.enqueue(action{kind: actionComplete, projectID: pid})
	}
	return ReasonSaved
}

func streamToFile(path string, r io.Reader) (int64, error) {
	f, err := os.Create(path)
	if err != nil {
		return 0, err
	}
	defer func() { _ = f.Close() }()
	return io.Copy(f, r)
}

// defaultFrameDecoder implements FrameDecoder against real aomdec/ffprobe
// binaries: aom verification runs the reference decoder end-to-end
// (spec §4.4), vpx verification falls back to the muxer's slow count.
type defaultFrameDecoder struct {
	AomdecPath  string
	FFprobePath string
}

// NewFrameDecoder builds a FrameDecoder backed by real binaries.
func NewFrameDecoder(aomdecPath, ffprobePath string) FrameDecoder {
	return defaultFrameDecoder{AomdecPath: aomdecPath, FFprobePath: ffprobePath}
}

func (d defaultFrameDecoder) DecodeFrames(ctx context.Context, encoder config.EncoderKind, path string) (uint64, error) {
	if encoder == config.EncoderVpx {
		return mediautil.SlowFrameCount(d.FFprobePath, path)
	}
	return mediautil.DecodeVerifyAom(ctx, d.AomdecPath, path)
}
