package workerclient

import (
	"context"
	"testing"

	"github.com/five82/grav1go/internal/config"
	"github.com/five82/grav1go/internal/mediautil"
)

type fakeCanceler struct {
	cancelCalls []SceneRef
	grainCalls  []SceneRef
	grainErr    error
}

func (f *fakeCanceler) CancelJob(_ context.Context, _, projectID, scene string) error {
	f.cancelCalls = append(f.cancelCalls, SceneRef{ProjectID: projectID, Scene: scene})
	return nil
}

func (f *fakeCanceler) FetchGrainTable(_ context.Context, projectID, scene, _ string) error {
	f.grainCalls = append(f.grainCalls, SceneRef{ProjectID: projectID, Scene: scene})
	return f.grainErr
}

func newTestPool(canceler jobCanceler, localVersions map[config.EncoderKind]string) *Pool {
	down := NewDownloader(&fakeFetcher{}, "", 1, nil)
	upload := &Uploader{client: &scriptedUploader{responses: []string{"saved"}}}
	return &Pool{
		cfg:           config.WorkerConfig{},
		clientID:      "worker-1",
		down:          down,
		upload:        upload,
		canceler:      canceler,
		localVersions: localVersions,
		encode: func(context.Context, mediautil.EncodeSpec, mediautil.ProgressFunc) error {
			return nil
		},
		slots: make(map[int]*slot),
	}
}

func TestProcessJobCancelsAndAbortsOnVersionMismatch(t *testing.T) {
	canceler := &fakeCanceler{}
	p := newTestPool(canceler, map[config.EncoderKind]string{config.EncoderAom: "3.9.0"})

	var fatal string
	p.onFatalVersion = func(reason string) { fatal = reason }

	s := &slot{id: 1, stop: make(chan struct{})}
	job := &Job{ProjectID: "p1", Scene: "00000", Encoder: config.EncoderAom, Version: "3.8.0", Frames: 10}

	p.processJob(context.Background(), s, job)

	if fatal == "" {
		t.Error("expected onFatalVersion to be invoked on a version mismatch")
	}
	if len(canceler.cancelCalls) != 1 || canceler.cancelCalls[0] != (SceneRef{ProjectID: "p1", Scene: "00000"}) {
		t.Errorf("cancelCalls = %v, want one cancel for p1/00000", canceler.cancelCalls)
	}
}

func TestProcessJobFetchesGrainTableWhenJobRequiresGrain(t *testing.T) {
	canceler := &fakeCanceler{}
	p := newTestPool(canceler, map[config.EncoderKind]string{config.EncoderAom: "3.9.0"})

	var gotSpec mediautil.EncodeSpec
	p.encode = func(_ context.Context, spec mediautil.EncodeSpec, _ mediautil.ProgressFunc) error {
		gotSpec = spec
		return nil
	}

	s := &slot{id: 1, stop: make(chan struct{})}
	job := &Job{
		ProjectID:     "p1",
		Scene:         "00000",
		Encoder:       config.EncoderAom,
		Version:       "3.9.0",
		Frames:        10,
		Grain:         true,
		EncoderParams: "--cq-level=20 --cpu-used=4",
		FFmpegParams:  "scale=1920:-1",
		SegmentPath:   "/tmp/p1_00000.mkv",
	}

	p.processJob(context.Background(), s, job)

	if len(canceler.grainCalls) != 1 {
		t.Fatalf("grainCalls = %d, want 1", len(canceler.grainCalls))
	}
	if gotSpec.GrainTablePath == "" {
		t.Error("expected GrainTablePath to be set on the encode spec")
	}
	if len(gotSpec.EncoderArgs) != 2 || gotSpec.EncoderArgs[0] != "--cq-level=20" {
		t.Errorf("EncoderArgs = %v, want [--cq-level=20 --cpu-used=4]", gotSpec.EncoderArgs)
	}
	if gotSpec.FFmpegFilter != "scale=1920:-1" {
		t.Errorf("FFmpegFilter = %q, want scale=1920:-1", gotSpec.FFmpegFilter)
	}
}

func TestProcessJobCancelsOnGrainTableFetchError(t *testing.T) {
	canceler := &fakeCanceler{grainErr: context.DeadlineExceeded}
	p := newTestPool(canceler, map[config.EncoderKind]string{config.EncoderAom: "3.9.0"})

	encodeCalled := false
	p.encode = func(context.Context, mediautil.EncodeSpec, mediautil.ProgressFunc) error {
		encodeCalled = true
		return nil
	}

	s := &slot{id: 1, stop: make(chan struct{})}
	job := &Job{ProjectID: "p1", Scene: "00000", Encoder: config.EncoderAom, Version: "3.9.0", Grain: true, SegmentPath: "/tmp/p1_00000.mkv"}

	p.processJob(context.Background(), s, job)

	if encodeCalled {
		t.Error("expected encode never to run after a grain table fetch failure")
	}
	if len(canceler.cancelCalls) != 1 {
		t.Errorf("cancelCalls = %d, want 1", len(canceler.cancelCalls))
	}
}
