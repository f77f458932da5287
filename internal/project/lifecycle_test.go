package project

import (
	"context"
	"testing"
)

func TestStartNeedsSplitWhenNoScenes(t *testing.T) {
	p := New("p1", t.TempDir())
	outcome, err := p.Start(context.Background(), "ffmpeg")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if outcome != OutcomeNeedsSplit {
		t.Errorf("outcome = %v, want %v", outcome, OutcomeNeedsSplit)
	}
	if p.Status != StatusNeedsSplit {
		t.Errorf("status = %v, want %v", p.Status, StatusNeedsSplit)
	}
}

func TestStartParksOnTotalFrameMismatch(t *testing.T) {
	p := New("p1", t.TempDir())
	p.InputFrames = 100
	p.Segments["00000"] = &Segment{Start: 0, Length: 50}
	p.Scenes["00000"] = &Scene{Segment: "00000", Start: 0, Frames: 50}

	outcome, err := p.Start(context.Background(), "ffmpeg")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if outcome != OutcomeFrameMismatch {
		t.Errorf("outcome = %v, want %v", outcome, OutcomeFrameMismatch)
	}
	if p.Status != StatusTotalFrameMismatch {
		t.Errorf("status = %v, want %v", p.Status, StatusTotalFrameMismatch)
	}
}

func TestStartBuildsOpenJobSetAndStaysReady(t *testing.T) {
	p := New("p1", t.TempDir())
	p.InputFrames = 100
	p.Encoder = "aom"
	p.Segments["00000"] = &Segment{Start: 0, Length: 100}
	p.Scenes["00000"] = &Scene{Segment: "00000", Start: 0, Frames: 60}
	p.Scenes["00001"] = &Scene{Segment: "00000", Start: 60, Frames: 40}

	outcome, err := p.Start(context.Background(), "ffmpeg")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if outcome != OutcomeReady {
		t.Errorf("outcome = %v, want %v", outcome, OutcomeReady)
	}
	if len(p.OpenJobs()) != 2 {
		t.Fatalf("expected 2 open jobs, got %d", len(p.OpenJobs()))
	}
	job, ok := p.OpenJobs()["00000"]
	if !ok {
		t.Fatal("expected job 00000 in open set")
	}
	if job.Frames != 60 || job.Start != 0 {
		t.Errorf("job 00000 = %+v, want Start=0 Frames=60", job)
	}
}

func TestStartExcludesFinishedAndBadScenes(t *testing.T) {
	p := New("p1", t.TempDir())
	p.InputFrames = 100
	p.Segments["00000"] = &Segment{Start: 0, Length: 100}
	p.Scenes["00000"] = &Scene{Segment: "00000", Start: 0, Frames: 60, Filesize: 1234}
	p.Scenes["00001"] = &Scene{Segment: "00000", Start: 60, Frames: 40, Bad: true}

	if _, err := p.Start(context.Background(), "ffmpeg"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(p.OpenJobs()) != 0 {
		t.Errorf("expected no open jobs, got %d: %+v", len(p.OpenJobs()), p.OpenJobs())
	}
}

func TestCompleteIsIdempotentWhenAlreadyComplete(t *testing.T) {
	p := New("p1", t.TempDir())
	p.Status = StatusComplete
	if err := p.Complete(context.Background(), "ffmpeg"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestCompleteNoOpWhileJobsOpen(t *testing.T) {
	p := New("p1", t.TempDir())
	p.InputFrames = 10
	p.Scenes["00000"] = &Scene{Segment: "00000", Start: 0, Frames: 10}
	p.openJobs["00000"] = &Job{ProjectID: "p1", SceneKey: "00000"}

	if err := p.Complete(context.Background(), "ffmpeg"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.Status == StatusComplete {
		t.Error("project should not complete while jobs remain open")
	}
}

func TestOrderedSceneIDsFollowsSourceOrder(t *testing.T) {
	p := New("p1", t.TempDir())
	p.Segments["00000"] = &Segment{Start: 0, Length: 60}
	p.Segments["00001"] = &Segment{Start: 60, Length: 40}
	p.Scenes["00002"] = &Scene{Segment: "00001", Start: 0, Frames: 40}
	p.Scenes["00000"] = &Scene{Segment: "00000", Start: 0, Frames: 30}
	p.Scenes["00001"] = &Scene{Segment: "00000", Start: 30, Frames: 30}

	got := p.orderedSceneIDs()
	want := []string{"00000", "00001", "00002"}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("got %v, want %v", got, want)
		}
	}
}

func TestRequestsGrain(t *testing.T) {
	cases := map[string]bool{
		"--cq-level=20":               false,
		"--film-grain-table=grain.tbl": true,
		"grain synthesis enabled":      true,
	}
	for params, want := range cases {
		if got := requestsGrain(params); got != want {
			t.Errorf("requestsGrain(%q) = %v, want %v", params, got, want)
		}
	}
}
