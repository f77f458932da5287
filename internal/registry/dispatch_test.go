package registry

import (
	"context"
	"testing"

	"github.com/five82/grav1go/internal/logging"
	"github.com/five82/grav1go/internal/project"
)

func newTestRegistry(t *testing.T) *Registry {
	t.Helper()
	return &Registry{
		root:       t.TempDir(),
		projects:   make(map[string]*project.Project),
		throughput: logging.NewThroughput(),
		actions:    make(chan action, 8),
		done:       make(chan struct{}),
	}
}

func addReadyProject(t *testing.T, r *Registry, id string, priority int, scenes map[string]int) *project.Project {
	t.Helper()
	p := project.New(id, r.root)
	p.Priority = priority
	total := 0
	for sid, frames := range scenes {
		p.Scenes[sid] = &project.Scene{Segment: "00000", Start: 0, Frames: frames}
		total += frames
	}
	p.InputFrames = total
	p.Segments["00000"] = &project.Segment{Start: 0, Length: total}
	if _, err := p.Start(context.Background(), "ffmpeg"); err != nil {
		t.Fatalf("Start: %v", err)
	}
	r.projects[id] = p
	return p
}

func TestGetJobNeverReturnsHeldScene(t *testing.T) {
	r := newTestRegistry(t)
	addReadyProject(t, r, "p1", 0, map[string]int{"00000": 30})

	held := []SceneRef{{ProjectID: "p1", Scene: "00000"}}
	_, ok := r.GetJob(held, "worker-a")
	if ok {
		t.Fatal("expected no job when the only open scene is held")
	}
}

func TestGetJobPrefersLowestPriority(t *testing.T) {
	r := newTestRegistry(t)
	addReadyProject(t, r, "low", 5, map[string]int{"00000": 30})
	addReadyProject(t, r, "high", 1, map[string]int{"00000": 30})

	assignment, ok := r.GetJob(nil, "worker-a")
	if !ok {
		t.Fatal("expected a job")
	}
	if assignment.ProjectID != "high" {
		t.Errorf("assigned project = %s, want high (lowest priority value)", assignment.ProjectID)
	}
}

func TestGetJobTiesBrokenByFewestWorkersThenLargestFrames(t *testing.T) {
	r := newTestRegistry(t)
	p := addReadyProject(t, r, "p1", 0, map[string]int{
		"00000": 20, // will get a worker assigned, should be deprioritized
		"00001": 50, // no workers, larger frame count - should win among workerless jobs
		"00002": 10,
	})
	p.OpenJobs()["00000"].Workers["someone-else"] = struct{}{}

	assignment, ok := r.GetJob(nil, "worker-a")
	if !ok {
		t.Fatal("expected a job")
	}
	if assignment.SceneID != "00001" {
		t.Errorf("assigned scene = %s, want 00001 (fewest workers, then largest frames)", assignment.SceneID)
	}
}

func TestGetJobAssignmentIsObservableAcrossCalls(t *testing.T) {
	r := newTestRegistry(t)
	addReadyProject(t, r, "p1", 0, map[string]int{"00000": 30})

	first, ok := r.GetJob(nil, "worker-a")
	if !ok {
		t.Fatal("expected a job on first call")
	}
	second, ok := r.GetJob(nil, "worker-b")
	if !ok {
		t.Fatal("expected a job on second call with the same empty held set")
	}
	if first.SceneID != second.SceneID || first.ProjectID != second.ProjectID {
		t.Fatalf("expected both calls to return the same job, got %+v and %+v", first, second)
	}

	p := r.projects["p1"]
	job := p.OpenJobs()["00000"]
	if _, ok := job.Workers["worker-a"]; !ok {
		t.Error("expected worker-a recorded in job.Workers")
	}
	if _, ok := job.Workers["worker-b"]; !ok {
		t.Error("expected worker-b recorded in job.Workers")
	}
}

func TestCancelRemovesOnlyTheCaller(t *testing.T) {
	r := newTestRegistry(t)
	p := addReadyProject(t, r, "p1", 0, map[string]int{"00000": 30})
	job := p.OpenJobs()["00000"]
	job.Workers["worker-a"] = struct{}{}
	job.Workers["worker-b"] = struct{}{}

	if err := r.Cancel("p1", "00000", "worker-a"); err != nil {
		t.Fatalf("Cancel: %v", err)
	}
	if _, ok := job.Workers["worker-a"]; ok {
		t.Error("expected worker-a removed")
	}
	if _, ok := job.Workers["worker-b"]; !ok {
		t.Error("expected worker-b to remain")
	}
}

func TestCancelUnknownProjectOrJob(t *testing.T) {
	r := newTestRegistry(t)
	addReadyProject(t, r, "p1", 0, map[string]int{"00000": 30})

	if err := r.Cancel("missing", "00000", "worker-a"); err == nil {
		t.Error("expected error for unknown project")
	}
	if err := r.Cancel("p1", "missing", "worker-a"); err == nil {
		t.Error("expected error for unknown job")
	}
}
