package registry

import (
	"sort"

	cerrors "github.com/five82/grav1go/internal/errors"
)

type candidate struct {
	projectID string
	sceneID   string
	priority  int
	workers   int
	frames    int
}

// GetJob implements spec §4.3's dispatch: collect every open job
// across every project, drop anything in the caller's held set, and
// return the job sorted first by ascending project priority, then by
// fewest assigned workers, then by largest frame count (long scenes
// first, to reduce tail latency). Assignment does not remove the job
// from the open set — a scene may be held by several workers at once.
func (r *Registry) GetJob(held []SceneRef, workerID string) (*JobAssignment, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	heldSet := make(map[SceneRef]struct{}, len(held))
	for _, h := range held {
		heldSet[h] = struct{}{}
	}

	var candidates []candidate
	for pid, p := range r.projects {
		for sid, job := range p.OpenJobs() {
			ref := SceneRef{ProjectID: pid, Scene: sid}
			if _, skip := heldSet[ref]; skip {
				continue
			}
			candidates = append(candidates, candidate{
				projectID: pid,
				sceneID:   sid,
				priority:  p.Priority,
				workers:   len(job.Workers),
				frames:    job.Frames,
			})
		}
	}
	if len(candidates) == 0 {
		return nil, false
	}

	sort.Slice(candidates, func(i, j int) bool {
		a, b := candidates[i], candidates[j]
		if a.priority != b.priority {
			return a.priority < b.priority
		}
		if a.workers != b.workers {
			return a.workers < b.workers
		}
		return a.frames > b.frames
	})

	chosen := candidates[0]
	p := r.projects[chosen.projectID]
	job := p.OpenJobs()[chosen.sceneID]
	job.Workers[workerID] = struct{}{}

	scene, ok := p.Scenes[chosen.sceneID]
	if !ok {
		return nil, false
	}

	return &JobAssignment{
		ProjectID:   chosen.projectID,
		SceneID:     chosen.sceneID,
		SegmentPath: p.SegmentPath(scene.Segment),
		Job:         *job,
		Version:     r.encoderVersions[job.Encoder],
	}, true
}

// Cancel removes workerID from the job's assigned-workers set. No
// other state changes — the scene remains open for any other holder.
func (r *Registry) Cancel(pid, sceneID, workerID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.projects[pid]
	if !ok {
		return cerrors.New(cerrors.KindNotFound, ReasonProjectNotFound)
	}
	job, ok := p.OpenJobs()[sceneID]
	if !ok {
		return cerrors.New(cerrors.KindNotFound, ReasonJobNotFound)
	}
	delete(job.Workers, workerID)
	return nil
}
