package registry

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/five82/grav1go/internal/config"
	"github.com/five82/grav1go/internal/logging"
	"github.com/five82/grav1go/internal/project"
	"github.com/five82/grav1go/internal/sceneplan"
)

type actionKind int

const (
	actionSplit actionKind = iota
	actionComplete
)

type action struct {
	kind      actionKind
	projectID string
}

// Registry holds every loaded project behind one mutex (spec §5) plus
// a serialized action queue draining split/complete work one at a
// time, mirroring the teacher's single collector goroutine in
// encode.EncodeAll.
type Registry struct {
	mu       sync.Mutex
	root     string
	projects map[string]*project.Project

	tools      sceneplan.Tools
	decoder    FrameDecoder
	throughput *logging.Throughput
	logger     *logging.Logger

	// encoderVersions is the coordinator's own detected aomenc/vpxenc
	// version per encoder kind (detected at startup the same way a
	// worker detects its own), sent to workers as get_job's version
	// header and compared against every finish_job upload.
	encoderVersions map[config.EncoderKind]string

	actions chan action
	done    chan struct{}
}

// New loads every persisted project under root and prepares the
// registry to serve dispatch/upload requests. It does not start the
// action-queue goroutine; call Run for that.
func New(root string, tools sceneplan.Tools, decoder FrameDecoder, encoderVersions map[config.EncoderKind]string, logger *logging.Logger) (*Registry, error) {
	projects, err := project.LoadAll(root, logger)
	if err != nil {
		return nil, err
	}

	r := &Registry{
		root:            root,
		projects:        projects,
		tools:           tools,
		decoder:         decoder,
		throughput:      logging.NewThroughput(),
		encoderVersions: encoderVersions,
		logger:          logger,
		actions:         make(chan action, 64),
		done:            make(chan struct{}),
	}
	return r, nil
}

// Run drains the action queue until ctx is cancelled. It also
// performs each loaded project's initial Start pass, enqueuing a
// split for any project that needs one. Call once, typically in a
// goroutine from main.
func (r *Registry) Run(ctx context.Context) {
	defer close(r.done)

	r.mu.Lock()
	r.bootstrapAllLocked(ctx)
	r.mu.Unlock()

	for {
		select {
		case <-ctx.Done():
			return
		case act, ok := <-r.actions:
			if !ok {
				return
			}
			r.runAction(ctx, act)
		}
	}
}

// bootstrapLocked runs Start for a freshly-loaded project and
// enqueues split if needed. Caller must hold r.mu.
func (r *Registry) bootstrapLocked(ctx context.Context, pid string) {
	p := r.projects[pid]
	outcome, err := p.Start(ctx, r.tools.FFmpeg)
	if err != nil && r.logger != nil {
		r.logger.Error(logging.CategoryAction, "start project %s: %v", pid, err)
	}
	if outcome == project.OutcomeNeedsSplit {
		r.enqueue(action{kind: actionSplit, projectID: pid})
	}
}

// bootstrapAllLocked runs bootstrapLocked for every loaded project
// concurrently: each project's Start pass stats its encode directory
// (and may run the ffmpeg concat) and only ever touches its own
// *project.Project, so a fleet of projects loaded at once (coordinator
// startup, or a Reload after a bulk hand-edit) is not started one
// project at a time.
// Caller must hold r.mu.
func (r *Registry) bootstrapAllLocked(ctx context.Context) {
	g, gctx := errgroup.WithContext(ctx)
	for pid := range r.projects {
		pid := pid
		g.Go(func() error {
			r.bootstrapLocked(gctx, pid)
			return nil
		})
	}
	_ = g.Wait()
}

func (r *Registry) enqueue(act action) {
	select {
	case r.actions <- act:
	default:
		go func() { r.actions <- act }()
	}
}

func (r *Registry) runAction(ctx context.Context, act action) {
	r.mu.Lock()
	p, ok := r.projects[act.projectID]
	r.mu.Unlock()
	if !ok {
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	switch act.kind {
	case actionSplit:
		if err := p.Split(ctx, r.tools); err != nil {
			if r.logger != nil {
				r.logger.Error(logging.CategorySplit, "split project %s: %v", act.projectID, err)
			}
			return
		}
		if _, err := p.Start(ctx, r.tools.FFmpeg); err != nil && r.logger != nil {
			r.logger.Error(logging.CategorySplit, "post-split start project %s: %v", act.projectID, err)
		}
	case actionComplete:
		if err := p.Complete(ctx, r.tools.FFmpeg); err != nil && r.logger != nil {
			r.logger.Error(logging.CategoryAction, "complete project %s: %v", act.projectID, err)
		}
	}

	if err := r.persistLocked(); err != nil && r.logger != nil {
		r.logger.Error(logging.CategoryAction, "persist projects: %v", err)
	}
}

func (r *Registry) persistLocked() error {
	return project.SaveAll(r.root, r.projects)
}

// Reload re-reads every persisted project from disk, replacing the
// in-memory set and re-running Start on each. Used when an fsnotify
// watch observes an operator hand-editing projects.json or a scene
// map directly.
func (r *Registry) Reload(ctx context.Context) error {
	projects, err := project.LoadAll(r.root, r.logger)
	if err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.projects = projects
	r.bootstrapAllLocked(ctx)
	return nil
}

// recordThroughput appends an accepted scene's frame count to the
// rolling hourly sample (spec §4.3).
func (r *Registry) recordThroughput(frames int) {
	r.throughput.Record(frames, time.Now())
}
