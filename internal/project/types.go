// Package project models a single re-encode project's lifecycle: the
// scene/segment map split out of a source, the open-job set derived
// from it, and the split/start/complete state machine, generalized
// from five82/reel's internal/chunk done-file resume idiom to a
// richer JSON-backed scene map that can express per-scene filesize
// and bad-scene flags.
package project

import (
	"github.com/five82/grav1go/internal/config"
)

// Status is a project's lifecycle state.
type Status string

const (
	StatusNeedsSplit         Status = "needs_split"
	StatusSplitting          Status = "splitting"
	StatusReady              Status = "ready"
	StatusComplete           Status = "complete"
	StatusTotalFrameMismatch Status = "total frame mismatch"
)

// Outcome is what Start discovered about a project, telling the
// caller (the registry) what action, if any, to enqueue next.
type Outcome string

const (
	OutcomeNeedsSplit    Outcome = "needs_split"
	OutcomeReady         Outcome = "ready"
	OutcomeComplete      Outcome = "complete"
	OutcomeFrameMismatch Outcome = "total_frame_mismatch"
)

// Scene is a logical encode unit: a window inside a physical segment.
type Scene struct {
	Segment  string // segment id this scene is cut from
	Start    int    // offset into the segment
	Frames   int
	Filesize int64 // 0 until a verified upload lands
	Bad      bool  // read from the persisted scene map; the split path never sets it
}

// Segment is a physical video file carved from the source.
type Segment struct {
	Start  int
	Length int
}

// Job is the coordinator-side open-work record for a scene not yet
// verified. Workers is never pruned on assignment (spec §4.3/§9: a
// scene may be held by more than one worker at once, a deliberate
// failure-tolerance mechanism, not a bug).
type Job struct {
	ProjectID     string
	SceneKey      string
	Encoder       config.EncoderKind
	EncoderParams string
	FFmpegParams  string
	Start         int
	Frames        int
	Grain         bool
	Workers       map[string]struct{}
}

// Project is one re-encode project: its source parameters, its
// persisted scene/segment map, and the derived open-job set.
type Project struct {
	ID            string
	InputPath     string
	OutputPath    string
	Encoder       config.EncoderKind
	EncoderParams string
	FFmpegParams  string
	MinFrames     int
	MaxFrames     int
	Priority      int
	OnComplete    string
	InputFrames   int
	Scenes        map[string]*Scene
	Segments      map[string]*Segment
	Status        Status

	openJobs map[string]*Job // derived, not persisted
	root     string          // cwd jobs root, set at construction, not persisted
}

// New constructs a project with its derived state uninitialized. root
// is the coordinator's working directory (spec §6's <cwd>).
func New(id, root string) *Project {
	return &Project{
		ID:       id,
		Scenes:   make(map[string]*Scene),
		Segments: make(map[string]*Segment),
		Status:   StatusNeedsSplit,
		openJobs: make(map[string]*Job),
		root:     root,
	}
}

// SetRoot assigns the coordinator working directory this project's
// files live under, replacing the root given to New.
func (p *Project) SetRoot(root string) {
	p.root = root
}

// OpenJobs returns the derived open-job set, keyed by scene id.
func (p *Project) OpenJobs() map[string]*Job {
	return p.openJobs
}
