package registry

import (
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/five82/grav1go/internal/config"
	cerrors "github.com/five82/grav1go/internal/errors"
	"github.com/five82/grav1go/internal/project"
	"github.com/five82/grav1go/internal/util"
)

// AddProjectRequest mirrors add_project's JSON body (spec §4.6). An
// explicit ID becomes a prefix; multiple input files each get their
// own project, suffixed "01", "02", ….
type AddProjectRequest struct {
	ID            string
	InputPaths    []string
	OutputPath    string
	Encoder       config.EncoderKind
	EncoderParams string
	FFmpegParams  string
	MinFrames     int
	MaxFrames     int
	Priority      int
	OnComplete    string
}

// AddProject validates the request and registers one project per
// input file, enqueuing a split for each. Returns the created
// project ids.
func (r *Registry) AddProject(req AddProjectRequest) ([]string, error) {
	if len(req.InputPaths) == 0 {
		return nil, cerrors.New(cerrors.KindBadParams, "no input files provided")
	}
	if req.Encoder != config.EncoderAom && req.Encoder != config.EncoderVpx {
		return nil, cerrors.New(cerrors.KindBadParams, fmt.Sprintf("unknown encoder %q", req.Encoder))
	}
	for _, in := range req.InputPaths {
		if !util.FileExists(in) {
			return nil, cerrors.New(cerrors.KindNotFound, fmt.Sprintf("input file not found: %s", in))
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	multi := len(req.InputPaths) > 1
	ids := make([]string, 0, len(req.InputPaths))
	for i, in := range req.InputPaths {
		id := req.ID
		if id == "" {
			id = uuid.NewString()
		}
		if multi {
			id = fmt.Sprintf("%s%02d", id, i+1)
		}

		p := project.New(id, r.root)
		p.InputPath = in
		p.OutputPath = req.OutputPath
		p.Encoder = req.Encoder
		p.EncoderParams = req.EncoderParams
		p.FFmpegParams = req.FFmpegParams
		p.MinFrames = req.MinFrames
		p.MaxFrames = req.MaxFrames
		p.Priority = req.Priority
		p.OnComplete = req.OnComplete

		r.projects[id] = p
		ids = append(ids, id)
	}

	if err := r.persistLocked(); err != nil {
		return nil, err
	}
	for _, id := range ids {
		r.enqueue(action{kind: actionSplit, projectID: id})
	}
	return ids, nil
}

// ProjectPatch describes a modify_project request; nil fields are left
// unchanged.
type ProjectPatch struct {
	Priority      *int
	OnComplete    *string
	EncoderParams *string
	FFmpegParams  *string
}

// ModifyProject applies a partial update to an existing project.
func (r *Registry) ModifyProject(pid string, patch ProjectPatch) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.projects[pid]
	if !ok {
		return cerrors.New(cerrors.KindNotFound, ReasonProjectNotFound)
	}
	if patch.Priority != nil {
		p.Priority = *patch.Priority
	}
	if patch.OnComplete != nil {
		p.OnComplete = *patch.OnComplete
	}
	if patch.EncoderParams != nil {
		p.EncoderParams = *patch.EncoderParams
	}
	if patch.FFmpegParams != nil {
		p.FFmpegParams = *patch.FFmpegParams
	}
	return r.persistLocked()
}

// DeleteProject removes a project from the registry. Physical files
// under jobs/<pid> are left on disk for operator inspection/cleanup.
func (r *Registry) DeleteProject(pid string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.projects[pid]; !ok {
		return cerrors.New(cerrors.KindNotFound, ReasonProjectNotFound)
	}
	delete(r.projects, pid)
	return r.persistLocked()
}

// ProjectSummary is the read-only shape returned by get_projects.
type ProjectSummary struct {
	ID            string
	Priority      int
	Status        project.Status
	InputFrames   int
	EncodedFrames int
	OpenJobs      int
}

// Projects returns a summary of every registered project, ordered by id.
func (r *Registry) Projects() []ProjectSummary {
	r.mu.Lock()
	defer r.mu.Unlock()

	summaries := make([]ProjectSummary, 0, len(r.projects))
	for id, p := range r.projects {
		summaries = append(summaries, summarize(id, p))
	}
	sort.Slice(summaries, func(i, j int) bool { return summaries[i].ID < summaries[j].ID })
	return summaries
}

// Project returns one project, including its full scene/segment map.
func (r *Registry) Project(pid string) (*project.Project, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.projects[pid]
	return p, ok
}

func summarize(id string, p *project.Project) ProjectSummary {
	encoded := 0
	for _, s := range p.Scenes {
		if s.Filesize > 0 {
			encoded += s.Frames
		}
	}
	return ProjectSummary{
		ID:            id,
		Priority:      p.Priority,
		Status:        p.Status,
		InputFrames:   p.InputFrames,
		EncodedFrames: encoded,
		OpenJobs:      len(p.OpenJobs()),
	}
}

// HomeSummary is the dashboard-level snapshot get_home returns.
type HomeSummary struct {
	ProjectCount   int
	OpenJobCount   int
	FramesPerHour  int
	LastAcceptedAt time.Time
}

// Home returns a coordinator-wide summary for the dashboard endpoint.
func (r *Registry) Home() HomeSummary {
	r.mu.Lock()
	openJobs := 0
	for _, p := range r.projects {
		openJobs += len(p.OpenJobs())
	}
	projectCount := len(r.projects)
	r.mu.Unlock()

	frames, lastAt, _ := r.throughput.FramesPerHour(time.Now())
	return HomeSummary{
		ProjectCount:   projectCount,
		OpenJobCount:   openJobs,
		FramesPerHour:  frames,
		LastAcceptedAt: lastAt,
	}
}

// InfoSummary is static coordinator configuration exposed to clients.
type InfoSummary struct {
	Root         string
	ProjectCount int
}

// Info returns static coordinator info for the get_info endpoint.
func (r *Registry) Info() InfoSummary {
	r.mu.Lock()
	defer r.mu.Unlock()
	return InfoSummary{Root: r.root, ProjectCount: len(r.projects)}
}
