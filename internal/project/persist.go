package project

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/five82/grav1go/internal/config"
	cerrors "github.com/five82/grav1go/internal/errors"
	"github.com/five82/grav1go/internal/logging"
)

// projectRecord is projects.json's per-project shape (spec §6).
type projectRecord struct {
	Priority      int                `json:"priority"`
	PathIn        string             `json:"path_in"`
	PathOut       string             `json:"path_out,omitempty"`
	Encoder       config.EncoderKind `json:"encoder"`
	EncoderParams string             `json:"encoder_params"`
	FFmpegParams  string             `json:"ffmpeg_params"`
	MinFrames     int                `json:"min_frames"`
	MaxFrames     int                `json:"max_frames"`
	InputFrames   int                `json:"input_frames"`
	OnComplete    string             `json:"on_complete"`
	Status        Status             `json:"status"`
}

// sceneRecord is scenes/<pid>.json's per-scene shape (spec §6).
type sceneRecord struct {
	Segment  string `json:"segment"`
	Start    int    `json:"start"`
	Frames   int    `json:"frames"`
	Filesize int64  `json:"filesize"`
	Bad      bool   `json:"bad,omitempty"`
}

type segmentRecord struct {
	Start  int `json:"start"`
	Length int `json:"length"`
}

type scenesFile struct {
	Scenes   map[string]sceneRecord   `json:"scenes"`
	Segments map[string]segmentRecord `json:"segments"`
}

// LoadAll reads projects.json and each project's scenes/<pid>.json
// file under root. A project with no scenes file loads with an empty
// scene map (not split yet); one whose scenes file cannot be read or
// parsed is logged and skipped, and the other projects still load.
func LoadAll(root string, logger *logging.Logger) (map[string]*Project, error) {
	projectsPath := ProjectsFile(root)
	raw, err := os.ReadFile(projectsPath)
	if os.IsNotExist(err) {
		return make(map[string]*Project), nil
	}
	if err != nil {
		return nil, cerrors.Wrap(cerrors.KindIO, "read projects.json", err)
	}

	var records map[string]projectRecord
	if err := json.Unmarshal(raw, &records); err != nil {
		return nil, cerrors.Wrap(cerrors.KindJSONParse, "parse projects.json", err)
	}

	projects := make(map[string]*Project, len(records))
	for id, rec := range records {
		p := New(id, root)
		p.Priority = rec.Priority
		p.InputPath = rec.PathIn
		p.OutputPath = rec.PathOut
		p.Encoder = rec.Encoder
		p.EncoderParams = rec.EncoderParams
		p.FFmpegParams = rec.FFmpegParams
		p.MinFrames = rec.MinFrames
		p.MaxFrames = rec.MaxFrames
		p.InputFrames = rec.InputFrames
		p.OnComplete = rec.OnComplete
		p.Status = rec.Status
		if p.Status == "" {
			p.Status = StatusNeedsSplit
		}

		if err := loadScenes(root, p); err != nil {
			if logger != nil {
				logger.Error(logging.CategoryAction, "load project %s: %v", id, err)
			}
			continue
		}

		projects[id] = p
	}
	return projects, nil
}

func loadScenes(root string, p *Project) error {
	raw, err := os.ReadFile(ScenesFile(root, p.ID))
	if os.IsNotExist(err) {
		return nil // not split yet
	}
	if err != nil {
		return cerrors.Wrap(cerrors.KindIO, "read scenes file", err)
	}

	var sf scenesFile
	if err := json.Unmarshal(raw, &sf); err != nil {
		return cerrors.Wrap(cerrors.KindJSONParse, "parse scenes file", err)
	}

	for sid, sr := range sf.Scenes {
		p.Scenes[sid] = &Scene{
			Segment:  sr.Segment,
			Start:    sr.Start,
			Frames:   sr.Frames,
			Filesize: sr.Filesize,
			Bad:      sr.Bad,
		}
	}
	for gid, gr := range sf.Segments {
		p.Segments[gid] = &Segment{Start: gr.Start, Length: gr.Length}
	}
	return nil
}

// SaveAll dumps every project's metadata to projects.json and each
// project's scene map to its own scenes file. Best-effort, not
// atomic-rename (spec §5): a failure is returned to the caller, who
// logs it and continues running rather than crashing.
func SaveAll(root string, projects map[string]*Project) error {
	records := make(map[string]projectRecord, len(projects))
	for id, p := range projects {
		records[id] = projectRecord{
			Priority:      p.Priority,
			PathIn:        p.InputPath,
			PathOut:       p.OutputPath,
			Encoder:       p.Encoder,
			EncoderParams: p.EncoderParams,
			FFmpegParams:  p.FFmpegParams,
			MinFrames:     p.MinFrames,
			MaxFrames:     p.MaxFrames,
			InputFrames:   p.InputFrames,
			OnComplete:    p.OnComplete,
			Status:        p.Status,
		}
		if err := saveScenes(root, p); err != nil {
			return fmt.Errorf("save scenes for project %s: %w", id, err)
		}
	}

	raw, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return cerrors.Wrap(cerrors.KindJSONParse, "marshal projects.json", err)
	}
	if err := os.WriteFile(ProjectsFile(root), raw, 0644); err != nil {
		return cerrors.Wrap(cerrors.KindIO, "write projects.json", err)
	}
	return nil
}

func saveScenes(root string, p *Project) error {
	scenesDir := filepath.Join(root, "scenes")
	if err := os.MkdirAll(scenesDir, 0755); err != nil {
		return cerrors.Wrap(cerrors.KindIO, "create scenes dir", err)
	}

	sf := scenesFile{
		Scenes:   make(map[string]sceneRecord, len(p.Scenes)),
		Segments: make(map[string]segmentRecord, len(p.Segments)),
	}
	for sid, s := range p.Scenes {
		sf.Scenes[sid] = sceneRecord{Segment: s.Segment, Start: s.Start, Frames: s.Frames, Filesize: s.Filesize, Bad: s.Bad}
	}
	for gid, g := range p.Segments {
		sf.Segments[gid] = segmentRecord{Start: g.Start, Length: g.Length}
	}

	raw, err := json.MarshalIndent(sf, "", "  ")
	if err != nil {
		return cerrors.Wrap(cerrors.KindJSONParse, "marshal scenes file", err)
	}
	if err := os.WriteFile(ScenesFile(root, p.ID), raw, 0644); err != nil {
		return cerrors.Wrap(cerrors.KindIO, "write scenes file", err)
	}
	return nil
}
