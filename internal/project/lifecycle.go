package project

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"

	cerrors "github.com/five82/grav1go/internal/errors"
	"github.com/five82/grav1go/internal/mediautil"
	"github.com/five82/grav1go/internal/sceneplan"
)

// Start is invoked on load and after split (spec §4.2). It reconciles
// the persisted scene map against the encode directory on disk,
// rebuilds the derived open-job set, and drives toward completion.
func (p *Project) Start(ctx context.Context, ffmpegPath string) (Outcome, error) {
	if len(p.Scenes) == 0 {
		p.Status = StatusNeedsSplit
		return OutcomeNeedsSplit, nil
	}

	totalFrames := 0
	for sid, s := range p.Scenes {
		if info, err := os.Stat(p.ScenePath(sid)); err == nil {
			s.Filesize = info.Size()
		}
		totalFrames += s.Frames
	}
	if totalFrames != p.InputFrames {
		p.Status = StatusTotalFrameMismatch
		return OutcomeFrameMismatch, nil
	}

	p.openJobs = make(map[string]*Job)
	for sid, s := range p.Scenes {
		if s.Filesize != 0 || s.Bad {
			continue
		}
		p.openJobs[sid] = &Job{
			ProjectID:     p.ID,
			SceneKey:      sid,
			Encoder:       p.Encoder,
			EncoderParams: p.EncoderParams,
			FFmpegParams:  p.FFmpegParams,
			Start:         s.Start,
			Frames:        s.Frames,
			Grain:         requestsGrain(p.EncoderParams),
			Workers:       make(map[string]struct{}),
		}
	}
	p.Status = StatusReady

	if _, err := os.Stat(p.CompletedPath()); err == nil {
		p.Status = StatusComplete
		return OutcomeComplete, nil
	}

	if err := p.Complete(ctx, ffmpegPath); err != nil {
		return OutcomeReady, err
	}
	if p.Status == StatusComplete {
		return OutcomeComplete, nil
	}
	return OutcomeReady, nil
}

// Split runs the scene planner over the project's source, verifies
// the resulting segments, and replaces the project's scene/segment
// map in memory. The caller (the registry's action queue) is
// responsible for persisting the new map and re-invoking Start,
// mirroring spec §4.2's split-then-start sequencing.
func (p *Project) Split(ctx context.Context, tools sceneplan.Tools) error {
	p.Status = StatusSplitting

	result, err := sceneplan.BuildPlan(ctx, tools, p.InputPath, uint64(p.MinFrames), uint64(p.MaxFrames))
	if err != nil {
		return err
	}
	if p.InputFrames == 0 {
		p.InputFrames = int(result.TotalFrames)
	}

	starts := make([]uint64, len(result.Plan.Segments))
	for i, seg := range result.Plan.Segments {
		starts[i] = seg.Start
	}

	segmentPaths, err := mediautil.SplitSegments(ctx, tools.FFmpeg, p.InputPath, p.SplitDir(), starts, result.FrameRate, result.Plan.ReEncode)
	if err != nil {
		return err
	}

	counter := sceneplan.NewFFprobeCounter(tools.FFprobe)
	recut := sceneplan.NewFFmpegRecutter(tools.FFmpeg)
	if err := sceneplan.VerifySegments(ctx, p.InputPath, result.Plan, segmentPaths, counter, recut); err != nil {
		return err
	}

	p.Segments = make(map[string]*Segment, len(result.Plan.Segments))
	for i, seg := range result.Plan.Segments {
		p.Segments[segmentID(i)] = &Segment{Start: int(seg.Start), Length: int(seg.Length)}
	}

	p.Scenes = make(map[string]*Scene, len(result.Plan.Scenes))
	for j, scene := range result.Plan.Scenes {
		p.Scenes[sceneID(j)] = &Scene{
			Segment: segmentID(scene.SegmentIdx),
			Start:   int(scene.Start),
			Frames:  int(scene.Frames),
		}
	}
	return nil
}

// Complete fires once the open-job set is empty and every scene's
// encoded frame count sums to the project's total (spec §4.2).
// Idempotent: a second call after completed.webm already exists is a
// no-op.
func (p *Project) Complete(ctx context.Context, ffmpegPath string) error {
	if p.Status == StatusComplete {
		return nil
	}
	if _, err := os.Stat(p.CompletedPath()); err == nil {
		p.Status = StatusComplete
		return nil
	}
	if len(p.openJobs) > 0 {
		return nil
	}

	encodedFrames := 0
	for _, s := range p.Scenes {
		if s.Filesize > 0 {
			encodedFrames += s.Frames
		}
	}
	if encodedFrames != p.InputFrames {
		return nil
	}

	ordered := p.orderedSceneIDs()
	files := make([]string, 0, len(ordered))
	for _, sid := range ordered {
		files = append(files, p.ScenePath(sid))
	}

	if err := os.MkdirAll(filepath.Dir(p.CompletedPath()), 0755); err != nil {
		return cerrors.Wrap(cerrors.KindIO, "create project output dir", err)
	}

	listPath := filepath.Join(p.root, "jobs", p.ID, "concat.txt")
	if err := mediautil.WriteConcatList(listPath, files); err != nil {
		return err
	}
	if err := mediautil.Concat(ctx, ffmpegPath, listPath, p.CompletedPath()); err != nil {
		return err
	}

	p.Status = StatusComplete
	p.runOnComplete()
	return nil
}

// orderedSceneIDs returns scene ids in source frame order, derived
// from each scene's segment start plus its local offset.
func (p *Project) orderedSceneIDs() []string {
	ids := make([]string, 0, len(p.Scenes))
	for sid := range p.Scenes {
		ids = append(ids, sid)
	}
	sort.Slice(ids, func(i, j int) bool {
		return p.globalStart(ids[i]) < p.globalStart(ids[j])
	})
	return ids
}

func (p *Project) globalStart(sceneID string) int {
	s := p.Scenes[sceneID]
	seg := p.Segments[s.Segment]
	if seg == nil {
		return s.Start
	}
	return seg.Start + s.Start
}

// runOnComplete fires the project's configured post-completion
// action, if any, fire-and-forget: a hook failure does not roll back
// or retry completion.
func (p *Project) runOnComplete() {
	if strings.TrimSpace(p.OnComplete) == "" {
		return
	}
	cmd := exec.Command("sh", "-c", p.OnComplete)
	cmd.Env = append(os.Environ(),
		fmt.Sprintf("GRAV1GO_PROJECT_ID=%s", p.ID),
		fmt.Sprintf("GRAV1GO_OUTPUT=%s", p.CompletedPath()),
	)
	go func() {
		_ = cmd.Run()
	}()
}

// requestsGrain reports whether a project's encoder params ask for
// film-grain synthesis, mirroring the vmaf-mention check in
// mediautil's encoder command builder.
func requestsGrain(encoderParams string) bool {
	return strings.Contains(strings.ToLower(encoderParams), "grain")
}

func segmentID(i int) string {
	return fmt.Sprintf("%05d", i)
}

func sceneID(i int) string {
	return fmt.Sprintf("%05d", i)
}
