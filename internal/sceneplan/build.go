package sceneplan

import (
	"context"
	"fmt"

	cerrors "github.com/five82/grav1go/internal/errors"
	"github.com/five82/grav1go/internal/mediautil"
)

// Tools bundles the external binary paths BuildPlan needs to probe a
// source and detect keyframes.
type Tools struct {
	FFmpeg  string
	FFprobe string
}

// BuildResult is the outcome of probing a source and partitioning it.
type BuildResult struct {
	Plan        Plan
	TotalFrames uint64
	FrameRate   float64
}

// BuildPlan probes sourcePath for its source-keyframes and total frame
// count, runs the encoder's first-pass scene-cut detector for
// logical-keyframes, and partitions the result per spec §4.1.
func BuildPlan(ctx context.Context, tools Tools, sourcePath string, minFrames, maxFrames uint64) (BuildResult, error) {
	info, err := mediautil.ProbeVideoStream(tools.FFprobe, sourcePath)
	if err != nil {
		return BuildResult{}, cerrors.Wrap(cerrors.KindProbeParse, "probe source stream", err)
	}

	totalFrames, err := mediautil.FastFrameCount(tools.FFprobe, sourcePath)
	if err != nil {
		return BuildResult{}, cerrors.Wrap(cerrors.KindProbeParse, "probe source frame count", err)
	}

	sourceKeyframes, err := mediautil.SourceKeyframes(tools.FFprobe, sourcePath)
	if err != nil {
		return BuildResult{}, cerrors.Wrap(cerrors.KindProbeParse, "probe source keyframes", err)
	}

	logicalKeyframes, err := mediautil.DetectLogicalKeyframes(ctx, tools.FFmpeg, sourcePath)
	if err != nil {
		return BuildResult{}, cerrors.Wrap(cerrors.KindCommand, "detect logical keyframes", err)
	}

	if totalFrames == 0 {
		return BuildResult{}, cerrors.New(cerrors.KindProbeParse, fmt.Sprintf("source %s reports zero frames", sourcePath))
	}

	plan := Compute(totalFrames, logicalKeyframes, sourceKeyframes, minFrames, maxFrames)
	return BuildResult{Plan: plan, TotalFrames: totalFrames, FrameRate: info.FrameRate}, nil
}
