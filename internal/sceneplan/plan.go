package sceneplan

import "sort"

// copyPlanThreshold is the fraction of logical-keyframes that must
// coincide with source-keyframes for the planner to choose a copy
// plan over a re-encode plan (spec §4.1: "at least half").
const copyPlanThreshold = 0.5

// Compute partitions a source of totalFrames frames into aom-scenes
// and segments. logicalKeyframes are the encoder's first-pass scene
// cuts; sourceKeyframes are the demuxer's keyframe list. Both must be
// sorted ascending and need not start at 0 — Compute normalizes that.
func Compute(totalFrames uint64, logicalKeyframes, sourceKeyframes []uint64, minFrames, maxFrames uint64) Plan {
	logical := normalize(logicalKeyframes, totalFrames)
	source := normalize(sourceKeyframes, totalFrames)

	coincident := 0
	sourceSet := toSet(source)
	for _, k := range logical {
		if sourceSet[k] {
			coincident++
		}
	}
	copyPlan := len(logical) == 0 || float64(coincident)/float64(len(logical)) >= copyPlanThreshold

	boundaries := CoalesceMin(logical, minFrames)
	boundaries, _ = SplitMax(boundaries, totalFrames, maxFrames, source)

	if copyPlan {
		return buildCopyPlan(boundaries, source, totalFrames)
	}
	return buildReEncodePlan(boundaries, totalFrames)
}

// buildCopyPlan cuts physical segments only at the final boundaries
// that are themselves source-keyframes (0 always qualifies): those
// are the only points the muxer can split without re-encoding. A
// boundary that isn't a source-keyframe (introduced by max-length
// splitting with no nearby keyframe) stays purely logical — its scene
// starts partway into the segment via the select filter rather than
// forcing a new physical cut.
func buildCopyPlan(boundaries, sourceKeyframes []uint64, totalFrames uint64) Plan {
	sourceSet := toSet(sourceKeyframes)

	var segStarts []uint64
	for _, b := range boundaries {
		if b == 0 || sourceSet[b] {
			segStarts = append(segStarts, b)
		}
	}
	if len(segStarts) == 0 || segStarts[0] != 0 {
		segStarts = append([]uint64{0}, segStarts...)
	}

	segments := make([]Segment, len(segStarts))
	for i, s := range segStarts {
		end := totalFrames
		if i+1 < len(segStarts) {
			end = segStarts[i+1]
		}
		segments[i] = Segment{Start: s, Length: end - s}
	}

	scenes := make([]Scene, 0, len(boundaries))
	ends := nextBoundaries(boundaries, totalFrames)
	for i, b := range boundaries {
		segIdx := precedingSegment(segments, b)
		scenes = append(scenes, Scene{
			SegmentIdx: segIdx,
			Start:      b - segments[segIdx].Start,
			Frames:     ends[i] - b,
		})
	}

	return Plan{Scenes: scenes, Segments: segments, ReEncode: false}
}

// buildReEncodePlan emits one segment per scene, each reencoded with
// a forced keyframe at its own start, so every scene's local start is 0.
func buildReEncodePlan(boundaries []uint64, totalFrames uint64) Plan {
	ends := nextBoundaries(boundaries, totalFrames)
	scenes := make([]Scene, len(boundaries))
	segments := make([]Segment, len(boundaries))
	for i, b := range boundaries {
		length := ends[i] - b
		scenes[i] = Scene{SegmentIdx: i, Start: 0, Frames: length}
		segments[i] = Segment{Start: b, Length: length}
	}
	return Plan{Scenes: scenes, Segments: segments, ReEncode: true}
}

func precedingSegment(segments []Segment, frame uint64) int {
	idx := 0
	for i, s := range segments {
		if s.Start <= frame {
			idx = i
		} else {
			break
		}
	}
	return idx
}

func nextBoundaries(boundaries []uint64, totalFrames uint64) []uint64 {
	ends := make([]uint64, len(boundaries))
	for i := range boundaries {
		if i+1 < len(boundaries) {
			ends[i] = boundaries[i+1]
		} else {
			ends[i] = totalFrames
		}
	}
	return ends
}

func normalize(frames []uint64, totalFrames uint64) []uint64 {
	set := toSet(frames)
	set[0] = true
	out := make([]uint64, 0, len(set))
	for k := range set {
		if k < totalFrames {
			out = append(out, k)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func toSet(frames []uint64) map[uint64]bool {
	set := make(map[uint64]bool, len(frames))
	for _, f := range frames {
		set[f] = true
	}
	return set
}
