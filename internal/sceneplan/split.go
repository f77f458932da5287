package sceneplan

import "sort"

// snapTolerance is how many frames at or before a planner-computed
// ideal cut point are searched for a source-keyframe to cut at
// instead; keyframes after the ideal cut are not considered.
const snapTolerance = 5

// SplitMax slices any span exceeding maxFrames into pieces no longer
// than maxFrames. boundaries must be sorted, start at 0, and exclude
// totalFrames. sourceKeyframes must be sorted. Returns the expanded
// boundary list and the set of newly introduced cut frames that did
// NOT land on a source-keyframe (these require a lossless re-encode
// at that point rather than a copy split).
func SplitMax(boundaries []uint64, totalFrames, maxFrames uint64, sourceKeyframes []uint64) (out []uint64, exactCuts map[uint64]bool) {
	exactCuts = map[uint64]bool{}
	if maxFrames == 0 {
		return boundaries, exactCuts
	}

	ends := make([]uint64, len(boundaries)-1)
	copy(ends, boundaries[1:])
	ends = append(ends, totalFrames)

	for i, start := range boundaries {
		end := ends[i]
		out = append(out, start)
		out = append(out, splitSpan(start, end, maxFrames, sourceKeyframes, exactCuts)...)
	}
	return out, exactCuts
}

// splitSpan returns the interior cut points (excluding start, including
// none past end) needed to keep every piece of [start,end) at or under
// maxFrames.
func splitSpan(start, end, maxFrames uint64, sourceKeyframes []uint64, exactCuts map[uint64]bool) []uint64 {
	var cuts []uint64
	cur := start
	for end-cur > maxFrames {
		ideal := cur + maxFrames
		cut, snapped := nearestKeyframeAtOrBefore(ideal, cur, sourceKeyframes)
		if !snapped {
			cut = ideal
			exactCuts[cut] = true
		}
		cuts = append(cuts, cut)
		cur = cut
	}
	return cuts
}

// nearestKeyframeAtOrBefore finds the source-keyframe closest to ideal
// within snapTolerance, restricted to (lowerBound, ideal] so the
// resulting piece never exceeds maxFrames.
func nearestKeyframeAtOrBefore(ideal, lowerBound uint64, sourceKeyframes []uint64) (uint64, bool) {
	lo := uint64(0)
	if ideal > snapTolerance {
		lo = ideal - snapTolerance
	}
	if lo <= lowerBound {
		lo = lowerBound + 1
	}

	i := sort.Search(len(sourceKeyframes), func(i int) bool { return sourceKeyframes[i] >= lo })
	best := uint64(0)
	found := false
	for ; i < len(sourceKeyframes) && sourceKeyframes[i] <= ideal; i++ {
		if !found || ideal-sourceKeyframes[i] < ideal-best {
			best = sourceKeyframes[i]
			found = true
		}
	}
	return best, found
}
