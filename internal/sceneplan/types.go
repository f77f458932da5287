// Package sceneplan partitions a source video into encode-sized
// aom-scenes and the physical segments that back them (spec module
// 2: scene planner), grounded on the scene/chunk shape used by
// five82/reel's internal/chunk package, generalized from one-scene
// one-segment chunking to the segment/scene split this system needs.
package sceneplan

// Scene is one logical encode unit: a span of frames within a
// segment, identified by its position in the final scene order.
type Scene struct {
	SegmentIdx int
	Start      uint64 // offset into the segment
	Frames     uint64
}

// Segment is one physical split file: a contiguous frame range of the
// source.
type Segment struct {
	Start  uint64
	Length uint64
}

// End returns the segment's exclusive end frame in source coordinates.
func (s Segment) End() uint64 {
	return s.Start + s.Length
}

// Plan is the scene planner's output: the aom-scene map and the
// physical segments it references.
type Plan struct {
	Scenes    []Scene
	Segments  []Segment
	ReEncode  bool // true when segments require lossless re-encode rather than copy split
}
