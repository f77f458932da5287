package sceneplan

import (
	"context"
	"fmt"

	cerrors "github.com/five82/grav1go/internal/errors"
	"github.com/five82/grav1go/internal/mediautil"
)

// FrameCounter abstracts the fast (container) and slow (decode) frame
// count probes so segment verification can be tested without a real
// ffprobe binary.
type FrameCounter interface {
	FastFrameCount(path string) (uint64, error)
	SlowFrameCount(path string) (uint64, error)
}

type ffprobeCounter struct{ ffprobePath string }

func (c ffprobeCounter) FastFrameCount(path string) (uint64, error) {
	return mediautil.FastFrameCount(c.ffprobePath, path)
}

func (c ffprobeCounter) SlowFrameCount(path string) (uint64, error) {
	return mediautil.SlowFrameCount(c.ffprobePath, path)
}

// NewFFprobeCounter builds a FrameCounter backed by a real ffprobe binary.
func NewFFprobeCounter(ffprobePath string) FrameCounter {
	return ffprobeCounter{ffprobePath: ffprobePath}
}

// Recutter re-cuts a single segment losslessly from the source over
// [start, start+length).
type Recutter interface {
	Recut(ctx context.Context, sourcePath, outputPath string, start, length uint64) error
}

type ffmpegRecutter struct{ ffmpegPath string }

func (r ffmpegRecutter) Recut(ctx context.Context, sourcePath, outputPath string, start, length uint64) error {
	return mediautil.RecutSegment(ctx, r.ffmpegPath, sourcePath, outputPath, start, length, 24.0)
}

// NewFFmpegRecutter builds a Recutter backed by a real ffmpeg binary.
func NewFFmpegRecutter(ffmpegPath string) Recutter {
	return ffmpegRecutter{ffmpegPath: ffmpegPath}
}

// VerifySegments checks that each produced segment file's cumulative
// start and frame counts agree with the plan, recutting any segment
// that disagrees (spec §4.1 verification). segmentPaths must be
// indexed the same as plan.Segments.
func VerifySegments(ctx context.Context, sourcePath string, plan Plan, segmentPaths []string, counter FrameCounter, recut Recutter) error {
	cumulative := uint64(0)
	for i, seg := range plan.Segments {
		if seg.Start != cumulative {
			return cerrors.New(cerrors.KindMuxer, fmt.Sprintf("segment %d start drift: recorded %d, cumulative %d", i, seg.Start, cumulative))
		}
		cumulative += seg.Length

		path := segmentPaths[i]
		fast, err := counter.FastFrameCount(path)
		if err != nil {
			return cerrors.Wrap(cerrors.KindProbeParse, fmt.Sprintf("segment %d fast frame count", i), err)
		}

		if fast != seg.Length {
			if err := recut.Recut(ctx, sourcePath, path, seg.Start, seg.Length); err != nil {
				return cerrors.Wrap(cerrors.KindMuxer, fmt.Sprintf("segment %d re-cut after fast count mismatch", i), err)
			}
			continue
		}

		slow, err := counter.SlowFrameCount(path)
		if err != nil {
			return cerrors.Wrap(cerrors.KindProbeParse, fmt.Sprintf("segment %d slow frame count", i), err)
		}
		if slow != fast {
			if err := recut.Recut(ctx, sourcePath, path, seg.Start, seg.Length); err != nil {
				return cerrors.Wrap(cerrors.KindMuxer, fmt.Sprintf("segment %d re-cut after decoder disagreement", i), err)
			}
		}
	}
	return nil
}
