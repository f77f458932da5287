package mediautil

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"

	cerrors "github.com/five82/grav1go/internal/errors"
)

// WriteConcatList writes an ffmpeg concat-demuxer list file naming each
// encoded scene file in order, for Concat to consume.
func WriteConcatList(listPath string, sceneFiles []string) error {
	f, err := os.Create(listPath)
	if err != nil {
		return cerrors.Wrap(cerrors.KindIO, "create concat list", err)
	}
	defer func() { _ = f.Close() }()

	for _, p := range sceneFiles {
		abs, err := filepath.Abs(p)
		if err != nil {
			abs = p
		}
		if _, err := fmt.Fprintf(f, "file '%s'\n", abs); err != nil {
			return cerrors.Wrap(cerrors.KindIO, "write concat list", err)
		}
	}
	return nil
}

// Concat invokes the muxer's concat demuxer to stitch the scene list
// into a single output (the project's completed.webm), copying streams
// rather than re-encoding.
func Concat(ctx context.Context, ffmpegPath, listPath, outputPath string) error {
	args := []string{"-y", "-f", "concat", "-safe", "0", "-i", listPath, "-c", "copy", outputPath}
	cmd := exec.CommandContext(ctx, ffmpegPath, args...)
	out, err := cmd.CombinedOutput()
	if err != nil {
		return cerrors.NewCommandFailedError("ffmpeg", exitCode(err), string(out))
	}
	return nil
}

// SplitSegments invokes the muxer to cut source into contiguous
// segments at the given start-frame boundaries (copy mode, no
// re-encode) or, when lossless is true, re-encodes each segment with
// the lossless codec and scenecut disabled, forcing keyframes at the
// given starts (used by the scene planner's re-encode partition plan
// and by segment-verification re-cuts).
func SplitSegments(ctx context.Context, ffmpegPath, inputPath, outputDir string, starts []uint64, frameRate float64, lossless bool) ([]string, error) {
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return nil, cerrors.Wrap(cerrors.KindIO, "create split output dir", err)
	}

	var outputs []string
	for i := range starts {
		start := starts[i]
		var end uint64
		hasEnd := i+1 < len(starts)
		if hasEnd {
			end = starts[i+1]
		}

		outPath := filepath.Join(outputDir, fmt.Sprintf("%05d.mkv", i))
		if err := cutSegment(ctx, ffmpegPath, inputPath, outPath, start, end, hasEnd, frameRate, lossless); err != nil {
			return nil, err
		}
		outputs = append(outputs, outPath)
	}
	return outputs, nil
}

// RecutSegment re-cuts a single segment file losslessly from the
// source over [start, start+length), overwriting outputPath. Used by
// split verification when a segment's recorded start or frame count
// disagrees with the muxer or decoder.
func RecutSegment(ctx context.Context, ffmpegPath, sourcePath, outputPath string, start, length uint64, frameRate float64) error {
	return cutSegment(ctx, ffmpegPath, sourcePath, outputPath, start, start+length, true, frameRate, true)
}

func cutSegment(ctx context.Context, ffmpegPath, inputPath, outPath string, start, end uint64, hasEnd bool, frameRate float64, lossless bool) error {
	args := []string{"-y", "-ss", frameToTimestamp(start, frameRate), "-i", inputPath}
	if hasEnd {
		args = append(args, "-to", frameToTimestamp(end, frameRate))
	}
	if lossless {
		args = append(args, "-c:v", "libx264", "-qp", "0", "-sc_threshold", "0",
			"-force_key_frames", "expr:eq(n,0)", "-an")
	} else {
		args = append(args, "-c", "copy")
	}
	args = append(args, outPath)

	cmd := exec.CommandContext(ctx, ffmpegPath, args...)
	out, err := cmd.CombinedOutput()
	if err != nil {
		return cerrors.NewCommandFailedError("ffmpeg", exitCode(err), string(out))
	}
	return nil
}

func frameToTimestamp(frame uint64, frameRate float64) string {
	if frameRate <= 0 {
		frameRate = 24.0
	}
	secs := float64(frame) / frameRate
	return fmt.Sprintf("%.6f", secs)
}
