// Package mediautil wraps the external muxer/demuxer and encoder
// binaries behind spawn-and-parse functions: frame counting, keyframe
// enumeration, the two-pass encode runner, and concat.
package mediautil

import (
	"encoding/json"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
)

// ffprobeOutput mirrors the subset of ffprobe's JSON report this
// package consumes.
type ffprobeOutput struct {
	Format  ffprobeFormat   `json:"format"`
	Streams []ffprobeStream `json:"streams"`
}

type ffprobeFormat struct {
	Duration string `json:"duration"`
}

type ffprobeStream struct {
	CodecType  string `json:"codec_type"`
	Width      int64  `json:"width"`
	Height     int64  `json:"height"`
	NbFrames   string `json:"nb_frames"`
	RFrameRate string `json:"r_frame_rate"`
}

type ffprobeFrame struct {
	KeyFrame  int    `json:"key_frame"`
	PictType  string `json:"pict_type"`
}

type ffprobeFramesOutput struct {
	Frames []ffprobeFrame `json:"frames"`
}

func runFFprobe(ffprobePath, inputPath string, extraArgs ...string) ([]byte, error) {
	args := append([]string{"-v", "quiet", "-print_format", "json", "-show_format", "-show_streams"}, extraArgs...)
	args = append(args, inputPath)
	out, err := exec.Command(ffprobePath, args...).Output()
	if err != nil {
		return nil, fmt.Errorf("ffprobe failed: %w", err)
	}
	return out, nil
}

// VideoStreamInfo describes the first video stream of a source.
type VideoStreamInfo struct {
	Width        uint32
	Height       uint32
	DurationSecs float64
	FrameRate    float64
}

// parseFrameRate parses ffprobe's "num/den" r_frame_rate representation.
func parseFrameRate(s string) float64 {
	num, den, ok := strings.Cut(s, "/")
	if !ok {
		v, _ := strconv.ParseFloat(s, 64)
		return v
	}
	n, errN := strconv.ParseFloat(num, 64)
	d, errD := strconv.ParseFloat(den, 64)
	if errN != nil || errD != nil || d == 0 {
		return 0
	}
	return n / d
}

// ProbeVideoStream returns the width, height, and duration of a source's
// first video stream.
func ProbeVideoStream(ffprobePath, inputPath string) (VideoStreamInfo, error) {
	out, err := runFFprobe(ffprobePath, inputPath)
	if err != nil {
		return VideoStreamInfo{}, err
	}

	var probe ffprobeOutput
	if err := json.Unmarshal(out, &probe); err != nil {
		return VideoStreamInfo{}, fmt.Errorf("failed to parse ffprobe output: %w", err)
	}

	var duration float64
	if probe.Format.Duration != "" {
		duration, _ = strconv.ParseFloat(probe.Format.Duration, 64)
	}

	for _, s := range probe.Streams {
		if s.CodecType != "video" {
			continue
		}
		if s.Width <= 0 || s.Height <= 0 {
			return VideoStreamInfo{}, fmt.Errorf("invalid dimensions in %s: %dx%d", inputPath, s.Width, s.Height)
		}
		return VideoStreamInfo{
			Width:        uint32(s.Width),
			Height:       uint32(s.Height),
			DurationSecs: duration,
			FrameRate:    parseFrameRate(s.RFrameRate),
		}, nil
	}

	return VideoStreamInfo{}, fmt.Errorf("no video stream found in %s", inputPath)
}

// FastFrameCount returns the container-reported frame count for the
// first video stream without decoding (fast, copy-decode in muxer
// terms). Returns an error if the container does not report it.
func FastFrameCount(ffprobePath, inputPath string) (uint64, error) {
	out, err := runFFprobe(ffprobePath, inputPath)
	if err != nil {
		return 0, err
	}

	var probe ffprobeOutput
	if err := json.Unmarshal(out, &probe); err != nil {
		return 0, fmt.Errorf("failed to parse ffprobe output: %w", err)
	}

	for _, s := range probe.Streams {
		if s.CodecType != "video" {
			continue
		}
		if s.NbFrames == "" {
			return 0, fmt.Errorf("no frame count reported for %s", inputPath)
		}
		frames, err := strconv.ParseUint(s.NbFrames, 10, 64)
		if err != nil {
			return 0, fmt.Errorf("unparseable frame count %q for %s", s.NbFrames, inputPath)
		}
		return frames, nil
	}

	return 0, fmt.Errorf("no video stream found in %s", inputPath)
}

// SlowFrameCount counts frames by asking ffprobe to decode the stream
// end to end (-count_frames), the authoritative count used to cross
// check the muxer's fast count during split verification.
func SlowFrameCount(ffprobePath, inputPath string) (uint64, error) {
	out, err := runFFprobe(ffprobePath, inputPath, "-count_frames")
	if err != nil {
		return 0, err
	}

	var probe struct {
		Streams []struct {
			CodecType    string `json:"codec_type"`
			NbReadFrames string `json:"nb_read_frames"`
		} `json:"streams"`
	}
	if err := json.Unmarshal(out, &probe); err != nil {
		return 0, fmt.Errorf("failed to parse ffprobe output: %w", err)
	}

	for _, s := range probe.Streams {
		if s.CodecType != "video" {
			continue
		}
		frames, err := strconv.ParseUint(s.NbReadFrames, 10, 64)
		if err != nil {
			return 0, fmt.Errorf("unparseable decoded frame count %q for %s", s.NbReadFrames, inputPath)
		}
		return frames, nil
	}

	return 0, fmt.Errorf("no video stream found in %s", inputPath)
}

// SourceKeyframes returns, in ascending order, the frame indexes of
// every source-keyframe (IDR/I-frame) in the first video stream. Used
// by the scene planner to snap logical-keyframe cuts onto frames the
// muxer can split without re-encoding.
func SourceKeyframes(ffprobePath, inputPath string) ([]uint64, error) {
	args := []string{
		"-v", "quiet",
		"-print_format", "json",
		"-select_streams", "v:0",
		"-show_entries", "frame=key_frame,pict_type",
		inputPath,
	}
	out, err := exec.Command(ffprobePath, args...).Output()
	if err != nil {
		return nil, fmt.Errorf("ffprobe failed: %w", err)
	}

	var framesOut ffprobeFramesOutput
	if err := json.Unmarshal(out, &framesOut); err != nil {
		return nil, fmt.Errorf("failed to parse ffprobe frame list: %w", err)
	}

	var keyframes []uint64
	for i, f := range framesOut.Frames {
		if f.KeyFrame == 1 || strings.EqualFold(f.PictType, "I") {
			keyframes = append(keyframes, uint64(i))
		}
	}
	return keyframes, nil
}
