package mediautil

import (
	"context"
	"fmt"
	"os/exec"
	"strconv"
	"strings"

	"github.com/five82/grav1go/internal/config"
	cerrors "github.com/five82/grav1go/internal/errors"
	"github.com/five82/grav1go/internal/logging"
)

// EncodeSpec describes one scene's two-pass encode.
type EncodeSpec struct {
	Encoder        config.EncoderKind
	FFmpegPath     string
	AomencPath     string
	VpxencPath     string
	InputSegment   string
	OutputPath     string
	Start          uint64
	Frames         uint64
	Threads        int
	EncoderArgs    []string // project's encoder argument string, pre-split
	FFmpegFilter   string   // operator -vf string, appended after the mandatory select filter
	VMAFModelPath  string   // appended as --vmaf-model-path when EncoderArgs mentions vmaf
	GrainTablePath string   // pass-2 only; empty means no grain table
}

// PassProgress reports one parsed progress tick from the encoder's stderr.
type PassProgress struct {
	Pass  int
	Frame uint64
	FPS   float64
}

// ProgressFunc receives encode progress ticks.
type ProgressFunc func(PassProgress)

// RunTwoPassEncode runs pass 1 (discarded output) then pass 2 (writes
// spec.OutputPath), piping ffmpeg's decoded YUV4MPEG stream into the
// encoder's stdin for each pass.
func RunTwoPassEncode(ctx context.Context, spec EncodeSpec, onProgress ProgressFunc) error {
	if spec.Encoder == "aom" && spec.GrainTablePath == "" {
		for _, a := range spec.EncoderArgs {
			if strings.Contains(a, "film-grain-table") {
				return cerrors.New(cerrors.KindBadEncode, "grain table required but not available")
			}
		}
	}

	if err := runPass(ctx, spec, 1, onProgress); err != nil {
		return err
	}
	return runPass(ctx, spec, 2, onProgress)
}

func runPass(ctx context.Context, spec EncodeSpec, pass int, onProgress ProgressFunc) error {
	vf := NewVideoFilterChain(spec.Start).AddOperatorFilter(spec.FFmpegFilter).Build()

	ffmpegArgs := []string{
		"-i", spec.InputSegment,
		"-vf", vf,
		"-vframes", strconv.FormatUint(spec.Frames, 10),
		"-f", "yuv4mpegpipe",
		"-",
	}
	ffmpegCmd := exec.CommandContext(ctx, spec.FFmpegPath, ffmpegArgs...)

	ffmpegOut, err := ffmpegCmd.StdoutPipe()
	if err != nil {
		return cerrors.Wrap(cerrors.KindCommand, "ffmpeg stdout pipe", err)
	}

	encPath, encArgs := buildEncoderCommand(spec, pass)
	encCmd := exec.CommandContext(ctx, encPath, encArgs...)
	encCmd.Stdin = ffmpegOut

	encStderr, err := encCmd.StderrPipe()
	if err != nil {
		return cerrors.Wrap(cerrors.KindCommand, "encoder stderr pipe", err)
	}

	if err := ffmpegCmd.Start(); err != nil {
		return cerrors.WrapExecError("ffmpeg", err, "")
	}
	if err := encCmd.Start(); err != nil {
		return cerrors.WrapExecError(string(spec.Encoder)+"enc", err, "")
	}

	var stderrBuf strings.Builder
	scanDone := make(chan error, 1)
	go func() {
		scanDone <- logging.ScanCRLines(encStderr, func(line string) {
			stderrBuf.WriteString(line)
			stderrBuf.WriteByte('\n')
			if onProgress != nil {
				if p, ok := parsePassProgress(line, pass); ok {
					onProgress(p)
				}
			}
		})
	}()
	<-scanDone

	ffmpegErr := ffmpegCmd.Wait()
	encErr := encCmd.Wait()

	if encErr != nil {
		return cerrors.NewCommandFailedError(string(spec.Encoder)+"enc", exitCode(encErr), stderrBuf.String())
	}
	if ffmpegErr != nil {
		return cerrors.WrapExecError("ffmpeg", ffmpegErr, "")
	}
	return nil
}

func buildEncoderCommand(spec EncodeSpec, pass int) (string, []string) {
	var encPath string
	switch spec.Encoder {
	case config.EncoderAom:
		encPath = spec.AomencPath
	case config.EncoderVpx:
		encPath = spec.VpxencPath
	}

	args := []string{"-", fmt.Sprintf("--pass=%d", pass), fmt.Sprintf("--threads=%d", spec.Threads)}

	for _, a := range spec.EncoderArgs {
		// denoise-noise-level is meaningful only on pass 2 (spec §4.5).
		if pass == 1 && strings.HasPrefix(a, "--denoise-noise-level=") {
			continue
		}
		args = append(args, a)
	}

	if spec.Encoder == config.EncoderAom && spec.VMAFModelPath != "" {
		if containsVMAF(spec.EncoderArgs) {
			args = append(args, "--vmaf-model-path="+spec.VMAFModelPath)
		}
	}

	if pass == 2 {
		if spec.GrainTablePath != "" {
			args = append(args, "--film-grain-table="+spec.GrainTablePath)
		}
		args = append(args, "-o", spec.OutputPath)
	} else {
		args = append(args, "-o", nullOutput())
	}

	return encPath, args
}

func containsVMAF(args []string) bool {
	for _, a := range args {
		if strings.Contains(strings.ToLower(a), "vmaf") {
			return true
		}
	}
	return false
}

func parsePassProgress(line string, pass int) (PassProgress, bool) {
	idx := strings.Index(line, "frame")
	if idx < 0 {
		return PassProgress{}, false
	}
	fields := strings.Fields(line[idx:])
	if len(fields) == 0 {
		return PassProgress{}, false
	}
	frameStr := strings.TrimPrefix(fields[0], "frame")
	numStr := strings.TrimLeft(frameStr, "= ")
	if numStr == "" && len(fields) > 1 {
		numStr = fields[1]
	}
	frame, err := strconv.ParseUint(numStr, 10, 64)
	if err != nil {
		return PassProgress{}, false
	}
	var fps float64
	if fpsIdx := strings.Index(line, "fps="); fpsIdx >= 0 {
		rest := strings.Fields(line[fpsIdx+4:])
		if len(rest) > 0 {
			fps, _ = strconv.ParseFloat(rest[0], 64)
		}
	}
	return PassProgress{Pass: pass, Frame: frame, FPS: fps}, true
}

func exitCode(err error) int {
	if ee, ok := err.(interface{ ExitCode() int }); ok {
		return ee.ExitCode()
	}
	return -1
}

func nullOutput() string {
	return "/dev/null"
}
