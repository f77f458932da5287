package mediautil

import (
	"strings"
	"testing"

	"github.com/five82/grav1go/internal/config"
)

func TestBuildEncoderCommandStripsDenoiseOnPassOne(t *testing.T) {
	spec := EncodeSpec{
		Encoder:     config.EncoderAom,
		AomencPath:  "/usr/bin/aomenc",
		EncoderArgs: []string{"--cpu-used=4", "--denoise-noise-level=10"},
		Threads:     4,
	}

	_, args := buildEncoderCommand(spec, 1)
	joined := strings.Join(args, " ")
	if strings.Contains(joined, "denoise-noise-level") {
		t.Errorf("pass 1 args should not contain denoise-noise-level: %v", args)
	}

	_, args2 := buildEncoderCommand(spec, 2)
	joined2 := strings.Join(args2, " ")
	if !strings.Contains(joined2, "denoise-noise-level=10") {
		t.Errorf("pass 2 args should retain denoise-noise-level: %v", args2)
	}
}

func TestBuildEncoderCommandAppendsVMAFModelPath(t *testing.T) {
	spec := EncodeSpec{
		Encoder:       config.EncoderAom,
		AomencPath:    "/usr/bin/aomenc",
		EncoderArgs:   []string{"--tune=vmaf"},
		VMAFModelPath: "/models/vmaf_v0.6.1.pkl",
		Threads:       2,
	}

	_, args := buildEncoderCommand(spec, 2)
	joined := strings.Join(args, " ")
	if !strings.Contains(joined, "--vmaf-model-path=/models/vmaf_v0.6.1.pkl") {
		t.Errorf("expected vmaf-model-path in args: %v", args)
	}
}

func TestBuildEncoderCommandOmitsVMAFModelPathWithoutVMAFArg(t *testing.T) {
	spec := EncodeSpec{
		Encoder:       config.EncoderAom,
		AomencPath:    "/usr/bin/aomenc",
		EncoderArgs:   []string{"--cpu-used=4"},
		VMAFModelPath: "/models/vmaf_v0.6.1.pkl",
		Threads:       2,
	}

	_, args := buildEncoderCommand(spec, 2)
	joined := strings.Join(args, " ")
	if strings.Contains(joined, "vmaf-model-path") {
		t.Errorf("did not expect vmaf-model-path without a vmaf-referencing arg: %v", args)
	}
}

func TestBuildEncoderCommandGrainTablePass2Only(t *testing.T) {
	spec := EncodeSpec{
		Encoder:        config.EncoderAom,
		AomencPath:     "/usr/bin/aomenc",
		GrainTablePath: "/tmp/00003.table",
		Threads:        2,
	}

	_, pass1Args := buildEncoderCommand(spec, 1)
	if strings.Contains(strings.Join(pass1Args, " "), "film-grain-table") {
		t.Errorf("pass 1 should not carry film-grain-table: %v", pass1Args)
	}

	_, pass2Args := buildEncoderCommand(spec, 2)
	if !strings.Contains(strings.Join(pass2Args, " "), "film-grain-table=/tmp/00003.table") {
		t.Errorf("pass 2 should carry film-grain-table: %v", pass2Args)
	}
}

func TestParsePassProgress(t *testing.T) {
	line := "frame=  120 fps=45.2 q=32.0 size=    512kB time=00:00:05.00 bitrate= 838.9kbits/s"
	p, ok := parsePassProgress(line, 2)
	if !ok {
		t.Fatal("expected a match")
	}
	if p.Frame != 120 {
		t.Errorf("Frame = %d, want 120", p.Frame)
	}
	if p.FPS != 45.2 {
		t.Errorf("FPS = %v, want 45.2", p.FPS)
	}
	if p.Pass != 2 {
		t.Errorf("Pass = %d, want 2", p.Pass)
	}
}

func TestParsePassProgressNoMatch(t *testing.T) {
	if _, ok := parsePassProgress("nothing useful here", 1); ok {
		t.Error("expected no match")
	}
}
