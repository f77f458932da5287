package mediautil

import (
	"context"
	"os/exec"
	"regexp"
	"strings"

	"github.com/five82/grav1go/internal/config"
	cerrors "github.com/five82/grav1go/internal/errors"
)

var (
	aomVersionRe = regexp.MustCompile(`av1\s+-\s+(.+)`)
	vpxVersionRe = regexp.MustCompile(`vp9\s+-\s+(.+)`)
)

// DetectEncoderVersion runs the encoder binary's --help and extracts
// its self-reported codec version line, the same way the original
// coordinator and worker both fingerprint the binary they're running
// (get_aomenc_version/get_vpxenc_version). Both the coordinator (to
// know what it requires) and the worker (to know what it has) call
// this against their own locally configured binary paths.
func DetectEncoderVersion(ctx context.Context, encoder config.EncoderKind, aomencPath, vpxencPath string) (string, error) {
	var path string
	var re *regexp.Regexp
	switch encoder {
	case config.EncoderAom:
		path, re = aomencPath, aomVersionRe
	case config.EncoderVpx:
		path, re = vpxencPath, vpxVersionRe
	default:
		return "", cerrors.New(cerrors.KindCommand, "unknown encoder kind: "+string(encoder))
	}

	out, _ := exec.CommandContext(ctx, path, "--help").Output()
	m := re.FindStringSubmatch(string(out))
	if m == nil {
		return "", cerrors.New(cerrors.KindCommand, string(encoder)+"enc: could not parse version from --help output")
	}
	return strings.TrimSpace(strings.ReplaceAll(m[1], "(default)", "")), nil
}
