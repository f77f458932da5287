package mediautil

import (
	"context"
	"os/exec"
	"regexp"

	cerrors "github.com/five82/grav1go/internal/errors"
)

var decodedFramesRegex = regexp.MustCompile(`Decoded (\d+)/(\d+) frames`)

// DecodeVerifyAom runs the reference aom decoder over path end to end
// (1 frame-thread, 16 tile-threads per spec §4.4) and returns the
// decoded frame count parsed from its "Decoded N/M frames" summary.
// A nonzero exit is reported as KindBadEncode.
func DecodeVerifyAom(ctx context.Context, aomdecPath, path string) (uint64, error) {
	args := []string{"--threads=1", "--tile-threads=16", "-o", "/dev/null", path}
	cmd := exec.CommandContext(ctx, aomdecPath, args...)
	out, err := cmd.CombinedOutput()
	if err != nil {
		return 0, cerrors.New(cerrors.KindBadEncode, "aom decode failed: "+string(out))
	}

	m := decodedFramesRegex.FindSubmatch(out)
	if m == nil {
		return 0, cerrors.New(cerrors.KindBadEncode, "could not parse decoded frame count")
	}
	decoded := parseUintOrZero(string(m[1]))
	return decoded, nil
}

func parseUintOrZero(s string) uint64 {
	var n uint64
	for _, c := range s {
		if c < '0' || c > '9' {
			return n
		}
		n = n*10 + uint64(c-'0')
	}
	return n
}
