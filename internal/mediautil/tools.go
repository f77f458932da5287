package mediautil

import (
	"os/exec"

	cerrors "github.com/five82/grav1go/internal/errors"
)

// Tools resolves the external binary paths mediautil shells out to.
// ResolveFromPath fills it from PATH; the coordinator and worker
// binaries take their tool paths from CLI flags instead.
type Tools struct {
	FFmpeg  string
	FFprobe string
	Aomdec  string
	Vpxdec  string
}

// ResolveFromPath looks up each tool on PATH, returning an error naming
// the first one missing.
func ResolveFromPath() (Tools, error) {
	names := map[string]*string{}
	var t Tools
	names["ffmpeg"] = &t.FFmpeg
	names["ffprobe"] = &t.FFprobe
	names["aomdec"] = &t.Aomdec
	names["vpxdec"] = &t.Vpxdec

	for name, dst := range names {
		path, err := exec.LookPath(name)
		if err != nil {
			return Tools{}, cerrors.Wrap(cerrors.KindNotFound, "required external tool not found: "+name, err)
		}
		*dst = path
	}
	return t, nil
}
