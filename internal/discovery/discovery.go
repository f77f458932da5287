// Package discovery lists filesystem entries for the coordinator's
// browse endpoint, used by an operator picking input files for
// add_project.
package discovery

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/five82/grav1go/internal/util"
)

// Entry describes one directory entry returned by ListDirectory.
type Entry struct {
	Name  string
	IsDir bool
	Size  uint64
}

// ListDirectory lists the immediate children of dir: subdirectories
// first (alphabetical), then files with a recognized source extension
// (alphabetical). Hidden entries are omitted. Unlike a batch-discovery
// scan, an empty result is not an error — the endpoint is a browse
// surface, not a precondition for work.
func ListDirectory(dir string) ([]Entry, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("directory does not exist: %s", dir)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%s is not a directory", dir)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("cannot read directory %s: %w", dir, err)
	}

	var dirs, files []Entry
	for _, e := range entries {
		name := e.Name()
		if strings.HasPrefix(name, ".") {
			continue
		}

		fullPath := filepath.Join(dir, name)
		if e.IsDir() {
			dirs = append(dirs, Entry{Name: name, IsDir: true})
			continue
		}

		if !util.IsSourceFile(fullPath) {
			continue
		}
		size, err := util.GetFileSize(fullPath)
		if err != nil {
			continue
		}
		files = append(files, Entry{Name: name, Size: size})
	}

	sort.Slice(dirs, func(i, j int) bool { return strings.ToLower(dirs[i].Name) < strings.ToLower(dirs[j].Name) })
	sort.Slice(files, func(i, j int) bool { return strings.ToLower(files[i].Name) < strings.ToLower(files[j].Name) })

	return append(dirs, files...), nil
}
