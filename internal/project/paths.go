package project

import "path/filepath"

// ProjectsFile is the path to the coordinator's project registry.
func ProjectsFile(root string) string {
	return filepath.Join(root, "projects.json")
}

// ScenesFile is the path to one project's scene/segment map.
func ScenesFile(root, id string) string {
	return filepath.Join(root, "scenes", id+".json")
}

// SplitDir is the directory holding a project's physical segments.
func (p *Project) SplitDir() string {
	return filepath.Join(p.root, "jobs", p.ID, "split")
}

// EncodeDir is the directory holding a project's encoded scenes.
func (p *Project) EncodeDir() string {
	return filepath.Join(p.root, "jobs", p.ID, "encode")
}

// GrainDir is the directory holding a project's grain tables.
func (p *Project) GrainDir() string {
	return filepath.Join(p.root, "jobs", p.ID, "grain")
}

// CompletedPath is the final concatenated output's location.
func (p *Project) CompletedPath() string {
	return filepath.Join(p.root, "jobs", p.ID, "completed.webm")
}

// SegmentPath is the physical file backing a segment id.
func (p *Project) SegmentPath(segmentID string) string {
	return filepath.Join(p.SplitDir(), segmentID+".mkv")
}

// ScenePath is the encoded-scene file backing a scene id.
func (p *Project) ScenePath(sceneID string) string {
	return filepath.Join(p.EncodeDir(), sceneID+".ivf")
}

// GrainTablePath is a scene's grain table file.
func (p *Project) GrainTablePath(sceneID string) string {
	return filepath.Join(p.GrainDir(), sceneID+".table")
}
