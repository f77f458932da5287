package config

import (
	"os"

	"gopkg.in/yaml.v3"
)

// WorkerYAML is the shape of an optional worker.yaml config file,
// providing defaults for any flag the operator doesn't pass on the
// command line (spec §6's CLI contract, generalized with a config
// file since running a fleet of workers by hand-typed flags doesn't
// scale).
type WorkerYAML struct {
	Target        string `yaml:"target"`
	Workers       int    `yaml:"workers"`
	Threads       int    `yaml:"threads"`
	Queue         int    `yaml:"queue"`
	AomencPath    string `yaml:"aomenc_path"`
	VpxencPath    string `yaml:"vpxenc_path"`
	FfmpegPath    string `yaml:"ffmpeg_path"`
	VMAFModelPath string `yaml:"vmaf_model_path"`
	NoUI          bool   `yaml:"no_ui"`
}

// LoadWorkerYAML parses a worker config file. A missing file is not
// an error — it just means every setting comes from flags.
func LoadWorkerYAML(path string) (*WorkerYAML, error) {
	if path == "" {
		return &WorkerYAML{}, nil
	}
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return &WorkerYAML{}, nil
	}
	if err != nil {
		return nil, err
	}
	var y WorkerYAML
	if err := yaml.Unmarshal(data, &y); err != nil {
		return nil, err
	}
	return &y, nil
}

// ApplyDefaults fills any zero-valued field of c from y, leaving
// explicitly-set flags (non-zero values) untouched.
func (y *WorkerYAML) ApplyDefaults(c *WorkerConfig) {
	if c.Target == "" {
		c.Target = y.Target
	}
	if c.Workers == 0 {
		c.Workers = y.Workers
	}
	if c.Threads == 0 {
		c.Threads = y.Threads
	}
	if c.Queue == 0 {
		c.Queue = y.Queue
	}
	if c.AomencPath == "" {
		c.AomencPath = y.AomencPath
	}
	if c.VpxencPath == "" {
		c.VpxencPath = y.VpxencPath
	}
	if c.FfmpegPath == "" {
		c.FfmpegPath = y.FfmpegPath
	}
	if c.VMAFModelPath == "" {
		c.VMAFModelPath = y.VMAFModelPath
	}
	if y.NoUI {
		c.NoUI = true
	}
}
