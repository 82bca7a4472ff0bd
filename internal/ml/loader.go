package ml

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"
)

const (
	manifestFile     = "model.yaml"
	autogluonPickle  = "predictor.pkl"
	formatLogistic   = "logistic"
	formatAutoGluon  = "autogluon"
	outputScalar     = "scalar"
	outputDistribute = "distribution"
)

// Manifest describes the contents of a model directory.
type Manifest struct {
	Format        string                        `yaml:"format"`
	Version       string                        `yaml:"version"`
	Features      []string                      `yaml:"features"`
	ClassLabels   []any                         `yaml:"class_labels"`
	PositiveClass any                           `yaml:"positive_class"`
	Output        string                        `yaml:"output"`
	Intercept     float64                       `yaml:"intercept"`
	Weights       map[string]float64            `yaml:"weights"`
	Categorical   map[string]map[string]float64 `yaml:"categorical"`
	Scaling       map[string]Scale              `yaml:"scaling"`
	Impute        map[string]float64            `yaml:"impute"`
}

// Scale standardizes a numeric feature as (x - mean) / std.
type Scale struct {
	Mean float64 `yaml:"mean"`
	Std  float64 `yaml:"std"`
}

// LoadOptions configures how model directories are opened.
type LoadOptions struct {
	// PythonPath is the interpreter used for AutoGluon models. Empty means
	// auto-detect.
	PythonPath string
}

// Loader opens a model directory.
type Loader func(dir string) (Model, error)

// NewLoader returns a Loader bound to opts.
func NewLoader(opts LoadOptions) Loader {
	return func(dir string) (Model, error) {
		return Load(dir, opts)
	}
}

// Load opens the model stored in dir. It fails with ErrModelNotFound when
// dir does not exist.
func Load(dir string, opts LoadOptions) (Model, error) {
	info, err := os.Stat(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrModelNotFound, dir)
		}
		return nil, fmt.Errorf("stat model directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%w: %s is not a directory", ErrModelNotFound, dir)
	}

	manifest, err := readManifest(dir)
	if err != nil {
		return nil, err
	}

	// avoid returning typed nil pointers inside a non-nil Model
	switch manifest.Format {
	case formatLogistic:
		m, err := newLogisticModel(manifest)
		if err != nil {
			return nil, err
		}
		return m, nil
	case formatAutoGluon:
		m, err := newPythonModel(dir, opts.PythonPath)
		if err != nil {
			return nil, err
		}
		return m, nil
	default:
		return nil, fmt.Errorf("unsupported model format %q in %s", manifest.Format, dir)
	}
}

func readManifest(dir string) (*Manifest, error) {
	path := filepath.Join(dir, manifestFile)
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		// a bare AutoGluon save directory has no manifest
		if _, statErr := os.Stat(filepath.Join(dir, autogluonPickle)); statErr == nil {
			log.Debug().Str("model_dir", dir).Msg("no manifest, assuming AutoGluon predictor")
			return &Manifest{Format: formatAutoGluon}, nil
		}
		return nil, fmt.Errorf("model directory %s has neither %s nor %s", dir, manifestFile, autogluonPickle)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	if m.Format == "" {
		m.Format = formatLogistic
	}
	return &m, nil
}
