package compose

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"go.yaml.in/yaml/v3"

	"github.com/kbukum/gfnkit/errors"
)

// Loader loads pipeline definitions by name.
type Loader interface {
	Load(name string) (*Pipeline, error)
}

// FileLoader loads pipelines from YAML files on disk.
type FileLoader struct {
	dirs []string
}

// NewFileLoader creates a loader that searches the given directories.
func NewFileLoader(dirs ...string) *FileLoader {
	return &FileLoader{dirs: dirs}
}

// Load searches each directory, then its subdirectories, for
// {name}.yaml or {name}.yml. The first match wins.
func (l *FileLoader) Load(name string) (*Pipeline, error) {
	for _, dir := range l.dirs {
		for _, ext := range []string{".yaml", ".yml"} {
			path := filepath.Join(dir, name+ext)
			if _, err := os.Stat(path); err == nil {
				return LoadFile(path)
			}
		}
		if path := findNested(dir, name); path != "" {
			return LoadFile(path)
		}
	}
	return nil, errors.NotFound("pipeline", name).WithDetail("dirs", l.dirs)
}

func findNested(dir, name string) string {
	var found string
	_ = filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return nil
		}
		if d.Name() == name+".yaml" || d.Name() == name+".yml" {
			found = path
			return filepath.SkipAll
		}
		return nil
	})
	return found
}

// LoadFile reads and validates the pipeline at path.
func LoadFile(path string) (*Pipeline, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.IO("read", path, err)
	}
	p, err := Parse(data)
	if err != nil {
		if appErr, ok := errors.AsAppError(err); ok {
			return nil, appErr.WithDetail("path", path)
		}
		return nil, err
	}
	return p, nil
}

// Parse decodes and validates a YAML pipeline.
func Parse(data []byte) (*Pipeline, error) {
	var p Pipeline
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, errors.InvalidInput("pipeline", fmt.Sprintf("parsing yaml: %v", err)).WithCause(err)
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return &p, nil
}

// MapLoader serves pipelines from memory.
type MapLoader map[string]*Pipeline

// Load returns the pipeline registered under name.
func (m MapLoader) Load(name string) (*Pipeline, error) {
	p, ok := m[name]
	if !ok {
		return nil, errors.NotFound("pipeline", name)
	}
	return p, nil
}
