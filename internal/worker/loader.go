package worker

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/agentmux/agentmux/pkg/models"
)

// specFile is the on-disk shape of a worker definition file. A file
// holds either one spec or a list under "workers".
type specFile struct {
	Workers []models.WorkerSpec `yaml:"workers"`
	models.WorkerSpec           `yaml:",inline"`
}

// LoadSpecs reads every .yaml/.yml file in dir and returns the worker
// specs they define, sorted by file name then declaration order.
// Invalid specs fail the load; a worker with no id or skills cannot be
// selected and hiding it would be worse than refusing it.
func LoadSpecs(dir string) ([]models.WorkerSpec, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read workers dir: %w", err)
	}

	var names []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(e.Name()))
		if ext == ".yaml" || ext == ".yml" {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	var specs []models.WorkerSpec
	seen := make(map[string]string)
	for _, name := range names {
		path := filepath.Join(dir, name)
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", path, err)
		}
		var f specFile
		if err := yaml.Unmarshal(data, &f); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}

		fileSpecs := f.Workers
		if len(fileSpecs) == 0 && f.WorkerSpec.ID != "" {
			fileSpecs = []models.WorkerSpec{f.WorkerSpec}
		}
		for _, s := range fileSpecs {
			if !s.Valid() {
				return nil, fmt.Errorf("%s: worker %q needs an id and at least one skill", path, s.ID)
			}
			if prev, dup := seen[s.ID]; dup {
				return nil, fmt.Errorf("%s: worker %q already defined in %s", path, s.ID, prev)
			}
			seen[s.ID] = path
			specs = append(specs, s)
		}
	}

	log.Printf("[worker] loaded %d worker specs from %s", len(specs), dir)
	return specs, nil
}
