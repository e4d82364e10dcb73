package runner

import (
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"
)

// Source supplies the runner set. Reloading the board calls Load again.
type Source interface {
	Load() ([]Runner, error)
}

type runnersFile struct {
	Runners []Runner `yaml:"runners"`
}

// FileSource reads runners from a YAML file exported from the server.
type FileSource struct {
	Path string
}

func (s FileSource) Load() ([]Runner, error) {
	b, err := os.ReadFile(s.Path)
	if err != nil {
		return nil, fmt.Errorf("read runners file: %w", err)
	}
	return ParseRunners(b)
}

// Server-side defaults for fields a runners file may leave out.
const (
	DefaultOrder     = 100
	DefaultReplicaID = 1
)

// UnmarshalYAML fills in the server defaults before decoding, so an absent
// order or replica_id is not posted back as 0.
func (r *Runner) UnmarshalYAML(value *yaml.Node) error {
	type plain Runner
	p := plain{Order: DefaultOrder, ReplicaID: DefaultReplicaID}
	if err := value.Decode(&p); err != nil {
		return err
	}
	*r = Runner(p)
	return nil
}

// ParseRunners decodes a runners document and orders it the way the
// server lists tests: by order, then by replica.
func ParseRunners(b []byte) ([]Runner, error) {
	var f runnersFile
	if err := yaml.Unmarshal(b, &f); err != nil {
		return nil, fmt.Errorf("parse runners: %w", err)
	}
	for i, r := range f.Runners {
		if r.Test == "" && (r.Method == "" || r.URLPath == "") {
			return nil, fmt.Errorf("runner %d: needs either test or method and urlpath", i)
		}
	}
	sort.SliceStable(f.Runners, func(i, j int) bool {
		if f.Runners[i].Order != f.Runners[j].Order {
			return f.Runners[i].Order < f.Runners[j].Order
		}
		return f.Runners[i].ReplicaID < f.Runners[j].ReplicaID
	})
	return f.Runners, nil
}

// StaticSource serves a fixed runner set.
type StaticSource []Runner

func (s StaticSource) Load() ([]Runner, error) {
	return append([]Runner(nil), s...), nil
}
