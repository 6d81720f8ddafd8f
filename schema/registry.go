package schema

import (
	"errors"
	"fmt"
	"os"
	"sync/atomic"

	"gopkg.in/yaml.v3"
)

// ErrNotFound is returned when the registry has no definition for a
// (table name, version) pair.
var ErrNotFound = errors.New("packfile: schema not found")

// registryFile is the YAML document layout of a schema definition file.
type registryFile struct {
	Tables []struct {
		Name     string       `yaml:"name"`
		Versions []Definition `yaml:"versions"`
	} `yaml:"tables"`
}

type tableSet map[string]map[uint32]*Definition

// Registry resolves table definitions by name and version.
//
// The table set is immutable once loaded: Lookup is safe for concurrent
// use without locking, and Reload swaps the whole set atomically.
type Registry struct {
	tables atomic.Pointer[tableSet]
	path   string
}

// Load reads a YAML schema definition file into a new Registry.
func Load(path string) (*Registry, error) {
	r := &Registry{path: path}
	if err := r.Reload(); err != nil {
		return nil, err
	}
	return r, nil
}

// Parse builds a Registry from in-memory YAML, for callers that manage
// the definition source themselves.
func Parse(data []byte) (*Registry, error) {
	set, err := parseTables(data)
	if err != nil {
		return nil, err
	}
	r := &Registry{}
	r.tables.Store(&set)
	return r, nil
}

// Reload re-reads the definition file and replaces the table set
// wholesale. On failure the previous set stays in place.
func (r *Registry) Reload() error {
	if r.path == "" {
		return errors.New("packfile: registry has no definition file to reload")
	}
	data, err := os.ReadFile(r.path)
	if err != nil {
		return fmt.Errorf("read schema definitions: %w", err)
	}
	set, err := parseTables(data)
	if err != nil {
		return err
	}
	r.tables.Store(&set)
	return nil
}

func parseTables(data []byte) (tableSet, error) {
	var file registryFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse schema definitions: %w", err)
	}
	set := make(tableSet, len(file.Tables))
	for _, tbl := range file.Tables {
		if tbl.Name == "" {
			return nil, errors.New("packfile: schema table with no name")
		}
		if _, dup := set[tbl.Name]; dup {
			return nil, fmt.Errorf("packfile: duplicate schema table %q", tbl.Name)
		}
		versions := make(map[uint32]*Definition, len(tbl.Versions))
		for i := range tbl.Versions {
			def := tbl.Versions[i]
			if err := def.Validate(); err != nil {
				return nil, fmt.Errorf("table %q: %w", tbl.Name, err)
			}
			if _, dup := versions[def.Version]; dup {
				return nil, fmt.Errorf("packfile: table %q: duplicate version %d", tbl.Name, def.Version)
			}
			versions[def.Version] = &def
		}
		set[tbl.Name] = versions
	}
	return set, nil
}

// Lookup returns the definition for a table name and version.
func (r *Registry) Lookup(name string, version uint32) (*Definition, error) {
	set := r.tables.Load()
	if set == nil {
		return nil, fmt.Errorf("%w: %q version %d (registry empty)", ErrNotFound, name, version)
	}
	versions, ok := (*set)[name]
	if !ok {
		return nil, fmt.Errorf("%w: table %q", ErrNotFound, name)
	}
	def, ok := versions[version]
	if !ok {
		return nil, fmt.Errorf("%w: table %q version %d", ErrNotFound, name, version)
	}
	return def, nil
}

// Latest returns the highest-versioned definition for a table.
func (r *Registry) Latest(name string) (*Definition, error) {
	set := r.tables.Load()
	if set == nil {
		return nil, fmt.Errorf("%w: table %q (registry empty)", ErrNotFound, name)
	}
	versions, ok := (*set)[name]
	if !ok || len(versions) == 0 {
		return nil, fmt.Errorf("%w: table %q", ErrNotFound, name)
	}
	var best *Definition
	for _, def := range versions {
		if best == nil || def.Version > best.Version {
			best = def
		}
	}
	return best, nil
}

// Tables returns the names of all known tables.
func (r *Registry) Tables() []string {
	set := r.tables.Load()
	if set == nil {
		return nil
	}
	names := make([]string, 0, len(*set))
	for name := range *set {
		names = append(names, name)
	}
	return names
}
