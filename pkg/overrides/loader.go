package overrides

import (
	"encoding/json"
	"fmt"
	"io/fs"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/goliatone/go-configpage/pkg/merge"
)

// Store holds scenario-level overrides keyed by scenario key.
type Store struct {
	scenarios map[string]merge.Overrides
	sources   map[string]string
}

// LoadFS walks the provided filesystem and parses JSON/YAML override files.
// When fsys is nil or no override files are present, the returned store is
// empty. A pattern declared twice for the same scenario is an error.
func LoadFS(fsys fs.FS) (*Store, error) {
	store := &Store{
		scenarios: make(map[string]merge.Overrides),
		sources:   make(map[string]string),
	}
	if fsys == nil {
		return store, nil
	}

	err := fs.WalkDir(fsys, ".", func(path string, entry fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if entry.IsDir() || !isOverrideFile(path) {
			return nil
		}

		data, err := fs.ReadFile(fsys, path)
		if err != nil {
			return fmt.Errorf("overrides: read %s: %w", path, err)
		}

		doc, err := parseFile(data, path)
		if err != nil {
			return err
		}

		for rawKey, scenario := range doc.Scenarios {
			key := strings.TrimSpace(rawKey)
			if key == "" {
				return fmt.Errorf("overrides: file %s defines an empty scenario key", path)
			}
			if err := store.add(key, scenario.Nodes, path); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return store, nil
}

// Scenario returns a copy of the overrides declared for scenarioKey. The
// result is nil when the scenario has none.
func (s *Store) Scenario(scenarioKey string) merge.Overrides {
	if s == nil {
		return nil
	}
	return s.scenarios[strings.TrimSpace(scenarioKey)].Clone()
}

// Scenarios lists the scenario keys with overrides, sorted.
func (s *Store) Scenarios() []string {
	if s == nil {
		return nil
	}
	keys := make([]string, 0, len(s.scenarios))
	for key := range s.scenarios {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

// Source reports the file that declared pattern for scenarioKey.
func (s *Store) Source(scenarioKey, pattern string) (string, bool) {
	if s == nil {
		return "", false
	}
	src, ok := s.sources[sourceKey(strings.TrimSpace(scenarioKey), normalisePattern(pattern))]
	return src, ok
}

// Empty reports whether the store holds any overrides.
func (s *Store) Empty() bool {
	return s == nil || len(s.scenarios) == 0
}

func (s *Store) add(scenarioKey string, nodes map[string]map[string]any, source string) error {
	target := s.scenarios[scenarioKey]
	if target == nil {
		target = make(merge.Overrides, len(nodes))
		s.scenarios[scenarioKey] = target
	}

	for rawPattern, props := range nodes {
		pattern := normalisePattern(rawPattern)
		if pattern == "" {
			return fmt.Errorf("overrides: scenario %q (file %s) defines an empty node pattern", scenarioKey, source)
		}
		if prev, exists := s.sources[sourceKey(scenarioKey, pattern)]; exists {
			return fmt.Errorf("overrides: scenario %q pattern %q defined in %s and %s", scenarioKey, pattern, prev, source)
		}
		copied := make(map[string]any, len(props))
		for key, value := range props {
			copied[key] = value
		}
		target[pattern] = copied
		s.sources[sourceKey(scenarioKey, pattern)] = source
	}
	return nil
}

type overrideFile struct {
	Scenarios map[string]scenarioFile `json:"scenarios" yaml:"scenarios"`
}

type scenarioFile struct {
	Nodes map[string]map[string]any `json:"nodes" yaml:"nodes"`
}

func parseFile(data []byte, source string) (overrideFile, error) {
	var doc overrideFile
	if len(strings.TrimSpace(string(data))) == 0 {
		return overrideFile{}, fmt.Errorf("overrides: file %s is empty", source)
	}

	if err := json.Unmarshal(data, &doc); err == nil {
		return doc, nil
	}

	doc = overrideFile{}
	if err := yaml.Unmarshal(data, &doc); err == nil {
		return doc, nil
	}

	return overrideFile{}, fmt.Errorf("overrides: parse %s: invalid JSON or YAML", source)
}

// normalisePattern trims both halves of "<node>@<item>" so that
// "list @ row" and "list@row" address the same entry.
func normalisePattern(raw string) string {
	id, item := merge.ParseKey(raw)
	if id == "" {
		return ""
	}
	return merge.Key(strings.TrimSpace(id), strings.TrimSpace(item))
}

func sourceKey(scenarioKey, pattern string) string {
	return scenarioKey + "\x00" + pattern
}

func isOverrideFile(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json", ".yaml", ".yml":
		return true
	default:
		return false
	}
}
