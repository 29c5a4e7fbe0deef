package persistence

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// YAMLPersister is a file-based persister for session Snapshots using
// yaml.v3, one file per session id, modeled directly on the teacher's
// production.YAMLPersister.
type YAMLPersister struct {
	dir string
}

// NewYAMLPersister creates a YAMLPersister, ensuring dir exists.
func NewYAMLPersister(dir string) (*YAMLPersister, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("persistence: mkdir %s: %w", dir, err)
	}
	return &YAMLPersister{dir: dir}, nil
}

func (p *YAMLPersister) Save(snapshot Snapshot) error {
	data, err := yaml.Marshal(snapshot)
	if err != nil {
		return fmt.Errorf("persistence: yaml marshal: %w", err)
	}
	fn := filepath.Join(p.dir, snapshot.SessionId+".yaml")
	if err := os.WriteFile(fn, data, 0o644); err != nil {
		return fmt.Errorf("persistence: write %s: %w", fn, err)
	}
	return nil
}

func (p *YAMLPersister) Load(sessionId string) (Snapshot, error) {
	fn := filepath.Join(p.dir, sessionId+".yaml")
	data, err := os.ReadFile(fn)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Snapshot{}, fmt.Errorf("persistence: session %q: %w", sessionId, os.ErrNotExist)
		}
		return Snapshot{}, fmt.Errorf("persistence: read %s: %w", fn, err)
	}
	var snapshot Snapshot
	if err := yaml.Unmarshal(data, &snapshot); err != nil {
		return Snapshot{}, fmt.Errorf("persistence: yaml unmarshal: %w", err)
	}
	snapshot.SessionId = sessionId
	return snapshot, nil
}

// JSONPersister is the JSON-codec counterpart to YAMLPersister, modeled on
// the teacher's production.JSONPersister.
type JSONPersister struct {
	dir string
}

// NewJSONPersister creates a JSONPersister, ensuring dir exists.
func NewJSONPersister(dir string) (*JSONPersister, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("persistence: mkdir %s: %w", dir, err)
	}
	return &JSONPersister{dir: dir}, nil
}

func (p *JSONPersister) Save(snapshot Snapshot) error {
	data, err := json.MarshalIndent(snapshot, "", "  ")
	if err != nil {
		return fmt.Errorf("persistence: json marshal: %w", err)
	}
	fn := filepath.Join(p.dir, snapshot.SessionId+".json")
	if err := os.WriteFile(fn, data, 0o644); err != nil {
		return fmt.Errorf("persistence: write %s: %w", fn, err)
	}
	return nil
}

func (p *JSONPersister) Load(sessionId string) (Snapshot, error) {
	fn := filepath.Join(p.dir, sessionId+".json")
	data, err := os.ReadFile(fn)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Snapshot{}, fmt.Errorf("persistence: session %q: %w", sessionId, os.ErrNotExist)
		}
		return Snapshot{}, fmt.Errorf("persistence: read %s: %w", fn, err)
	}
	var snapshot Snapshot
	if err := json.Unmarshal(data, &snapshot); err != nil {
		return Snapshot{}, fmt.Errorf("persistence: json unmarshal: %w", err)
	}
	snapshot.SessionId = sessionId
	return snapshot, nil
}
