// Package store provides durable JSON document storage for automation state.
// Each document is a named JSON file under the workspace state directory with
// load-or-default and whole-document atomic rewrite semantics.
//
// Documents are single-writer: the owning component performs whole-document
// read-modify-write cycles with no locking. Concurrent external writers are
// not supported.
package store

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/aatumaykin/linkpilot/internal/logger"
)

const (
	// StateSubdirectory is the subdirectory name for state documents within
	// the workspace.
	StateSubdirectory = "state"
)

// Store provides durable read/write access to named JSON documents.
type Store struct {
	dir    string
	logger *logger.Logger
}

// New creates a Store rooted at <workspacePath>/state.
func New(workspacePath string, log *logger.Logger) *Store {
	return &Store{
		dir:    filepath.Join(workspacePath, StateSubdirectory),
		logger: log,
	}
}

// Dir returns the directory holding the state documents.
func (s *Store) Dir() string {
	return s.dir
}

// Load reads the named document into v. A missing or corrupt document leaves
// v untouched and returns false; corruption is logged but never treated as
// fatal so a damaged file cannot prevent startup.
func (s *Store) Load(name string, v any) bool {
	path := s.path(name)

	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			s.logger.Error("failed to read state document", err,
				logger.Field{Key: "document", Value: name})
		}
		return false
	}

	if err := json.Unmarshal(data, v); err != nil {
		s.logger.Error("corrupt state document, using defaults", err,
			logger.Field{Key: "document", Value: name},
			logger.Field{Key: "file", Value: path})
		return false
	}

	return true
}

// Save writes v as the named document using an atomic rewrite: the document
// is marshalled to a temporary file, synced, then renamed over the target.
func (s *Store) Save(name string, v any) error {
	if err := os.MkdirAll(s.dir, 0755); err != nil {
		s.logger.Error("failed to create state directory", err,
			logger.Field{Key: "dir", Value: s.dir})
		return err
	}

	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		s.logger.Error("failed to marshal state document", err,
			logger.Field{Key: "document", Value: name})
		return err
	}

	path := s.path(name)
	tmpPath := path + ".tmp"

	file, err := os.OpenFile(tmpPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		s.logger.Error("failed to create temporary state file", err,
			logger.Field{Key: "file", Value: tmpPath})
		return err
	}

	if _, err := file.Write(data); err != nil {
		file.Close()
		s.logger.Error("failed to write state document", err,
			logger.Field{Key: "file", Value: tmpPath})
		return err
	}

	if err := file.Sync(); err != nil {
		file.Close()
		s.logger.Error("failed to sync state document", err,
			logger.Field{Key: "file", Value: tmpPath})
		return err
	}

	if err := file.Close(); err != nil {
		return err
	}

	if err := os.Rename(tmpPath, path); err != nil {
		s.logger.Error("failed to rename temporary state file", err,
			logger.Field{Key: "from", Value: tmpPath},
			logger.Field{Key: "to", Value: path})
		return err
	}

	s.logger.Debug("state document saved",
		logger.Field{Key: "document", Value: name})

	return nil
}

// Delete removes the named document. A missing document is not an error.
func (s *Store) Delete(name string) error {
	err := os.Remove(s.path(name))
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

func (s *Store) path(name string) string {
	return filepath.Join(s.dir, name+".json")
}
