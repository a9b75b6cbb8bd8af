// Package prefs persists learned per-user routing preferences. One record
// exists per (user, task family); records change only on explicit user
// signals and every mutation is flushed to disk before it is acknowledged.
package prefs

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"

	"github.com/lamplight-ai/djinn/pkg/classify"
)

// Record is a learned preference for one (user, task family) pair.
type Record struct {
	UserID       string
	Family       classify.TaskFamily
	VariantID    string
	SupportCount int
	LastUpdated  time.Time
}

// fileRecord is the on-disk shape, nested under user and family keys.
type fileRecord struct {
	PreferredVariantID string    `yaml:"preferred_variant_id"`
	SupportCount       int       `yaml:"support_count"`
	LastUpdated        time.Time `yaml:"last_updated"`
}

// PersistError reports a failed flush. The in-memory state is rolled back
// so the next mutation retries the write.
type PersistError struct {
	Path string
	Err  error
}

func (e *PersistError) Error() string {
	return fmt.Sprintf("prefs: persist %s: %v", e.Path, e.Err)
}

func (e *PersistError) Unwrap() error { return e.Err }

// Store is the durable preference store. Writes are serialized through a
// single mutex; reads may run concurrently.
type Store struct {
	path   string
	logger zerolog.Logger

	mu   sync.RWMutex
	data map[string]map[string]fileRecord // user -> family -> record
}

// Open loads the preference file at path, creating state for a missing file.
func Open(path string, logger zerolog.Logger) (*Store, error) {
	s := &Store{
		path:   path,
		logger: logger,
		data:   make(map[string]map[string]fileRecord),
	}

	raw, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return s, nil
	}
	if err != nil {
		return nil, err
	}
	if err := yaml.Unmarshal(raw, &s.data); err != nil {
		return nil, fmt.Errorf("prefs: parse %s: %w", path, err)
	}
	if s.data == nil {
		s.data = make(map[string]map[string]fileRecord)
	}
	return s, nil
}

// Get returns the preference for (user, family), if one exists.
func (s *Store) Get(userID string, family classify.TaskFamily) (Record, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	families, ok := s.data[userID]
	if !ok {
		return Record{}, false
	}
	rec, ok := families[string(family)]
	if !ok {
		return Record{}, false
	}
	return Record{
		UserID:       userID,
		Family:       family,
		VariantID:    rec.PreferredVariantID,
		SupportCount: rec.SupportCount,
		LastUpdated:  rec.LastUpdated,
	}, true
}

// RecordOverride applies a user's variant choice. A choice matching the
// existing preference increments its support count. A differing choice
// replaces the preference only when the user confirmed "remember this", and
// resets support to 1. Without confirmation a differing choice changes
// nothing here (history still logs the override).
func (s *Store) RecordOverride(userID string, family classify.TaskFamily, chosenVariantID string, remember bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	families := s.data[userID]
	existing, exists := families[string(family)]

	switch {
	case exists && existing.PreferredVariantID == chosenVariantID:
		existing.SupportCount++
	case remember:
		existing = fileRecord{PreferredVariantID: chosenVariantID, SupportCount: 1}
	default:
		return nil
	}
	existing.LastUpdated = time.Now().UTC()

	if families == nil {
		families = make(map[string]fileRecord)
		s.data[userID] = families
	}
	previous, hadPrevious := families[string(family)]
	families[string(family)] = existing

	if err := s.flushLocked(); err != nil {
		// Roll back so the next mutation retries the persist.
		if hadPrevious {
			families[string(family)] = previous
		} else {
			delete(families, string(family))
		}
		s.logger.Error().Err(err).Str("user", userID).Str("family", string(family)).Msg("preference persist failed")
		return &PersistError{Path: s.path, Err: err}
	}
	return nil
}

// List returns the user's preferences sorted by family name.
func (s *Store) List(userID string) []Record {
	s.mu.RLock()
	defer s.mu.RUnlock()

	families := s.data[userID]
	names := make([]string, 0, len(families))
	for name := range families {
		names = append(names, name)
	}
	sort.Strings(names)

	records := make([]Record, 0, len(names))
	for _, name := range names {
		rec := families[name]
		records = append(records, Record{
			UserID:       userID,
			Family:       classify.TaskFamily(name),
			VariantID:    rec.PreferredVariantID,
			SupportCount: rec.SupportCount,
			LastUpdated:  rec.LastUpdated,
		})
	}
	return records
}

// Clear removes the preference for (user, family).
func (s *Store) Clear(userID string, family classify.TaskFamily) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	families, ok := s.data[userID]
	if !ok {
		return nil
	}
	previous, hadPrevious := families[string(family)]
	if !hadPrevious {
		return nil
	}
	delete(families, string(family))
	if len(families) == 0 {
		delete(s.data, userID)
	}

	if err := s.flushLocked(); err != nil {
		if s.data[userID] == nil {
			s.data[userID] = make(map[string]fileRecord)
		}
		s.data[userID][string(family)] = previous
		return &PersistError{Path: s.path, Err: err}
	}
	return nil
}

// flushLocked rewrites the file atomically: temp file in the same
// directory, fsync, then rename over the target.
func (s *Store) flushLocked() error {
	data, err := yaml.Marshal(s.data)
	if err != nil {
		return err
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, ".prefs-*.yaml")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName)
		return err
	}
	return nil
}
