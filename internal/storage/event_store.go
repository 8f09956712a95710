// Package storage is the reference checkpoint sink (SPEC_FULL.md §6):
// save(thread_id, state_snapshot) / load(thread_id) -> state_snapshot?,
// persisting one JSON file per event; no separate state snapshot file is
// written.
// Grounded on the teacher's internal/adapters/storage/filesystem package.
package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"deepresearch/internal/domainevents"
)

// CheckpointSink is the optional collaborator the run coordinator saves
// to after each stage boundary (SPEC_FULL.md §6).
type CheckpointSink interface {
	Save(ctx context.Context, threadID string, events []domainevents.Event, expectedVersion int) error
	Load(ctx context.Context, threadID string) ([]domainevents.Event, error)
}

// FilesystemStore implements CheckpointSink as one JSON file per event
// under <baseDir>/<threadID>/events/NNNNNN_<type>.json.
type FilesystemStore struct {
	baseDir string
}

// NewFilesystemStore creates a filesystem checkpoint sink rooted at baseDir.
func NewFilesystemStore(baseDir string) *FilesystemStore {
	_ = os.MkdirAll(baseDir, 0755)
	return &FilesystemStore{baseDir: baseDir}
}

func (s *FilesystemStore) eventDir(threadID string) string {
	return filepath.Join(s.baseDir, threadID, "events")
}

// Save appends newEvents to threadID's stream, enforcing optimistic
// concurrency against expectedVersion the way the teacher's EventStore does.
func (s *FilesystemStore) Save(ctx context.Context, threadID string, newEvents []domainevents.Event, expectedVersion int) error {
	dir := s.eventDir(threadID)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create event dir: %w", err)
	}

	existing, err := s.Load(ctx, threadID)
	if err != nil {
		return err
	}
	currentVersion := 0
	if len(existing) > 0 {
		currentVersion = existing[len(existing)-1].GetVersion()
	}
	if expectedVersion > 0 && currentVersion != expectedVersion {
		return fmt.Errorf("version conflict: expected %d, got %d", expectedVersion, currentVersion)
	}

	for _, event := range newEvents {
		filename := fmt.Sprintf("%06d_%s.json", event.GetVersion(), sanitizeFilename(event.GetType()))
		path := filepath.Join(dir, filename)

		data, err := json.MarshalIndent(event, "", "  ")
		if err != nil {
			return fmt.Errorf("marshal event: %w", err)
		}
		if err := os.WriteFile(path, data, 0644); err != nil {
			return fmt.Errorf("write event: %w", err)
		}
	}
	return nil
}

// Load retrieves the full event stream for threadID in version order.
func (s *FilesystemStore) Load(ctx context.Context, threadID string) ([]domainevents.Event, error) {
	dir := s.eventDir(threadID)

	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })

	var result []domainevents.Event
	for _, entry := range entries {
		if !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read event %s: %w", entry.Name(), err)
		}
		event, err := deserializeEvent(data)
		if err != nil {
			return nil, fmt.Errorf("deserialize event %s: %w", entry.Name(), err)
		}
		result = append(result, event)
	}
	return result, nil
}

func sanitizeFilename(s string) string {
	return strings.ReplaceAll(s, ".", "_")
}
