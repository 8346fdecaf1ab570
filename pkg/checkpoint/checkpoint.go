// Package checkpoint persists completed match runs so an interrupted
// batch can resume without re-paying for embedding and generative calls
// already made for finished programs.
package checkpoint

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/openincentives/matchengine/pkg/types"
)

// ErrInvalidTargetID is returned when a target ID contains invalid characters
var ErrInvalidTargetID = errors.New("invalid target ID: contains path traversal or invalid characters")

// Status of a checkpointed run.
type Status string

const (
	StatusPending   Status = "pending"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// RunCheckpoint records the outcome of one program's match run.
type RunCheckpoint struct {
	TargetID      string    `json:"target_id"`
	Status        Status    `json:"status"`
	CreatedAt     time.Time `json:"created_at"`
	LastUpdatedAt time.Time `json:"last_updated_at"`
	AttemptCount  int       `json:"attempt_count"`
	LastError     string    `json:"last_error,omitempty"`

	// Run holds the full result for completed checkpoints so a resumed
	// batch can emit it without recomputing.
	Run *types.MatchRun `json:"run,omitempty"`
}

// NewRunCheckpoint creates a pending checkpoint for a target.
func NewRunCheckpoint(targetID string) *RunCheckpoint {
	now := time.Now()
	return &RunCheckpoint{
		TargetID:      targetID,
		Status:        StatusPending,
		CreatedAt:     now,
		LastUpdatedAt: now,
	}
}

// MarkCompleted records a finished run.
func (c *RunCheckpoint) MarkCompleted(run *types.MatchRun) {
	c.Status = StatusCompleted
	c.Run = run
	c.LastError = ""
}

// MarkFailed records a failed attempt.
func (c *RunCheckpoint) MarkFailed(err error) {
	c.Status = StatusFailed
	c.AttemptCount++
	if err != nil {
		c.LastError = err.Error()
	}
}

// CanRetry reports whether a failed checkpoint should be attempted again.
func (c *RunCheckpoint) CanRetry(maxAttempts int, maxAge time.Duration) bool {
	if c.Status == StatusCompleted {
		return false
	}
	if c.AttemptCount >= maxAttempts {
		return false
	}
	return time.Since(c.CreatedAt) <= maxAge
}

// Store persists checkpoints as JSON files, one per target.
type Store struct {
	dir string
}

// NewStore creates the checkpoint directory if needed. An empty dir
// defaults to a subdirectory of the system temp directory.
func NewStore(dir string) (*Store, error) {
	if dir == "" {
		dir = filepath.Join(os.TempDir(), "matchengine-checkpoints")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create checkpoint directory: %w", err)
	}
	return &Store{dir: dir}, nil
}

// Dir returns the directory checkpoints are stored in.
func (s *Store) Dir() string {
	return s.dir
}

// validateTargetID checks that the target ID is safe for use in file paths.
// It rejects IDs containing path separators, path traversal sequences, or
// null bytes.
func validateTargetID(targetID string) error {
	if targetID == "" {
		return ErrInvalidTargetID
	}
	if strings.Contains(targetID, "..") {
		return ErrInvalidTargetID
	}
	if strings.ContainsAny(targetID, `/\`) {
		return ErrInvalidTargetID
	}
	if strings.ContainsRune(targetID, '\x00') {
		return ErrInvalidTargetID
	}
	return nil
}

// isPathWithinDirectory checks that the resolved path stays inside the
// store directory. Defense-in-depth against path traversal.
func isPathWithinDirectory(path, directory string) bool {
	cleanPath := filepath.Clean(path)
	cleanDir := filepath.Clean(directory)
	if !strings.HasSuffix(cleanDir, string(filepath.Separator)) {
		cleanDir += string(filepath.Separator)
	}
	return strings.HasPrefix(cleanPath, cleanDir) || cleanPath == filepath.Clean(directory)
}

// path returns the checkpoint file path for a target.
func (s *Store) path(targetID string) (string, error) {
	if err := validateTargetID(targetID); err != nil {
		return "", err
	}
	fullPath := filepath.Join(s.dir, fmt.Sprintf("run_%s.json", targetID))
	if !isPathWithinDirectory(fullPath, s.dir) {
		return "", ErrInvalidTargetID
	}
	return fullPath, nil
}

// Save persists the checkpoint. Writes go to a temporary file first and
// are renamed into place so a crash never leaves a torn checkpoint.
func (s *Store) Save(checkpoint *RunCheckpoint) error {
	checkpoint.LastUpdatedAt = time.Now()

	data, err := json.MarshalIndent(checkpoint, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal checkpoint: %w", err)
	}

	path, err := s.path(checkpoint.TargetID)
	if err != nil {
		return err
	}

	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0o644); err != nil {
		return fmt.Errorf("failed to write checkpoint file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("failed to rename checkpoint file: %w", err)
	}
	return nil
}

// Load retrieves a checkpoint, returning nil without error when none
// exists for the target.
func (s *Store) Load(targetID string) (*RunCheckpoint, error) {
	path, err := s.path(targetID)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read checkpoint file: %w", err)
	}

	var checkpoint RunCheckpoint
	if err := json.Unmarshal(data, &checkpoint); err != nil {
		return nil, fmt.Errorf("failed to unmarshal checkpoint: %w", err)
	}
	return &checkpoint, nil
}

// Delete removes a checkpoint. Missing checkpoints are not an error.
func (s *Store) Delete(targetID string) error {
	path, err := s.path(targetID)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete checkpoint file: %w", err)
	}
	return nil
}

// List returns all checkpoints in the store.
func (s *Store) List() ([]*RunCheckpoint, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read checkpoint directory: %w", err)
	}

	var checkpoints []*RunCheckpoint
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasPrefix(name, "run_") || !strings.HasSuffix(name, ".json") {
			continue
		}
		data, err := os.ReadFile(filepath.Join(s.dir, name))
		if err != nil {
			return nil, fmt.Errorf("failed to read checkpoint %s: %w", name, err)
		}
		var checkpoint RunCheckpoint
		if err := json.Unmarshal(data, &checkpoint); err != nil {
			return nil, fmt.Errorf("failed to unmarshal checkpoint %s: %w", name, err)
		}
		checkpoints = append(checkpoints, &checkpoint)
	}
	return checkpoints, nil
}

// CleanOld removes checkpoints whose last update is older than maxAge,
// returning the number removed.
func (s *Store) CleanOld(maxAge time.Duration) (int, error) {
	checkpoints, err := s.List()
	if err != nil {
		return 0, err
	}

	removed := 0
	cutoff := time.Now().Add(-maxAge)
	for _, checkpoint := range checkpoints {
		if checkpoint.LastUpdatedAt.Before(cutoff) {
			if err := s.Delete(checkpoint.TargetID); err != nil {
				return removed, err
			}
			removed++
		}
	}
	return removed, nil
}
