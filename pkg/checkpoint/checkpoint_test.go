package checkpoint

import (
	"encoding/json"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openincentives/matchengine/pkg/types"
)

func newStore(t *testing.T) *Store {
	t.Helper()
	store, err := NewStore(t.TempDir())
	require.NoError(t, err)
	return store
}

func TestSaveAndLoad(t *testing.T) {
	store := newStore(t)

	cp := NewRunCheckpoint("prog-1")
	cp.MarkCompleted(&types.MatchRun{
		ID:       "run-1",
		TargetID: "prog-1",
		Records: []types.ScoreRecord{
			{CandidateID: "org-1", Rank: 1, CombinedScore: 0.9},
		},
	})
	require.NoError(t, store.Save(cp))

	loaded, err := store.Load("prog-1")
	require.NoError(t, err)
	require.NotNil(t, loaded)
	assert.Equal(t, StatusCompleted, loaded.Status)
	require.NotNil(t, loaded.Run)
	assert.Equal(t, "run-1", loaded.Run.ID)
	require.Len(t, loaded.Run.Records, 1)
	assert.Equal(t, "org-1", loaded.Run.Records[0].CandidateID)
}

func TestLoadMissingReturnsNil(t *testing.T) {
	store := newStore(t)

	loaded, err := store.Load("absent")
	require.NoError(t, err)
	assert.Nil(t, loaded)
}

func TestMarkFailedTracksAttempts(t *testing.T) {
	cp := NewRunCheckpoint("prog-1")
	cp.MarkFailed(errors.New("embed timeout"))
	cp.MarkFailed(errors.New("embed timeout"))

	assert.Equal(t, StatusFailed, cp.Status)
	assert.Equal(t, 2, cp.AttemptCount)
	assert.Equal(t, "embed timeout", cp.LastError)
}

func TestCanRetry(t *testing.T) {
	cp := NewRunCheckpoint("prog-1")
	cp.MarkFailed(errors.New("boom"))
	assert.True(t, cp.CanRetry(3, time.Hour))
	assert.False(t, cp.CanRetry(1, time.Hour))

	cp.CreatedAt = time.Now().Add(-2 * time.Hour)
	assert.False(t, cp.CanRetry(3, time.Hour))

	done := NewRunCheckpoint("prog-2")
	done.MarkCompleted(&types.MatchRun{ID: "run-2", TargetID: "prog-2"})
	assert.False(t, done.CanRetry(3, time.Hour))
}

func TestInvalidTargetIDs(t *testing.T) {
	store := newStore(t)

	for _, id := range []string{"", "../escape", "a/b", `a\b`, "nul\x00byte"} {
		_, err := store.Load(id)
		assert.ErrorIs(t, err, ErrInvalidTargetID, "id %q", id)
	}
}

func TestDeleteIdempotent(t *testing.T) {
	store := newStore(t)

	cp := NewRunCheckpoint("prog-1")
	require.NoError(t, store.Save(cp))
	require.NoError(t, store.Delete("prog-1"))
	require.NoError(t, store.Delete("prog-1"))

	loaded, err := store.Load("prog-1")
	require.NoError(t, err)
	assert.Nil(t, loaded)
}

func TestList(t *testing.T) {
	store := newStore(t)

	require.NoError(t, store.Save(NewRunCheckpoint("prog-1")))
	require.NoError(t, store.Save(NewRunCheckpoint("prog-2")))

	checkpoints, err := store.List()
	require.NoError(t, err)
	assert.Len(t, checkpoints, 2)
}

func TestCleanOld(t *testing.T) {
	store := newStore(t)

	old := NewRunCheckpoint("prog-old")
	old.LastUpdatedAt = time.Now().Add(-48 * time.Hour)
	// Bypass Save to keep the stale timestamp.
	data, err := json.MarshalIndent(old, "", "  ")
	require.NoError(t, err)
	path, err := store.path("prog-old")
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, data, 0o644))

	require.NoError(t, store.Save(NewRunCheckpoint("prog-new")))

	removed, err := store.CleanOld(24 * time.Hour)
	require.NoError(t, err)
	assert.Equal(t, 1, removed)

	remaining, err := store.List()
	require.NoError(t, err)
	require.Len(t, remaining, 1)
	assert.Equal(t, "prog-new", remaining[0].TargetID)
}
