package state

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"qdrantloader/internal/model"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "state.db")
	s, err := Open(path, 1)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestUpsertAndGet(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := openTestStore(t)

	st := model.IngestionState{
		DocumentID:   "doc-1",
		ProjectID:    "default",
		SourceType:   "git",
		Source:       "main-repo",
		ContentHash:  "abc123",
		LastIngestAt: "2026-07-31T00:00:00Z",
		LastKnownURL: "https://example.com/file.md",
	}
	require.NoError(t, s.Upsert(ctx, st))

	got, ok, err := s.Get(ctx, "doc-1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, st.ContentHash, got.ContentHash)
	assert.Equal(t, st.LastKnownURL, got.LastKnownURL)
}

func TestGetMissingReturnsFalse(t *testing.T) {
	t.Parallel()
	s := openTestStore(t)
	_, ok, err := s.Get(context.Background(), "nope")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestUpsertOverwritesExisting(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := openTestStore(t)

	require.NoError(t, s.Upsert(ctx, model.IngestionState{DocumentID: "doc-1", ProjectID: "p", SourceType: "git", Source: "r", ContentHash: "v1", LastIngestAt: "t1"}))
	require.NoError(t, s.Upsert(ctx, model.IngestionState{DocumentID: "doc-1", ProjectID: "p", SourceType: "git", Source: "r", ContentHash: "v2", LastIngestAt: "t2"}))

	got, ok, err := s.Get(ctx, "doc-1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "v2", got.ContentHash)
}

func TestDeleteRemovesRow(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := openTestStore(t)

	require.NoError(t, s.Upsert(ctx, model.IngestionState{DocumentID: "doc-1", ProjectID: "p", SourceType: "git", Source: "r", ContentHash: "v1", LastIngestAt: "t1"}))
	require.NoError(t, s.Delete(ctx, "doc-1"))

	_, ok, err := s.Get(ctx, "doc-1")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestListBySourceFiltersByScope(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := openTestStore(t)

	require.NoError(t, s.Upsert(ctx, model.IngestionState{DocumentID: "a", ProjectID: "p1", SourceType: "git", Source: "repo1", ContentHash: "h", LastIngestAt: "t"}))
	require.NoError(t, s.Upsert(ctx, model.IngestionState{DocumentID: "b", ProjectID: "p1", SourceType: "git", Source: "repo1", ContentHash: "h", LastIngestAt: "t"}))
	require.NoError(t, s.Upsert(ctx, model.IngestionState{DocumentID: "c", ProjectID: "p1", SourceType: "git", Source: "repo2", ContentHash: "h", LastIngestAt: "t"}))

	list, err := s.ListBySource(ctx, "p1", "git", "repo1")
	require.NoError(t, err)
	assert.Len(t, list, 2)
}

func TestPing(t *testing.T) {
	t.Parallel()
	s := openTestStore(t)
	assert.NoError(t, s.Ping(context.Background()))
}
