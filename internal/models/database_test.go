package models

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestDatabase(t *testing.T) *Database {
	t.Helper()
	db, err := NewDatabase(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestCreateMediaConflict(t *testing.T) {
	db := newTestDatabase(t)
	ctx := context.Background()

	media := &MediaRecord{Identifier: "ABC-123", SourceTitle: "ABC-123 first", SourceName: "missav"}
	require.NoError(t, db.CreateMedia(ctx, media, []ActorInput{{Name: "Alice"}}, []string{"Drama"}))

	err := db.CreateMedia(ctx, &MediaRecord{Identifier: "ABC-123"}, nil, nil)
	assert.ErrorIs(t, err, ErrConflict)

	got, err := db.GetMedia(ctx, "ABC-123")
	require.NoError(t, err)
	assert.Equal(t, "ABC-123 first", got.SourceTitle)
	assert.Equal(t, TranslationPending, got.TranslationStatus)
	require.Len(t, got.Actors, 1)
	assert.Equal(t, "Alice", got.Actors[0].Name)
	require.Len(t, got.Genres, 1)
}

func TestUpdateMediaMetadataPreservesFileAndTranslation(t *testing.T) {
	db := newTestDatabase(t)
	ctx := context.Background()

	require.NoError(t, db.CreateMedia(ctx, &MediaRecord{Identifier: "ABC-123", SourceTitle: "ABC-123 old", SourceName: "jable"},
		[]ActorInput{{Name: "Alice"}, {Name: "Bob"}}, []string{"Drama"}))

	size := int64(1024)
	saved := time.Now().Truncate(time.Second)
	require.NoError(t, db.UpdateFileState(ctx, "ABC-123", true, &size, &saved))
	translated := "translated"
	require.NoError(t, db.UpdateTranslation(ctx, "ABC-123", TranslationCompleted, &translated))

	update := &MediaRecord{Identifier: "ABC-123", SourceTitle: "ABC-123 new", SourceName: "jable", DurationSeconds: 600}
	require.NoError(t, db.UpdateMediaMetadata(ctx, update, []ActorInput{{Name: "Carol"}}, nil))

	got, err := db.GetMedia(ctx, "ABC-123")
	require.NoError(t, err)
	assert.Equal(t, "ABC-123 new", got.SourceTitle)
	assert.Equal(t, 600, got.DurationSeconds)
	assert.True(t, got.FileExists)
	require.NotNil(t, got.FileSizeBytes)
	assert.Equal(t, int64(1024), *got.FileSizeBytes)
	require.NotNil(t, got.VideoSavedAt)
	assert.Equal(t, TranslationCompleted, got.TranslationStatus)
	require.NotNil(t, got.TranslatedTitle)
	assert.Equal(t, "translated", *got.TranslatedTitle)
	require.Len(t, got.Actors, 1)
	assert.Equal(t, "Carol", got.Actors[0].Name)
	assert.Empty(t, got.Genres)
}

func TestUpdateMediaMetadataMissing(t *testing.T) {
	db := newTestDatabase(t)
	err := db.UpdateMediaMetadata(context.Background(), &MediaRecord{Identifier: "XYZ-001"}, nil, nil)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDeleteMedia(t *testing.T) {
	db := newTestDatabase(t)
	ctx := context.Background()

	require.NoError(t, db.CreateMedia(ctx, &MediaRecord{Identifier: "ABC-123"}, []ActorInput{{Name: "Alice"}}, []string{"Drama"}))
	require.NoError(t, db.DeleteMedia(ctx, "ABC-123"))

	exists, err := db.MediaExists(ctx, "ABC-123")
	require.NoError(t, err)
	assert.False(t, exists)

	assert.ErrorIs(t, db.DeleteMedia(ctx, "ABC-123"), ErrNotFound)

	_, err = db.GetMedia(ctx, "ABC-123")
	assert.ErrorIs(t, err, ErrNotFound)

	// actors outlive the media they appeared in
	actors, err := db.ListActors(ctx)
	require.NoError(t, err)
	assert.Len(t, actors, 1)
}

func TestCountByTranslationStatus(t *testing.T) {
	db := newTestDatabase(t)
	ctx := context.Background()

	require.NoError(t, db.CreateMedia(ctx, &MediaRecord{Identifier: "A-1", TranslationStatus: TranslationPending}, nil, nil))
	require.NoError(t, db.CreateMedia(ctx, &MediaRecord{Identifier: "A-2", TranslationStatus: TranslationSkipped}, nil, nil))
	require.NoError(t, db.CreateMedia(ctx, &MediaRecord{Identifier: "A-3", TranslationStatus: TranslationPending}, nil, nil))

	counts, err := db.CountByTranslationStatus(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), counts[TranslationPending])
	assert.Equal(t, int64(1), counts[TranslationSkipped])

	pending, err := db.ListMediaByTranslationStatus(ctx, []TranslationStatus{TranslationPending}, 0)
	require.NoError(t, err)
	assert.Len(t, pending, 2)
}

func TestListStaleTranslating(t *testing.T) {
	db := newTestDatabase(t)
	ctx := context.Background()

	for _, id := range []string{"ABC-001", "ABC-002", "ABC-003"} {
		require.NoError(t, db.CreateMedia(ctx, &MediaRecord{Identifier: id, TranslationStatus: TranslationPending}, nil, nil))
	}
	require.NoError(t, db.UpdateTranslation(ctx, "ABC-001", TranslationTranslating, nil))
	require.NoError(t, db.UpdateTranslation(ctx, "ABC-002", TranslationFailed, nil))

	// a record left translating without a timestamp counts as stale
	require.NoError(t, db.db.Model(&MediaRecord{}).Where("identifier = ?", "ABC-003").
		Updates(map[string]interface{}{"translation_status": TranslationTranslating, "translation_updated_at": nil}).Error)

	stale, err := db.ListStaleTranslating(ctx, time.Now().Add(-time.Minute), 0)
	require.NoError(t, err)
	require.Len(t, stale, 1)
	assert.Equal(t, "ABC-003", stale[0].Identifier)

	stale, err = db.ListStaleTranslating(ctx, time.Now().Add(time.Minute), 0)
	require.NoError(t, err)
	assert.Len(t, stale, 2)

	stale, err = db.ListStaleTranslating(ctx, time.Now().Add(time.Minute), 1)
	require.NoError(t, err)
	assert.Len(t, stale, 1)
}

func TestSourceCookies(t *testing.T) {
	db := newTestDatabase(t)
	ctx := context.Background()

	require.NoError(t, db.SaveSourceCookie(ctx, "missav", "a=1"))
	require.NoError(t, db.SaveSourceCookie(ctx, "missav", "a=2"))
	require.NoError(t, db.SaveSourceCookie(ctx, "jable", "b=1"))

	cookies, err := db.LoadSourceCookies(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"missav": "a=2", "jable": "b=1"}, cookies)
}

func TestKind(t *testing.T) {
	assert.Equal(t, "", Kind(nil))
	assert.Equal(t, "not_found", Kind(ErrNotFound))
	assert.Equal(t, "lock_timeout", Kind(ErrLockTimeout))
	assert.Equal(t, "internal", Kind(assert.AnError))
}
