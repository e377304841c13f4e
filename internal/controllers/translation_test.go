package controllers

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/Florenz0707/NASSAV-sub000/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeTranslator upper-cases titles and fails on any containing "fail"
type fakeTranslator struct {
	batches [][]string
}

func (f *fakeTranslator) Translate(_ context.Context, text string) (string, bool) {
	if strings.Contains(text, "fail") {
		return "", false
	}
	return strings.ToUpper(text), true
}

func (f *fakeTranslator) BatchTranslate(ctx context.Context, texts []string) []*string {
	f.batches = append(f.batches, texts)
	out := make([]*string, len(texts))
	for i, t := range texts {
		if s, ok := f.Translate(ctx, t); ok {
			out[i] = &s
		}
	}
	return out
}

func seedMedia(t *testing.T, db *models.Database, identifier, sourceTitle, enrichedTitle string) {
	t.Helper()
	require.NoError(t, db.CreateMedia(context.Background(), &models.MediaRecord{
		Identifier:        identifier,
		SourceTitle:       sourceTitle,
		EnrichedTitle:     enrichedTitle,
		TranslationStatus: models.TranslationPending,
	}, nil, nil))
}

func TestTranslateRecord(t *testing.T) {
	db := newTestDatabase(t)
	ctrl := NewTranslationController(db, &fakeTranslator{}, quietLogger())
	ctx := context.Background()

	seedMedia(t, db, "ABC-123", "ABC-123 source", "enriched title")
	require.NoError(t, ctrl.TranslateRecord(ctx, "ABC-123"))

	media, err := db.GetMedia(ctx, "ABC-123")
	require.NoError(t, err)
	assert.Equal(t, models.TranslationCompleted, media.TranslationStatus)
	require.NotNil(t, media.TranslatedTitle)
	assert.Equal(t, "ENRICHED TITLE", *media.TranslatedTitle)
}

func TestTranslateRecordFailure(t *testing.T) {
	db := newTestDatabase(t)
	ctrl := NewTranslationController(db, &fakeTranslator{}, quietLogger())
	ctx := context.Background()

	seedMedia(t, db, "ABC-123", "ABC-123 will fail", "")
	assert.Error(t, ctrl.TranslateRecord(ctx, "ABC-123"))

	media, err := db.GetMedia(ctx, "ABC-123")
	require.NoError(t, err)
	assert.Equal(t, models.TranslationFailed, media.TranslationStatus)
	assert.Nil(t, media.TranslatedTitle)
}

func TestTranslateRecordWithoutTitleIsSkipped(t *testing.T) {
	db := newTestDatabase(t)
	ctrl := NewTranslationController(db, &fakeTranslator{}, quietLogger())
	ctx := context.Background()

	seedMedia(t, db, "ABC-123", "ABC-123", "")
	require.NoError(t, ctrl.TranslateRecord(ctx, "ABC-123"))

	media, err := db.GetMedia(ctx, "ABC-123")
	require.NoError(t, err)
	assert.Equal(t, models.TranslationSkipped, media.TranslationStatus)
}

func TestTranslatePending(t *testing.T) {
	db := newTestDatabase(t)
	translator := &fakeTranslator{}
	ctrl := NewTranslationController(db, translator, quietLogger())
	ctx := context.Background()

	seedMedia(t, db, "ABC-001", "ABC-001 one", "")
	seedMedia(t, db, "ABC-002", "ABC-002 fail", "")
	seedMedia(t, db, "ABC-003", "ABC-003", "")

	completed, err := ctrl.TranslatePending(ctx, 10)
	require.NoError(t, err)
	assert.Equal(t, 1, completed)
	require.Len(t, translator.batches, 1)
	assert.Len(t, translator.batches[0], 2)

	counts, err := db.CountByTranslationStatus(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), counts[models.TranslationCompleted])
	assert.Equal(t, int64(1), counts[models.TranslationFailed])
	assert.Equal(t, int64(1), counts[models.TranslationSkipped])

	// failed records are picked up again by the next sweep
	_, err = ctrl.TranslatePending(ctx, 10)
	require.NoError(t, err)
	require.Len(t, translator.batches, 2)
	assert.Equal(t, []string{"ABC-002 fail"}, translator.batches[1])
}

func TestTranslatePendingTakesOverStaleTranslations(t *testing.T) {
	db := newTestDatabase(t)
	translator := &fakeTranslator{}
	ctrl := NewTranslationController(db, translator, quietLogger())
	ctx := context.Background()

	seedMedia(t, db, "ABC-001", "ABC-001 interrupted", "")
	require.NoError(t, db.UpdateTranslation(ctx, "ABC-001", models.TranslationTranslating, nil))

	// a translation that just started belongs to its worker
	completed, err := ctrl.TranslatePending(ctx, 10)
	require.NoError(t, err)
	assert.Equal(t, 0, completed)
	assert.Empty(t, translator.batches)

	ctrl.now = func() time.Time { return time.Now().Add(staleTranslationAfter + time.Minute) }
	completed, err = ctrl.TranslatePending(ctx, 10)
	require.NoError(t, err)
	assert.Equal(t, 1, completed)
	require.Len(t, translator.batches, 1)
	assert.Equal(t, []string{"ABC-001 interrupted"}, translator.batches[0])

	media, err := db.GetMedia(ctx, "ABC-001")
	require.NoError(t, err)
	assert.Equal(t, models.TranslationCompleted, media.TranslationStatus)
	require.NotNil(t, media.TranslatedTitle)
	assert.Equal(t, "ABC-001 INTERRUPTED", *media.TranslatedTitle)
}

func TestTranslatePendingRespectsLimitWithStaleRecords(t *testing.T) {
	db := newTestDatabase(t)
	translator := &fakeTranslator{}
	ctrl := NewTranslationController(db, translator, quietLogger())
	ctrl.now = func() time.Time { return time.Now().Add(staleTranslationAfter + time.Minute) }
	ctx := context.Background()

	seedMedia(t, db, "ABC-001", "ABC-001 pending", "")
	seedMedia(t, db, "ABC-002", "ABC-002 stuck", "")
	require.NoError(t, db.UpdateTranslation(ctx, "ABC-002", models.TranslationTranslating, nil))

	_, err := ctrl.TranslatePending(ctx, 1)
	require.NoError(t, err)
	require.Len(t, translator.batches, 1)
	assert.Equal(t, []string{"ABC-001 pending"}, translator.batches[0])
}
