package controllers

import (
	"context"
	"net/http"
	"os"
	"testing"

	"github.com/Florenz0707/NASSAV-sub000/internal/models"
	"github.com/Florenz0707/NASSAV-sub000/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type reconcileFixture struct {
	db     *models.Database
	layout *storage.Layout
	images string
	r      *Reconciler
}

func newReconcileFixture(t *testing.T) *reconcileFixture {
	t.Helper()
	f := &reconcileFixture{
		db:     newTestDatabase(t),
		layout: newTestLayout(t),
		images: newImageServer(t).URL,
	}
	f.r = NewReconciler(f.db, f.layout, storage.NewAssetFetcher(http.DefaultClient, quietLogger()), quietLogger())
	return f
}

func (f *reconcileFixture) seed(t *testing.T, media *models.MediaRecord, actors ...models.ActorInput) {
	t.Helper()
	require.NoError(t, f.db.CreateMedia(context.Background(), media, actors, nil))
}

func (f *reconcileFixture) writeFile(t *testing.T, path string, data []byte) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, data, 0644))
}

func TestCheckFiles(t *testing.T) {
	f := newReconcileFixture(t)
	ctx := context.Background()

	size := int64(3)
	wrong := int64(99)
	f.seed(t, &models.MediaRecord{Identifier: "OK-001", FileExists: true, FileSizeBytes: &size})
	f.seed(t, &models.MediaRecord{Identifier: "MISS-001", FileExists: true, FileSizeBytes: &size})
	f.seed(t, &models.MediaRecord{Identifier: "NEW-001"})
	f.seed(t, &models.MediaRecord{Identifier: "SIZE-001", FileExists: true, FileSizeBytes: &wrong})
	f.writeFile(t, f.layout.VideoPath("OK-001"), []byte("abc"))
	f.writeFile(t, f.layout.VideoPath("NEW-001"), []byte("abcd"))
	f.writeFile(t, f.layout.VideoPath("SIZE-001"), []byte("abcde"))

	// a dry run changes nothing
	report, err := f.r.Run(ctx, CheckFiles, ReconcileOptions{})
	require.NoError(t, err)
	assert.Equal(t, 4, report.Scanned)
	assert.Equal(t, map[string]int{
		CategoryOK:            1,
		CategoryMissingFile:   1,
		CategoryUntrackedFile: 1,
		CategorySizeMismatch:  1,
	}, report.Counts)
	assert.Zero(t, report.Fixed)
	assert.Len(t, report.Samples, 3)

	media, err := f.db.GetMedia(ctx, "MISS-001")
	require.NoError(t, err)
	assert.True(t, media.FileExists)

	report, err = f.r.Run(ctx, CheckFiles, ReconcileOptions{Apply: true})
	require.NoError(t, err)
	assert.Equal(t, 3, report.Fixed)

	media, err = f.db.GetMedia(ctx, "NEW-001")
	require.NoError(t, err)
	assert.True(t, media.FileExists)
	require.NotNil(t, media.FileSizeBytes)
	assert.Equal(t, int64(4), *media.FileSizeBytes)

	// running again on the repaired state fixes nothing
	report, err = f.r.Run(ctx, CheckFiles, ReconcileOptions{Apply: true})
	require.NoError(t, err)
	assert.Zero(t, report.Fixed)
	assert.Equal(t, 4, report.Counts[CategoryOK])
}

func TestCheckCovers(t *testing.T) {
	f := newReconcileFixture(t)
	ctx := context.Background()

	f.seed(t, &models.MediaRecord{Identifier: "OK-001", CoverFilename: "OK-001.jpg"})
	f.seed(t, &models.MediaRecord{Identifier: "GONE-001", CoverFilename: "GONE-001.jpg"})
	f.seed(t, &models.MediaRecord{Identifier: "UNT-001"})
	f.writeFile(t, f.layout.CoverPath("OK-001.jpg"), []byte("x"))
	f.writeFile(t, f.layout.CoverPath("UNT-001.jpg"), []byte("x"))

	report, err := f.r.Run(ctx, CheckCovers, ReconcileOptions{Apply: true})
	require.NoError(t, err)
	assert.Equal(t, 1, report.Counts[CategoryOK])
	assert.Equal(t, 1, report.Counts[CategoryMissingCover])
	assert.Equal(t, 1, report.Counts[CategoryUntrackedCover])
	assert.Equal(t, 2, report.Fixed)

	media, err := f.db.GetMedia(ctx, "UNT-001")
	require.NoError(t, err)
	assert.Equal(t, "UNT-001.jpg", media.CoverFilename)

	report, err = f.r.Run(ctx, CheckCovers, ReconcileOptions{Apply: true})
	require.NoError(t, err)
	assert.Zero(t, report.Fixed)
}

func TestCheckThumbnails(t *testing.T) {
	f := newReconcileFixture(t)
	ctx := context.Background()

	f.seed(t, &models.MediaRecord{Identifier: "ABC-123", CoverFilename: "ABC-123.jpg"})
	f.seed(t, &models.MediaRecord{Identifier: "ABC-456"})
	f.writeFile(t, f.layout.CoverPath("ABC-123.jpg"), pngBytes(t, 640, 480))

	report, err := f.r.Run(ctx, CheckThumbnails, ReconcileOptions{})
	require.NoError(t, err)
	assert.Equal(t, 1, report.Scanned)
	assert.Equal(t, 1, report.Counts[CategoryMissingThumbnail])

	report, err = f.r.Run(ctx, CheckThumbnails, ReconcileOptions{Apply: true})
	require.NoError(t, err)
	assert.Equal(t, 1, report.Counts[CategoryGenerated])
	assert.Equal(t, 1, report.Fixed)
	_, ok := storage.FileSize(f.layout.ThumbnailPath("ABC-123"))
	assert.True(t, ok)

	report, err = f.r.Run(ctx, CheckThumbnails, ReconcileOptions{Apply: true})
	require.NoError(t, err)
	assert.Zero(t, report.Fixed)
	assert.Equal(t, 1, report.Counts[CategoryOK])
}

func TestCheckAvatars(t *testing.T) {
	f := newReconcileFixture(t)
	ctx := context.Background()

	f.seed(t, &models.MediaRecord{Identifier: "ABC-123"},
		models.ActorInput{Name: "Alice", AvatarURL: f.images + "/alice.jpg"},
		models.ActorInput{Name: "Bob"},
		models.ActorInput{Name: "Carol", AvatarURL: f.images + "/missing"},
	)

	report, err := f.r.Run(ctx, CheckAvatars, ReconcileOptions{Apply: true})
	require.NoError(t, err)
	assert.Equal(t, 3, report.Scanned)
	assert.Equal(t, 1, report.Counts[CategoryDownloaded])
	assert.Equal(t, 1, report.Counts[CategoryNoURL])
	assert.Equal(t, 1, report.Counts[CategoryMissingAvatar])
	assert.Equal(t, 1, report.Fixed)

	report, err = f.r.Run(ctx, CheckAvatars, ReconcileOptions{Apply: true})
	require.NoError(t, err)
	assert.Zero(t, report.Fixed)
	assert.Equal(t, 1, report.Counts[CategoryOK])
}

func TestCheckActorNames(t *testing.T) {
	f := newReconcileFixture(t)
	f.seed(t, &models.MediaRecord{Identifier: "ABC-123"},
		models.ActorInput{Name: "Yua"},
		models.ActorInput{Name: "Yua Mikami"},
		models.ActorInput{Name: "Aoi"},
	)

	report, err := f.r.Run(context.Background(), CheckActorNames, ReconcileOptions{Apply: true})
	require.NoError(t, err)
	assert.Equal(t, 1, report.Counts[CategoryTruncated])
	assert.Equal(t, 2, report.Counts[CategoryOK])
	require.Len(t, report.Samples, 1)
	assert.Equal(t, "Yua", report.Samples[0].Subject)
	assert.Zero(t, report.Fixed)
}

func TestCheckOrphans(t *testing.T) {
	f := newReconcileFixture(t)
	f.seed(t, &models.MediaRecord{Identifier: "ABC-123"})
	f.writeFile(t, f.layout.VideoPath("ABC-123"), []byte("v"))
	f.writeFile(t, f.layout.VideoPath("XYZ-999"), []byte("v"))
	f.writeFile(t, f.layout.CoverPath("QQQ-111.jpg"), []byte("c"))

	report, err := f.r.Run(context.Background(), CheckOrphans, ReconcileOptions{})
	require.NoError(t, err)
	assert.Equal(t, 3, report.Scanned)
	assert.Equal(t, 1, report.Counts[CategoryOrphanVideo])
	assert.Equal(t, 1, report.Counts[CategoryOrphanCover])

	// orphans are only reported
	_, ok := storage.FileSize(f.layout.VideoPath("XYZ-999"))
	assert.True(t, ok)
}

func TestReconcileUnknownCheck(t *testing.T) {
	f := newReconcileFixture(t)
	_, err := f.r.Run(context.Background(), "nope", ReconcileOptions{})
	assert.Error(t, err)
}

func TestReportSamplesAreBounded(t *testing.T) {
	report := newReport(CheckFiles)
	for i := 0; i < 50; i++ {
		report.add("X", CategoryMissingFile, "")
	}
	assert.Len(t, report.Samples, maxSamples)
	assert.Equal(t, 50, report.Counts[CategoryMissingFile])
}
