package sqlite

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ilias-t/griblet/pkg/logger"
)

func newTestStorage(t *testing.T, clock clockwork.Clock) *RecordStorage {
	t.Helper()
	storage, err := NewRecordStorage(filepath.Join(t.TempDir(), "catalog.db"), clock, logger.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { storage.Close() })
	return storage
}

func TestRecordStorage_InsertAndGet(t *testing.T) {
	clock := clockwork.NewFakeClockAt(time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC))
	storage := newTestStorage(t, clock)

	refTime := time.Date(2024, 3, 1, 6, 0, 0, 0, time.UTC)
	record := &GribRecord{
		ID:         "rec-1",
		Name:       "gfs.t06z.pgrb2.0p25.f000",
		SourcePath: "/data/grib/rec-1.grib2",
		CachePath:  "/data/grib/rec-1.grib2.wind.json",
		RefTime:    &refTime,
		SizeBytes:  1024,
	}
	require.NoError(t, storage.Insert(record))

	// Insert stamps CreatedAt from the clock.
	assert.Equal(t, clock.Now().UTC(), record.CreatedAt)

	got, err := storage.GetByID("rec-1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, record.Name, got.Name)
	assert.Equal(t, record.SourcePath, got.SourcePath)
	assert.Equal(t, record.CachePath, got.CachePath)
	assert.Equal(t, record.SizeBytes, got.SizeBytes)
	require.NotNil(t, got.RefTime)
	assert.True(t, refTime.Equal(*got.RefTime))
}

func TestRecordStorage_GetByID_Missing(t *testing.T) {
	storage := newTestStorage(t, clockwork.NewFakeClock())

	got, err := storage.GetByID("nope")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestRecordStorage_NilRefTime(t *testing.T) {
	storage := newTestStorage(t, clockwork.NewFakeClock())

	require.NoError(t, storage.Insert(&GribRecord{
		ID: "rec-1", Name: "upload.grib2",
		SourcePath: "/data/a", CachePath: "/data/a.wind.json",
	}))

	got, err := storage.GetByID("rec-1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Nil(t, got.RefTime)
}

func TestRecordStorage_ListNewestFirst(t *testing.T) {
	clock := clockwork.NewFakeClockAt(time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC))
	storage := newTestStorage(t, clock)

	for _, id := range []string{"a", "b", "c"} {
		require.NoError(t, storage.Insert(&GribRecord{
			ID: id, Name: id, SourcePath: "/x/" + id, CachePath: "/x/" + id + ".json",
		}))
		clock.Advance(time.Hour)
	}

	records, err := storage.List()
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, "c", records[0].ID)
	assert.Equal(t, "a", records[2].ID)
}

func TestRecordStorage_Delete(t *testing.T) {
	storage := newTestStorage(t, clockwork.NewFakeClock())
	require.NoError(t, storage.Insert(&GribRecord{
		ID: "rec-1", Name: "x", SourcePath: "/x", CachePath: "/x.json",
	}))

	deleted, err := storage.Delete("rec-1")
	require.NoError(t, err)
	assert.True(t, deleted)

	deleted, err = storage.Delete("rec-1")
	require.NoError(t, err)
	assert.False(t, deleted)
}

func TestRecordStorage_DeleteOlderThan(t *testing.T) {
	clock := clockwork.NewFakeClockAt(time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC))
	storage := newTestStorage(t, clock)

	require.NoError(t, storage.Insert(&GribRecord{
		ID: "old", Name: "old", SourcePath: "/x/old", CachePath: "/x/old.json",
	}))
	clock.Advance(48 * time.Hour)
	require.NoError(t, storage.Insert(&GribRecord{
		ID: "fresh", Name: "fresh", SourcePath: "/x/fresh", CachePath: "/x/fresh.json",
	}))

	expired, err := storage.DeleteOlderThan(clock.Now().Add(-24 * time.Hour))
	require.NoError(t, err)
	require.Len(t, expired, 1)
	assert.Equal(t, "old", expired[0].ID)

	remaining, err := storage.List()
	require.NoError(t, err)
	require.Len(t, remaining, 1)
	assert.Equal(t, "fresh", remaining[0].ID)
}
