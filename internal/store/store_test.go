package store_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/skystorehq/geogw/internal/model"
	"github.com/skystorehq/geogw/internal/store"
)

// newTestStore opens a fresh named in-memory database per test (the
// name keyed on t.Name() so parallel/sequential test runs never see
// each other's rows through sqlite's shared-cache mode).
func newTestStore(t *testing.T) (*store.Store, *gorm.DB) {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	st := store.New(db)
	require.NoError(t, st.Migrate())
	return st, db
}

func mustRegisterBucket(t *testing.T, st *store.Store, name string) {
	t.Helper()
	mustRegisterVersionedBucket(t, st, name, model.VersioningUnset)
}

func mustRegisterVersionedBucket(t *testing.T, st *store.Store, name string, mode model.VersioningMode) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, st.RegisterBuckets(ctx, name, "", []model.PhysicalBucketLocator{
		{LocationTag: "aws:us-east-1", IsPrimary: true},
	}, mode))
}

func TestStartCompleteUpload(t *testing.T) {
	st, _ := newTestStore(t)
	ctx := context.Background()
	mustRegisterBucket(t, st, "bucket-a")

	obj, locs, err := st.StartUpload(ctx, "bucket-a", "key1", 100, "etag1", false, []store.PlacementDecision{
		{RegionTag: "aws:us-east-1", IsPrimary: true, TTL: -1, BaseRegion: "aws:us-east-1"},
	})
	require.NoError(t, err)
	require.Equal(t, model.ObjectPending, obj.Status)
	require.Len(t, locs, 1)

	require.NoError(t, st.CompleteUpload(ctx, obj.ID))

	got, liveLocs, err := st.LocateObject(ctx, "bucket-a", "key1", nil)
	require.NoError(t, err)
	require.Equal(t, obj.ID, got.ID)
	require.Len(t, liveLocs, 1)
}

func TestLocateObjectNotFoundBeforeComplete(t *testing.T) {
	st, _ := newTestStore(t)
	ctx := context.Background()
	mustRegisterBucket(t, st, "bucket-b")

	_, _, err := st.StartUpload(ctx, "bucket-b", "key1", 10, "e", false, []store.PlacementDecision{
		{RegionTag: "aws:us-east-1", IsPrimary: true, TTL: -1},
	})
	require.NoError(t, err)

	_, _, err = st.LocateObject(ctx, "bucket-b", "key1", nil)
	require.Error(t, err)
}

func TestVersionDisabledOverwriteSupersedesPriorVersion(t *testing.T) {
	st, _ := newTestStore(t)
	ctx := context.Background()
	mustRegisterBucket(t, st, "bucket-c")

	obj1, _, err := st.StartUpload(ctx, "bucket-c", "key1", 10, "e1", false, []store.PlacementDecision{
		{RegionTag: "aws:us-east-1", IsPrimary: true, TTL: -1},
	})
	require.NoError(t, err)
	require.NoError(t, st.CompleteUpload(ctx, obj1.ID))

	obj2, _, err := st.StartUpload(ctx, "bucket-c", "key1", 20, "e2", false, []store.PlacementDecision{
		{RegionTag: "aws:us-east-1", IsPrimary: true, TTL: -1},
	})
	require.NoError(t, err)
	require.NoError(t, st.CompleteUpload(ctx, obj2.ID))

	got, _, err := st.LocateObject(ctx, "bucket-c", "key1", nil)
	require.NoError(t, err)
	require.Equal(t, obj2.ID, got.ID)
}

func TestDeleteObjectsVersioningDisabled(t *testing.T) {
	st, _ := newTestStore(t)
	ctx := context.Background()
	mustRegisterBucket(t, st, "bucket-d")

	obj, _, err := st.StartUpload(ctx, "bucket-d", "key1", 10, "e1", false, []store.PlacementDecision{
		{RegionTag: "aws:us-east-1", IsPrimary: true, TTL: -1},
	})
	require.NoError(t, err)
	require.NoError(t, st.CompleteUpload(ctx, obj.ID))

	pending, err := st.StartDeleteObjects(ctx, "bucket-d", []store.DeleteItem{{Key: "key1"}})
	require.NoError(t, err)
	require.Len(t, pending, 1)
	require.Equal(t, model.OpDelete, pending[0].OpType)

	require.NoError(t, st.CompleteDeleteObjects(ctx, pending))

	_, _, err = st.LocateObject(ctx, "bucket-d", "key1", nil)
	require.Error(t, err)
}

func TestDeleteObjectsVersioningEnabledAddsMarker(t *testing.T) {
	st, _ := newTestStore(t)
	ctx := context.Background()
	mustRegisterVersionedBucket(t, st, "bucket-e", model.VersioningEnabled)

	obj, _, err := st.StartUpload(ctx, "bucket-e", "key1", 10, "e1", true, []store.PlacementDecision{
		{RegionTag: "aws:us-east-1", IsPrimary: true, TTL: -1},
	})
	require.NoError(t, err)
	require.NoError(t, st.CompleteUpload(ctx, obj.ID))

	pending, err := st.StartDeleteObjects(ctx, "bucket-e", []store.DeleteItem{{Key: "key1"}})
	require.NoError(t, err)
	require.True(t, pending[0].DeleteMarker)
	require.Equal(t, model.OpAdd, pending[0].OpType)
	require.NoError(t, st.CompleteDeleteObjects(ctx, pending))

	_, _, err = st.LocateObject(ctx, "bucket-e", "key1", nil)
	require.Error(t, err, "a live delete marker must resolve to not-found")

	// The explicit-version read of the original version must still
	// succeed: its locators were copied onto the marker, not deleted.
	origID := obj.ID
	gotOrig, origLocs, err := st.LocateObject(ctx, "bucket-e", "key1", &origID)
	require.NoError(t, err)
	require.Equal(t, origID, gotOrig.ID)
	require.Len(t, origLocs, 1)
}

func TestDeleteObjectsSuspendedReusesRowWhenPreviousWasSuspended(t *testing.T) {
	st, _ := newTestStore(t)
	ctx := context.Background()
	mustRegisterVersionedBucket(t, st, "bucket-susp", model.VersioningEnabled)

	obj, _, err := st.StartUpload(ctx, "bucket-susp", "key1", 10, "e1", true, []store.PlacementDecision{
		{RegionTag: "aws:us-east-1", IsPrimary: true, TTL: -1},
	})
	require.NoError(t, err)
	require.NoError(t, st.CompleteUpload(ctx, obj.ID))
	require.NoError(t, st.PutBucketVersioning(ctx, "bucket-susp", model.VersioningSuspended))

	pending, err := st.StartDeleteObjects(ctx, "bucket-susp", []store.DeleteItem{{Key: "key1"}})
	require.NoError(t, err)
	require.Equal(t, model.OpAdd, pending[0].OpType, "the first version under a suspended bucket was not itself written while suspended, so it gets a fresh marker")
	require.NoError(t, st.CompleteDeleteObjects(ctx, pending))

	pending2, err := st.StartDeleteObjects(ctx, "bucket-susp", []store.DeleteItem{{Key: "key1"}})
	require.NoError(t, err)
	require.Equal(t, model.OpReplace, pending2[0].OpType, "deleting a marker that was itself created while suspended mutates it in place")
	require.Equal(t, pending[0].LogicalID, pending2[0].LogicalID)
	require.NoError(t, st.CompleteDeleteObjects(ctx, pending2))
}

func TestDeleteObjectsUnsetVersioningRejectsExplicitVersionID(t *testing.T) {
	st, _ := newTestStore(t)
	ctx := context.Background()
	mustRegisterBucket(t, st, "bucket-unset")

	obj, _, err := st.StartUpload(ctx, "bucket-unset", "key1", 10, "e1", false, []store.PlacementDecision{
		{RegionTag: "aws:us-east-1", IsPrimary: true, TTL: -1},
	})
	require.NoError(t, err)
	require.NoError(t, st.CompleteUpload(ctx, obj.ID))

	_, err = st.StartDeleteObjects(ctx, "bucket-unset", []store.DeleteItem{{Key: "key1", VersionID: "1"}})
	require.Error(t, err)
}

func TestLocateObjectVersionIDOnUnsetBucketIsBadRequest(t *testing.T) {
	st, _ := newTestStore(t)
	ctx := context.Background()
	mustRegisterBucket(t, st, "bucket-vid-unset")

	obj, _, err := st.StartUpload(ctx, "bucket-vid-unset", "key1", 10, "e1", false, []store.PlacementDecision{
		{RegionTag: "aws:us-east-1", IsPrimary: true, TTL: -1},
	})
	require.NoError(t, err)
	require.NoError(t, st.CompleteUpload(ctx, obj.ID))

	vid := obj.ID
	_, _, err = st.LocateObject(ctx, "bucket-vid-unset", "key1", &vid)
	require.Error(t, err)
}

func TestLocateObjectExplicitVersionOnDeleteMarkerIsMethodNotAllowed(t *testing.T) {
	st, _ := newTestStore(t)
	ctx := context.Background()
	mustRegisterVersionedBucket(t, st, "bucket-vid-marker", model.VersioningEnabled)

	obj, _, err := st.StartUpload(ctx, "bucket-vid-marker", "key1", 10, "e1", true, []store.PlacementDecision{
		{RegionTag: "aws:us-east-1", IsPrimary: true, TTL: -1},
	})
	require.NoError(t, err)
	require.NoError(t, st.CompleteUpload(ctx, obj.ID))

	pending, err := st.StartDeleteObjects(ctx, "bucket-vid-marker", []store.DeleteItem{{Key: "key1"}})
	require.NoError(t, err)
	require.NoError(t, st.CompleteDeleteObjects(ctx, pending))

	markerID := pending[0].LogicalID
	_, _, err = st.LocateObject(ctx, "bucket-vid-marker", "key1", &markerID)
	require.Error(t, err)
}

func TestMultipartAppendPartIdempotent(t *testing.T) {
	st, _ := newTestStore(t)
	ctx := context.Background()
	mustRegisterBucket(t, st, "bucket-f")

	obj, locs, err := st.StartUpload(ctx, "bucket-f", "bigfile", 0, "", false, []store.PlacementDecision{
		{RegionTag: "aws:us-east-1", IsPrimary: true, TTL: -1},
	})
	require.NoError(t, err)
	require.NoError(t, st.SetMultipartID(ctx, obj.ID, "upload-123"))

	require.NoError(t, st.AppendPart(ctx, locs[0].ID, 1, "etag-a", 5))
	require.NoError(t, st.AppendPart(ctx, locs[0].ID, 1, "etag-b", 9))

	parts, err := st.ListParts(ctx, obj.ID)
	require.NoError(t, err)
	require.Len(t, parts, 1)
	require.Equal(t, "etag-b", parts[0].Etag)
	require.Equal(t, int64(9), parts[0].Size)
}

func TestFindExpiredLocatorsSkipsPrimaryAndLive(t *testing.T) {
	st, _ := newTestStore(t)
	ctx := context.Background()
	mustRegisterBucket(t, st, "bucket-g")

	obj, _, err := st.StartUpload(ctx, "bucket-g", "key1", 10, "e1", false, []store.PlacementDecision{
		{RegionTag: "aws:us-east-1", IsPrimary: true, TTL: -1},
		{RegionTag: "aws:eu-west-1", IsPrimary: false, TTL: 1},
	})
	require.NoError(t, err)
	require.NoError(t, st.CompleteUpload(ctx, obj.ID))

	time.Sleep(1100 * time.Millisecond)

	expired, err := st.FindExpiredLocators(ctx, time.Now(), 10)
	require.NoError(t, err)
	require.Len(t, expired, 1)
	require.Equal(t, "aws:eu-west-1", expired[0].LocationTag)
}

func TestSweepStaleLocksPromotesObject(t *testing.T) {
	st, db := newTestStore(t)
	ctx := context.Background()
	mustRegisterBucket(t, st, "bucket-h")

	obj, locs, err := st.StartUpload(ctx, "bucket-h", "key1", 10, "e1", false, []store.PlacementDecision{
		{RegionTag: "aws:us-east-1", IsPrimary: true, TTL: -1},
	})
	require.NoError(t, err)

	stale := time.Now().Add(-time.Hour)
	require.NoError(t, db.Model(&model.PhysicalObjectLocator{}).Where("id = ?", locs[0].ID).
		Updates(map[string]interface{}{"status": model.ObjectReady, "lock_acquired": stale}).Error)

	locksCleared, objectsPromoted, err := st.SweepStaleLocks(ctx, 5*time.Minute)
	require.NoError(t, err)
	require.Equal(t, int64(1), locksCleared)
	require.Equal(t, int64(1), objectsPromoted)

	status, err := st.LocateObjectStatus(ctx, obj.ID)
	require.NoError(t, err)
	require.Equal(t, model.ObjectReady, status)
}
