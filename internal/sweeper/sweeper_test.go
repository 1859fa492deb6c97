package sweeper

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

func newTestStore(t *testing.T) *store.Store {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	st := store.New(db)
	require.NoError(t, st.Migrate())
	return st
}

func TestSweepOnceClearsStaleLockAndPromotes(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, st.RegisterBuckets(ctx, "bucket-a", "", []model.PhysicalBucketLocator{
		{LocationTag: "aws:us-east-1", IsPrimary: true},
	}, model.VersioningUnset))

	obj, locs, err := st.StartUpload(ctx, "bucket-a", "key1", 10, "e1", false, []store.PlacementDecision{
		{RegionTag: "aws:us-east-1", IsPrimary: true, TTL: -1},
	})
	require.NoError(t, err)

	db, err := gorm.Open(sqlite.Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())), &gorm.Config{})
	require.NoError(t, err)
	stale := time.Now().Add(-time.Hour)
	require.NoError(t, db.Model(&model.PhysicalObjectLocator{}).Where("id = ?", locs[0].ID).
		Updates(map[string]interface{}{"status": model.ObjectReady, "lock_acquired": stale}).Error)

	s := New(st, time.Minute, 5*time.Minute)
	s.sweepOnce()

	status, err := st.LocateObjectStatus(ctx, obj.ID)
	require.NoError(t, err)
	require.Equal(t, model.ObjectReady, status)
}

func TestStartStopDoesNotPanic(t *testing.T) {
	st := newTestStore(t)
	s := New(st, 10*time.Millisecond, time.Minute)
	s.Start()
	time.Sleep(30 * time.Millisecond)
	s.Stop()
}
