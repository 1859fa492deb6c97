package store

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/skystorehq/geogw/internal/gwerr"
	"github.com/skystorehq/geogw/internal/model"
)

// SweepStaleLocks resets physical locators whose LockAcquired stamp
// is older than cutoff back to ready, and promotes any logical object
// whose every physical locator is now ready (spec §4.5: the lock and
// timeout sweeper). It returns the count of locks cleared and objects
// promoted, for metrics.
func (s *Store) SweepStaleLocks(ctx context.Context, cutoff time.Duration) (locksCleared, objectsPromoted int64, err error) {
	err = s.withTx(ctx, "sweep", func(tx *gorm.DB) error {
		threshold := time.Now().Add(-cutoff)
		res := tx.Model(&model.PhysicalObjectLocator{}).
			Where("lock_acquired IS NOT NULL AND lock_acquired < ?", threshold).
			Updates(map[string]interface{}{"lock_acquired": nil, "status": model.ObjectReady})
		if res.Error != nil {
			return res.Error
		}
		locksCleared = res.RowsAffected

		var pendingIDs []uint
		if err := tx.Model(&model.LogicalObject{}).
			Where("status = ?", model.ObjectPending).Pluck("id", &pendingIDs).Error; err != nil {
			return err
		}
		for _, id := range pendingIDs {
			var notReady int64
			if err := tx.Model(&model.PhysicalObjectLocator{}).
				Where("logical_object_id = ? AND status <> ?", id, model.ObjectReady).Count(&notReady).Error; err != nil {
				return err
			}
			if notReady == 0 {
				if err := tx.Model(&model.LogicalObject{}).Where("id = ?", id).Update("status", model.ObjectReady).Error; err != nil {
					return err
				}
				objectsPromoted++
			}
		}
		return nil
	})
	return
}

// StartWarmup flags a bucket locator need_warmup, the input the push
// placement policy consults on the next start_upload (spec §4.1
// start_warmup).
func (s *Store) StartWarmup(ctx context.Context, bucket, locationTag string) error {
	return s.withTx(ctx, "start_warmup", func(tx *gorm.DB) error {
		return tx.Model(&model.PhysicalBucketLocator{}).
			Where("bucket_name = ? AND location_tag = ?", bucket, locationTag).
			Update("need_warmup", true).Error
	})
}

// LocateBucketStatus and LocateObjectStatus support the polling
// endpoints of the same name (spec §6): callers use them to find out
// whether a two-phase create/upload has reached ready yet.

func (s *Store) LocateBucketStatus(ctx context.Context, name string) (model.BucketStatus, error) {
	return s.HeadBucket(ctx, name)
}

func (s *Store) LocateObjectStatus(ctx context.Context, logicalID uint) (model.ObjectStatus, error) {
	var obj model.LogicalObject
	if err := s.db.WithContext(ctx).First(&obj, logicalID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", gwerr.NotFound("locate_object_status", "no object %d", logicalID)
		}
		return "", gwerr.Internal("locate_object_status", "%v", err)
	}
	return obj.Status, nil
}
