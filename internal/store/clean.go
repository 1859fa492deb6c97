package store

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/skystorehq/geogw/internal/gwerr"
	"github.com/skystorehq/geogw/internal/model"
)

// ExpiredLocator is a non-primary physical locator whose TTL window
// has closed, a candidate for clean_object (spec §4.1, §4.4).
type ExpiredLocator struct {
	model.PhysicalObjectLocator
}

// FindExpiredLocators selects, per (bucket, key, location_tag), the
// highest-id physical row whose TTL has expired and which is not the
// object's primary/base-region copy (spec §4.1 clean_object, I6: the
// base region is never evicted).
func (s *Store) FindExpiredLocators(ctx context.Context, now time.Time, limit int) ([]ExpiredLocator, error) {
	var all []model.PhysicalObjectLocator
	q := s.db.WithContext(ctx).
		Where("status = ? AND is_primary = ? AND ttl >= 0", model.ObjectReady, false).
		Order("bucket, key, location_tag, id DESC")
	if limit > 0 {
		q = q.Limit(limit * 4) // over-fetch before per-group filtering below
	}
	if err := q.Find(&all).Error; err != nil {
		return nil, gwerr.Internal("clean_object", "%v", err)
	}
	seen := map[string]bool{}
	out := make([]ExpiredLocator, 0, len(all))
	for _, l := range all {
		groupKey := groupKeyOf(l)
		if seen[groupKey] {
			continue
		}
		seen[groupKey] = true
		if !l.IsLive(now) {
			out = append(out, ExpiredLocator{l})
		}
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}

func groupKeyOf(l model.PhysicalObjectLocator) string {
	return l.Bucket + "\x00" + l.Key + "\x00" + l.LocationTag
}

// MarkLocatorsPending atomically transitions a batch of locator ids
// to pending_deletion, the first half of clean_object's two-phase
// commit (spec §4.1).
func (s *Store) MarkLocatorsPending(ctx context.Context, ids []uint) error {
	if len(ids) == 0 {
		return nil
	}
	return s.withTx(ctx, "clean_object", func(tx *gorm.DB) error {
		return tx.Model(&model.PhysicalObjectLocator{}).
			Where("id IN ? AND status = ?", ids, model.ObjectReady).
			Update("status", model.ObjectPendingDeletion).Error
	})
}

// CompleteCleanObject removes confirmed-deleted locators; on remote
// failure the caller instead calls RollbackCleanObject to restore
// them to ready (spec §4.1: "rollback-on-remote-failure").
func (s *Store) CompleteCleanObject(ctx context.Context, ids []uint) error {
	if len(ids) == 0 {
		return nil
	}
	return s.withTx(ctx, "clean_object", func(tx *gorm.DB) error {
		return tx.Where("id IN ? AND status = ?", ids, model.ObjectPendingDeletion).Delete(&model.PhysicalObjectLocator{}).Error
	})
}

// RollbackCleanObject restores locators to ready after a remote
// delete_objects call failed (spec §4.1, §7).
func (s *Store) RollbackCleanObject(ctx context.Context, ids []uint) error {
	if len(ids) == 0 {
		return nil
	}
	return s.withTx(ctx, "clean_object", func(tx *gorm.DB) error {
		return tx.Model(&model.PhysicalObjectLocator{}).
			Where("id IN ? AND status = ?", ids, model.ObjectPendingDeletion).
			Update("status", model.ObjectReady).Error
	})
}

// CleanOutRemaining force-deletes every physical locator of a
// logical object regardless of TTL, used by clean_out_remaining
// (spec §6) to finish evicting a key whose logical row is itself
// pending deletion.
func (s *Store) CleanOutRemaining(ctx context.Context, logicalID uint) ([]model.PhysicalObjectLocator, error) {
	var locs []model.PhysicalObjectLocator
	err := s.withTx(ctx, "clean_out_remaining", func(tx *gorm.DB) error {
		if err := tx.Where("logical_object_id = ?", logicalID).Find(&locs).Error; err != nil {
			return err
		}
		return tx.Where("logical_object_id = ?", logicalID).Delete(&model.PhysicalObjectLocator{}).Error
	})
	return locs, err
}

// Healthcheck verifies the database connection is live (spec §6
// healthz).
func (s *Store) Healthcheck(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return gwerr.Internal("healthz", "%v", err)
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		return gwerr.Internal("healthz", "%v", err)
	}
	return nil
}
