package store

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/skystorehq/geogw/internal/gwerr"
	"github.com/skystorehq/geogw/internal/model"
)

// PlacementDecision is the output of the placement policy call inside
// StartUpload, computed by the caller (internal/engine) and handed
// back to the store so persistence stays policy-agnostic (spec §4.1
// step 5 / §5: "the store never imports a policy package directly").
type PlacementDecision struct {
	RegionTag  string
	IsPrimary  bool
	TTL        int64
	CopySrc    *CopySrc
	BaseRegion string
}

// CopySrc names the locator a destination locator's bytes must be
// copied from, when the write is a pull rather than a client upload
// (spec §4.1 step 6).
type CopySrc struct {
	Bucket string
	Key    string
}

// StartUpload creates the logical object row (pending) and one
// pending physical locator per PlacementDecision (spec §4.1 steps
// 1-7). It always creates a new logical row; when versioningEnabled is
// false, every ready logical row for this key is first moved to
// pending_deletion, so the new row supersedes it rather than reusing it.
func (s *Store) StartUpload(ctx context.Context, bucket, key string, size int64, etag string, versioningEnabled bool, decisions []PlacementDecision) (*model.LogicalObject, []model.PhysicalObjectLocator, error) {
	var obj model.LogicalObject
	var locs []model.PhysicalObjectLocator
	err := s.withTx(ctx, "start_upload", func(tx *gorm.DB) error {
		var lb model.LogicalBucket
		if err := tx.Where("name = ?", bucket).First(&lb).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return gwerr.NotFound("start_upload", "bucket %q not found", bucket)
			}
			return err
		}
		if lb.Status != model.BucketReady {
			return gwerr.Conflict("start_upload", "bucket %q not ready", bucket)
		}

		// Version-disabled buckets take an exclusive table-level lock on
		// logical_objects for the duration of the supersede, so a
		// concurrent start_upload for the same key cannot race past
		// this point (spec §4.1 step 2, I3).
		if !versioningEnabled {
			if err := tx.Exec("LOCK TABLE logical_objects IN EXCLUSIVE MODE").Error; err != nil {
				// SQLite has no LOCK TABLE; ignore the failure there and
				// rely on the single-writer transaction serialization
				// GORM already provides against :memory: / file DBs.
				_ = err
			}
			if err := tx.Model(&model.LogicalObject{}).
				Where("bucket = ? AND key = ? AND status = ?", bucket, key, model.ObjectReady).
				Update("status", model.ObjectPendingDeletion).Error; err != nil {
				return err
			}
		}

		obj = model.LogicalObject{
			Bucket:       bucket,
			Key:          key,
			Size:         size,
			LastModified: time.Now(),
			Etag:         etag,
			Status:       model.ObjectPending,

			VersionSuspended: lb.Versioning == model.VersioningSuspended,
		}
		if len(decisions) > 0 {
			obj.BaseRegion = &decisions[0].BaseRegion
		}
		if err := tx.Create(&obj).Error; err != nil {
			return err
		}

		for _, d := range decisions {
			loc := model.PhysicalObjectLocator{
				LocationTag:     d.RegionTag,
				Cloud:           cloudOf(d.RegionTag),
				Region:          regionOf(d.RegionTag),
				Bucket:          bucket,
				Key:             key,
				Status:          model.ObjectPending,
				IsPrimary:       d.IsPrimary,
				LogicalObjectID: obj.ID,
				TTL:             d.TTL,
				OpType:          model.OpAdd,
			}
			if d.CopySrc != nil {
				loc.CopySrcBucket = &d.CopySrc.Bucket
				loc.CopySrcKey = &d.CopySrc.Key
			}
			if err := tx.Create(&loc).Error; err != nil {
				return err
			}
			locs = append(locs, loc)
		}
		return nil
	})
	return &obj, locs, err
}

// CompleteUpload flips the logical object and its locators to ready,
// stamps StorageStartTime on each to start their TTL clocks, and mints
// a fresh S3-style version_id on every locator (spec §4.1:
// "complete_upload ... persists version_id, size, etag,
// last_modified"). Each locator gets its own version_id, mirroring S3
// assigning a version_id per physical copy rather than per logical
// row (LogicalObject.ID already serves as the logical version).
func (s *Store) CompleteUpload(ctx context.Context, logicalID uint) error {
	now := time.Now()
	return s.withTx(ctx, "complete_upload", func(tx *gorm.DB) error {
		res := tx.Model(&model.LogicalObject{}).Where("id = ? AND status = ?", logicalID, model.ObjectPending).
			Updates(map[string]interface{}{"status": model.ObjectReady, "last_modified": now})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gwerr.NotFound("complete_upload", "no pending logical object %d", logicalID)
		}
		var pending []model.PhysicalObjectLocator
		if err := tx.Where("logical_object_id = ? AND status = ?", logicalID, model.ObjectPending).Find(&pending).Error; err != nil {
			return err
		}
		for _, p := range pending {
			if err := tx.Model(&model.PhysicalObjectLocator{}).Where("id = ?", p.ID).
				Updates(map[string]interface{}{
					"status":             model.ObjectReady,
					"storage_start_time": now,
					"version_id":         uuid.NewString(),
				}).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

// LocateObject returns the live logical object and every one of its
// live, ready physical locators, for the transfer policy to choose
// among (spec §4.1, I4, I6). versionID, when non-nil, pins the read to
// one exact LogicalObject.ID instead of the latest ready row: a
// version-pinned read of a delete marker is a 405 (you cannot GET a
// marker directly, only observe its existence via list_objects_
// versioning), while an unpinned read resolving to a marker is a plain
// 404, matching S3 semantics. A version_id on a versioning-unset
// bucket is a 400: there is no version history to pin against.
func (s *Store) LocateObject(ctx context.Context, bucket, key string, versionID *uint) (*model.LogicalObject, []model.PhysicalObjectLocator, error) {
	var lb model.LogicalBucket
	if err := s.db.WithContext(ctx).Where("name = ?", bucket).First(&lb).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, gwerr.NotFound("locate_object", "bucket %q not found", bucket)
		}
		return nil, nil, gwerr.Internal("locate_object", "%v", err)
	}
	if versionID != nil && lb.Versioning == model.VersioningUnset {
		return nil, nil, gwerr.BadRequest("locate_object", "bucket %q does not have versioning enabled, version_id is invalid", bucket)
	}

	var obj model.LogicalObject
	q := s.db.WithContext(ctx).Where("bucket = ? AND key = ? AND status = ?", bucket, key, model.ObjectReady)
	if versionID != nil {
		q = q.Where("id = ?", *versionID)
	}
	err := q.Order("id DESC").First(&obj).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			if versionID != nil {
				return nil, nil, gwerr.NotFound("locate_object", "version %d of %s/%s not found", *versionID, bucket, key)
			}
			return nil, nil, gwerr.NotFound("locate_object", "object %s/%s not found", bucket, key)
		}
		return nil, nil, gwerr.Internal("locate_object", "%v", err)
	}
	if obj.DeleteMarker {
		if versionID != nil {
			return nil, nil, gwerr.MethodNotAllowed("locate_object", "version %d of %s/%s is a delete marker", *versionID, bucket, key)
		}
		return nil, nil, gwerr.NotFound("locate_object", "object %s/%s not found (delete marker)", bucket, key)
	}
	var locs []model.PhysicalObjectLocator
	if err := s.db.WithContext(ctx).
		Where("logical_object_id = ? AND status = ?", obj.ID, model.ObjectReady).Find(&locs).Error; err != nil {
		return nil, nil, gwerr.Internal("locate_object", "%v", err)
	}
	now := time.Now()
	live := locs[:0]
	for _, l := range locs {
		if l.IsLive(now) {
			live = append(live, l)
		}
	}
	return &obj, live, nil
}

// RefreshTTL extends a locator's TTL on a cache hit (SPEC_FULL
// supplement, spec §4.2 notes on skystore's read-triggered refresh).
func (s *Store) RefreshTTL(ctx context.Context, locatorID uint, newTTL int64) error {
	return s.withTx(ctx, "refresh_ttl", func(tx *gorm.DB) error {
		return tx.Model(&model.PhysicalObjectLocator{}).Where("id = ?", locatorID).Update("ttl", newTTL).Error
	})
}

// HeadObject returns the live logical object's metadata without
// resolving locators.
func (s *Store) HeadObject(ctx context.Context, bucket, key string) (*model.LogicalObject, error) {
	var obj model.LogicalObject
	err := s.db.WithContext(ctx).
		Where("bucket = ? AND key = ? AND status = ?", bucket, key, model.ObjectReady).
		Order("id DESC").First(&obj).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, gwerr.NotFound("head_object", "object %s/%s not found", bucket, key)
		}
		return nil, gwerr.Internal("head_object", "%v", err)
	}
	if obj.DeleteMarker {
		return nil, gwerr.NotFound("head_object", "object %s/%s not found (delete marker)", bucket, key)
	}
	return &obj, nil
}

// ListObjects lists the latest ready version of every key under
// prefix (non-versioned listing, spec §6).
func (s *Store) ListObjects(ctx context.Context, bucket, prefix string) ([]model.LogicalObject, error) {
	var all []model.LogicalObject
	q := s.db.WithContext(ctx).Where("bucket = ? AND status = ?", bucket, model.ObjectReady).Order("key, id DESC")
	if prefix != "" {
		q = q.Where("key LIKE ?", prefix+"%")
	}
	if err := q.Find(&all).Error; err != nil {
		return nil, gwerr.Internal("list_objects", "%v", err)
	}
	out := make([]model.LogicalObject, 0, len(all))
	seen := map[string]bool{}
	for _, o := range all {
		if seen[o.Key] {
			continue
		}
		seen[o.Key] = true
		if !o.DeleteMarker {
			out = append(out, o)
		}
	}
	return out, nil
}

// ListObjectsVersioning lists every ready version of every key under
// prefix, including delete markers, newest first per key (spec §6
// list_objects_versioning).
func (s *Store) ListObjectsVersioning(ctx context.Context, bucket, prefix string) ([]model.LogicalObject, error) {
	q := s.db.WithContext(ctx).Where("bucket = ? AND status = ?", bucket, model.ObjectReady).Order("key, id DESC")
	if prefix != "" {
		q = q.Where("key LIKE ?", prefix+"%")
	}
	var out []model.LogicalObject
	if err := q.Find(&out).Error; err != nil {
		return nil, gwerr.Internal("list_objects_versioning", "%v", err)
	}
	return out, nil
}

func cloudOf(tag string) string  { c, _ := splitTag(tag); return c }
func regionOf(tag string) string { _, r := splitTag(tag); return r }
