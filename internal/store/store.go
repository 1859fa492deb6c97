// Package store is the GORM-backed metadata store (spec §3, §4.1):
// the single relational source of truth for logical/physical
// bucket and object rows. Every mutating operation runs inside one
// *gorm.DB transaction, mirroring the teacher's begin/commit/abort
// two-phase transaction idiom (grounded on ais/prxtxn.go) but against
// a single row-locking database instead of a cluster bcast.
package store

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/skystorehq/geogw/internal/gwerr"
	"github.com/skystorehq/geogw/internal/log"
	"github.com/skystorehq/geogw/internal/model"
)

// Store wraps the database handle with the operations of spec §4.1.
type Store struct {
	db *gorm.DB
}

func New(db *gorm.DB) *Store { return &Store{db: db} }

// Migrate creates/updates every table the store needs.
func (s *Store) Migrate() error {
	return s.db.AutoMigrate(model.AllModels()...)
}

func (s *Store) withTx(ctx context.Context, op string, fn func(tx *gorm.DB) error) error {
	err := s.db.WithContext(ctx).Transaction(fn)
	if err == nil {
		return nil
	}
	var gerr *gwerr.Error
	if errors.As(err, &gerr) {
		return err
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return gwerr.NotFound(op, "%v", err)
	}
	log.WithComponent("store").Error().Err(err).Str("op", op).Msg("transaction failed")
	return gwerr.Internal(op, "%v", err)
}

// --- bucket lifecycle (spec §4.1) ---

// RegisterBuckets inserts a set of already-existing physical buckets
// as a single logical bucket in one step (a conflict if the name is
// already registered), bypassing the
// start/complete_create_bucket two-phase handshake (SPEC_FULL
// supplement, spec §6 register_buckets).
func (s *Store) RegisterBuckets(ctx context.Context, name, prefix string, locators []model.PhysicalBucketLocator, versioning model.VersioningMode) error {
	return s.withTx(ctx, "register_buckets", func(tx *gorm.DB) error {
		var existing model.LogicalBucket
		err := tx.Where("name = ?", name).First(&existing).Error
		if err == nil {
			return gwerr.Conflict("register_buckets", "bucket %q already registered", name)
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		b := model.LogicalBucket{
			Name:         name,
			Prefix:       prefix,
			Status:       model.BucketReady,
			CreationTime: time.Now(),
			Versioning:   versioning,
		}
		if err := tx.Create(&b).Error; err != nil {
			return err
		}
		primarySeen := false
		for i := range locators {
			locators[i].BucketName = name
			locators[i].LogicalBucket = name
			locators[i].Status = model.ObjectReady
			if locators[i].IsPrimary {
				if primarySeen {
					return gwerr.BadRequest("register_buckets", "more than one primary locator given")
				}
				primarySeen = true
			}
		}
		if !primarySeen && len(locators) > 0 {
			locators[0].IsPrimary = true
		}
		if len(locators) > 0 {
			if err := tx.Create(&locators).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

// StartCreateBucket creates the logical bucket row in pending status
// plus one pending physical locator per destination region (spec
// §4.1).
func (s *Store) StartCreateBucket(ctx context.Context, name, prefix string, regions []string, versioning model.VersioningMode) ([]model.PhysicalBucketLocator, error) {
	var out []model.PhysicalBucketLocator
	err := s.withTx(ctx, "start_create_bucket", func(tx *gorm.DB) error {
		var existing model.LogicalBucket
		err := tx.Where("name = ?", name).First(&existing).Error
		if err == nil {
			return gwerr.Conflict("start_create_bucket", "bucket %q already exists", name)
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		b := model.LogicalBucket{
			Name:         name,
			Prefix:       prefix,
			Status:       model.BucketPending,
			CreationTime: time.Now(),
			Versioning:   versioning,
		}
		if err := tx.Create(&b).Error; err != nil {
			return err
		}
		for i, r := range regions {
			cloud, region := splitTag(r)
			loc := model.PhysicalBucketLocator{
				BucketName:    name,
				LocationTag:   r,
				Cloud:         cloud,
				Region:        region,
				Prefix:        prefix,
				Status:        model.ObjectPending,
				IsPrimary:     i == 0,
				LogicalBucket: name,
			}
			if err := tx.Create(&loc).Error; err != nil {
				return err
			}
			out = append(out, loc)
		}
		return nil
	})
	return out, err
}

// CompleteCreateBucket flips the logical bucket and every one of its
// physical locators to ready once the data-plane bucket creation
// succeeded on every destination (spec §4.1 invariant I1).
func (s *Store) CompleteCreateBucket(ctx context.Context, name string) error {
	return s.withTx(ctx, "complete_create_bucket", func(tx *gorm.DB) error {
		res := tx.Model(&model.LogicalBucket{}).Where("name = ? AND status = ?", name, model.BucketPending).
			Update("status", model.BucketReady)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gwerr.NotFound("complete_create_bucket", "no pending bucket %q", name)
		}
		return tx.Model(&model.PhysicalBucketLocator{}).
			Where("bucket_name = ? AND status = ?", name, model.ObjectPending).
			Update("status", model.ObjectReady).Error
	})
}

// StartDeleteBucket marks the logical bucket and its locators
// pending_deletion (spec §4.1).
func (s *Store) StartDeleteBucket(ctx context.Context, name string) ([]model.PhysicalBucketLocator, error) {
	var out []model.PhysicalBucketLocator
	err := s.withTx(ctx, "start_delete_bucket", func(tx *gorm.DB) error {
		var b model.LogicalBucket
		if err := tx.Where("name = ?", name).First(&b).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return gwerr.NotFound("start_delete_bucket", "bucket %q not found", name)
			}
			return err
		}
		if b.Status != model.BucketReady {
			return gwerr.Conflict("start_delete_bucket", "bucket %q not ready (status=%s)", name, b.Status)
		}
		var cnt int64
		if err := tx.Model(&model.LogicalObject{}).Where("bucket = ? AND status <> ?", name, model.ObjectPendingDeletion).Count(&cnt).Error; err != nil {
			return err
		}
		if cnt > 0 {
			return gwerr.Conflict("start_delete_bucket", "bucket %q is not empty", name)
		}
		if err := tx.Model(&model.LogicalBucket{}).Where("name = ?", name).Update("status", model.BucketPendingDeletion).Error; err != nil {
			return err
		}
		if err := tx.Where("bucket_name = ?", name).Find(&out).Error; err != nil {
			return err
		}
		return tx.Model(&model.PhysicalBucketLocator{}).Where("bucket_name = ?", name).Update("status", model.ObjectPendingDeletion).Error
	})
	return out, err
}

// CompleteDeleteBucket removes the logical bucket row and its
// locators once every destination confirmed data-plane deletion.
func (s *Store) CompleteDeleteBucket(ctx context.Context, name string) error {
	return s.withTx(ctx, "complete_delete_bucket", func(tx *gorm.DB) error {
		res := tx.Where("name = ? AND status = ?", name, model.BucketPendingDeletion).Delete(&model.LogicalBucket{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gwerr.NotFound("complete_delete_bucket", "no pending-deletion bucket %q", name)
		}
		return tx.Where("bucket_name = ?", name).Delete(&model.PhysicalBucketLocator{}).Error
	})
}

// LocateBucket returns the logical bucket row plus its locators.
func (s *Store) LocateBucket(ctx context.Context, name string) (*model.LogicalBucket, []model.PhysicalBucketLocator, error) {
	var b model.LogicalBucket
	var locs []model.PhysicalBucketLocator
	err := s.db.WithContext(ctx).Where("name = ?", name).First(&b).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, gwerr.NotFound("locate_bucket", "bucket %q not found", name)
		}
		return nil, nil, gwerr.Internal("locate_bucket", "%v", err)
	}
	if err := s.db.WithContext(ctx).Where("bucket_name = ?", name).Find(&locs).Error; err != nil {
		return nil, nil, gwerr.Internal("locate_bucket", "%v", err)
	}
	return &b, locs, nil
}

// HeadBucket reports only whether the bucket exists and is ready.
func (s *Store) HeadBucket(ctx context.Context, name string) (model.BucketStatus, error) {
	var b model.LogicalBucket
	if err := s.db.WithContext(ctx).Where("name = ?", name).First(&b).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", gwerr.NotFound("head_bucket", "bucket %q not found", name)
		}
		return "", gwerr.Internal("head_bucket", "%v", err)
	}
	return b.Status, nil
}

// ListBuckets returns every registered logical bucket.
func (s *Store) ListBuckets(ctx context.Context) ([]model.LogicalBucket, error) {
	var out []model.LogicalBucket
	if err := s.db.WithContext(ctx).Find(&out).Error; err != nil {
		return nil, gwerr.Internal("list_buckets", "%v", err)
	}
	return out, nil
}

// PutBucketVersioning sets the bucket's versioning mode. Once
// enabled, it cannot be unset back to VersioningUnset (spec I invariant
// on version_enable monotonicity), only suspended.
func (s *Store) PutBucketVersioning(ctx context.Context, name string, mode model.VersioningMode) error {
	return s.withTx(ctx, "put_bucket_versioning", func(tx *gorm.DB) error {
		var b model.LogicalBucket
		if err := tx.Where("name = ?", name).First(&b).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return gwerr.NotFound("put_bucket_versioning", "bucket %q not found", name)
			}
			return err
		}
		if b.Versioning == model.VersioningUnset && mode == model.VersioningSuspended {
			return gwerr.BadRequest("put_bucket_versioning", "cannot suspend versioning that was never enabled")
		}
		if b.Versioning != model.VersioningUnset && mode == model.VersioningUnset {
			return gwerr.BadRequest("put_bucket_versioning", "versioning cannot be unset once enabled, only suspended")
		}
		return tx.Model(&model.LogicalBucket{}).Where("name = ?", name).Update("versioning", mode).Error
	})
}

// CheckVersionSetting returns the bucket's current versioning mode.
func (s *Store) CheckVersionSetting(ctx context.Context, name string) (model.VersioningMode, error) {
	var b model.LogicalBucket
	if err := s.db.WithContext(ctx).Where("name = ?", name).First(&b).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", gwerr.NotFound("check_version_setting", "bucket %q not found", name)
		}
		return "", gwerr.Internal("check_version_setting", "%v", err)
	}
	return b.Versioning, nil
}

func splitTag(tag string) (cloud, region string) {
	for i := 0; i < len(tag); i++ {
		if tag[i] == ':' {
			return tag[:i], tag[i+1:]
		}
	}
	return tag, ""
}
