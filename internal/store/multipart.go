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

// SetMultipartID records the upload id the client picked for a
// pending multipart logical object (spec §4.1).
func (s *Store) SetMultipartID(ctx context.Context, logicalID uint, uploadID string) error {
	return s.withTx(ctx, "set_multipart_id", func(tx *gorm.DB) error {
		res := tx.Model(&model.LogicalObject{}).Where("id = ?", logicalID).Update("multipart_upload_id", uploadID)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gwerr.NotFound("set_multipart_id", "no logical object %d", logicalID)
		}
		return tx.Model(&model.PhysicalObjectLocator{}).Where("logical_object_id = ?", logicalID).
			Update("multipart_upload_id", uploadID).Error
	})
}

// AppendPart idempotently records one uploaded part on one physical
// locator: re-uploading the same part_number replaces its etag/size
// rather than erroring (spec §4.1, S6).
func (s *Store) AppendPart(ctx context.Context, locatorID uint, partNumber int, etag string, size int64) error {
	return s.withTx(ctx, "append_part", func(tx *gorm.DB) error {
		part := model.PhysicalMultipartPart{
			PhysicalObjectLocatorID: locatorID,
			PartNumber:              partNumber,
			Etag:                    etag,
			Size:                    size,
		}
		return tx.Clauses(onConflictUpdatePart()).Create(&part).Error
	})
}

// ContinueUpload returns the locators of a multipart upload still in
// progress, so the caller can resume issuing part uploads against
// them (spec §4.1).
func (s *Store) ContinueUpload(ctx context.Context, logicalID uint) ([]model.PhysicalObjectLocator, error) {
	var locs []model.PhysicalObjectLocator
	if err := s.db.WithContext(ctx).Where("logical_object_id = ? AND status = ?", logicalID, model.ObjectPending).Find(&locs).Error; err != nil {
		return nil, gwerr.Internal("continue_upload", "%v", err)
	}
	if len(locs) == 0 {
		return nil, gwerr.NotFound("continue_upload", "no pending multipart upload for object %d", logicalID)
	}
	return locs, nil
}

// ListParts returns the parts recorded against the logical object's
// primary locator, the source of truth for list_parts (spec §6).
func (s *Store) ListParts(ctx context.Context, logicalID uint) ([]model.PhysicalMultipartPart, error) {
	var primary model.PhysicalObjectLocator
	if err := s.db.WithContext(ctx).Where("logical_object_id = ? AND is_primary = ?", logicalID, true).First(&primary).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, gwerr.NotFound("list_parts", "no primary locator for object %d", logicalID)
		}
		return nil, gwerr.Internal("list_parts", "%v", err)
	}
	var parts []model.PhysicalMultipartPart
	if err := s.db.WithContext(ctx).Where("physical_object_locator_id = ?", primary.ID).Order("part_number").Find(&parts).Error; err != nil {
		return nil, gwerr.Internal("list_parts", "%v", err)
	}
	return parts, nil
}

// ListMultipartUploads lists every logical object in this bucket that
// has an in-flight multipart_upload_id (SPEC_FULL supplement, spec §6
// list_multipart_uploads).
func (s *Store) ListMultipartUploads(ctx context.Context, bucket string) ([]model.LogicalObject, error) {
	var out []model.LogicalObject
	err := s.db.WithContext(ctx).
		Where("bucket = ? AND status = ? AND multipart_upload_id IS NOT NULL", bucket, model.ObjectPending).
		Find(&out).Error
	if err != nil {
		return nil, gwerr.Internal("list_multipart_uploads", "%v", err)
	}
	return out, nil
}

// CompleteMultipartUpload commits the logical and physical rows as a
// single put, replaying the primary locator's accumulated parts into
// LogicalMultipartPart rows (spec §4.1: "complete is a single put
// commit"); parts recorded on other locators are not replayed.
func (s *Store) CompleteMultipartUpload(ctx context.Context, logicalID uint, etag string, totalSize int64) error {
	now := time.Now()
	return s.withTx(ctx, "complete_upload", func(tx *gorm.DB) error {
		var primary model.PhysicalObjectLocator
		if err := tx.Where("logical_object_id = ? AND is_primary = ?", logicalID, true).First(&primary).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return gwerr.NotFound("complete_upload", "no primary locator for object %d", logicalID)
			}
			return err
		}
		var parts []model.PhysicalMultipartPart
		if err := tx.Where("physical_object_locator_id = ?", primary.ID).Order("part_number").Find(&parts).Error; err != nil {
			return err
		}
		for _, p := range parts {
			lp := model.LogicalMultipartPart{LogicalObjectID: logicalID, PartNumber: p.PartNumber, Etag: p.Etag, Size: p.Size}
			if err := tx.Clauses(onConflictUpdateLogicalPart()).Create(&lp).Error; err != nil {
				return err
			}
		}
		if err := tx.Model(&model.LogicalObject{}).Where("id = ? AND status = ?", logicalID, model.ObjectPending).
			Updates(map[string]interface{}{"status": model.ObjectReady, "etag": etag, "size": totalSize, "last_modified": now}).Error; err != nil {
			return err
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
