package store

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/skystorehq/geogw/internal/gwerr"
	"github.com/skystorehq/geogw/internal/model"
)

// DeleteItem is one (key[, version_id]) entry in a delete_objects
// request (spec §4.1).
type DeleteItem struct {
	Key       string
	VersionID string // empty means "current version"
}

// PendingDelete describes the op_type computed for one key, matching
// S3 semantics under each versioning mode (spec §4.1):
//   - versioning unset: physical locators transition straight to
//     OpDelete, no new logical row; an explicit version_id is a 400.
//   - versioning enabled, no version_id: a new delete-marker
//     LogicalObject is added, with the previous version's physical
//     locators copied onto it as new pending rows (OpAdd).
//   - versioning enabled or suspended, explicit version_id: that exact
//     version's locators transition to OpDelete (permanent delete).
//   - versioning suspended, no version_id, and the version being
//     superseded was itself created while suspended: the existing row
//     is mutated in place to a delete marker (OpReplace), no physical
//     locator change, no two-phase commit needed.
type PendingDelete struct {
	Key          string
	LogicalID    uint
	OpType       model.OpType
	DeleteMarker bool
}

// StartDeleteObjects computes and persists, inside one transaction,
// the pending op for every requested key (spec §4.1). The bucket's
// versioning mode is read from the database rather than trusted from
// the caller, matching the original's re-derivation of version_enabled
// on every delete (delete.py).
func (s *Store) StartDeleteObjects(ctx context.Context, bucket string, items []DeleteItem) ([]PendingDelete, error) {
	var out []PendingDelete
	err := s.withTx(ctx, "start_delete_objects", func(tx *gorm.DB) error {
		var lb model.LogicalBucket
		if err := tx.Where("name = ?", bucket).First(&lb).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return gwerr.NotFound("start_delete_objects", "bucket %q not found", bucket)
			}
			return err
		}
		for _, item := range items {
			pd, err := startDeleteOne(tx, bucket, item, lb.Versioning)
			if err != nil {
				return err
			}
			out = append(out, pd)
		}
		return nil
	})
	return out, err
}

func startDeleteOne(tx *gorm.DB, bucket string, item DeleteItem, mode model.VersioningMode) (PendingDelete, error) {
	if mode == model.VersioningUnset {
		if item.VersionID != "" {
			return PendingDelete{}, gwerr.BadRequest("start_delete_objects", "bucket %q has no version history, version_id is invalid", bucket)
		}
		return deleteCurrentVersion(tx, bucket, item)
	}

	if item.VersionID != "" {
		return deleteExactVersion(tx, bucket, item)
	}

	var prev model.LogicalObject
	err := tx.Where("bucket = ? AND key = ? AND status = ?", bucket, item.Key, model.ObjectReady).
		Order("id DESC").First(&prev).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return PendingDelete{}, gwerr.NotFound("start_delete_objects", "object %s/%s not found", bucket, item.Key)
		}
		return PendingDelete{}, err
	}

	if mode == model.VersioningSuspended && prev.VersionSuspended {
		if err := tx.Model(&model.LogicalObject{}).Where("id = ?", prev.ID).
			Update("delete_marker", true).Error; err != nil {
			return PendingDelete{}, err
		}
		return PendingDelete{Key: item.Key, LogicalID: prev.ID, OpType: model.OpReplace, DeleteMarker: true}, nil
	}

	marker := model.LogicalObject{
		Bucket:           bucket,
		Key:              item.Key,
		Status:           model.ObjectPending,
		DeleteMarker:     true,
		VersionSuspended: mode == model.VersioningSuspended,
		LastModified:     time.Now(),
	}
	if err := tx.Create(&marker).Error; err != nil {
		return PendingDelete{}, err
	}

	// Physical locators are copied from the previous version as new
	// pending rows pointing at the marker; complete_delete_objects's
	// "add" branch flips these to ready once data-plane work confirms.
	var prevLocs []model.PhysicalObjectLocator
	if err := tx.Where("logical_object_id = ? AND status = ?", prev.ID, model.ObjectReady).Find(&prevLocs).Error; err != nil {
		return PendingDelete{}, err
	}
	for _, l := range prevLocs {
		copyLoc := model.PhysicalObjectLocator{
			LocationTag:     l.LocationTag,
			Cloud:           l.Cloud,
			Region:          l.Region,
			Bucket:          l.Bucket,
			Key:             l.Key,
			Status:          model.ObjectPending,
			IsPrimary:       l.IsPrimary,
			LogicalObjectID: marker.ID,
			TTL:             l.TTL,
			OpType:          model.OpAdd,
		}
		if err := tx.Create(&copyLoc).Error; err != nil {
			return PendingDelete{}, err
		}
	}

	return PendingDelete{Key: item.Key, LogicalID: marker.ID, OpType: model.OpAdd, DeleteMarker: true}, nil
}

func deleteCurrentVersion(tx *gorm.DB, bucket string, item DeleteItem) (PendingDelete, error) {
	var obj model.LogicalObject
	err := tx.Where("bucket = ? AND key = ? AND status = ?", bucket, item.Key, model.ObjectReady).
		Order("id DESC").First(&obj).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return PendingDelete{}, gwerr.NotFound("start_delete_objects", "object %s/%s not found", bucket, item.Key)
		}
		return PendingDelete{}, err
	}
	if err := tx.Model(&model.PhysicalObjectLocator{}).
		Where("logical_object_id = ? AND status = ?", obj.ID, model.ObjectReady).
		Updates(map[string]interface{}{"status": model.ObjectPendingDeletion, "op_type": model.OpDelete}).Error; err != nil {
		return PendingDelete{}, err
	}
	return PendingDelete{Key: item.Key, LogicalID: obj.ID, OpType: model.OpDelete}, nil
}

func deleteExactVersion(tx *gorm.DB, bucket string, item DeleteItem) (PendingDelete, error) {
	var obj model.LogicalObject
	if err := tx.Where("bucket = ? AND key = ? AND id = ?", bucket, item.Key, item.VersionID).First(&obj).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return PendingDelete{}, gwerr.NotFound("start_delete_objects", "version %s of %s/%s not found", item.VersionID, bucket, item.Key)
		}
		return PendingDelete{}, err
	}
	if err := tx.Model(&model.PhysicalObjectLocator{}).
		Where("logical_object_id = ? AND status = ?", obj.ID, model.ObjectReady).
		Updates(map[string]interface{}{"status": model.ObjectPendingDeletion, "op_type": model.OpDelete}).Error; err != nil {
		return PendingDelete{}, err
	}
	return PendingDelete{Key: item.Key, LogicalID: obj.ID, OpType: model.OpDelete}, nil
}

// CompleteDeleteObjects finalizes each PendingDelete according to its
// op_type (spec §4.1): OpDelete rows are removed once data-plane
// deletion is confirmed; OpAdd delete-marker rows and their copied
// physical locators flip to ready; OpReplace is a no-op here because
// the suspended in-place mutation already committed synchronously in
// start_delete_objects.
func (s *Store) CompleteDeleteObjects(ctx context.Context, pending []PendingDelete) error {
	return s.withTx(ctx, "complete_delete_objects", func(tx *gorm.DB) error {
		for _, pd := range pending {
			switch pd.OpType {
			case model.OpDelete:
				if err := tx.Where("logical_object_id = ? AND status = ?", pd.LogicalID, model.ObjectPendingDeletion).
					Delete(&model.PhysicalObjectLocator{}).Error; err != nil {
					return err
				}
				var remaining int64
				if err := tx.Model(&model.PhysicalObjectLocator{}).Where("logical_object_id = ?", pd.LogicalID).Count(&remaining).Error; err != nil {
					return err
				}
				if remaining == 0 {
					if err := tx.Delete(&model.LogicalObject{}, pd.LogicalID).Error; err != nil {
						return err
					}
				}
			case model.OpAdd:
				if err := tx.Model(&model.LogicalObject{}).Where("id = ? AND status = ?", pd.LogicalID, model.ObjectPending).
					Update("status", model.ObjectReady).Error; err != nil {
					return err
				}
				if err := tx.Model(&model.PhysicalObjectLocator{}).
					Where("logical_object_id = ? AND status = ?", pd.LogicalID, model.ObjectPending).
					Update("status", model.ObjectReady).Error; err != nil {
					return err
				}
			case model.OpReplace:
				// already committed in start_delete_objects; nothing to do.
			}
		}
		return nil
	})
}
