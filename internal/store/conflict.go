package store

import (
	"gorm.io/gorm/clause"
)

// onConflictUpdatePart makes AppendPart idempotent on re-uploading an
// existing part_number (spec §4.1, S6).
func onConflictUpdatePart() clause.OnConflict {
	return clause.OnConflict{
		Columns:   []clause.Column{{Name: "physical_object_locator_id"}, {Name: "part_number"}},
		DoUpdates: clause.AssignmentColumns([]string{"etag", "size"}),
	}
}

// onConflictUpdateLogicalPart makes replaying parts onto the logical
// row idempotent across repeated complete_upload retries.
func onConflictUpdateLogicalPart() clause.OnConflict {
	return clause.OnConflict{
		Columns:   []clause.Column{{Name: "logical_object_id"}, {Name: "part_number"}},
		DoUpdates: clause.AssignmentColumns([]string{"etag", "size"}),
	}
}
