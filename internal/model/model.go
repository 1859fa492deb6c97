// Package model holds the GORM entities backing the metadata store
// (spec §3). Field names mirror the spec's data model; GORM tags
// carry the uniqueness/index constraints called out there.
package model

import "time"

// TTL and all other durations ingested from traces or configured by
// policies are expressed in whole seconds throughout this service
// (see SPEC_FULL.md, Open Question #1).

// BucketStatus is the lifecycle state of a LogicalBucket (spec §3).
type BucketStatus string

const (
	BucketPending         BucketStatus = "pending"
	BucketPendingDeletion BucketStatus = "pending_deletion"
	BucketReady           BucketStatus = "ready"
)

// ObjectStatus is the lifecycle state of a logical or physical row.
type ObjectStatus string

const (
	ObjectPending         ObjectStatus = "pending"
	ObjectPendingDeletion ObjectStatus = "pending_deletion"
	ObjectReady           ObjectStatus = "ready"
)

// VersioningMode mirrors LogicalBucket.versioning.
type VersioningMode string

const (
	VersioningUnset     VersioningMode = "unset"
	VersioningEnabled   VersioningMode = "enabled"
	VersioningSuspended VersioningMode = "suspended"
)

// OpType tags a physical-locator mutation performed by delete_objects
// so complete_delete_objects knows what to do with it (spec §4.1).
type OpType string

const (
	OpAdd     OpType = "add"
	OpReplace OpType = "replace"
	OpDelete  OpType = "delete"
)

// LogicalBucket is the globally unique logical namespace entry.
type LogicalBucket struct {
	Name         string `gorm:"primaryKey"`
	Prefix       string
	Status       BucketStatus `gorm:"index"`
	CreationTime time.Time
	Versioning   VersioningMode

	LogicalObjects []LogicalObject        `gorm:"foreignKey:Bucket;references:Name"`
	Physicals      []PhysicalBucketLocator `gorm:"foreignKey:BucketName;references:Name"`
}

// PhysicalBucketLocator binds a logical bucket to one physical bucket
// in one region.
type PhysicalBucketLocator struct {
	ID            uint   `gorm:"primaryKey"`
	BucketName    string `gorm:"uniqueIndex:uniq_phys_bucket_region"`
	LocationTag   string `gorm:"uniqueIndex:uniq_phys_bucket_region"` // cloud:region
	Cloud         string
	Region        string
	Prefix        string
	Status        ObjectStatus
	LockAcquired  *time.Time
	IsPrimary     bool
	NeedWarmup    bool
	LogicalBucket string `gorm:"index"` // FK -> LogicalBucket.Name
}

// LogicalObject is one immutable version of an object key; its
// numeric id *is* the logical version id (spec I3, I7).
type LogicalObject struct {
	ID                uint `gorm:"primaryKey;autoIncrement"`
	Bucket            string `gorm:"index:idx_bucket_key_status"`
	Key               string `gorm:"index:idx_bucket_key_status"`
	Size              int64
	LastModified      time.Time
	Etag              string
	Status            ObjectStatus `gorm:"index:idx_bucket_key_status"`
	VersionSuspended  bool
	DeleteMarker      bool
	MultipartUploadID *string
	BaseRegion        *string

	Physicals []PhysicalObjectLocator `gorm:"foreignKey:LogicalObjectID"`
	Parts     []LogicalMultipartPart  `gorm:"foreignKey:LogicalObjectID"`
}

// PhysicalObjectLocator references a single replica of a single
// version in a single underlying cloud bucket (spec §3).
type PhysicalObjectLocator struct {
	ID                uint   `gorm:"primaryKey;autoIncrement"`
	LocationTag       string `gorm:"uniqueIndex:uniq_phys_obj"`
	Cloud             string
	Region            string
	Bucket            string `gorm:"uniqueIndex:uniq_phys_obj"`
	Key               string `gorm:"uniqueIndex:uniq_phys_obj"`
	Status            ObjectStatus
	LockAcquired      *time.Time
	IsPrimary         bool
	VersionID         string
	MultipartUploadID *string
	TTL               int64 // seconds; -1 = forever, 0 = evict on next sweep
	StorageStartTime  *time.Time
	LogicalObjectID   uint `gorm:"uniqueIndex:uniq_phys_obj;index"`
	CopySrcBucket     *string
	CopySrcKey        *string
	OpType            OpType
}

// IsLive reports whether a physical locator is still inside its TTL
// window at instant now (spec I6).
func (p *PhysicalObjectLocator) IsLive(now time.Time) bool {
	if p.TTL == -1 {
		return true
	}
	if p.StorageStartTime == nil {
		return false
	}
	expiry := p.StorageStartTime.Add(time.Duration(p.TTL) * time.Second)
	return !now.Before(*p.StorageStartTime) && now.Before(expiry)
}

// LogicalMultipartPart mirrors a completed part on the primary
// logical row.
type LogicalMultipartPart struct {
	ID              uint `gorm:"primaryKey;autoIncrement"`
	LogicalObjectID uint `gorm:"uniqueIndex:uniq_logical_part"`
	PartNumber      int  `gorm:"uniqueIndex:uniq_logical_part"`
	Etag            string
	Size            int64
}

// PhysicalMultipartPart mirrors a part uploaded to one destination
// locator; replacing a part_number is idempotent (spec §4.1, S6).
type PhysicalMultipartPart struct {
	ID                      uint `gorm:"primaryKey;autoIncrement"`
	PhysicalObjectLocatorID uint `gorm:"uniqueIndex:uniq_phys_part"`
	PartNumber              int  `gorm:"uniqueIndex:uniq_phys_part"`
	Etag                    string
	Size                    int64
}

// Metric is one ingested request observation (spec §3). Rows are
// only stored; no policy reads this table (the transfer policies take
// throughput and cost from the cost graph).
type Metric struct {
	ID           uint `gorm:"primaryKey;autoIncrement"`
	Timestamp    time.Time
	IssueRegion  string
	AnswerRegion string
	LatencyMs    float64
	Key          string
	Size         int64
	Op           string
}

// AllModels lists every entity for AutoMigrate.
func AllModels() []interface{} {
	return []interface{}{
		&LogicalBucket{},
		&PhysicalBucketLocator{},
		&LogicalObject{},
		&PhysicalObjectLocator{},
		&LogicalMultipartPart{},
		&PhysicalMultipartPart{},
		&Metric{},
	}
}
