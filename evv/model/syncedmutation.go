package model

import "time"

// SyncedMutation records an accepted device mutation so offline replays are
// detected instead of double-applied. The unique index makes a timeout-after-commit
// retry a no-op.
type SyncedMutation struct {
	ID               int64     `gorm:"primaryKey;autoIncrement;column:id"`
	DeviceID         string    `gorm:"column:device_id;type:varchar(64);not null;uniqueIndex:idx_device_token"`
	IdempotencyToken string    `gorm:"column:idempotency_token;type:varchar(36);not null;uniqueIndex:idx_device_token"`
	Kind             string    `gorm:"column:kind;type:varchar(20);not null"`
	VisitID          int32     `gorm:"column:visit_id;not null"`
	CreatedAt        time.Time `gorm:"type:timestamp;not null;default:CURRENT_TIMESTAMP;<-:create"`
}

func (SyncedMutation) TableName() string {
	return "synced_mutations"
}
