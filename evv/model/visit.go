package model

import "time"

const (
	VisitStatusScheduled  = "scheduled"
	VisitStatusInProgress = "in_progress"
	VisitStatusCompleted  = "completed"
	VisitStatusMissed     = "missed"
	VisitStatusCancelled  = "cancelled"
)

// Visit is a scheduled unit of care. Scheduling creates rows; only clock
// transitions mutate them. Rows are never deleted, only status-transitioned.
type Visit struct {
	ID             int32      `gorm:"primaryKey;column:id"`
	ClientID       int32      `gorm:"column:client_id;not null"`
	CaregiverID    int32      `gorm:"column:caregiver_id;not null"`
	ServiceCode    string     `gorm:"column:service_code;type:varchar(20)"`
	ScheduledStart time.Time  `gorm:"column:scheduled_start;not null"`
	ScheduledEnd   time.Time  `gorm:"column:scheduled_end;not null"`
	ActualStart    *time.Time `gorm:"column:actual_start"`
	ActualEnd      *time.Time `gorm:"column:actual_end"`
	Status         string     `gorm:"column:status;type:varchar(20);not null;default:scheduled"`

	// Foreign Keys
	AuthorizationID *int32 `gorm:"column:authorization_id"`

	Client    Client    `gorm:"foreignKey:ClientID;references:ID"`
	Caregiver Caregiver `gorm:"foreignKey:CaregiverID;references:ID"`

	CreatedAt time.Time `gorm:"type:timestamp;not null;default:CURRENT_TIMESTAMP;<-:create"`
	UpdatedAt time.Time `gorm:"type:timestamp;not null;default:CURRENT_TIMESTAMP on update CURRENT_TIMESTAMP"`
}

func (Visit) TableName() string {
	return "visits"
}

// Terminal reports whether the visit can no longer accept clock operations.
func (v *Visit) Terminal() bool {
	return v.Status == VisitStatusCompleted || v.Status == VisitStatusMissed || v.Status == VisitStatusCancelled
}
