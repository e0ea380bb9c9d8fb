package model

import "time"

const (
	GeofenceInside  = "inside"
	GeofenceOutside = "outside"

	ValidationValid   = "valid"
	ValidationWarning = "warning"

	SandataPending       = "pending"
	SandataReadyToSubmit = "ready_to_submit"
	SandataSubmitted     = "submitted"
)

// EVVRecord is the electronic visit verification record, 1:1 with a visit.
// Created at clock-in, completed at clock-out, immutable once submitted.
type EVVRecord struct {
	ID      string `gorm:"primaryKey;column:id;type:varchar(36)"`
	VisitID int32  `gorm:"column:visit_id;not null;uniqueIndex"`

	ClockInTime      *time.Time `gorm:"column:clock_in_time"`
	ClockInLatitude  *float64   `gorm:"column:clock_in_latitude;type:decimal(10,7)"`
	ClockInLongitude *float64   `gorm:"column:clock_in_longitude;type:decimal(10,7)"`
	ClockInAccuracy  *float64   `gorm:"column:clock_in_accuracy;type:decimal(8,2)"`
	ClockInGeofence  string     `gorm:"column:clock_in_geofence;type:varchar(10)"`
	ClockInDistanceM *float64   `gorm:"column:clock_in_distance_m;type:decimal(10,2)"`

	ClockOutTime      *time.Time `gorm:"column:clock_out_time"`
	ClockOutLatitude  *float64   `gorm:"column:clock_out_latitude;type:decimal(10,7)"`
	ClockOutLongitude *float64   `gorm:"column:clock_out_longitude;type:decimal(10,7)"`
	ClockOutAccuracy  *float64   `gorm:"column:clock_out_accuracy;type:decimal(8,2)"`
	ClockOutGeofence  string     `gorm:"column:clock_out_geofence;type:varchar(10)"`
	ClockOutDistanceM *float64   `gorm:"column:clock_out_distance_m;type:decimal(10,2)"`

	ValidationStatus string `gorm:"column:validation_status;type:varchar(10);not null;default:valid"`
	BillableUnits    *int   `gorm:"column:billable_units"`

	// TasksCompleted is a JSON-encoded string array.
	TasksCompleted string `gorm:"column:tasks_completed;type:text"`
	Notes          string `gorm:"column:notes;type:text"`

	SandataStatus string `gorm:"column:sandata_status;type:varchar(20);not null;default:pending"`

	CreatedAt time.Time `gorm:"type:timestamp;not null;default:CURRENT_TIMESTAMP;<-:create"`
	UpdatedAt time.Time `gorm:"type:timestamp;not null;default:CURRENT_TIMESTAMP on update CURRENT_TIMESTAMP"`
}

func (EVVRecord) TableName() string {
	return "evv_records"
}
