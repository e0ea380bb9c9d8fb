package model

import "time"

const (
	AuthorizationActive     = "active"
	AuthorizationSuspended  = "suspended"
	AuthorizationExpired    = "expired"
	AuthorizationTerminated = "terminated"
)

// Authorization is a client's payer-approved entitlement to N service units of a
// service code over the ISP date range. UnitsUsed is a running counter; the usage
// entries are the audit trail it is derived from.
type Authorization struct {
	ID              int32     `gorm:"primaryKey;column:id"`
	ClientID        int32     `gorm:"column:client_id;not null"`
	ServiceCode     string    `gorm:"column:service_code;type:varchar(20);not null"`
	UnitsAuthorized int       `gorm:"column:units_authorized;not null"`
	UnitsUsed       int       `gorm:"column:units_used;not null;default:0"`
	UnitsPeriod     string    `gorm:"column:units_period;type:varchar(20);not null"`
	ISPStartDate    time.Time `gorm:"column:isp_start_date;type:date;not null"`
	ISPEndDate      time.Time `gorm:"column:isp_end_date;type:date;not null"`
	Status          string    `gorm:"column:status;type:varchar(20);not null;default:active"`

	CreatedAt time.Time `gorm:"type:timestamp;not null;default:CURRENT_TIMESTAMP;<-:create"`
	UpdatedAt time.Time `gorm:"type:timestamp;not null;default:CURRENT_TIMESTAMP on update CURRENT_TIMESTAMP"`
}

func (Authorization) TableName() string {
	return "authorizations"
}

// AuthorizationUsageEntry is an append-only ledger line. Never updated or deleted.
type AuthorizationUsageEntry struct {
	ID              int64     `gorm:"primaryKey;autoIncrement;column:id"`
	AuthorizationID int32     `gorm:"column:authorization_id;not null;index"`
	VisitID         int32     `gorm:"column:visit_id;not null"`
	Units           int       `gorm:"column:units;not null"`
	ServiceDate     time.Time `gorm:"column:service_date;type:date;not null;index"`

	CreatedAt time.Time `gorm:"type:timestamp;not null;default:CURRENT_TIMESTAMP;<-:create"`
}

func (AuthorizationUsageEntry) TableName() string {
	return "authorization_usage_entries"
}
