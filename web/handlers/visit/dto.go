package visit

import "time"

type GPSDTO struct {
	Latitude  *float64 `json:"latitude" binding:"required,latitude"`
	Longitude *float64 `json:"longitude" binding:"required,longitude"`
	Accuracy  *float64 `json:"accuracy" binding:"required,gte=0"`
}

type DeviceInfoDTO struct {
	DeviceID   string `json:"deviceId"`
	Platform   string `json:"platform,omitempty"`
	AppVersion string `json:"appVersion,omitempty"`
}

type ClockInDTO struct {
	ShiftID          int32          `json:"shiftId" binding:"required"`
	Timestamp        time.Time      `json:"timestamp" binding:"required"`
	GPS              *GPSDTO        `json:"gps" binding:"required"`
	DeviceInfo       *DeviceInfoDTO `json:"deviceInfo,omitempty"`
	IdempotencyToken string         `json:"idempotencyToken,omitempty"`
}

type ClockInResponseDTO struct {
	EvvRecordID        string    `json:"evvRecordId"`
	ClockInTime        time.Time `json:"clockInTime"`
	GeofenceValid      bool      `json:"geofenceValid"`
	DistanceFromClient float64   `json:"distanceFromClient"`
	Message            string    `json:"message"`
}

type ClockOutDTO struct {
	ShiftID          int32          `json:"shiftId" binding:"required"`
	Timestamp        time.Time      `json:"timestamp" binding:"required"`
	GPS              *GPSDTO        `json:"gps" binding:"required"`
	TasksCompleted   []string       `json:"tasksCompleted"`
	Notes            string         `json:"notes,omitempty"`
	DeviceInfo       *DeviceInfoDTO `json:"deviceInfo,omitempty"`
	IdempotencyToken string         `json:"idempotencyToken,omitempty"`
}

type ClockOutResponseDTO struct {
	ClockOutTime    time.Time `json:"clockOutTime"`
	GeofenceValid   bool      `json:"geofenceValid"`
	DurationMinutes int       `json:"durationMinutes"`
	BillableUnits   int       `json:"billableUnits"`
	SandataStatus   string    `json:"sandataStatus"`
	Message         string    `json:"message"`
}

type PersonDTO struct {
	ID        int32  `json:"id"`
	FirstName string `json:"firstName"`
	Surname   string `json:"surname"`
}

type VisitDTO struct {
	ID             int32      `json:"id"`
	Status         string     `json:"status"`
	ServiceCode    string     `json:"serviceCode"`
	ScheduledStart time.Time  `json:"scheduledStart"`
	ScheduledEnd   time.Time  `json:"scheduledEnd"`
	ActualStart    *time.Time `json:"actualStart,omitempty"`
	ActualEnd      *time.Time `json:"actualEnd,omitempty"`
	Client         PersonDTO  `json:"client"`
	Caregiver      PersonDTO  `json:"caregiver"`
}
