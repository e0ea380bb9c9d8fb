package v1

import (
	"context"
	"encoding/json"
	"time"
)

type GPSDTO struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Accuracy  float64 `json:"accuracy"`
}

type DeviceInfoDTO struct {
	DeviceID   string `json:"deviceId"`
	Platform   string `json:"platform,omitempty"`
	AppVersion string `json:"appVersion,omitempty"`
}

type ClockInDTO struct {
	ShiftID          int32          `json:"shiftId"`
	Timestamp        time.Time      `json:"timestamp"`
	GPS              *GPSDTO        `json:"gps"`
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
	ShiftID          int32          `json:"shiftId"`
	Timestamp        time.Time      `json:"timestamp"`
	GPS              *GPSDTO        `json:"gps"`
	TasksCompleted   []string       `json:"tasksCompleted,omitempty"`
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

type SyncRecordDTO struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

type SyncRequestDTO struct {
	DeviceID string          `json:"deviceId"`
	Records  []SyncRecordDTO `json:"records"`
}

type SyncResultDTO struct {
	Status string `json:"status"`
	Reason string `json:"reason,omitempty"`
}

type SyncResponseDTO struct {
	Records []SyncResultDTO `json:"records"`
}

type VisitEndpoint struct {
	transport *Transport
}

func (this *VisitEndpoint) ClockIn(ctx context.Context, dto *ClockInDTO) (*ClockInResponseDTO, error) {
	resp, err := this.transport.Post(ctx, "/api/evv/clock-in", dto, nil)
	if err != nil {
		return nil, err
	}

	var result ClockInResponseDTO
	if err := json.Unmarshal(resp.Data, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func (this *VisitEndpoint) ClockOut(ctx context.Context, dto *ClockOutDTO) (*ClockOutResponseDTO, error) {
	resp, err := this.transport.Post(ctx, "/api/evv/clock-out", dto, nil)
	if err != nil {
		return nil, err
	}

	var result ClockOutResponseDTO
	if err := json.Unmarshal(resp.Data, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func (this *VisitEndpoint) Sync(ctx context.Context, dto *SyncRequestDTO) (*SyncResponseDTO, error) {
	resp, err := this.transport.Post(ctx, "/api/evv/sync", dto, nil)
	if err != nil {
		return nil, err
	}

	var result SyncResponseDTO
	if err := json.Unmarshal(resp.Data, &result); err != nil {
		return nil, err
	}
	return &result, nil
}
