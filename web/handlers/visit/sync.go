package visit

import (
	"encoding/json"
	"errors"
	"net/http"

	"careloop.com/careloop/evv"
	web "careloop.com/careloop/web/common"
	"careloop.com/careloop/web/middlewares"
	"github.com/gin-gonic/gin"
)

type SyncRecordDTO struct {
	Type string          `json:"type" binding:"required,oneof=clock-in clock-out"`
	Data json.RawMessage `json:"data" binding:"required"`
}

type SyncRequestDTO struct {
	DeviceID string          `json:"deviceId"`
	Records  []SyncRecordDTO `json:"records" binding:"required,dive"`
}

type SyncResultDTO struct {
	Status string `json:"status"` // success | skipped | failed
	Reason string `json:"reason,omitempty"`
}

type SyncResponseDTO struct {
	Records []SyncResultDTO `json:"records"`
}

// Sync replays mutations a device queued while offline, strictly in array order.
// A record whose idempotency token was already accepted reports "skipped": the
// device retried after a timeout but the original write committed.
func (ep *Endpoint) Sync(c *gin.Context) {
	var req SyncRequestDTO
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, web.NewErrorResponse(web.FormatBindingError(err)))
		return
	}

	callerID, ok := middlewares.CallerID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, web.NewErrorResponse("no caller identity"))
		return
	}

	db, conn, err := ep.base.GetDB(c)
	if err != nil {
		c.JSON(http.StatusInternalServerError, web.NewErrorResponse(err.Error()))
		return
	}
	defer conn.Close()

	recorder := evv.NewRecorder(evv.NewGormRepository(db))

	results := make([]SyncResultDTO, 0, len(req.Records))
	for _, record := range req.Records {
		results = append(results, ep.applySyncRecord(c, recorder, callerID, req.DeviceID, record))
	}

	c.JSON(http.StatusOK, SyncResponseDTO{Records: results})
}

func (ep *Endpoint) applySyncRecord(c *gin.Context, recorder *evv.Recorder, callerID int32, deviceID string, record SyncRecordDTO) SyncResultDTO {
	switch record.Type {
	case "clock-in":
		var dto ClockInDTO
		if err := json.Unmarshal(record.Data, &dto); err != nil || dto.GPS == nil {
			return SyncResultDTO{Status: "failed", Reason: "malformed clock-in payload"}
		}
		_, err := recorder.ClockIn(c.Request.Context(), evv.ClockInParams{
			VisitID:          dto.ShiftID,
			CaregiverID:      callerID,
			Timestamp:        dto.Timestamp,
			GPS:              toGPS(dto.GPS),
			DeviceID:         syncDeviceID(deviceID, dto.DeviceInfo),
			IdempotencyToken: dto.IdempotencyToken,
		})
		return syncResult(err)

	case "clock-out":
		var dto ClockOutDTO
		if err := json.Unmarshal(record.Data, &dto); err != nil || dto.GPS == nil {
			return SyncResultDTO{Status: "failed", Reason: "malformed clock-out payload"}
		}
		res, err := recorder.ClockOut(c.Request.Context(), evv.ClockOutParams{
			VisitID:          dto.ShiftID,
			CaregiverID:      callerID,
			Timestamp:        dto.Timestamp,
			GPS:              toGPS(dto.GPS),
			TasksCompleted:   dto.TasksCompleted,
			Notes:            dto.Notes,
			DeviceID:         syncDeviceID(deviceID, dto.DeviceInfo),
			IdempotencyToken: dto.IdempotencyToken,
		})
		if err == nil && res.QuotaFinding != nil {
			ep.alert("Quota exceeded during offline sync: " + res.QuotaFinding.Error())
		}
		return syncResult(err)
	}

	return SyncResultDTO{Status: "failed", Reason: "unknown record type"}
}

func syncDeviceID(fallback string, info *DeviceInfoDTO) string {
	if info != nil && info.DeviceID != "" {
		return info.DeviceID
	}
	return fallback
}

func syncResult(err error) SyncResultDTO {
	switch {
	case err == nil:
		return SyncResultDTO{Status: "success"}
	case errors.Is(err, evv.ErrDuplicateMutation):
		return SyncResultDTO{Status: "skipped", Reason: err.Error()}
	default:
		return SyncResultDTO{Status: "failed", Reason: err.Error()}
	}
}
