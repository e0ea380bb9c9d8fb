package visit

import (
	"fmt"
	"net/http"

	"careloop.com/careloop/evv"
	web "careloop.com/careloop/web/common"
	"careloop.com/careloop/web/middlewares"
	"github.com/gin-gonic/gin"
)

func (ep *Endpoint) ClockOut(c *gin.Context) {
	var dto ClockOutDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
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
	res, err := recorder.ClockOut(c.Request.Context(), evv.ClockOutParams{
		VisitID:          dto.ShiftID,
		CaregiverID:      callerID,
		Timestamp:        dto.Timestamp,
		GPS:              toGPS(dto.GPS),
		TasksCompleted:   dto.TasksCompleted,
		Notes:            dto.Notes,
		DeviceID:         deviceID(c, dto.DeviceInfo),
		IdempotencyToken: dto.IdempotencyToken,
	})
	if err != nil {
		web.RenderError(c, err)
		return
	}

	message := "Visit completed"
	if res.QuotaFinding != nil {
		message = fmt.Sprintf("Visit completed with warning: %s", res.QuotaFinding.Error())
		ep.alert(fmt.Sprintf("Quota exceeded on clock-out: visit %d, %s", dto.ShiftID, res.QuotaFinding.Error()))
	}
	if !res.GeofenceValid {
		ep.alert(fmt.Sprintf("Geofence miss on clock-out: visit %d, %.0fm from client", dto.ShiftID, res.DistanceMeters))
	}

	c.JSON(http.StatusOK, ClockOutResponseDTO{
		ClockOutTime:    res.ClockOutTime,
		GeofenceValid:   res.GeofenceValid,
		DurationMinutes: res.DurationMinutes,
		BillableUnits:   res.BillableUnits,
		SandataStatus:   res.SandataStatus,
		Message:         message,
	})
}
