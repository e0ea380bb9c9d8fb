package visit

import (
	"fmt"
	"net/http"

	"careloop.com/careloop/evv"
	web "careloop.com/careloop/web/common"
	"careloop.com/careloop/web/middlewares"
	"github.com/gin-gonic/gin"
)

func (ep *Endpoint) ClockIn(c *gin.Context) {
	var dto ClockInDTO
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
	res, err := recorder.ClockIn(c.Request.Context(), evv.ClockInParams{
		VisitID:          dto.ShiftID,
		CaregiverID:      callerID,
		Timestamp:        dto.Timestamp,
		GPS:              toGPS(dto.GPS),
		DeviceID:         deviceID(c, dto.DeviceInfo),
		IdempotencyToken: dto.IdempotencyToken,
	})
	if err != nil {
		web.RenderError(c, err)
		return
	}

	message := "Clock-in verified"
	if !res.GeofenceValid {
		message = fmt.Sprintf("Clock-in recorded %.0fm from the client address", res.DistanceMeters)
		ep.alert(fmt.Sprintf("Geofence miss on clock-in: visit %d, %.0fm from client", dto.ShiftID, res.DistanceMeters))
	}

	c.JSON(http.StatusOK, ClockInResponseDTO{
		EvvRecordID:        res.EVVRecordID,
		ClockInTime:        res.ClockInTime,
		GeofenceValid:      res.GeofenceValid,
		DistanceFromClient: res.DistanceMeters,
		Message:            message,
	})
}

func toGPS(dto *GPSDTO) evv.GPS {
	return evv.GPS{
		Latitude:  *dto.Latitude,
		Longitude: *dto.Longitude,
		Accuracy:  *dto.Accuracy,
	}
}

func deviceID(c *gin.Context, info *DeviceInfoDTO) string {
	if info != nil && info.DeviceID != "" {
		return info.DeviceID
	}
	return middlewares.DeviceID(c)
}
