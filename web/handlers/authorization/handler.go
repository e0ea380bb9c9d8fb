package authorization

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"careloop.com/careloop/core"
	"careloop.com/careloop/evv"
	web "careloop.com/careloop/web/common"
	common "careloop.com/careloop/web/handlers/common"
	"github.com/gin-gonic/gin"
)

type Endpoint struct {
	base common.Handler
}

func Register(r *gin.RouterGroup, dm *core.DatabaseManager) {
	endpoint := &Endpoint{base: common.Handler{Dm: dm}}
	r.GET("/authorizations/:id/usage", endpoint.Usage)
	r.GET("/authorizations/:id/usage/export", endpoint.ExportUsage)
}

type UsageResponseDTO struct {
	AuthorizationID    int32   `json:"authorizationId"`
	WindowStart        string  `json:"windowStart"`
	WindowEnd          string  `json:"windowEnd"`
	UnitsAuthorized    int     `json:"unitsAuthorized"`
	UnitsUsed          int     `json:"unitsUsed"`
	UnitsRemaining     int     `json:"unitsRemaining"`
	UtilizationPercent float64 `json:"utilizationPercent"`
}

// Usage reports the quota state of the window containing the given service date.
// Without a date parameter it reports the current window.
func (ep *Endpoint) Usage(c *gin.Context) {
	id, serviceDate, err := ep.usageParams(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, web.NewErrorResponse(err.Error()))
		return
	}

	db, conn, err := ep.base.GetDB(c)
	if err != nil {
		c.JSON(http.StatusInternalServerError, web.NewErrorResponse(err.Error()))
		return
	}
	defer conn.Close()

	ledger := evv.NewLedger(evv.NewGormRepository(db))
	av, err := ledger.AvailableUnits(c.Request.Context(), id, serviceDate)
	if err != nil {
		web.RenderError(c, err)
		return
	}

	c.JSON(http.StatusOK, UsageResponseDTO{
		AuthorizationID:    av.AuthorizationID,
		WindowStart:        av.Window.Start.Format("2006-01-02"),
		WindowEnd:          av.Window.End.Format("2006-01-02"),
		UnitsAuthorized:    av.UnitsAuthorized,
		UnitsUsed:          av.WindowUsed,
		UnitsRemaining:     av.Available,
		UtilizationPercent: av.UtilizationPercent(),
	})
}

// ExportUsage streams the window's usage ledger as a spreadsheet.
func (ep *Endpoint) ExportUsage(c *gin.Context) {
	id, serviceDate, err := ep.usageParams(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, web.NewErrorResponse(err.Error()))
		return
	}

	db, conn, err := ep.base.GetDB(c)
	if err != nil {
		c.JSON(http.StatusInternalServerError, web.NewErrorResponse(err.Error()))
		return
	}
	defer conn.Close()

	repo := evv.NewGormRepository(db)
	ledger := evv.NewLedger(repo)

	av, err := ledger.AvailableUnits(c.Request.Context(), id, serviceDate)
	if err != nil {
		web.RenderError(c, err)
		return
	}
	auth, err := repo.AuthorizationByID(c.Request.Context(), id)
	if err != nil {
		web.RenderError(c, err)
		return
	}
	entries, err := repo.UsageEntriesInWindow(c.Request.Context(), id, av.Window)
	if err != nil {
		web.RenderError(c, err)
		return
	}

	f, err := evv.BuildUtilizationWorkbook(auth, av, entries)
	if err != nil {
		c.JSON(http.StatusInternalServerError, web.NewErrorResponse(err.Error()))
		return
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		c.JSON(http.StatusInternalServerError, web.NewErrorResponse(err.Error()))
		return
	}

	filename := fmt.Sprintf("authorization-%d-usage.xlsx", id)
	c.Header("Content-Disposition", `attachment; filename="`+filename+`"`)
	c.Data(http.StatusOK, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", buf.Bytes())
}

func (ep *Endpoint) usageParams(c *gin.Context) (int32, time.Time, error) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 32)
	if err != nil {
		return 0, time.Time{}, fmt.Errorf("invalid authorization id")
	}

	serviceDate := time.Now().UTC()
	if raw := c.Query("date"); raw != "" {
		serviceDate, err = time.Parse("2006-01-02", raw)
		if err != nil {
			return 0, time.Time{}, fmt.Errorf("invalid date, expected yyyy-MM-dd")
		}
	}
	return int32(id), serviceDate, nil
}
