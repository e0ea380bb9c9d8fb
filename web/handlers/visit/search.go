package visit

import (
	"net/http"
	"strconv"

	"careloop.com/careloop/evv"
	"careloop.com/careloop/evv/model"
	"careloop.com/careloop/utils"
	web "careloop.com/careloop/web/common"
	"github.com/gin-gonic/gin"
)

const maxSearchLimit = 1000

// pageParams clamps limit/offset query values. Anything non-positive or over
// the cap falls back to the defaults instead of disabling pagination in gorm.
func pageParams(limitRaw, offsetRaw string) (int, int) {
	limit := maxSearchLimit
	if val, err := strconv.Atoi(limitRaw); err == nil && val > 0 && val <= maxSearchLimit {
		limit = val
	}

	offset := 0
	if val, err := strconv.Atoi(offsetRaw); err == nil && val > 0 {
		offset = val
	}
	return limit, offset
}

type SearchParams struct {
	StartDate  *web.DateOnly `json:"startDate" binding:"required"`
	EndDate    *web.DateOnly `json:"endDate" binding:"required"`
	Caregivers []int32       `json:"caregivers"`
	Clients    []int32       `json:"clients"`
}

func (ep *Endpoint) Search(c *gin.Context) {
	var params SearchParams
	if err := c.ShouldBindJSON(&params); err != nil {
		c.JSON(http.StatusBadRequest, web.NewErrorResponse(web.FormatBindingError(err)))
		return
	}

	limit, offset := pageParams(c.Query("limit"), c.Query("offset"))

	db, conn, err := ep.base.GetDB(c)
	if err != nil {
		c.JSON(http.StatusInternalServerError, web.NewErrorResponse(err.Error()))
		return
	}
	defer conn.Close()

	repo := evv.NewGormRepository(db)
	visits, total, err := repo.SearchVisits(c.Request.Context(), evv.VisitSearch{
		StartDate:  params.StartDate.Time,
		EndDate:    params.EndDate.Time,
		Caregivers: params.Caregivers,
		Clients:    params.Clients,
		Limit:      limit,
		Offset:     offset,
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, web.NewErrorResponse(err.Error()))
		return
	}

	dtos := utils.Map(visits, func(v model.Visit) VisitDTO {
		return VisitDTO{
			ID:             v.ID,
			Status:         v.Status,
			ServiceCode:    v.ServiceCode,
			ScheduledStart: v.ScheduledStart,
			ScheduledEnd:   v.ScheduledEnd,
			ActualStart:    v.ActualStart,
			ActualEnd:      v.ActualEnd,
			Client: PersonDTO{
				ID:        v.Client.ID,
				FirstName: v.Client.FirstName,
				Surname:   v.Client.Surname,
			},
			Caregiver: PersonDTO{
				ID:        v.Caregiver.ID,
				FirstName: v.Caregiver.FirstName,
				Surname:   v.Caregiver.Surname,
			},
		}
	})

	c.JSON(http.StatusOK, web.NewSearchResponse(dtos, total))
}
