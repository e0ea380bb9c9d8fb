package visit

import (
	"fmt"

	"careloop.com/careloop/core"
	"careloop.com/careloop/infrastructure/communication"
	common "careloop.com/careloop/web/handlers/common"
	"github.com/gin-gonic/gin"
)

type Endpoint struct {
	base   common.Handler
	alerts *communication.Slack
}

func Register(r *gin.RouterGroup, dm *core.DatabaseManager, alerts *communication.Slack) {
	endpoint := &Endpoint{base: common.Handler{Dm: dm}, alerts: alerts}
	r.POST("/evv/clock-in", endpoint.ClockIn)
	r.POST("/evv/clock-out", endpoint.ClockOut)
	r.POST("/evv/sync", endpoint.Sync)
	r.POST("/visits/search", endpoint.Search)
}

// alert posts a billing-review finding. Findings are best effort; losing one must
// never fail the clock event that raised it.
func (ep *Endpoint) alert(msg string) {
	if ep.alerts == nil {
		return
	}
	if err := ep.alerts.BillingReview(msg); err != nil {
		fmt.Println("[WARN] slack alert failed:", err)
	}
}
