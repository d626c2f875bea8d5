package api

import (
	beego "github.com/beego/beego/v2/server/web"

	chelper "casino-server/common/helper"
	"casino-server/internal/common/helper"
	"casino-server/internal/common/response"
	"casino-server/internal/service"
)

// PayoutController 提现接口
type PayoutController struct {
	beego.Controller
}

// Enqueue POST /api/payout
func (c *PayoutController) Enqueue() {
	traceID := helper.GetTraceID(c.Ctx)

	parsed, ok, msg := helper.ParseAndValidatePayout(c.Ctx)
	if !ok {
		response.BadRequest(&c.Controller, msg, traceID)
		return
	}

	uid := currentUserID(&c.Controller, parsed.UserID)
	if uid <= 0 {
		response.BadRequest(&c.Controller, "user_id required", traceID)
		return
	}

	amount, err := chelper.ParseMoney(parsed.Amount)
	if err != nil {
		response.BadRequest(&c.Controller, "invalid amount", traceID)
		return
	}

	req, err := payoutSvc.Enqueue(c.Ctx.Request.Context(), service.EnqueueInput{
		UserID:   uid,
		Amount:   amount,
		Currency: parsed.Currency,
		TraceID:  traceID,
	})
	if err != nil {
		writeServiceError(&c.Controller, err, traceID)
		return
	}
	response.Success(&c.Controller, req, traceID)
}

// List GET /api/payout/list
func (c *PayoutController) List() {
	traceID := helper.GetTraceID(c.Ctx)

	uid := currentUserID(&c.Controller, 0)
	if uid <= 0 {
		uid, _ = c.GetInt64("user_id")
	}
	if uid <= 0 {
		response.BadRequest(&c.Controller, "user_id required", traceID)
		return
	}
	limit, offset := pageParams(&c.Controller, 20, 100)

	list, err := payoutSvc.ListByUser(c.Ctx.Request.Context(), uid, limit, offset)
	if err != nil {
		writeServiceError(&c.Controller, err, traceID)
		return
	}
	response.Success(&c.Controller, map[string]interface{}{
		"list":  list,
		"count": len(list),
	}, traceID)
}
