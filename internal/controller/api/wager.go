package api

import (
	beego "github.com/beego/beego/v2/server/web"
	"go.uber.org/zap"

	"casino-server/common/logger"
	"casino-server/internal/common/helper"
	"casino-server/internal/common/response"
	"casino-server/internal/service"
)

// WagerController 下注结算接口
type WagerController struct {
	beego.Controller
}

// Place POST /api/wager
func (c *WagerController) Place() {
	traceID := helper.GetTraceID(c.Ctx)

	parsed, ok, msg := helper.ParseAndValidateWager(c.Ctx)
	if !ok {
		response.BadRequest(&c.Controller, msg, traceID)
		return
	}

	uid := currentUserID(&c.Controller, parsed.UserID)
	if uid <= 0 {
		response.BadRequest(&c.Controller, "user_id required", traceID)
		return
	}
	if err := st.EnsureUser(c.Ctx.Request.Context(), uid); err != nil {
		logger.Error("确保用户失败", zap.Int64("user_id", uid), zap.Error(err), zap.String("trace_id", traceID))
		response.InternalError(&c.Controller, traceID)
		return
	}

	out, err := wagerSvc.PlaceWager(c.Ctx.Request.Context(), service.WagerInput{
		UserID:         uid,
		GameType:       parsed.GameType,
		Stake:          parsed.Stake,
		Chosen:         parsed.Chosen,
		IdempotencyKey: parsed.IdempotencyKey,
		TraceID:        traceID,
	})
	if err != nil {
		writeServiceError(&c.Controller, err, traceID)
		return
	}
	response.Success(&c.Controller, out, traceID)
}

// History GET /api/wager/history
func (c *WagerController) History() {
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

	list, err := wagerSvc.History(c.Ctx.Request.Context(), uid, limit, offset)
	if err != nil {
		writeServiceError(&c.Controller, err, traceID)
		return
	}
	response.Success(&c.Controller, map[string]interface{}{
		"list":  list,
		"count": len(list),
	}, traceID)
}
