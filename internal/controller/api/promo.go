package api

import (
	beego "github.com/beego/beego/v2/server/web"
	"go.uber.org/zap"

	"casino-server/common/logger"
	"casino-server/internal/common/helper"
	"casino-server/internal/common/response"
)

// PromoController 兑换码领取接口
type PromoController struct {
	beego.Controller
}

// Activate POST /api/promo/activate
func (c *PromoController) Activate() {
	traceID := helper.GetTraceID(c.Ctx)

	parsed, ok, msg := helper.ParseAndValidatePromoActivate(c.Ctx)
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

	out, err := promoSvc.Activate(c.Ctx.Request.Context(), uid, parsed.Code, traceID)
	if err != nil {
		writeServiceError(&c.Controller, err, traceID)
		return
	}
	response.Success(&c.Controller, out, traceID)
}
