package api

import (
	"encoding/json"
	"strings"

	beego "github.com/beego/beego/v2/server/web"
	"go.uber.org/zap"

	"casino-server/common/constant"
	"casino-server/common/logger"
	"casino-server/internal/auth"
	"casino-server/internal/common/helper"
	"casino-server/internal/common/response"
)

// UserController 用户余额与流水查询
type UserController struct {
	beego.Controller
}

// Balance GET /api/user/balance
func (c *UserController) Balance() {
	traceID := helper.GetTraceID(c.Ctx)

	uid := currentUserID(&c.Controller, 0)
	if uid <= 0 {
		uid, _ = c.GetInt64("user_id")
	}
	if uid <= 0 {
		response.BadRequest(&c.Controller, "user_id required", traceID)
		return
	}

	balance, err := ledgerSvc.GetBalance(c.Ctx.Request.Context(), uid)
	if err != nil {
		writeServiceError(&c.Controller, err, traceID)
		return
	}
	response.Success(&c.Controller, map[string]interface{}{
		"user_id": uid,
		"balance": balance,
	}, traceID)
}

// Transactions GET /api/user/transactions
func (c *UserController) Transactions() {
	traceID := helper.GetTraceID(c.Ctx)

	uid := currentUserID(&c.Controller, 0)
	if uid <= 0 {
		uid, _ = c.GetInt64("user_id")
	}
	if uid <= 0 {
		response.BadRequest(&c.Controller, "user_id required", traceID)
		return
	}

	kind := 0
	if k := strings.TrimSpace(c.GetString("kind")); k != "" {
		kind = constant.TransactionKindCode(k)
		if kind == 0 {
			response.BadRequest(&c.Controller, "unknown kind", traceID)
			return
		}
	}
	limit, offset := pageParams(&c.Controller, 20, 100)

	list, err := ledgerSvc.History(c.Ctx.Request.Context(), uid, kind, limit, offset)
	if err != nil {
		writeServiceError(&c.Controller, err, traceID)
		return
	}
	response.Success(&c.Controller, map[string]interface{}{
		"list":  list,
		"count": len(list),
	}, traceID)
}

// Token POST /api/user/token 为游戏前置进程签发访问令牌
func (c *UserController) Token() {
	traceID := helper.GetTraceID(c.Ctx)

	uid, _ := c.GetInt64("user_id")
	if uid <= 0 {
		var body struct {
			UserID int64 `json:"user_id"`
		}
		if helper.IsJSONContentType(c.Ctx.Input.Header("Content-Type")) {
			_ = json.NewDecoder(c.Ctx.Request.Body).Decode(&body)
		}
		uid = body.UserID
	}
	if uid <= 0 {
		response.BadRequest(&c.Controller, "user_id required", traceID)
		return
	}

	if err := st.EnsureUser(c.Ctx.Request.Context(), uid); err != nil {
		logger.Error("确保用户失败", zap.Int64("user_id", uid), zap.Error(err), zap.String("trace_id", traceID))
		response.InternalError(&c.Controller, traceID)
		return
	}

	token, err := auth.IssueToken(uid)
	if err != nil {
		logger.Error("签发令牌失败", zap.Int64("user_id", uid), zap.Error(err), zap.String("trace_id", traceID))
		response.InternalError(&c.Controller, traceID)
		return
	}
	response.Success(&c.Controller, map[string]interface{}{
		"user_id": uid,
		"token":   token,
	}, traceID)
}
