package api

import (
	"encoding/json"
	"errors"
	"strings"

	beego "github.com/beego/beego/v2/server/web"
	"go.uber.org/zap"

	"casino-server/common/constant"
	chelper "casino-server/common/helper"
	"casino-server/common/logger"
	"casino-server/internal/common/helper"
	"casino-server/internal/common/response"
	"casino-server/internal/model"
	"casino-server/internal/service"
)

// AdminController 管理端接口（bearer token 保护）
type AdminController struct {
	beego.Controller
}

func (c *AdminController) decodeJSON(out interface{}) bool {
	if !helper.IsJSONContentType(c.Ctx.Input.Header("Content-Type")) {
		return false
	}
	return json.NewDecoder(c.Ctx.Request.Body).Decode(out) == nil
}

// CreatePromo POST /api/admin/promo
func (c *AdminController) CreatePromo() {
	traceID := helper.GetTraceID(c.Ctx)

	var body struct {
		Code         string                   `json:"code"`
		Amount       float64                  `json:"amount"`
		BonusType    string                   `json:"bonus_type"`
		MaxUses      int                      `json:"max_uses"`
		ExpiresAt    int64                    `json:"expires_at"`
		Restrictions *model.PromoRestrictions `json:"restrictions"`
	}
	if !c.decodeJSON(&body) {
		response.BadRequest(&c.Controller, "invalid json body", traceID)
		return
	}
	if strings.TrimSpace(body.Code) == "" || body.Amount <= 0 {
		response.BadRequest(&c.Controller, "code and positive amount required", traceID)
		return
	}

	promo, err := promoSvc.Create(c.Ctx.Request.Context(), service.CreatePromoInput{
		Code:         body.Code,
		Amount:       body.Amount,
		BonusType:    body.BonusType,
		MaxUses:      body.MaxUses,
		ExpiresAt:    body.ExpiresAt,
		Restrictions: body.Restrictions,
		CreatedBy:    "admin",
	})
	if err != nil {
		writeServiceError(&c.Controller, err, traceID)
		return
	}
	response.Success(&c.Controller, promo, traceID)
}

// ListPromos GET /api/admin/promo
func (c *AdminController) ListPromos() {
	traceID := helper.GetTraceID(c.Ctx)

	activeOnly, _ := c.GetBool("active_only", false)
	limit, offset := pageParams(&c.Controller, 50, 200)

	list, err := promoSvc.List(c.Ctx.Request.Context(), activeOnly, limit, offset)
	if err != nil {
		writeServiceError(&c.Controller, err, traceID)
		return
	}
	response.Success(&c.Controller, map[string]interface{}{
		"list":  list,
		"count": len(list),
	}, traceID)
}

// DeactivatePromo POST /api/admin/promo/deactivate
func (c *AdminController) DeactivatePromo() {
	traceID := helper.GetTraceID(c.Ctx)

	code := strings.TrimSpace(c.GetString("code"))
	if code == "" {
		var body struct {
			Code string `json:"code"`
		}
		if c.decodeJSON(&body) {
			code = strings.TrimSpace(body.Code)
		}
	}
	if code == "" {
		response.BadRequest(&c.Controller, "code required", traceID)
		return
	}

	if err := promoSvc.Deactivate(c.Ctx.Request.Context(), code); err != nil {
		writeServiceError(&c.Controller, err, traceID)
		return
	}
	response.Success(&c.Controller, nil, traceID)
}

// PromoStats GET /api/admin/promo/stats
func (c *AdminController) PromoStats() {
	traceID := helper.GetTraceID(c.Ctx)

	stats, err := promoSvc.Stats(c.Ctx.Request.Context())
	if err != nil {
		writeServiceError(&c.Controller, err, traceID)
		return
	}
	response.Success(&c.Controller, stats, traceID)
}

// SetBalance POST /api/admin/balance 管理员直接设置余额（差额入账）
func (c *AdminController) SetBalance() {
	traceID := helper.GetTraceID(c.Ctx)

	parsed, ok, msg := helper.ParseAndValidateLedgerChange(c.Ctx)
	if !ok {
		response.BadRequest(&c.Controller, msg, traceID)
		return
	}
	amount, err := chelper.ParseMoney(parsed.Amount)
	if err != nil {
		response.BadRequest(&c.Controller, "invalid amount", traceID)
		return
	}
	if err := st.EnsureUser(c.Ctx.Request.Context(), parsed.UserID); err != nil {
		logger.Error("确保用户失败", zap.Int64("user_id", parsed.UserID), zap.Error(err), zap.String("trace_id", traceID))
		response.InternalError(&c.Controller, traceID)
		return
	}

	tx, err := ledgerSvc.SetBalance(c.Ctx.Request.Context(), parsed.UserID, amount, parsed.Reference, traceID)
	if err != nil {
		writeServiceError(&c.Controller, err, traceID)
		return
	}
	response.Success(&c.Controller, tx, traceID)
}

// SetCoefficient PUT /api/admin/coefficient
func (c *AdminController) SetCoefficient() {
	traceID := helper.GetTraceID(c.Ctx)

	var body struct {
		Key   string  `json:"key"`
		Value float64 `json:"value"`
	}
	if !c.decodeJSON(&body) {
		body.Key = strings.TrimSpace(c.GetString("key"))
		body.Value, _ = c.GetFloat("value")
	}
	if strings.TrimSpace(body.Key) == "" {
		response.BadRequest(&c.Controller, "key required", traceID)
		return
	}

	if err := coeffSvc.Set(c.Ctx.Request.Context(), model.CoeffKey(body.Key), body.Value, "admin"); err != nil {
		writeServiceError(&c.Controller, err, traceID)
		return
	}
	response.Success(&c.Controller, map[string]interface{}{
		"key":   body.Key,
		"value": body.Value,
	}, traceID)
}

// Coefficients GET /api/admin/coefficient
func (c *AdminController) Coefficients() {
	traceID := helper.GetTraceID(c.Ctx)
	response.Success(&c.Controller, coeffSvc.All(), traceID)
}

// SetUserStatus POST /api/admin/user/status
func (c *AdminController) SetUserStatus() {
	traceID := helper.GetTraceID(c.Ctx)

	var body struct {
		UserID int64 `json:"user_id"`
		Status int8  `json:"status"`
	}
	if !c.decodeJSON(&body) {
		body.UserID, _ = c.GetInt64("user_id")
		s, _ := c.GetInt8("status")
		body.Status = s
	}
	if body.UserID <= 0 {
		response.BadRequest(&c.Controller, "user_id required", traceID)
		return
	}
	if body.Status != constant.StatusNormal && body.Status != constant.StatusDeleted {
		response.BadRequest(&c.Controller, "status must be 1 or 2", traceID)
		return
	}

	if err := st.SetUserStatus(c.Ctx.Request.Context(), body.UserID, body.Status); err != nil {
		writeServiceError(&c.Controller, err, traceID)
		return
	}
	response.Success(&c.Controller, nil, traceID)
}

// Audit GET /api/admin/audit 对账：校验流水累加与余额一致
func (c *AdminController) Audit() {
	traceID := helper.GetTraceID(c.Ctx)

	uid, _ := c.GetInt64("user_id")
	if uid <= 0 {
		response.BadRequest(&c.Controller, "user_id required", traceID)
		return
	}

	replayed, err := ledgerSvc.Replay(c.Ctx.Request.Context(), uid)
	if err != nil && !errors.Is(err, service.ErrInvariantViolation) {
		writeServiceError(&c.Controller, err, traceID)
		return
	}
	balance, berr := ledgerSvc.GetBalance(c.Ctx.Request.Context(), uid)
	if berr != nil {
		writeServiceError(&c.Controller, berr, traceID)
		return
	}
	response.Success(&c.Controller, map[string]interface{}{
		"user_id":  uid,
		"balance":  balance,
		"replayed": replayed,
		"match":    err == nil,
	}, traceID)
}

// GatewayStatus GET /api/admin/gateway 网关侧余额与汇率巡检
func (c *AdminController) GatewayStatus() {
	traceID := helper.GetTraceID(c.Ctx)

	if payGW == nil {
		response.Error(&c.Controller, 503, response.CodeGatewayUnavailable, traceID)
		return
	}
	currency := strings.TrimSpace(c.GetString("currency"))
	if currency == "" {
		currency = "USDT"
	}

	ctx := c.Ctx.Request.Context()
	out := map[string]interface{}{"currency": currency}
	bal, err := payGW.GetBalance(ctx, currency)
	if err != nil {
		logger.Warn("网关余额查询失败", zap.String("currency", currency), zap.Error(err), zap.String("trace_id", traceID))
		out["balance_error"] = err.Error()
	} else {
		out["balance"] = bal
	}
	if rate, err := payGW.GetExchangeRate(ctx, currency, "USD"); err == nil {
		out["usd_rate"] = rate
	}
	response.Success(&c.Controller, out, traceID)
}

// PayoutDepth GET /api/admin/payout/depth
func (c *AdminController) PayoutDepth() {
	traceID := helper.GetTraceID(c.Ctx)

	depth, err := payoutSvc.QueueDepth(c.Ctx.Request.Context())
	if err != nil {
		writeServiceError(&c.Controller, err, traceID)
		return
	}
	response.Success(&c.Controller, depth, traceID)
}
