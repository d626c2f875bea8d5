package api

import (
	"errors"

	beego "github.com/beego/beego/v2/server/web"

	"casino-server/internal/common/response"
	"casino-server/internal/gateway"
	"casino-server/internal/service"
	"casino-server/internal/store"
)

// 服务依赖由 main 在启动时注入，控制器保持无状态
var (
	ledgerSvc service.LedgerService
	promoSvc  service.PromoService
	wagerSvc  service.WagerService
	payoutSvc service.PayoutService
	coeffSvc  service.CoeffService
	st        *store.Store
	payGW     gateway.PaymentGateway
)

// Init 注入服务依赖
func Init(s *store.Store, ledger service.LedgerService, promo service.PromoService,
	wager service.WagerService, payout service.PayoutService, coeff service.CoeffService,
	gw gateway.PaymentGateway) {
	st = s
	ledgerSvc = ledger
	promoSvc = promo
	wagerSvc = wager
	payoutSvc = payout
	coeffSvc = coeff
	payGW = gw
}

// writeServiceError 业务错误统一映射为 HTTP 状态与业务码
func writeServiceError(c *beego.Controller, err error, traceID string) {
	switch {
	case errors.Is(err, service.ErrInvalidAmount):
		response.BadRequest(c, "invalid amount", traceID)
	case errors.Is(err, service.ErrStakeBelowMin), errors.Is(err, service.ErrStakeAboveMax):
		response.Error(c, 400, response.CodeStakeOutOfRange, traceID)
	case errors.Is(err, service.ErrInvalidChoice):
		response.Error(c, 400, response.CodeInvalidChoice, traceID)
	case errors.Is(err, service.ErrInsufficientFunds):
		response.Error(c, 409, response.CodeInsufficientBalance, traceID)
	case errors.Is(err, service.ErrUserNotFound):
		response.NotFound(c, "用户不存在", traceID)
	case errors.Is(err, service.ErrUserDisabled):
		response.Error(c, 403, response.CodeUserDisabled, traceID)
	case errors.Is(err, service.ErrPromoNotFound):
		response.Error(c, 404, response.CodePromoNotFound, traceID)
	case errors.Is(err, service.ErrPromoInactive):
		response.Error(c, 409, response.CodePromoInactive, traceID)
	case errors.Is(err, service.ErrPromoExpired):
		response.Error(c, 409, response.CodePromoExpired, traceID)
	case errors.Is(err, service.ErrPromoExhausted):
		response.Error(c, 409, response.CodePromoExhausted, traceID)
	case errors.Is(err, service.ErrPromoActivated):
		response.Error(c, 409, response.CodePromoActivated, traceID)
	case errors.Is(err, service.ErrPromoRestricted):
		response.Error(c, 409, response.CodePromoRestricted, traceID)
	case errors.Is(err, service.ErrDuplicateCode):
		response.Error(c, 409, response.CodeDuplicateCode, traceID)
	case errors.Is(err, service.ErrWithdrawBelowMin):
		response.Error(c, 400, response.CodeWithdrawBelowMin, traceID)
	case errors.Is(err, service.ErrUnknownCoeffKey), errors.Is(err, service.ErrInvalidCoeff):
		response.Error(c, 400, response.CodeUnknownCoeffKey, traceID)
	case errors.Is(err, service.ErrDuplicateInFlight):
		// 并发重复请求：202 提示稍后重试
		c.Ctx.Output.Header("Retry-After", "1")
		response.Error(c, 202, response.CodeDuplicateInFlight, traceID)
	default:
		response.InternalError(c, traceID)
	}
}

// currentUserID 从认证中间件注入的数据取用户ID，未注入时回退入参
func currentUserID(c *beego.Controller, fallback int64) int64 {
	if v := c.Ctx.Input.GetData("user_id"); v != nil {
		if uid, ok := v.(int64); ok && uid > 0 {
			return uid
		}
	}
	return fallback
}

// pageParams 读取分页参数并夹紧上限
func pageParams(c *beego.Controller, defLimit, maxLimit uint) (limit, offset uint) {
	l, _ := c.GetUint64("limit", uint64(defLimit))
	o, _ := c.GetUint64("offset", 0)
	limit = uint(l)
	if limit == 0 || limit > maxLimit {
		limit = defLimit
	}
	return limit, uint(o)
}
