package response

import (
	"time"

	beego "github.com/beego/beego/v2/server/web"
)

// APIResponse 统一 API 响应结构
// 所有 API 都应该返回这个结构，无论成功还是失败
type APIResponse struct {
	Code      int         `json:"code"`                // 业务错误码：0=成功，非0=失败
	Message   string      `json:"message"`             // 错误消息
	Data      interface{} `json:"data,omitempty"`      // 业务数据（失败时为 null）
	TraceID   string      `json:"trace_id,omitempty"`  // 请求追踪ID
	Timestamp int64       `json:"timestamp,omitempty"` // 响应时间戳（Unix 毫秒）
}

// 错误码定义
const (
	CodeSuccess             = 0    // 成功
	CodeBadRequest          = 1000 // 参数错误
	CodeBusinessError       = 2000 // 业务错误（通用）
	CodeDuplicateInFlight   = 2001 // 重复请求进行中
	CodeInsufficientBalance = 2002 // 余额不足
	CodeStakeOutOfRange     = 2003 // 投注金额超限
	CodeInvalidChoice       = 2004 // 玩法或选项无效
	CodePromoNotFound       = 2010 // 兑换码不存在
	CodePromoInactive       = 2011 // 兑换码已停用
	CodePromoExpired        = 2012 // 兑换码已过期
	CodePromoExhausted      = 2013 // 兑换码名额已用完
	CodePromoActivated      = 2014 // 已领取过该兑换码
	CodePromoRestricted     = 2015 // 未满足领取条件
	CodeDuplicateCode       = 2016 // 兑换码已存在
	CodeWithdrawBelowMin    = 2020 // 提现金额低于下限
	CodeUserDisabled        = 2030 // 用户已禁用
	CodeUnknownCoeffKey     = 2040 // 未知配置键
	CodeGatewayUnavailable  = 2050 // 支付网关不可用
	CodeUnauthorized        = 3000 // 未授权
	CodeInvalidToken        = 3001 // Token 无效
	CodeTokenExpired        = 3002 // Token 过期
	CodeForbidden           = 3009 // 禁止访问
	CodeNotFound            = 4004 // 资源不存在
	CodeSystemError         = 5000 // 系统错误
)

// ErrorMessages 错误消息映射
var ErrorMessages = map[int]string{
	CodeSuccess:             "success",
	CodeBadRequest:          "参数错误",
	CodeBusinessError:       "业务处理失败",
	CodeDuplicateInFlight:   "重复请求进行中，请稍后重试",
	CodeInsufficientBalance: "余额不足",
	CodeStakeOutOfRange:     "投注金额超出限额",
	CodeInvalidChoice:       "玩法或选项无效",
	CodePromoNotFound:       "兑换码不存在",
	CodePromoInactive:       "兑换码已停用",
	CodePromoExpired:        "兑换码已过期",
	CodePromoExhausted:      "兑换码名额已用完",
	CodePromoActivated:      "您已领取过该兑换码",
	CodePromoRestricted:     "未满足领取条件",
	CodeDuplicateCode:       "兑换码已存在",
	CodeWithdrawBelowMin:    "提现金额低于下限",
	CodeUserDisabled:        "账户已被禁用",
	CodeUnknownCoeffKey:     "未知配置键",
	CodeUnauthorized:        "未授权",
	CodeNotFound:            "资源不存在",
	CodeSystemError:         "系统繁忙，请稍后重试",
}

// Success 成功响应
func Success(c *beego.Controller, data interface{}, traceID string) {
	c.Data["json"] = APIResponse{
		Code:      CodeSuccess,
		Message:   ErrorMessages[CodeSuccess],
		Data:      data,
		TraceID:   traceID,
		Timestamp: time.Now().UnixMilli(),
	}
	c.ServeJSON()
}

// Error 错误响应（使用预定义的错误消息）
func Error(c *beego.Controller, httpStatus int, code int, traceID string) {
	c.Ctx.Output.SetStatus(httpStatus)
	c.Data["json"] = APIResponse{
		Code:      code,
		Message:   getErrorMessage(code),
		Data:      nil,
		TraceID:   traceID,
		Timestamp: time.Now().UnixMilli(),
	}
	c.ServeJSON()
}

// ErrorWithMessage 错误响应（使用自定义错误消息）
func ErrorWithMessage(c *beego.Controller, httpStatus int, code int, message string, traceID string) {
	c.Ctx.Output.SetStatus(httpStatus)
	c.Data["json"] = APIResponse{
		Code:      code,
		Message:   message,
		Data:      nil,
		TraceID:   traceID,
		Timestamp: time.Now().UnixMilli(),
	}
	c.ServeJSON()
}

// BadRequest 参数错误响应（HTTP 400）
func BadRequest(c *beego.Controller, message string, traceID string) {
	ErrorWithMessage(c, 400, CodeBadRequest, message, traceID)
}

// Conflict 资源冲突响应（HTTP 409）
func Conflict(c *beego.Controller, code int, traceID string) {
	Error(c, 409, code, traceID)
}

// NotFound 资源不存在响应（HTTP 404）
func NotFound(c *beego.Controller, message string, traceID string) {
	ErrorWithMessage(c, 404, CodeNotFound, message, traceID)
}

// InternalError 系统错误响应（HTTP 500）
func InternalError(c *beego.Controller, traceID string) {
	Error(c, 500, CodeSystemError, traceID)
}

func getErrorMessage(code int) string {
	if msg, ok := ErrorMessages[code]; ok {
		return msg
	}
	return ErrorMessages[CodeBusinessError]
}
