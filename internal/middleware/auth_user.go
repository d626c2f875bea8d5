package middleware

import (
	"time"

	"casino-server/common/logger"
	"casino-server/internal/auth"
	"casino-server/internal/common/helper"
	"casino-server/internal/common/response"

	beegocontext "github.com/beego/beego/v2/server/web/context"
	"go.uber.org/zap"
)

// UserAuthFilter 用户认证过滤器（JWT Token）
// 验证用户的 JWT Token，提取用户信息存入 context
func UserAuthFilter(ctx *beegocontext.Context) {
	traceID := helper.GetTraceID(ctx)

	returnError := func(httpCode int, bizCode int, message string) {
		ctx.Output.SetStatus(httpCode)
		ctx.Output.JSON(response.APIResponse{
			Code:      bizCode,
			Message:   message,
			Data:      nil,
			TraceID:   traceID,
			Timestamp: time.Now().UnixMilli(),
		}, false, false)
	}

	claims, err := auth.VerifyJWTToken(ctx)
	if err != nil {
		logger.Warn("user authentication failed",
			zap.String("trace_id", traceID),
			zap.Error(err))

		switch err {
		case auth.ErrMissingToken:
			returnError(401, response.CodeUnauthorized, "缺少认证Token")
		case auth.ErrInvalidTokenFormat:
			returnError(401, response.CodeInvalidToken, "Token格式无效")
		case auth.ErrTokenExpired:
			returnError(401, response.CodeTokenExpired, "Token已过期")
		default:
			returnError(401, response.CodeInvalidToken, "Token无效")
		}
		return
	}

	ctx.Input.SetData("user_id", claims.UserID)
}
