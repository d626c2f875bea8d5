package logger

import (
	"context"

	"go.uber.org/zap"
)

type ctxKey string

const traceIDKey ctxKey = "trace_id"

// 从 context 中获取 traceId
func GetTraceID(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(traceIDKey).(string); ok {
		return v
	}
	return ""
}

// 将 traceId 注入到 context 中
func WithTraceID(ctx context.Context, traceID string) context.Context {
	return context.WithValue(ctx, traceIDKey, traceID)
}

// 封装结构体字段统一处理
func fieldsWithTrace(ctx context.Context, fields ...zap.Field) []zap.Field {
	if traceID := GetTraceID(ctx); traceID != "" {
		fields = append(fields, zap.String("traceId", traceID))
	}
	return fields
}

func InfoCtx(ctx context.Context, msg string, fields ...zap.Field) {
	log.Info(msg, fieldsWithTrace(ctx, fields...)...)
}
func ErrorCtx(ctx context.Context, msg string, fields ...zap.Field) {
	log.Error(msg, fieldsWithTrace(ctx, fields...)...)
}
func WarnCtx(ctx context.Context, msg string, fields ...zap.Field) {
	log.Warn(msg, fieldsWithTrace(ctx, fields...)...)
}
func DebugCtx(ctx context.Context, msg string, fields ...zap.Field) {
	log.Debug(msg, fieldsWithTrace(ctx, fields...)...)
}
