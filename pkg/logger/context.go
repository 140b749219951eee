package logger

import (
	"context"

	"go.uber.org/zap"
)

type requestIDCtxKey struct{}

// WithRequestID 将请求追踪 ID 写入 context，供服务层日志关联同一请求
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDCtxKey{}, id)
}

// RequestIDFrom 读取请求追踪 ID，不存在时返回 ""
func RequestIDFrom(ctx context.Context) string {
	id, _ := ctx.Value(requestIDCtxKey{}).(string)
	return id
}

// For 在 base 上附加 context 中的 request_id；没有时原样返回
func For(ctx context.Context, base *zap.Logger) *zap.Logger {
	if id := RequestIDFrom(ctx); id != "" {
		return base.With(zap.String("request_id", id))
	}
	return base
}
