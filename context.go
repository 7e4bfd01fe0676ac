package goShop

import "context"

type requestIDContextKey struct{}
type bypassCacheContextKey struct{}

// WithRequestID makes the next call send id as X-Request-ID instead of a generated one.
// The retry after a refresh reuses the same id.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDContextKey{}, id)
}

// WithFreshQuery makes cached queries skip the cache read. The fresh result is still
// written back.
func WithFreshQuery(ctx context.Context) context.Context {
	return context.WithValue(ctx, bypassCacheContextKey{}, true)
}

func requestIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	id, _ := ctx.Value(requestIDContextKey{}).(string)
	return id
}

func bypassCacheFromContext(ctx context.Context) bool {
	if ctx == nil {
		return false
	}
	bypass, _ := ctx.Value(bypassCacheContextKey{}).(bool)
	return bypass
}
