package actorctx

import "context"

type ctxKey string

const (
	keySessionID ctxKey = "session_id"
	keyRequestID ctxKey = "request_id"
)

func WithSessionID(ctx context.Context, sid string) context.Context {
	return context.WithValue(ctx, keySessionID, sid)
}

func SessionIDFrom(ctx context.Context) (string, bool) {
	v, ok := ctx.Value(keySessionID).(string)

	return v, ok && v != ""
}

func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, keyRequestID, id)
}

func RequestIDFrom(ctx context.Context) string {
	v, _ := ctx.Value(keyRequestID).(string)
	return v
}
