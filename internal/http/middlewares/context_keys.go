package middlewares

// gin context keys set by this package
const (
	CtxRequestID     = "request_id"
	CtxSessionID     = "session_id"
	CtxSessionCookie = "session_cookie"
)
