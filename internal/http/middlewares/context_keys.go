package middlewares

const (
	CtxUserID    = "auth.userID"
	CtxIsAdmin   = "auth.isAdmin"
	CtxRequestID = "request_id"
)
