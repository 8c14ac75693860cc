package shared

import "context"

type sessionContextKey struct{}

// ContextWithSession stores the session in context.
func ContextWithSession(ctx context.Context, sess *Session) context.Context {
	return context.WithValue(ctx, sessionContextKey{}, sess)
}

// SessionFromContext extracts the session from context.
func SessionFromContext(ctx context.Context) *Session {
	sess, _ := ctx.Value(sessionContextKey{}).(*Session)
	return sess
}

// AddFlash queues a flash on the session stored in ctx, if any.
func AddFlash(ctx context.Context, kind, message string) {
	if sess := SessionFromContext(ctx); sess != nil {
		sess.AddFlash(FlashMessage{Kind: kind, Message: message})
	}
}
