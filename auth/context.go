package auth

import "context"

type contextKey int

const ctxKeySubject contextKey = 0

// WithSubject returns a context carrying the authenticated owner identity.
func WithSubject(ctx context.Context, subject string) context.Context {
	return context.WithValue(ctx, ctxKeySubject, subject)
}

// Subject returns the authenticated owner identity stored by WithSubject,
// or "" when the context is unauthenticated.
func Subject(ctx context.Context) string {
	s, _ := ctx.Value(ctxKeySubject).(string)
	return s
}
