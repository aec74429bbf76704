package middleware

import "context"

type ctxKey int

const (
	keyUserID ctxKey = iota
	keyRole
	keyAccessID
	keyGuestSession
)

func withValue(ctx context.Context, key ctxKey, value string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, key, value)
}

func stringValue(ctx context.Context, key ctxKey) string {
	if ctx == nil {
		return ""
	}
	v, _ := ctx.Value(key).(string)
	return v
}

// UserIDFromContext returns the authenticated user id, or "" for anonymous requests.
func UserIDFromContext(ctx context.Context) string { return stringValue(ctx, keyUserID) }

// RoleFromContext returns the role claim of the bearer token.
func RoleFromContext(ctx context.Context) string { return stringValue(ctx, keyRole) }

// AccessIDFromContext returns the jti of the bearer token, used to revoke the session.
func AccessIDFromContext(ctx context.Context) string { return stringValue(ctx, keyAccessID) }

// GuestSessionFromContext returns the anonymous cart session id set by GuestSession.
func GuestSessionFromContext(ctx context.Context) string { return stringValue(ctx, keyGuestSession) }

func WithUserID(ctx context.Context, userID string) context.Context {
	return withValue(ctx, keyUserID, userID)
}

func WithRole(ctx context.Context, role string) context.Context {
	return withValue(ctx, keyRole, role)
}

func WithAccessID(ctx context.Context, accessID string) context.Context {
	return withValue(ctx, keyAccessID, accessID)
}

func WithGuestSession(ctx context.Context, sessionID string) context.Context {
	return withValue(ctx, keyGuestSession, sessionID)
}
