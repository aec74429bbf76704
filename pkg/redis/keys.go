package redis

import "strings"

const namespace = "spendo"

// Keyspace builds every key the storefront writes, all under "spendo:".
type Keyspace struct{}

func (Keyspace) join(segments ...string) string {
	var b strings.Builder
	b.WriteString(namespace)
	for _, s := range segments {
		if s = strings.TrimSpace(s); s != "" {
			b.WriteByte(':')
			b.WriteString(s)
		}
	}
	return b.String()
}

// GuestCartKey is the hash holding a guest session's cart lines.
func (k Keyspace) GuestCartKey(sessionID string) string {
	return k.join("cart", "guest", sessionID)
}

// AccessSessionKey marks a live access token by its jti.
func (k Keyspace) AccessSessionKey(accessID string) string {
	return k.join("session", "access", accessID)
}

// WebhookEventKey dedupes one gateway delivery.
func (k Keyspace) WebhookEventKey(event, reference string) string {
	return k.join("webhook", event, reference)
}

func (k Keyspace) RateLimitKey(scope string) string {
	return k.join("rate_limit", scope)
}

func (k Keyspace) IdempotencyKey(scope, id string) string {
	return k.join("idem", scope, id)
}

func (k Keyspace) LockKey(name string) string {
	return k.join("lock", name)
}
