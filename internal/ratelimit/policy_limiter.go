package ratelimit

import (
	"context"
	"fmt"
	"time"
)

// KeyPrefix namespaces every counter this package records.
const KeyPrefix = "rl"

// LimitExceeded describes the first limit a request ran into.
type LimitExceeded struct {
	Scope  Scope
	Config LimitConfig
	Count  int64
}

// RetryAfter is the longest a client may have to wait before the window
// frees up a slot.
func (e *LimitExceeded) RetryAfter() time.Duration {
	return e.Config.Window
}

// PolicyLimiter checks requests against a Policy.
type PolicyLimiter struct {
	store  Store
	policy *Policy
}

func NewPolicyLimiter(store Store, policy *Policy) *PolicyLimiter {
	return &PolicyLimiter{store: store, policy: policy}
}

// Allow records the request under every limit of every scope and reports
// the first limit exceeded. Scopes without limits in the policy are skipped.
func (l *PolicyLimiter) Allow(ctx context.Context, clientKey string, scopes []Scope) (bool, *LimitExceeded, error) {
	for _, scope := range scopes {
		for _, limit := range l.policy.Limits[scope] {
			count, err := l.store.Record(ctx, ScopeKey(clientKey, scope, limit.Window), limit.Window)
			if err != nil {
				return false, nil, fmt.Errorf("record %s limit: %w", scope, err)
			}

			if count > limit.Max {
				return false, &LimitExceeded{Scope: scope, Config: limit, Count: count}, nil
			}
		}
	}

	return true, nil, nil
}

// Store returns the counter store backing the limiter.
func (l *PolicyLimiter) Store() Store {
	return l.store
}

// ScopeKey is the counter key for a client under a scope limit.
func ScopeKey(clientKey string, scope Scope, window time.Duration) string {
	return fmt.Sprintf("%s:%s:%d:%s", KeyPrefix, scope, window.Milliseconds(), clientKey)
}

// RouteKey is the counter key for a client under an endpoint's own limit.
func RouteKey(clientKey, route string, window time.Duration) string {
	return fmt.Sprintf("%s:route:%s:%d:%s", KeyPrefix, route, window.Milliseconds(), clientKey)
}
