package ratelimit

import (
	"cmp"
	"slices"
	"time"
)

// LimitConfig caps a client at Max requests per sliding Window.
type LimitConfig struct {
	Window time.Duration
	Max    int64
}

// Policy maps each scope to the limits applied to it. A request is allowed
// only if it stays under every limit of every scope it resolves to.
type Policy struct {
	Limits map[Scope][]LimitConfig
}

// PolicyBuilder assembles a Policy.
type PolicyBuilder struct {
	limits map[Scope][]LimitConfig
}

func NewPolicyBuilder() *PolicyBuilder {
	return &PolicyBuilder{limits: make(map[Scope][]LimitConfig)}
}

// AddLimit appends a limit to scope. Non-positive values are ignored.
func (b *PolicyBuilder) AddLimit(scope Scope, maxRequests int64, window time.Duration) *PolicyBuilder {
	if maxRequests <= 0 || window <= 0 {
		return b
	}

	b.limits[scope] = append(b.limits[scope], LimitConfig{Window: window, Max: maxRequests})

	return b
}

// Build returns the policy with each scope's limits ordered from the
// shortest window to the longest.
func (b *PolicyBuilder) Build() *Policy {
	limits := make(map[Scope][]LimitConfig, len(b.limits))

	for scope, configs := range b.limits {
		sorted := slices.Clone(configs)
		slices.SortStableFunc(sorted, func(x, y LimitConfig) int {
			return cmp.Compare(x.Window, y.Window)
		})

		limits[scope] = sorted
	}

	return &Policy{Limits: limits}
}

// DefaultPolicy is the policy the web server runs with. Redirects are the
// hottest path, submissions the most expensive for the backend. Every scope
// is checked together with global, so global stays above each scope limit.
func DefaultPolicy() *Policy {
	return NewPolicyBuilder().
		AddLimit(ScopeGlobal, 1200, time.Minute).
		AddLimit(ScopeLookup, 300, time.Minute).
		AddLimit(ScopeRedirect, 1000, time.Minute).
		AddLimit(ScopeSubmit, 10, time.Minute).
		AddLimit(ScopeSubmit, 100, time.Hour).
		Build()
}
