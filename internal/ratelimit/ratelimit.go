// Package ratelimit implements per-client request admission over one or more
// rolling windows.
//
// A RateStore holds the per-key window counters; the in-memory store is the
// default and a Redis-backed store exists so the state can be shared across
// instances later without touching the admission contract.
package ratelimit

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Policy is one admission rule: at most Limit requests per rolling Window.
type Policy struct {
	Limit  int
	Window time.Duration
}

func (p Policy) String() string {
	return fmt.Sprintf("%d per %s", p.Limit, p.Window)
}

// ParsePolicies parses a comma-separated list of LIMIT:WINDOW pairs,
// e.g. "6:1m,60:1h".
func ParsePolicies(raw string) ([]Policy, error) {
	var policies []Policy
	for _, item := range strings.Split(raw, ",") {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		parts := strings.SplitN(item, ":", 2)
		if len(parts) != 2 {
			return nil, fmt.Errorf("policy %q must follow LIMIT:WINDOW", item)
		}
		limit, err := strconv.Atoi(strings.TrimSpace(parts[0]))
		if err != nil || limit <= 0 {
			return nil, fmt.Errorf("policy %q has an invalid limit", item)
		}
		window, err := time.ParseDuration(strings.TrimSpace(parts[1]))
		if err != nil || window <= 0 {
			return nil, fmt.Errorf("policy %q has an invalid window", item)
		}
		policies = append(policies, Policy{Limit: limit, Window: window})
	}
	if len(policies) == 0 {
		return nil, fmt.Errorf("at least one rate-limit policy is required")
	}
	return policies, nil
}

// Decision is the outcome of a single admission check. When several policies
// are configured the metadata reflects the most restrictive one: the failing
// policy on reject, the smallest-remaining policy on admit.
type Decision struct {
	Allowed   bool
	Limit     int
	Remaining int
	ResetAt   time.Time
}

// RateStore decides admission for a key. Implementations must be safe for
// concurrent use: two calls for the same key must never both be admitted when
// only one slot remains.
type RateStore interface {
	Admit(ctx context.Context, key string) (Decision, error)
}
