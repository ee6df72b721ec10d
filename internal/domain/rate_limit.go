package domain

import "time"

type RateLimitDecision struct {
	Allowed   bool
	Limit     int
	Remaining int
	ResetIn   time.Duration
}

const (
	RateLimitScopeUser = "user"
	RateLimitScopeIP   = "ip"
)
