package websocket

import (
	"math"
	"math/rand"
	"time"

	"github.com/wellbornbaba/ccdelete-sub001/internal/pkg/models"
)

// ReconnectPolicy controls automatic reconnection after an unclean close.
// The default is a fixed interval; setting Multiplier above 1.0 switches to
// exponential backoff capped at MaxInterval, with optional jitter to avoid
// thundering herds.
type ReconnectPolicy struct {
	MaxAttempts int
	Interval    time.Duration
	Multiplier  float64
	MaxInterval time.Duration
	Jitter      bool
}

// DefaultReconnectPolicy returns the default reconnection policy:
// 5 attempts spaced 3 seconds apart.
func DefaultReconnectPolicy() ReconnectPolicy {
	return ReconnectPolicy{
		MaxAttempts: 5,
		Interval:    3 * time.Second,
		Multiplier:  1.0,
		MaxInterval: 30 * time.Second,
	}
}

// PolicyFromConfig builds a reconnection policy from socket configuration
func PolicyFromConfig(cfg models.SocketConfig) ReconnectPolicy {
	policy := DefaultReconnectPolicy()
	if cfg.ReconnectMaxAttempts > 0 {
		policy.MaxAttempts = cfg.ReconnectMaxAttempts
	}
	if cfg.ReconnectIntervalMs > 0 {
		policy.Interval = time.Duration(cfg.ReconnectIntervalMs) * time.Millisecond
	}
	if cfg.BackoffMultiplier > 0 {
		policy.Multiplier = cfg.BackoffMultiplier
	}
	if cfg.BackoffMaxDelayMs > 0 {
		policy.MaxInterval = time.Duration(cfg.BackoffMaxDelayMs) * time.Millisecond
	}
	policy.Jitter = cfg.BackoffJitter
	return policy
}

// Delay returns the delay before the given reconnect attempt (zero-based)
func (p ReconnectPolicy) Delay(attempt int) time.Duration {
	delay := float64(p.Interval)

	if p.Multiplier > 1.0 {
		delay *= math.Pow(p.Multiplier, float64(attempt))
	}
	if p.MaxInterval > 0 && delay > float64(p.MaxInterval) {
		delay = float64(p.MaxInterval)
	}
	if p.Jitter {
		// Up to 10% of the computed delay.
		delay += delay * 0.1 * rand.Float64()
	}

	return time.Duration(delay)
}
