package config

import "time"

// RateLimitConfig configures the token buckets.  KeyStrategy keys the
// global bucket; UserKeyStrategy keys the one behind authentication.
type RateLimitConfig struct {
	Enabled         bool          `env:"RATE_LIMIT_ENABLED" envDefault:"true"`
	Capacity        int           `env:"RATE_LIMIT_CAPACITY" envDefault:"60"`
	RefillTokens    int           `env:"RATE_LIMIT_REFILL_TOKENS" envDefault:"1"`
	RefillInterval  time.Duration `env:"RATE_LIMIT_REFILL_INTERVAL" envDefault:"1s"`
	TTL             time.Duration `env:"RATE_LIMIT_TTL" envDefault:"10m"`
	KeyStrategy     string        `env:"RATE_LIMIT_KEY_STRATEGY" envDefault:"ip_route"`
	UserKeyStrategy string        `env:"RATE_LIMIT_USER_KEY_STRATEGY" envDefault:"user"`
	Prefix          string        `env:"RATE_LIMIT_PREFIX" envDefault:"rl"`
	Debug           bool          `env:"RATE_LIMIT_DEBUG" envDefault:"false"`
}

// normalize clamps values that would make the token bucket degenerate.
func (r *RateLimitConfig) normalize() {
	if r.Capacity < 1 {
		r.Capacity = 1
	}
	if r.RefillTokens < 1 {
		r.RefillTokens = 1
	}
	if r.RefillInterval <= 0 {
		r.RefillInterval = time.Second
	}
	if minTTL := 5 * r.RefillInterval; r.TTL < minTTL {
		r.TTL = minTTL
	}
}

// PerUser returns the settings of the limiter placed behind JWTAuth, where
// the caller is known.  Its keys live under their own prefix.
func (r RateLimitConfig) PerUser() RateLimitConfig {
	u := r
	u.KeyStrategy = r.UserKeyStrategy
	if u.KeyStrategy == "" {
		u.KeyStrategy = "user"
	}
	u.Prefix = r.Prefix + ":u"
	return u
}

// PerSecond returns the steady-state refill rate in tokens per second.
func (r RateLimitConfig) PerSecond() float64 {
	return float64(r.RefillTokens) / r.RefillInterval.Seconds()
}
