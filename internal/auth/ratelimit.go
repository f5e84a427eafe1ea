package auth

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// RateLimitConfig configures the per-client limit on guarded requests.
type RateLimitConfig struct {
	Enabled         bool `json:"enabled" mapstructure:"enabled"`
	PerMinute       int  `json:"perMinute" mapstructure:"perMinute"`
	BurstSize       int  `json:"burstSize" mapstructure:"burstSize"`
	CleanupInterval int  `json:"cleanupInterval" mapstructure:"cleanupInterval"` // seconds
}

// DefaultRateLimitConfig allows six reloads a minute with a burst of two.
func DefaultRateLimitConfig() RateLimitConfig {
	return RateLimitConfig{
		Enabled:         true,
		PerMinute:       6,
		BurstSize:       2,
		CleanupInterval: 300,
	}
}

// RateLimiter is a token bucket per client.
type RateLimiter struct {
	config  RateLimitConfig
	buckets map[string]*tokenBucket
	mu      sync.Mutex
	now     func() time.Time
	logger  *slog.Logger
}

type tokenBucket struct {
	tokens     float64
	lastRefill time.Time
}

// NewRateLimiter creates a rate limiter. Non-positive settings fall back to the defaults.
func NewRateLimiter(config RateLimitConfig, logger *slog.Logger) *RateLimiter {
	def := DefaultRateLimitConfig()
	if config.PerMinute <= 0 {
		config.PerMinute = def.PerMinute
	}
	if config.BurstSize <= 0 {
		config.BurstSize = def.BurstSize
	}
	if config.CleanupInterval <= 0 {
		config.CleanupInterval = def.CleanupInterval
	}
	return &RateLimiter{
		config:  config,
		buckets: make(map[string]*tokenBucket),
		now:     time.Now,
		logger:  logger,
	}
}

// Allow consumes a token for client. When refused it also returns the seconds
// until the next token is available.
func (r *RateLimiter) Allow(client string) (bool, int) {
	if !r.config.Enabled {
		return true, 0
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	bucket, exists := r.buckets[client]
	if !exists {
		bucket = &tokenBucket{tokens: float64(r.config.BurstSize), lastRefill: now}
		r.buckets[client] = bucket
	}

	perSecond := float64(r.config.PerMinute) / 60.0
	bucket.tokens += now.Sub(bucket.lastRefill).Seconds() * perSecond
	bucket.lastRefill = now
	if bucket.tokens > float64(r.config.BurstSize) {
		bucket.tokens = float64(r.config.BurstSize)
	}

	if bucket.tokens >= 1.0 {
		bucket.tokens -= 1.0
		return true, 0
	}
	return false, int((1.0-bucket.tokens)/perSecond) + 1
}

// Reset forgets the bucket of client.
func (r *RateLimiter) Reset(client string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.buckets, client)
}

// StartCleanup drops idle buckets until ctx is done.
func (r *RateLimiter) StartCleanup(ctx context.Context) {
	if !r.config.Enabled {
		return
	}

	go func() {
		ticker := time.NewTicker(time.Duration(r.config.CleanupInterval) * time.Second)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				r.cleanup()
			}
		}
	}()
}

func (r *RateLimiter) cleanup() {
	r.mu.Lock()
	defer r.mu.Unlock()

	cutoff := r.now().Add(-10 * time.Minute)
	removed := 0
	for client, bucket := range r.buckets {
		if bucket.lastRefill.Before(cutoff) {
			delete(r.buckets, client)
			removed++
		}
	}

	if removed > 0 && r.logger != nil {
		r.logger.Debug("Rate limit cleanup",
			"removed_buckets", removed,
			"remaining", len(r.buckets),
		)
	}
}
