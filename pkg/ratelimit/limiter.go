// Package ratelimit throttles the browser-facing impersonation endpoints.
// The exchange endpoint accepts a bearer-less one-shot token, so per-client
// limiting is what stands between it and token guessing.
package ratelimit

import (
	"sync"
	"time"
)

// TokenBucket implements the token bucket algorithm
type TokenBucket struct {
	capacity   int
	tokens     float64
	refillRate float64 // tokens added per second
	lastRefill time.Time
	mu         sync.Mutex
}

// NewTokenBucket creates a new token bucket
// capacity: maximum burst size
// refillRate: requests allowed per second
func NewTokenBucket(capacity int, refillRate float64) *TokenBucket {
	return &TokenBucket{
		capacity:   capacity,
		tokens:     float64(capacity),
		refillRate: refillRate,
		lastRefill: time.Now(),
	}
}

// Allow reports whether a request should be allowed and consumes a token
// when it is
func (tb *TokenBucket) Allow() bool {
	tb.mu.Lock()
	defer tb.mu.Unlock()

	now := time.Now()
	elapsed := now.Sub(tb.lastRefill).Seconds()
	tb.tokens = min(float64(tb.capacity), tb.tokens+elapsed*tb.refillRate)
	tb.lastRefill = now

	if tb.tokens >= 1.0 {
		tb.tokens -= 1.0
		return true
	}
	return false
}

// KeyedLimiter manages one token bucket per key, typically per client IP
type KeyedLimiter struct {
	buckets    map[string]*TokenBucket
	capacity   int
	refillRate float64
	ttl        time.Duration
	mu         sync.Mutex
}

// NewKeyedLimiter creates a keyed limiter. Buckets idle longer than ttl are
// evicted in the background; ttl of 0 keeps them forever.
func NewKeyedLimiter(capacity int, refillRate float64, ttl time.Duration) *KeyedLimiter {
	kl := &KeyedLimiter{
		buckets:    make(map[string]*TokenBucket),
		capacity:   capacity,
		refillRate: refillRate,
		ttl:        ttl,
	}

	if ttl > 0 {
		go kl.cleanup()
	}

	return kl
}

// Allow reports whether a request for the given key should be allowed
func (kl *KeyedLimiter) Allow(key string) bool {
	kl.mu.Lock()
	bucket, exists := kl.buckets[key]
	if !exists {
		bucket = NewTokenBucket(kl.capacity, kl.refillRate)
		kl.buckets[key] = bucket
	}
	kl.mu.Unlock()

	return bucket.Allow()
}

func (kl *KeyedLimiter) cleanup() {
	ticker := time.NewTicker(kl.ttl)
	defer ticker.Stop()

	for range ticker.C {
		kl.mu.Lock()
		now := time.Now()
		for key, bucket := range kl.buckets {
			if now.Sub(bucket.lastRefill) > kl.ttl {
				delete(kl.buckets, key)
			}
		}
		kl.mu.Unlock()
	}
}
