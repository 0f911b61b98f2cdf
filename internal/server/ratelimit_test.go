package server

import (
	"testing"
	"time"
)

func TestTokenBucketDrainsAndRefills(t *testing.T) {
	bucket := newTokenBucket(1000, 2)
	if !bucket.Allow() || !bucket.Allow() {
		t.Fatal("expected the burst to be available immediately")
	}
	if bucket.Allow() {
		t.Fatal("expected the bucket to be empty")
	}
	time.Sleep(5 * time.Millisecond)
	if !bucket.Allow() {
		t.Fatal("expected the bucket to refill")
	}
}

func TestAllowLoginPerKey(t *testing.T) {
	rl := newRateLimiter(RateLimitConfig{LoginLimit: 2, LoginWindow: time.Minute})

	for i := 0; i < 2; i++ {
		allowed, _, err := rl.AllowLogin("10.0.0.1")
		if err != nil || !allowed {
			t.Fatalf("attempt %d should pass: allowed=%v err=%v", i, allowed, err)
		}
	}
	allowed, retryAfter, err := rl.AllowLogin("10.0.0.1")
	if err != nil {
		t.Fatalf("AllowLogin: %v", err)
	}
	if allowed {
		t.Fatal("third attempt should be throttled")
	}
	if retryAfter <= 0 {
		t.Fatal("expected a retry-after hint")
	}

	// Another client is unaffected.
	if allowed, _, _ := rl.AllowLogin("10.0.0.2"); !allowed {
		t.Fatal("different key should have its own budget")
	}
}

func TestAllowLoginDisabledWhenNoLimit(t *testing.T) {
	rl := newRateLimiter(RateLimitConfig{})
	for i := 0; i < 100; i++ {
		if allowed, _, _ := rl.AllowLogin("10.0.0.1"); !allowed {
			t.Fatal("limiter without a login limit must allow everything")
		}
	}
	if !rl.AllowRequest() {
		t.Fatal("limiter without a global rate must allow requests")
	}
}

func TestLoginBucketCleanup(t *testing.T) {
	rl := newRateLimiter(RateLimitConfig{LoginLimit: 1, LoginWindow: time.Millisecond})
	rl.AllowLogin("10.0.0.1")

	rl.loginMu.Lock()
	if bucket, ok := rl.loginBuckets["10.0.0.1"]; ok {
		bucket.lastSeen = time.Now().Add(-time.Hour)
	}
	rl.loginMu.Unlock()

	rl.AllowLogin("10.0.0.2")

	rl.loginMu.Lock()
	_, stale := rl.loginBuckets["10.0.0.1"]
	rl.loginMu.Unlock()
	if stale {
		t.Fatal("expected stale login bucket to be evicted")
	}
}
