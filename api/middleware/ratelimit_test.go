package middleware

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func newTestLimiter(limits map[string]int) (*RateLimiter, *time.Time) {
	l := NewRateLimiter(time.Minute, limits)
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	l.now = func() time.Time { return now }
	return l, &now
}

func TestAllowWithinLimit(t *testing.T) {
	l, _ := newTestLimiter(map[string]int{BucketAI: 3})

	for i := 0; i < 3; i++ {
		assert.True(t, l.Allow(BucketAI, "1.2.3.4"), "hit %d", i)
	}
	assert.False(t, l.Allow(BucketAI, "1.2.3.4"))
}

func TestAllowWindowSlides(t *testing.T) {
	l, now := newTestLimiter(map[string]int{BucketAI: 2})

	assert.True(t, l.Allow(BucketAI, "1.2.3.4"))
	*now = now.Add(30 * time.Second)
	assert.True(t, l.Allow(BucketAI, "1.2.3.4"))
	assert.False(t, l.Allow(BucketAI, "1.2.3.4"))

	// The first hit ages out; one slot frees up, not both.
	*now = now.Add(31 * time.Second)
	assert.True(t, l.Allow(BucketAI, "1.2.3.4"))
	assert.False(t, l.Allow(BucketAI, "1.2.3.4"))
}

func TestBucketsAreIndependent(t *testing.T) {
	l, _ := newTestLimiter(map[string]int{BucketAI: 1, BucketEtsy: 2})

	assert.True(t, l.Allow(BucketAI, "1.2.3.4"))
	assert.False(t, l.Allow(BucketAI, "1.2.3.4"))
	// Exhausting the AI bucket leaves the Etsy bucket untouched.
	assert.True(t, l.Allow(BucketEtsy, "1.2.3.4"))
	assert.True(t, l.Allow(BucketEtsy, "1.2.3.4"))
	assert.False(t, l.Allow(BucketEtsy, "1.2.3.4"))
}

func TestClientsAreIndependent(t *testing.T) {
	l, _ := newTestLimiter(map[string]int{BucketAI: 1})

	assert.True(t, l.Allow(BucketAI, "1.2.3.4"))
	assert.True(t, l.Allow(BucketAI, "5.6.7.8"))
	assert.False(t, l.Allow(BucketAI, "1.2.3.4"))
}

func TestUnknownBucketUnlimited(t *testing.T) {
	l, _ := newTestLimiter(map[string]int{BucketAI: 1})

	for i := 0; i < 500; i++ {
		assert.True(t, l.Allow("other", "1.2.3.4"))
	}
}

func TestLazySweepEvictsStaleClients(t *testing.T) {
	l, now := newTestLimiter(map[string]int{BucketEtsy: 10})

	for i := 0; i < 50; i++ {
		l.Allow(BucketEtsy, "10.0.0.1")
	}
	*now = now.Add(2 * time.Minute)

	// Drive enough traffic from another client to cross the sweep threshold.
	for i := 0; i < sweepEvery; i++ {
		l.Allow(BucketEtsy, "10.0.0.2")
	}

	l.mu.Lock()
	_, stale := l.hits[BucketEtsy+"|10.0.0.1"]
	l.mu.Unlock()
	assert.False(t, stale, "expired client entries should be swept")
}
