package throttle

import (
	"sync"
	"time"
)

type Bucket[K comparable] struct {
	mu          sync.Mutex // protects access to bucket state
	tokens      int
	lastCheck   time.Time
	parentGroup *BucketGroup[K] // back-reference to its parentGroup group
}

// refill adds Increment tokens per elapsed Period, capped at Burst.
// Caller holds b.mu
func (b *Bucket[K]) refill(now time.Time) {
	conf := b.parentGroup.conf
	elapsed := now.Sub(b.lastCheck)
	if elapsed < conf.Period {
		return
	}
	times := int(elapsed / conf.Period)
	b.tokens = min(b.tokens+times*conf.Increment, conf.Burst)
	b.lastCheck = b.lastCheck.Add(time.Duration(times) * conf.Period)
}

// Allow takes one token if there is one
func (b *Bucket[K]) Allow(now time.Time) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.refill(now)
	if b.tokens <= 0 {
		return false
	}
	b.tokens--
	return true
}

// Tokens returns the tokens left at now
func (b *Bucket[K]) Tokens(now time.Time) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.refill(now)
	return b.tokens
}
