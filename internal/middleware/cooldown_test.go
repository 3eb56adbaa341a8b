package middleware

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestCooldownLimiter_Check(t *testing.T) {
	limiter := &CooldownLimiter{}

	first := limiter.Check("job:test", time.Minute)
	assert.True(t, first.Allowed)

	second := limiter.Check("job:test", time.Minute)
	assert.False(t, second.Allowed)
	assert.Greater(t, second.RetryAfter, time.Duration(0))
	assert.LessOrEqual(t, second.RetryAfter, time.Minute)

	t.Run("keys are independent", func(t *testing.T) {
		other := limiter.Check("job:other", time.Minute)
		assert.True(t, other.Allowed)
	})

	t.Run("reset clears the clock", func(t *testing.T) {
		limiter.Reset("job:test")
		again := limiter.Check("job:test", time.Minute)
		assert.True(t, again.Allowed)
	})

	t.Run("elapsed interval allows again", func(t *testing.T) {
		l := &CooldownLimiter{}
		assert.True(t, l.Check("k", 10*time.Millisecond).Allowed)
		time.Sleep(20 * time.Millisecond)
		assert.True(t, l.Check("k", 10*time.Millisecond).Allowed)
	})
}

func TestCooldownLimiter_ConcurrentSingleWinner(t *testing.T) {
	limiter := &CooldownLimiter{}

	var wg sync.WaitGroup
	var mu sync.Mutex
	allowed := 0

	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if limiter.Check("job:race", time.Minute).Allowed {
				mu.Lock()
				allowed++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, allowed, "exactly one caller wins the interval")
}

func TestJobIntervals(t *testing.T) {
	assert.Equal(t, "job:rollup", JobKey(JobRollup))
	assert.Equal(t, 10*time.Minute, GetInterval(JobDigest))
	assert.Equal(t, 5*time.Minute, GetInterval(JobType("unknown")), "unknown jobs get the floor")
}
