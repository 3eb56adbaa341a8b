package middleware

import (
	"fmt"
	"sync"
	"time"
)

// ==================== CooldownLimiter ====================

// CooldownLimiter throttles manually triggered jobs (rollup reruns,
// digest resends, expiry sweeps) so an admin mashing a dashboard button
// can't stack concurrent runs.
type CooldownLimiter struct {
	locks sync.Map // key -> *lockEntry
}

type lockEntry struct {
	lastTime time.Time
	mu       sync.Mutex
}

var globalLimiter = &CooldownLimiter{}

func GetLimiter() *CooldownLimiter {
	return globalLimiter
}

// ==================== Checks ====================

type CheckResult struct {
	Allowed    bool
	RetryAfter time.Duration
}

// Check allows one execution per interval per key, updating the clock
// when allowed.
func (r *CooldownLimiter) Check(key string, interval time.Duration) CheckResult {
	actual, _ := r.locks.LoadOrStore(key, &lockEntry{})
	entry := actual.(*lockEntry)

	entry.mu.Lock()
	defer entry.mu.Unlock()

	now := time.Now()
	elapsed := now.Sub(entry.lastTime)

	if elapsed < interval {
		return CheckResult{
			Allowed:    false,
			RetryAfter: interval - elapsed,
		}
	}

	entry.lastTime = now
	return CheckResult{Allowed: true}
}

// Reset clears a key's cooldown.
func (r *CooldownLimiter) Reset(key string) {
	r.locks.Delete(key)
}

// ==================== Key helpers ====================

type JobType string

const (
	JobRollup JobType = "rollup"
	JobDigest JobType = "digest"
	JobSweep  JobType = "sweep"
)

func JobKey(job JobType) string {
	return fmt.Sprintf("job:%s", job)
}

// DefaultIntervals maps each manual job to its cooldown.
var DefaultIntervals = map[JobType]time.Duration{
	JobRollup: 10 * time.Minute,
	JobDigest: 10 * time.Minute,
	JobSweep:  5 * time.Minute,
}

func GetInterval(job JobType) time.Duration {
	if interval, ok := DefaultIntervals[job]; ok {
		return interval
	}
	return 5 * time.Minute
}
