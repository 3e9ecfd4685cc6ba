package uniqueness

import (
	"sync"
	"time"
)

type (
	SystemClock struct{}

	// ManualClock is a clock moved only explicitly. Used in tests
	ManualClock struct {
		mutex sync.Mutex
		now   time.Time
	}

	// commitClock allocates strictly increasing commit timestamps. Not thread safe, it is protected by the Checker
	commitClock struct {
		last time.Time
	}
)

func (SystemClock) Now() time.Time {
	return time.Now()
}

func NewManualClock(now time.Time) *ManualClock {
	return &ManualClock{now: now}
}

func (c *ManualClock) Now() time.Time {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	return c.now
}

func (c *ManualClock) Set(now time.Time) {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	c.now = now
}

func (c *ManualClock) Advance(d time.Duration) time.Time {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	c.now = c.now.Add(d)
	return c.now
}

// next returns normalized now if it is after the last allocated timestamp, otherwise last + 1ns
func (c *commitClock) next(now time.Time) time.Time {
	ret := normalizeTime(now)
	if !ret.After(c.last) {
		ret = c.last.Add(time.Nanosecond)
	}
	c.last = ret
	return ret
}
