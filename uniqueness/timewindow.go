package uniqueness

import (
	"fmt"
	"time"
)

// TimeWindow zero bound means the window is unbounded on that side
type TimeWindow struct {
	LowerBound time.Time
	UpperBound time.Time
}

type TimeWindowViolation byte

const (
	LowerBoundViolated = TimeWindowViolation(1 << iota)
	UpperBoundViolated
)

func (tw TimeWindow) HasLowerBound() bool {
	return !tw.LowerBound.IsZero()
}

func (tw TimeWindow) HasUpperBound() bool {
	return !tw.UpperBound.IsZero()
}

// Validate checks the time window against the clock reading. Both bounds are inclusive
func (tw TimeWindow) Validate(now time.Time) (ret TimeWindowViolation) {
	if tw.HasLowerBound() && now.Before(tw.LowerBound) {
		ret |= LowerBoundViolated
	}
	if tw.HasUpperBound() && now.After(tw.UpperBound) {
		ret |= UpperBoundViolated
	}
	return
}

func (v TimeWindowViolation) IsValid() bool {
	return v == 0
}

func (v TimeWindowViolation) LowerBound() bool {
	return v&LowerBoundViolated != 0
}

func (v TimeWindowViolation) UpperBound() bool {
	return v&UpperBoundViolated != 0
}

func (tw TimeWindow) String() string {
	if !tw.HasLowerBound() && !tw.HasUpperBound() {
		return "none"
	}
	lower, upper := "-inf", "+inf"
	if tw.HasLowerBound() {
		lower = tw.LowerBound.Format(time.RFC3339Nano)
	}
	if tw.HasUpperBound() {
		upper = tw.UpperBound.Format(time.RFC3339Nano)
	}
	return fmt.Sprintf("[%s, %s]", lower, upper)
}
