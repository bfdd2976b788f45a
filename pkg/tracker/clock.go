package tracker

import "time"

// Clock abstracts wall-clock time so the temporal rules are testable without
// real delays
type Clock interface {
	Now() time.Time
}

type SystemClock struct{}

func (SystemClock) Now() time.Time {
	return time.Now()
}
