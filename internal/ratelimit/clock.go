package ratelimit

import "time"

// Clock abstracts time.Now so window behavior can be tested deterministically
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }
