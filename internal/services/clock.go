package services

import "time"

// Clock lets tests drive time through the pipeline.
type Clock interface {
	Now() time.Time
}

type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }
