package scheduler

import "time"

// Schedule defines when a job should run.
type Schedule interface {
	// Next returns the next run time strictly after t. Zero means never.
	Next(t time.Time) time.Time

	String() string
}

// Every runs a job at a fixed interval.
type Every time.Duration

// Next implements Schedule.
func (e Every) Next(t time.Time) time.Time {
	if e <= 0 {
		return time.Time{}
	}
	return t.Add(time.Duration(e))
}

func (e Every) String() string {
	return "@every " + time.Duration(e).String()
}
