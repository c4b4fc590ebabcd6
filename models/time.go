package models

import "time"

// TimeRemaining splits the time left until an election deadline.
type TimeRemaining struct {
	Days    int64 `json:"days"`
	Hours   int64 `json:"hours"`
	Minutes int64 `json:"minutes"`
	Seconds int64 `json:"seconds"`
	Ended   bool  `json:"ended"`
}

// RemainingUntil computes the time left between now and a deadline given in
// epoch seconds. A deadline at or before now is reported as ended.
func RemainingUntil(deadline int64, now time.Time) TimeRemaining {
	left := deadline - now.Unix()
	if left <= 0 {
		return TimeRemaining{Ended: true}
	}
	return TimeRemaining{
		Days:    left / 86400,
		Hours:   (left % 86400) / 3600,
		Minutes: (left % 3600) / 60,
		Seconds: left % 60,
	}
}
