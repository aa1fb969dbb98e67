package domain

import "time"

// TimeRemaining is a non-negative duration split into whole units. Days are
// not capped.
type TimeRemaining struct {
	Days    int `json:"days"`
	Hours   int `json:"hours"`
	Minutes int `json:"minutes"`
	Seconds int `json:"seconds"`
}

// Decompose floors d into days, hours, minutes and seconds. ok is false when
// d is zero or negative: a due date in the past has no countdown.
func Decompose(d time.Duration) (tr TimeRemaining, ok bool) {
	if d <= 0 {
		return TimeRemaining{}, false
	}
	total := int64(d / time.Second)
	tr.Days = int(total / 86400)
	tr.Hours = int(total % 86400 / 3600)
	tr.Minutes = int(total % 3600 / 60)
	tr.Seconds = int(total % 60)
	return tr, true
}

// Until decomposes the time left between now and due.
func Until(due, now time.Time) (TimeRemaining, bool) {
	return Decompose(due.Sub(now))
}

// Duration converts the countdown back into a duration.
func (tr TimeRemaining) Duration() time.Duration {
	return time.Duration(tr.Days)*24*time.Hour +
		time.Duration(tr.Hours)*time.Hour +
		time.Duration(tr.Minutes)*time.Minute +
		time.Duration(tr.Seconds)*time.Second
}
