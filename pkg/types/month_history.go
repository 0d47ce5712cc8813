package types

import "time"

// MonthBucket is one calendar-month slice of a plan window with its own clip allotment.
type MonthBucket struct {
	StartDate  time.Time `json:"start_date"`
	ExpiryDate time.Time `json:"expiry_date"`
	Clip       int       `json:"clip"`
}

// Contains reports whether at falls inside [StartDate, ExpiryDate).
func (b MonthBucket) Contains(at time.Time) bool {
	return !at.Before(b.StartDate) && at.Before(b.ExpiryDate)
}

// MonthHistory is the ordered bucket list persisted as JSON on a ledger entry.
type MonthHistory []MonthBucket

// TotalClips sums the clips still held by every bucket.
func (h MonthHistory) TotalClips() int {
	total := 0
	for _, bucket := range h {
		total += bucket.Clip
	}
	return total
}

// Last returns the final bucket, if any.
func (h MonthHistory) Last() (MonthBucket, bool) {
	if len(h) == 0 {
		return MonthBucket{}, false
	}
	return h[len(h)-1], true
}
