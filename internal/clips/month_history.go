package clips

import (
	"time"

	"github.com/angelmondragon/clips-backend/pkg/types"
)

// GenerateMonthHistory partitions [start, expiry) into calendar-month buckets.
// It emits at most months buckets, clamps the last boundary to expiry, and
// stops as soon as the cursor reaches expiry. Every bucket carries the full
// perMonth allotment; a truncated final month is not pro-rated.
func GenerateMonthHistory(start, expiry time.Time, months, perMonth int) types.MonthHistory {
	if months <= 0 {
		return types.MonthHistory{}
	}
	history := make(types.MonthHistory, 0, min(months, MaxValidityMonths+1))
	cursor := start
	for i := 0; i < months; i++ {
		next := cursor.AddDate(0, 1, 0)
		if next.After(expiry) {
			next = expiry
		}
		history = append(history, types.MonthBucket{
			StartDate:  cursor,
			ExpiryDate: next,
			Clip:       perMonth,
		})
		cursor = next
		if !cursor.Before(expiry) {
			break
		}
	}
	return history
}

// CurrentBucketIndex returns the index of the bucket containing now, or -1.
func CurrentBucketIndex(history types.MonthHistory, now time.Time) int {
	for i, bucket := range history {
		if bucket.Contains(now) {
			return i
		}
	}
	return -1
}

// CurrentBucketClips returns the clips left in the bucket containing now, or 0.
func CurrentBucketClips(history types.MonthHistory, now time.Time) int {
	idx := CurrentBucketIndex(history, now)
	if idx < 0 {
		return 0
	}
	return history[idx].Clip
}

// ExpiryPreview is the date a top-up bought now stays valid until: one month
// out, capped by the plan's final bucket or, without buckets, its expiry.
func ExpiryPreview(now time.Time, history types.MonthHistory, planExpiry *time.Time) time.Time {
	preview := now.AddDate(0, 1, 0)
	limit := planExpiry
	if last, ok := history.Last(); ok {
		limit = &last.ExpiryDate
	}
	if limit != nil && !limit.IsZero() && limit.Before(preview) {
		return *limit
	}
	return preview
}

// Plan bundles the dates and counters a fresh allocation produces.
type Plan struct {
	PurchasedAt  time.Time
	ExpiryDate   time.Time
	TotalClips   int
	MonthHistory types.MonthHistory
}

// Allocate builds a plan window starting at anchor for the given validity and
// monthly allotment. The total is the month count times the allotment, which
// always equals the sum of the generated buckets.
func Allocate(anchor time.Time, validity string, monthly int) Plan {
	expiry := CalculateExpiry(anchor, validity)
	months := ValidityMonths(anchor, validity)
	return Plan{
		PurchasedAt:  anchor,
		ExpiryDate:   expiry,
		TotalClips:   months * monthly,
		MonthHistory: GenerateMonthHistory(anchor, expiry, months, monthly),
	}
}
