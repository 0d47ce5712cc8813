package clips

import (
	"testing"
	"time"

	"github.com/angelmondragon/clips-backend/pkg/types"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func assertContiguous(t *testing.T, history types.MonthHistory, start, expiry time.Time) {
	t.Helper()
	if len(history) == 0 {
		return
	}
	if !history[0].StartDate.Equal(start) {
		t.Fatalf("first bucket should start at %v, got %v", start, history[0].StartDate)
	}
	for i := 0; i < len(history)-1; i++ {
		if !history[i].ExpiryDate.Equal(history[i+1].StartDate) {
			t.Fatalf("bucket %d ends %v but bucket %d starts %v", i, history[i].ExpiryDate, i+1, history[i+1].StartDate)
		}
	}
	last := history[len(history)-1]
	if last.ExpiryDate.After(expiry) {
		t.Fatalf("final bucket %v exceeds plan expiry %v", last.ExpiryDate, expiry)
	}
}

func TestGenerateMonthHistoryClampsFinalBucket(t *testing.T) {
	start := day(2025, time.January, 1)
	expiry := day(2025, time.March, 31)

	history := GenerateMonthHistory(start, expiry, 3, 10)

	if len(history) != 3 {
		t.Fatalf("expected 3 buckets, got %d", len(history))
	}
	want := []types.MonthBucket{
		{StartDate: day(2025, time.January, 1), ExpiryDate: day(2025, time.February, 1), Clip: 10},
		{StartDate: day(2025, time.February, 1), ExpiryDate: day(2025, time.March, 1), Clip: 10},
		{StartDate: day(2025, time.March, 1), ExpiryDate: day(2025, time.March, 31), Clip: 10},
	}
	for i, bucket := range history {
		if !bucket.StartDate.Equal(want[i].StartDate) || !bucket.ExpiryDate.Equal(want[i].ExpiryDate) || bucket.Clip != want[i].Clip {
			t.Fatalf("bucket %d = %+v, want %+v", i, bucket, want[i])
		}
	}
	if history.TotalClips() != 30 {
		t.Fatalf("expected 30 clips, got %d", history.TotalClips())
	}
	assertContiguous(t, history, start, expiry)
}

func TestGenerateMonthHistoryStopsEarlyAtExpiry(t *testing.T) {
	start := day(2025, time.January, 1)
	expiry := day(2025, time.February, 15)

	history := GenerateMonthHistory(start, expiry, 6, 4)

	if len(history) != 2 {
		t.Fatalf("expected truncation to 2 buckets, got %d", len(history))
	}
	if !history[1].ExpiryDate.Equal(expiry) {
		t.Fatalf("last bucket should end at expiry, got %v", history[1].ExpiryDate)
	}
	if history[1].Clip != 4 {
		t.Fatalf("truncated bucket keeps the full allotment, got %d", history[1].Clip)
	}
	assertContiguous(t, history, start, expiry)
}

func TestGenerateMonthHistoryZeroMonths(t *testing.T) {
	history := GenerateMonthHistory(day(2025, time.January, 1), day(2025, time.June, 1), 0, 10)
	if history == nil || len(history) != 0 {
		t.Fatalf("expected empty non-nil history, got %#v", history)
	}
}

func TestGenerateMonthHistoryPropertyAcrossAnchors(t *testing.T) {
	for _, start := range []time.Time{
		day(2025, time.January, 31),
		day(2024, time.February, 29),
		day(2025, time.August, 15),
		time.Date(2025, time.December, 31, 23, 30, 0, 0, time.UTC),
	} {
		for months := 1; months <= 13; months++ {
			expiry := start.AddDate(0, months, 0)
			history := GenerateMonthHistory(start, expiry, months, 7)
			if len(history) > months {
				t.Fatalf("start %v months %d produced %d buckets", start, months, len(history))
			}
			if len(history) == months && history.TotalClips() != months*7 {
				t.Fatalf("start %v months %d: expected %d clips, got %d", start, months, months*7, history.TotalClips())
			}
			assertContiguous(t, history, start, expiry)
		}
	}
}

func TestCurrentBucketIndex(t *testing.T) {
	history := GenerateMonthHistory(day(2025, time.January, 1), day(2025, time.March, 1), 2, 5)

	if idx := CurrentBucketIndex(history, day(2025, time.January, 20)); idx != 0 {
		t.Fatalf("expected bucket 0, got %d", idx)
	}
	if idx := CurrentBucketIndex(history, day(2025, time.February, 1)); idx != 1 {
		t.Fatalf("boundary belongs to the next bucket, got %d", idx)
	}
	if idx := CurrentBucketIndex(history, day(2025, time.March, 1)); idx != -1 {
		t.Fatalf("expiry is exclusive, got %d", idx)
	}
	if clips := CurrentBucketClips(history, day(2024, time.December, 31)); clips != 0 {
		t.Fatalf("expected 0 clips outside window, got %d", clips)
	}
}

func TestExpiryPreview(t *testing.T) {
	now := day(2025, time.March, 10)

	history := GenerateMonthHistory(day(2025, time.January, 1), day(2025, time.March, 31), 3, 10)
	if got := ExpiryPreview(now, history, nil); !got.Equal(day(2025, time.March, 31)) {
		t.Fatalf("expected last bucket expiry, got %v", got)
	}

	long := GenerateMonthHistory(day(2025, time.January, 1), day(2025, time.December, 31), 12, 10)
	if got := ExpiryPreview(now, long, nil); !got.Equal(day(2025, time.April, 10)) {
		t.Fatalf("expected one month out, got %v", got)
	}

	planExpiry := day(2025, time.March, 20)
	if got := ExpiryPreview(now, nil, &planExpiry); !got.Equal(planExpiry) {
		t.Fatalf("expected plan expiry without buckets, got %v", got)
	}

	if got := ExpiryPreview(now, nil, nil); !got.Equal(day(2025, time.April, 10)) {
		t.Fatalf("expected default of one month, got %v", got)
	}
}

func TestAllocateTwoMonthPlan(t *testing.T) {
	anchor := day(2025, time.January, 1)

	plan := Allocate(anchor, "2 month", 5)

	if plan.TotalClips != 10 {
		t.Fatalf("expected 10 clips, got %d", plan.TotalClips)
	}
	if len(plan.MonthHistory) != 2 || plan.MonthHistory.TotalClips() != plan.TotalClips {
		t.Fatalf("unexpected buckets %+v", plan.MonthHistory)
	}
	if !plan.ExpiryDate.Equal(day(2025, time.March, 1)) {
		t.Fatalf("unexpected expiry %v", plan.ExpiryDate)
	}
}

func TestAllocateKeepsTotalsAlignedForDayPlans(t *testing.T) {
	anchor := day(2025, time.January, 1)

	plan := Allocate(anchor, "45 days", 3)

	if plan.TotalClips != plan.MonthHistory.TotalClips() {
		t.Fatalf("total %d does not match buckets %d", plan.TotalClips, plan.MonthHistory.TotalClips())
	}
	if len(plan.MonthHistory) != 2 {
		t.Fatalf("expected 2 buckets for 45 days, got %d", len(plan.MonthHistory))
	}
}

func TestGenerateMonthHistoryHugeMonthCountStopsAtExpiry(t *testing.T) {
	start := time.Date(2025, time.January, 1, 0, 0, 0, 0, time.UTC)
	expiry := start.AddDate(0, 3, 0)

	history := GenerateMonthHistory(start, expiry, 1<<40, 2)
	if len(history) != 3 {
		t.Fatalf("expected 3 buckets, got %d", len(history))
	}
}
