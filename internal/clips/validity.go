package clips

import (
	"errors"
	"strconv"
	"strings"
	"time"
)

// Unit is the calendar unit of a validity period.
type Unit int

const (
	UnitDay Unit = iota
	UnitMonth
	UnitYear
)

// Validity periods are capped at ten years in whichever unit they are written.
const (
	MaxValidityYears  = 10
	MaxValidityMonths = MaxValidityYears * 12
	MaxValidityDays   = MaxValidityYears*365 + 3
)

var (
	ErrValidityFormat  = errors.New(`must look like "<count> <unit>"`)
	ErrValidityTooLong = errors.New("must not exceed 10 years")
)

var unitAliases = map[string]Unit{
	"day":     UnitDay,
	"days":    UnitDay,
	"dag":     UnitDay,
	"dager":   UnitDay,
	"month":   UnitMonth,
	"months":  UnitMonth,
	"måned":   UnitMonth,
	"måneder": UnitMonth,
	"year":    UnitYear,
	"years":   UnitYear,
	"år":      UnitYear,
}

// ParseValidity splits a "<count> <unit>" period. Unknown units read as days and
// a missing or malformed count reads as zero; neither is an error.
func ParseValidity(validity string) (int, Unit) {
	fields := strings.Fields(strings.ToLower(strings.TrimSpace(validity)))
	if len(fields) == 0 {
		return 0, UnitDay
	}
	count := leadingInt(fields[0])
	if len(fields) < 2 {
		return count, UnitDay
	}
	unit, ok := unitAliases[fields[1]]
	if !ok {
		return count, UnitDay
	}
	return count, unit
}

// CheckValidity rejects periods that ParseValidity would read as zero and
// periods longer than the ten-year ceiling. Callers run it on any validity
// that reaches Allocate.
func CheckValidity(validity string) error {
	count, unit := ParseValidity(validity)
	if count <= 0 {
		return ErrValidityFormat
	}
	limit := MaxValidityDays
	switch unit {
	case UnitMonth:
		limit = MaxValidityMonths
	case UnitYear:
		limit = MaxValidityYears
	}
	if count > limit {
		return ErrValidityTooLong
	}
	return nil
}

// ValidityMonths is the number of monthly allotments a period starting at
// anchor grants. Month and year periods map directly; day periods grant one
// allotment per calendar month they touch.
func ValidityMonths(anchor time.Time, validity string) int {
	count, unit := ParseValidity(validity)
	switch unit {
	case UnitMonth:
		return count
	case UnitYear:
		return count * 12
	default:
		return MonthsCovered(anchor, anchor.AddDate(0, 0, count))
	}
}

// MonthsCovered counts the one-month steps needed to reach expiry from start.
func MonthsCovered(start, expiry time.Time) int {
	months := 0
	for cursor := start; cursor.Before(expiry); cursor = cursor.AddDate(0, 1, 0) {
		months++
	}
	return months
}

// CalculateExpiry adds the validity period to from using calendar arithmetic.
func CalculateExpiry(from time.Time, validity string) time.Time {
	count, unit := ParseValidity(validity)
	switch unit {
	case UnitMonth:
		return from.AddDate(0, count, 0)
	case UnitYear:
		return from.AddDate(count, 0, 0)
	default:
		return from.AddDate(0, 0, count)
	}
}

// leadingInt parses the digits at the start of raw, ignoring any suffix.
func leadingInt(raw string) int {
	end := 0
	for end < len(raw) && raw[end] >= '0' && raw[end] <= '9' {
		end++
	}
	if end == 0 {
		return 0
	}
	n, err := strconv.Atoi(raw[:end])
	if err != nil {
		return 0
	}
	return n
}
