package enums

// UsageType classifies a clip usage history record.
type UsageType string

const (
	UsageTypeApplied   UsageType = "applied"
	UsageTypePurchased UsageType = "purchased"
)

var validUsageTypes = []UsageType{
	UsageTypeApplied,
	UsageTypePurchased,
}

// String implements fmt.Stringer.
func (s UsageType) String() string {
	return string(s)
}

// IsValid reports whether the value is known.
func (s UsageType) IsValid() bool {
	return known(validUsageTypes, s)
}

// ParseUsageType converts raw input into a UsageType.
func ParseUsageType(value string) (UsageType, error) {
	return parse("usage type", validUsageTypes, value)
}
