package enums

// ClipStatus is the lifecycle state of a clip ledger entry.
type ClipStatus string

const (
	ClipStatusActive  ClipStatus = "active"
	ClipStatusExpired ClipStatus = "expired"
)

var validClipStatuses = []ClipStatus{
	ClipStatusActive,
	ClipStatusExpired,
}

// String implements fmt.Stringer.
func (s ClipStatus) String() string {
	return string(s)
}

// IsValid reports whether the value is known.
func (s ClipStatus) IsValid() bool {
	return known(validClipStatuses, s)
}

// ParseClipStatus converts raw input into a ClipStatus.
func ParseClipStatus(value string) (ClipStatus, error) {
	return parse("clip status", validClipStatuses, value)
}
