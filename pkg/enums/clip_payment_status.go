package enums

// ClipPaymentStatus is the payment state recorded on a clip ledger entry.
type ClipPaymentStatus string

const (
	ClipPaymentPending  ClipPaymentStatus = "pending"
	ClipPaymentReceived ClipPaymentStatus = "received"
	ClipPaymentRejected ClipPaymentStatus = "rejected"
)

var validClipPaymentStatuses = []ClipPaymentStatus{
	ClipPaymentPending,
	ClipPaymentReceived,
	ClipPaymentRejected,
}

// String implements fmt.Stringer.
func (s ClipPaymentStatus) String() string {
	return string(s)
}

// IsValid reports whether the value is known.
func (s ClipPaymentStatus) IsValid() bool {
	return known(validClipPaymentStatuses, s)
}

// ParseClipPaymentStatus converts raw input into a ClipPaymentStatus.
func ParseClipPaymentStatus(value string) (ClipPaymentStatus, error) {
	return parse("clip payment status", validClipPaymentStatuses, value)
}
