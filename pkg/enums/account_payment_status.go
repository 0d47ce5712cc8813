package enums

// AccountPaymentStatus tracks whether a business account has paid for its current plan.
type AccountPaymentStatus string

const (
	AccountPaymentPending  AccountPaymentStatus = "pending"
	AccountPaymentReceived AccountPaymentStatus = "payment_received"
	AccountPaymentRejected AccountPaymentStatus = "payment_rejected"
)

var validAccountPaymentStatuses = []AccountPaymentStatus{
	AccountPaymentPending,
	AccountPaymentReceived,
	AccountPaymentRejected,
}

// String implements fmt.Stringer.
func (s AccountPaymentStatus) String() string {
	return string(s)
}

// IsValid reports whether the value is known.
func (s AccountPaymentStatus) IsValid() bool {
	return known(validAccountPaymentStatuses, s)
}

// ParseAccountPaymentStatus converts raw input into a AccountPaymentStatus.
func ParseAccountPaymentStatus(value string) (AccountPaymentStatus, error) {
	return parse("account payment status", validAccountPaymentStatuses, value)
}
