package enums

// PlanRequestStatus describes a catalog plan from the viewpoint of one business.
type PlanRequestStatus string

const (
	PlanRequestAccepted  PlanRequestStatus = "accepted"
	PlanRequestRequested PlanRequestStatus = "requested"
	PlanRequestPending   PlanRequestStatus = "pending"
)

var validPlanRequestStatuses = []PlanRequestStatus{
	PlanRequestAccepted,
	PlanRequestRequested,
	PlanRequestPending,
}

// String implements fmt.Stringer.
func (s PlanRequestStatus) String() string {
	return string(s)
}

// IsValid reports whether the value is known.
func (s PlanRequestStatus) IsValid() bool {
	return known(validPlanRequestStatuses, s)
}

// ParsePlanRequestStatus converts raw input into a PlanRequestStatus.
func ParsePlanRequestStatus(value string) (PlanRequestStatus, error) {
	return parse("plan request status", validPlanRequestStatuses, value)
}
