package finder

// RequestStatus is the aggregate status derived from quorum, independent of
// any single invitee's status.
type RequestStatus string

const (
	RequestPending RequestStatus = "PENDING"
	RequestFull    RequestStatus = "FULL"
)

// Quorum is the evaluated player count for a request.
type Quorum struct {
	Status        RequestStatus
	AcceptedCount int
	TotalSlots    int
	Remaining     int
}

// Evaluate computes accepted players against required slots. The organizer
// occupies one implicit, always-accepted slot; this function is the only
// place that +1 lives, so every view agrees on the arithmetic.
func Evaluate(r *Request) Quorum {
	accepted := r.AcceptedInvitees() + 1
	total := r.PlayersNeeded + 1

	remaining := total - accepted
	if remaining < 0 {
		remaining = 0
	}

	status := RequestPending
	if remaining == 0 {
		status = RequestFull
	}

	return Quorum{
		Status:        status,
		AcceptedCount: accepted,
		TotalSlots:    total,
		Remaining:     remaining,
	}
}
