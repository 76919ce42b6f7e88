package finder

import (
	"errors"
	"fmt"
)

var (
	// ErrIllegalTransition reports a status change outside the lifecycle table.
	ErrIllegalTransition = errors.New("finder: illegal status transition")
	// ErrRequestFull reports an accept attempted when no slot remains.
	ErrRequestFull = errors.New("finder: request already full")
	// ErrNotOrganizer reports a withdrawal attempted by someone other than the organizer.
	ErrNotOrganizer = errors.New("finder: only the organizer may withdraw a request")
)

// transitions is the legal per-invitee lifecycle:
//
//	PENDING   -> ACCEPTED | DECLINED
//	ACCEPTED  -> CANCELLED
//	DECLINED  -> ACCEPTED   (re-accept)
//	CANCELLED -> ACCEPTED   (re-accept)
//	any non-terminal -> WITHDRAWN (organizer only, terminal)
var transitions = map[Status]map[Status]bool{
	StatusPending:   {StatusAccepted: true, StatusDeclined: true, StatusWithdrawn: true},
	StatusAccepted:  {StatusCancelled: true, StatusWithdrawn: true},
	StatusDeclined:  {StatusAccepted: true, StatusWithdrawn: true},
	StatusCancelled: {StatusAccepted: true, StatusWithdrawn: true},
	StatusWithdrawn: {},
}

// CanTransition reports whether the lifecycle table allows from -> to.
func CanTransition(from, to Status) bool {
	return transitions[from][to]
}

// ValidateTransition checks a proposed status change against the lifecycle
// table, failing closed for anything the table does not allow.
func ValidateTransition(from, to Status) error {
	if !from.Valid() {
		return fmt.Errorf("%w: %q", ErrUnknownStatus, string(from))
	}
	if !to.Valid() {
		return fmt.Errorf("%w: %q", ErrUnknownStatus, string(to))
	}
	if !CanTransition(from, to) {
		return fmt.Errorf("%w: %s -> %s", ErrIllegalTransition, from, to)
	}
	return nil
}

// ValidateAccept guards the accept path. Besides the lifecycle table it
// re-validates quorum: accepting into a FULL request would over-book, so the
// attempt is rejected before any endpoint is called. An invitee who already
// holds one of the accepted slots never counts against themselves because an
// accepted row cannot transition to ACCEPTED in the first place.
func ValidateAccept(row InviteeResponse, q Quorum) error {
	if err := ValidateTransition(row.Status, StatusAccepted); err != nil {
		return err
	}
	if q.Remaining == 0 {
		return fmt.Errorf("%w: %s", ErrRequestFull, row.RequestID)
	}
	return nil
}

// ValidateDecline guards the decline path.
func ValidateDecline(row InviteeResponse) error {
	return ValidateTransition(row.Status, StatusDeclined)
}

// ValidateCancel guards an invitee reversing their own prior acceptance.
func ValidateCancel(row InviteeResponse) error {
	return ValidateTransition(row.Status, StatusCancelled)
}

// ValidateWithdraw guards the organizer-initiated termination of a whole
// request. The caller must be the organizer; rows already withdrawn are
// skipped by the caller rather than failing the operation.
func ValidateWithdraw(r *Request, organizerID string) error {
	if organizerID == "" || organizerID != r.OrganizerID {
		return fmt.Errorf("%w: %s", ErrNotOrganizer, r.RequestID)
	}
	return nil
}
