package finder

import (
	"sort"
)

// Request is the aggregate view over all invitee rows sharing a requestId.
// It is derived, never stored: every screen re-derives it from the latest
// fetched row set so independently fetched views cannot disagree.
type Request struct {
	RequestID     string
	PlaceToPlay   int
	PlayTime      PlayTime
	PlayEndTime   PlayTime
	PlayersNeeded int
	OrganizerID   string
	OrganizerName string

	// Invitees holds every row of the request, sorted by invitation id so
	// two fetches of the same row set compare equal regardless of order.
	Invitees []InviteeResponse
}

// GroupByRequestID partitions rows into aggregate requests. Shared fields
// are read from the first row of each partition in input order; rows for a
// requestId never observed yield no aggregate. The function is a pure,
// deterministic projection of its input.
func GroupByRequestID(rows []InviteeResponse) map[string]*Request {
	requests := make(map[string]*Request)

	for _, row := range rows {
		if row.RequestID == "" {
			continue
		}

		req, ok := requests[row.RequestID]
		if !ok {
			req = &Request{
				RequestID:     row.RequestID,
				PlaceToPlay:   row.PlaceToPlay,
				PlayTime:      row.PlayTime,
				PlayEndTime:   row.PlayEndTime,
				PlayersNeeded: row.PlayersNeeded,
				OrganizerID:   row.OrganizerID,
				OrganizerName: row.OrganizerName,
			}
			requests[row.RequestID] = req
		}
		req.Invitees = append(req.Invitees, row)
	}

	for _, req := range requests {
		sort.Slice(req.Invitees, func(i, j int) bool {
			return req.Invitees[i].InvitationID < req.Invitees[j].InvitationID
		})
	}

	return requests
}

// AcceptedInvitees counts rows whose status is ACCEPTED. The organizer's
// implicit slot is added by Evaluate, never here.
func (r *Request) AcceptedInvitees() int {
	n := 0
	for _, row := range r.Invitees {
		if row.Status == StatusAccepted {
			n++
		}
	}
	return n
}

// AllWithdrawn reports whether every row of the request has been withdrawn.
// The outgoing view hides a request only in that case; a partially withdrawn
// request stays visible.
func (r *Request) AllWithdrawn() bool {
	if len(r.Invitees) == 0 {
		return false
	}
	for _, row := range r.Invitees {
		if row.Status != StatusWithdrawn {
			return false
		}
	}
	return true
}

// RowFor returns the row belonging to the given invitee, if any.
func (r *Request) RowFor(inviteeID string) (InviteeResponse, bool) {
	for _, row := range r.Invitees {
		if row.InviteeID == inviteeID {
			return row, true
		}
	}
	return InviteeResponse{}, false
}

// InconsistentFields names the request-level fields on which invitee rows
// diverge from the canonical first row. All rows of a request are supposed
// to carry identical copies; divergence is flagged, not repaired.
func (r *Request) InconsistentFields() []string {
	var fields []string

	diverged := func(name string, bad bool) {
		if !bad {
			return
		}
		for _, f := range fields {
			if f == name {
				return
			}
		}
		fields = append(fields, name)
	}

	for _, row := range r.Invitees {
		diverged("placeToPlay", row.PlaceToPlay != r.PlaceToPlay)
		diverged("playTime", !row.PlayTime.Equal(r.PlayTime))
		diverged("playEndTime", !row.PlayEndTime.Equal(r.PlayEndTime))
		diverged("playersNeeded", row.PlayersNeeded != r.PlayersNeeded)
	}

	sort.Strings(fields)
	return fields
}

// SentRequests lists the aggregates visible in the outgoing ("sent") view:
// requests whose rows are all withdrawn are hidden. Results are ordered by
// play time ascending with requestId breaking ties.
func SentRequests(requests map[string]*Request) []*Request {
	visible := make([]*Request, 0, len(requests))
	for _, req := range requests {
		if req.AllWithdrawn() {
			continue
		}
		visible = append(visible, req)
	}

	sort.Slice(visible, func(i, j int) bool {
		if c := visible[i].PlayTime.Compare(visible[j].PlayTime); c != 0 {
			return c < 0
		}
		return visible[i].RequestID < visible[j].RequestID
	})

	return visible
}
