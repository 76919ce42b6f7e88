package finder

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func row(requestID, invitationID, inviteeID string, status Status) InviteeResponse {
	return InviteeResponse{
		RequestID:     requestID,
		InvitationID:  invitationID,
		InviteeID:     inviteeID,
		InviteeName:   "Invitee " + inviteeID,
		Status:        status,
		PlayTime:      PlayTime{2025, time.July, 24, 14, 0, 0},
		PlayEndTime:   PlayTime{2025, time.July, 24, 15, 0, 0},
		PlaceToPlay:   3,
		PlayersNeeded: 2,
		OrganizerID:   "org-1",
		OrganizerName: "Organizer",
	}
}

func TestGroupByRequestIDPartitionsRows(t *testing.T) {
	rows := []InviteeResponse{
		row("r1", "i1", "a", StatusAccepted),
		row("r2", "i3", "c", StatusPending),
		row("r1", "i2", "b", StatusPending),
	}

	grouped := GroupByRequestID(rows)
	require.Len(t, grouped, 2)

	r1 := grouped["r1"]
	require.NotNil(t, r1)
	require.Len(t, r1.Invitees, 2)
	require.Equal(t, 3, r1.PlaceToPlay)
	require.Equal(t, 2, r1.PlayersNeeded)
	require.Equal(t, "org-1", r1.OrganizerID)

	r2 := grouped["r2"]
	require.NotNil(t, r2)
	require.Len(t, r2.Invitees, 1)
}

func TestGroupByRequestIDIsDeterministicAndIdempotent(t *testing.T) {
	rows := []InviteeResponse{
		row("r1", "i2", "b", StatusPending),
		row("r1", "i1", "a", StatusAccepted),
	}

	first := GroupByRequestID(rows)
	second := GroupByRequestID(rows)
	require.Equal(t, first, second)
}

func TestGroupByRequestIDIgnoresRowOrder(t *testing.T) {
	forward := []InviteeResponse{
		row("r1", "i1", "a", StatusAccepted),
		row("r1", "i2", "b", StatusPending),
		row("r1", "i3", "c", StatusDeclined),
	}
	reversed := []InviteeResponse{forward[2], forward[1], forward[0]}

	require.Equal(t, GroupByRequestID(forward), GroupByRequestID(reversed))
}

func TestGroupByRequestIDSharedFieldsFromFirstRow(t *testing.T) {
	first := row("r1", "i2", "b", StatusPending)
	first.PlaceToPlay = 7

	second := row("r1", "i1", "a", StatusPending)
	second.PlaceToPlay = 9

	grouped := GroupByRequestID([]InviteeResponse{first, second})
	req := grouped["r1"]
	require.NotNil(t, req)

	// Canonical fields come from the first row in input order even though
	// invitees are re-sorted by invitation id.
	require.Equal(t, 7, req.PlaceToPlay)
	require.Equal(t, "i1", req.Invitees[0].InvitationID)
	require.Equal(t, []string{"placeToPlay"}, req.InconsistentFields())
}

func TestGroupByRequestIDEmptyInput(t *testing.T) {
	require.Empty(t, GroupByRequestID(nil))
	require.Empty(t, GroupByRequestID([]InviteeResponse{}))
}

func TestInconsistentFieldsCleanRequest(t *testing.T) {
	grouped := GroupByRequestID([]InviteeResponse{
		row("r1", "i1", "a", StatusPending),
		row("r1", "i2", "b", StatusPending),
	})
	require.Empty(t, grouped["r1"].InconsistentFields())
}

func TestAllWithdrawn(t *testing.T) {
	partial := GroupByRequestID([]InviteeResponse{
		row("r1", "i1", "a", StatusWithdrawn),
		row("r1", "i2", "b", StatusWithdrawn),
		row("r1", "i3", "c", StatusPending),
	})["r1"]
	require.False(t, partial.AllWithdrawn())

	full := GroupByRequestID([]InviteeResponse{
		row("r2", "i1", "a", StatusWithdrawn),
		row("r2", "i2", "b", StatusWithdrawn),
	})["r2"]
	require.True(t, full.AllWithdrawn())
}

func TestSentRequestsHidesOnlyFullyWithdrawn(t *testing.T) {
	grouped := GroupByRequestID([]InviteeResponse{
		row("r1", "i1", "a", StatusWithdrawn),
		row("r1", "i2", "b", StatusWithdrawn),
		row("r1", "i3", "c", StatusPending),
		row("r2", "i4", "d", StatusWithdrawn),
		row("r2", "i5", "e", StatusWithdrawn),
		row("r3", "i6", "f", StatusAccepted),
	})

	visible := SentRequests(grouped)
	require.Len(t, visible, 2)

	ids := []string{visible[0].RequestID, visible[1].RequestID}
	require.Equal(t, []string{"r1", "r3"}, ids)
}

func TestRowFor(t *testing.T) {
	req := GroupByRequestID([]InviteeResponse{
		row("r1", "i1", "a", StatusAccepted),
		row("r1", "i2", "b", StatusPending),
	})["r1"]

	found, ok := req.RowFor("b")
	require.True(t, ok)
	require.Equal(t, "i2", found.InvitationID)

	_, ok = req.RowFor("missing")
	require.False(t, ok)
}
