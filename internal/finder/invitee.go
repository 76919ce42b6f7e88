// Package finder implements the player-finder invitation engine: it turns
// the per-invitee response rows stored by the club platform into aggregate
// game requests, evaluates player quorum, governs status transitions, and
// classifies requests as upcoming or historical. Everything here is a pure
// function of its inputs; fetching and mutating rows is the gateway's job.
package finder

import "time"

// ReminderMetadata is the server-maintained reminder schedule attached to
// each invitee row. The engine only reads it; the dispatcher that advances
// the schedule lives server-side.
type ReminderMetadata struct {
	InvitationSentAt           time.Time  `json:"invitationSentAt"`
	LastReminderSentAt         *time.Time `json:"lastReminderSentAt,omitempty"`
	NextReminderAt             time.Time  `json:"nextReminderAt"`
	TotalTimeBeforePlayMinutes int        `json:"totalTimeBeforePlay"`
	ReminderStartOffsetMinutes int        `json:"reminderStartOffsetMinutes"`
	ReminderIntervalMinutes    int        `json:"reminderIntervalMinutes"`
	CancelThresholdMinutes     int        `json:"cancelThresholdMinutes"`
}

// InviteeResponse is one invitee's record for one game request. Every row
// carries its own copy of the request-level fields (place, times, organizer);
// aggregation reads them authoritatively from the first row of a group.
type InviteeResponse struct {
	RequestID    string `json:"requestId" validate:"required"`
	InvitationID string `json:"invitationId" validate:"required"`
	InviteeID    string `json:"inviteeId" validate:"required"`
	InviteeName  string `json:"inviteeName"`

	Status Status `json:"status"`

	PlayTime    PlayTime `json:"playTime"`
	PlayEndTime PlayTime `json:"playEndTime"`

	PlaceToPlay   int `json:"placeToPlay"`
	PlayersNeeded int `json:"playersNeeded" validate:"gte=0"`

	OrganizerID   string `json:"organizerId"`
	OrganizerName string `json:"organizerName"`

	Reminder ReminderMetadata `json:"reminderMetadata"`

	// AcceptURL and DeclineURL are pre-authorized capability links embedded
	// in the row by the platform. They are opaque: the client never derives
	// or rewrites them.
	AcceptURL  string `json:"acceptUrl"`
	DeclineURL string `json:"declineUrl"`

	Comment string `json:"comment,omitempty"`
}
