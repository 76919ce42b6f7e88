package models

import (
	"time"

	"gorm.io/datatypes"
)

// Invitation is one invitee's row of a player-finder request. A request has
// no table of its own; it exists as the set of rows sharing a RequestID.
type Invitation struct {
	BaseModel

	RequestID    string `gorm:"not null;index" json:"request_id"`
	InviteeID    string `gorm:"not null;index" json:"invitee_id"`
	InviteeName  string `json:"invitee_name"`
	InviteeEmail string `gorm:"index" json:"invitee_email"`

	Status  string `gorm:"not null;default:PENDING" json:"status"`
	Comment string `json:"comment"`

	// Game details are denormalised onto every row, matching the wire shape
	// the read endpoints serve.
	PlayTime      datatypes.JSON `gorm:"not null" json:"play_time"`
	PlayEndTime   datatypes.JSON `gorm:"not null" json:"play_end_time"`
	PlaceToPlay   int            `json:"place_to_play"`
	PlayersNeeded int            `gorm:"not null" json:"players_needed"`

	OrganizerID    string `gorm:"not null;index" json:"organizer_id"`
	OrganizerName  string `json:"organizer_name"`
	OrganizerEmail string `gorm:"index" json:"organizer_email"`

	// Capability tokens are stored hashed for lookup. The full links are
	// kept as well because the read endpoints serve them on every row.
	AcceptTokenHash  string `gorm:"uniqueIndex" json:"-"`
	DeclineTokenHash string `gorm:"uniqueIndex" json:"-"`
	AcceptURL        string `json:"-"`
	DeclineURL       string `json:"-"`

	InvitationSentAt   time.Time      `json:"invitation_sent_at"`
	LastReminderSentAt *time.Time     `json:"last_reminder_sent_at"`
	NextReminderAt     *time.Time     `gorm:"index" json:"next_reminder_at"`
	ReminderPolicy     datatypes.JSON `json:"reminder_policy"`
}
