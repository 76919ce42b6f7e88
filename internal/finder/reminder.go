package finder

import "time"

// ReminderDue reports whether the server-scheduled reminder instant for this
// row has been reached. Rows without a next reminder are never due.
func ReminderDue(row InviteeResponse, now time.Time) bool {
	next := row.Reminder.NextReminderAt
	if next.IsZero() {
		return false
	}
	return !now.Before(next)
}

// PastCancelThreshold reports whether the time left before play has shrunk
// below the row's cancellation grace period. A late cancellation should warn
// the invitee that the organizer has little time to backfill the slot.
func PastCancelThreshold(row InviteeResponse, now time.Time) bool {
	threshold := time.Duration(row.Reminder.CancelThresholdMinutes) * time.Minute
	return row.PlayTime.Time(now.Location()).Sub(now) <= threshold
}
