package finder

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Status is the closed set of per-invitee response states. The wire format
// is case-insensitive; everything else in the engine matches exhaustively on
// the parsed value so an unknown status can never fall through silently.
type Status string

const (
	StatusPending   Status = "PENDING"
	StatusAccepted  Status = "ACCEPTED"
	StatusDeclined  Status = "DECLINED"
	StatusCancelled Status = "CANCELLED"
	StatusWithdrawn Status = "WITHDRAWN"
)

// ErrUnknownStatus reports a status string outside the closed set.
var ErrUnknownStatus = fmt.Errorf("finder: unknown status")

// ParseStatus normalises a wire status string into a Status.
func ParseStatus(s string) (Status, error) {
	switch Status(strings.ToUpper(strings.TrimSpace(s))) {
	case StatusPending:
		return StatusPending, nil
	case StatusAccepted:
		return StatusAccepted, nil
	case StatusDeclined:
		return StatusDeclined, nil
	case StatusCancelled:
		return StatusCancelled, nil
	case StatusWithdrawn:
		return StatusWithdrawn, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownStatus, s)
	}
}

// Valid reports whether the status belongs to the closed set.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusAccepted, StatusDeclined, StatusCancelled, StatusWithdrawn:
		return true
	default:
		return false
	}
}

// Terminal reports whether no further invitee-driven transition is allowed.
// Only withdrawal is terminal; declined and cancelled rows may re-accept.
func (s Status) Terminal() bool {
	return s == StatusWithdrawn
}

// UnmarshalJSON parses the wire status case-insensitively and rejects
// anything outside the closed set.
func (s *Status) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	parsed, err := ParseStatus(raw)
	if err != nil {
		return err
	}

	*s = parsed
	return nil
}
