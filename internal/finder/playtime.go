package finder

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// ErrInvalidDate reports a structured date-time that cannot represent a real
// instant. Comparisons against such a value would silently corrupt sort
// order and expiry classification, so decoding fails closed instead.
var ErrInvalidDate = errors.New("finder: invalid date")

// PlayTime is the structured date-time the club platform attaches to every
// invitee row. On the wire it is a number array [year, month, day, hour,
// minute, second]; hour, minute and second may be omitted. This type is the
// single parse/format boundary for that shape.
type PlayTime struct {
	Year   int
	Month  time.Month
	Day    int
	Hour   int
	Minute int
	Second int
}

// NewPlayTime builds a PlayTime from a wall-clock time, dropping the zone.
func NewPlayTime(t time.Time) PlayTime {
	return PlayTime{
		Year:   t.Year(),
		Month:  t.Month(),
		Day:    t.Day(),
		Hour:   t.Hour(),
		Minute: t.Minute(),
		Second: t.Second(),
	}
}

// IsZero reports whether the value is the empty PlayTime.
func (p PlayTime) IsZero() bool {
	return p == PlayTime{}
}

// Validate checks that every field is inside its calendar range.
func (p PlayTime) Validate() error {
	switch {
	case p.Year < 1,
		p.Month < time.January || p.Month > time.December,
		p.Day < 1 || p.Day > 31,
		p.Hour < 0 || p.Hour > 23,
		p.Minute < 0 || p.Minute > 59,
		p.Second < 0 || p.Second > 59:
		return fmt.Errorf("%w: %v", ErrInvalidDate, p)
	}
	return nil
}

// Time converts the structured value into an absolute instant in loc.
func (p PlayTime) Time(loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	return time.Date(p.Year, p.Month, p.Day, p.Hour, p.Minute, p.Second, 0, loc)
}

// Equal reports field-wise equality.
func (p PlayTime) Equal(o PlayTime) bool {
	return p == o
}

// Compare orders two play times chronologically: -1, 0 or +1.
func (p PlayTime) Compare(o PlayTime) int {
	return p.Time(time.UTC).Compare(o.Time(time.UTC))
}

// DateKey returns the calendar date with the time-of-day stripped, used to
// group history entries by day.
func (p PlayTime) DateKey(loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	return time.Date(p.Year, p.Month, p.Day, 0, 0, 0, 0, loc)
}

func (p PlayTime) String() string {
	return fmt.Sprintf("%04d-%02d-%02d %02d:%02d", p.Year, int(p.Month), p.Day, p.Hour, p.Minute)
}

// MarshalJSON emits the platform's number-array form. The seconds element is
// only written when set, matching rows observed from the platform.
func (p PlayTime) MarshalJSON() ([]byte, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}

	parts := []int{p.Year, int(p.Month), p.Day, p.Hour, p.Minute}
	if p.Second != 0 {
		parts = append(parts, p.Second)
	}
	return json.Marshal(parts)
}

// UnmarshalJSON decodes the number-array form. Arrays with fewer than three
// elements cannot name a calendar day and fail closed with ErrInvalidDate;
// elements beyond the sixth are ignored.
func (p *PlayTime) UnmarshalJSON(data []byte) error {
	var parts []int
	if err := json.Unmarshal(data, &parts); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidDate, err)
	}

	if len(parts) < 3 {
		return fmt.Errorf("%w: need at least [year, month, day], got %d elements", ErrInvalidDate, len(parts))
	}

	parsed := PlayTime{
		Year:  parts[0],
		Month: time.Month(parts[1]),
		Day:   parts[2],
	}
	if len(parts) > 3 {
		parsed.Hour = parts[3]
	}
	if len(parts) > 4 {
		parsed.Minute = parts[4]
	}
	if len(parts) > 5 {
		parsed.Second = parts[5]
	}

	if err := parsed.Validate(); err != nil {
		return err
	}

	*p = parsed
	return nil
}
