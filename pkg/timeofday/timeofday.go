package timeofday

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// UnscheduledLiteral is the wire form of a task without a fixed start.
const UnscheduledLiteral = "25:25"

const (
	// Midnight is the end of the planning day in minutes.
	Midnight Time = 24 * 60

	// Unscheduled marks a flexible task.
	Unscheduled Time = -1
)

// ErrInvalidTimeFormat is returned for strings that are not a 24-hour "hh:mm" value.
var ErrInvalidTimeFormat = errors.New("invalid time format")

// Time is a wall-clock instant expressed in minutes since midnight.
type Time int

// Parse converts "hh:mm" (single digit hours allowed) into minutes since midnight.
// "24:00" is accepted as the end of the day and "25:25" maps to Unscheduled.
func Parse(raw string) (Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == UnscheduledLiteral {
		return Unscheduled, nil
	}
	hourPart, minutePart, ok := strings.Cut(raw, ":")
	if !ok || len(hourPart) == 0 || len(hourPart) > 2 || len(minutePart) != 2 || !digits(hourPart) || !digits(minutePart) {
		return 0, fmt.Errorf("%w: %q", ErrInvalidTimeFormat, raw)
	}
	hours, err := strconv.Atoi(hourPart)
	if err != nil || hours < 0 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidTimeFormat, raw)
	}
	minutes, err := strconv.Atoi(minutePart)
	if err != nil || minutes < 0 || minutes > 59 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidTimeFormat, raw)
	}
	if hours > 24 || (hours == 24 && minutes != 0) {
		return 0, fmt.Errorf("%w: %q", ErrInvalidTimeFormat, raw)
	}
	return Time(hours*60 + minutes), nil
}

func digits(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

// MustParse is Parse for constants; it panics on malformed input.
func MustParse(raw string) Time {
	t, err := Parse(raw)
	if err != nil {
		panic(err)
	}
	return t
}

// IsFixed reports whether t is a concrete start time.
func (t Time) IsFixed() bool {
	return t != Unscheduled
}

// Minutes returns minutes since midnight.
func (t Time) Minutes() int {
	return int(t)
}

// Add returns t advanced by the given number of minutes.
func (t Time) Add(minutes int) Time {
	if t == Unscheduled {
		return t
	}
	return t + Time(minutes)
}

// Sub returns the number of minutes from u to t.
func (t Time) Sub(u Time) int {
	return int(t) - int(u)
}

// Before reports whether t is strictly earlier than u.
func (t Time) Before(u Time) bool {
	return t < u
}

// String renders zero-padded "hh:mm", or the unscheduled literal.
func (t Time) String() string {
	if t == Unscheduled {
		return UnscheduledLiteral
	}
	return fmt.Sprintf("%02d:%02d", int(t)/60, int(t)%60)
}

// MarshalJSON emits the "hh:mm" string form.
func (t Time) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.String())
}

// UnmarshalJSON accepts the "hh:mm" string form.
func (t *Time) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidTimeFormat, string(data))
	}
	parsed, err := Parse(raw)
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}
