package model

import (
	"fmt"
	"time"
)

// DateLayout is the wire and storage layout of a reservation date.
const DateLayout = "2006-01-02"

// TimeLayout is the wire and storage layout of a slot start time.
const TimeLayout = "15:04"

// Slot identifies one bookable unit: a theme on a date at a start time.  It
// is not stored on its own; reservations sharing a Slot compete for it.
//
// Fields:
//
//	Date    – calendar date, normalized to midnight UTC.
//	TimeID  – reservation_time.id of the start time.
//	StartAt – start time of day (hours and minutes only) used for ordering.
//	ThemeID – theme.id being played.
type Slot struct {
	Date    time.Time
	TimeID  uint64
	StartAt time.Duration
	ThemeID uint64
}

// NewSlot builds a Slot, truncating date to its calendar day.
func NewSlot(date time.Time, timeID uint64, startAt time.Duration, themeID uint64) Slot {
	return Slot{Date: DateOf(date), TimeID: timeID, StartAt: startAt, ThemeID: themeID}
}

// Same reports whether two slots identify the same bookable unit.  StartAt
// is derived from TimeID and is not compared.
func (s Slot) Same(o Slot) bool {
	return s.Date.Equal(o.Date) && s.TimeID == o.TimeID && s.ThemeID == o.ThemeID
}

func (s Slot) String() string {
	return fmt.Sprintf("%s %s theme=%d", s.Date.Format(DateLayout), FormatClock(s.StartAt), s.ThemeID)
}

// DateOf strips the clock part of t, keeping its calendar day in its own
// location, and returns it as midnight UTC.
func DateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// ParseDate parses a YYYY-MM-DD date.
func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return time.Time{}, err
	}
	return DateOf(t), nil
}

// ParseClock parses "HH:MM" or "HH:MM:SS" into an offset from midnight.
func ParseClock(s string) (time.Duration, error) {
	for _, layout := range []string{"15:04:05", TimeLayout} {
		if t, err := time.Parse(layout, s); err == nil {
			return time.Duration(t.Hour())*time.Hour + time.Duration(t.Minute())*time.Minute + time.Duration(t.Second())*time.Second, nil
		}
	}
	return 0, fmt.Errorf("invalid time of day %q", s)
}

// FormatClock renders an offset from midnight as "HH:MM".
func FormatClock(d time.Duration) string {
	h := int(d / time.Hour)
	m := int((d % time.Hour) / time.Minute)
	return fmt.Sprintf("%02d:%02d", h, m)
}
