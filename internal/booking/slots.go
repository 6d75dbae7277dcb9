package booking

import (
	"fmt"
	"strconv"
	"strings"
)

const minutesPerDay = 24 * 60

// ParseClock converts "hh:mm AM", "h:mm pm" or 24-hour "HH:MM[:SS]" into
// minutes after midnight.
func ParseClock(value string) (int, error) {
	fields := strings.Fields(strings.TrimSpace(value))
	if len(fields) == 0 || len(fields) > 2 {
		return 0, fmt.Errorf("booking: invalid clock %q", value)
	}
	parts := strings.Split(fields[0], ":")
	if len(parts) < 2 || len(parts) > 3 {
		return 0, fmt.Errorf("booking: invalid clock %q", value)
	}
	hour, err := strconv.Atoi(parts[0])
	if err != nil {
		return 0, fmt.Errorf("booking: invalid hour in %q", value)
	}
	minute, err := strconv.Atoi(parts[1])
	if err != nil || minute < 0 || minute > 59 {
		return 0, fmt.Errorf("booking: invalid minute in %q", value)
	}

	if len(fields) == 2 {
		if hour < 1 || hour > 12 {
			return 0, fmt.Errorf("booking: invalid hour in %q", value)
		}
		switch strings.ToUpper(fields[1]) {
		case "AM":
			if hour == 12 {
				hour = 0
			}
		case "PM":
			if hour < 12 {
				hour += 12
			}
		default:
			return 0, fmt.Errorf("booking: invalid meridiem in %q", value)
		}
	} else if hour < 0 || hour > 23 {
		return 0, fmt.Errorf("booking: invalid hour in %q", value)
	}
	return hour*60 + minute, nil
}

// FormatClock renders minutes after midnight as a zero-padded "hh:mm AM".
func FormatClock(minutes int) string {
	minutes = ((minutes % minutesPerDay) + minutesPerDay) % minutesPerDay
	hour, minute := minutes/60, minutes%60
	meridiem := "AM"
	if hour >= 12 {
		meridiem = "PM"
	}
	hour12 := hour % 12
	if hour12 == 0 {
		hour12 = 12
	}
	return fmt.Sprintf("%02d:%02d %s", hour12, minute, meridiem)
}

// GenerateSlots lists slot start times from start, stepping by duration, and
// keeps a slot only when it ends at or before end.
func GenerateSlots(start, end string, duration int) ([]string, error) {
	if duration <= 0 {
		duration = defaultSlotMinutes
	}
	from, err := ParseClock(start)
	if err != nil {
		return nil, err
	}
	to, err := ParseClock(end)
	if err != nil {
		return nil, err
	}
	slots := []string{}
	for current := from; current+duration <= to; current += duration {
		slots = append(slots, FormatClock(current))
	}
	return slots, nil
}

// FreeSlots removes booked times from slots, keeping order. Times are compared
// by clock value so "9:00 am" matches "09:00 AM".
func FreeSlots(slots, booked []string) []string {
	taken := make(map[int]struct{}, len(booked))
	for _, b := range booked {
		if m, err := ParseClock(b); err == nil {
			taken[m] = struct{}{}
		}
	}
	free := []string{}
	for _, s := range slots {
		m, err := ParseClock(s)
		if err != nil {
			continue
		}
		if _, ok := taken[m]; !ok {
			free = append(free, s)
		}
	}
	return free
}
