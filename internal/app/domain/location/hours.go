package location

import (
	"strconv"
	"strings"
	"time"

	"github.com/tabiji-app/tabiji/internal/app/models"
)

const defaultTimezone = "Asia/Tokyo"

// parseHHMM converts "HH:MM" to minutes since midnight, -1 on bad input.
func parseHHMM(s string) int {
	h, m, ok := strings.Cut(s, ":")
	if !ok {
		return -1
	}
	hour, err := strconv.Atoi(h)
	if err != nil || hour < 0 || hour > 23 {
		return -1
	}
	minute, err := strconv.Atoi(m)
	if err != nil || minute < 0 || minute > 59 {
		return -1
	}
	return hour*60 + minute
}

// OpenAt reports whether a schedule is open at the given instant. A missing
// or empty schedule means the venue is never excluded, so it returns true.
// Overnight periods spill into the following day: an 18:00-02:00 window on
// Friday keeps the venue open until 02:00 Saturday.
func OpenAt(hours *models.OperatingHours, t time.Time) bool {
	if hours == nil || len(hours.Periods) == 0 {
		return true
	}

	tz := hours.Timezone
	if tz == "" {
		tz = defaultTimezone
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		loc = time.UTC
	}
	local := t.In(loc)

	weekday := local.Weekday()
	minutes := local.Hour()*60 + local.Minute()

	for _, p := range hours.Periods {
		open, close := parseHHMM(p.Open), parseHHMM(p.Close)
		if open < 0 || close < 0 {
			continue
		}
		// Equal open and close marks a full-day window.
		if open == close && time.Weekday(p.Weekday) == weekday {
			return true
		}
		if time.Weekday(p.Weekday) == weekday {
			if p.Overnight || close < open {
				if minutes >= open {
					return true
				}
			} else if minutes >= open && minutes < close {
				return true
			}
		}
		// The tail of yesterday's overnight window.
		if (p.Overnight || close < open) && time.Weekday(p.Weekday) == (weekday+6)%7 {
			if minutes < close {
				return true
			}
		}
	}
	return false
}

// OpenDuring reports whether a schedule overlaps the window
// [startMin, endMin) on the given weekday. Minutes count from midnight.
// Missing schedules always overlap.
func OpenDuring(hours *models.OperatingHours, weekday time.Weekday, startMin, endMin int) bool {
	if hours == nil || len(hours.Periods) == 0 {
		return true
	}

	for _, p := range hours.Periods {
		open, close := parseHHMM(p.Open), parseHHMM(p.Close)
		if open < 0 || close < 0 {
			continue
		}
		if open == close && time.Weekday(p.Weekday) == weekday {
			return true
		}
		overnight := p.Overnight || close < open
		if time.Weekday(p.Weekday) == weekday {
			if overnight {
				// Covers [open, midnight) on this weekday.
				if endMin > open {
					return true
				}
			} else if open < endMin && startMin < close {
				return true
			}
		}
		if overnight && time.Weekday(p.Weekday) == (weekday+6)%7 {
			// Covers [midnight, close) carried over from yesterday.
			if startMin < close {
				return true
			}
		}
	}
	return false
}
