package timer

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// FormatTime converts a number of seconds into mm:ss, or hh:mm:ss when the
// value reaches an hour.
func FormatTime(sec int) string {
	if sec < 0 {
		sec = 0
	}
	h, m, s := sec/3600, (sec%3600)/60, sec%60
	if h > 0 {
		return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%02d:%02d", m, s)
}

// ParseClock accepts "hh:mm:ss", "mm:ss" or a plain number of seconds.
// Minute and second components of the colon forms must be below 60.
func ParseClock(input string) (int, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return 0, &ValidationError{Field: "duration", Reason: "duration is required"}
	}
	if !strings.Contains(input, ":") {
		val, err := strconv.Atoi(input)
		if err != nil {
			return 0, &ValidationError{Field: "duration", Reason: "please enter a valid number"}
		}
		if val <= 0 {
			return 0, &ValidationError{Field: "duration", Reason: "duration must be greater than 0"}
		}
		if val > MaxTotalSeconds {
			return 0, errTooLong
		}
		return val, nil
	}

	parts := strings.Split(input, ":")
	if len(parts) > 3 {
		return 0, &ValidationError{Field: "duration", Reason: "invalid time format"}
	}
	for len(parts) < 3 {
		parts = append([]string{"0"}, parts...)
	}
	return ParseHMS(parts[0], parts[1], parts[2])
}

// ParseHMS parses separate hour, minute and second fields. Empty fields
// count as zero.
func ParseHMS(hours, minutes, seconds string) (int, error) {
	var vals [3]int
	for i, s := range []string{hours, minutes, seconds} {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		v, err := strconv.Atoi(s)
		if err != nil {
			return 0, &ValidationError{Field: "duration", Reason: "please enter valid numbers for hours, minutes, and seconds"}
		}
		if v < 0 {
			return 0, &ValidationError{Field: "duration", Reason: "negative values not allowed"}
		}
		vals[i] = v
	}
	if vals[1] >= 60 || vals[2] >= 60 {
		return 0, &ValidationError{Field: "duration", Reason: "minutes and seconds must be less than 60"}
	}
	if vals[0] > MaxTotalSeconds/3600 {
		return 0, errTooLong
	}
	total := vals[0]*3600 + vals[1]*60 + vals[2]
	if total <= 0 {
		return 0, &ValidationError{Field: "duration", Reason: "duration must be greater than 0"}
	}
	return total, nil
}

// Clock supplies wall-clock time to the engine.
type Clock interface {
	Now() time.Time
}

// SystemClock is the real clock.
type SystemClock struct{}

// Now returns the wall-clock time without a monotonic reading, so
// differences keep counting across system suspend.
func (SystemClock) Now() time.Time { return time.Now().Round(0) }
