package timeline

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// ErrInvalidTime is returned when a requested wall-clock time cannot be parsed.
var ErrInvalidTime = errors.New("invalid time format")

const MinutesPerDay = 24 * 60

// ToMinutes decodes a stored time value into minutes since midnight. It
// accepts "HH:MM" strings and numeric seconds since midnight (duration columns).
// Malformed or missing values decode to 0; use ParseMinutes when the caller
// has to tell midnight apart from unknown.
func ToMinutes(v any) int {
	m, _ := ParseMinutes(v)
	return m
}

// ParseMinutes is ToMinutes with an ok flag that is false for absent or
// malformed values.
func ParseMinutes(v any) (int, bool) {
	switch t := v.(type) {
	case nil:
		return 0, false
	case string:
		m, err := parseWallClock(t)
		if err != nil {
			return 0, false
		}
		return m, true
	case float64:
		return secondsToMinutes(t)
	case float32:
		return secondsToMinutes(float64(t))
	case int:
		return secondsToMinutes(float64(t))
	case int32:
		return secondsToMinutes(float64(t))
	case int64:
		return secondsToMinutes(float64(t))
	case json.Number:
		f, err := t.Float64()
		if err != nil {
			return 0, false
		}
		return secondsToMinutes(f)
	default:
		return 0, false
	}
}

func secondsToMinutes(sec float64) (int, bool) {
	if sec < 0 || math.IsNaN(sec) || math.IsInf(sec, 0) {
		return 0, false
	}
	return int(math.Floor(sec / 60)), true
}

// ToWallClock formats minutes since midnight as zero-padded "HH:MM".
// Values outside one day wrap around midnight.
func ToWallClock(minutes int) string {
	m := ((minutes % MinutesPerDay) + MinutesPerDay) % MinutesPerDay
	return fmt.Sprintf("%02d:%02d", m/60, m%60)
}

// ParseClock parses a caller-supplied time expression. Besides "HH:MM" it
// accepts "HH:MM:SS", "HH.MM", a bare hour, an "uhr" suffix ("19 uhr",
// "19 uhr 30") and am/pm markers.
func ParseClock(raw string) (int, error) {
	s := strings.ToLower(strings.Join(strings.Fields(raw), " "))
	if s == "" {
		return 0, fmt.Errorf("%w: empty", ErrInvalidTime)
	}

	meridiem := ""
	for _, suffix := range []string{"a.m.", "p.m.", "am", "pm"} {
		if strings.HasSuffix(s, suffix) {
			meridiem = suffix[:1]
			s = strings.TrimSpace(strings.TrimSuffix(s, suffix))
			break
		}
	}
	s = strings.Join(strings.Fields(strings.Replace(s, "uhr", " uhr", 1)), " ")
	if i := strings.Index(s, " uhr"); i >= 0 {
		rest := strings.TrimSpace(s[i+len(" uhr"):])
		s = s[:i]
		if rest != "" {
			s += ":" + rest
		}
	}
	s = strings.ReplaceAll(s, ".", ":")
	if !strings.Contains(s, ":") {
		s += ":00"
	}

	m, err := parseWallClock(s)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidTime, raw)
	}
	if meridiem != "" {
		h := m / 60
		if h < 1 || h > 12 {
			return 0, fmt.Errorf("%w: %q", ErrInvalidTime, raw)
		}
		h %= 12
		if meridiem == "p" {
			h += 12
		}
		m = h*60 + m%60
	}
	return m, nil
}

func parseWallClock(s string) (int, error) {
	parts := strings.Split(strings.TrimSpace(s), ":")
	if len(parts) < 2 || len(parts) > 3 {
		return 0, ErrInvalidTime
	}
	h, err := strconv.Atoi(parts[0])
	if err != nil || h < 0 || h > 23 {
		return 0, ErrInvalidTime
	}
	if len(parts[1]) != 2 {
		return 0, ErrInvalidTime
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil || m < 0 || m > 59 {
		return 0, ErrInvalidTime
	}
	if len(parts) == 3 {
		sec, err := strconv.Atoi(parts[2])
		if err != nil || sec < 0 || sec > 59 {
			return 0, ErrInvalidTime
		}
	}
	return h*60 + m, nil
}
