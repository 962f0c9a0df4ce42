package airtable

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"

	"github.com/example/tablesched/internal/domain/timeline"
)

// Field names used by the reservations table.
const (
	fieldName   = "name"
	fieldDate   = "date"
	fieldTime   = "time_text"
	fieldStart  = "time"
	fieldGuests = "guests"
	fieldPhone  = "phone"
	fieldStatus = "status"

	fieldWeekday = "weekday"
	fieldOpen    = "open"
	fieldClose   = "close"
	fieldClosed  = "closed"
	fieldReason  = "reason"
)

func text(f map[string]any, key string) string {
	switch v := f[key].(type) {
	case string:
		return strings.TrimSpace(v)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case []any:
		// lookup and multi-select fields arrive as arrays
		if len(v) > 0 {
			return text(map[string]any{key: v[0]}, key)
		}
	}
	return ""
}

func integer(f map[string]any, key string) (int, bool) {
	switch v := f[key].(type) {
	case float64:
		return int(math.Round(v)), true
	case json.Number:
		n, err := v.Float64()
		return int(math.Round(n)), err == nil
	case string:
		n, err := strconv.Atoi(strings.TrimSpace(v))
		return n, err == nil
	}
	return 0, false
}

func boolean(f map[string]any, key string) bool {
	switch v := f[key].(type) {
	case bool:
		return v
	case string:
		b, _ := strconv.ParseBool(strings.TrimSpace(v))
		return b
	}
	return false
}

// minutes decodes a time-of-day cell. Text cells may hold spoken forms such as
// "19 Uhr"; duration cells hold seconds.
func minutes(f map[string]any, key string) (int, bool) {
	v, present := f[key]
	if !present {
		return 0, false
	}
	if s, ok := v.(string); ok {
		if m, err := timeline.ParseClock(s); err == nil {
			return m, true
		}
	}
	return timeline.ParseMinutes(v)
}
