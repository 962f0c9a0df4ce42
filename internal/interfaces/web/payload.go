package web

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// webhookRequest is the canonical form of every inbound payload shape.
type webhookRequest struct {
	Date           string
	Time           string
	Guests         int
	Name           string
	Phone          string
	ReservationID  string
	CallID         string
	IdempotencyKey string
}

var (
	argumentPaths = [][]string{
		{"message", "toolCalls", "0", "function", "arguments"},
		{"toolCalls", "0", "function", "arguments"},
	}
	callerPaths = [][]string{
		{"message", "call", "customer", "number"},
		{"call", "customer", "number"},
		{"customer", "number"},
	}
	callIDPaths = [][]string{
		{"message", "call", "id"},
		{"call", "id"},
	}

	guestKeys = []string{"guests", "partySize", "party_size", "persons", "people"}
	timeKeys  = []string{"time", "time_text", "startTime"}
	idKeys    = []string{"reservationId", "reservation_id", "id"}
)

// parseWebhook unwraps the tool-call envelope used by voice assistants. Tool
// arguments win over top-level fields; caller metadata wins over a spoken
// phone number.
func parseWebhook(body map[string]any, idempotencyHeader string) webhookRequest {
	args := arguments(body)
	get := func(keys ...string) any {
		for _, src := range []map[string]any{args, body} {
			for _, k := range keys {
				if v, ok := src[k]; ok && v != nil && v != "" {
					return v
				}
			}
		}
		return nil
	}

	req := webhookRequest{
		Date:          str(get("date")),
		Time:          str(get(timeKeys...)),
		Guests:        count(get(guestKeys...)),
		Name:          str(get("name")),
		ReservationID: str(get(idKeys...)),
		CallID:        str(first(body, callIDPaths)),
	}

	req.Phone = validPhone(str(first(body, callerPaths)))
	if req.Phone == "" {
		req.Phone = validPhone(str(get("phone")))
	}

	req.IdempotencyKey = strings.TrimSpace(idempotencyHeader)
	if req.IdempotencyKey == "" {
		req.IdempotencyKey = str(get("idempotencyKey"))
	}
	return req
}

// dedupKey identifies retries of one create. A call id alone is not enough
// since a caller may book twice in one call.
func (r webhookRequest) dedupKey() string {
	if r.IdempotencyKey != "" {
		return "key:" + r.IdempotencyKey
	}
	if r.CallID != "" {
		return fmt.Sprintf("call:%s:%s:%s:%d", r.CallID, r.Date, r.Time, r.Guests)
	}
	return ""
}

func arguments(body map[string]any) map[string]any {
	for _, p := range argumentPaths {
		switch v := dig(body, p).(type) {
		case map[string]any:
			return v
		case string:
			var m map[string]any
			if json.Unmarshal([]byte(v), &m) == nil {
				return m
			}
		}
	}
	return nil
}

func first(body map[string]any, paths [][]string) any {
	for _, p := range paths {
		if v := dig(body, p); v != nil && v != "" {
			return v
		}
	}
	return nil
}

func dig(v any, path []string) any {
	for _, p := range path {
		switch node := v.(type) {
		case map[string]any:
			v = node[p]
		case []any:
			i, err := strconv.Atoi(p)
			if err != nil || i < 0 || i >= len(node) {
				return nil
			}
			v = node[i]
		default:
			return nil
		}
	}
	return v
}

func str(v any) string {
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case json.Number:
		return t.String()
	}
	return ""
}

// count reads a party size; anything unreadable becomes 0 and is rejected later.
func count(v any) int {
	switch t := v.(type) {
	case float64:
		if t != math.Trunc(t) {
			return 0
		}
		return int(t)
	case string:
		n, err := strconv.Atoi(strings.TrimSpace(t))
		if err != nil {
			return 0
		}
		return n
	}
	return 0
}

// validPhone drops template placeholders such as "{{customer.number}}" and
// fragments too short to be a number.
func validPhone(p string) string {
	if len(p) < 6 || strings.Contains(p, "{") {
		return ""
	}
	return p
}
