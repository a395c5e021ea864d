package domain

import (
	"encoding/json"
	"strconv"
)

// Text renders a decoded JSON value as a string. It reports false for
// null, which callers treat like a missing field.
func Text(v any) (string, bool) {
	switch t := v.(type) {
	case nil:
		return "", false
	case string:
		return t, true
	case json.Number:
		return t.String(), true
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64), true
	case bool:
		return strconv.FormatBool(t), true
	default:
		b, err := json.Marshal(t)
		if err != nil {
			return "", false
		}
		return string(b), true
	}
}

// TextOr returns Text(v) or fallback
func TextOr(v any, fallback string) string {
	if s, ok := Text(v); ok {
		return s
	}
	return fallback
}
