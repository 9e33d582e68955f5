package markmon

import (
	"encoding/json"
	"strconv"
	"strings"
)

// Field coercion helpers for the loosely-typed payload maps produced by
// ingestion. Every helper reports failure instead of raising: a field that
// will not coerce is simply left unchanged by the caller.

func stringValue(v any) (string, bool) {
	switch t := v.(type) {
	case nil:
		return "", false
	case string:
		return t, true
	case bool:
		return strconv.FormatBool(t), true
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64), true
	case int:
		return strconv.Itoa(t), true
	case int64:
		return strconv.FormatInt(t, 10), true
	case json.Number:
		return t.String(), true
	}
	return "", false
}

func floatValue(v any) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, true
	case int:
		return float64(t), true
	case int64:
		return float64(t), true
	case json.Number:
		f, err := t.Float64()
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		return f, err == nil
	}
	return 0, false
}

// intValue truncates like the historical feeders did (int(float(x))).
func intValue(v any) (int, bool) {
	f, ok := floatValue(v)
	if !ok {
		return 0, false
	}
	return int(f), true
}

// firstString returns the first present key whose value coerces to a
// non-empty trimmed string.
func firstString(data map[string]any, keys ...string) (string, bool) {
	for _, key := range keys {
		v, present := data[key]
		if !present {
			continue
		}
		s, ok := stringValue(v)
		if !ok {
			continue
		}
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		return s, true
	}
	return "", false
}

func firstFloat(data map[string]any, keys ...string) (float64, bool) {
	for _, key := range keys {
		v, present := data[key]
		if !present {
			continue
		}
		if f, ok := floatValue(v); ok {
			return f, true
		}
	}
	return 0, false
}

func firstInt(data map[string]any, keys ...string) (int, bool) {
	f, ok := firstFloat(data, keys...)
	if !ok {
		return 0, false
	}
	return int(f), true
}

// packAbsent reports whether an instrument-pack value should be treated as
// missing. The feeders send "None", "" and "na" interchangeably for unset.
func packAbsent(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "none", "na":
		return true
	}
	return false
}

// packString extracts a single instrument-pack field, honouring the absent
// sentinels.
func packString(data map[string]any, key string) (string, bool) {
	v, present := data[key]
	if !present {
		return "", false
	}
	s, ok := stringValue(v)
	if !ok || packAbsent(s) {
		return "", false
	}
	return strings.TrimSpace(s), true
}

func packFloat(data map[string]any, key string) (float64, bool) {
	s, ok := packString(data, key)
	if !ok {
		return 0, false
	}
	f, err := strconv.ParseFloat(s, 64)
	return f, err == nil
}

func packInt(data map[string]any, key string) (int, bool) {
	f, ok := packFloat(data, key)
	if !ok {
		return 0, false
	}
	return int(f), true
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// numericString reports whether the trimmed string parses as a number. Used
// to route flat-dialect cycle values to the 0-120 lane instead of the string
// classification lane.
func numericString(s string) bool {
	_, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	return err == nil
}
