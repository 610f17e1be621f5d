package governance

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
	"time"
)

// Record is a loosely typed row as returned by a data source.
type Record map[string]any

// String returns the first non-empty string value among keys.
// Numbers are formatted without trailing zeros so SERIAL ids become "42".
func (r Record) String(keys ...string) (string, bool) {
	for _, k := range keys {
		if s, ok := toString(r[k]); ok && s != "" {
			return s, true
		}
	}
	return "", false
}

// Float returns the first finite numeric value among keys.
func (r Record) Float(keys ...string) (float64, bool) {
	for _, k := range keys {
		if f, ok := toFloat(r[k]); ok {
			return f, true
		}
	}
	return 0, false
}

// Strings returns the first list value among keys.
func (r Record) Strings(keys ...string) ([]string, bool) {
	for _, k := range keys {
		if ss, ok := toStrings(r[k]); ok {
			return ss, true
		}
	}
	return nil, false
}

// Time returns the first parseable timestamp among keys.
func (r Record) Time(keys ...string) (time.Time, bool) {
	for _, k := range keys {
		if t, ok := toTime(r[k]); ok {
			return t, true
		}
	}
	return time.Time{}, false
}

// Object returns the first nested object among keys. JSON text is decoded.
func (r Record) Object(keys ...string) (Record, bool) {
	for _, k := range keys {
		if m, ok := toObject(r[k]); ok {
			return m, true
		}
	}
	return nil, false
}

// Flatten returns a copy of r with the fields of the nested object at key
// merged underneath. Top-level fields win.
func (r Record) Flatten(key string) Record {
	nested, ok := r.Object(key)
	if !ok {
		return r
	}
	out := make(Record, len(r)+len(nested))
	for k, v := range nested {
		out[k] = v
	}
	for k, v := range r {
		if v == nil {
			if _, present := out[k]; present {
				continue
			}
		}
		out[k] = v
	}
	return out
}

func toString(v any) (string, bool) {
	switch x := v.(type) {
	case nil:
		return "", false
	case string:
		return x, true
	case []byte:
		return string(x), true
	case int:
		return strconv.Itoa(x), true
	case int32:
		return strconv.FormatInt(int64(x), 10), true
	case int64:
		return strconv.FormatInt(x, 10), true
	case float32:
		return strconv.FormatFloat(float64(x), 'f', -1, 32), true
	case float64:
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return "", false
		}
		return strconv.FormatFloat(x, 'f', -1, 64), true
	case json.Number:
		return x.String(), true
	case bool:
		return strconv.FormatBool(x), true
	case time.Time:
		return x.Format(time.RFC3339), true
	}
	return "", false
}

func toFloat(v any) (float64, bool) {
	var f float64
	switch x := v.(type) {
	case nil:
		return 0, false
	case float64:
		f = x
	case float32:
		f = float64(x)
	case int:
		f = float64(x)
	case int32:
		f = float64(x)
	case int64:
		f = float64(x)
	case json.Number:
		n, err := x.Float64()
		if err != nil {
			return 0, false
		}
		f = n
	case string:
		n, err := strconv.ParseFloat(strings.TrimSpace(x), 64)
		if err != nil {
			return 0, false
		}
		f = n
	case []byte:
		return toFloat(string(x))
	default:
		return 0, false
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

func toStrings(v any) ([]string, bool) {
	switch x := v.(type) {
	case []string:
		return append([]string(nil), x...), true
	case []any:
		out := make([]string, 0, len(x))
		for _, item := range x {
			if s, ok := toString(item); ok && s != "" {
				out = append(out, s)
			}
		}
		return out, true
	case []byte:
		return toStrings(string(x))
	case string:
		s := strings.TrimSpace(x)
		switch {
		case strings.HasPrefix(s, "["):
			var items []any
			if err := json.Unmarshal([]byte(s), &items); err != nil {
				return nil, false
			}
			return toStrings(items)
		case strings.HasPrefix(s, "{") && strings.HasSuffix(s, "}"):
			return parseArrayLiteral(s), true
		}
	}
	return nil, false
}

// parseArrayLiteral parses a one-dimensional Postgres array literal
// such as {a,"b c",NULL}.
func parseArrayLiteral(s string) []string {
	body := strings.TrimSuffix(strings.TrimPrefix(s, "{"), "}")
	if strings.TrimSpace(body) == "" {
		return []string{}
	}
	parts := strings.Split(body, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "NULL" {
			continue
		}
		p = strings.Trim(p, `"`)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04:05.999999999",
	"2006-01-02",
}

func toTime(v any) (time.Time, bool) {
	switch x := v.(type) {
	case time.Time:
		return x, !x.IsZero()
	case []byte:
		return toTime(string(x))
	case string:
		s := strings.TrimSpace(x)
		for _, layout := range timeLayouts {
			if t, err := time.Parse(layout, s); err == nil {
				return t, true
			}
		}
	case int64:
		return time.Unix(x, 0).UTC(), true
	case float64:
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return time.Time{}, false
		}
		return time.Unix(int64(x), 0).UTC(), true
	}
	return time.Time{}, false
}

func toObject(v any) (Record, bool) {
	switch x := v.(type) {
	case Record:
		return x, true
	case map[string]any:
		return Record(x), true
	case []byte:
		return toObject(string(x))
	case string:
		s := strings.TrimSpace(x)
		if !strings.HasPrefix(s, "{") {
			return nil, false
		}
		var m map[string]any
		if err := json.Unmarshal([]byte(s), &m); err != nil {
			return nil, false
		}
		return Record(m), true
	}
	return nil, false
}

func clamp(v, lo, hi float64) float64 {
	if math.IsNaN(v) {
		return lo
	}
	return math.Max(lo, math.Min(hi, v))
}
