package index

import (
	"encoding/json"
	"math"
	"strconv"
	"time"
)

var timestampLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// NormalizeTimestamp coerces a lastIndexTime value to epoch
// milliseconds. It accepts a time.Time, a finite number, or a
// parseable date string; anything else, including NaN and infinities,
// becomes nil.
func NormalizeTimestamp(v any) *int64 {
	switch t := v.(type) {
	case nil:
		return nil
	case time.Time:
		ms := t.UnixMilli()
		return &ms
	case *time.Time:
		if t == nil {
			return nil
		}
		ms := t.UnixMilli()
		return &ms
	case int64:
		return &t
	case int:
		ms := int64(t)
		return &ms
	case float64:
		if math.IsNaN(t) || math.IsInf(t, 0) {
			return nil
		}
		ms := int64(t)
		return &ms
	case json.Number:
		if f, err := t.Float64(); err == nil {
			return NormalizeTimestamp(f)
		}
		return nil
	case string:
		if ms, err := strconv.ParseInt(t, 10, 64); err == nil {
			return &ms
		}
		for _, layout := range timestampLayouts {
			if parsed, err := time.ParseInLocation(layout, t, time.Local); err == nil {
				ms := parsed.UnixMilli()
				return &ms
			}
		}
		return nil
	default:
		return nil
	}
}
