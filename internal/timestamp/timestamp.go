// Package timestamp converts user supplied time expressions to the provider's wire layout
// and provider epoch values back to calendar time.
package timestamp

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/araddon/dateparse"

	"kaiko/pkg/core"
)

// WireLayout is the ISO-8601 form accepted by the provider: UTC, millisecond precision.
const WireLayout = "2006-01-02T15:04:05.000Z"

// Keys are the parameter names holding time expressions.
var Keys = []string{"start_time", "end_time"}

var (
	errEmpty       = errors.New("empty time expression")
	errUnsupported = errors.New("unsupported time value type")
)

var relativeExpr = regexp.MustCompile(`^(\d+)\s*([a-z]+?)s?\s+ago$`)

var units = map[string]time.Duration{
	"second": time.Second,
	"sec":    time.Second,
	"s":      time.Second,
	"minute": time.Minute,
	"min":    time.Minute,
	"m":      time.Minute,
	"hour":   time.Hour,
	"h":      time.Hour,
	"day":    24 * time.Hour,
	"d":      24 * time.Hour,
	"week":   7 * 24 * time.Hour,
	"w":      7 * 24 * time.Hour,
}

// Parse interprets v as an instant. Relative expressions resolve against now.
func Parse(v any, now time.Time) (time.Time, error) {
	switch val := v.(type) {
	case time.Time:
		return val.UTC(), nil
	case *time.Time:
		if val == nil {
			return time.Time{}, errEmpty
		}
		return val.UTC(), nil
	case int:
		return time.UnixMilli(int64(val)).UTC(), nil
	case int64:
		return time.UnixMilli(val).UTC(), nil
	case float64:
		return fromFloat(val)
	case json.Number:
		return FromEpochMillis(val)
	case string:
		return parseString(val, now)
	default:
		return time.Time{}, fmt.Errorf("%w: %T", errUnsupported, v)
	}
}

func parseString(s string, now time.Time) (time.Time, error) {
	expr := strings.ToLower(strings.TrimSpace(s))
	if expr == "" {
		return time.Time{}, errEmpty
	}

	now = now.UTC()
	switch expr {
	case "now":
		return now, nil
	case "today":
		return truncateDay(now), nil
	case "yesterday":
		return truncateDay(now).AddDate(0, 0, -1), nil
	}

	if m := relativeExpr.FindStringSubmatch(expr); m != nil {
		n, err := strconv.Atoi(m[1])
		if err != nil {
			return time.Time{}, err
		}
		unit, ok := units[m[2]]
		if !ok {
			return time.Time{}, fmt.Errorf("unknown time unit %q", m[2])
		}
		return now.Add(-time.Duration(n) * unit), nil
	}

	if t, err := time.Parse(time.RFC3339Nano, strings.TrimSpace(s)); err == nil {
		return t.UTC(), nil
	}

	t, err := dateparse.ParseIn(strings.TrimSpace(s), time.UTC)
	if err != nil {
		return time.Time{}, err
	}
	return t.UTC(), nil
}

func truncateDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func fromFloat(ms float64) (time.Time, error) {
	if math.IsNaN(ms) || math.IsInf(ms, 0) {
		return time.Time{}, fmt.Errorf("invalid epoch value %v", ms)
	}
	whole := math.Floor(ms)
	nanos := math.Round((ms - whole) * 1e6)
	return time.UnixMilli(int64(whole)).Add(time.Duration(nanos)).UTC(), nil
}

// Format renders t in WireLayout.
func Format(t time.Time) string {
	return t.UTC().Format(WireLayout)
}

// ToWire parses v and renders it in WireLayout.
func ToWire(v any, now time.Time) (string, error) {
	t, err := Parse(v, now)
	if err != nil {
		return "", err
	}
	return Format(t), nil
}

// NormalizeParams returns a copy of p with start_time and end_time rewritten to
// WireLayout. Other keys are left untouched. nil values are kept as-is.
func NormalizeParams(p core.Params, now time.Time) (core.Params, error) {
	out := p.Clone()
	for _, key := range Keys {
		v, ok := out[key]
		if !ok || v == nil {
			continue
		}
		wire, err := ToWire(v, now)
		if err != nil {
			return nil, &core.InvalidParameterError{Name: key, Value: v, Err: err}
		}
		out[key] = wire
	}
	return out, nil
}

// FromEpochMillis converts a provider epoch-millisecond value to UTC time.
func FromEpochMillis(v any) (time.Time, error) {
	switch val := v.(type) {
	case float64:
		return fromFloat(val)
	case int:
		return time.UnixMilli(int64(val)).UTC(), nil
	case int64:
		return time.UnixMilli(val).UTC(), nil
	case json.Number:
		if n, err := val.Int64(); err == nil {
			return time.UnixMilli(n).UTC(), nil
		}
		f, err := val.Float64()
		if err != nil {
			return time.Time{}, err
		}
		return fromFloat(f)
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(val), 64)
		if err != nil {
			return time.Time{}, fmt.Errorf("invalid epoch value %q: %w", val, err)
		}
		return fromFloat(f)
	case nil:
		return time.Time{}, errEmpty
	default:
		return time.Time{}, fmt.Errorf("%w: %T", errUnsupported, v)
	}
}
