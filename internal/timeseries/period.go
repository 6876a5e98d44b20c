package timeseries

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// ConfigError reports an invalid rollup or fetch configuration. It is
// always detectable before any I/O happens.
type ConfigError struct {
	Msg string
}

func (e *ConfigError) Error() string { return "invalid configuration: " + e.Msg }

func configErrorf(format string, args ...any) *ConfigError {
	return &ConfigError{Msg: fmt.Sprintf(format, args...)}
}

// Period is a fixed-duration bucket width. Calendar-sized widths such as
// months never construct a Period; ParsePeriod rejects them up front.
type Period struct {
	d time.Duration
}

// Duration returns the bucket width.
func (p Period) Duration() time.Duration { return p.d }

func (p Period) String() string { return p.d.String() }

// IsZero reports whether the period was never set.
func (p Period) IsZero() bool { return p.d == 0 }

var periodRe = regexp.MustCompile(`^(\d*)\s*([A-Za-z]+)$`)

// fixedUnits are the supported fixed-duration period units, spelled the
// way offset strings commonly spell them.
var fixedUnits = map[string]time.Duration{
	"s":   time.Second,
	"sec": time.Second,
	"min": time.Minute,
	"t":   time.Minute,
	"h":   time.Hour,
	"d":   24 * time.Hour,
	"w":   7 * 24 * time.Hour,
}

// calendarUnits are recognized but unsupported: their width varies by
// calendar position, so no fixed bucket grid exists for them.
var calendarUnits = map[string]bool{
	"m": true, "mo": true, "ms": true, "q": true, "y": true, "a": true,
}

// ParsePeriod parses an offset string like "15min", "h" or "2d" into a
// fixed-width Period. An omitted count means 1. Calendar units (months,
// quarters, years) return a ConfigError for every policy.
func ParsePeriod(s string) (Period, error) {
	m := periodRe.FindStringSubmatch(s)
	if m == nil {
		return Period{}, configErrorf("unrecognized period %q", s)
	}

	count := 1
	if m[1] != "" {
		var err error
		if count, err = strconv.Atoi(m[1]); err != nil || count < 1 {
			return Period{}, configErrorf("invalid period count in %q", s)
		}
	}

	unit := m[2]
	key := strings.ToLower(unit)
	if calendarUnits[key] {
		return Period{}, configErrorf("calendar period %q is not supported; use a fixed-width period such as min, h, d or w", s)
	}
	d, ok := fixedUnits[key]
	if !ok {
		return Period{}, configErrorf("unrecognized period unit %q", unit)
	}
	return Period{d: time.Duration(count) * d}, nil
}
