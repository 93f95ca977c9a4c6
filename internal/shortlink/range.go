package shortlink

import (
	"fmt"
	"strings"
)

// Range selects the time window usage counters are scoped to.
// The string value is what the backend expects in its range query.
type Range string

const (
	RangeToday     Range = "today"
	RangeLast7Days Range = "7d"
	RangeAllTime   Range = "total"
)

// ParseRange accepts both the wire values and their long names.
// An empty string selects today.
func ParseRange(s string) (Range, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "today":
		return RangeToday, nil
	case "7d", "last-7-days":
		return RangeLast7Days, nil
	case "total", "all", "all-time":
		return RangeAllTime, nil
	default:
		return "", fmt.Errorf("unknown range %q", s)
	}
}

// Label is the column heading shown for the range.
func (r Range) Label() string {
	switch r {
	case RangeToday:
		return "Today"
	case RangeLast7Days:
		return "Last 7d"
	default:
		return "All time"
	}
}
