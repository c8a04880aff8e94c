package render

import (
	"math"
	"time"

	"github.com/dustin/go-humanize"

	"agentplan/internal/planner"
)

const (
	day   = 24 * time.Hour
	week  = 7 * day
	month = 30 * day
	year  = 365 * day
)

var ageMagnitudes = []humanize.RelTimeMagnitude{
	{D: time.Minute, Format: "just now", DivBy: 1},
	{D: 2 * time.Minute, Format: "1 minute %s", DivBy: 1},
	{D: time.Hour, Format: "%d minutes %s", DivBy: time.Minute},
	{D: 2 * time.Hour, Format: "1 hour %s", DivBy: 1},
	{D: day, Format: "%d hours %s", DivBy: time.Hour},
	{D: 2 * day, Format: "1 day %s", DivBy: 1},
	{D: week, Format: "%d days %s", DivBy: day},
	{D: 2 * week, Format: "1 week %s", DivBy: 1},
	{D: 5 * week, Format: "%d weeks %s", DivBy: week},
	{D: 2 * month, Format: "1 month %s", DivBy: 1},
	{D: 12 * month, Format: "%d months %s", DivBy: month},
	{D: 2 * year, Format: "1 year %s", DivBy: 1},
	{D: math.MaxInt64, Format: "%d years %s", DivBy: year},
}

// Age describes how long ago iso was relative to now, e.g. "5 minutes ago".
// Timestamps in the future read as "just now"; unparseable ones as "unknown".
func Age(iso string, now time.Time) string {
	then, err := planner.ParseTimestamp(iso)
	if err != nil {
		return "unknown"
	}
	if then.After(now) {
		return "just now"
	}
	return humanize.CustomRelTime(then, now, "ago", "from now", ageMagnitudes)
}
