package core

import (
	"fmt"
	"strings"
	"time"
)

// Timestamp layouts in match order. Layouts carrying an offset come first so
// an offset is never silently discarded; naive layouts are read as UTC.
// Fractional seconds are accepted after any seconds field.
var (
	offsetLayouts = []string{
		"2006-01-02T15:04:05Z07:00",
		"2006-01-02 15:04:05Z07:00",
		"2006-01-02T15:04:05-0700",
		"2006-01-02 15:04:05-0700",
		"2006-01-02 15:04:05 -0700",
		"2006-01-02T15:04Z07:00",
		time.RFC1123Z,
	}
	// zone abbreviations are resolved through zoneOffsets, never the host zone
	zoneLayouts = []string{
		time.RFC1123,
		"Mon, 2 Jan 2006 15:04:05 MST",
		"2006-01-02T15:04:05 MST",
		"2006-01-02 15:04:05 MST",
		"2006-01-02 15:04 MST",
	}
	naiveLayouts = []string{
		"2006-01-02T15:04:05",
		"2006-01-02 15:04:05",
		"2006-01-02T15:04",
		"2006-01-02 15:04",
		"2006-01-02",
		"2006-1-2T15:04:05",
		"2006-1-2 15:04:05",
		"2006-1-2T15:04",
		"2006-1-2 15:04",
		"2006-1-2",
		"2006/01/02 15:04:05",
		"2006/01/02 15:04",
		"2006/01/02",
		"1/2/2006 15:04:05",
		"1/2/2006 15:04",
		"1/2/2006 3:04:05 PM",
		"1/2/2006 3:04 PM",
		"1/2/2006",
		"02-Jan-06 03:04 PM",
		"02-Jan-2006 03:04 PM",
		"Jan 2, 2006 3:04 PM",
		"Jan 2, 2006 15:04:05",
		"Jan 2, 2006",
		"2 Jan 2006 15:04",
		"2 Jan 2006",
	}
)

// ParseTimestamp parses a chat export timestamp into a UTC instant.
// The same input always yields the same instant; the local time zone of
// the host is never consulted.
func ParseTimestamp(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, fmt.Errorf("%w: empty value", ErrTimestampParse)
	}

	for _, layout := range offsetLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	for _, layout := range zoneLayouts {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return resolveZone(t).UTC(), nil
		}
	}
	for _, layout := range naiveLayouts {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return t, nil
		}
	}

	return time.Time{}, fmt.Errorf("%w: %q", ErrTimestampParse, s)
}

// zoneOffsets maps the abbreviations common in chat exports to their UTC
// offset in seconds. Unknown abbreviations are read as UTC.
var zoneOffsets = map[string]int{
	"UTC": 0, "GMT": 0, "Z": 0,
	"EST": -5 * 3600, "EDT": -4 * 3600,
	"CST": -6 * 3600, "CDT": -5 * 3600,
	"MST": -7 * 3600, "MDT": -6 * 3600,
	"PST": -8 * 3600, "PDT": -7 * 3600,
	"BST": 1 * 3600, "CET": 1 * 3600, "CEST": 2 * 3600,
}

// resolveZone reinterprets the wall clock of t in the zone its abbreviation
// names. Parsing in UTC leaves unknown abbreviations at offset zero.
func resolveZone(t time.Time) time.Time {
	abbr, _ := t.Zone()
	off, ok := zoneOffsets[strings.ToUpper(abbr)]
	if !ok {
		return t
	}
	return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), t.Nanosecond(),
		time.FixedZone(abbr, off))
}
