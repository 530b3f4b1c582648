package models

import (
	"strings"
	"time"
)

// Layouts carrying an explicit zone.
var zonedLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02T15:04:05.999999999-0700",
	"2006-01-02T15:04Z07:00",
}

// Layouts without zone information; parsed as UTC.
var naiveLayouts = []string{
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04",
	"2006-01-02 15:04",
	"2006-01-02",
}

// ParseTimestamp parses an ISO-8601 device timestamp into a UTC instant.
// Naive timestamps are taken as UTC. Empty or unparsable input yields fallback.
func ParseTimestamp(raw string, fallback time.Time) time.Time {
	s := strings.TrimSpace(raw)
	if s == "" {
		return fallback.UTC()
	}
	for _, layout := range zonedLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC()
		}
	}
	for _, layout := range naiveLayouts {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return t
		}
	}
	return fallback.UTC()
}
