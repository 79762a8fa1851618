// Package tz resolves the display time zone and formats instants for
// participant-facing text.
package tz

import (
	"fmt"
	"time"
	_ "time/tzdata"
)

// Layout is the layout used in notifications, e.g. "2026-03-01 14:00 CET".
const Layout = "2006-01-02 15:04 MST"

// Load resolves an IANA zone name. An empty name means UTC.
func Load(name string) (*time.Location, error) {
	if name == "" || name == "UTC" {
		return time.UTC, nil
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("tz: load %s: %w", name, err)
	}
	return loc, nil
}

// Format renders t in loc with Layout. The zero time renders as "".
func Format(t time.Time, loc *time.Location) string {
	if t.IsZero() {
		return ""
	}
	if loc == nil {
		loc = time.UTC
	}
	return t.In(loc).Format(Layout)
}
