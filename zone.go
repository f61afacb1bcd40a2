package rxmysql

import (
	"fmt"
	"strings"
	"time"
)

// Zone is the minimal shape the temporal codecs need from either a
// named tz-database zone or a fixed UTC offset; component B's public
// surface.
type Zone interface {
	// Location returns the *time.Location to interpret/format a naive
	// local value against.
	Location() *time.Location
	// FixedOffset reports the offset in seconds east of UTC and true
	// if this zone is a fixed offset (not a named, DST-aware zone).
	FixedOffset() (seconds int, ok bool)
}

type namedZone struct{ loc *time.Location }

func (z namedZone) Location() *time.Location         { return z.loc }
func (z namedZone) FixedOffset() (int, bool)         { return 0, false }

type fixedOffsetZone struct {
	loc     *time.Location
	seconds int
}

func (z fixedOffsetZone) Location() *time.Location { return z.loc }
func (z fixedOffsetZone) FixedOffset() (int, bool)  { return z.seconds, true }

// NamedZone wraps a tz-database *time.Location.
func NamedZone(loc *time.Location) Zone { return namedZone{loc: loc} }

// FixedOffsetZone builds a Zone for a fixed UTC offset given in
// seconds east of UTC.
func FixedOffsetZone(seconds int) Zone {
	return fixedOffsetZone{
		loc:     time.FixedZone(offsetName(seconds), seconds),
		seconds: seconds,
	}
}

func offsetName(seconds int) string {
	sign := "+"
	if seconds < 0 {
		sign = "-"
		seconds = -seconds
	}
	h, m := seconds/3600, (seconds%3600)/60
	return fmt.Sprintf("%s%02d:%02d", sign, h, m)
}

// ServerZone is the resolved zone of the MySQL/MariaDB server, derived
// at init time from @@time_zone / @@system_time_zone (component B,
// spec.md §4.2). It is threaded through every temporal codec call via
// CodecContext.
type ServerZone struct {
	ID   string // resolved zone id, e.g. "UTC", "+08:00", "America/Godthab"
	Zone Zone
}

// specialZoneNames maps MySQL zone name quirks the init discovery step
// must normalize before calling time.LoadLocation (spec.md §4.2,
// §8 scenario 4).
var specialZoneNames = map[string]string{
	"Factory":      "UTC",
	"America/Nuuk": "America/Godthab",
}

// fixedOffsetZoneNames maps server zone names that are not present in
// the tz database but denote a fixed offset.
var fixedOffsetZoneNames = map[string]int{
	"ROC": 8 * 3600,
}

// ResolveServerZone implements the init handshake's zone-resolution
// step: strip "posix/"/"right/" prefixes, apply the special-name
// table, and fall back to the process default zone with a warning if
// nothing parses. timeZone is @@time_zone, systemTimeZone is
// @@system_time_zone.
func ResolveServerZone(timeZone, systemTimeZone string, logger logPrinter) *ServerZone {
	name := timeZone
	if name == "" || strings.EqualFold(name, "SYSTEM") {
		name = systemTimeZone
	}
	name = strings.TrimPrefix(name, "posix/")
	name = strings.TrimPrefix(name, "right/")

	if canonical, ok := specialZoneNames[name]; ok {
		name = canonical
	}

	if seconds, ok := fixedOffsetZoneNames[name]; ok {
		return &ServerZone{ID: offsetName(seconds), Zone: FixedOffsetZone(seconds)}
	}

	if off, ok := parseFixedOffsetName(name); ok {
		return &ServerZone{ID: offsetName(off), Zone: FixedOffsetZone(off)}
	}

	loc, err := time.LoadLocation(name)
	if err != nil {
		logger.Print(fmt.Sprintf("rxmysql: unresolvable server zone %q, falling back to process default: %v", name, err))
		return &ServerZone{ID: time.Local.String(), Zone: NamedZone(time.Local)}
	}
	return &ServerZone{ID: name, Zone: NamedZone(loc)}
}

// logPrinter is the minimal logging capability zone resolution needs;
// satisfied directly by rxlog.Logger, which has the same Print method.
type logPrinter interface {
	Print(v ...interface{})
}

// parseFixedOffsetName recognizes "+HH:MM"/"-HH:MM" zone identifiers.
func parseFixedOffsetName(name string) (seconds int, ok bool) {
	if len(name) != 6 || (name[0] != '+' && name[0] != '-') || name[3] != ':' {
		return 0, false
	}
	h := int(name[1]-'0')*10 + int(name[2]-'0')
	m := int(name[4]-'0')*10 + int(name[5]-'0')
	if h > 23 || m > 59 {
		return 0, false
	}
	total := h*3600 + m*60
	if name[0] == '-' {
		total = -total
	}
	return total, true
}
