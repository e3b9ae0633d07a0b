package scheduling

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/noah-isme/appointments-api/internal/models"
)

// ErrInvalidTimezone is returned for identifiers the tz database does not know.
var ErrInvalidTimezone = errors.New("invalid timezone")

// LoadZone resolves an IANA identifier. The empty string and "Local" are
// rejected so that results never depend on the host configuration.
func LoadZone(name string) (*time.Location, error) {
	name = strings.TrimSpace(name)
	if name == "" || name == "Local" {
		return nil, fmt.Errorf("%w: %q", ErrInvalidTimezone, name)
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("%w: %q", ErrInvalidTimezone, name)
	}
	return loc, nil
}

// ToInstant converts a wall-clock date and time of day in loc to a UTC instant.
//
// Around DST transitions the result is deterministic and always lands on the
// post-transition side: an ambiguous wall time (clocks fall back) resolves to
// the later instant, a nonexistent one (clocks spring forward) is pushed
// forward by the length of the gap.
func ToInstant(date models.Date, clock models.ClockTime, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	wall := time.Date(date.Year, date.Month, date.Day, clock.Hour, clock.Minute, 0, 0, time.UTC)

	// No real zone has two transitions within two days, so the offsets a day
	// either side bracket any transition touching this wall time.
	_, before := wall.Add(-24 * time.Hour).In(loc).Zone()
	_, after := wall.Add(24 * time.Hour).In(loc).Zone()

	pre := wall.Add(-time.Duration(before) * time.Second)
	post := wall.Add(-time.Duration(after) * time.Second)

	switch {
	case sameWall(post, wall, loc):
		return post.UTC()
	case sameWall(pre, wall, loc):
		return pre.UTC()
	default:
		// gap: read with the pre-transition offset, which lands past the jump
		return pre.UTC()
	}
}

func sameWall(instant, wall time.Time, loc *time.Location) bool {
	local := instant.In(loc)
	return local.Year() == wall.Year() &&
		local.Month() == wall.Month() &&
		local.Day() == wall.Day() &&
		local.Hour() == wall.Hour() &&
		local.Minute() == wall.Minute()
}
