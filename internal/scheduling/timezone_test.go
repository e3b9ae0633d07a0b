package scheduling

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/appointments-api/internal/models"
)

func mustZone(t *testing.T, name string) *time.Location {
	t.Helper()
	loc, err := LoadZone(name)
	require.NoError(t, err)
	return loc
}

func TestLoadZone(t *testing.T) {
	_, err := LoadZone("America/Sao_Paulo")
	require.NoError(t, err)

	for _, name := range []string{"", "Local", "Mars/Olympus_Mons", "  "} {
		_, err := LoadZone(name)
		assert.ErrorIs(t, err, ErrInvalidTimezone, name)
	}
}

func TestToInstantRegular(t *testing.T) {
	loc := mustZone(t, "America/Sao_Paulo")
	got := ToInstant(models.MustDate("2026-02-02"), models.MustClock("09:00"), loc)
	assert.Equal(t, time.Date(2026, 2, 2, 12, 0, 0, 0, time.UTC), got)
	assert.Equal(t, time.UTC, got.Location())
}

func TestToInstantSpringForwardGap(t *testing.T) {
	loc := mustZone(t, "America/New_York")
	// 02:30 does not exist on 2026-03-08; it becomes 03:30 EDT
	got := ToInstant(models.MustDate("2026-03-08"), models.MustClock("02:30"), loc)
	assert.Equal(t, time.Date(2026, 3, 8, 7, 30, 0, 0, time.UTC), got)
	assert.Equal(t, "03:30", got.In(loc).Format("15:04"))
}

func TestToInstantFallBackAmbiguous(t *testing.T) {
	loc := mustZone(t, "America/New_York")
	// 01:30 happens twice on 2026-11-01; the EST (second) one wins
	got := ToInstant(models.MustDate("2026-11-01"), models.MustClock("01:30"), loc)
	assert.Equal(t, time.Date(2026, 11, 1, 6, 30, 0, 0, time.UTC), got)
	_, offset := got.In(loc).Zone()
	assert.Equal(t, -5*3600, offset)
}

func TestToInstantNilLocationIsUTC(t *testing.T) {
	got := ToInstant(models.MustDate("2026-06-01"), models.MustClock("23:59"), nil)
	assert.Equal(t, time.Date(2026, 6, 1, 23, 59, 0, 0, time.UTC), got)
}
