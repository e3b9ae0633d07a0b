package scheduling

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/appointments-api/internal/models"
)

func mondayNine() Slot {
	return Slot{Weekday: time.Monday, Start: models.MustClock("09:00"), End: models.MustClock("10:00")}
}

func everyDay(start, end string) []Slot {
	slots := make([]Slot, 0, 7)
	for d := time.Sunday; d <= time.Saturday; d++ {
		slots = append(slots, Slot{Weekday: d, Start: models.MustClock(start), End: models.MustClock(end)})
	}
	return slots
}

func TestGenerateSaoPauloScenario(t *testing.T) {
	loc := mustZone(t, "America/Sao_Paulo")
	p := Pattern{
		Location: loc,
		StartsOn: models.MustDate("2026-02-02"),
		Active:   true,
		Slots:    []Slot{mondayNine()},
	}
	now := time.Date(2026, 2, 2, 8, 0, 0, 0, loc)

	res, err := Generate(p, GenerateOptions{Now: now, HorizonWeeks: 2})
	require.NoError(t, err)
	require.Len(t, res.Occurrences, 2)

	first, _ := time.Parse(time.RFC3339, "2026-02-02T09:00:00-03:00")
	second, _ := time.Parse(time.RFC3339, "2026-02-09T09:00:00-03:00")
	assert.True(t, res.Occurrences[0].Start.Equal(first))
	assert.True(t, res.Occurrences[1].Start.Equal(second))
	assert.True(t, res.Occurrences[0].End.Equal(first.Add(time.Hour)))
	assert.Empty(t, res.Skipped)
	assert.Empty(t, res.Past)
}

func TestGenerateInactiveIsEmpty(t *testing.T) {
	p := Pattern{
		Location: time.UTC,
		StartsOn: models.MustDate("2026-02-02"),
		Active:   false,
		Slots:    []Slot{mondayNine()},
	}
	res, err := Generate(p, GenerateOptions{Now: time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC), HorizonWeeks: 52})
	require.NoError(t, err)
	assert.Empty(t, res.Occurrences)
}

func TestGenerateStaysInsideHorizon(t *testing.T) {
	loc := mustZone(t, "America/Sao_Paulo")
	p := Pattern{
		Location: loc,
		StartsOn: models.MustDate("2026-01-01"),
		Active:   true,
		Slots:    everyDay("09:00", "10:00"),
	}
	now := time.Date(2026, 2, 4, 15, 0, 0, 0, time.UTC) // 12:00 local
	today := models.DateOf(now.In(loc))
	limit := today.AddDays(21)

	res, err := Generate(p, GenerateOptions{Now: now, HorizonWeeks: 3})
	require.NoError(t, err)

	// today's 09:00 already passed
	require.Len(t, res.Past, 1)
	assert.Len(t, res.Occurrences, 20)
	for _, occ := range res.Occurrences {
		assert.True(t, occ.End.After(occ.Start))
		assert.False(t, occ.Date.Before(today), occ.Date.String())
		assert.True(t, occ.Date.Before(limit), occ.Date.String())
		assert.False(t, occ.Start.Before(now))
	}
}

func TestGenerateRespectsEndDateInclusive(t *testing.T) {
	endsOn := models.MustDate("2026-02-16")
	p := Pattern{
		Location: time.UTC,
		StartsOn: models.MustDate("2026-02-02"),
		EndsOn:   &endsOn,
		Active:   true,
		Slots:    []Slot{mondayNine()},
	}
	res, err := Generate(p, GenerateOptions{Now: time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC), HorizonWeeks: 12})
	require.NoError(t, err)
	require.Len(t, res.Occurrences, 3)
	assert.Equal(t, endsOn, res.Occurrences[2].Date)
	for _, occ := range res.Occurrences {
		assert.False(t, occ.Date.After(endsOn))
	}
}

func TestGenerateFutureStartAndEmptyWindow(t *testing.T) {
	p := Pattern{
		Location: time.UTC,
		StartsOn: models.MustDate("2026-06-01"),
		Active:   true,
		Slots:    []Slot{mondayNine()},
	}
	res, err := Generate(p, GenerateOptions{Now: time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC), HorizonWeeks: 4})
	require.NoError(t, err)
	assert.Empty(t, res.Occurrences)

	endsOn := models.MustDate("2026-01-15")
	p.StartsOn = models.MustDate("2026-01-01")
	p.EndsOn = &endsOn
	res, err = Generate(p, GenerateOptions{Now: time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC), HorizonWeeks: 4})
	require.NoError(t, err)
	assert.Empty(t, res.Occurrences)
}

func TestGenerateOrdersByStartThenSlot(t *testing.T) {
	p := Pattern{
		Location: time.UTC,
		StartsOn: models.MustDate("2026-02-02"),
		Active:   true,
		Slots: []Slot{
			{Weekday: time.Tuesday, Start: models.MustClock("08:00"), End: models.MustClock("09:00")},
			{Weekday: time.Monday, Start: models.MustClock("14:00"), End: models.MustClock("15:00")},
			{Weekday: time.Monday, Start: models.MustClock("09:00"), End: models.MustClock("10:00")},
		},
	}
	res, err := Generate(p, GenerateOptions{Now: time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC), HorizonWeeks: 1})
	require.NoError(t, err)
	require.Len(t, res.Occurrences, 3)
	assert.Equal(t, time.Date(2026, 2, 2, 9, 0, 0, 0, time.UTC), res.Occurrences[0].Start)
	assert.Equal(t, time.Date(2026, 2, 2, 14, 0, 0, 0, time.UTC), res.Occurrences[1].Start)
	assert.Equal(t, time.Date(2026, 2, 3, 8, 0, 0, 0, time.UTC), res.Occurrences[2].Start)
}

func TestGenerateIsIdempotent(t *testing.T) {
	loc := mustZone(t, "Europe/Berlin")
	p := Pattern{
		Location: loc,
		StartsOn: models.MustDate("2026-03-01"),
		Active:   true,
		Slots:    everyDay("07:15", "08:00"),
	}
	opts := GenerateOptions{Now: time.Date(2026, 3, 10, 5, 0, 0, 0, time.UTC), HorizonWeeks: 8}

	first, err := Generate(p, opts)
	require.NoError(t, err)
	second, err := Generate(p, opts)
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.NotEmpty(t, first.Occurrences)
}

func TestGenerateSkipsInvertedAcrossGap(t *testing.T) {
	loc := mustZone(t, "America/New_York")
	p := Pattern{
		Location: loc,
		StartsOn: models.MustDate("2026-03-01"),
		Active:   true,
		Slots: []Slot{
			{Weekday: time.Sunday, Start: models.MustClock("02:30"), End: models.MustClock("03:10")},
		},
	}
	res, err := Generate(p, GenerateOptions{Now: time.Date(2026, 3, 7, 12, 0, 0, 0, time.UTC), HorizonWeeks: 1})
	require.NoError(t, err)
	assert.Empty(t, res.Occurrences)
	require.Len(t, res.Skipped, 1)
	assert.Equal(t, models.MustDate("2026-03-08"), res.Skipped[0].Date)
}

func TestWindowClampsHorizon(t *testing.T) {
	p := Pattern{Location: time.UTC, StartsOn: models.MustDate("2026-01-01"), Active: true}
	from, to, ok := Window(p, GenerateOptions{Now: time.Date(2026, 2, 2, 10, 0, 0, 0, time.UTC), HorizonWeeks: 0})
	require.True(t, ok)
	assert.Equal(t, models.MustDate("2026-02-02"), from)
	assert.Equal(t, models.MustDate("2026-02-08"), to)
}
