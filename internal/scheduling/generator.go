package scheduling

import (
	"fmt"
	"sort"
	"time"

	"github.com/teambition/rrule-go"

	"github.com/noah-isme/appointments-api/internal/models"
)

// Slot is one weekly time window in a series' local zone.
type Slot struct {
	Weekday time.Weekday
	Start   models.ClockTime
	End     models.ClockTime
}

// Pattern is the generation input for one series.
type Pattern struct {
	Location *time.Location
	StartsOn models.Date
	EndsOn   *models.Date
	Active   bool
	Slots    []Slot
}

// GenerateOptions carries the reference instant and horizon. HorizonWeeks is
// expected to be already clamped by the caller.
type GenerateOptions struct {
	Now          time.Time
	HorizonWeeks int
}

// Occurrence is one concrete instance of a slot on a date.
type Occurrence struct {
	Date  models.Date
	Slot  Slot
	Start time.Time
	End   time.Time
}

// Interval returns the occurrence's [Start, End).
func (o Occurrence) Interval() Interval {
	return Interval{Start: o.Start, End: o.End}
}

// Result holds the materialized occurrences. Skipped lists instances whose
// converted end was not after their start, Past those starting before Now.
type Result struct {
	Occurrences []Occurrence
	Skipped     []Occurrence
	Past        []Occurrence
}

// Window returns the inclusive civil-date range generation would walk, or
// ok=false when it is empty.
func Window(p Pattern, opts GenerateOptions) (from, to models.Date, ok bool) {
	loc := p.Location
	if loc == nil {
		loc = time.UTC
	}
	weeks := opts.HorizonWeeks
	if weeks < 1 {
		weeks = 1
	}

	today := models.DateOf(opts.Now.In(loc))
	from = p.StartsOn
	if from.Before(today) {
		from = today
	}
	// horizon end is exclusive, ends_on inclusive
	to = today.AddDays(7*weeks - 1)
	if p.EndsOn != nil && p.EndsOn.Before(to) {
		to = *p.EndsOn
	}
	return from, to, !from.After(to)
}

// Generate expands the pattern into dated instances ordered by start.
// Instances starting before opts.Now land in Past even when they fall on
// today, so the window bound alone does not decide what gets written.
func Generate(p Pattern, opts GenerateOptions) (Result, error) {
	var res Result
	if !p.Active || len(p.Slots) == 0 {
		return res, nil
	}
	from, to, ok := Window(p, opts)
	if !ok {
		return res, nil
	}

	slots := sortedSlots(p.Slots)
	days, err := enumerateDays(from, to, slots)
	if err != nil {
		return res, err
	}

	for _, day := range days {
		for _, slot := range slots {
			if slot.Weekday != day.Weekday() {
				continue
			}
			occ := Occurrence{
				Date:  day,
				Slot:  slot,
				Start: ToInstant(day, slot.Start, p.Location),
				End:   ToInstant(day, slot.End, p.Location),
			}
			switch {
			case !occ.End.After(occ.Start):
				res.Skipped = append(res.Skipped, occ)
			case occ.Start.Before(opts.Now):
				res.Past = append(res.Past, occ)
			default:
				res.Occurrences = append(res.Occurrences, occ)
			}
		}
	}

	sort.SliceStable(res.Occurrences, func(i, j int) bool {
		return res.Occurrences[i].Start.Before(res.Occurrences[j].Start)
	})
	return res, nil
}

// enumerateDays lists every date in [from, to] whose weekday carries a slot.
// Dates travel through rrule as UTC midnights so no zone arithmetic leaks in.
func enumerateDays(from, to models.Date, slots []Slot) ([]models.Date, error) {
	seen := make(map[time.Weekday]struct{}, 7)
	byweekday := make([]rrule.Weekday, 0, 7)
	for _, s := range slots {
		if _, dup := seen[s.Weekday]; dup {
			continue
		}
		seen[s.Weekday] = struct{}{}
		byweekday = append(byweekday, rruleWeekdays[s.Weekday])
	}

	rule, err := rrule.NewRRule(rrule.ROption{
		Freq:      rrule.DAILY,
		Dtstart:   from.In(time.UTC),
		Until:     to.In(time.UTC),
		Byweekday: byweekday,
	})
	if err != nil {
		return nil, fmt.Errorf("build day rule: %w", err)
	}

	instants := rule.All()
	days := make([]models.Date, 0, len(instants))
	for _, t := range instants {
		days = append(days, models.DateOf(t.UTC()))
	}
	return days, nil
}

var rruleWeekdays = [...]rrule.Weekday{
	time.Sunday:    rrule.SU,
	time.Monday:    rrule.MO,
	time.Tuesday:   rrule.TU,
	time.Wednesday: rrule.WE,
	time.Thursday:  rrule.TH,
	time.Friday:    rrule.FR,
	time.Saturday:  rrule.SA,
}

func sortedSlots(in []Slot) []Slot {
	out := make([]Slot, len(in))
	copy(out, in)
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.Weekday != b.Weekday {
			return a.Weekday < b.Weekday
		}
		if a.Start != b.Start {
			return a.Start.Before(b.Start)
		}
		return a.End.Before(b.End)
	})
	return out
}
