package export

import (
	"fmt"
	"strings"

	ical "github.com/arran4/golang-ical"
)

const icsProductID = "-//appointments-api//agenda//EN"

// ICSExporter renders agendas as an iCalendar feed with one VEVENT per
// appointment. Instants are written in UTC.
type ICSExporter struct{}

func NewICSExporter() *ICSExporter {
	return &ICSExporter{}
}

func (e *ICSExporter) ContentType() string { return "text/calendar; charset=utf-8" }

func (e *ICSExporter) Extension() string { return "ics" }

func (e *ICSExporter) Render(agenda Agenda) ([]byte, error) {
	cal := ical.NewCalendar()
	cal.SetProductId(icsProductID)
	cal.SetMethod(ical.MethodPublish)
	if agenda.Title != "" {
		cal.SetXWRCalName(agenda.Title)
	}

	for _, ev := range agenda.Events {
		if ev.UID == "" {
			return nil, fmt.Errorf("ics event without uid")
		}
		vevent := cal.AddEvent(ev.UID + "@appointments-api")
		vevent.SetDtStampTime(agenda.GeneratedAt.UTC())
		if !ev.CreatedAt.IsZero() {
			vevent.SetCreatedTime(ev.CreatedAt.UTC())
		}
		if !ev.LastUpdated.IsZero() {
			vevent.SetModifiedAt(ev.LastUpdated.UTC())
		}
		vevent.SetStartAt(ev.Start.UTC())
		vevent.SetEndAt(ev.End.UTC())
		vevent.SetSummary(ev.Title)
		if strings.TrimSpace(ev.Notes) != "" {
			vevent.SetDescription(ev.Notes)
		}
		if ev.SeriesID != "" {
			vevent.SetProperty(ical.ComponentProperty("X-APPOINTMENT-SERIES"), ev.SeriesID)
		}
	}

	return []byte(cal.Serialize()), nil
}
