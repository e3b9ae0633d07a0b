package export

import (
	"time"
)

// Event is one appointment as it appears in an exported agenda.
type Event struct {
	UID         string
	Title       string
	Notes       string
	SeriesID    string
	Start       time.Time
	End         time.Time
	CreatedAt   time.Time
	LastUpdated time.Time
}

// Agenda is a customer's appointments over a date range.
type Agenda struct {
	Title       string
	Location    *time.Location
	GeneratedAt time.Time
	Events      []Event
}

// Renderer turns an agenda into a downloadable document.
type Renderer interface {
	Render(agenda Agenda) ([]byte, error)
	ContentType() string
	Extension() string
}

var agendaHeaders = []string{"id", "title", "date", "start", "end", "series_id", "notes"}

// Dataset flattens the agenda into a table, rendering times in the agenda's
// location (UTC when unset).
func (a Agenda) Dataset() Dataset {
	loc := a.Location
	if loc == nil {
		loc = time.UTC
	}
	rows := make([]map[string]string, 0, len(a.Events))
	for _, ev := range a.Events {
		start := ev.Start.In(loc)
		end := ev.End.In(loc)
		rows = append(rows, map[string]string{
			"id":        ev.UID,
			"title":     ev.Title,
			"date":      start.Format("2006-01-02"),
			"start":     start.Format("15:04 MST"),
			"end":       end.Format("15:04 MST"),
			"series_id": ev.SeriesID,
			"notes":     ev.Notes,
		})
	}
	return Dataset{Headers: agendaHeaders, Rows: rows}
}
