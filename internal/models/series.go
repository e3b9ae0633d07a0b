package models

import "time"

// SeriesStatus selects series by activation state.
type SeriesStatus string

const (
	SeriesStatusActive   SeriesStatus = "active"
	SeriesStatusInactive SeriesStatus = "inactive"
	SeriesStatusAll      SeriesStatus = "all"
)

// AppointmentSeries is a weekly recurrence pattern owned by a customer.
// EndsOn is inclusive; nil means open-ended.
type AppointmentSeries struct {
	ID         string          `db:"id" json:"id"`
	CustomerID string          `db:"customer_id" json:"customer_id"`
	Title      string          `db:"title" json:"title"`
	Notes      *string         `db:"notes" json:"notes,omitempty"`
	Timezone   string          `db:"timezone" json:"timezone"`
	StartsOn   Date            `db:"starts_on" json:"starts_on"`
	EndsOn     *Date           `db:"ends_on" json:"ends_on,omitempty"`
	IsActive   bool            `db:"is_active" json:"is_active"`
	CreatedAt  time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time       `db:"updated_at" json:"updated_at"`
	Weekdays   []SeriesWeekday `db:"-" json:"weekdays,omitempty"`
}

// SeriesWeekday is one weekly slot; Weekday uses 0=Sunday.
type SeriesWeekday struct {
	ID        string    `db:"id" json:"id"`
	SeriesID  string    `db:"series_id" json:"series_id"`
	Weekday   int       `db:"weekday" json:"weekday"`
	StartTime ClockTime `db:"start_time" json:"start_time"`
	EndTime   ClockTime `db:"end_time" json:"end_time"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// SeriesFilter narrows a customer's series listing.
type SeriesFilter struct {
	CustomerID      string
	Status          SeriesStatus
	IncludeWeekdays bool
}
