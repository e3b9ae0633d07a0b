package models

import "time"

// RecordStatus selects rows by soft-delete state.
type RecordStatus string

const (
	RecordStatusActive  RecordStatus = "active"
	RecordStatusTrashed RecordStatus = "trashed"
	RecordStatusAll     RecordStatus = "all"
)

// Appointment is a concrete booking occupying [StartsAt, EndsAt) for a customer.
type Appointment struct {
	ID         string             `db:"id" json:"id"`
	CustomerID string             `db:"customer_id" json:"customer_id"`
	SeriesID   *string            `db:"series_id" json:"series_id,omitempty"`
	Title      string             `db:"title" json:"title"`
	Notes      *string            `db:"notes" json:"notes,omitempty"`
	StartsAt   time.Time          `db:"starts_at" json:"starts_at"`
	EndsAt     time.Time          `db:"ends_at" json:"ends_at"`
	CreatedAt  time.Time          `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time          `db:"updated_at" json:"updated_at"`
	DeletedAt  *time.Time         `db:"deleted_at" json:"deleted_at,omitempty"`
	Series     *AppointmentSeries `db:"-" json:"series,omitempty"`
}

// AppointmentFilter narrows a customer's appointment listing.
type AppointmentFilter struct {
	CustomerID    string
	From          *time.Time
	To            *time.Time
	Status        RecordStatus
	IncludeSeries bool
	Page          int
	PageSize      int
}
