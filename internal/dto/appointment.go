package dto

import (
	"time"

	"github.com/noah-isme/appointments-api/internal/models"
)

// CreateAppointmentRequest defines payload for a standalone appointment.
type CreateAppointmentRequest struct {
	Title    string     `json:"title" validate:"required,max=150"`
	Notes    *string    `json:"notes" validate:"omitempty,max=2000"`
	StartsAt *time.Time `json:"starts_at" validate:"required"`
	EndsAt   *time.Time `json:"ends_at" validate:"required"`
}

// UpdateAppointmentRequest carries a partial appointment update.
type UpdateAppointmentRequest struct {
	Title    *string    `json:"title" validate:"omitempty,min=1,max=150"`
	Notes    *string    `json:"notes" validate:"omitempty,max=2000"`
	StartsAt *time.Time `json:"starts_at"`
	EndsAt   *time.Time `json:"ends_at"`
}

// AppointmentQuery captures list parameters.
type AppointmentQuery struct {
	From          string              `form:"from"`
	To            string              `form:"to"`
	Status        models.RecordStatus `form:"status" validate:"omitempty,oneof=active trashed all"`
	IncludeSeries bool                `form:"include_series"`
	Page          int                 `form:"page" validate:"omitempty,min=1"`
	PerPage       int                 `form:"per_page" validate:"omitempty,min=1,max=100"`
}

// ExportQuery captures agenda export parameters.
type ExportQuery struct {
	Format   string `form:"format" validate:"omitempty,oneof=csv pdf ics"`
	From     string `form:"from" validate:"omitempty,datetime=2006-01-02"`
	To       string `form:"to" validate:"omitempty,datetime=2006-01-02"`
	Timezone string `form:"timezone" validate:"omitempty,max=64,timezone"`
}

// ExportResult is a rendered agenda ready to stream.
type ExportResult struct {
	Filename    string
	ContentType string
	Body        []byte
}
