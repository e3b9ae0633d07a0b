package dto

import (
	"bytes"
	"encoding/json"

	"github.com/noah-isme/appointments-api/internal/models"
)

// WeekdaySlotInput is one weekly slot; weekday uses 0=Sunday.
type WeekdaySlotInput struct {
	Weekday   *int              `json:"weekday" validate:"required,min=0,max=6"`
	StartTime *models.ClockTime `json:"start_time" validate:"required"`
	EndTime   *models.ClockTime `json:"end_time" validate:"required"`
}

// CreateSeriesRequest defines payload for a recurring series.
type CreateSeriesRequest struct {
	Title    string             `json:"title" validate:"required,max=150"`
	Notes    *string            `json:"notes" validate:"omitempty,max=2000"`
	Timezone string             `json:"timezone" validate:"omitempty,max=64,timezone"`
	StartsOn *models.Date       `json:"starts_on" validate:"required"`
	EndsOn   *models.Date       `json:"ends_on"`
	IsActive *bool              `json:"is_active"`
	Weekdays []WeekdaySlotInput `json:"weekdays" validate:"required,min=1,dive"`
}

// UpdateSeriesRequest carries a partial series update. A nil Weekdays keeps
// the current slots; a present, empty list removes them all.
type UpdateSeriesRequest struct {
	Title    *string             `json:"title" validate:"omitempty,min=1,max=150"`
	Notes    *string             `json:"notes" validate:"omitempty,max=2000"`
	Timezone *string             `json:"timezone" validate:"omitempty,max=64"`
	StartsOn *models.Date        `json:"starts_on"`
	EndsOn   OptionalDate        `json:"ends_on"`
	IsActive *bool               `json:"is_active"`
	Weekdays *[]WeekdaySlotInput `json:"weekdays" validate:"omitempty,dive"`
}

// OptionalDate distinguishes an absent field from an explicit null.
type OptionalDate struct {
	Set   bool
	Value *models.Date
}

func (o *OptionalDate) UnmarshalJSON(data []byte) error {
	o.Set = true
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		o.Value = nil
		return nil
	}
	var d models.Date
	if err := json.Unmarshal(data, &d); err != nil {
		return err
	}
	o.Value = &d
	return nil
}

// GenerationOptions are the query flags controlling instance generation.
type GenerationOptions struct {
	Generate bool `form:"generate"`
	Weeks    *int `form:"weeks"`
}

// RegenerationOptions are the query flags of a series update.
type RegenerationOptions struct {
	Regenerate bool `form:"regenerate"`
	Weeks      *int `form:"weeks"`
}

// SeriesQuery captures list parameters.
type SeriesQuery struct {
	Status          models.SeriesStatus `form:"status" validate:"omitempty,oneof=active inactive all"`
	IncludeWeekdays *bool               `form:"include_weekdays"`
}

// SeriesResult is the outcome of a series write.
type SeriesResult struct {
	Series       *models.AppointmentSeries `json:"series"`
	Appointments []models.Appointment      `json:"appointments,omitempty"`
	Generated    int                       `json:"generated"`
	Skipped      int                       `json:"skipped"`
	Removed      int64                     `json:"removed"`
}
