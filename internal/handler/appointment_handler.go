package handler

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/appointments-api/internal/dto"
	"github.com/noah-isme/appointments-api/internal/models"
	"github.com/noah-isme/appointments-api/pkg/response"
)

type appointmentService interface {
	List(ctx context.Context, customerID string, query dto.AppointmentQuery) ([]models.Appointment, *models.Pagination, error)
	Get(ctx context.Context, customerID, id string) (*models.Appointment, error)
	Create(ctx context.Context, customerID string, req dto.CreateAppointmentRequest) (*models.Appointment, error)
	Update(ctx context.Context, customerID, id string, req dto.UpdateAppointmentRequest) (*models.Appointment, error)
	Delete(ctx context.Context, customerID, id string) error
}

type agendaExporter interface {
	Export(ctx context.Context, customerID string, query dto.ExportQuery) (*dto.ExportResult, error)
}

// AppointmentHandler exposes appointment endpoints nested under a customer.
type AppointmentHandler struct {
	appointments appointmentService
	exporter     agendaExporter
}

// NewAppointmentHandler constructs AppointmentHandler.
func NewAppointmentHandler(appointments appointmentService, exporter agendaExporter) *AppointmentHandler {
	return &AppointmentHandler{appointments: appointments, exporter: exporter}
}

// List godoc
// @Summary List appointments of a customer
// @Tags Appointments
// @Produce json
// @Param customerID path string true "Customer ID"
// @Param from query string false "Lower bound on starts_at (RFC3339 or YYYY-MM-DD)"
// @Param to query string false "Upper bound on ends_at (RFC3339 or YYYY-MM-DD)"
// @Param status query string false "active, trashed or all"
// @Param include_series query bool false "Embed the series with its weekdays"
// @Param page query int false "Page"
// @Param per_page query int false "Page size (max 100)"
// @Success 200 {object} response.Envelope
// @Router /customers/{customerID}/appointments [get]
func (h *AppointmentHandler) List(c *gin.Context) {
	var query dto.AppointmentQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.Error(c, invalidQuery(err))
		return
	}
	items, pagination, err := h.appointments.List(c.Request.Context(), c.Param("customerID"), query)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, items, pagination)
}

// Get godoc
// @Summary Get appointment
// @Tags Appointments
// @Produce json
// @Param customerID path string true "Customer ID"
// @Param appointmentID path string true "Appointment ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /customers/{customerID}/appointments/{appointmentID} [get]
func (h *AppointmentHandler) Get(c *gin.Context) {
	item, err := h.appointments.Get(c.Request.Context(), c.Param("customerID"), c.Param("appointmentID"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, item, nil)
}

// Create godoc
// @Summary Create a standalone appointment
// @Tags Appointments
// @Accept json
// @Produce json
// @Param customerID path string true "Customer ID"
// @Param payload body dto.CreateAppointmentRequest true "Appointment payload"
// @Success 201 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /customers/{customerID}/appointments [post]
func (h *AppointmentHandler) Create(c *gin.Context) {
	var req dto.CreateAppointmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, invalidBody(err))
		return
	}
	item, err := h.appointments.Create(c.Request.Context(), c.Param("customerID"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, item)
}

// Update godoc
// @Summary Update appointment
// @Tags Appointments
// @Accept json
// @Produce json
// @Param customerID path string true "Customer ID"
// @Param appointmentID path string true "Appointment ID"
// @Param payload body dto.UpdateAppointmentRequest true "Appointment payload"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /customers/{customerID}/appointments/{appointmentID} [put]
func (h *AppointmentHandler) Update(c *gin.Context) {
	var req dto.UpdateAppointmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, invalidBody(err))
		return
	}
	item, err := h.appointments.Update(c.Request.Context(), c.Param("customerID"), c.Param("appointmentID"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, item, nil)
}

// Delete godoc
// @Summary Soft delete appointment
// @Tags Appointments
// @Param customerID path string true "Customer ID"
// @Param appointmentID path string true "Appointment ID"
// @Success 204
// @Router /customers/{customerID}/appointments/{appointmentID} [delete]
func (h *AppointmentHandler) Delete(c *gin.Context) {
	if err := h.appointments.Delete(c.Request.Context(), c.Param("customerID"), c.Param("appointmentID")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Export godoc
// @Summary Download the customer's agenda
// @Tags Appointments
// @Produce text/csv
// @Produce application/pdf
// @Produce text/calendar
// @Param customerID path string true "Customer ID"
// @Param format query string false "csv, pdf or ics"
// @Param from query string false "First day (YYYY-MM-DD), defaults to today"
// @Param to query string false "Last day (YYYY-MM-DD), defaults to 30 days after from"
// @Param timezone query string false "IANA timezone used for the range and display"
// @Success 200 {file} file
// @Router /customers/{customerID}/appointments/export [get]
func (h *AppointmentHandler) Export(c *gin.Context) {
	var query dto.ExportQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.Error(c, invalidQuery(err))
		return
	}
	result, err := h.exporter.Export(c.Request.Context(), c.Param("customerID"), query)
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", result.Filename))
	c.Header("Cache-Control", "no-store")
	c.Data(http.StatusOK, result.ContentType, result.Body)
}
