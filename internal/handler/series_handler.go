package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/appointments-api/internal/dto"
	"github.com/noah-isme/appointments-api/internal/middleware"
	"github.com/noah-isme/appointments-api/internal/models"
	"github.com/noah-isme/appointments-api/pkg/response"
)

type seriesService interface {
	List(ctx context.Context, customerID string, query dto.SeriesQuery) ([]models.AppointmentSeries, error)
	Get(ctx context.Context, customerID, id string) (*models.AppointmentSeries, error)
	Create(ctx context.Context, customerID string, req dto.CreateSeriesRequest, opts dto.GenerationOptions) (*dto.SeriesResult, error)
	Update(ctx context.Context, customerID, id string, req dto.UpdateSeriesRequest, opts dto.RegenerationOptions) (*dto.SeriesResult, error)
	Deactivate(ctx context.Context, customerID, id string, deleteFuture bool) (int64, error)
}

type deactivateQuery struct {
	DeleteFuture bool `form:"delete_future"`
}

// SeriesHandler exposes recurring series endpoints nested under a customer.
type SeriesHandler struct {
	series seriesService
}

// NewSeriesHandler constructs SeriesHandler.
func NewSeriesHandler(series seriesService) *SeriesHandler {
	return &SeriesHandler{series: series}
}

// List godoc
// @Summary List series of a customer
// @Tags Series
// @Produce json
// @Param customerID path string true "Customer ID"
// @Param status query string false "active (default), inactive or all"
// @Param include_weekdays query bool false "Embed weekday slots (default true)"
// @Success 200 {object} response.Envelope
// @Router /customers/{customerID}/series [get]
func (h *SeriesHandler) List(c *gin.Context) {
	var query dto.SeriesQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.Error(c, invalidQuery(err))
		return
	}
	items, err := h.series.List(c.Request.Context(), c.Param("customerID"), query)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, items, nil)
}

// Get godoc
// @Summary Get series with its weekday slots
// @Tags Series
// @Produce json
// @Param customerID path string true "Customer ID"
// @Param seriesID path string true "Series ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /customers/{customerID}/series/{seriesID} [get]
func (h *SeriesHandler) Get(c *gin.Context) {
	series, err := h.series.Get(c.Request.Context(), c.Param("customerID"), c.Param("seriesID"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, series, nil)
}

// Create godoc
// @Summary Create a recurring series
// @Tags Series
// @Accept json
// @Produce json
// @Param customerID path string true "Customer ID"
// @Param generate query bool false "Generate instances now"
// @Param weeks query int false "Generation horizon in weeks (1-52, default 12)"
// @Param payload body dto.CreateSeriesRequest true "Series payload"
// @Success 201 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /customers/{customerID}/series [post]
func (h *SeriesHandler) Create(c *gin.Context) {
	var opts dto.GenerationOptions
	if err := c.ShouldBindQuery(&opts); err != nil {
		response.Error(c, invalidQuery(err))
		return
	}
	var req dto.CreateSeriesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, invalidBody(err))
		return
	}
	result, err := h.series.Create(c.Request.Context(), c.Param("customerID"), req, opts)
	if err != nil {
		response.Error(c, err)
		return
	}
	recordGeneration(c, result)
	response.JSON(c, http.StatusCreated, result, nil, middleware.ExtractMeta(c))
}

// Update godoc
// @Summary Update a series
// @Description Weekdays, when sent, replace the stored slots (an empty list removes them). regenerate=true drops future instances and rebuilds them.
// @Tags Series
// @Accept json
// @Produce json
// @Param customerID path string true "Customer ID"
// @Param seriesID path string true "Series ID"
// @Param regenerate query bool false "Rebuild future instances"
// @Param weeks query int false "Generation horizon in weeks (1-52, default 12)"
// @Param payload body dto.UpdateSeriesRequest true "Series payload"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /customers/{customerID}/series/{seriesID} [put]
func (h *SeriesHandler) Update(c *gin.Context) {
	var opts dto.RegenerationOptions
	if err := c.ShouldBindQuery(&opts); err != nil {
		response.Error(c, invalidQuery(err))
		return
	}
	var req dto.UpdateSeriesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, invalidBody(err))
		return
	}
	result, err := h.series.Update(c.Request.Context(), c.Param("customerID"), c.Param("seriesID"), req, opts)
	if err != nil {
		response.Error(c, err)
		return
	}
	recordGeneration(c, result)
	response.JSON(c, http.StatusOK, result, nil, middleware.ExtractMeta(c))
}

// Deactivate godoc
// @Summary Deactivate a series
// @Tags Series
// @Param customerID path string true "Customer ID"
// @Param seriesID path string true "Series ID"
// @Param delete_future query bool false "Soft delete instances starting from now"
// @Success 204
// @Router /customers/{customerID}/series/{seriesID} [delete]
func (h *SeriesHandler) Deactivate(c *gin.Context) {
	var query deactivateQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.Error(c, invalidQuery(err))
		return
	}
	if _, err := h.series.Deactivate(c.Request.Context(), c.Param("customerID"), c.Param("seriesID"), query.DeleteFuture); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

func recordGeneration(c *gin.Context, result *dto.SeriesResult) {
	middleware.SetMeta(c, "generated", result.Generated)
	middleware.SetMeta(c, "skipped", result.Skipped)
	middleware.SetMeta(c, "removed", result.Removed)
}
