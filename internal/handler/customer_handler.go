package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/appointments-api/internal/dto"
	"github.com/noah-isme/appointments-api/internal/models"
	appErrors "github.com/noah-isme/appointments-api/pkg/errors"
	"github.com/noah-isme/appointments-api/pkg/response"
)

type customerService interface {
	List(ctx context.Context, query dto.CustomerQuery) ([]models.Customer, *models.Pagination, error)
	Get(ctx context.Context, id string) (*models.Customer, error)
	Create(ctx context.Context, req dto.CreateCustomerRequest) (*models.Customer, error)
	Update(ctx context.Context, id string, req dto.UpdateCustomerRequest) (*models.Customer, error)
	Delete(ctx context.Context, id string) error
	Restore(ctx context.Context, id string) (*models.Customer, bool, error)
	ForceDelete(ctx context.Context, id string) error
}

// CustomerHandler exposes customer endpoints.
type CustomerHandler struct {
	customers customerService
}

// NewCustomerHandler constructs CustomerHandler.
func NewCustomerHandler(customers customerService) *CustomerHandler {
	return &CustomerHandler{customers: customers}
}

// List godoc
// @Summary List customers
// @Tags Customers
// @Produce json
// @Param search query string false "Search by name or email"
// @Param page query int false "Page"
// @Param per_page query int false "Page size (max 100)"
// @Success 200 {object} response.Envelope
// @Router /customers [get]
func (h *CustomerHandler) List(c *gin.Context) {
	var query dto.CustomerQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.Error(c, invalidQuery(err))
		return
	}
	customers, pagination, err := h.customers.List(c.Request.Context(), query)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, customers, pagination)
}

// Get godoc
// @Summary Get customer
// @Tags Customers
// @Produce json
// @Param customerID path string true "Customer ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /customers/{customerID} [get]
func (h *CustomerHandler) Get(c *gin.Context) {
	customer, err := h.customers.Get(c.Request.Context(), c.Param("customerID"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, customer, nil)
}

// Create godoc
// @Summary Create customer
// @Tags Customers
// @Accept json
// @Produce json
// @Param payload body dto.CreateCustomerRequest true "Customer payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /customers [post]
func (h *CustomerHandler) Create(c *gin.Context) {
	var req dto.CreateCustomerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, invalidBody(err))
		return
	}
	customer, err := h.customers.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, customer)
}

// Update godoc
// @Summary Update customer
// @Tags Customers
// @Accept json
// @Produce json
// @Param customerID path string true "Customer ID"
// @Param payload body dto.UpdateCustomerRequest true "Customer payload"
// @Success 200 {object} response.Envelope
// @Router /customers/{customerID} [put]
func (h *CustomerHandler) Update(c *gin.Context) {
	var req dto.UpdateCustomerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, invalidBody(err))
		return
	}
	customer, err := h.customers.Update(c.Request.Context(), c.Param("customerID"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, customer, nil)
}

// Delete godoc
// @Summary Soft delete customer
// @Tags Customers
// @Param customerID path string true "Customer ID"
// @Success 204
// @Router /customers/{customerID} [delete]
func (h *CustomerHandler) Delete(c *gin.Context) {
	if err := h.customers.Delete(c.Request.Context(), c.Param("customerID")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Restore godoc
// @Summary Restore a soft-deleted customer
// @Tags Customers
// @Produce json
// @Param customerID path string true "Customer ID"
// @Success 200 {object} response.Envelope
// @Router /customers/{customerID}/restore [post]
func (h *CustomerHandler) Restore(c *gin.Context) {
	customer, restored, err := h.customers.Restore(c.Request.Context(), c.Param("customerID"))
	if err != nil {
		response.Error(c, err)
		return
	}
	if !restored {
		response.Message(c, http.StatusOK, "customer is not deleted", customer)
		return
	}
	response.Message(c, http.StatusOK, "customer restored", customer)
}

// ForceDelete godoc
// @Summary Permanently delete customer with its series and appointments
// @Tags Customers
// @Param customerID path string true "Customer ID"
// @Success 204
// @Router /customers/{customerID}/force-delete [delete]
func (h *CustomerHandler) ForceDelete(c *gin.Context) {
	if err := h.customers.ForceDelete(c.Request.Context(), c.Param("customerID")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

func invalidBody(err error) error {
	return appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload")
}

func invalidQuery(err error) error {
	return appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid query parameters")
}
