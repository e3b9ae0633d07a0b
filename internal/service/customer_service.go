package service

import (
	"context"
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/appointments-api/internal/dto"
	"github.com/noah-isme/appointments-api/internal/models"
	"github.com/noah-isme/appointments-api/internal/repository"
	appErrors "github.com/noah-isme/appointments-api/pkg/errors"
)

type customerRepository interface {
	List(ctx context.Context, filter models.CustomerFilter) ([]models.Customer, int, error)
	FindByID(ctx context.Context, id string, withTrashed bool) (*models.Customer, error)
	EmailTaken(ctx context.Context, email, excludeID string) (bool, error)
	Create(ctx context.Context, customer *models.Customer) error
	Update(ctx context.Context, customer *models.Customer) error
	SoftDelete(ctx context.Context, id string) error
	Restore(ctx context.Context, id string) error
	ForceDelete(ctx context.Context, id string) error
}

// CustomerService handles customer use-cases.
type CustomerService struct {
	repo      customerRepository
	cache     *CacheService
	validator *validator.Validate
	logger    *zap.Logger
}

// NewCustomerService constructs the customer service.
func NewCustomerService(repo customerRepository, cache *CacheService, validate *validator.Validate, logger *zap.Logger) *CustomerService {
	if validate == nil {
		validate = NewValidator()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CustomerService{repo: repo, cache: cache, validator: validate, logger: logger}
}

// List returns active customers and pagination metadata.
func (s *CustomerService) List(ctx context.Context, query dto.CustomerQuery) ([]models.Customer, *models.Pagination, error) {
	filter := models.CustomerFilter{Search: strings.TrimSpace(query.Search), Page: query.Page, PageSize: query.PerPage}
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.PageSize < 1 || filter.PageSize > maxPerPage {
		filter.PageSize = defaultPerPage
	}
	items, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Storage(err, "failed to list customers")
	}
	return items, models.NewPagination(filter.Page, filter.PageSize, total), nil
}

// Get returns an active customer.
func (s *CustomerService) Get(ctx context.Context, id string) (*models.Customer, error) {
	customer, err := s.repo.FindByID(ctx, id, false)
	if err != nil {
		return nil, notFoundOr(err, "customer not found", "failed to load customer")
	}
	return customer, nil
}

// Create registers a customer; the email must be unused among active customers.
func (s *CustomerService) Create(ctx context.Context, req dto.CreateCustomerRequest) (*models.Customer, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, invalidPayload(err, "invalid customer payload")
	}
	customer := &models.Customer{
		Name:  strings.TrimSpace(req.Name),
		Email: strings.TrimSpace(req.Email),
		Phone: req.Phone,
	}
	if err := s.ensureEmailFree(ctx, customer.Email, ""); err != nil {
		return nil, err
	}
	if err := s.repo.Create(ctx, customer); err != nil {
		return nil, s.writeError(err, "failed to create customer")
	}
	s.logger.Info("customer created", zap.String("customer_id", customer.ID))
	return customer, nil
}

// Update applies a partial change to an active customer.
func (s *CustomerService) Update(ctx context.Context, id string, req dto.UpdateCustomerRequest) (*models.Customer, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, invalidPayload(err, "invalid customer payload")
	}
	customer, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if req.Name != nil {
		customer.Name = strings.TrimSpace(*req.Name)
	}
	if req.Email != nil {
		email := strings.TrimSpace(*req.Email)
		if !strings.EqualFold(email, customer.Email) {
			if err := s.ensureEmailFree(ctx, email, customer.ID); err != nil {
				return nil, err
			}
		}
		customer.Email = email
	}
	if req.Phone != nil {
		customer.Phone = req.Phone
	}
	if err := s.repo.Update(ctx, customer); err != nil {
		return nil, s.writeError(err, "failed to update customer")
	}
	return customer, nil
}

// Delete soft-deletes the customer. Appointments and series are kept.
func (s *CustomerService) Delete(ctx context.Context, id string) error {
	if err := s.repo.SoftDelete(ctx, id); err != nil {
		return notFoundOr(err, "customer not found", "failed to delete customer")
	}
	s.cache.InvalidateCustomer(ctx, id)
	return nil
}

// Restore brings a soft-deleted customer back. restored is false when the
// customer was already active.
func (s *CustomerService) Restore(ctx context.Context, id string) (customer *models.Customer, restored bool, err error) {
	customer, err = s.repo.FindByID(ctx, id, true)
	if err != nil {
		return nil, false, notFoundOr(err, "customer not found", "failed to load customer")
	}
	if !customer.Trashed() {
		return customer, false, nil
	}
	if err := s.repo.Restore(ctx, id); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, false, appErrors.Wrap(err, appErrors.ErrConflict.Code, appErrors.ErrConflict.Status, "email is used by another active customer")
		}
		return nil, false, notFoundOr(err, "customer not found", "failed to restore customer")
	}
	customer.DeletedAt = nil
	s.cache.InvalidateCustomer(ctx, id)
	return customer, true, nil
}

// ForceDelete permanently removes the customer together with its series
// and appointments.
func (s *CustomerService) ForceDelete(ctx context.Context, id string) error {
	if err := s.repo.ForceDelete(ctx, id); err != nil {
		return notFoundOr(err, "customer not found", "failed to delete customer")
	}
	s.cache.InvalidateCustomer(ctx, id)
	s.logger.Info("customer force deleted", zap.String("customer_id", id))
	return nil
}

func (s *CustomerService) ensureEmailFree(ctx context.Context, email, excludeID string) error {
	taken, err := s.repo.EmailTaken(ctx, email, excludeID)
	if err != nil {
		return appErrors.Storage(err, "failed to check customer email")
	}
	if taken {
		return emailTaken()
	}
	return nil
}

// writeError maps the unique email index losing a race to the same
// validation error the pre-check produces.
func (s *CustomerService) writeError(err error, message string) error {
	if errors.Is(err, repository.ErrDuplicate) {
		return emailTaken()
	}
	return notFoundOr(err, "customer not found", message)
}

func emailTaken() error {
	return appErrors.Invalid("invalid customer payload", appErrors.FieldError{Field: "email", Message: "has already been taken"})
}
