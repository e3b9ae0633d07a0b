package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/noah-isme/appointments-api/internal/dto"
	"github.com/noah-isme/appointments-api/internal/models"
	appErrors "github.com/noah-isme/appointments-api/pkg/errors"
)

const (
	defaultPerPage = 15
	maxPerPage     = 100
)

type appointmentRepository interface {
	List(ctx context.Context, filter models.AppointmentFilter) ([]models.Appointment, int, error)
	FindByID(ctx context.Context, exec sqlx.ExtContext, customerID, id string) (*models.Appointment, error)
	SoftDelete(ctx context.Context, exec sqlx.ExtContext, customerID, id string) error
}

type customerLookup interface {
	FindByID(ctx context.Context, id string, withTrashed bool) (*models.Customer, error)
}

type seriesBatchLookup interface {
	ListByIDs(ctx context.Context, customerID string, ids []string) (map[string]models.AppointmentSeries, error)
}

type weekdayBatchLookup interface {
	ListBySeriesIDs(ctx context.Context, seriesIDs []string) (map[string][]models.SeriesWeekday, error)
}

// AppointmentService handles standalone appointment use-cases.
type AppointmentService struct {
	repo      appointmentRepository
	customers customerLookup
	series    seriesBatchLookup
	weekdays  weekdayBatchLookup
	writer    *AppointmentWriter
	tx        txProvider
	cache     *CacheService
	metrics   *MetricsService
	validator *validator.Validate
	logger    *zap.Logger
}

// NewAppointmentService constructs the appointment service.
func NewAppointmentService(
	repo appointmentRepository,
	customers customerLookup,
	series seriesBatchLookup,
	weekdays weekdayBatchLookup,
	writer *AppointmentWriter,
	tx txProvider,
	cache *CacheService,
	metrics *MetricsService,
	validate *validator.Validate,
	logger *zap.Logger,
) *AppointmentService {
	if validate == nil {
		validate = NewValidator()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AppointmentService{
		repo:      repo,
		customers: customers,
		series:    series,
		weekdays:  weekdays,
		writer:    writer,
		tx:        tx,
		cache:     cache,
		metrics:   metrics,
		validator: validate,
		logger:    logger,
	}
}

// List returns a page of the customer's appointments.
func (s *AppointmentService) List(ctx context.Context, customerID string, query dto.AppointmentQuery) ([]models.Appointment, *models.Pagination, error) {
	if err := s.validator.Struct(query); err != nil {
		return nil, nil, invalidPayload(err, "invalid query parameters")
	}
	if err := s.ensureCustomer(ctx, customerID); err != nil {
		return nil, nil, err
	}

	filter := models.AppointmentFilter{
		CustomerID:    customerID,
		Status:        query.Status,
		IncludeSeries: query.IncludeSeries,
		Page:          query.Page,
		PageSize:      query.PerPage,
	}
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.PageSize < 1 || filter.PageSize > maxPerPage {
		filter.PageSize = defaultPerPage
	}
	var fields []appErrors.FieldError
	if query.From != "" {
		from, err := parseBound(query.From, false)
		if err != nil {
			fields = append(fields, appErrors.FieldError{Field: "from", Message: "must be an RFC3339 timestamp or YYYY-MM-DD date"})
		}
		filter.From = &from
	}
	if query.To != "" {
		to, err := parseBound(query.To, true)
		if err != nil {
			fields = append(fields, appErrors.FieldError{Field: "to", Message: "must be an RFC3339 timestamp or YYYY-MM-DD date"})
		}
		filter.To = &to
	}
	if len(fields) > 0 {
		return nil, nil, appErrors.Invalid("invalid query parameters", fields...)
	}

	items, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Storage(err, "failed to list appointments")
	}
	if filter.IncludeSeries {
		if err := s.attachSeries(ctx, customerID, items); err != nil {
			return nil, nil, err
		}
	}
	return items, models.NewPagination(filter.Page, filter.PageSize, total), nil
}

// Get returns an active appointment of the customer.
func (s *AppointmentService) Get(ctx context.Context, customerID, id string) (*models.Appointment, error) {
	if err := s.ensureCustomer(ctx, customerID); err != nil {
		return nil, err
	}
	item, err := s.repo.FindByID(ctx, nil, customerID, id)
	if err != nil {
		return nil, notFoundOr(err, "appointment not found", "failed to load appointment")
	}
	return item, nil
}

// Create books a standalone appointment.
func (s *AppointmentService) Create(ctx context.Context, customerID string, req dto.CreateAppointmentRequest) (item *models.Appointment, err error) {
	ctx, span := startSpan(ctx, "AppointmentService.Create", attribute.String("customer.id", customerID))
	defer func() { endSpan(span, err) }()

	if err = s.validator.Struct(req); err != nil {
		return nil, invalidPayload(err, "invalid appointment payload")
	}
	if !req.EndsAt.After(*req.StartsAt) {
		return nil, appErrors.Invalid("invalid appointment payload", appErrors.FieldError{Field: "ends_at", Message: "must be after starts_at"})
	}
	if err = s.ensureCustomer(ctx, customerID); err != nil {
		return nil, err
	}

	candidate := models.Appointment{
		CustomerID: customerID,
		Title:      strings.TrimSpace(req.Title),
		Notes:      req.Notes,
		StartsAt:   req.StartsAt.UTC(),
		EndsAt:     req.EndsAt.UTC(),
	}
	var batch []models.Appointment
	err = runInTx(ctx, s.tx, s.writer.TxOptions(), s.writer.Attempts(), s.retryHook("appointment.create"), func(tx *sqlx.Tx) error {
		batch = []models.Appointment{candidate}
		return s.writer.Commit(ctx, tx, customerID, batch)
	})
	if err = finishWrite(err, "failed to create appointment"); err != nil {
		return nil, err
	}
	created := batch[0]
	s.cache.InvalidateCustomer(ctx, customerID)
	s.logger.Info("appointment created", zap.String("customer_id", customerID), zap.String("appointment_id", created.ID))
	return &created, nil
}

// Update applies a partial change to an active appointment.
func (s *AppointmentService) Update(ctx context.Context, customerID, id string, req dto.UpdateAppointmentRequest) (item *models.Appointment, err error) {
	ctx, span := startSpan(ctx, "AppointmentService.Update", attribute.String("customer.id", customerID), attribute.String("appointment.id", id))
	defer func() { endSpan(span, err) }()

	if err = s.validator.Struct(req); err != nil {
		return nil, invalidPayload(err, "invalid appointment payload")
	}
	if err = s.ensureCustomer(ctx, customerID); err != nil {
		return nil, err
	}

	var updated *models.Appointment
	err = runInTx(ctx, s.tx, s.writer.TxOptions(), s.writer.Attempts(), s.retryHook("appointment.update"), func(tx *sqlx.Tx) error {
		current, findErr := s.repo.FindByID(ctx, tx, customerID, id)
		if findErr != nil {
			return notFoundOr(findErr, "appointment not found", "failed to load appointment")
		}
		if req.Title != nil {
			current.Title = strings.TrimSpace(*req.Title)
		}
		if req.Notes != nil {
			current.Notes = req.Notes
		}
		if req.StartsAt != nil {
			current.StartsAt = req.StartsAt.UTC()
		}
		if req.EndsAt != nil {
			current.EndsAt = req.EndsAt.UTC()
		}
		if !current.EndsAt.After(current.StartsAt) {
			return appErrors.Invalid("invalid appointment payload", appErrors.FieldError{Field: "ends_at", Message: "must be after starts_at"})
		}
		if writeErr := s.writer.Update(ctx, tx, current); writeErr != nil {
			return writeErr
		}
		updated = current
		return nil
	})
	if err = finishWrite(err, "failed to update appointment"); err != nil {
		return nil, err
	}
	s.cache.InvalidateCustomer(ctx, customerID)
	return updated, nil
}

// Delete soft-deletes an appointment.
func (s *AppointmentService) Delete(ctx context.Context, customerID, id string) error {
	if err := s.ensureCustomer(ctx, customerID); err != nil {
		return err
	}
	if err := s.repo.SoftDelete(ctx, nil, customerID, id); err != nil {
		return notFoundOr(err, "appointment not found", "failed to delete appointment")
	}
	s.cache.InvalidateCustomer(ctx, customerID)
	return nil
}

func (s *AppointmentService) ensureCustomer(ctx context.Context, customerID string) error {
	return ensureCustomer(ctx, s.customers, customerID)
}

func (s *AppointmentService) attachSeries(ctx context.Context, customerID string, items []models.Appointment) error {
	seen := make(map[string]struct{})
	var ids []string
	for _, item := range items {
		if item.SeriesID == nil {
			continue
		}
		if _, ok := seen[*item.SeriesID]; !ok {
			seen[*item.SeriesID] = struct{}{}
			ids = append(ids, *item.SeriesID)
		}
	}
	if len(ids) == 0 {
		return nil
	}
	found, err := s.series.ListByIDs(ctx, customerID, ids)
	if err != nil {
		return appErrors.Storage(err, "failed to load series")
	}
	slots, err := s.weekdays.ListBySeriesIDs(ctx, ids)
	if err != nil {
		return appErrors.Storage(err, "failed to load series weekdays")
	}
	for i := range items {
		if items[i].SeriesID == nil {
			continue
		}
		series, ok := found[*items[i].SeriesID]
		if !ok {
			continue
		}
		series.Weekdays = slots[series.ID]
		if series.Weekdays == nil {
			series.Weekdays = []models.SeriesWeekday{}
		}
		items[i].Series = &series
	}
	return nil
}

func (s *AppointmentService) retryHook(operation string) func(int, error) {
	return func(attempt int, err error) {
		s.metrics.RecordRetry(operation)
		s.logger.Info("retrying serializable transaction", zap.String("operation", operation), zap.Int("attempt", attempt), zap.Error(err))
	}
}

// ensureCustomer returns NOT_FOUND unless the customer exists and is not trashed.
func ensureCustomer(ctx context.Context, customers customerLookup, customerID string) error {
	if _, err := customers.FindByID(ctx, customerID, false); err != nil {
		return notFoundOr(err, "customer not found", "failed to load customer")
	}
	return nil
}

// notFoundOr maps sql.ErrNoRows to NOT_FOUND, passes typed errors through
// and wraps everything else as a storage failure.
func notFoundOr(err error, notFound, storage string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return appErrors.Clone(appErrors.ErrNotFound, notFound)
	}
	var appErr *appErrors.Error
	if errors.As(err, &appErr) {
		return err
	}
	return appErrors.Storage(err, storage)
}

// parseBound accepts RFC3339 or a calendar date in UTC. A date used as an
// upper bound covers the whole day.
func parseBound(raw string, upper bool) (time.Time, error) {
	if ts, err := time.Parse(time.RFC3339, raw); err == nil {
		return ts.UTC(), nil
	}
	day, err := time.Parse("2006-01-02", raw)
	if err != nil {
		return time.Time{}, err
	}
	if upper {
		day = day.AddDate(0, 0, 1)
	}
	return day, nil
}
