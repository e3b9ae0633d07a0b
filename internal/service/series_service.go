package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/noah-isme/appointments-api/internal/dto"
	"github.com/noah-isme/appointments-api/internal/models"
	"github.com/noah-isme/appointments-api/internal/scheduling"
	appErrors "github.com/noah-isme/appointments-api/pkg/errors"
)

type seriesRepository interface {
	List(ctx context.Context, filter models.SeriesFilter) ([]models.AppointmentSeries, error)
	FindByID(ctx context.Context, exec sqlx.ExtContext, customerID, id string) (*models.AppointmentSeries, error)
	FindByIDForUpdate(ctx context.Context, exec sqlx.ExtContext, customerID, id string) (*models.AppointmentSeries, error)
	Create(ctx context.Context, exec sqlx.ExtContext, series *models.AppointmentSeries) error
	Update(ctx context.Context, exec sqlx.ExtContext, series *models.AppointmentSeries) error
	SetActive(ctx context.Context, exec sqlx.ExtContext, customerID, id string, active bool) error
}

type seriesWeekdayRepository interface {
	ListBySeries(ctx context.Context, exec sqlx.ExtContext, seriesID string) ([]models.SeriesWeekday, error)
	ListBySeriesIDs(ctx context.Context, seriesIDs []string) (map[string][]models.SeriesWeekday, error)
	Replace(ctx context.Context, exec sqlx.ExtContext, seriesID string, slots []models.SeriesWeekday) error
	InsertBatch(ctx context.Context, exec sqlx.ExtContext, seriesID string, slots []models.SeriesWeekday) error
}

type futureAppointmentRemover interface {
	SoftDeleteFutureBySeries(ctx context.Context, exec sqlx.ExtContext, seriesID string, from time.Time) (int64, error)
}

// SeriesConfig carries the scheduling defaults of the series service.
type SeriesConfig struct {
	DefaultTimezone     string
	DefaultHorizonWeeks int
	MaxHorizonWeeks     int
	// Clock supplies "now"; nil means time.Now.
	Clock func() time.Time
}

// SeriesService manages the lifecycle of recurring appointment series and
// the instances generated from them.
type SeriesService struct {
	series       seriesRepository
	weekdays     seriesWeekdayRepository
	appointments futureAppointmentRemover
	customers    customerLookup
	writer       *AppointmentWriter
	tx           txProvider
	cache        *CacheService
	metrics      *MetricsService
	validator    *validator.Validate
	logger       *zap.Logger
	cfg          SeriesConfig
}

// NewSeriesService wires the series service.
func NewSeriesService(
	series seriesRepository,
	weekdays seriesWeekdayRepository,
	appointments futureAppointmentRemover,
	customers customerLookup,
	writer *AppointmentWriter,
	tx txProvider,
	cache *CacheService,
	metrics *MetricsService,
	validate *validator.Validate,
	logger *zap.Logger,
	cfg SeriesConfig,
) *SeriesService {
	if validate == nil {
		validate = NewValidator()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.DefaultTimezone == "" {
		cfg.DefaultTimezone = "UTC"
	}
	if cfg.MaxHorizonWeeks < 1 || cfg.MaxHorizonWeeks > 52 {
		cfg.MaxHorizonWeeks = 52
	}
	if cfg.DefaultHorizonWeeks < 1 || cfg.DefaultHorizonWeeks > cfg.MaxHorizonWeeks {
		cfg.DefaultHorizonWeeks = 12
	}
	if cfg.Clock == nil {
		cfg.Clock = time.Now
	}
	return &SeriesService{
		series:       series,
		weekdays:     weekdays,
		appointments: appointments,
		customers:    customers,
		writer:       writer,
		tx:           tx,
		cache:        cache,
		metrics:      metrics,
		validator:    validate,
		logger:       logger,
		cfg:          cfg,
	}
}

// List returns the customer's series, newest first.
func (s *SeriesService) List(ctx context.Context, customerID string, query dto.SeriesQuery) ([]models.AppointmentSeries, error) {
	if err := s.validator.Struct(query); err != nil {
		return nil, invalidPayload(err, "invalid query parameters")
	}
	if err := ensureCustomer(ctx, s.customers, customerID); err != nil {
		return nil, err
	}
	status := query.Status
	if status == "" {
		status = models.SeriesStatusActive
	}
	withWeekdays := query.IncludeWeekdays == nil || *query.IncludeWeekdays

	key := seriesListCacheKey(customerID, string(status), withWeekdays)
	var cached []models.AppointmentSeries
	if s.cache.Get(ctx, key, &cached) {
		return cached, nil
	}

	items, err := s.series.List(ctx, models.SeriesFilter{CustomerID: customerID, Status: status, IncludeWeekdays: withWeekdays})
	if err != nil {
		return nil, appErrors.Storage(err, "failed to list series")
	}
	if items == nil {
		items = []models.AppointmentSeries{}
	}
	if withWeekdays && len(items) > 0 {
		ids := make([]string, len(items))
		for i := range items {
			ids[i] = items[i].ID
		}
		grouped, err := s.weekdays.ListBySeriesIDs(ctx, ids)
		if err != nil {
			return nil, appErrors.Storage(err, "failed to load series weekdays")
		}
		for i := range items {
			items[i].Weekdays = nonNilSlots(grouped[items[i].ID])
		}
	}
	s.cache.Set(ctx, key, items)
	return items, nil
}

// Get returns one series with its weekday slots.
func (s *SeriesService) Get(ctx context.Context, customerID, id string) (*models.AppointmentSeries, error) {
	if err := ensureCustomer(ctx, s.customers, customerID); err != nil {
		return nil, err
	}
	key := seriesCacheKey(customerID, id)
	var cached models.AppointmentSeries
	if s.cache.Get(ctx, key, &cached) {
		return &cached, nil
	}

	series, err := s.load(ctx, nil, customerID, id)
	if err != nil {
		return nil, err
	}
	s.cache.Set(ctx, key, series)
	return series, nil
}

// Create stores a series with its slots and, when requested, generates
// its instances; everything happens in one transaction.
func (s *SeriesService) Create(ctx context.Context, customerID string, req dto.CreateSeriesRequest, opts dto.GenerationOptions) (result *dto.SeriesResult, err error) {
	ctx, span := startSpan(ctx, "SeriesService.Create",
		attribute.String("customer.id", customerID),
		attribute.Bool("series.generate", opts.Generate),
	)
	defer func() { endSpan(span, err) }()

	if err = s.validator.Struct(req); err != nil {
		return nil, invalidPayload(err, "invalid series payload")
	}

	var fields []appErrors.FieldError
	timezone := strings.TrimSpace(req.Timezone)
	if timezone == "" {
		timezone = s.cfg.DefaultTimezone
	}
	if _, zoneErr := scheduling.LoadZone(timezone); zoneErr != nil {
		fields = append(fields, appErrors.FieldError{Field: "timezone", Message: "must be a valid IANA timezone"})
	}
	if req.EndsOn != nil && req.EndsOn.Before(*req.StartsOn) {
		fields = append(fields, appErrors.FieldError{Field: "ends_on", Message: "must be on or after starts_on"})
	}
	slots, slotFields := buildSlots(req.Weekdays)
	fields = append(fields, slotFields...)
	if len(fields) > 0 {
		return nil, appErrors.Invalid("invalid series payload", fields...)
	}
	if err = ensureCustomer(ctx, s.customers, customerID); err != nil {
		return nil, err
	}

	active := true
	if req.IsActive != nil {
		active = *req.IsActive
	}
	weeks := s.horizon(opts.Weeks)
	now := s.cfg.Clock()

	var gen generation
	err = runInTx(ctx, s.tx, s.writer.TxOptions(), s.writer.Attempts(), s.retryHook("series.create"), func(tx *sqlx.Tx) error {
		series := &models.AppointmentSeries{
			CustomerID: customerID,
			Title:      strings.TrimSpace(req.Title),
			Notes:      req.Notes,
			Timezone:   timezone,
			StartsOn:   *req.StartsOn,
			EndsOn:     req.EndsOn,
			IsActive:   active,
		}
		if createErr := s.series.Create(ctx, tx, series); createErr != nil {
			return appErrors.Storage(createErr, "failed to create series")
		}
		series.Weekdays = cloneSlots(slots)
		if insertErr := s.weekdays.InsertBatch(ctx, tx, series.ID, series.Weekdays); insertErr != nil {
			return appErrors.Storage(insertErr, "failed to store series weekdays")
		}

		gen = generation{series: series}
		if opts.Generate {
			return s.generate(ctx, tx, &gen, weeks, now)
		}
		return nil
	})
	if err = finishWrite(err, "failed to create series"); err != nil {
		return nil, err
	}

	s.afterWrite(ctx, customerID, gen)
	s.logger.Info("series created",
		zap.String("customer_id", customerID),
		zap.String("series_id", gen.series.ID),
		zap.Int("generated", len(gen.appointments)),
	)
	return gen.result(), nil
}

// Update applies a partial change. Weekdays, when present, replace the
// stored slots wholesale; Regenerate drops every future instance and
// rebuilds them from the updated pattern.
func (s *SeriesService) Update(ctx context.Context, customerID, id string, req dto.UpdateSeriesRequest, opts dto.RegenerationOptions) (result *dto.SeriesResult, err error) {
	ctx, span := startSpan(ctx, "SeriesService.Update",
		attribute.String("customer.id", customerID),
		attribute.String("series.id", id),
		attribute.Bool("series.regenerate", opts.Regenerate),
	)
	defer func() { endSpan(span, err) }()

	if err = s.validator.Struct(req); err != nil {
		return nil, invalidPayload(err, "invalid series payload")
	}

	var fields []appErrors.FieldError
	var timezone *string
	if req.Timezone != nil {
		tz := strings.TrimSpace(*req.Timezone)
		if tz == "" {
			tz = s.cfg.DefaultTimezone
		}
		if _, zoneErr := scheduling.LoadZone(tz); zoneErr != nil {
			fields = append(fields, appErrors.FieldError{Field: "timezone", Message: "must be a valid IANA timezone"})
		}
		timezone = &tz
	}
	var slots []models.SeriesWeekday
	if req.Weekdays != nil {
		var slotFields []appErrors.FieldError
		slots, slotFields = buildSlots(*req.Weekdays)
		fields = append(fields, slotFields...)
	}
	if len(fields) > 0 {
		return nil, appErrors.Invalid("invalid series payload", fields...)
	}

	if err = ensureCustomer(ctx, s.customers, customerID); err != nil {
		return nil, err
	}

	weeks := s.horizon(opts.Weeks)
	now := s.cfg.Clock()

	var gen generation
	err = runInTx(ctx, s.tx, s.writer.TxOptions(), s.writer.Attempts(), s.retryHook("series.update"), func(tx *sqlx.Tx) error {
		series, findErr := s.series.FindByIDForUpdate(ctx, tx, customerID, id)
		if findErr != nil {
			return notFoundOr(findErr, "series not found", "failed to load series")
		}
		if req.Title != nil {
			series.Title = strings.TrimSpace(*req.Title)
		}
		if req.Notes != nil {
			series.Notes = req.Notes
		}
		if timezone != nil {
			series.Timezone = *timezone
		}
		if req.StartsOn != nil {
			series.StartsOn = *req.StartsOn
		}
		if req.EndsOn.Set {
			series.EndsOn = req.EndsOn.Value
		}
		if req.IsActive != nil {
			series.IsActive = *req.IsActive
		}
		if series.EndsOn != nil && series.EndsOn.Before(series.StartsOn) {
			return appErrors.Invalid("invalid series payload", appErrors.FieldError{Field: "ends_on", Message: "must be on or after starts_on"})
		}
		if updateErr := s.series.Update(ctx, tx, series); updateErr != nil {
			return notFoundOr(updateErr, "series not found", "failed to update series")
		}

		if req.Weekdays != nil {
			series.Weekdays = cloneSlots(slots)
			if replaceErr := s.weekdays.Replace(ctx, tx, series.ID, series.Weekdays); replaceErr != nil {
				return appErrors.Storage(replaceErr, "failed to replace series weekdays")
			}
		} else {
			current, listErr := s.weekdays.ListBySeries(ctx, tx, series.ID)
			if listErr != nil {
				return appErrors.Storage(listErr, "failed to load series weekdays")
			}
			series.Weekdays = current
		}
		series.Weekdays = nonNilSlots(series.Weekdays)

		gen = generation{series: series}
		if !opts.Regenerate {
			return nil
		}
		removed, removeErr := s.appointments.SoftDeleteFutureBySeries(ctx, tx, series.ID, now)
		if removeErr != nil {
			return appErrors.Storage(removeErr, "failed to remove future appointments")
		}
		gen.removed = removed
		return s.generate(ctx, tx, &gen, weeks, now)
	})
	if err = finishWrite(err, "failed to update series"); err != nil {
		return nil, err
	}

	s.afterWrite(ctx, customerID, gen)
	return gen.result(), nil
}

// Deactivate turns the series off and, when deleteFuture is set, soft-deletes
// its instances starting at or after now. Past instances are never touched.
func (s *SeriesService) Deactivate(ctx context.Context, customerID, id string, deleteFuture bool) (removed int64, err error) {
	ctx, span := startSpan(ctx, "SeriesService.Deactivate",
		attribute.String("customer.id", customerID),
		attribute.String("series.id", id),
		attribute.Bool("series.delete_future", deleteFuture),
	)
	defer func() { endSpan(span, err) }()

	if err = ensureCustomer(ctx, s.customers, customerID); err != nil {
		return 0, err
	}
	now := s.cfg.Clock()
	err = runInTx(ctx, s.tx, nil, 1, nil, func(tx *sqlx.Tx) error {
		removed = 0
		if setErr := s.series.SetActive(ctx, tx, customerID, id, false); setErr != nil {
			return notFoundOr(setErr, "series not found", "failed to deactivate series")
		}
		if !deleteFuture {
			return nil
		}
		n, removeErr := s.appointments.SoftDeleteFutureBySeries(ctx, tx, id, now)
		if removeErr != nil {
			return appErrors.Storage(removeErr, "failed to remove future appointments")
		}
		removed = n
		return nil
	})
	if err = finishWrite(err, "failed to deactivate series"); err != nil {
		return 0, err
	}

	s.metrics.RecordFutureRemoved(removed)
	s.cache.InvalidateCustomer(ctx, customerID)
	s.logger.Info("series deactivated", zap.String("customer_id", customerID), zap.String("series_id", id), zap.Int64("removed", removed))
	return removed, nil
}

// generation collects what one write produced.
type generation struct {
	series       *models.AppointmentSeries
	appointments []models.Appointment
	skipped      []scheduling.Occurrence
	past         int
	removed      int64
}

func (g generation) result() *dto.SeriesResult {
	return &dto.SeriesResult{
		Series:       g.series,
		Appointments: g.appointments,
		Generated:    len(g.appointments),
		Skipped:      len(g.skipped),
		Removed:      g.removed,
	}
}

// generate expands the series and hands the instances to the writer.
func (s *SeriesService) generate(ctx context.Context, tx *sqlx.Tx, gen *generation, weeks int, now time.Time) error {
	series := gen.series
	loc, err := scheduling.LoadZone(series.Timezone)
	if err != nil {
		return appErrors.Invalid("invalid series payload", appErrors.FieldError{Field: "timezone", Message: "must be a valid IANA timezone"})
	}
	pattern := scheduling.Pattern{
		Location: loc,
		StartsOn: series.StartsOn,
		EndsOn:   series.EndsOn,
		Active:   series.IsActive,
		Slots:    make([]scheduling.Slot, len(series.Weekdays)),
	}
	for i, w := range series.Weekdays {
		pattern.Slots[i] = scheduling.Slot{Weekday: time.Weekday(w.Weekday), Start: w.StartTime, End: w.EndTime}
	}

	res, err := scheduling.Generate(pattern, scheduling.GenerateOptions{Now: now, HorizonWeeks: weeks})
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to expand series")
	}
	gen.skipped = res.Skipped
	gen.past = len(res.Past)

	items := make([]models.Appointment, len(res.Occurrences))
	for i, occ := range res.Occurrences {
		items[i] = models.Appointment{
			CustomerID: series.CustomerID,
			SeriesID:   &series.ID,
			Title:      series.Title,
			Notes:      series.Notes,
			StartsAt:   occ.Start.UTC(),
			EndsAt:     occ.End.UTC(),
		}
	}
	if err := s.writer.Commit(ctx, tx, series.CustomerID, items); err != nil {
		return err
	}
	gen.appointments = items
	return nil
}

func (s *SeriesService) afterWrite(ctx context.Context, customerID string, gen generation) {
	for _, occ := range gen.skipped {
		s.logger.Warn("skipped occurrence with non-positive duration",
			zap.String("series_id", gen.series.ID),
			zap.String("date", occ.Date.String()),
			zap.String("start_time", occ.Slot.Start.String()),
			zap.String("end_time", occ.Slot.End.String()),
		)
	}
	s.metrics.RecordOccurrences(len(gen.appointments), len(gen.skipped), gen.past)
	s.metrics.RecordFutureRemoved(gen.removed)
	s.cache.InvalidateCustomer(ctx, customerID)
}

func (s *SeriesService) load(ctx context.Context, exec sqlx.ExtContext, customerID, id string) (*models.AppointmentSeries, error) {
	series, err := s.series.FindByID(ctx, exec, customerID, id)
	if err != nil {
		return nil, notFoundOr(err, "series not found", "failed to load series")
	}
	slots, err := s.weekdays.ListBySeries(ctx, exec, series.ID)
	if err != nil {
		return nil, appErrors.Storage(err, "failed to load series weekdays")
	}
	series.Weekdays = nonNilSlots(slots)
	return series, nil
}

// horizon resolves the requested generation window in weeks.
func (s *SeriesService) horizon(weeks *int) int {
	if weeks == nil {
		return s.cfg.DefaultHorizonWeeks
	}
	switch w := *weeks; {
	case w < 1:
		return 1
	case w > s.cfg.MaxHorizonWeeks:
		return s.cfg.MaxHorizonWeeks
	default:
		return w
	}
}

func (s *SeriesService) retryHook(operation string) func(int, error) {
	return func(attempt int, err error) {
		s.metrics.RecordRetry(operation)
		s.logger.Info("retrying serializable transaction", zap.String("operation", operation), zap.Int("attempt", attempt), zap.Error(err))
	}
}

// buildSlots converts validated inputs and rejects inverted, duplicate or
// same-day overlapping slots.
func buildSlots(inputs []dto.WeekdaySlotInput) ([]models.SeriesWeekday, []appErrors.FieldError) {
	var fields []appErrors.FieldError
	slots := make([]models.SeriesWeekday, 0, len(inputs))
	positions := make([]int, 0, len(inputs))
	for i, in := range inputs {
		slot := models.SeriesWeekday{Weekday: *in.Weekday, StartTime: *in.StartTime, EndTime: *in.EndTime}
		if !slot.StartTime.Before(slot.EndTime) {
			fields = append(fields, appErrors.FieldError{Field: fmt.Sprintf("weekdays.%d.end_time", i), Message: "must be after start_time"})
			continue
		}
		for k, prev := range slots {
			if prev.Weekday != slot.Weekday {
				continue
			}
			if prev.StartTime == slot.StartTime && prev.EndTime == slot.EndTime {
				fields = append(fields, appErrors.FieldError{Field: fmt.Sprintf("weekdays.%d", i), Message: fmt.Sprintf("duplicates weekdays.%d", positions[k])})
				break
			}
			if prev.StartTime.Before(slot.EndTime) && slot.StartTime.Before(prev.EndTime) {
				fields = append(fields, appErrors.FieldError{Field: fmt.Sprintf("weekdays.%d", i), Message: fmt.Sprintf("overlaps weekdays.%d", positions[k])})
				break
			}
		}
		slots = append(slots, slot)
		positions = append(positions, i)
	}
	return slots, fields
}

func cloneSlots(in []models.SeriesWeekday) []models.SeriesWeekday {
	out := make([]models.SeriesWeekday, len(in))
	copy(out, in)
	return out
}

func nonNilSlots(in []models.SeriesWeekday) []models.SeriesWeekday {
	if in == nil {
		return []models.SeriesWeekday{}
	}
	return in
}
