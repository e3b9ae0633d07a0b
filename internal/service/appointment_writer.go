package service

import (
	"context"
	"database/sql"
	"errors"
	"sort"
	"time"

	"github.com/jmoiron/sqlx"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/noah-isme/appointments-api/internal/models"
	"github.com/noah-isme/appointments-api/internal/repository"
	"github.com/noah-isme/appointments-api/internal/scheduling"
	"github.com/noah-isme/appointments-api/pkg/config"
	appErrors "github.com/noah-isme/appointments-api/pkg/errors"
)

type appointmentStore interface {
	Create(ctx context.Context, exec sqlx.ExtContext, item *models.Appointment) error
	BulkCreate(ctx context.Context, exec sqlx.ExtContext, items []models.Appointment) error
	Update(ctx context.Context, exec sqlx.ExtContext, item *models.Appointment) error
	ListOverlapping(ctx context.Context, exec sqlx.ExtContext, customerID string, start, end time.Time, excludeID string) ([]models.Appointment, error)
}

// WriterConfig selects how the no-overlap rule is enforced.
type WriterConfig struct {
	// Strategy is config.OverlapStrategyExclusion (storage constraint) or
	// config.OverlapStrategySerializable (read-check-write under SERIALIZABLE).
	Strategy   string
	MaxRetries int
}

// ConflictDetails is attached to CONFLICT errors when the colliding
// interval is known.
type ConflictDetails struct {
	Candidate   scheduling.Interval  `json:"candidate"`
	Existing    *scheduling.Interval `json:"existing,omitempty"`
	ExistingID  string               `json:"existing_id,omitempty"`
	WithinBatch bool                 `json:"within_batch,omitempty"`
}

// AppointmentWriter persists appointment batches and edits so that the
// active appointments of a customer never overlap. It never opens
// transactions itself; callers run it inside one obtained with TxOptions.
type AppointmentWriter struct {
	store    appointmentStore
	strategy string
	retries  int
	metrics  *MetricsService
	logger   *zap.Logger
}

// NewAppointmentWriter wires the writer.
func NewAppointmentWriter(store appointmentStore, cfg WriterConfig, metrics *MetricsService, logger *zap.Logger) *AppointmentWriter {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Strategy != config.OverlapStrategySerializable {
		cfg.Strategy = config.OverlapStrategyExclusion
	}
	if cfg.MaxRetries < 1 {
		cfg.MaxRetries = 3
	}
	return &AppointmentWriter{store: store, strategy: cfg.Strategy, retries: cfg.MaxRetries, metrics: metrics, logger: logger}
}

// TxOptions returns the isolation the enclosing transaction must use.
func (w *AppointmentWriter) TxOptions() *sql.TxOptions {
	if w.strategy == config.OverlapStrategySerializable {
		return &sql.TxOptions{Isolation: sql.LevelSerializable}
	}
	return nil
}

// Attempts is how many times a unit of work containing writer calls may run.
func (w *AppointmentWriter) Attempts() int {
	if w.strategy == config.OverlapStrategySerializable {
		return w.retries
	}
	return 1
}

// Commit inserts all items for one customer or none of them. An overlap
// within the batch or with stored appointments yields CONFLICT.
func (w *AppointmentWriter) Commit(ctx context.Context, exec sqlx.ExtContext, customerID string, items []models.Appointment) (err error) {
	if len(items) == 0 {
		return nil
	}
	ctx, span := startSpan(ctx, "AppointmentWriter.Commit",
		attribute.String("customer.id", customerID),
		attribute.Int("appointments.count", len(items)),
		attribute.String("overlap.strategy", w.strategy),
	)
	defer func() { endSpan(span, err) }()

	intervals := make([]scheduling.Interval, len(items))
	for i := range items {
		if items[i].CustomerID != customerID {
			return appErrors.Clone(appErrors.ErrInternal, "appointment batch spans several customers")
		}
		intervals[i] = scheduling.Interval{Start: items[i].StartsAt, End: items[i].EndsAt}
		if !intervals[i].Valid() {
			return appErrors.Invalid("appointment must end after it starts", appErrors.FieldError{Field: "ends_at", Message: "must be after starts_at"})
		}
	}

	if a, b, found := scheduling.FindOverlap(intervals); found {
		w.metrics.RecordConflict("commit", "batch")
		return conflictError("appointments in the request overlap each other", ConflictDetails{Candidate: b, Existing: &a, WithinBatch: true})
	}

	if w.strategy == config.OverlapStrategySerializable {
		if err = w.precheck(ctx, exec, customerID, intervals, ""); err != nil {
			return err
		}
	}

	if len(items) == 1 {
		err = w.store.Create(ctx, exec, &items[0])
	} else {
		err = w.store.BulkCreate(ctx, exec, items)
	}
	return w.translate("commit", err)
}

// Update rewrites an existing appointment, checking the new interval
// against every other active appointment of the customer.
func (w *AppointmentWriter) Update(ctx context.Context, exec sqlx.ExtContext, item *models.Appointment) (err error) {
	ctx, span := startSpan(ctx, "AppointmentWriter.Update",
		attribute.String("customer.id", item.CustomerID),
		attribute.String("appointment.id", item.ID),
	)
	defer func() { endSpan(span, err) }()

	candidate := scheduling.Interval{Start: item.StartsAt, End: item.EndsAt}
	if !candidate.Valid() {
		return appErrors.Invalid("appointment must end after it starts", appErrors.FieldError{Field: "ends_at", Message: "must be after starts_at"})
	}
	if w.strategy == config.OverlapStrategySerializable {
		if err = w.precheck(ctx, exec, item.CustomerID, []scheduling.Interval{candidate}, item.ID); err != nil {
			return err
		}
	}
	err = w.store.Update(ctx, exec, item)
	if errors.Is(err, sql.ErrNoRows) {
		return appErrors.Clone(appErrors.ErrNotFound, "appointment not found")
	}
	return w.translate("update", err)
}

// precheck reads the customer's active appointments spanning the batch
// inside the serializable transaction and rejects any intersection.
func (w *AppointmentWriter) precheck(ctx context.Context, exec sqlx.ExtContext, customerID string, candidates []scheduling.Interval, excludeID string) error {
	lo, hi := candidates[0].Start, candidates[0].End
	for _, c := range candidates[1:] {
		if c.Start.Before(lo) {
			lo = c.Start
		}
		if c.End.After(hi) {
			hi = c.End
		}
	}
	existing, err := w.store.ListOverlapping(ctx, exec, customerID, lo, hi, excludeID)
	if err != nil {
		if errors.Is(err, repository.ErrSerialization) {
			return err
		}
		return appErrors.Storage(err, "failed to check overlapping appointments")
	}
	if len(existing) == 0 {
		return nil
	}

	sorted := make([]scheduling.Interval, len(candidates))
	copy(sorted, candidates)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Start.Before(sorted[j].Start) })
	for _, ex := range existing {
		stored := scheduling.Interval{Start: ex.StartsAt, End: ex.EndsAt}
		// first candidate ending after the stored start is the only one that can hit it
		i := sort.Search(len(sorted), func(i int) bool { return sorted[i].End.After(stored.Start) })
		for ; i < len(sorted) && sorted[i].Start.Before(stored.End); i++ {
			if sorted[i].Overlaps(stored) {
				w.metrics.RecordConflict("commit", "precheck")
				return conflictError("appointment overlaps an existing appointment", ConflictDetails{Candidate: sorted[i], Existing: &stored, ExistingID: ex.ID})
			}
		}
	}
	return nil
}

func (w *AppointmentWriter) translate(operation string, err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, repository.ErrOverlap):
		w.metrics.RecordConflict(operation, "storage")
		w.logger.Debug("storage rejected overlapping appointment", zap.String("operation", operation), zap.Error(err))
		return appErrors.Wrap(err, appErrors.ErrConflict.Code, appErrors.ErrConflict.Status, "appointment overlaps an existing appointment")
	case errors.Is(err, repository.ErrSerialization):
		// surfaced untouched so runInTx can restart the unit
		return err
	case errors.Is(err, repository.ErrCheck):
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "appointment must end after it starts")
	case errors.Is(err, repository.ErrReference):
		return appErrors.Wrap(err, appErrors.ErrNotFound.Code, appErrors.ErrNotFound.Status, "customer not found")
	default:
		return appErrors.Storage(err, "failed to persist appointments")
	}
}

func conflictError(message string, details ConflictDetails) error {
	return appErrors.WithDetails(appErrors.ErrConflict, message, details)
}

// finishWrite maps whatever escaped a writer transaction: exhausted
// serialization retries mean a concurrent overlapping write won.
func finishWrite(err error, fallback string) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, repository.ErrSerialization):
		return appErrors.Wrap(err, appErrors.ErrConflict.Code, appErrors.ErrConflict.Status, "concurrent overlapping write detected")
	case errors.Is(err, errTxUnavailable):
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, err.Error())
	}
	var appErr *appErrors.Error
	if errors.As(err, &appErr) {
		return err
	}
	return appErrors.Storage(err, fallback)
}
