package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/noah-isme/appointments-api/internal/models"
)

const seriesColumns = `id, customer_id, title, notes, timezone, starts_on, ends_on, is_active, created_at, updated_at`

// SeriesRepository persists appointment series rows.
type SeriesRepository struct {
	db *sqlx.DB
}

// NewSeriesRepository constructs a SeriesRepository.
func NewSeriesRepository(db *sqlx.DB) *SeriesRepository {
	return &SeriesRepository{db: db}
}

func (r *SeriesRepository) exec(exec sqlx.ExtContext) sqlx.ExtContext {
	if exec != nil {
		return exec
	}
	return r.db
}

// List returns a customer's series, newest first.
func (r *SeriesRepository) List(ctx context.Context, filter models.SeriesFilter) ([]models.AppointmentSeries, error) {
	conditions := []string{"customer_id = $1"}
	switch filter.Status {
	case models.SeriesStatusInactive:
		conditions = append(conditions, "is_active = FALSE")
	case models.SeriesStatusAll:
	default:
		conditions = append(conditions, "is_active = TRUE")
	}
	query := fmt.Sprintf("SELECT %s FROM appointment_series WHERE %s ORDER BY created_at DESC, id DESC", seriesColumns, strings.Join(conditions, " AND "))

	var items []models.AppointmentSeries
	if err := r.db.SelectContext(ctx, &items, query, filter.CustomerID); err != nil {
		return nil, fmt.Errorf("list series: %w", err)
	}
	return items, nil
}

// FindByID loads a series scoped to its owner.
func (r *SeriesRepository) FindByID(ctx context.Context, exec sqlx.ExtContext, customerID, id string) (*models.AppointmentSeries, error) {
	return r.find(ctx, exec, customerID, id, "")
}

// FindByIDForUpdate is FindByID holding a row lock until the enclosing
// transaction ends, so concurrent partial updates apply one after another.
func (r *SeriesRepository) FindByIDForUpdate(ctx context.Context, exec sqlx.ExtContext, customerID, id string) (*models.AppointmentSeries, error) {
	return r.find(ctx, exec, customerID, id, " FOR UPDATE")
}

func (r *SeriesRepository) find(ctx context.Context, exec sqlx.ExtContext, customerID, id, lock string) (*models.AppointmentSeries, error) {
	query := `SELECT ` + seriesColumns + ` FROM appointment_series WHERE id = $1 AND customer_id = $2` + lock
	var item models.AppointmentSeries
	if err := sqlx.GetContext(ctx, r.exec(exec), &item, query, id, customerID); err != nil {
		return nil, classify(err)
	}
	return &item, nil
}

// ListByIDs loads the customer's series among ids, keyed by id.
func (r *SeriesRepository) ListByIDs(ctx context.Context, customerID string, ids []string) (map[string]models.AppointmentSeries, error) {
	found := make(map[string]models.AppointmentSeries, len(ids))
	if len(ids) == 0 {
		return found, nil
	}
	query := `SELECT ` + seriesColumns + ` FROM appointment_series WHERE customer_id = $1 AND id = ANY($2)`
	var items []models.AppointmentSeries
	if err := r.db.SelectContext(ctx, &items, query, customerID, pq.Array(ids)); err != nil {
		return nil, fmt.Errorf("list series by ids: %w", err)
	}
	for _, item := range items {
		found[item.ID] = item
	}
	return found, nil
}

// Create inserts a new series.
func (r *SeriesRepository) Create(ctx context.Context, exec sqlx.ExtContext, series *models.AppointmentSeries) error {
	if series.ID == "" {
		series.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if series.CreatedAt.IsZero() {
		series.CreatedAt = now
	}
	series.UpdatedAt = now

	const query = `INSERT INTO appointment_series (id, customer_id, title, notes, timezone, starts_on, ends_on, is_active, created_at, updated_at)
VALUES (:id, :customer_id, :title, :notes, :timezone, :starts_on, :ends_on, :is_active, :created_at, :updated_at)`
	if _, err := sqlx.NamedExecContext(ctx, r.exec(exec), query, series); err != nil {
		return fmt.Errorf("create series: %w", classify(err))
	}
	return nil
}

// Update rewrites every mutable column of the series.
func (r *SeriesRepository) Update(ctx context.Context, exec sqlx.ExtContext, series *models.AppointmentSeries) error {
	series.UpdatedAt = time.Now().UTC()
	const query = `UPDATE appointment_series SET title = :title, notes = :notes, timezone = :timezone, starts_on = :starts_on,
ends_on = :ends_on, is_active = :is_active, updated_at = :updated_at WHERE id = :id AND customer_id = :customer_id`
	res, err := sqlx.NamedExecContext(ctx, r.exec(exec), query, series)
	if err != nil {
		return fmt.Errorf("update series: %w", classify(err))
	}
	return requireAffected(res)
}

// SetActive flips the activation flag.
func (r *SeriesRepository) SetActive(ctx context.Context, exec sqlx.ExtContext, customerID, id string, active bool) error {
	res, err := r.exec(exec).ExecContext(ctx, `UPDATE appointment_series SET is_active = $1, updated_at = $2 WHERE id = $3 AND customer_id = $4`, active, time.Now().UTC(), id, customerID)
	if err != nil {
		return fmt.Errorf("set series active: %w", classify(err))
	}
	return requireAffected(res)
}
