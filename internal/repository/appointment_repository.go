package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/appointments-api/internal/models"
)

const appointmentColumns = `id, customer_id, series_id, title, notes, starts_at, ends_at, created_at, updated_at, deleted_at`

// insertChunk bounds the rows per multi-row INSERT, well under the
// 65535 bind parameter limit.
const insertChunk = 500

// AppointmentRepository persists appointments. Every write classifies
// storage errors so overlap rejections surface as ErrOverlap.
type AppointmentRepository struct {
	db *sqlx.DB
}

// NewAppointmentRepository constructs an AppointmentRepository.
func NewAppointmentRepository(db *sqlx.DB) *AppointmentRepository {
	return &AppointmentRepository{db: db}
}

func (r *AppointmentRepository) exec(exec sqlx.ExtContext) sqlx.ExtContext {
	if exec != nil {
		return exec
	}
	return r.db
}

// List returns a customer's appointments matching the filter.
func (r *AppointmentRepository) List(ctx context.Context, filter models.AppointmentFilter) ([]models.Appointment, int, error) {
	args := []interface{}{filter.CustomerID}
	conditions := []string{"customer_id = $1"}

	switch filter.Status {
	case models.RecordStatusTrashed:
		conditions = append(conditions, "deleted_at IS NOT NULL")
	case models.RecordStatusAll:
	default:
		conditions = append(conditions, "deleted_at IS NULL")
	}
	if filter.From != nil {
		args = append(args, *filter.From)
		conditions = append(conditions, fmt.Sprintf("starts_at >= $%d", len(args)))
	}
	if filter.To != nil {
		args = append(args, *filter.To)
		conditions = append(conditions, fmt.Sprintf("ends_at <= $%d", len(args)))
	}

	base := "FROM appointments WHERE " + strings.Join(conditions, " AND ")

	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 15
	}
	offset := (page - 1) * size

	query := fmt.Sprintf("SELECT %s %s ORDER BY starts_at ASC, id ASC LIMIT %d OFFSET %d", appointmentColumns, base, size, offset)
	var items []models.Appointment
	if err := r.db.SelectContext(ctx, &items, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list appointments: %w", err)
	}

	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) "+base, args...); err != nil {
		return nil, 0, fmt.Errorf("count appointments: %w", err)
	}
	return items, total, nil
}

// ListInRange returns every active appointment of a customer starting in [from, to).
func (r *AppointmentRepository) ListInRange(ctx context.Context, customerID string, from, to time.Time) ([]models.Appointment, error) {
	query := `SELECT ` + appointmentColumns + ` FROM appointments
WHERE customer_id = $1 AND deleted_at IS NULL AND starts_at >= $2 AND starts_at < $3
ORDER BY starts_at ASC, id ASC`
	var items []models.Appointment
	if err := r.db.SelectContext(ctx, &items, query, customerID, from, to); err != nil {
		return nil, fmt.Errorf("list appointments in range: %w", err)
	}
	return items, nil
}

// FindByID loads an active appointment scoped to its owner. A foreign or
// trashed id yields sql.ErrNoRows.
func (r *AppointmentRepository) FindByID(ctx context.Context, exec sqlx.ExtContext, customerID, id string) (*models.Appointment, error) {
	query := `SELECT ` + appointmentColumns + ` FROM appointments WHERE id = $1 AND customer_id = $2 AND deleted_at IS NULL`
	var item models.Appointment
	if err := sqlx.GetContext(ctx, r.exec(exec), &item, query, id, customerID); err != nil {
		return nil, classify(err)
	}
	return &item, nil
}

// ListOverlapping returns active appointments of the customer intersecting
// [start, end). excludeID skips the row being edited.
func (r *AppointmentRepository) ListOverlapping(ctx context.Context, exec sqlx.ExtContext, customerID string, start, end time.Time, excludeID string) ([]models.Appointment, error) {
	query := `SELECT ` + appointmentColumns + ` FROM appointments
WHERE customer_id = $1 AND deleted_at IS NULL AND starts_at < $3 AND ends_at > $2`
	args := []interface{}{customerID, start, end}
	if excludeID != "" {
		query += " AND id <> $4"
		args = append(args, excludeID)
	}
	query += " ORDER BY starts_at ASC"

	var items []models.Appointment
	if err := sqlx.SelectContext(ctx, r.exec(exec), &items, query, args...); err != nil {
		return nil, fmt.Errorf("list overlapping appointments: %w", classify(err))
	}
	return items, nil
}

// Create inserts one appointment.
func (r *AppointmentRepository) Create(ctx context.Context, exec sqlx.ExtContext, item *models.Appointment) error {
	prepareAppointment(item, time.Now().UTC())
	const query = `INSERT INTO appointments (id, customer_id, series_id, title, notes, starts_at, ends_at, created_at, updated_at)
VALUES (:id, :customer_id, :series_id, :title, :notes, :starts_at, :ends_at, :created_at, :updated_at)`
	if _, err := sqlx.NamedExecContext(ctx, r.exec(exec), query, item); err != nil {
		return fmt.Errorf("create appointment: %w", classify(err))
	}
	return nil
}

// BulkCreate inserts the batch with multi-row INSERT statements. The caller
// owns the transaction; a rejected chunk leaves it aborted.
func (r *AppointmentRepository) BulkCreate(ctx context.Context, exec sqlx.ExtContext, items []models.Appointment) error {
	if len(items) == 0 {
		return nil
	}
	target := r.exec(exec)
	now := time.Now().UTC()
	for i := range items {
		prepareAppointment(&items[i], now)
	}

	const query = `INSERT INTO appointments (id, customer_id, series_id, title, notes, starts_at, ends_at, created_at, updated_at)
VALUES (:id, :customer_id, :series_id, :title, :notes, :starts_at, :ends_at, :created_at, :updated_at)`
	for start := 0; start < len(items); start += insertChunk {
		end := start + insertChunk
		if end > len(items) {
			end = len(items)
		}
		if _, err := sqlx.NamedExecContext(ctx, target, query, items[start:end]); err != nil {
			return fmt.Errorf("bulk insert appointments: %w", classify(err))
		}
	}
	return nil
}

// Update rewrites the mutable fields of an active appointment.
func (r *AppointmentRepository) Update(ctx context.Context, exec sqlx.ExtContext, item *models.Appointment) error {
	item.UpdatedAt = time.Now().UTC()
	const query = `UPDATE appointments SET title = :title, notes = :notes, starts_at = :starts_at, ends_at = :ends_at, updated_at = :updated_at
WHERE id = :id AND customer_id = :customer_id AND deleted_at IS NULL`
	res, err := sqlx.NamedExecContext(ctx, r.exec(exec), query, item)
	if err != nil {
		return fmt.Errorf("update appointment: %w", classify(err))
	}
	return requireAffected(res)
}

// SoftDelete marks an active appointment as deleted.
func (r *AppointmentRepository) SoftDelete(ctx context.Context, exec sqlx.ExtContext, customerID, id string) error {
	now := time.Now().UTC()
	res, err := r.exec(exec).ExecContext(ctx, `UPDATE appointments SET deleted_at = $1, updated_at = $1 WHERE id = $2 AND customer_id = $3 AND deleted_at IS NULL`, now, id, customerID)
	if err != nil {
		return fmt.Errorf("soft delete appointment: %w", classify(err))
	}
	return requireAffected(res)
}

// SoftDeleteFutureBySeries trashes every active instance of the series
// starting at or after from, returning how many rows were touched.
func (r *AppointmentRepository) SoftDeleteFutureBySeries(ctx context.Context, exec sqlx.ExtContext, seriesID string, from time.Time) (int64, error) {
	now := time.Now().UTC()
	res, err := r.exec(exec).ExecContext(ctx, `UPDATE appointments SET deleted_at = $1, updated_at = $1 WHERE series_id = $2 AND deleted_at IS NULL AND starts_at >= $3`, now, seriesID, from)
	if err != nil {
		return 0, fmt.Errorf("soft delete future series appointments: %w", classify(err))
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("soft delete future series appointments: %w", err)
	}
	return affected, nil
}

func prepareAppointment(item *models.Appointment, now time.Time) {
	if item.ID == "" {
		item.ID = uuid.NewString()
	}
	if item.CreatedAt.IsZero() {
		item.CreatedAt = now
	}
	item.UpdatedAt = now
	item.StartsAt = item.StartsAt.UTC()
	item.EndsAt = item.EndsAt.UTC()
}

func requireAffected(res sql.Result) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}
