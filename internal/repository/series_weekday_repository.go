package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/noah-isme/appointments-api/internal/models"
)

const weekdayColumns = `id, series_id, weekday, start_time, end_time, created_at`

// SeriesWeekdayRepository manages the weekly slots of a series.
type SeriesWeekdayRepository struct {
	db *sqlx.DB
}

// NewSeriesWeekdayRepository builds repository.
func NewSeriesWeekdayRepository(db *sqlx.DB) *SeriesWeekdayRepository {
	return &SeriesWeekdayRepository{db: db}
}

func (r *SeriesWeekdayRepository) exec(exec sqlx.ExtContext) sqlx.ExtContext {
	if exec != nil {
		return exec
	}
	return r.db
}

// ListBySeries returns the slots of one series ordered by weekday then start.
func (r *SeriesWeekdayRepository) ListBySeries(ctx context.Context, exec sqlx.ExtContext, seriesID string) ([]models.SeriesWeekday, error) {
	query := `SELECT ` + weekdayColumns + ` FROM series_weekdays WHERE series_id = $1 ORDER BY weekday ASC, start_time ASC, end_time ASC`
	var slots []models.SeriesWeekday
	if err := sqlx.SelectContext(ctx, r.exec(exec), &slots, query, seriesID); err != nil {
		return nil, fmt.Errorf("list series weekdays: %w", classify(err))
	}
	return slots, nil
}

// ListBySeriesIDs loads the slots of many series at once, grouped by series.
func (r *SeriesWeekdayRepository) ListBySeriesIDs(ctx context.Context, seriesIDs []string) (map[string][]models.SeriesWeekday, error) {
	grouped := make(map[string][]models.SeriesWeekday, len(seriesIDs))
	if len(seriesIDs) == 0 {
		return grouped, nil
	}
	query := `SELECT ` + weekdayColumns + ` FROM series_weekdays WHERE series_id = ANY($1) ORDER BY series_id, weekday ASC, start_time ASC, end_time ASC`
	var slots []models.SeriesWeekday
	if err := r.db.SelectContext(ctx, &slots, query, pq.Array(seriesIDs)); err != nil {
		return nil, fmt.Errorf("list weekdays for series: %w", err)
	}
	for _, slot := range slots {
		grouped[slot.SeriesID] = append(grouped[slot.SeriesID], slot)
	}
	return grouped, nil
}

// Replace deletes every slot of the series and inserts the given set, which
// may be empty.
func (r *SeriesWeekdayRepository) Replace(ctx context.Context, exec sqlx.ExtContext, seriesID string, slots []models.SeriesWeekday) error {
	if _, err := r.exec(exec).ExecContext(ctx, `DELETE FROM series_weekdays WHERE series_id = $1`, seriesID); err != nil {
		return fmt.Errorf("clear series weekdays: %w", classify(err))
	}
	return r.InsertBatch(ctx, exec, seriesID, slots)
}

// InsertBatch stores new slots for the series.
func (r *SeriesWeekdayRepository) InsertBatch(ctx context.Context, exec sqlx.ExtContext, seriesID string, slots []models.SeriesWeekday) error {
	if len(slots) == 0 {
		return nil
	}
	now := time.Now().UTC()
	for i := range slots {
		slot := &slots[i]
		if slot.ID == "" {
			slot.ID = uuid.NewString()
		}
		slot.SeriesID = seriesID
		if slot.CreatedAt.IsZero() {
			slot.CreatedAt = now
		}
	}

	const query = `INSERT INTO series_weekdays (id, series_id, weekday, start_time, end_time, created_at)
VALUES (:id, :series_id, :weekday, :start_time, :end_time, :created_at)`
	if _, err := sqlx.NamedExecContext(ctx, r.exec(exec), query, slots); err != nil {
		return fmt.Errorf("insert series weekdays: %w", classify(err))
	}
	return nil
}
