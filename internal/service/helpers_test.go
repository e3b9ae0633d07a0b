package service

import (
	"context"
	"database/sql"
	"sync"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/appointments-api/internal/models"
	"github.com/noah-isme/appointments-api/internal/repository"
)

type txProviderMock struct {
	db *sqlx.DB
}

func newTxProviderMock(t *testing.T) (txProvider, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return &txProviderMock{db: sqlx.NewDb(db, "sqlmock")}, mock
}

func (p *txProviderMock) BeginTxx(ctx context.Context, opts *sql.TxOptions) (*sqlx.Tx, error) {
	return p.db.BeginTxx(ctx, opts)
}

// memoryAppointmentStore behaves like the appointments table with its
// exclusion constraint: inserts are atomic and reject overlaps per customer.
type memoryAppointmentStore struct {
	mu          sync.Mutex
	items       []models.Appointment
	createCalls int
	bulkCalls   int
	overlapErr  error
}

func (s *memoryAppointmentStore) Create(ctx context.Context, exec sqlx.ExtContext, item *models.Appointment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.createCalls++
	return s.insertLocked([]*models.Appointment{item})
}

func (s *memoryAppointmentStore) BulkCreate(ctx context.Context, exec sqlx.ExtContext, items []models.Appointment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.bulkCalls++
	ptrs := make([]*models.Appointment, len(items))
	for i := range items {
		ptrs[i] = &items[i]
	}
	return s.insertLocked(ptrs)
}

func (s *memoryAppointmentStore) insertLocked(items []*models.Appointment) error {
	for _, item := range items {
		for _, existing := range s.items {
			if existing.CustomerID == item.CustomerID && existing.DeletedAt == nil &&
				existing.StartsAt.Before(item.EndsAt) && item.StartsAt.Before(existing.EndsAt) {
				return repository.ErrOverlap
			}
		}
	}
	now := time.Now().UTC()
	for _, item := range items {
		if item.ID == "" {
			item.ID = uuid.NewString()
		}
		item.CreatedAt, item.UpdatedAt = now, now
		s.items = append(s.items, *item)
	}
	return nil
}

func (s *memoryAppointmentStore) Update(ctx context.Context, exec sqlx.ExtContext, item *models.Appointment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	idx := -1
	for i, existing := range s.items {
		if existing.ID == item.ID && existing.DeletedAt == nil {
			idx = i
			continue
		}
		if existing.CustomerID == item.CustomerID && existing.DeletedAt == nil &&
			existing.StartsAt.Before(item.EndsAt) && item.StartsAt.Before(existing.EndsAt) {
			return repository.ErrOverlap
		}
	}
	if idx < 0 {
		return sql.ErrNoRows
	}
	s.items[idx] = *item
	return nil
}

func (s *memoryAppointmentStore) ListOverlapping(ctx context.Context, exec sqlx.ExtContext, customerID string, start, end time.Time, excludeID string) ([]models.Appointment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.overlapErr != nil {
		return nil, s.overlapErr
	}
	var out []models.Appointment
	for _, existing := range s.items {
		if existing.CustomerID != customerID || existing.DeletedAt != nil || existing.ID == excludeID {
			continue
		}
		if existing.StartsAt.Before(end) && start.Before(existing.EndsAt) {
			out = append(out, existing)
		}
	}
	return out, nil
}

func (s *memoryAppointmentStore) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.items)
}

func at(t *testing.T, value string) time.Time {
	t.Helper()
	ts, err := time.Parse(time.RFC3339, value)
	require.NoError(t, err)
	return ts
}

func strPtr(v string) *string { return &v }
