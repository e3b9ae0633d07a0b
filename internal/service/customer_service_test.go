package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/appointments-api/internal/dto"
	"github.com/noah-isme/appointments-api/internal/models"
	"github.com/noah-isme/appointments-api/internal/repository"
	appErrors "github.com/noah-isme/appointments-api/pkg/errors"
)

type customerRepoStub struct {
	items      map[string]*models.Customer
	lastFilter models.CustomerFilter
	createErr  error
	restoreErr error
}

func newCustomerRepoStub(items ...*models.Customer) *customerRepoStub {
	stub := &customerRepoStub{items: map[string]*models.Customer{}}
	for _, item := range items {
		stub.items[item.ID] = item
	}
	return stub
}

func (s *customerRepoStub) List(ctx context.Context, filter models.CustomerFilter) ([]models.Customer, int, error) {
	s.lastFilter = filter
	var out []models.Customer
	for _, item := range s.items {
		if !item.Trashed() {
			out = append(out, *item)
		}
	}
	return out, len(out), nil
}

func (s *customerRepoStub) FindByID(ctx context.Context, id string, withTrashed bool) (*models.Customer, error) {
	item, ok := s.items[id]
	if !ok || (item.Trashed() && !withTrashed) {
		return nil, sql.ErrNoRows
	}
	copied := *item
	return &copied, nil
}

func (s *customerRepoStub) EmailTaken(ctx context.Context, email, excludeID string) (bool, error) {
	for _, item := range s.items {
		if !item.Trashed() && item.ID != excludeID && strings.EqualFold(item.Email, email) {
			return true, nil
		}
	}
	return false, nil
}

func (s *customerRepoStub) Create(ctx context.Context, customer *models.Customer) error {
	if s.createErr != nil {
		return s.createErr
	}
	customer.ID = fmt.Sprintf("c%d", len(s.items)+1)
	copied := *customer
	s.items[customer.ID] = &copied
	return nil
}

func (s *customerRepoStub) Update(ctx context.Context, customer *models.Customer) error {
	if _, ok := s.items[customer.ID]; !ok {
		return sql.ErrNoRows
	}
	copied := *customer
	s.items[customer.ID] = &copied
	return nil
}

func (s *customerRepoStub) SoftDelete(ctx context.Context, id string) error {
	item, ok := s.items[id]
	if !ok || item.Trashed() {
		return sql.ErrNoRows
	}
	now := time.Now()
	item.DeletedAt = &now
	return nil
}

func (s *customerRepoStub) Restore(ctx context.Context, id string) error {
	if s.restoreErr != nil {
		return s.restoreErr
	}
	item, ok := s.items[id]
	if !ok || !item.Trashed() {
		return sql.ErrNoRows
	}
	item.DeletedAt = nil
	return nil
}

func (s *customerRepoStub) ForceDelete(ctx context.Context, id string) error {
	if _, ok := s.items[id]; !ok {
		return sql.ErrNoRows
	}
	delete(s.items, id)
	return nil
}

func TestCustomerServiceCreate(t *testing.T) {
	repo := newCustomerRepoStub(&models.Customer{ID: "c1", Name: "Ana", Email: "ana@example.com"})
	svc := NewCustomerService(repo, nil, nil, nil)
	ctx := context.Background()

	_, err := svc.Create(ctx, dto.CreateCustomerRequest{Name: "Other", Email: "ANA@example.com"})
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
	assert.Equal(t, []appErrors.FieldError{{Field: "email", Message: "has already been taken"}}, appErr.Details)

	_, err = svc.Create(ctx, dto.CreateCustomerRequest{Name: "Bad", Email: "not-an-email"})
	assert.True(t, appErrors.IsCode(err, appErrors.ErrValidation.Code))

	created, err := svc.Create(ctx, dto.CreateCustomerRequest{Name: " Bruno ", Email: "bruno@example.com"})
	require.NoError(t, err)
	assert.Equal(t, "Bruno", created.Name)
	assert.NotEmpty(t, created.ID)
}

func TestCustomerServiceCreateDuplicateRace(t *testing.T) {
	repo := newCustomerRepoStub()
	repo.createErr = fmt.Errorf("create customer: %w", repository.ErrDuplicate)
	svc := NewCustomerService(repo, nil, nil, nil)

	_, err := svc.Create(context.Background(), dto.CreateCustomerRequest{Name: "Ana", Email: "ana@example.com"})
	assert.True(t, appErrors.IsCode(err, appErrors.ErrValidation.Code))
}

func TestCustomerServiceUpdate(t *testing.T) {
	repo := newCustomerRepoStub(
		&models.Customer{ID: "c1", Name: "Ana", Email: "ana@example.com"},
		&models.Customer{ID: "c2", Name: "Bruno", Email: "bruno@example.com"},
	)
	svc := NewCustomerService(repo, nil, nil, nil)
	ctx := context.Background()

	taken := "bruno@example.com"
	_, err := svc.Update(ctx, "c1", dto.UpdateCustomerRequest{Email: &taken})
	assert.True(t, appErrors.IsCode(err, appErrors.ErrValidation.Code))

	same, phone := "ANA@example.com", "+55 11 99999-0000"
	updated, err := svc.Update(ctx, "c1", dto.UpdateCustomerRequest{Email: &same, Phone: &phone})
	require.NoError(t, err)
	assert.Equal(t, "ANA@example.com", updated.Email)
	assert.Equal(t, "Ana", updated.Name)
	require.NotNil(t, updated.Phone)

	_, err = svc.Update(ctx, "missing", dto.UpdateCustomerRequest{Phone: &phone})
	assert.True(t, appErrors.IsCode(err, appErrors.ErrNotFound.Code))
}

func TestCustomerServiceLifecycle(t *testing.T) {
	repo := newCustomerRepoStub(&models.Customer{ID: "c1", Name: "Ana", Email: "ana@example.com"})
	svc := NewCustomerService(repo, nil, nil, nil)
	ctx := context.Background()

	customer, restored, err := svc.Restore(ctx, "c1")
	require.NoError(t, err)
	assert.False(t, restored)
	assert.Equal(t, "c1", customer.ID)

	require.NoError(t, svc.Delete(ctx, "c1"))
	_, err = svc.Get(ctx, "c1")
	assert.True(t, appErrors.IsCode(err, appErrors.ErrNotFound.Code))
	assert.True(t, appErrors.IsCode(svc.Delete(ctx, "c1"), appErrors.ErrNotFound.Code))

	customer, restored, err = svc.Restore(ctx, "c1")
	require.NoError(t, err)
	assert.True(t, restored)
	assert.Nil(t, customer.DeletedAt)

	require.NoError(t, svc.ForceDelete(ctx, "c1"))
	assert.True(t, appErrors.IsCode(svc.ForceDelete(ctx, "c1"), appErrors.ErrNotFound.Code))
	_, _, err = svc.Restore(ctx, "c1")
	assert.True(t, appErrors.IsCode(err, appErrors.ErrNotFound.Code))
}

func TestCustomerServiceRestoreEmailClash(t *testing.T) {
	deleted := time.Now()
	repo := newCustomerRepoStub(&models.Customer{ID: "c1", Name: "Ana", Email: "ana@example.com", DeletedAt: &deleted})
	repo.restoreErr = fmt.Errorf("restore customer: %w", repository.ErrDuplicate)
	svc := NewCustomerService(repo, nil, nil, nil)

	_, _, err := svc.Restore(context.Background(), "c1")
	assert.True(t, appErrors.IsCode(err, appErrors.ErrConflict.Code))
}

func TestCustomerServiceList(t *testing.T) {
	repo := newCustomerRepoStub(&models.Customer{ID: "c1", Name: "Ana", Email: "ana@example.com"})
	svc := NewCustomerService(repo, nil, nil, nil)

	items, pagination, err := svc.List(context.Background(), dto.CustomerQuery{Search: "  ana ", PerPage: 1000})
	require.NoError(t, err)
	assert.Len(t, items, 1)
	assert.Equal(t, "ana", repo.lastFilter.Search)
	assert.Equal(t, 15, pagination.PageSize)
	assert.Equal(t, 1, pagination.TotalPages)
}

func TestCustomerServiceStorageFailure(t *testing.T) {
	svc := NewCustomerService(failingCustomerRepo{customerRepoStub: newCustomerRepoStub()}, nil, nil, nil)
	_, err := svc.Get(context.Background(), "c1")
	assert.True(t, appErrors.IsCode(err, appErrors.ErrStorage.Code))
}

type failingCustomerRepo struct {
	*customerRepoStub
}

func (failingCustomerRepo) FindByID(ctx context.Context, id string, withTrashed bool) (*models.Customer, error) {
	return nil, errors.New("connection reset")
}
