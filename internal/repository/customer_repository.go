package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/appointments-api/internal/models"
)

const customerColumns = `id, name, email, phone, created_at, updated_at, deleted_at`

// CustomerRepository manages persistence for customers.
type CustomerRepository struct {
	db *sqlx.DB
}

// NewCustomerRepository constructs a CustomerRepository.
func NewCustomerRepository(db *sqlx.DB) *CustomerRepository {
	return &CustomerRepository{db: db}
}

// List returns non-deleted customers ordered by name.
func (r *CustomerRepository) List(ctx context.Context, filter models.CustomerFilter) ([]models.Customer, int, error) {
	args := []interface{}{}
	conditions := []string{"deleted_at IS NULL"}
	if filter.Search != "" {
		args = append(args, "%"+strings.ToLower(filter.Search)+"%")
		conditions = append(conditions, fmt.Sprintf("(LOWER(name) LIKE $%d OR LOWER(email) LIKE $%d)", len(args), len(args)))
	}
	base := "FROM customers WHERE " + strings.Join(conditions, " AND ")

	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 15
	}
	offset := (page - 1) * size

	query := fmt.Sprintf("SELECT %s %s ORDER BY name ASC, id ASC LIMIT %d OFFSET %d", customerColumns, base, size, offset)
	var customers []models.Customer
	if err := r.db.SelectContext(ctx, &customers, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list customers: %w", err)
	}

	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) "+base, args...); err != nil {
		return nil, 0, fmt.Errorf("count customers: %w", err)
	}
	return customers, total, nil
}

// FindByID fetches a customer; trashed rows are only returned when withTrashed is set.
func (r *CustomerRepository) FindByID(ctx context.Context, id string, withTrashed bool) (*models.Customer, error) {
	query := `SELECT ` + customerColumns + ` FROM customers WHERE id = $1`
	if !withTrashed {
		query += " AND deleted_at IS NULL"
	}
	var customer models.Customer
	if err := r.db.GetContext(ctx, &customer, query, id); err != nil {
		return nil, err
	}
	return &customer, nil
}

// EmailTaken checks uniqueness among non-deleted customers, optionally
// excluding one id.
func (r *CustomerRepository) EmailTaken(ctx context.Context, email, excludeID string) (bool, error) {
	query := "SELECT 1 FROM customers WHERE LOWER(email) = LOWER($1) AND deleted_at IS NULL"
	args := []interface{}{email}
	if excludeID != "" {
		query += " AND id <> $2"
		args = append(args, excludeID)
	}
	var exists int
	if err := r.db.GetContext(ctx, &exists, query+" LIMIT 1", args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("check customer email: %w", err)
	}
	return true, nil
}

// Create inserts a new customer.
func (r *CustomerRepository) Create(ctx context.Context, customer *models.Customer) error {
	if customer.ID == "" {
		customer.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if customer.CreatedAt.IsZero() {
		customer.CreatedAt = now
	}
	customer.UpdatedAt = now
	const query = `INSERT INTO customers (id, name, email, phone, created_at, updated_at)
VALUES (:id, :name, :email, :phone, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, customer); err != nil {
		return fmt.Errorf("create customer: %w", classify(err))
	}
	return nil
}

// Update modifies an existing, non-deleted customer.
func (r *CustomerRepository) Update(ctx context.Context, customer *models.Customer) error {
	customer.UpdatedAt = time.Now().UTC()
	const query = `UPDATE customers SET name = :name, email = :email, phone = :phone, updated_at = :updated_at WHERE id = :id AND deleted_at IS NULL`
	res, err := r.db.NamedExecContext(ctx, query, customer)
	if err != nil {
		return fmt.Errorf("update customer: %w", classify(err))
	}
	return requireAffected(res)
}

// SoftDelete marks the customer deleted; appointments and series are kept.
func (r *CustomerRepository) SoftDelete(ctx context.Context, id string) error {
	now := time.Now().UTC()
	res, err := r.db.ExecContext(ctx, `UPDATE customers SET deleted_at = $1, updated_at = $1 WHERE id = $2 AND deleted_at IS NULL`, now, id)
	if err != nil {
		return fmt.Errorf("soft delete customer: %w", err)
	}
	return requireAffected(res)
}

// Restore clears the soft-delete marker.
func (r *CustomerRepository) Restore(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `UPDATE customers SET deleted_at = NULL, updated_at = $1 WHERE id = $2 AND deleted_at IS NOT NULL`, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("restore customer: %w", classify(err))
	}
	return requireAffected(res)
}

// ForceDelete removes the row; series and appointments cascade in storage.
func (r *CustomerRepository) ForceDelete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM customers WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("force delete customer: %w", err)
	}
	return requireAffected(res)
}
