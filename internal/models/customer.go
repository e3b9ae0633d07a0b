package models

import "time"

// Customer owns appointments and appointment series.
type Customer struct {
	ID        string     `db:"id" json:"id"`
	Name      string     `db:"name" json:"name"`
	Email     string     `db:"email" json:"email"`
	Phone     *string    `db:"phone" json:"phone,omitempty"`
	CreatedAt time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt time.Time  `db:"updated_at" json:"updated_at"`
	DeletedAt *time.Time `db:"deleted_at" json:"deleted_at,omitempty"`
}

// Trashed reports whether the customer is soft-deleted.
func (c Customer) Trashed() bool {
	return c.DeletedAt != nil
}

// CustomerFilter encapsulates allowed search parameters for listing customers.
type CustomerFilter struct {
	Search   string
	Page     int
	PageSize int
}
