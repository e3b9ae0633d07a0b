package dto

// CreateCustomerRequest defines payload for registering a customer.
type CreateCustomerRequest struct {
	Name  string  `json:"name" validate:"required,max=150"`
	Email string  `json:"email" validate:"required,email,max=255"`
	Phone *string `json:"phone" validate:"omitempty,max=32"`
}

// UpdateCustomerRequest carries a partial customer update.
type UpdateCustomerRequest struct {
	Name  *string `json:"name" validate:"omitempty,min=1,max=150"`
	Email *string `json:"email" validate:"omitempty,email,max=255"`
	Phone *string `json:"phone" validate:"omitempty,max=32"`
}

// CustomerQuery captures list parameters.
type CustomerQuery struct {
	Search  string `form:"search"`
	Page    int    `form:"page"`
	PerPage int    `form:"per_page"`
}
