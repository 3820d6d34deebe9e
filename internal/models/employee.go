package models

import "time"

// EmployeeCodePrefix is the mandatory prefix of every business employee code.
const EmployeeCodePrefix = "EMS"

// Employee represents one element of the roster document.
type Employee struct {
	ID         int64      `json:"id"`
	Name       string     `json:"name"`
	EmployeeID string     `json:"employeeId"`
	Phone      string     `json:"phone"`
	Email      string     `json:"email"`
	Password   string     `json:"password"`
	CreatedAt  time.Time  `json:"createdAt"`
	UpdatedAt  *time.Time `json:"updatedAt,omitempty"`
}

// EmployeeInput is the caller-supplied part of an employee record.
type EmployeeInput struct {
	Name       string `json:"name"       validate:"required"`
	EmployeeID string `json:"employeeId" validate:"required,emscode"`
	Phone      string `json:"phone"      validate:"required"`
	Email      string `json:"email"      validate:"required,email"`
	Password   string `json:"password"   validate:"required"`
}

// EmployeePatch is an update request. Empty fields keep the stored value.
type EmployeePatch struct {
	Name       string `json:"name"`
	EmployeeID string `json:"employeeId" validate:"omitempty,emscode"`
	Phone      string `json:"phone"`
	Email      string `json:"email"      validate:"omitempty,email"`
	Password   string `json:"password"`
}
