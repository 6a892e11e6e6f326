package employee

import "errors"

var (
	ErrInvalidID               = errors.New("employee: invalid id")
	ErrInvalidEmail            = errors.New("employee: invalid email")
	ErrInvalidFirstName        = errors.New("employee: invalid first name")
	ErrInvalidLastName         = errors.New("employee: invalid last name")
	ErrInvalidRole             = errors.New("employee: invalid role")
	ErrInvalidDepartment       = errors.New("employee: invalid department")
	ErrInvalidHireDate         = errors.New("employee: invalid hire date")
	ErrInvalidStatus           = errors.New("employee: invalid status")
	ErrInvalidHourlyRate       = errors.New("employee: hourly rate must be between 0 and 999999999999.99 with at most 2 decimal places")
	ErrInvalidPerformanceScore = errors.New("employee: performance score must be between 0 and 100")
	ErrInvalidHours            = errors.New("employee: hours worked must be positive")
	ErrInvalidPTO              = errors.New("employee: pto balance must not be negative")
	ErrInsufficientPTO         = errors.New("employee: pto balance cannot be negative")
	ErrInvalidPagination       = errors.New("employee: invalid pagination")
	ErrEmployeeNotFound        = errors.New("employee: not found")
	ErrSupervisorNotFound      = errors.New("employee: supervisor not found")
	ErrSupervisorCycle         = errors.New("employee: supervisor assignment would create a cycle")
	ErrEmailAlreadyExists      = errors.New("employee: email already exists")
)
