package project

import "errors"

var (
	ErrInvalidID          = errors.New("project: invalid id")
	ErrInvalidName        = errors.New("project: invalid name")
	ErrFieldTooLong       = errors.New("project: field too long")
	ErrInvalidStartDate   = errors.New("project: invalid start date")
	ErrInvalidEndDate     = errors.New("project: invalid end date")
	ErrInvalidDateRange   = errors.New("project: end date must not precede start date")
	ErrInvalidBudget      = errors.New("project: budget must be between 0 and 999999999999.99 with at most 2 decimal places")
	ErrInvalidProgress    = errors.New("project: progress must be between 0 and 100")
	ErrInvalidStatus      = errors.New("project: invalid status")
	ErrInvalidPriority    = errors.New("project: priority must be between 1 and 5")
	ErrInvalidSpend       = errors.New("project: current spend must not be negative")
	ErrInvalidPagination  = errors.New("project: invalid pagination")
	ErrProjectNotFound    = errors.New("project: not found")
	ErrEmployeeNotFound   = errors.New("project: employee not found")
	ErrAssignmentNotFound = errors.New("project: assignment not found")
	ErrAlreadyAssigned    = errors.New("project: employee already assigned")
)
