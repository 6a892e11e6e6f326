package material

import "errors"

var (
	ErrInvalidID          = errors.New("material: invalid id")
	ErrInvalidName        = errors.New("material: invalid name")
	ErrInvalidSKU         = errors.New("material: invalid sku")
	ErrInvalidUnit        = errors.New("material: invalid unit")
	ErrFieldTooLong       = errors.New("material: field too long")
	ErrInvalidQuantity    = errors.New("material: invalid quantity")
	ErrInvalidPrice       = errors.New("material: price per unit must be between 0 and 999999999999.99 with at most 2 decimal places")
	ErrInvalidPagination  = errors.New("material: invalid pagination")
	ErrMaterialNotFound   = errors.New("material: not found")
	ErrProjectNotFound    = errors.New("material: project not found")
	ErrAllocationNotFound = errors.New("material: allocation not found")
	ErrSKUAlreadyExists   = errors.New("material: sku already exists")
	ErrAlreadyAllocated   = errors.New("material: material already allocated to project")
)
