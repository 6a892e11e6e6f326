package material

import (
	"time"

	"github.com/shopspring/decimal"
)

// Availability は在庫状況の区分です。
type Availability string

const (
	AvailabilityAvailable  Availability = "available"
	AvailabilityLowStock   Availability = "low_stock"
	AvailabilityOutOfStock Availability = "out_of_stock"
)

// Material は資材エンティティです。
type Material struct {
	ID           string
	Name         string
	Description  *string
	SKU          string
	Quantity     float64
	Unit         string
	MinQuantity  float64
	PricePerUnit decimal.Decimal
	SupplierID   *string
	Location     *string
	IsActive     bool
	LastOrdered  *time.Time
	LastUpdated  time.Time
	CreatedAt    time.Time
}

// ProjectMaterial はプロジェクトへの資材割り当てです。
// QuantityUsed は常に 0 以上 QuantityAllocated 以下です。
type ProjectMaterial struct {
	ID                string
	ProjectID         string
	MaterialID        string
	QuantityAllocated float64
	QuantityUsed      float64
	CreatedAt         time.Time
	UpdatedAt         time.Time
}
