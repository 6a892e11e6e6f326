package material

import (
	"math"
	"time"

	"github.com/shopspring/decimal"
)

// CheckLowStock は在庫が発注点以下かどうかを返します。
func (m *Material) CheckLowStock() bool {
	return m.Quantity <= m.MinQuantity
}

// UpdateQuantity は在庫数を増減します。結果は 0 未満になりません。
func (m *Material) UpdateQuantity(delta float64, now time.Time) {
	m.Quantity = math.Max(0, m.Quantity+delta)
	m.LastUpdated = now
}

// TotalValue は在庫の評価額を返します。
func (m *Material) TotalValue() decimal.Decimal {
	return m.PricePerUnit.Mul(decimal.NewFromFloat(m.Quantity)).Round(2)
}

// AvailabilityStatus は在庫数から在庫状況を導出します。
func (m *Material) AvailabilityStatus() Availability {
	switch {
	case m.Quantity <= 0:
		return AvailabilityOutOfStock
	case m.Quantity <= m.MinQuantity:
		return AvailabilityLowStock
	default:
		return AvailabilityAvailable
	}
}

// UpdateUsage は使用量を加算します。割り当て量を超える分は切り捨てます。
func (pm *ProjectMaterial) UpdateUsage(delta float64, now time.Time) error {
	if !(delta > 0) || math.IsInf(delta, 0) {
		return ErrInvalidQuantity
	}
	pm.QuantityUsed = math.Min(pm.QuantityAllocated, pm.QuantityUsed+delta)
	pm.UpdatedAt = now
	return nil
}

// RemainingQuantity は未使用の割り当て量を返します。
func (pm *ProjectMaterial) RemainingQuantity() float64 {
	return pm.QuantityAllocated - pm.QuantityUsed
}
