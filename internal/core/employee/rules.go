package employee

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	minPerformanceScore = 0
	maxPerformanceScore = 100

	moneyScale = 2
)

// UpdateStatus はステータスを変更し、変更時刻を記録します。
func (e *Employee) UpdateStatus(status Status, now time.Time) error {
	if !status.Valid() {
		return ErrInvalidStatus
	}
	e.Status = status
	e.LastStatusUpdate = now
	return nil
}

// UpdatePerformanceScore は評価スコアを更新します。0 以上 100 以下のみ受け付けます。
func (e *Employee) UpdatePerformanceScore(score float64) error {
	if !validPerformanceScore(score) {
		return ErrInvalidPerformanceScore
	}
	e.PerformanceScore = score
	return nil
}

// AddHoursWorked は稼働時間を加算します。正の値のみ受け付けます。
func (e *Employee) AddHoursWorked(hours float64) error {
	if !(hours > 0) {
		return ErrInvalidHours
	}
	e.TotalHoursWorked += hours
	return nil
}

// AdjustPTO は有給残高を増減します。結果が負になる場合は変更しません。
func (e *Employee) AdjustPTO(delta float64) error {
	next := e.AvailablePTO + delta
	if next < 0 {
		return ErrInsufficientPTO
	}
	e.AvailablePTO = next
	return nil
}

// StatusSnapshot は現在のステータスを返します。
func (e *Employee) StatusSnapshot() StatusSnapshot {
	return StatusSnapshot{
		EmployeeID:       e.ID,
		Status:           e.Status,
		LastStatusUpdate: e.LastStatusUpdate,
	}
}

// PerformanceMetrics は評価スコアと稼働実績から指標を算出します。
func (e *Employee) PerformanceMetrics() PerformanceMetrics {
	return PerformanceMetrics{
		EmployeeID:       e.ID,
		PerformanceScore: e.PerformanceScore,
		Rating:           RatingFor(e.PerformanceScore),
		TotalHoursWorked: e.TotalHoursWorked,
		AvailablePTO:     e.AvailablePTO,
		HourlyRate:       e.HourlyRate,
		LaborCost:        e.HourlyRate.Mul(decimal.NewFromFloat(e.TotalHoursWorked)).Round(2),
	}
}

// RatingFor はスコアを評価区分に変換します。
func RatingFor(score float64) Rating {
	switch {
	case score >= 90:
		return RatingExcellent
	case score >= 75:
		return RatingGood
	case score >= 50:
		return RatingSatisfactory
	default:
		return RatingNeedsImprovement
	}
}

func validPerformanceScore(score float64) bool {
	return score >= minPerformanceScore && score <= maxPerformanceScore
}

// maxMoney は NUMERIC(14,2) に収まらない最小の金額です。
var maxMoney = decimal.New(1, 12)

// validMoney は金額が 0 以上で上限未満かつ小数点以下 2 桁以内であることを確認します。
func validMoney(d decimal.Decimal) bool {
	return !d.IsNegative() && d.LessThan(maxMoney) && d.Equal(d.Truncate(moneyScale))
}
