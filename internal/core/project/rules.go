package project

import (
	"math"
	"time"

	"github.com/shopspring/decimal"
)

const hoursPerDay = 24

// StatusForProgress は進捗率からステータスを導出します。
func StatusForProgress(progress float64) Status {
	switch {
	case progress >= 100:
		return StatusCompleted
	case progress > 0:
		return StatusInProgress
	default:
		return StatusPending
	}
}

// UpdateStatus は現在の進捗率からステータスを再計算します。
func (p *Project) UpdateStatus() {
	p.Status = StatusForProgress(p.Progress)
}

// CalculateProgress は開始日と終了日から経過ベースの進捗率を算出します。
// 日付が揃っていない場合は保存済みの進捗率を返します。
func (p *Project) CalculateProgress(now time.Time) float64 {
	if p.StartDate.IsZero() || p.EndDate == nil {
		return p.Progress
	}

	totalDays := wholeDays(*p.EndDate, p.StartDate)
	if totalDays <= 0 {
		if p.Status == StatusCompleted {
			return 100
		}
		return p.Progress
	}
	if p.Status == StatusCompleted {
		return 100
	}

	elapsedDays := wholeDays(now, p.StartDate)
	if elapsedDays <= 0 {
		return 0
	}

	return math.Min(100, float64(elapsedDays)/float64(totalDays)*100)
}

// IsOverBudget は支出が予算を超えているかを返します。
func (p *Project) IsOverBudget(spend decimal.Decimal) bool {
	return spend.GreaterThan(p.Budget)
}

// BudgetSummary は支出額に対する予算状況を返します。
func (p *Project) BudgetSummary(spend decimal.Decimal) BudgetSummary {
	return BudgetSummary{
		ProjectID:    p.ID,
		Budget:       p.Budget,
		CurrentSpend: spend,
		Remaining:    p.Budget.Sub(spend),
		OverBudget:   p.IsOverBudget(spend),
	}
}

func wholeDays(to, from time.Time) int {
	return int(dateOnly(to).Sub(dateOnly(from)).Hours() / hoursPerDay)
}

func dateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
