package project

import (
	"time"

	"github.com/shopspring/decimal"
)

// Status はプロジェクトの進行状態を表します。
type Status string

const (
	StatusPending    Status = "PENDING"
	StatusInProgress Status = "IN_PROGRESS"
	StatusCompleted  Status = "COMPLETED"
)

// Valid は定義済みのステータスかどうかを返します。
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusInProgress, StatusCompleted:
		return true
	default:
		return false
	}
}

// Project はプロジェクトエンティティです。
type Project struct {
	ID          string
	Name        string
	Description *string
	StartDate   time.Time
	EndDate     *time.Time
	Budget      decimal.Decimal
	Progress    float64
	Status      Status
	ClientName  *string
	Priority    int
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Assignment はプロジェクトと社員の割り当てです。
type Assignment struct {
	ID         string
	ProjectID  string
	EmployeeID string
	Role       *string
	AssignedAt time.Time
}

// BudgetSummary は予算と支出の比較結果です。
type BudgetSummary struct {
	ProjectID    string
	Budget       decimal.Decimal
	CurrentSpend decimal.Decimal
	Remaining    decimal.Decimal
	OverBudget   bool
}

// ProgressReport は進捗更新の結果です。
type ProgressReport struct {
	ProjectID          string
	Progress           float64
	Status             Status
	CalculatedProgress float64
}
