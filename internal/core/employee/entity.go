package employee

import (
	"time"

	"github.com/shopspring/decimal"
)

// Status は社員の状態を表します。
type Status string

const (
	StatusActive     Status = "active"
	StatusInactive   Status = "inactive"
	StatusOnLeave    Status = "on_leave"
	StatusSick       Status = "sick"
	StatusTerminated Status = "terminated"
)

// Valid は定義済みのステータスかどうかを返します。
func (s Status) Valid() bool {
	switch s {
	case StatusActive, StatusInactive, StatusOnLeave, StatusSick, StatusTerminated:
		return true
	default:
		return false
	}
}

// Role は社員の職位を表します。
type Role string

const (
	RoleManager    Role = "manager"
	RoleSupervisor Role = "supervisor"
	RoleTechnician Role = "technician"
	RoleWorker     Role = "worker"
	RoleIntern     Role = "intern"
)

// Valid は定義済みの職位かどうかを返します。
func (r Role) Valid() bool {
	switch r {
	case RoleManager, RoleSupervisor, RoleTechnician, RoleWorker, RoleIntern:
		return true
	default:
		return false
	}
}

// Employee は社員エンティティです。
// SupervisorID は上長への参照で、上長関係は木構造 (循環なし) を保ちます。
type Employee struct {
	ID               string
	Email            string
	FirstName        string
	LastName         string
	Role             Role
	Department       string
	HireDate         time.Time
	Status           Status
	HourlyRate       decimal.Decimal
	IsSupervisor     bool
	SupervisorID     *string
	LastStatusUpdate time.Time
	PerformanceScore float64
	TotalHoursWorked float64
	AvailablePTO     float64
	PhoneNumber      *string
	EmergencyContact *string
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// FullName は表示用の氏名を返します。
func (e *Employee) FullName() string {
	return e.FirstName + " " + e.LastName
}

// StatusSnapshot は社員の現在ステータスです。
type StatusSnapshot struct {
	EmployeeID       string
	Status           Status
	LastStatusUpdate time.Time
}

// Rating は評価スコアの区分です。
type Rating string

const (
	RatingExcellent        Rating = "excellent"
	RatingGood             Rating = "good"
	RatingSatisfactory     Rating = "satisfactory"
	RatingNeedsImprovement Rating = "needs_improvement"
)

// PerformanceMetrics は社員の実績指標です。
type PerformanceMetrics struct {
	EmployeeID       string
	PerformanceScore float64
	Rating           Rating
	TotalHoursWorked float64
	AvailablePTO     float64
	HourlyRate       decimal.Decimal
	LaborCost        decimal.Decimal
}
