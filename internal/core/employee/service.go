package employee

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Clock は現在時刻を提供します。
type Clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time {
	return time.Now().UTC()
}

// TransactionManager はトランザクション制御の抽象化です。
type TransactionManager interface {
	WithinReadOnly(ctx context.Context, fn func(context.Context) error) error
	WithinReadWrite(ctx context.Context, fn func(context.Context) error) error
}

type noopTransactionManager struct{}

func (noopTransactionManager) WithinReadOnly(ctx context.Context, fn func(context.Context) error) error {
	if fn == nil {
		return nil
	}
	return fn(ctx)
}

func (noopTransactionManager) WithinReadWrite(ctx context.Context, fn func(context.Context) error) error {
	if fn == nil {
		return nil
	}
	return fn(ctx)
}

const (
	DefaultListLimit = 100
	MaxListLimit     = 500
)

// Service は社員に関するユースケースをまとめます。
type Service struct {
	repo  Repository
	clock Clock
	tx    TransactionManager
}

// UseCase は社員ユースケースの公開インターフェースです。
type UseCase interface {
	CreateEmployee(ctx context.Context, in CreateEmployeeInput) (*Employee, error)
	GetEmployee(ctx context.Context, in GetEmployeeInput) (*Employee, error)
	ListEmployees(ctx context.Context, in ListEmployeesInput) ([]*Employee, error)
	UpdateEmployee(ctx context.Context, in UpdateEmployeeInput) (*Employee, error)
	DeleteEmployee(ctx context.Context, in DeleteEmployeeInput) error
	GetEmployeeStatus(ctx context.Context, in GetEmployeeInput) (*StatusSnapshot, error)
	GetEmployeePerformance(ctx context.Context, in GetEmployeeInput) (*PerformanceMetrics, error)
	UpdateEmployeeStatus(ctx context.Context, in UpdateStatusInput) (*Employee, error)
	UpdatePerformanceScore(ctx context.Context, in UpdatePerformanceInput) (*Employee, error)
	RecordHours(ctx context.Context, in RecordHoursInput) (*Employee, error)
	AdjustPTO(ctx context.Context, in AdjustPTOInput) (*Employee, error)
	ListSubordinates(ctx context.Context, in GetEmployeeInput) ([]*Employee, error)
}

// NewService は Service を生成します。
func NewService(repo Repository, clock Clock, tx TransactionManager) *Service {
	if clock == nil {
		clock = realClock{}
	}
	if tx == nil {
		tx = noopTransactionManager{}
	}
	return &Service{repo: repo, clock: clock, tx: tx}
}

// CreateEmployeeInput は社員作成時の入力です。
type CreateEmployeeInput struct {
	Email            string
	FirstName        string
	LastName         string
	Role             Role
	Department       string
	HireDate         time.Time
	Status           *Status
	HourlyRate       decimal.Decimal
	IsSupervisor     bool
	SupervisorID     *string
	PerformanceScore *float64
	TotalHoursWorked *float64
	AvailablePTO     *float64
	PhoneNumber      *string
	EmergencyContact *string
}

// UpdateEmployeeInput は社員更新時の入力です。nil のフィールドは変更しません。
// XxxSet が true の場合は nil を含めてその値で置き換えます。
type UpdateEmployeeInput struct {
	ID                  string
	Email               *string
	FirstName           *string
	LastName            *string
	Role                *Role
	Department          *string
	HireDate            *time.Time
	Status              *Status
	HourlyRate          *decimal.Decimal
	IsSupervisor        *bool
	SupervisorID        *string
	SupervisorIDSet     bool
	PerformanceScore    *float64
	AvailablePTO        *float64
	PhoneNumber         *string
	PhoneNumberSet      bool
	EmergencyContact    *string
	EmergencyContactSet bool
}

// GetEmployeeInput は社員取得時の入力です。
type GetEmployeeInput struct {
	ID string
}

// DeleteEmployeeInput は社員削除時の入力です。
type DeleteEmployeeInput struct {
	ID string
}

// ListEmployeesInput は一覧取得時の入力です。
type ListEmployeesInput struct {
	Skip       int
	Limit      int
	Status     *Status
	Department *string
}

// UpdateStatusInput はステータス変更時の入力です。
type UpdateStatusInput struct {
	ID     string
	Status Status
}

// UpdatePerformanceInput は評価スコア更新時の入力です。
type UpdatePerformanceInput struct {
	ID    string
	Score float64
}

// RecordHoursInput は稼働時間記録時の入力です。
type RecordHoursInput struct {
	ID    string
	Hours float64
}

// AdjustPTOInput は有給残高調整時の入力です。
type AdjustPTOInput struct {
	ID    string
	Delta float64
}

// CreateEmployee は新しい社員を作成します。
func (s *Service) CreateEmployee(ctx context.Context, in CreateEmployeeInput) (*Employee, error) {
	email, err := normalizeEmail(in.Email)
	if err != nil {
		return nil, err
	}
	firstName := strings.TrimSpace(in.FirstName)
	if firstName == "" {
		return nil, ErrInvalidFirstName
	}
	lastName := strings.TrimSpace(in.LastName)
	if lastName == "" {
		return nil, ErrInvalidLastName
	}
	if !in.Role.Valid() {
		return nil, ErrInvalidRole
	}
	department := strings.TrimSpace(in.Department)
	if department == "" {
		return nil, ErrInvalidDepartment
	}
	if in.HireDate.IsZero() {
		return nil, ErrInvalidHireDate
	}
	if !validMoney(in.HourlyRate) {
		return nil, ErrInvalidHourlyRate
	}

	status := StatusActive
	if in.Status != nil {
		if !in.Status.Valid() {
			return nil, ErrInvalidStatus
		}
		status = *in.Status
	}

	var score, hours, pto float64
	if in.PerformanceScore != nil {
		if !validPerformanceScore(*in.PerformanceScore) {
			return nil, ErrInvalidPerformanceScore
		}
		score = *in.PerformanceScore
	}
	if in.TotalHoursWorked != nil {
		if *in.TotalHoursWorked < 0 {
			return nil, ErrInvalidHours
		}
		hours = *in.TotalHoursWorked
	}
	if in.AvailablePTO != nil {
		if *in.AvailablePTO < 0 {
			return nil, ErrInvalidPTO
		}
		pto = *in.AvailablePTO
	}

	var supervisorID *string
	if in.SupervisorID != nil {
		id, err := normalizeID(*in.SupervisorID)
		if err != nil {
			return nil, fmt.Errorf("supervisor_id: %w", err)
		}
		supervisorID = &id
	}

	var created *Employee
	if err := s.tx.WithinReadWrite(ctx, func(txCtx context.Context) error {
		if supervisorID != nil {
			if err := s.ensureValidSupervisor(txCtx, "", *supervisorID); err != nil {
				return err
			}
		}

		now := s.clock.Now()
		emp := &Employee{
			Email:            email,
			FirstName:        firstName,
			LastName:         lastName,
			Role:             in.Role,
			Department:       department,
			HireDate:         normalizeDate(in.HireDate),
			Status:           status,
			HourlyRate:       in.HourlyRate,
			IsSupervisor:     in.IsSupervisor,
			SupervisorID:     supervisorID,
			LastStatusUpdate: now,
			PerformanceScore: score,
			TotalHoursWorked: hours,
			AvailablePTO:     pto,
			PhoneNumber:      trimOptional(in.PhoneNumber),
			EmergencyContact: trimOptional(in.EmergencyContact),
			CreatedAt:        now,
			UpdatedAt:        now,
		}

		result, err := s.repo.Create(txCtx, emp)
		if err != nil {
			return err
		}
		created = result
		return nil
	}); err != nil {
		return nil, err
	}

	return created, nil
}

// UpdateEmployee は社員情報を部分更新します。
func (s *Service) UpdateEmployee(ctx context.Context, in UpdateEmployeeInput) (*Employee, error) {
	return s.mutate(ctx, in.ID, func(txCtx context.Context, existing *Employee, now time.Time) error {
		if in.Email != nil {
			email, err := normalizeEmail(*in.Email)
			if err != nil {
				return err
			}
			existing.Email = email
		}
		if in.FirstName != nil {
			name := strings.TrimSpace(*in.FirstName)
			if name == "" {
				return ErrInvalidFirstName
			}
			existing.FirstName = name
		}
		if in.LastName != nil {
			name := strings.TrimSpace(*in.LastName)
			if name == "" {
				return ErrInvalidLastName
			}
			existing.LastName = name
		}
		if in.Role != nil {
			if !in.Role.Valid() {
				return ErrInvalidRole
			}
			existing.Role = *in.Role
		}
		if in.Department != nil {
			department := strings.TrimSpace(*in.Department)
			if department == "" {
				return ErrInvalidDepartment
			}
			existing.Department = department
		}
		if in.HireDate != nil {
			if in.HireDate.IsZero() {
				return ErrInvalidHireDate
			}
			existing.HireDate = normalizeDate(*in.HireDate)
		}
		if in.Status != nil && *in.Status != existing.Status {
			if err := existing.UpdateStatus(*in.Status, now); err != nil {
				return err
			}
		}
		if in.HourlyRate != nil {
			if !validMoney(*in.HourlyRate) {
				return ErrInvalidHourlyRate
			}
			existing.HourlyRate = *in.HourlyRate
		}
		if in.IsSupervisor != nil {
			existing.IsSupervisor = *in.IsSupervisor
		}
		if in.SupervisorIDSet {
			if in.SupervisorID == nil {
				existing.SupervisorID = nil
			} else {
				id, err := normalizeID(*in.SupervisorID)
				if err != nil {
					return fmt.Errorf("supervisor_id: %w", err)
				}
				if err := s.ensureValidSupervisor(txCtx, existing.ID, id); err != nil {
					return err
				}
				existing.SupervisorID = &id
			}
		}
		if in.PerformanceScore != nil {
			if err := existing.UpdatePerformanceScore(*in.PerformanceScore); err != nil {
				return err
			}
		}
		if in.AvailablePTO != nil {
			if *in.AvailablePTO < 0 {
				return ErrInvalidPTO
			}
			existing.AvailablePTO = *in.AvailablePTO
		}
		if in.PhoneNumberSet {
			existing.PhoneNumber = trimOptional(in.PhoneNumber)
		}
		if in.EmergencyContactSet {
			existing.EmergencyContact = trimOptional(in.EmergencyContact)
		}
		return nil
	})
}

// DeleteEmployee は社員を削除します。
func (s *Service) DeleteEmployee(ctx context.Context, in DeleteEmployeeInput) error {
	id, err := normalizeID(in.ID)
	if err != nil {
		return fmt.Errorf("id: %w", err)
	}

	return s.tx.WithinReadWrite(ctx, func(txCtx context.Context) error {
		return s.repo.Delete(txCtx, id)
	})
}

// GetEmployee は社員を取得します。
func (s *Service) GetEmployee(ctx context.Context, in GetEmployeeInput) (*Employee, error) {
	id, err := normalizeID(in.ID)
	if err != nil {
		return nil, fmt.Errorf("id: %w", err)
	}

	var result *Employee
	if err := s.tx.WithinReadOnly(ctx, func(txCtx context.Context) error {
		found, err := s.repo.FindByID(txCtx, id)
		if err != nil {
			return err
		}
		result = found
		return nil
	}); err != nil {
		return nil, err
	}

	return result, nil
}

// ListEmployees は社員の一覧を取得します。
func (s *Service) ListEmployees(ctx context.Context, in ListEmployeesInput) ([]*Employee, error) {
	limit, err := normalizeLimit(in.Limit)
	if err != nil {
		return nil, err
	}
	if in.Skip < 0 {
		return nil, ErrInvalidPagination
	}

	filter := ListEmployeesFilter{Limit: limit, Offset: in.Skip}
	if in.Status != nil {
		if !in.Status.Valid() {
			return nil, ErrInvalidStatus
		}
		status := *in.Status
		filter.Status = &status
	}
	if department := trimOptional(in.Department); department != nil {
		filter.Department = department
	}

	var employees []*Employee
	if err := s.tx.WithinReadOnly(ctx, func(txCtx context.Context) error {
		result, err := s.repo.List(txCtx, filter)
		if err != nil {
			return err
		}
		employees = result
		return nil
	}); err != nil {
		return nil, err
	}

	return employees, nil
}

// GetEmployeeStatus は社員の現在ステータスを返します。
func (s *Service) GetEmployeeStatus(ctx context.Context, in GetEmployeeInput) (*StatusSnapshot, error) {
	emp, err := s.GetEmployee(ctx, in)
	if err != nil {
		return nil, err
	}
	snapshot := emp.StatusSnapshot()
	return &snapshot, nil
}

// GetEmployeePerformance は社員の実績指標を返します。
func (s *Service) GetEmployeePerformance(ctx context.Context, in GetEmployeeInput) (*PerformanceMetrics, error) {
	emp, err := s.GetEmployee(ctx, in)
	if err != nil {
		return nil, err
	}
	metrics := emp.PerformanceMetrics()
	return &metrics, nil
}

// UpdateEmployeeStatus は社員のステータスを変更します。
func (s *Service) UpdateEmployeeStatus(ctx context.Context, in UpdateStatusInput) (*Employee, error) {
	if !in.Status.Valid() {
		return nil, ErrInvalidStatus
	}
	return s.mutate(ctx, in.ID, func(_ context.Context, existing *Employee, now time.Time) error {
		return existing.UpdateStatus(in.Status, now)
	})
}

// UpdatePerformanceScore は評価スコアを更新します。
func (s *Service) UpdatePerformanceScore(ctx context.Context, in UpdatePerformanceInput) (*Employee, error) {
	if !validPerformanceScore(in.Score) {
		return nil, ErrInvalidPerformanceScore
	}
	return s.mutate(ctx, in.ID, func(_ context.Context, existing *Employee, _ time.Time) error {
		return existing.UpdatePerformanceScore(in.Score)
	})
}

// RecordHours は稼働時間を加算します。
func (s *Service) RecordHours(ctx context.Context, in RecordHoursInput) (*Employee, error) {
	if !(in.Hours > 0) {
		return nil, ErrInvalidHours
	}
	return s.mutate(ctx, in.ID, func(_ context.Context, existing *Employee, _ time.Time) error {
		return existing.AddHoursWorked(in.Hours)
	})
}

// AdjustPTO は有給残高を増減します。
func (s *Service) AdjustPTO(ctx context.Context, in AdjustPTOInput) (*Employee, error) {
	return s.mutate(ctx, in.ID, func(_ context.Context, existing *Employee, _ time.Time) error {
		return existing.AdjustPTO(in.Delta)
	})
}

// ListSubordinates は直属の部下を返します。
func (s *Service) ListSubordinates(ctx context.Context, in GetEmployeeInput) ([]*Employee, error) {
	id, err := normalizeID(in.ID)
	if err != nil {
		return nil, fmt.Errorf("id: %w", err)
	}

	var subordinates []*Employee
	if err := s.tx.WithinReadOnly(ctx, func(txCtx context.Context) error {
		if _, err := s.repo.FindByID(txCtx, id); err != nil {
			return err
		}
		result, err := s.repo.ListBySupervisor(txCtx, id)
		if err != nil {
			return err
		}
		subordinates = result
		return nil
	}); err != nil {
		return nil, err
	}

	return subordinates, nil
}

func (s *Service) mutate(ctx context.Context, rawID string, fn func(context.Context, *Employee, time.Time) error) (*Employee, error) {
	id, err := normalizeID(rawID)
	if err != nil {
		return nil, fmt.Errorf("id: %w", err)
	}

	var updated *Employee
	if err := s.tx.WithinReadWrite(ctx, func(txCtx context.Context) error {
		existing, err := s.repo.FindByID(txCtx, id)
		if err != nil {
			return err
		}

		now := s.clock.Now()
		if err := fn(txCtx, existing, now); err != nil {
			return err
		}
		existing.UpdatedAt = now

		result, err := s.repo.Update(txCtx, existing)
		if err != nil {
			return err
		}
		updated = result
		return nil
	}); err != nil {
		return nil, err
	}

	return updated, nil
}

// ensureValidSupervisor は上長が存在し、employeeID の配下でないことを確認します。
func (s *Service) ensureValidSupervisor(ctx context.Context, employeeID, supervisorID string) error {
	if employeeID != "" && supervisorID == employeeID {
		return ErrSupervisorCycle
	}

	visited := map[string]struct{}{}
	current := supervisorID
	for {
		if _, seen := visited[current]; seen {
			return ErrSupervisorCycle
		}
		visited[current] = struct{}{}

		emp, err := s.repo.FindByID(ctx, current)
		if err != nil {
			if errors.Is(err, ErrEmployeeNotFound) {
				if current == supervisorID {
					return ErrSupervisorNotFound
				}
				return nil
			}
			return err
		}
		if emp.SupervisorID == nil {
			return nil
		}
		if employeeID != "" && *emp.SupervisorID == employeeID {
			return ErrSupervisorCycle
		}
		current = *emp.SupervisorID
	}
}

func normalizeID(raw string) (string, error) {
	parsed, err := uuid.Parse(strings.TrimSpace(raw))
	if err != nil {
		return "", ErrInvalidID
	}
	return parsed.String(), nil
}

func normalizeEmail(raw string) (string, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return "", ErrInvalidEmail
	}

	addr, err := mail.ParseAddress(trimmed)
	if err != nil {
		return "", ErrInvalidEmail
	}

	return strings.ToLower(addr.Address), nil
}

func normalizeLimit(limit int) (int, error) {
	switch {
	case limit == 0:
		return DefaultListLimit, nil
	case limit < 0 || limit > MaxListLimit:
		return 0, ErrInvalidPagination
	default:
		return limit, nil
	}
}

func normalizeDate(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func trimOptional(v *string) *string {
	if v == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*v)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
